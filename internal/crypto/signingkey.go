package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// SigningKeyPair holds an ECDSA P-256 keypair used by the reference
// Signer to produce CA certified-key material. This mirrors the DPoP
// keypair helpers an AT-Proto client lineage used for proof-of-possession
// keys, generalized here to CA signing keys.
type SigningKeyPair struct {
	PrivateKey *ecdsa.PrivateKey
}

// GenerateSigningKeyPair generates a new ECDSA P-256 keypair.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate signing key: %w", err)
	}
	return &SigningKeyPair{PrivateKey: priv}, nil
}

// EncodePrivateKeyPEM encodes the private key as a PEM block.
func (k *SigningKeyPair) EncodePrivateKeyPEM() ([]byte, error) {
	b, err := x509.MarshalECPrivateKey(k.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: b}), nil
}

// EncodePublicKeyPEM encodes the public key as a PEM block.
func (k *SigningKeyPair) EncodePublicKeyPEM() ([]byte, error) {
	b, err := x509.MarshalPKIXPublicKey(&k.PrivateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: b}), nil
}

// DecodeSigningKeyPairPEM parses a PEM-encoded EC private key.
func DecodeSigningKeyPairPEM(pemBytes []byte) (*SigningKeyPair, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("crypto: invalid PEM block")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}
	return &SigningKeyPair{PrivateKey: key}, nil
}
