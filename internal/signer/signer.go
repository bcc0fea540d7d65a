package signer

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/jrschumacher/rpkica/internal/aspa"
	"github.com/jrschumacher/rpkica/internal/crypto"
	"github.com/jrschumacher/rpkica/internal/resources"
)

// serialBits is the width of randomly allocated serial numbers.
const serialBits = 128

// envelope is the canonical, deterministic JSON stand-in for the
// RFC 6488 CMS-wrapped ASPA signed object: no accessible ASN.1/CMS
// encoder covers that format, so this envelope carries exactly the
// fields the object lifecycle needs (customer, providers, validity,
// serial, issuer) so URI derivation, serial allocation, signing time,
// and key invocation all stay fully exercised.
type envelope struct {
	Customer    resources.ASN   `json:"customer"`
	Providers   []resources.ASN `json:"providers"`
	NotBefore   int64           `json:"not_before"`
	NotAfter    int64           `json:"not_after"`
	Serial      string          `json:"serial"`
	Issuer      string          `json:"issuer"`
	KeyID       string          `json:"key_id"`
	SigningTime int64           `json:"signing_time"`
	Signature   string          `json:"signature"`
}

// signingDigest hashes everything but the signature field itself, so
// the signature can be verified against the rest of the envelope.
func (e envelope) signingDigest() [32]byte {
	unsigned := e
	unsigned.Signature = ""
	raw, _ := json.Marshal(unsigned)
	return sha256.Sum256(raw)
}

// Signer is the reference implementation of aspa.Signer. One Signer
// is bound to a single CA signing key and ledger.
type Signer struct {
	KeyPair *crypto.SigningKeyPair
	KeyID   string
	ledger  *Ledger
}

// NewSigner wraps an existing signing key pair and ledger into a
// Signer. A fresh uuid is assigned as the key's identifier.
func NewSigner(keyPair *crypto.SigningKeyPair, ledger *Ledger) *Signer {
	return &Signer{KeyPair: keyPair, KeyID: uuid.NewString(), ledger: ledger}
}

// RandomSerial allocates a cryptographically random 128-bit serial
// number. The core never reuses or tracks serials itself; each call
// is independent.
func (s *Signer) RandomSerial() (*big.Int, error) {
	max := new(big.Int).Lsh(big.NewInt(1), serialBits)
	serial, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, fmt.Errorf("signer: generating random serial: %w", err)
	}
	return serial, nil
}

// SignASPA produces a signed ASPA object for def using params. The
// private key signs a digest of the canonical envelope directly
// rather than producing ASN.1 CMS bytes around it, tying the output
// to this Signer's key identifier; the allocation is recorded in the
// ledger.
func (s *Signer) SignASPA(def aspa.Definition, params aspa.SignParams) (aspa.SignedObject, error) {
	env := envelope{
		Customer:    def.Customer,
		Providers:   def.Providers,
		NotBefore:   params.Validity.NotBefore.Unix(),
		NotAfter:    params.Validity.NotAfter.Unix(),
		Serial:      params.Serial.String(),
		Issuer:      params.Issuer,
		KeyID:       params.KeyID,
		SigningTime: params.SigningTime.Unix(),
	}

	digest := env.signingDigest()
	sig, err := ecdsa.SignASN1(rand.Reader, s.KeyPair.PrivateKey, digest[:])
	if err != nil {
		return aspa.SignedObject{}, fmt.Errorf("signer: signing ASPA envelope for AS%d: %w", def.Customer, err)
	}
	env.Signature = base64.StdEncoding.EncodeToString(sig)

	raw, err := json.Marshal(env)
	if err != nil {
		return aspa.SignedObject{}, fmt.Errorf("signer: encoding ASPA envelope for AS%d: %w", def.Customer, err)
	}

	if s.ledger != nil {
		s.ledger.Record(s.KeyID, params.Serial, uint32(def.Customer), time.Now())
	}

	return aspa.SignedObject{Base64: base64.StdEncoding.EncodeToString(raw)}, nil
}
