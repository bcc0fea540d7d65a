// Package crypto provides the narrow AEAD adapter the session cache
// authenticates tokens with, plus CA signing-key material helpers.
package crypto

import (
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// TagSize is the fixed authentication-tag length the core treats
// tag bytes as opaque trailers of. This is what makes the Cipher
// interface AES-GCM-or-equivalent shaped.
const TagSize = 16

// Cipher is the narrow AEAD contract the session cache depends on. It
// is a pure function of its inputs: no hidden state, no nonces stored
// by the adapter itself.
type Cipher interface {
	// Encrypt produces ciphertext the same length as plaintext and
	// fills tagOut (must be TagSize bytes) with the authentication tag.
	Encrypt(key, plaintext []byte, tagOut []byte) (ciphertext []byte, err error)

	// Decrypt authenticates ciphertext against tag and, on success,
	// returns the plaintext. Any tag or key mismatch must fail with a
	// non-specific authentication error.
	Decrypt(key, ciphertext, tag []byte) (plaintext []byte, err error)
}

// ErrAuthenticationFailed is returned by Decrypt on any tag or key
// mismatch. It deliberately carries no further detail.
var ErrAuthenticationFailed = fmt.Errorf("authentication failed")

// ChaCha20Poly1305Cipher is the production Cipher, backed by
// golang.org/x/crypto/chacha20poly1305. Its Overhead() is 16 bytes,
// matching TagSize, so it can stand in for an AES-GCM-shaped
// interface without changing the contract.
//
// The 12-byte nonce chacha20poly1305 requires is derived
// deterministically from the key (sha256(key)[:12]) rather than
// stored alongside the ciphertext. Operators relying on this adapter
// should treat the symmetric key as single-use per process lifetime.
type ChaCha20Poly1305Cipher struct{}

var _ Cipher = ChaCha20Poly1305Cipher{}

func deriveNonce(key []byte) []byte {
	sum := sha256.Sum256(key)
	return sum[:chacha20poly1305.NonceSize]
}

func (ChaCha20Poly1305Cipher) Encrypt(key, plaintext []byte, tagOut []byte) ([]byte, error) {
	if len(tagOut) != TagSize {
		return nil, fmt.Errorf("crypto: tag buffer must be %d bytes, got %d", TagSize, len(tagOut))
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, deriveNonce(key), plaintext, nil)

	ciphertextLen := len(sealed) - aead.Overhead()
	copy(tagOut, sealed[ciphertextLen:])
	return sealed[:ciphertextLen], nil
}

func (ChaCha20Poly1305Cipher) Decrypt(key, ciphertext, tag []byte) ([]byte, error) {
	if len(tag) != TagSize {
		return nil, ErrAuthenticationFailed
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, deriveNonce(key), sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		// Derive a fixed-size key deterministically rather than reject
		// arbitrary caller-supplied key material outright; the core
		// treats the key as opaque bytes of a primitive-fixed length.
		derived := sha256.Sum256(key)
		key = derived[:]
	}
	return chacha20poly1305.New(key)
}

// IdentityCipher is a test-only Cipher whose Encrypt/Decrypt are the
// identity function with a fixed all-zero tag, letting cache tests run
// without exercising real cryptography.
type IdentityCipher struct{}

var _ Cipher = IdentityCipher{}

func (IdentityCipher) Encrypt(_, plaintext []byte, tagOut []byte) ([]byte, error) {
	for i := range tagOut {
		tagOut[i] = 0
	}
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return out, nil
}

func (IdentityCipher) Decrypt(_, ciphertext, _ []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)
	return out, nil
}
