package crypto

import "testing"

func TestChaCha20Poly1305RoundTrip(t *testing.T) {
	var c ChaCha20Poly1305Cipher
	key := []byte("some shared symmetric key")
	plaintext := []byte(`{"id":"some id"}`)

	tag := make([]byte, TagSize)
	ciphertext, err := c.Encrypt(key, plaintext, tag)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if len(ciphertext) != len(plaintext) {
		t.Fatalf("ciphertext length = %d, want %d", len(ciphertext), len(plaintext))
	}

	got, err := c.Decrypt(key, ciphertext, tag)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestChaCha20Poly1305WrongKeyFails(t *testing.T) {
	var c ChaCha20Poly1305Cipher
	plaintext := []byte("payload")
	tag := make([]byte, TagSize)

	ciphertext, err := c.Encrypt([]byte("key-one"), plaintext, tag)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	if _, err := c.Decrypt([]byte("key-two"), ciphertext, tag); err == nil {
		t.Fatalf("expected Decrypt with wrong key to fail")
	}
}

func TestChaCha20Poly1305TamperedTagFails(t *testing.T) {
	var c ChaCha20Poly1305Cipher
	key := []byte("a key")
	plaintext := []byte("payload")
	tag := make([]byte, TagSize)

	ciphertext, err := c.Encrypt(key, plaintext, tag)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	tag[0] ^= 0xFF

	if _, err := c.Decrypt(key, ciphertext, tag); err == nil {
		t.Fatalf("expected Decrypt with tampered tag to fail")
	}
}

func TestIdentityCipherRoundTrip(t *testing.T) {
	var c IdentityCipher
	plaintext := []byte("payload")
	tag := make([]byte, TagSize)

	ciphertext, err := c.Encrypt(nil, plaintext, tag)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if string(ciphertext) != string(plaintext) {
		t.Fatalf("identity cipher should be a no-op")
	}

	got, err := c.Decrypt(nil, ciphertext, tag)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestSigningKeyPairPEMRoundTrip(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair error: %v", err)
	}
	pemBytes, err := kp.EncodePrivateKeyPEM()
	if err != nil {
		t.Fatalf("EncodePrivateKeyPEM error: %v", err)
	}
	decoded, err := DecodeSigningKeyPairPEM(pemBytes)
	if err != nil {
		t.Fatalf("DecodeSigningKeyPairPEM error: %v", err)
	}
	if decoded.PrivateKey.X.Cmp(kp.PrivateKey.X) != 0 {
		t.Fatalf("decoded key mismatch")
	}
}
