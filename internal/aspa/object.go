package aspa

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/jrschumacher/rpkica/internal/resources"
	mh "github.com/multiformats/go-multihash"
)

// Validity is a signed object's not-before/not-after window.
type Validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// IssuanceTiming supplies the validity window for newly minted ASPA
// objects. Backed by internal/config in production.
type IssuanceTiming interface {
	NewAspaValidity() Validity
}

// CertifiedKey is the minimal view of a CA's certified key that the
// ASPA object lifecycle needs: its resource coverage and the URIs a
// freshly minted signed object must carry.
type CertifiedKey interface {
	KeyID() string
	Resources() resources.Set
	CRLURI() string
	CAIssuerURI() string
	Subject() string
	// URIForName derives the publication rsync URI for a canonical
	// object name under this key's signed-object base URI.
	URIForName(name string) string
}

// SignParams carries everything the Signer needs to produce a signed
// ASPA object, assembled by MakeAspa from a CertifiedKey and Validity.
type SignParams struct {
	Serial      *big.Int
	Validity    Validity
	CRLURI      string
	CAIssuerURI string
	ObjectURI   string
	Issuer      string
	SigningTime time.Time
	KeyID       string
}

// SignedObject is the signer's output: the base64-encoded bytes of
// the signed object, ready to publish.
type SignedObject struct {
	Base64 string
}

// Signer is the Signed Object Builder's cryptographic collaborator.
// The core never generates serials itself; each RandomSerial call is
// independent and delegated entirely to the signer.
type Signer interface {
	RandomSerial() (*big.Int, error)
	SignASPA(def Definition, params SignParams) (SignedObject, error)
}

// ObjectInfo is an immutable descriptor of a published ASPA object.
// Created exclusively by MakeAspa; never mutated after creation.
type ObjectInfo struct {
	Definition Definition
	Validity   Validity
	Serial     *big.Int
	URI        string
	Base64     string
	Hash       mh.Multihash
}

func (o ObjectInfo) Customer() resources.ASN { return o.Definition.Customer }
func (o ObjectInfo) Expires() time.Time      { return o.Validity.NotAfter }

// objectName returns the canonical ASPA object filename for a
// customer ASN, following the draft's "AS<n>.asa" convention.
func objectName(customer resources.ASN) string {
	return fmt.Sprintf("AS%d.asa", customer)
}

// MakeAspa constructs a signed ASPA object for def under key, with the
// given validity window, via signer. It derives the publication URI
// from the certified key's incoming certificate and the canonical
// object name, sets the CRL and CA-issuer URIs, allocates a fresh
// random serial, stamps the signing time as now, and invokes the
// signer with the key identifier.
func MakeAspa(def Definition, key CertifiedKey, validity Validity, signer Signer) (*ObjectInfo, error) {
	if len(def.Providers) == 0 {
		return nil, fmt.Errorf("aspa: invalid definition for AS%d: no providers", def.Customer)
	}

	serial, err := signer.RandomSerial()
	if err != nil {
		return nil, fmt.Errorf("aspa: allocating serial for AS%d: %w", def.Customer, err)
	}

	name := objectName(def.Customer)
	uri := key.URIForName(name)

	params := SignParams{
		Serial:      serial,
		Validity:    validity,
		CRLURI:      key.CRLURI(),
		CAIssuerURI: key.CAIssuerURI(),
		ObjectURI:   uri,
		Issuer:      key.Subject(),
		SigningTime: time.Now(),
		KeyID:       key.KeyID(),
	}

	signed, err := signer.SignASPA(def, params)
	if err != nil {
		return nil, fmt.Errorf("aspa: signing AS%d: %w", def.Customer, err)
	}

	raw, err := base64.StdEncoding.DecodeString(signed.Base64)
	if err != nil {
		return nil, fmt.Errorf("aspa: decoding signed object for AS%d: %w", def.Customer, err)
	}
	hash, err := mh.Sum(raw, mh.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("aspa: hashing signed object for AS%d: %w", def.Customer, err)
	}

	return &ObjectInfo{
		Definition: def.clone(),
		Validity:   validity,
		Serial:     serial,
		URI:        uri,
		Base64:     signed.Base64,
		Hash:       hash,
	}, nil
}

