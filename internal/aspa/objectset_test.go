package aspa

import (
	"math/big"
	"testing"
	"time"

	"github.com/jrschumacher/rpkica/internal/resources"
)

type fakeCertifiedKey struct {
	keyID     string
	resources resources.Set
}

func (k fakeCertifiedKey) KeyID() string           { return k.keyID }
func (k fakeCertifiedKey) Resources() resources.Set { return k.resources }
func (k fakeCertifiedKey) CRLURI() string          { return "rsync://rpki.example.net/repo/ca.crl" }
func (k fakeCertifiedKey) CAIssuerURI() string     { return "rsync://rpki.example.net/repo/ca.cer" }
func (k fakeCertifiedKey) Subject() string         { return "CN=test-ca" }
func (k fakeCertifiedKey) URIForName(name string) string {
	return "rsync://rpki.example.net/repo/" + name
}

type fakeSigner struct {
	nextSerial int64
}

func (s *fakeSigner) RandomSerial() (*big.Int, error) {
	s.nextSerial++
	return big.NewInt(s.nextSerial), nil
}

func (s *fakeSigner) SignASPA(def Definition, params SignParams) (SignedObject, error) {
	return SignedObject{Base64: "ZmFrZS1hc3BhLW9iamVjdA=="}, nil
}

type fakeTiming struct{}

func (fakeTiming) NewAspaValidity() Validity {
	now := time.Unix(1_700_000_000, 0)
	return Validity{NotBefore: now, NotAfter: now.Add(180 * 24 * time.Hour)}
}

// TestIssuanceOnNewDefinition covers issuing an object for a brand-new definition.
func TestIssuanceOnNewDefinition(t *testing.T) {
	defs := NewDefinitionSet()
	defs.AddOrReplace(Definition{Customer: 64500, Providers: []resources.ASN{64501, 64502}})

	key := fakeCertifiedKey{keyID: "key-1", resources: resources.NewSetFromASNs(64500)}
	objects := NewObjectSet()

	batch, err := objects.Update(defs, key, fakeTiming{}, &fakeSigner{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if len(batch.Updated) != 1 || batch.Updated[0].Customer() != 64500 {
		t.Fatalf("Updated = %v, want one entry for AS64500", batch.Updated)
	}
	if len(batch.Removed) != 0 {
		t.Fatalf("Removed = %v, want empty", batch.Removed)
	}
}

// TestWithdrawalOnResourceLoss covers withdrawing an object once its customer ASN falls out of resource coverage.
func TestWithdrawalOnResourceLoss(t *testing.T) {
	defs := NewDefinitionSet()
	defs.AddOrReplace(Definition{Customer: 64500, Providers: []resources.ASN{64501}})

	key := fakeCertifiedKey{keyID: "key-1", resources: resources.NewSetFromASNs(64999)} // no longer covers 64500
	objects := NewObjectSet()
	objects.Updated(UpdateBatch{Updated: []ObjectInfo{{Definition: Definition{Customer: 64500, Providers: []resources.ASN{64501}}}}})

	batch, err := objects.Update(defs, key, fakeTiming{}, &fakeSigner{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if len(batch.Updated) != 0 {
		t.Fatalf("Updated = %v, want empty", batch.Updated)
	}
	if len(batch.Removed) != 1 || batch.Removed[0] != 64500 {
		t.Fatalf("Removed = %v, want [64500]", batch.Removed)
	}
}

// TestReissuanceOnDefinitionChange covers reissuing an object once its definition changes.
func TestReissuanceOnDefinitionChange(t *testing.T) {
	defs := NewDefinitionSet()
	defs.AddOrReplace(Definition{Customer: 64500, Providers: []resources.ASN{64501, 64502}})

	key := fakeCertifiedKey{keyID: "key-1", resources: resources.NewSetFromASNs(64500)}
	objects := NewObjectSet()
	objects.Updated(UpdateBatch{Updated: []ObjectInfo{{Definition: Definition{Customer: 64500, Providers: []resources.ASN{64501}}}}})

	batch, err := objects.Update(defs, key, fakeTiming{}, &fakeSigner{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if len(batch.Updated) != 1 || batch.Updated[0].Customer() != 64500 {
		t.Fatalf("Updated = %v, want one regenerated entry for AS64500", batch.Updated)
	}
	if len(batch.Removed) != 0 {
		t.Fatalf("Removed = %v, want empty", batch.Removed)
	}
}

// TestUpdateDisjointLists checks that updated and removed never share a customer ASN.
func TestUpdateDisjointLists(t *testing.T) {
	defs := NewDefinitionSet()
	defs.AddOrReplace(Definition{Customer: 64500, Providers: []resources.ASN{64501}}) // covered, no existing object: updated
	// 64600 has an object but no definition and no resource coverage: removed

	key := fakeCertifiedKey{keyID: "key-1", resources: resources.NewSetFromASNs(64500)}
	objects := NewObjectSet()
	objects.Updated(UpdateBatch{Updated: []ObjectInfo{{Definition: Definition{Customer: 64600, Providers: []resources.ASN{64601}}}}})

	batch, err := objects.Update(defs, key, fakeTiming{}, &fakeSigner{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	seen := map[resources.ASN]bool{}
	for _, info := range batch.Updated {
		seen[info.Customer()] = true
	}
	for _, c := range batch.Removed {
		if seen[c] {
			t.Fatalf("customer AS%d appears in both Updated and Removed", c)
		}
	}
	if len(batch.Removed) != 1 || batch.Removed[0] != 64600 {
		t.Fatalf("Removed = %v, want [64600]", batch.Removed)
	}
}

func TestRenewUnconditionalWithNilThreshold(t *testing.T) {
	key := fakeCertifiedKey{keyID: "key-1", resources: resources.NewSetFromASNs(64500)}
	objects := NewObjectSet()
	objects.Updated(UpdateBatch{Updated: []ObjectInfo{{
		Definition: Definition{Customer: 64500, Providers: []resources.ASN{64501}},
		Validity:   Validity{NotAfter: time.Unix(1_700_000_000, 0)},
	}}})

	batch, err := objects.Renew(key, nil, fakeTiming{}, &fakeSigner{})
	if err != nil {
		t.Fatalf("Renew error: %v", err)
	}
	if len(batch.Updated) != 1 {
		t.Fatalf("Updated = %v, want one unconditional renewal", batch.Updated)
	}
	if len(batch.Removed) != 0 {
		t.Fatalf("Renew must never produce removals, got %v", batch.Removed)
	}
}

func TestRenewSkipsObjectsNotPastThreshold(t *testing.T) {
	key := fakeCertifiedKey{keyID: "key-1", resources: resources.NewSetFromASNs(64500)}
	objects := NewObjectSet()
	notAfter := time.Unix(1_800_000_000, 0)
	objects.Updated(UpdateBatch{Updated: []ObjectInfo{{
		Definition: Definition{Customer: 64500, Providers: []resources.ASN{64501}},
		Validity:   Validity{NotAfter: notAfter},
	}}})

	threshold := int64(1_700_000_000) // well before notAfter: no renewal needed
	batch, err := objects.Renew(key, &threshold, fakeTiming{}, &fakeSigner{})
	if err != nil {
		t.Fatalf("Renew error: %v", err)
	}
	if len(batch.Updated) != 0 {
		t.Fatalf("Updated = %v, want none (object not past threshold)", batch.Updated)
	}
}

// TestMakeAspaRoundTripDeterminism checks that two
// make_aspa outputs for identical inputs differ only in serial and
// signing time (not modeled directly; Base64 and URI must match).
func TestMakeAspaRoundTripDeterminism(t *testing.T) {
	def := Definition{Customer: 64500, Providers: []resources.ASN{64501, 64502}}
	key := fakeCertifiedKey{keyID: "key-1", resources: resources.NewSetFromASNs(64500)}
	signer := &fakeSigner{}

	first, err := MakeAspa(def, key, fakeTiming{}.NewAspaValidity(), signer)
	if err != nil {
		t.Fatalf("MakeAspa error: %v", err)
	}
	second, err := MakeAspa(def, key, fakeTiming{}.NewAspaValidity(), signer)
	if err != nil {
		t.Fatalf("MakeAspa error: %v", err)
	}

	if first.URI != second.URI {
		t.Fatalf("URI mismatch: %q vs %q", first.URI, second.URI)
	}
	if first.Base64 != second.Base64 {
		t.Fatalf("Base64 mismatch: outputs should be identical modulo serial for identical inputs")
	}
	if first.Serial.Cmp(second.Serial) == 0 {
		t.Fatalf("expected distinct serials across independent MakeAspa calls")
	}
}

func TestMakeAspaRejectsEmptyProviderList(t *testing.T) {
	def := Definition{Customer: 64500}
	key := fakeCertifiedKey{keyID: "key-1", resources: resources.NewSetFromASNs(64500)}
	if _, err := MakeAspa(def, key, fakeTiming{}.NewAspaValidity(), &fakeSigner{}); err == nil {
		t.Fatalf("expected error for definition with no providers")
	}
}
