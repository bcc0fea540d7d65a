package aspa

import "github.com/jrschumacher/rpkica/internal/resources"

// UpdateBatch is a pair of disjoint lists describing the result of a
// diff: Updated holds new or regenerated ObjectInfo records, Removed
// holds customer ASNs whose objects must be withdrawn. No customer
// ASN ever appears in both lists.
type UpdateBatch struct {
	Updated []ObjectInfo
	Removed []resources.ASN
}

func (b *UpdateBatch) addUpdated(info ObjectInfo) {
	b.Updated = append(b.Updated, info)
}

func (b *UpdateBatch) addRemoved(customer resources.ASN) {
	b.Removed = append(b.Removed, customer)
}

// ObjectSet is the per-resource-class collection of currently-issued
// ASPA signed objects for one certified key, keyed by customer ASN.
type ObjectSet struct {
	byCustomer map[resources.ASN]ObjectInfo
}

// NewObjectSet returns an empty set.
func NewObjectSet() *ObjectSet {
	return &ObjectSet{byCustomer: make(map[resources.ASN]ObjectInfo)}
}

// IsEmpty reports whether the set holds no objects.
func (s *ObjectSet) IsEmpty() bool {
	return len(s.byCustomer) == 0
}

// Get returns the currently-held object for customer, if any.
func (s *ObjectSet) Get(customer resources.ASN) (ObjectInfo, bool) {
	info, ok := s.byCustomer[customer]
	return info, ok
}

// Update issues new ASPA objects per defs and the key's resource
// coverage, and identifies objects that must be withdrawn because
// their definition vanished or their customer ASN fell out of the
// key's resources. allAspaDefs is the full per-CA definition set, not
// just the subset relevant to this resource class — callers pass all
// definitions and Update filters by resource coverage itself.
func (s *ObjectSet) Update(allAspaDefs *DefinitionSet, key CertifiedKey, timing IssuanceTiming, signer Signer) (UpdateBatch, error) {
	var batch UpdateBatch
	coverage := key.Resources()

	for _, def := range allAspaDefs.All() {
		if !coverage.Contains(def.Customer) {
			continue
		}

		existing, have := s.byCustomer[def.Customer]
		needIssue := !have || !existing.Definition.Equal(def)
		if !needIssue {
			continue
		}

		info, err := MakeAspa(def, key, timing.NewAspaValidity(), signer)
		if err != nil {
			return UpdateBatch{}, err
		}
		batch.addUpdated(*info)
	}

	for customer := range s.byCustomer {
		if !allAspaDefs.Has(customer) || !coverage.Contains(customer) {
			batch.addRemoved(customer)
		}
	}

	return batch, nil
}

// Renew regenerates held objects. With threshold nil, every object is
// unconditionally renewed; otherwise only objects expiring before
// threshold are renewed. Renew never produces removals.
func (s *ObjectSet) Renew(key CertifiedKey, threshold *int64, timing IssuanceTiming, signer Signer) (UpdateBatch, error) {
	var batch UpdateBatch

	for _, existing := range s.byCustomer {
		renew := threshold == nil || existing.Expires().Unix() < *threshold
		if !renew {
			continue
		}

		info, err := MakeAspa(existing.Definition, key, timing.NewAspaValidity(), signer)
		if err != nil {
			return UpdateBatch{}, err
		}
		batch.addUpdated(*info)
	}

	return batch, nil
}

// Updated applies batch in place: every Updated entry is inserted or
// overwritten, then every Removed customer is deleted. This is the
// only mutator of the set.
func (s *ObjectSet) Updated(batch UpdateBatch) {
	for _, info := range batch.Updated {
		s.byCustomer[info.Customer()] = info
	}
	for _, customer := range batch.Removed {
		delete(s.byCustomer, customer)
	}
}
