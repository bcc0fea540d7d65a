// Package aspa implements the ASPA (Autonomous System Provider
// Authorization) object lifecycle: declarative per-customer-ASN
// definitions, diffed against a certified key's resource coverage to
// produce issuance/withdrawal batches. The RPKI signed-object encoding
// itself (CMS/ASN.1) is out of reach of this module and is stood in
// for by a canonical envelope in internal/signer.
package aspa

import "github.com/jrschumacher/rpkica/internal/resources"

// Definition is a customer ASN and its ordered, non-empty list of
// authorized provider ASNs. Ordering is significant: two definitions
// with identical provider sets but different orderings are distinct,
// because the serialized signed object is order-sensitive.
type Definition struct {
	Customer  resources.ASN
	Providers []resources.ASN
}

// Equal reports structural equality, including provider ordering.
func (d Definition) Equal(other Definition) bool {
	if d.Customer != other.Customer {
		return false
	}
	if len(d.Providers) != len(other.Providers) {
		return false
	}
	for i := range d.Providers {
		if d.Providers[i] != other.Providers[i] {
			return false
		}
	}
	return true
}

func (d Definition) clone() Definition {
	return Definition{Customer: d.Customer, Providers: append([]resources.ASN(nil), d.Providers...)}
}

// ProvidersUpdate carries two disjoint sets of provider ASNs to add
// and remove from a Definition in a single apply_update call.
type ProvidersUpdate struct {
	Customer resources.ASN
	Added    []resources.ASN
	Removed  []resources.ASN
}

func (d *Definition) applyUpdate(u ProvidersUpdate) {
	removed := make(map[resources.ASN]bool, len(u.Removed))
	for _, asn := range u.Removed {
		removed[asn] = true
	}

	kept := make([]resources.ASN, 0, len(d.Providers))
	for _, asn := range d.Providers {
		if !removed[asn] {
			kept = append(kept, asn)
		}
	}

	present := make(map[resources.ASN]bool, len(kept))
	for _, asn := range kept {
		present[asn] = true
	}
	for _, asn := range u.Added {
		if !present[asn] {
			kept = append(kept, asn)
			present[asn] = true
		}
	}
	d.Providers = kept
}

// DefinitionSet is the per-CA authoritative mapping from customer ASN
// to its declared ASPA Definition. Every definition present has at
// least one provider; apply_update deletes a definition that would
// otherwise end up empty.
type DefinitionSet struct {
	byCustomer map[resources.ASN]Definition
}

// NewDefinitionSet returns an empty set.
func NewDefinitionSet() *DefinitionSet {
	return &DefinitionSet{byCustomer: make(map[resources.ASN]Definition)}
}

// AddOrReplace overwrites any prior definition for the same customer ASN.
// A definition with no providers is not inserted; any existing one for
// that customer is deleted instead.
func (s *DefinitionSet) AddOrReplace(def Definition) {
	if len(def.Providers) == 0 {
		delete(s.byCustomer, def.Customer)
		return
	}
	s.byCustomer[def.Customer] = def.clone()
}

// Remove deletes the definition for customer, if any. Idempotent.
func (s *DefinitionSet) Remove(customer resources.ASN) {
	delete(s.byCustomer, customer)
}

// ApplyUpdate applies an add/remove diff for customer. If no
// definition exists yet, one is created with an empty provider list
// before the diff is applied. If the result is empty, the definition
// is not (re)inserted — and any existing one is deleted.
func (s *DefinitionSet) ApplyUpdate(customer resources.ASN, update ProvidersUpdate) {
	current, exists := s.byCustomer[customer]
	if !exists {
		current = Definition{Customer: customer}
	}
	current.applyUpdate(update)

	if len(current.Providers) == 0 {
		delete(s.byCustomer, customer)
		return
	}
	s.byCustomer[customer] = current
}

// Get returns the definition for customer, if present.
func (s *DefinitionSet) Get(customer resources.ASN) (Definition, bool) {
	d, ok := s.byCustomer[customer]
	return d, ok
}

// Has reports whether a definition exists for customer.
func (s *DefinitionSet) Has(customer resources.ASN) bool {
	_, ok := s.byCustomer[customer]
	return ok
}

// All returns every definition currently held. Iteration order is
// unspecified but stable for the lifetime of the returned slice.
func (s *DefinitionSet) All() []Definition {
	out := make([]Definition, 0, len(s.byCustomer))
	for _, d := range s.byCustomer {
		out = append(out, d)
	}
	return out
}

// Len returns the number of definitions held.
func (s *DefinitionSet) Len() int {
	return len(s.byCustomer)
}

// IsEmpty reports whether the set holds no definitions.
func (s *DefinitionSet) IsEmpty() bool {
	return len(s.byCustomer) == 0
}
