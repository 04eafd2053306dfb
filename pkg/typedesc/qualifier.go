package typedesc

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in qualifier kind names, recognized by name equivalence (§6).
const (
	QualifierDefault = "Default"
	QualifierAny     = "Any"
	QualifierNamed   = "Named"
)

// Qualifier is an opaque tagged value: a kind name plus a member map.
// Equality is by kind + members (structural), matching §3's
// QualifierAnnotation.
type Qualifier struct {
	Kind    string
	Members map[string]interface{}
}

// Default is the implicit qualifier carried by a candidate that declares no
// user qualifier.
func Default() Qualifier { return Qualifier{Kind: QualifierDefault} }

// Any is the built-in qualifier that matches every candidate.
func Any() Qualifier { return Qualifier{Kind: QualifierAny} }

// Named builds the built-in @Named(value) qualifier.
func Named(value string) Qualifier {
	return Qualifier{Kind: QualifierNamed, Members: map[string]interface{}{"value": value}}
}

// Key renders a canonical string for structural equality/hashing.
func (q Qualifier) Key() string {
	if len(q.Members) == 0 {
		return q.Kind
	}
	keys := make([]string, 0, len(q.Members))
	for k := range q.Members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(q.Kind)
	b.WriteByte('(')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%v", k, q.Members[k])
	}
	b.WriteByte(')')
	return b.String()
}

func (q Qualifier) Equal(other Qualifier) bool { return q.Key() == other.Key() }

func (q Qualifier) String() string { return q.Key() }

// QualifierSet is an order-independent set of Qualifiers with a canonical
// key, used as the qualifier component of MappingKey and in resolver
// candidate matching.
type QualifierSet struct {
	items map[string]Qualifier
}

// NewQualifierSet builds a QualifierSet from a slice, de-duplicating by Key.
func NewQualifierSet(qs ...Qualifier) QualifierSet {
	items := make(map[string]Qualifier, len(qs))
	for _, q := range qs {
		items[q.Key()] = q
	}
	return QualifierSet{items: items}
}

func (s QualifierSet) Len() int { return len(s.items) }

func (s QualifierSet) Has(q Qualifier) bool {
	_, ok := s.items[q.Key()]
	return ok
}

// HasKind reports whether the set contains any qualifier of the given kind.
func (s QualifierSet) HasKind(kind string) bool {
	for _, q := range s.items {
		if q.Kind == kind {
			return true
		}
	}
	return false
}

// Slice returns the set's members in a stable, sorted order.
func (s QualifierSet) Slice() []Qualifier {
	out := make([]Qualifier, 0, len(s.items))
	for _, q := range s.items {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Key returns a canonical string for the whole set.
func (s QualifierSet) Key() string {
	slice := s.Slice()
	parts := make([]string, len(slice))
	for i, q := range slice {
		parts[i] = q.Key()
	}
	return strings.Join(parts, "+")
}

// UserQualifiers returns the members that are not the built-in Default/Any
// markers — i.e. the qualifiers that make a candidate "not Default-only"
// per §4.4.2 step 7.
func (s QualifierSet) UserQualifiers() []Qualifier {
	out := make([]Qualifier, 0, len(s.items))
	for _, q := range s.items {
		if q.Kind != QualifierDefault && q.Kind != QualifierAny {
			out = append(out, q)
		}
	}
	return out
}

// Union returns a new set containing the members of both sets.
func (s QualifierSet) Union(other QualifierSet) QualifierSet {
	items := make(map[string]Qualifier, len(s.items)+len(other.items))
	for k, v := range s.items {
		items[k] = v
	}
	for k, v := range other.items {
		items[k] = v
	}
	return QualifierSet{items: items}
}
