package typedesc

// MappingKey is the cache/binding key combining a target TypeDescriptor with
// a set of requested qualifiers (§3). Equality/hash is structural.
type MappingKey struct {
	Target     TypeDescriptor
	Qualifiers QualifierSet
}

// NewMappingKey builds a MappingKey.
func NewMappingKey(target TypeDescriptor, qualifiers ...Qualifier) MappingKey {
	return MappingKey{Target: target, Qualifiers: NewQualifierSet(qualifiers...)}
}

// Key returns a canonical string for use as a map key.
func (k MappingKey) Key() string {
	return k.Target.Key() + "#" + k.Qualifiers.Key()
}
