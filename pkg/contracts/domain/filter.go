package domain

import (
	"sort"
)

// ValueSet is a set of allowed categorical values.
type ValueSet map[string]struct{}

// NewValueSet builds a set from values. Calling it with no values yields an
// empty, non-nil set that matches nothing.
func NewValueSet(values ...string) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is allowed.
func (s ValueSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Values returns the members in ascending order.
func (s ValueSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// SubsetOf reports whether every member of s is in other.
func (s ValueSet) SubsetOf(other ValueSet) bool {
	for v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// FilterSpec selects records by month range and categorical membership.
//
// A dimension without an entry in Allowed is unconstrained. A dimension
// whose entry is an empty set matches no record.
type FilterSpec struct {
	Range   DateRange              `json:"range"`
	Allowed map[Dimension]ValueSet `json:"-"`
}

// NewFilterSpec returns a spec over r with every dimension unconstrained.
func NewFilterSpec(r DateRange) FilterSpec {
	return FilterSpec{Range: r, Allowed: map[Dimension]ValueSet{}}
}

// With returns a copy of s constraining d to values.
func (s FilterSpec) With(d Dimension, values ...string) FilterSpec {
	allowed := make(map[Dimension]ValueSet, len(s.Allowed)+1)
	for k, v := range s.Allowed {
		allowed[k] = v
	}
	allowed[d] = NewValueSet(values...)
	s.Allowed = allowed
	return s
}

// Constraint returns the allowed set for d and whether d is constrained.
func (s FilterSpec) Constraint(d Dimension) (ValueSet, bool) {
	set, ok := s.Allowed[d]
	return set, ok
}

// Narrows reports whether s selects a subset of what other selects: same
// range, and every constraint of other is matched by an equal or smaller
// constraint in s.
func (s FilterSpec) Narrows(other FilterSpec) bool {
	if s.Range != other.Range {
		return false
	}
	for d, wider := range other.Allowed {
		narrower, ok := s.Allowed[d]
		if !ok || !narrower.SubsetOf(wider) {
			return false
		}
	}
	return true
}
