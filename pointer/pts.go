package pointer

import (
	"golang.org/x/tools/container/intsets"
)

// Local names a program value whose points-to set can be queried.
type Local string

// Set is an approximation of the abstract objects a value may reference.
// Object ids are interned by the oracle that produced the set.
type Set struct {
	intsets.Sparse
}

func NewSet(objects ...int) *Set {
	s := &Set{}
	for _, o := range objects {
		s.Insert(o)
	}
	return s
}

// Intersects reports whether s and o may reference a common object.
// A nil set references nothing.
func (s *Set) Intersects(o *Set) bool {
	if s == nil || o == nil {
		return false
	}
	return s.Sparse.Intersects(&o.Sparse)
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.Sparse.Len()
}

func (s *Set) Objects() []int {
	if s == nil {
		return nil
	}
	return s.AppendTo(nil)
}

func (s *Set) String() string {
	if s == nil {
		return "{}"
	}
	return s.Sparse.String()
}

// Oracle answers points-to queries. The boolean is false when the oracle
// knows nothing about v, which is different from an empty set.
type Oracle interface {
	ReachingObjects(v Local) (*Set, bool)
}
