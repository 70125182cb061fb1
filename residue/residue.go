// Package residue implements the runtime guards that decide whether an advice
// application actually fires at its join point.
//
// Residues are immutable values. Optimize returns a simplified residue that
// still remembers its unoptimized form for the current weaving generation;
// ResetForReweaving hands that form back so a later round can optimize again
// with whatever the analyses have learned in the meantime.
package residue

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/o2lab/reweave/pointer"
)

type Residue interface {
	Optimize() Residue
	ResetForReweaving() Residue
	// Eval decides the guard in a runtime state.
	Eval(State) bool
	String() string
}

// State assigns a truth value to every leaf of a residue, keyed by the leaf's
// String form. Missing leaves are false.
type State map[string]bool

type AlwaysMatch struct{}

type NeverMatch struct{}

var (
	Always Residue = AlwaysMatch{}
	Never  Residue = NeverMatch{}
)

type And struct {
	L, R Residue
}

type Or struct {
	L, R Residue
}

type Not struct {
	R Residue
}

// Test is a dynamic check, e.g. an instanceof test or an if pointcut.
type Test struct {
	Name string
}

// Binding binds a tracematch variable to a program value. A negative binding
// requires the variable to be bound to something else.
type Binding struct {
	Var      string
	Value    pointer.Local
	Negative bool
}

// Optimized is the result of optimizing Original in the current generation.
type Optimized struct {
	Current  Residue
	Original Residue
}

func AndOf(rs ...Residue) Residue {
	if len(rs) == 0 {
		return Always
	}
	r := rs[0]
	for _, next := range rs[1:] {
		r = And{r, next}
	}
	return r
}

func OrOf(rs ...Residue) Residue {
	if len(rs) == 0 {
		return Never
	}
	r := rs[0]
	for _, next := range rs[1:] {
		r = Or{r, next}
	}
	return r
}

func (AlwaysMatch) Optimize() Residue          { return Always }
func (AlwaysMatch) ResetForReweaving() Residue { return Always }
func (AlwaysMatch) Eval(State) bool            { return true }
func (AlwaysMatch) String() string             { return "true" }

func (NeverMatch) Optimize() Residue          { return Never }
func (NeverMatch) ResetForReweaving() Residue { return Never }
func (NeverMatch) Eval(State) bool            { return false }
func (NeverMatch) String() string             { return "false" }

func (t Test) Optimize() Residue          { return t }
func (t Test) ResetForReweaving() Residue { return t }
func (t Test) Eval(s State) bool          { return s[t.String()] }
func (t Test) String() string             { return t.Name }

func (b Binding) Optimize() Residue          { return b }
func (b Binding) ResetForReweaving() Residue { return b }
func (b Binding) Eval(s State) bool          { return s[b.String()] }

func (b Binding) String() string {
	if b.Negative {
		return fmt.Sprintf("%s!=%s", b.Var, b.Value)
	}
	return fmt.Sprintf("%s=%s", b.Var, b.Value)
}

func (a And) Optimize() Residue { return optimized(a) }
func (a And) Eval(s State) bool { return a.L.Eval(s) && a.R.Eval(s) }
func (a And) String() string    { return "(" + a.L.String() + " && " + a.R.String() + ")" }

func (a And) ResetForReweaving() Residue {
	return And{a.L.ResetForReweaving(), a.R.ResetForReweaving()}
}

func (o Or) Optimize() Residue { return optimized(o) }
func (o Or) Eval(s State) bool { return o.L.Eval(s) || o.R.Eval(s) }
func (o Or) String() string    { return "(" + o.L.String() + " || " + o.R.String() + ")" }

func (o Or) ResetForReweaving() Residue {
	return Or{o.L.ResetForReweaving(), o.R.ResetForReweaving()}
}

func (n Not) Optimize() Residue          { return optimized(n) }
func (n Not) ResetForReweaving() Residue { return Not{n.R.ResetForReweaving()} }
func (n Not) Eval(s State) bool          { return !n.R.Eval(s) }
func (n Not) String() string             { return "!" + n.R.String() }

func (o Optimized) Optimize() Residue {
	return Optimized{Current: simplify(o.Current), Original: o.Original}
}

func (o Optimized) ResetForReweaving() Residue { return o.Original.ResetForReweaving() }
func (o Optimized) Eval(s State) bool          { return o.Current.Eval(s) }
func (o Optimized) String() string             { return o.Current.String() }

func optimized(r Residue) Residue {
	cur := simplify(r)
	if Equal(cur, r) {
		return r
	}
	return Optimized{Current: cur, Original: r}
}

// simplify returns the reduced form of r with no Optimized wrappers left.
func simplify(r Residue) Residue {
	switch r := r.(type) {
	case Optimized:
		return simplify(r.Current)
	case And:
		l, rr := simplify(r.L), simplify(r.R)
		switch {
		case isNever(l) || isNever(rr):
			return Never
		case isAlways(l):
			return rr
		case isAlways(rr):
			return l
		}
		return And{l, rr}
	case Or:
		l, rr := simplify(r.L), simplify(r.R)
		switch {
		case isAlways(l) || isAlways(rr):
			return Always
		case isNever(l):
			return rr
		case isNever(rr):
			return l
		}
		return Or{l, rr}
	case Not:
		inner := simplify(r.R)
		switch inner := inner.(type) {
		case AlwaysMatch:
			return Never
		case NeverMatch:
			return Always
		case Not:
			return inner.R
		}
		return Not{inner}
	}
	return r
}

func isAlways(r Residue) bool {
	_, ok := r.(AlwaysMatch)
	return ok
}

func isNever(r Residue) bool {
	_, ok := r.(NeverMatch)
	return ok
}

// Current strips the Optimized wrapper at the root of r, if any.
func Current(r Residue) Residue {
	if o, ok := r.(Optimized); ok {
		return Current(o.Current)
	}
	return r
}

// AlwaysMatches reports whether r is statically known to accept every state.
func AlwaysMatches(r Residue) bool {
	return isAlways(Current(r))
}

// NeverMatches reports whether r is statically known to reject every state.
func NeverMatches(r Residue) bool {
	return isNever(Current(r))
}

// Equal reports whether a and b are the same tree, Optimized wrappers
// included.
func Equal(a, b Residue) bool {
	return cmp.Equal(a, b)
}
