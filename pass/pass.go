// Package pass defines the analyses that may ask the weaver for another
// weaving round.
package pass

// ReweavingPass is one analysis-driven rewrite round. Analyze may update
// residues; it returns true if the program must be rewoven. SetupWeaving and
// TearDownWeaving bracket that reweave.
type ReweavingPass interface {
	Analyze() (bool, error)
	SetupWeaving() error
	TearDownWeaving() error
}

// Registry keeps passes in registration order.
type Registry struct {
	passes []ReweavingPass
}

func (r *Registry) Register(p ReweavingPass) {
	r.passes = append(r.passes, p)
}

func (r *Registry) All() []ReweavingPass {
	if r == nil {
		return nil
	}
	return r.passes
}

func (r *Registry) Len() int {
	return len(r.All())
}

// Funcs adapts plain functions to a ReweavingPass. Nil hooks do nothing.
type Funcs struct {
	AnalyzeFunc  func() (bool, error)
	SetupFunc    func() error
	TearDownFunc func() error
}

func (f Funcs) Analyze() (bool, error) {
	if f.AnalyzeFunc == nil {
		return false, nil
	}
	return f.AnalyzeFunc()
}

func (f Funcs) SetupWeaving() error {
	if f.SetupFunc == nil {
		return nil
	}
	return f.SetupFunc()
}

func (f Funcs) TearDownWeaving() error {
	if f.TearDownFunc == nil {
		return nil
	}
	return f.TearDownFunc()
}
