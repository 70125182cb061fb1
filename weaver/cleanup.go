package weaver

import "github.com/o2lab/reweave/ir"

// Transform is a cleanup run over every woven method after a weave round.
type Transform interface {
	Name() string
	Apply(prog *ir.Program, m *ir.Method) int
}

// NopEliminator drops nop units, shadow markers included.
type NopEliminator struct{}

func (NopEliminator) Name() string { return "nop-elim" }

func (NopEliminator) Apply(prog *ir.Program, m *ir.Method) int {
	return m.Body.Filter(func(id ir.UnitID) bool {
		return prog.Unit(id).Op != ir.OpNop
	})
}
