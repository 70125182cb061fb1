package weaver

import (
	"fmt"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
)

// AspectCodeGen fills in the stub methods of an aspect class.
type AspectCodeGen interface {
	FillInAspect(a *aspectinfo.Aspect) error
}

// SingletonCodeGen generates accessors for aspects with a single instance.
type SingletonCodeGen struct {
	Program *ir.Program
}

func (g SingletonCodeGen) FillInAspect(a *aspectinfo.Aspect) error {
	for _, m := range a.Class.Methods {
		if m.Kind != ir.AspectStub || m.IsConcrete() {
			continue
		}
		var text string
		switch m.Name {
		case aspectinfo.AspectOf:
			text = a.Name + "$instance"
		case aspectinfo.HasAspect:
			text = "true"
		default:
			return fmt.Errorf("aspect %s: no code generator for stub %s", a.Name, m.Name)
		}
		m.Body = ir.NewBody()
		g.Program.Emit(m.Body, ir.Unit{Op: ir.OpReturn, Text: text})
	}
	return nil
}
