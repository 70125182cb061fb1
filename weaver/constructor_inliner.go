package weaver

import (
	"fmt"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	log "github.com/sirupsen/logrus"
)

const maxConstructorChain = 16

// ConstructorInliner replaces delegating constructor calls with the body of
// the constructor called, so that the initialization shadows of a
// constructor cover all the code that runs for it.
type ConstructorInliner struct {
	prog *ir.Program
	info *aspectinfo.Info
}

func NewConstructorInliner(prog *ir.Program, info *aspectinfo.Info) *ConstructorInliner {
	return &ConstructorInliner{prog: prog, info: info}
}

// InlineConstructors inlines into every constructor of cl that has
// initialization or preinitialization advice.
func (ci *ConstructorInliner) InlineConstructors(cl *ir.Class) error {
	for _, m := range cl.Constructors() {
		if !m.IsConcrete() {
			continue
		}
		l := ci.info.AdviceList(m)
		if len(l.PreinitializationAdvice) == 0 && len(l.InitializationAdvice) == 0 {
			continue
		}
		if err := ci.inline(m); err != nil {
			return err
		}
	}
	return nil
}

func (ci *ConstructorInliner) inline(m *ir.Method) error {
	for depth := 0; ; depth++ {
		if depth > maxConstructorChain {
			return fmt.Errorf("constructor %s: delegation chain longer than %d", m, maxConstructorChain)
		}
		at := ir.UnitID(0)
		for _, id := range m.Body.Units {
			if ci.prog.Unit(id).Op == ir.OpInvokeThis {
				at = id
				break
			}
		}
		if at == 0 {
			return nil
		}
		callee := ci.prog.Unit(at).Callee
		if callee == nil || !callee.IsConcrete() {
			return fmt.Errorf("constructor %s: cannot inline call to %s", m, ci.prog.Unit(at))
		}
		if callee == m {
			return fmt.Errorf("constructor %s delegates to itself", m)
		}
		var copies []ir.UnitID
		for _, id := range callee.Body.Units {
			u := ci.prog.Unit(id)
			if u.Op == ir.OpReturn || u.Op == ir.OpNop {
				continue
			}
			copies = append(copies, ci.prog.Arena.Clone(id))
		}
		m.Body.Replace(at, copies...)
		log.Debugf("inlined %s into %s (%d units)", callee, m, len(copies))
	}
}
