package weaver

import (
	"fmt"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/residue"
	log "github.com/sirupsen/logrus"
)

// StaticJoinPoints initializes one static join point object per woven
// advice application in the class initializer.
type StaticJoinPoints struct {
	ctx *Context
}

func (g StaticJoinPoints) GenStaticJoinPoints(cl *ir.Class) {
	prog, state := g.ctx.Program, g.ctx.State
	var clinit *ir.Method
	for _, m := range append([]*ir.Method(nil), cl.Methods...) {
		if !m.IsConcrete() {
			continue
		}
		for _, appl := range g.ctx.Info.AdviceList(m).AllAdvice() {
			if appl.Advice.IsDeclareMessage() || residue.NeverMatches(appl.Residue()) {
				continue
			}
			if _, ok := state.StaticJoinPoint(appl); ok {
				continue
			}
			if clinit == nil {
				clinit = staticInitializer(prog, cl)
			}
			name := fmt.Sprintf("SJP%d$%s", appl.Advice.NextApplicationNumber(), appl.Advice.Name)
			state.setStaticJoinPoint(appl, name)
			id := prog.Arena.New(ir.Unit{
				Op:   ir.OpStmt,
				Text: fmt.Sprintf("%s = makeSJP(%s, %s)", name, appl.Kind, appl.Method),
			})
			at := clinit.Body.Len()
			if at > 0 && prog.Unit(clinit.Body.Units[at-1]).Op == ir.OpReturn {
				at--
			}
			clinit.Body.Insert(at, id)
			log.Debugf("static join point %s for %s", name, appl)
		}
	}
}

// staticInitializer returns the class initializer of cl, adding an empty
// one if there is none yet.
func staticInitializer(prog *ir.Program, cl *ir.Class) *ir.Method {
	if m := cl.StaticInitializer(); m != nil {
		return m
	}
	m := cl.AddMethod(&ir.Method{Name: ir.StaticInitName, Kind: ir.StaticInit, Body: ir.NewBody()})
	prog.Emit(m.Body, ir.Unit{Op: ir.OpReturn})
	return m
}

// staticJoinPointName is the name woven into advice calls for appl.
func staticJoinPointName(state *State, appl *aspectinfo.AdviceApplication) string {
	if name, ok := state.StaticJoinPoint(appl); ok {
		return name
	}
	return "null"
}
