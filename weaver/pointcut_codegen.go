package weaver

import (
	"fmt"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/residue"
	log "github.com/sirupsen/logrus"
)

// PointcutCodeGen weaves advice calls between the shadow markers of each
// advice application.
type PointcutCodeGen struct {
	ctx    *Context
	rebind func(ir.UnitID) ir.UnitID
}

// WeaveInAspectsPass weaves the applications of the given pass into every
// method of cl.
func (g PointcutCodeGen) WeaveInAspectsPass(cl *ir.Class, pass int) error {
	for _, m := range append([]*ir.Method(nil), cl.Methods...) {
		if !m.IsConcrete() {
			continue
		}
		for _, appl := range g.ctx.Info.AdviceList(m).Pass(pass) {
			if err := g.weave(appl); err != nil {
				return err
			}
		}
	}
	return nil
}

// WeaveInAroundAdviceExecutionsPass weaves advice execution advice. Advice
// bodies may have been woven themselves, so this runs after every class.
func (g PointcutCodeGen) WeaveInAroundAdviceExecutionsPass() error {
	for _, cl := range g.ctx.Info.WeavableClasses() {
		if err := g.WeaveInAspectsPass(cl, 0); err != nil {
			return err
		}
	}
	return nil
}

// locate finds the body holding marker: the method itself or one of the
// proceed closures made from it.
func (g PointcutCodeGen) locate(m *ir.Method, marker ir.UnitID) (*ir.Method, int) {
	if i := m.Body.Index(marker); i >= 0 {
		return m, i
	}
	for _, c := range g.ctx.Around.Closures(m) {
		if i := c.Body.Index(marker); i >= 0 {
			return c, i
		}
	}
	return nil, -1
}

func (g PointcutCodeGen) weave(appl *aspectinfo.AdviceApplication) error {
	r := appl.Residue()
	if residue.NeverMatches(r) {
		log.Debugf("skip %s", appl)
		return nil
	}
	if !appl.Shadow.IsSet() {
		return fmt.Errorf("%s: shadow points not set", appl)
	}
	sp := aspectinfo.ShadowPoints{Begin: g.rebind(appl.Shadow.Begin), End: g.rebind(appl.Shadow.End)}
	for {
		inner, ok := g.ctx.Around.Redirect(sp.Begin)
		if !ok {
			break
		}
		sp = inner
	}
	owner, bi := g.locate(appl.Method, sp.Begin)
	if owner == nil {
		return fmt.Errorf("%s: shadow begin %d not in %s", appl, sp.Begin, appl.Method)
	}
	body := owner.Body
	ei := body.Index(sp.End)
	if ei < bi {
		return fmt.Errorf("%s: shadow end %d not in %s", appl, sp.End, owner)
	}

	prog, state := g.ctx.Program, g.ctx.State
	decl := appl.Advice
	sjp := staticJoinPointName(state, appl)
	var units []ir.UnitID
	if !residue.AlwaysMatches(r) {
		units = append(units, prog.Arena.New(ir.Unit{Op: ir.OpGuard, Text: r.String()}))
	}
	switch decl.Kind {
	case aspectinfo.Around:
		from, to := bi+1+state.front[sp.Begin], ei-state.back[sp.End]
		region := append([]ir.UnitID(nil), body.Units[from:to]...)
		proceed := g.ctx.Around.ProceedClosure(owner, sp.Begin, region)
		units = append(units, prog.Arena.New(ir.Unit{
			Op:     ir.OpAroundCall,
			Text:   fmt.Sprintf("%s(%s, %s)", decl, sjp, proceed),
			Pos:    prog.Unit(sp.Begin).Pos,
			Callee: decl.Method,
		}))
		body.Insert(from, units...)
	case aspectinfo.After:
		units = append(units, g.adviceCall(appl, sjp))
		body.Insert(ei-state.back[sp.End], units...)
		state.back[sp.End] += len(units)
	default:
		units = append(units, g.adviceCall(appl, sjp))
		body.Insert(bi+1+state.front[sp.Begin], units...)
		state.front[sp.Begin] += len(units)
	}
	state.MarkWoven(owner)
	state.MarkWoven(appl.Method)
	log.Debugf("wove %s into %s", appl, owner)
	return nil
}

func (g PointcutCodeGen) adviceCall(appl *aspectinfo.AdviceApplication, sjp string) ir.UnitID {
	decl := appl.Advice
	u := ir.Unit{Op: ir.OpAdviceCall, Text: fmt.Sprintf("%s(%s)", decl, sjp), Callee: decl.Method}
	if decl.IsDeclareMessage() {
		u.Text = fmt.Sprintf("%s %q", decl.Severity, decl.Message)
	}
	return g.ctx.Program.Arena.New(u)
}
