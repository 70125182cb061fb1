package weaver

import (
	"fmt"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	log "github.com/sirupsen/logrus"
)

type closure struct {
	method *ir.Method
	inner  aspectinfo.ShadowPoints
}

// AroundWeaver moves the code of an around-advised shadow into a proceed
// closure. Advice of lower precedence at the same shadow is woven into the
// closure, between its own markers.
type AroundWeaver struct {
	prog     *ir.Program
	closures map[ir.UnitID]closure
	byMethod map[*ir.Method][]*ir.Method
	counts   map[*ir.Class]int
}

func NewAroundWeaver(prog *ir.Program) *AroundWeaver {
	aw := &AroundWeaver{prog: prog}
	aw.Reset()
	return aw
}

func (aw *AroundWeaver) Reset() {
	aw.closures = make(map[ir.UnitID]closure)
	aw.byMethod = make(map[*ir.Method][]*ir.Method)
	aw.counts = make(map[*ir.Class]int)
}

// Redirect follows begin to the shadow that replaced it, if any.
func (aw *AroundWeaver) Redirect(begin ir.UnitID) (aspectinfo.ShadowPoints, bool) {
	c, ok := aw.closures[begin]
	return c.inner, ok
}

// Closures returns the proceed closures made out of code from m, including
// closures nested in them.
func (aw *AroundWeaver) Closures(m *ir.Method) []*ir.Method {
	var out []*ir.Method
	for _, c := range aw.byMethod[m] {
		out = append(out, c)
		out = append(out, aw.Closures(c)...)
	}
	return out
}

// ProceedClosure moves region out of the body of m into a new method of the
// same class. The closure is cached under begin until Reset.
func (aw *AroundWeaver) ProceedClosure(m *ir.Method, begin ir.UnitID, region []ir.UnitID) *ir.Method {
	if c, ok := aw.closures[begin]; ok {
		return c.method
	}
	cl := m.Class
	name := fmt.Sprintf("proceed$%d", aw.counts[cl])
	aw.counts[cl]++

	body := ir.NewBody()
	inner := aspectinfo.ShadowPoints{
		Begin: aw.prog.Arena.New(ir.Unit{Op: ir.OpNop}),
		End:   aw.prog.Arena.New(ir.Unit{Op: ir.OpNop}),
	}
	body.Append(inner.Begin)
	for _, id := range region {
		m.Body.Remove(id)
		body.Append(id)
	}
	body.Append(inner.End)
	aw.prog.Emit(body, ir.Unit{Op: ir.OpReturn})

	pm := cl.AddMethod(&ir.Method{Name: name, Kind: ir.Plain, Body: body, Pos: m.Pos})
	aw.closures[begin] = closure{method: pm, inner: inner}
	aw.byMethod[m] = append(aw.byMethod[m], pm)
	log.Debugf("proceed closure %s for %s (%d units)", pm, m, len(region))
	return pm
}
