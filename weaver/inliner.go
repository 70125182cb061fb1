package weaver

import (
	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	log "github.com/sirupsen/logrus"
)

// AdviceInliner copies small advice bodies into their call sites.
type AdviceInliner struct {
	prog       *ir.Program
	info       *aspectinfo.Info
	considered map[*ir.Method]bool
	inlined    int
}

func NewAdviceInliner(prog *ir.Program, info *aspectinfo.Info) *AdviceInliner {
	ai := &AdviceInliner{prog: prog, info: info}
	ai.Reset()
	return ai
}

func (ai *AdviceInliner) Reset() {
	ai.considered = make(map[*ir.Method]bool)
	ai.inlined = 0
}

// Inlined is the number of call sites inlined since the last Reset.
func (ai *AdviceInliner) Inlined() int {
	return ai.inlined
}

// inlinable reports whether advice is small enough to copy.
func (ai *AdviceInliner) inlinable(advice *ir.Method, threshold int) bool {
	if ok, seen := ai.considered[advice]; seen {
		return ok
	}
	ok := advice.IsConcrete()
	if ok {
		n := 0
		for _, id := range advice.Body.Units {
			switch ai.prog.Unit(id).Op {
			case ir.OpReturn, ir.OpNop:
			case ir.OpAroundCall, ir.OpInvokeThis:
				ok = false
			default:
				n++
			}
		}
		ok = ok && n <= threshold
	}
	ai.considered[advice] = ok
	return ok
}

func (ai *AdviceInliner) Run(opts Options) {
	for _, cl := range ai.info.WeavableClasses() {
		for _, m := range cl.Methods {
			if !m.IsConcrete() {
				continue
			}
			for _, id := range append([]ir.UnitID(nil), m.Body.Units...) {
				u := ai.prog.Unit(id)
				switch {
				case u.Op == ir.OpAdviceCall && opts.BeforeAfterInlining:
				case u.Op == ir.OpAroundCall && opts.AroundInlining:
				default:
					continue
				}
				callee := u.Callee
				if callee == nil || callee == m || !ai.inlinable(callee, opts.InlineThreshold) {
					continue
				}
				var copies []ir.UnitID
				for _, cid := range callee.Body.Units {
					if op := ai.prog.Unit(cid).Op; op == ir.OpReturn || op == ir.OpNop {
						continue
					}
					copies = append(copies, ai.prog.Arena.Clone(cid))
				}
				m.Body.Replace(id, copies...)
				ai.inlined++
				log.Debugf("inlined %s into %s", callee, m)
			}
		}
	}
	log.Infof("advice inliner: %d call sites inlined", ai.inlined)
}
