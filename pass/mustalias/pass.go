// Package mustalias discharges tracematch residues whose positive and
// negative variable bindings can never hold together.
package mustalias

import (
	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/residue"
	log "github.com/sirupsen/logrus"
)

type Pass struct {
	info     *aspectinfo.Info
	analysis *Analysis
	rounds   int
}

func NewPass(info *aspectinfo.Info, analysis *Analysis) *Pass {
	return &Pass{info: info, analysis: analysis}
}

// Analyze replaces every contradictory conjunction with a guard that never
// matches. It asks for a reweave if any residue changed.
func (p *Pass) Analyze() (bool, error) {
	changed := 0
	for _, pair := range p.info.Applications() {
		r := pair.Appl.Residue()
		if residue.NeverMatches(r) {
			continue
		}
		found := false
		rewritten := p.rewrite(r, pair.Method, &found)
		if !found {
			continue
		}
		log.Debugf("mustalias: %s: %s -> %s", pair.Method, r, rewritten)
		pair.Appl.SetResidue(rewritten)
		changed++
	}
	log.Infof("mustalias: %d of %d residues refined", changed, len(p.info.Applications()))
	return changed > 0, nil
}

func (p *Pass) rewrite(r residue.Residue, container *ir.Method, found *bool) residue.Residue {
	switch r := r.(type) {
	case residue.Optimized:
		return p.rewrite(r.Current, container, found)
	case residue.Or:
		return residue.Or{L: p.rewrite(r.L, container, found), R: p.rewrite(r.R, container, found)}
	case residue.And:
		if p.contradicts(residue.Conjuncts(r), container) {
			*found = true
			return residue.Never
		}
		return residue.And{L: p.rewrite(r.L, container, found), R: p.rewrite(r.R, container, found)}
	}
	return r
}

func (p *Pass) contradicts(conjuncts []residue.Residue, container *ir.Method) bool {
	var pos, neg []residue.Binding
	for _, c := range conjuncts {
		if b, ok := c.(residue.Binding); ok {
			if b.Negative {
				neg = append(neg, b)
			} else {
				pos = append(pos, b)
			}
		}
	}
	for _, b := range pos {
		for _, n := range neg {
			if b.Var == n.Var {
				continue
			}
			if p.analysis.LeadsToContradiction(b.Var, b.Value, n.Var, n.Value, container) {
				return true
			}
		}
	}
	return false
}

func (p *Pass) SetupWeaving() error {
	p.rounds++
	log.Debugf("mustalias: reweaving round %d", p.rounds)
	return nil
}

func (p *Pass) TearDownWeaving() error {
	p.analysis.Reset()
	return nil
}
