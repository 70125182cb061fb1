package mustalias

import (
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/pointer"
	log "github.com/sirupsen/logrus"
)

// Analysis decides whether a positive binding can only ever occur together
// with an object that an existing negative binding rules out.
type Analysis struct {
	oracle   pointer.Oracle
	registry *Registry
	pts      map[pointer.Local]*pointer.Set
	unknown  map[pointer.Local]bool
}

func NewAnalysis(oracle pointer.Oracle, registry *Registry) *Analysis {
	return &Analysis{
		oracle:   oracle,
		registry: registry,
		pts:      make(map[pointer.Local]*pointer.Set),
		unknown:  make(map[pointer.Local]bool),
	}
}

func (a *Analysis) reachingObjects(v pointer.Local) (*pointer.Set, bool) {
	if a.unknown[v] {
		return nil, false
	}
	s, ok := a.pts[v]
	if !ok {
		if s, ok = a.oracle.ReachingObjects(v); !ok {
			a.unknown[v] = true
			return nil, false
		}
		a.pts[v] = s
	}
	return s, true
}

// LeadsToContradiction reports whether binding tmVar to toBind contradicts
// the negative binding negVar != negBinding. That is the case when every
// shadow that may combine both bindings lies in container. Without
// points-to facts for both locals nothing is proven.
func (a *Analysis) LeadsToContradiction(tmVar string, toBind pointer.Local, negVar string, negBinding pointer.Local, container *ir.Method) bool {
	toBindPts, ok := a.reachingObjects(toBind)
	if !ok {
		log.Debugf("no points-to set for %s", toBind)
		return false
	}
	negBindingPts, ok := a.reachingObjects(negBinding)
	if !ok {
		log.Debugf("no points-to set for %s", negBinding)
		return false
	}

	overlaps := make(map[*Shadow]bool)
	for _, g := range a.registry.AllShadowGroups() {
		if g.HasCompatibleBinding(negVar, negBindingPts) && g.HasCompatibleBinding(tmVar, toBindPts) {
			for _, s := range g.AllShadows() {
				overlaps[s] = true
			}
		}
	}
	for s := range overlaps {
		if s.Container != container {
			log.Debugf("%s=%s and %s!=%s meet outside %s in %s", tmVar, toBind, negVar, negBinding, container, s.Container)
			return false
		}
	}
	return true
}

// Reset drops the cached points-to sets.
func (a *Analysis) Reset() {
	a.pts = make(map[pointer.Local]*pointer.Set)
	a.unknown = make(map[pointer.Local]bool)
}
