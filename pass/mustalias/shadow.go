package mustalias

import (
	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/pointer"
	"github.com/o2lab/reweave/residue"
)

// Shadow is one matched join point together with the objects its
// tracematch variables may be bound to. Variables in Unknown may be bound
// to any object.
type Shadow struct {
	Container *ir.Method
	Unit      ir.UnitID
	Bindings  map[string]*pointer.Set
	Unknown   map[string]bool
}

// ShadowGroup holds shadows that can complete a match together.
type ShadowGroup struct {
	Name    string
	shadows []*Shadow
}

func (g *ShadowGroup) Add(s *Shadow) {
	g.shadows = append(g.shadows, s)
}

func (g *ShadowGroup) AllShadows() []*Shadow {
	return g.shadows
}

// HasCompatibleBinding reports whether some shadow of g may bind v to one
// of the objects in pts.
func (g *ShadowGroup) HasCompatibleBinding(v string, pts *pointer.Set) bool {
	for _, s := range g.shadows {
		if s.Unknown[v] || s.Bindings[v].Intersects(pts) {
			return true
		}
	}
	return false
}

type Registry struct {
	groups []*ShadowGroup
}

func (r *Registry) Add(g *ShadowGroup) {
	r.groups = append(r.groups, g)
}

func (r *Registry) AllShadowGroups() []*ShadowGroup {
	return r.groups
}

// BuildRegistry makes one shadow group per aspect out of the positive
// bindings of its advice applications.
func BuildRegistry(info *aspectinfo.Info, oracle pointer.Oracle) *Registry {
	groups := make(map[*aspectinfo.Aspect]*ShadowGroup)
	r := &Registry{}
	for _, a := range info.Aspects() {
		g := &ShadowGroup{Name: a.Name}
		groups[a] = g
		r.Add(g)
	}
	for _, p := range info.Applications() {
		bindings := make(map[string]*pointer.Set)
		unknown := make(map[string]bool)
		for _, b := range residue.Bindings(p.Appl.Residue()) {
			if b.Negative {
				continue
			}
			if pts, ok := oracle.ReachingObjects(b.Value); ok {
				bindings[b.Var] = pts
			} else {
				unknown[b.Var] = true
			}
		}
		if len(bindings) == 0 && len(unknown) == 0 {
			continue
		}
		g, ok := groups[p.Appl.Advice.Aspect]
		if !ok {
			continue
		}
		g.Add(&Shadow{Container: p.Method, Unit: p.Appl.Target, Bindings: bindings, Unknown: unknown})
	}
	return r
}
