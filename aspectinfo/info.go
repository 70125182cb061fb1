package aspectinfo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/residue"
	log "github.com/sirupsen/logrus"
	"github.com/twmb/algoimpl/go/graph"
)

// Pair is one entry of the flat application sequence.
type Pair struct {
	Method *ir.Method
	Appl   *AdviceApplication
}

// Info is the global aspect information of one compilation.
type Info struct {
	prog       *ir.Program
	classes    []*ir.Class
	weavable   map[*ir.Class]bool
	aspects    []*Aspect
	lists      map[*ir.Method]*MethodAdviceList
	precedence [][2]*Aspect
	residues   residue.Tracker
	pairs      []Pair
}

func NewInfo(prog *ir.Program) *Info {
	return &Info{
		prog:     prog,
		weavable: make(map[*ir.Class]bool),
		lists:    make(map[*ir.Method]*MethodAdviceList),
	}
}

func (info *Info) Program() *ir.Program {
	return info.prog
}

func (info *Info) AddWeavableClass(cl *ir.Class) {
	if info.weavable[cl] {
		return
	}
	info.weavable[cl] = true
	info.classes = append(info.classes, cl)
	info.pairs = nil
}

func (info *Info) WeavableClasses() []*ir.Class {
	return info.classes
}

// AddAspect registers a, whose advice bodies are themselves weavable.
func (info *Info) AddAspect(a *Aspect) {
	info.aspects = append(info.aspects, a)
	info.AddWeavableClass(a.Class)
}

func (info *Info) Aspects() []*Aspect {
	return info.aspects
}

func (info *Info) AdviceDecls() []*AdviceDecl {
	var decls []*AdviceDecl
	for _, a := range info.aspects {
		decls = append(decls, a.Advice...)
	}
	return decls
}

// Apply records that decl applies at a join point of kind in method.
func (info *Info) Apply(decl *AdviceDecl, method *ir.Method, kind JoinPointKind, target ir.UnitID, r residue.Residue) *AdviceApplication {
	appl := &AdviceApplication{
		Advice: decl,
		Method: method,
		Kind:   kind,
		Target: target,
		box:    residue.NewBox(r, &info.residues),
	}
	info.AdviceList(method).Add(appl)
	info.pairs = nil
	log.Debugf("apply %s", appl)
	return appl
}

// AdviceList returns the advice list of m, creating an empty one on demand.
func (info *Info) AdviceList(m *ir.Method) *MethodAdviceList {
	l, ok := info.lists[m]
	if !ok {
		l = &MethodAdviceList{}
		info.lists[m] = l
	}
	return l
}

// Applications returns every advice application of every weavable method
// in class, method and list order.
func (info *Info) Applications() []Pair {
	if info.pairs != nil {
		return info.pairs
	}
	pairs := []Pair{}
	for _, cl := range info.classes {
		for _, m := range cl.Methods {
			l, ok := info.lists[m]
			if !ok {
				continue
			}
			for _, a := range l.AllAdvice() {
				pairs = append(pairs, Pair{Method: m, Appl: a})
			}
		}
	}
	info.pairs = pairs
	return pairs
}

// Residues tracks changes to the residue of any application.
func (info *Info) Residues() *residue.Tracker {
	return &info.residues
}

// DeclarePrecedence makes advice of higher run before advice of lower at
// shared join points.
func (info *Info) DeclarePrecedence(higher, lower *Aspect) {
	info.precedence = append(info.precedence, [2]*Aspect{higher, lower})
}

// OrderAdvice sorts every advice list by aspect precedence. Aspects with no
// declared relation keep their registration order.
func (info *Info) OrderAdvice() error {
	g := graph.New(graph.Directed)
	nodes := make(map[*Aspect]graph.Node, len(info.aspects))
	// The sort emits unrelated nodes in reverse creation order.
	for i := len(info.aspects) - 1; i >= 0; i-- {
		a := info.aspects[i]
		n := g.MakeNode()
		*n.Value = a
		nodes[a] = n
	}
	for _, p := range info.precedence {
		if p[0] == p[1] {
			return fmt.Errorf("aspect %s declared to precede itself", p[0].Name)
		}
		from, ok1 := nodes[p[0]]
		to, ok2 := nodes[p[1]]
		if !ok1 || !ok2 {
			return fmt.Errorf("precedence between unregistered aspects %s and %s", p[0].Name, p[1].Name)
		}
		if err := g.MakeEdge(from, to); err != nil {
			return err
		}
	}
	for _, scc := range g.StronglyConnectedComponents() {
		if len(scc) > 1 {
			var names []string
			for _, n := range scc {
				names = append(names, (*n.Value).(*Aspect).Name)
			}
			sort.Strings(names)
			return fmt.Errorf("circular aspect precedence: %s", strings.Join(names, ", "))
		}
	}
	rank := make(map[*Aspect]int, len(info.aspects))
	for i, n := range g.TopologicalSort() {
		rank[(*n.Value).(*Aspect)] = i
	}
	less := func(list []*AdviceApplication) func(i, j int) bool {
		return func(i, j int) bool {
			return rank[list[i].Advice.Aspect] < rank[list[j].Advice.Aspect]
		}
	}
	for _, l := range info.lists {
		for _, group := range l.groups() {
			sort.SliceStable(group, less(group))
		}
	}
	info.pairs = nil
	return nil
}
