package analyzer

import (
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// GraphVisitEdgesFiltered visits all nodes reachable from roots in g in post
// order. Callees for which excluded returns true are not visited.
func GraphVisitEdgesFiltered(g *callgraph.Graph, roots []*ssa.Function, excluded func(*ssa.Function) bool, edge func(*callgraph.Edge) error) error {
	seen := make(map[*callgraph.Node]bool)
	var visit func(n *callgraph.Node) error
	visit = func(n *callgraph.Node) error {
		if seen[n] {
			return nil
		}
		seen[n] = true
		for _, e := range n.Out {
			if excluded(e.Callee.Func) {
				continue
			}
			if err := visit(e.Callee); err != nil {
				return err
			}
			if err := edge(e); err != nil {
				return err
			}
		}
		return nil
	}
	for _, fn := range roots {
		if n := g.Nodes[fn]; n != nil {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reachable returns roots and every function reachable from them.
func Reachable(g *callgraph.Graph, roots []*ssa.Function, excluded func(*ssa.Function) bool) map[*ssa.Function]bool {
	reachable := make(map[*ssa.Function]bool)
	for _, fn := range roots {
		reachable[fn] = true
	}
	GraphVisitEdgesFiltered(g, roots, excluded, func(e *callgraph.Edge) error {
		reachable[e.Callee.Func] = true
		return nil
	})
	return reachable
}
