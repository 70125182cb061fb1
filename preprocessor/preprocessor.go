// Package preprocessor turns SSA functions into weavable methods and
// matches configured advice against them.
package preprocessor

import (
	"go/types"
	"strings"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/pointer"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa"
)

type Preprocessor struct {
	program     *ssa.Program
	ExcludedPkg map[string]bool

	IR   *ir.Program
	Info *aspectinfo.Info
	// Values maps every local that a residue may bind to its SSA value.
	Values map[pointer.Local]ssa.Value

	classes map[*ssa.Package]*ir.Class
	methods map[*ssa.Function]*ir.Method
	funcs   []*ssa.Function
	calls   map[ir.UnitID]*ssa.Call
}

func NewPreprocessor(prog *ssa.Program, excluded []string) *Preprocessor {
	excludedPkg := make(map[string]bool)
	for _, pkg := range excluded {
		excludedPkg[pkg] = true
	}
	irProg := ir.NewProgram(prog.Fset)
	return &Preprocessor{
		program:     prog,
		ExcludedPkg: excludedPkg,
		IR:          irProg,
		Info:        aspectinfo.NewInfo(irProg),
		Values:      make(map[pointer.Local]ssa.Value),
		classes:     make(map[*ssa.Package]*ir.Class),
		methods:     make(map[*ssa.Function]*ir.Method),
		calls:       make(map[ir.UnitID]*ssa.Call),
	}
}

// IsExcluded reports whether the first element of the import path of pkg
// is excluded.
func (p *Preprocessor) IsExcluded(pkg *ssa.Package) bool {
	if pkg == nil {
		return true
	}
	root := strings.Split(pkg.Pkg.Path(), "/")[0]
	return p.ExcludedPkg[root]
}

// Run translates every function of packages into a method of the class
// standing for its package.
func (p *Preprocessor) Run(packages []*ssa.Package) {
	log.Debugln("Preprocessing...")
	for _, pkg := range packages {
		if p.IsExcluded(pkg) {
			log.Debugf("Exclude pkg %s", pkg)
			continue
		}
		log.Debugf("Preprocessing %s", pkg)
		for _, name := range memberNames(pkg) {
			switch member := pkg.Members[name].(type) {
			case *ssa.Function:
				p.visitFunction(member)
			case *ssa.Type:
				// For a named type, we visit all its methods.
				if named, ok := member.Type().(*types.Named); ok {
					for i := 0; i < named.NumMethods(); i++ {
						p.visitFunction(p.program.FuncValue(named.Method(i)))
					}
				}
			}
		}
	}
	log.Infof("preprocessed %d functions into %d classes", len(p.funcs), len(p.classes))
}

func (p *Preprocessor) class(pkg *ssa.Package) *ir.Class {
	cl, ok := p.classes[pkg]
	if !ok {
		cl = p.IR.AddClass(pkg.Pkg.Path())
		p.classes[pkg] = cl
		p.Info.AddWeavableClass(cl)
	}
	return cl
}

func (p *Preprocessor) visitFunction(function *ssa.Function) {
	if function == nil || p.methods[function] != nil {
		return
	}
	// Skip external functions.
	if function.Blocks == nil || function.Pkg == nil {
		return
	}
	log.Debugf("visiting %s: %s", function, function.Type())

	m := p.class(function.Pkg).AddMethod(&ir.Method{
		Name: function.RelString(function.Pkg.Pkg),
		Body: ir.NewBody(),
		Pos:  function.Pos(),
	})
	p.methods[function] = m
	p.funcs = append(p.funcs, function)
	p.translate(m, function)

	for _, anonFn := range function.AnonFuncs {
		p.visitFunction(anonFn)
	}
}

// Functions lists the translated functions in translation order.
func (p *Preprocessor) Functions() []*ssa.Function {
	return p.funcs
}

func (p *Preprocessor) Method(function *ssa.Function) *ir.Method {
	return p.methods[function]
}
