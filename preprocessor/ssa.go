package preprocessor

import (
	"fmt"
	"sort"

	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/pointer"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa"
)

func memberNames(pkg *ssa.Package) []string {
	names := make([]string, 0, len(pkg.Members))
	for name := range pkg.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// QualifiedName is the name pointcuts match against: the package name
// followed by the function name relative to its package, as in
// "fmt.Println" or "main.(*T).Close".
func QualifiedName(fn *ssa.Function) string {
	if fn.Pkg == nil {
		return fn.String()
	}
	return fn.Pkg.Pkg.Name() + "." + fn.RelString(fn.Pkg.Pkg)
}

func calleeName(call *ssa.CallCommon) string {
	if fn := call.StaticCallee(); fn != nil {
		return QualifiedName(fn)
	}
	if b, ok := call.Value.(*ssa.Builtin); ok {
		return b.Name()
	}
	if call.IsInvoke() {
		return fmt.Sprintf("(%s).%s", call.Value.Type(), call.Method.Name())
	}
	return call.Value.Name()
}

// callArgs are the arguments of call with the receiver of an interface
// method call first.
func callArgs(call *ssa.CallCommon) []ssa.Value {
	if call.IsInvoke() {
		return append([]ssa.Value{call.Value}, call.Args...)
	}
	return call.Args
}

// translate emits one unit per instruction of function. Returns before the
// last one are kept as statements so that every body ends in exactly one
// return unit.
func (p *Preprocessor) translate(m *ir.Method, function *ssa.Function) {
	var last ssa.Instruction
	for _, block := range function.Blocks {
		for _, instr := range block.Instrs {
			if _, ok := instr.(*ssa.DebugRef); ok {
				continue
			}
			if last != nil {
				p.visitIns(m, last, false)
			}
			last = instr
		}
	}
	if last != nil {
		p.visitIns(m, last, true)
	}
	if n := m.Body.Len(); n == 0 || p.IR.Unit(m.Body.Units[n-1]).Op != ir.OpReturn {
		p.IR.Emit(m.Body, ir.Unit{Op: ir.OpReturn})
	}
}

func (p *Preprocessor) visitIns(m *ir.Method, instruction ssa.Instruction, final bool) {
	switch instr := instruction.(type) {
	case *ssa.Call:
		id := p.IR.Emit(m.Body, ir.Unit{Op: ir.OpCall, Text: calleeName(instr.Common()), Pos: instr.Pos()})
		p.calls[id] = instr
		return
	case *ssa.Return:
		if final {
			text := ""
			for i, r := range instr.Results {
				if i > 0 {
					text += ", "
				}
				text += r.Name()
			}
			p.IR.Emit(m.Body, ir.Unit{Op: ir.OpReturn, Text: text, Pos: instr.Pos()})
			return
		}
	}
	text := instruction.String()
	if v, ok := instruction.(ssa.Value); ok && v.Name() != "" {
		text = v.Name() + " = " + text
	}
	p.IR.Emit(m.Body, ir.Unit{Op: ir.OpStmt, Text: text, Pos: instruction.Pos()})
}

// local names v, a value of function, for the points-to oracle.
func (p *Preprocessor) local(function *ssa.Function, v ssa.Value) pointer.Local {
	l := pointer.Local(QualifiedName(function) + ":" + v.Name())
	if prev, ok := p.Values[l]; ok && prev != v {
		log.Warnf("local %s names both %s and %s", l, prev, v)
	}
	p.Values[l] = v
	return l
}
