package preprocessor

import (
	"fmt"
	"path"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/config"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/message"
	"github.com/o2lab/reweave/residue"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa"
)

var adviceKinds = map[string]aspectinfo.AdviceKind{
	"before": aspectinfo.Before,
	"after":  aspectinfo.After,
	"around": aspectinfo.Around,
}

type declared struct {
	decl *aspectinfo.AdviceDecl
	spec config.AdviceSpec
}

// Match declares the configured aspects and applies their advice to every
// translated function for which include returns true. A nil include
// accepts every function.
func (p *Preprocessor) Match(specs []config.AspectSpec, include func(*ssa.Function) bool) error {
	aspects := make(map[string]*aspectinfo.Aspect)
	var decls []declared
	for _, spec := range specs {
		a := aspectinfo.NewAspect(p.IR, spec.Name)
		p.Info.AddAspect(a)
		aspects[spec.Name] = a
		for _, adv := range spec.Advice {
			decls = append(decls, declared{declare(a, adv), adv})
		}
	}
	for _, spec := range specs {
		for _, lower := range spec.Precedes {
			p.Info.DeclarePrecedence(aspects[spec.Name], aspects[lower])
		}
	}

	n := 0
	for _, d := range decls {
		var err error
		switch pc := d.spec.Pointcut; {
		case pc.Execution != "":
			err = p.matchExecution(d, include)
		case pc.Call != "":
			err = p.matchCalls(d, include)
		case pc.AdviceExecution != "":
			err = p.matchAdviceExecution(d, decls)
		}
		if err != nil {
			return fmt.Errorf("%s: %v", d.decl, err)
		}
		n++
	}
	log.Infof("matched %d pieces of advice: %d applications", n, len(p.Info.Applications()))
	return p.Info.OrderAdvice()
}

func declare(a *aspectinfo.Aspect, spec config.AdviceSpec) *aspectinfo.AdviceDecl {
	switch spec.Kind {
	case "warning":
		return a.DeclareMessage(spec.Name, message.Warning, spec.Message)
	case "error":
		return a.DeclareMessage(spec.Name, message.Error, spec.Message)
	}
	units := make([]ir.Unit, len(spec.Body))
	for i, stmt := range spec.Body {
		units[i] = ir.Unit{Op: ir.OpStmt, Text: stmt}
	}
	return a.Declare(spec.Name, adviceKinds[spec.Kind], units...)
}

func matches(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	if err != nil {
		log.Warnf("bad pointcut pattern %q: %v", pattern, err)
	}
	return ok
}

func (p *Preprocessor) matchExecution(d declared, include func(*ssa.Function) bool) error {
	for _, fn := range p.funcs {
		if include != nil && !include(fn) {
			continue
		}
		if !matches(d.spec.Pointcut.Execution, QualifiedName(fn)) {
			continue
		}
		params := make([]ssa.Value, len(fn.Params))
		for i, v := range fn.Params {
			params[i] = v
		}
		r, err := p.residue(d.spec.Residue, fn, params)
		if err != nil {
			return fmt.Errorf("execution(%s): %v", QualifiedName(fn), err)
		}
		p.Info.Apply(d.decl, p.methods[fn], aspectinfo.Execution, 0, r)
	}
	return nil
}

func (p *Preprocessor) matchCalls(d declared, include func(*ssa.Function) bool) error {
	pc := d.spec.Pointcut
	for _, fn := range p.funcs {
		if include != nil && !include(fn) {
			continue
		}
		if pc.Within != "" && !matches(pc.Within, QualifiedName(fn)) {
			continue
		}
		m := p.methods[fn]
		for _, id := range m.Body.Units {
			call, ok := p.calls[id]
			if !ok || !matches(pc.Call, p.IR.Unit(id).Text) {
				continue
			}
			r, err := p.residue(d.spec.Residue, fn, callArgs(call.Common()))
			if err != nil {
				return fmt.Errorf("call(%s) in %s: %v", p.IR.Unit(id).Text, QualifiedName(fn), err)
			}
			p.Info.Apply(d.decl, m, aspectinfo.Call, id, r)
		}
	}
	return nil
}

// matchAdviceExecution applies d to the advice of other aspects. Advice
// never advises its own aspect.
func (p *Preprocessor) matchAdviceExecution(d declared, decls []declared) error {
	for _, other := range decls {
		target := other.decl
		if target.Method == nil || target.Aspect == d.decl.Aspect {
			continue
		}
		if !matches(d.spec.Pointcut.AdviceExecution, target.String()) {
			continue
		}
		r, err := p.residue(d.spec.Residue, nil, nil)
		if err != nil {
			return fmt.Errorf("adviceexecution(%s): %v", target, err)
		}
		p.Info.Apply(d.decl, target.Method, aspectinfo.AdviceExecution, 0, r)
	}
	return nil
}

// residue builds the dynamic check of spec. Bindings refer to args, which
// are the values of the join point in function.
func (p *Preprocessor) residue(spec *config.ResidueSpec, function *ssa.Function, args []ssa.Value) (residue.Residue, error) {
	if spec == nil {
		return residue.Always, nil
	}
	switch {
	case spec.Always:
		return residue.Always, nil
	case spec.Never:
		return residue.Never, nil
	case spec.Test != "":
		return residue.Test{Name: spec.Test}, nil
	case spec.Not != nil:
		r, err := p.residue(spec.Not, function, args)
		if err != nil {
			return nil, err
		}
		return residue.Not{R: r}, nil
	case spec.Bind != nil:
		b := spec.Bind
		if b.Arg >= len(args) {
			return nil, fmt.Errorf("bind %s: join point has %d arguments, want argument %d", b.Var, len(args), b.Arg)
		}
		return residue.Binding{Var: b.Var, Value: p.local(function, args[b.Arg]), Negative: b.Negative}, nil
	}
	var rs []residue.Residue
	for _, list := range [][]config.ResidueSpec{spec.And, spec.Or} {
		for i := range list {
			r, err := p.residue(&list[i], function, args)
			if err != nil {
				return nil, err
			}
			rs = append(rs, r)
		}
	}
	if len(spec.And) > 0 {
		return residue.AndOf(rs...), nil
	}
	return residue.OrOf(rs...), nil
}
