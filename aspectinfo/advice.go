package aspectinfo

import (
	"fmt"

	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/message"
	"github.com/o2lab/reweave/residue"
)

const (
	AspectOf  = "aspectOf"
	HasAspect = "hasAspect"
)

type Aspect struct {
	Name   string
	Class  *ir.Class
	Advice []*AdviceDecl

	prog *ir.Program
}

// NewAspect adds the aspect class to prog. Its instance accessors are stubs
// until code generation fills them in.
func NewAspect(prog *ir.Program, name string) *Aspect {
	cl := prog.AddClass(name)
	cl.IsAspect = true
	cl.AddMethod(&ir.Method{Name: AspectOf, Kind: ir.AspectStub})
	cl.AddMethod(&ir.Method{Name: HasAspect, Kind: ir.AspectStub})
	return &Aspect{Name: name, Class: cl, prog: prog}
}

// Declare adds a piece of advice whose body is made of units.
func (a *Aspect) Declare(name string, kind AdviceKind, units ...ir.Unit) *AdviceDecl {
	m := a.Class.AddMethod(&ir.Method{Name: name, Kind: ir.Advice, Body: ir.NewBody()})
	for _, u := range units {
		a.prog.Emit(m.Body, u)
	}
	a.prog.Emit(m.Body, ir.Unit{Op: ir.OpReturn})
	d := &AdviceDecl{Name: name, Aspect: a, Kind: kind, Method: m}
	a.Advice = append(a.Advice, d)
	return d
}

// DeclareMessage adds a declare error or declare warning. It has no body.
func (a *Aspect) DeclareMessage(name string, sev message.Severity, text string) *AdviceDecl {
	d := &AdviceDecl{Name: name, Aspect: a, Kind: DeclareMessage, Severity: sev, Message: text}
	a.Advice = append(a.Advice, d)
	return d
}

type AdviceDecl struct {
	Name     string
	Aspect   *Aspect
	Kind     AdviceKind
	Severity message.Severity
	Message  string
	Method   *ir.Method

	applications int
}

func (d *AdviceDecl) IsDeclareMessage() bool {
	return d.Kind == DeclareMessage
}

// NextApplicationNumber numbers the applications of d in the current round.
func (d *AdviceDecl) NextApplicationNumber() int {
	d.applications++
	return d.applications
}

func (d *AdviceDecl) ResetForReweaving() {
	d.applications = 0
}

func (d *AdviceDecl) String() string {
	return d.Aspect.Name + "." + d.Name
}

// ShadowPoints bracket a join point shadow inside a body. Both markers are
// nop units; woven code goes strictly between them.
type ShadowPoints struct {
	Begin, End ir.UnitID
}

func (s ShadowPoints) IsSet() bool {
	return s.Begin != 0 && s.End != 0
}

type AdviceApplication struct {
	Advice *AdviceDecl
	Method *ir.Method
	Kind   JoinPointKind
	// Target is the unit the join point is about: the call for call join
	// points, the delegating constructor call for initialization.
	Target ir.UnitID
	Shadow ShadowPoints

	box *residue.Box
}

func (a *AdviceApplication) Residue() residue.Residue {
	return a.box.Get()
}

func (a *AdviceApplication) SetResidue(r residue.Residue) {
	a.box.Set(r)
}

// ReportMessages reports the message of a declare error or warning unless
// its residue can never match.
func (a *AdviceApplication) ReportMessages(sink message.Sink, prog *ir.Program) {
	if !a.Advice.IsDeclareMessage() || residue.NeverMatches(a.Residue()) {
		return
	}
	m := message.Message{Severity: a.Advice.Severity, Text: a.Advice.Message}
	if a.Target != 0 {
		m.Pos = prog.Position(prog.Unit(a.Target).Pos)
	} else {
		m.Pos = prog.Position(a.Method.Pos)
	}
	sink.Report(m)
}

func (a *AdviceApplication) String() string {
	return fmt.Sprintf("%s %s(%s) if %s", a.Advice, a.Kind, a.Method, a.Residue())
}
