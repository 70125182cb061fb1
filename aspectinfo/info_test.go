package aspectinfo

import (
	"strings"
	"testing"

	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/message"
	"github.com/o2lab/reweave/residue"
)

func setup() (*ir.Program, *Info, *ir.Method) {
	prog := ir.NewProgram(nil)
	info := NewInfo(prog)
	cl := prog.AddClass("main")
	m := cl.AddMethod(&ir.Method{Name: "run", Body: ir.NewBody()})
	prog.Emit(m.Body, ir.Unit{Op: ir.OpCall, Text: "fmt.Println"})
	prog.Emit(m.Body, ir.Unit{Op: ir.OpReturn})
	info.AddWeavableClass(cl)
	return prog, info, m
}

func TestNewAspectHasStubs(t *testing.T) {
	prog := ir.NewProgram(nil)
	a := NewAspect(prog, "Logging")
	if !a.Class.IsAspect {
		t.Error("aspect class not marked as aspect")
	}
	for _, name := range []string{AspectOf, HasAspect} {
		m := a.Class.Method(name)
		if m == nil || m.Kind != ir.AspectStub || m.IsConcrete() {
			t.Errorf("%s: want a bodyless stub, got %+v", name, m)
		}
	}
	d := a.Declare("before0", Before, ir.Unit{Op: ir.OpStmt, Text: "log"})
	if got := prog.Text(d.Method.Body); len(got) != 2 || got[0] != "stmt log" || got[1] != "return" {
		t.Errorf("advice body = %q", got)
	}
}

func TestApplicationsAreFlatAndCached(t *testing.T) {
	prog, info, m := setup()
	a := NewAspect(prog, "A")
	info.AddAspect(a)
	before := a.Declare("before0", Before)
	after := a.Declare("after0", After)
	call := m.Body.Units[0]
	info.Apply(after, m, Call, call, nil)
	info.Apply(before, m, Execution, 0, residue.Test{Name: "t"})

	pairs := info.Applications()
	if len(pairs) != 2 {
		t.Fatalf("len(Applications()) = %d, want 2", len(pairs))
	}
	// Body advice is listed before statement advice.
	if pairs[0].Appl.Advice != before || pairs[1].Appl.Advice != after {
		t.Errorf("application order = %s, %s", pairs[0].Appl, pairs[1].Appl)
	}
	if &info.Applications()[0] != &pairs[0] {
		t.Error("Applications() rebuilt an unchanged sequence")
	}
	info.Apply(before, m, Call, call, nil)
	if n := len(info.Applications()); n != 3 {
		t.Errorf("after Apply, len(Applications()) = %d, want 3", n)
	}
	if got := info.AdviceList(m).Pass(1); len(got) != 3 {
		t.Errorf("pass 1 holds %d applications, want 3", len(got))
	}
}

func TestSetResidueMarksTracker(t *testing.T) {
	prog, info, m := setup()
	a := NewAspect(prog, "A")
	info.AddAspect(a)
	appl := info.Apply(a.Declare("before0", Before), m, Execution, 0, residue.Test{Name: "t"})
	info.Residues().Clear()
	appl.SetResidue(residue.Test{Name: "t"})
	if info.Residues().Changed() {
		t.Error("equal residue marked as changed")
	}
	appl.SetResidue(residue.Never)
	if !info.Residues().Changed() {
		t.Error("new residue not marked as changed")
	}
}

func TestOrderAdvice(t *testing.T) {
	prog, info, m := setup()
	first := NewAspect(prog, "First")
	second := NewAspect(prog, "Second")
	info.AddAspect(first)
	info.AddAspect(second)
	call := m.Body.Units[0]
	low := info.Apply(first.Declare("before0", Before), m, Call, call, nil)
	high := info.Apply(second.Declare("before0", Before), m, Call, call, nil)

	info.DeclarePrecedence(second, first)
	if err := info.OrderAdvice(); err != nil {
		t.Fatal(err)
	}
	got := info.AdviceList(m).StmtAdvice
	if got[0] != high || got[1] != low {
		t.Errorf("StmtAdvice = [%s %s], want Second first", got[0], got[1])
	}

	info.DeclarePrecedence(first, second)
	err := info.OrderAdvice()
	if err == nil || !strings.Contains(err.Error(), "circular") {
		t.Errorf("OrderAdvice with a cycle = %v, want a circular precedence error", err)
	}
}

func TestReportMessages(t *testing.T) {
	prog, info, m := setup()
	a := NewAspect(prog, "Policy")
	info.AddAspect(a)
	warn := a.DeclareMessage("noPrint", message.Warning, "do not print")
	appl := info.Apply(warn, m, Call, m.Body.Units[0], nil)

	var q message.Queue
	appl.ReportMessages(&q, prog)
	if q.Len() != 1 || q.Messages()[0].Text != "do not print" {
		t.Fatalf("messages = %v", q.Messages())
	}
	appl.SetResidue(residue.Never)
	appl.ReportMessages(&q, prog)
	if q.Len() != 1 {
		t.Errorf("never-matching declare warning was reported")
	}
}

func TestApplicationNumbers(t *testing.T) {
	prog := ir.NewProgram(nil)
	d := NewAspect(prog, "A").Declare("before0", Before)
	d.NextApplicationNumber()
	if n := d.NextApplicationNumber(); n != 2 {
		t.Errorf("second number = %d, want 2", n)
	}
	d.ResetForReweaving()
	if n := d.NextApplicationNumber(); n != 1 {
		t.Errorf("number after reset = %d, want 1", n)
	}
}
