package preprocessor

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/config"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/pointer"
	"github.com/o2lab/reweave/residue"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const src = `package main

type T struct{ n int }

func (t *T) Close() { t.n = 0 }

func use(t *T) {}

func main() {
	a := &T{}
	use(a)
	a.Close()
}
`

func build(t *testing.T, excluded ...string) *Preprocessor {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "main.go", src, 0)
	if err != nil {
		t.Fatal(err)
	}
	conf := &types.Config{Importer: importer.Default()}
	pkg, _, err := ssautil.BuildPackage(conf, fset, types.NewPackage("main", ""), []*ast.File{f}, ssa.SanityCheckFunctions)
	if err != nil {
		t.Fatal(err)
	}
	p := NewPreprocessor(pkg.Prog, excluded)
	p.Run([]*ssa.Package{pkg})
	return p
}

func TestTranslate(t *testing.T) {
	p := build(t)
	cl := p.IR.Class("main")
	if cl == nil {
		t.Fatal("no class for package main")
	}
	for _, name := range []string{"main", "use", "(*T).Close", "init"} {
		if cl.Method(name) == nil {
			t.Errorf("method %s not translated", name)
		}
	}
	text := p.IR.Text(cl.Method("main").Body)
	var calls []string
	for _, line := range text {
		if strings.HasPrefix(line, "call ") {
			calls = append(calls, line)
		}
	}
	if len(calls) != 2 || calls[0] != "call main.use" || calls[1] != "call main.(*T).Close" {
		t.Errorf("calls of main = %q", calls)
	}
	if text[len(text)-1] != "return" {
		t.Errorf("main ends in %q, want a return", text[len(text)-1])
	}
	if got := p.IR.Text(cl.Method("use").Body); len(got) != 1 || got[0] != "return" {
		t.Errorf("use = %q", got)
	}
	if len(p.Info.WeavableClasses()) != 1 {
		t.Errorf("weavable classes = %d, want 1", len(p.Info.WeavableClasses()))
	}
}

func TestExcludedPackage(t *testing.T) {
	p := build(t, "main")
	if len(p.Functions()) != 0 || p.IR.Class("main") != nil {
		t.Errorf("excluded package translated: %d functions", len(p.Functions()))
	}
}

func TestMatch(t *testing.T) {
	p := build(t)
	specs := []config.AspectSpec{{
		Name: "Tracker",
		Advice: []config.AdviceSpec{
			{Name: "onUse", Kind: "before", Pointcut: config.Pointcut{Call: "main.use"},
				Residue: &config.ResidueSpec{Bind: &config.BindSpec{Var: "x", Arg: 0}}},
			{Name: "onMain", Kind: "after", Body: []string{"log()"}, Pointcut: config.Pointcut{Execution: "main.main"}},
			{Name: "closing", Kind: "warning", Message: "close", Pointcut: config.Pointcut{Call: "main.(*T).*", Within: "main.m*"}},
		},
	}, {
		Name:   "Meta",
		Advice: []config.AdviceSpec{{Name: "around0", Kind: "around", Pointcut: config.Pointcut{AdviceExecution: "Tracker.on*"}}},
	}}
	if err := p.Match(specs, nil); err != nil {
		t.Fatal(err)
	}

	byAdvice := make(map[string][]aspectinfo.Pair)
	for _, pair := range p.Info.Applications() {
		byAdvice[pair.Appl.Advice.String()] = append(byAdvice[pair.Appl.Advice.String()], pair)
	}
	if n := len(byAdvice["Tracker.onUse"]); n != 1 {
		t.Fatalf("onUse applied %d times", n)
	}
	use := byAdvice["Tracker.onUse"][0]
	if use.Method.Name != "main" || use.Appl.Kind != aspectinfo.Call || p.IR.Unit(use.Appl.Target).Text != "main.use" {
		t.Errorf("onUse applied at %s", use.Appl)
	}
	b, ok := use.Appl.Residue().(residue.Binding)
	if !ok || b.Var != "x" || b.Value != "main.main:t0" {
		t.Errorf("onUse residue = %s", use.Appl.Residue())
	}
	if _, ok := p.Values[b.Value]; !ok {
		t.Errorf("no ssa value recorded for %s", b.Value)
	}
	if pairs := byAdvice["Tracker.onMain"]; len(pairs) != 1 || pairs[0].Appl.Kind != aspectinfo.Execution {
		t.Errorf("onMain applications = %v", pairs)
	}
	if pairs := byAdvice["Tracker.closing"]; len(pairs) != 1 || !pairs[0].Appl.Advice.IsDeclareMessage() {
		t.Errorf("closing applications = %v", pairs)
	}
	meta := byAdvice["Meta.around0"]
	if len(meta) != 2 {
		t.Fatalf("around0 applied %d times, want once per Tracker advice body", len(meta))
	}
	for _, pair := range meta {
		if pair.Appl.Kind != aspectinfo.AdviceExecution || pair.Method.Kind != ir.Advice {
			t.Errorf("around0 applied at %s", pair.Appl)
		}
	}
}

func TestExecutionBindsParameter(t *testing.T) {
	p := build(t)
	specs := []config.AspectSpec{{
		Name: "Tracker",
		Advice: []config.AdviceSpec{{Name: "onEnter", Kind: "before", Pointcut: config.Pointcut{Execution: "main.*"},
			Residue: &config.ResidueSpec{Not: &config.ResidueSpec{Bind: &config.BindSpec{Var: "x", Arg: 0}}}}},
	}}
	// main and init have no parameters.
	if err := p.Match(specs, func(fn *ssa.Function) bool { return len(fn.Params) > 0 }); err != nil {
		t.Fatal(err)
	}
	got := make(map[string]pointer.Local)
	for _, pair := range p.Info.Applications() {
		not, ok := pair.Appl.Residue().(residue.Not)
		if !ok {
			t.Fatalf("residue of %s = %s", pair.Method, pair.Appl.Residue())
		}
		b := not.R.(residue.Binding)
		got[pair.Method.Name] = b.Value
		if _, ok := p.Values[b.Value].(*ssa.Parameter); !ok {
			t.Errorf("%s is bound to %v, want a parameter", b.Value, p.Values[b.Value])
		}
	}
	want := map[string]pointer.Local{
		"use":        "main.use:t",
		"(*T).Close": "main.(*T).Close:t",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("bound parameters (-want +got):\n%s", diff)
	}
}

func TestBindOutOfRange(t *testing.T) {
	p := build(t)
	specs := []config.AspectSpec{{
		Name: "A",
		Advice: []config.AdviceSpec{{Name: "a", Kind: "before", Pointcut: config.Pointcut{Execution: "main.main"},
			Residue: &config.ResidueSpec{Bind: &config.BindSpec{Var: "x", Arg: 0}}}},
	}}
	err := p.Match(specs, nil)
	if err == nil || !strings.Contains(err.Error(), "has 0 arguments") {
		t.Errorf("Match = %v, want an argument error", err)
	}
}

func TestQualifiedName(t *testing.T) {
	p := build(t)
	var names []string
	for _, fn := range p.Functions() {
		names = append(names, QualifiedName(fn))
	}
	joined := strings.Join(names, " ")
	for _, want := range []string{"main.main", "main.use", "main.(*T).Close"} {
		if !strings.Contains(joined, want) {
			t.Errorf("%s missing from %s", want, joined)
		}
	}
}
