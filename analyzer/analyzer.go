// Package analyzer runs the whole pipeline: it loads Go packages, builds
// SSA, matches the configured aspects, runs the pointer analysis that the
// reweaving passes need and weaves.
package analyzer

import (
	"fmt"
	"go/token"
	"sort"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/config"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/message"
	"github.com/o2lab/reweave/pass/mustalias"
	"github.com/o2lab/reweave/pointer"
	"github.com/o2lab/reweave/preprocessor"
	"github.com/o2lab/reweave/residue"
	"github.com/o2lab/reweave/weaver"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/packages"
	gopointer "golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

type AnalyzerConfig struct {
	Paths  []string
	Config *config.Config
	// Colors turns on colored diagnostics.
	Colors bool

	program      *ssa.Program
	packages     []*ssa.Package
	ptaResult    *gopointer.Result
	preprocessor *preprocessor.Preprocessor
	weaver       *weaver.Weaver
	messages     *message.Queue
	testOutput   map[token.Position][]string
}

func NewAnalyzerConfig(paths []string, cfg *config.Config) *AnalyzerConfig {
	if cfg == nil {
		cfg = config.Default()
	}
	return &AnalyzerConfig{
		Paths:    paths,
		Config:   cfg,
		messages: &message.Queue{},
	}
}

// SetTestOutput makes Run record every woven application and reported
// message in out.
func (a *AnalyzerConfig) SetTestOutput(out map[token.Position][]string) {
	a.testOutput = out
}

func (a *AnalyzerConfig) Run() error {
	log.Infof("Loading packages %s", a.Paths)
	initial, err := packages.Load(&packages.Config{
		Mode:  packages.LoadAllSyntax,
		Tests: false,
	}, a.Paths...)
	if err != nil {
		return fmt.Errorf("loading packages: %v", err)
	}
	if packages.PrintErrors(initial) > 0 {
		return fmt.Errorf("errors in loaded packages")
	}
	if len(initial) == 0 {
		return fmt.Errorf("package list empty")
	}
	for _, pkg := range initial {
		log.Info(pkg.ID, pkg.GoFiles)
	}
	log.Infoln("Packages loaded. Building SSA...")
	var pkgs []*ssa.Package
	a.program, pkgs = ssautil.AllPackages(initial, 0)
	a.program.Build()
	for _, p := range pkgs {
		if p != nil {
			a.packages = append(a.packages, p)
		}
	}
	log.Infof("SSA built for %d packages", len(a.program.AllPackages()))

	a.preprocessor = preprocessor.NewPreprocessor(a.program, a.Config.ExcludePkgs)
	a.preprocessor.Run(a.packages)

	var include func(*ssa.Function) bool
	if a.Config.ReachableOnly {
		mains, err := mainPackages(a.packages)
		if err != nil {
			return err
		}
		reachable := Reachable(cha.CallGraph(a.program), roots(mains), a.excluded)
		log.Infof("%d functions reachable from main", len(reachable))
		include = func(fn *ssa.Function) bool {
			return reachable[fn]
		}
	}
	if err := a.preprocessor.Match(a.Config.Aspects, include); err != nil {
		return err
	}

	info := a.preprocessor.Info
	ctx := weaver.NewContext(info, a.Config.Options, message.NewConsole(a.Colors, a.messages))
	for _, name := range a.Config.Reweaving {
		switch name {
		case config.MustAlias:
			p, err := a.mustAliasPass(info)
			if err != nil {
				return err
			}
			ctx.Passes.Register(p)
		}
	}

	a.weaver = weaver.New(ctx)
	if err := a.weaver.Weave(); err != nil {
		return err
	}
	a.weaver.DoInlining()

	a.record()
	log.Infof("Woven %d advice applications in %d rounds", len(a.Woven()), a.weaver.Rounds())
	if a.messages.HasErrors() {
		return fmt.Errorf("declared errors reported")
	}
	return nil
}

func (a *AnalyzerConfig) excluded(fn *ssa.Function) bool {
	return fn.Pkg != nil && a.preprocessor.IsExcluded(fn.Pkg)
}

func (a *AnalyzerConfig) mustAliasPass(info *aspectinfo.Info) (*mustalias.Pass, error) {
	mains, err := mainPackages(a.packages)
	if err != nil {
		return nil, err
	}
	ptaConfig := &gopointer.Config{
		Mains:          mains,
		BuildCallGraph: false,
	}
	n := pointer.AddQueries(ptaConfig, a.preprocessor.Values)
	log.Infof("PTA with %d queries", n)
	a.ptaResult, err = gopointer.Analyze(ptaConfig)
	if err != nil {
		return nil, fmt.Errorf("pointer analysis: %v", err)
	}
	log.Infoln("PTA done")
	oracle := pointer.NewSSAOracle(a.ptaResult, a.preprocessor.Values)
	registry := mustalias.BuildRegistry(info, oracle)
	return mustalias.NewPass(info, mustalias.NewAnalysis(oracle, registry)), nil
}

// Woven lists the advice applications left in the final weave.
func (a *AnalyzerConfig) Woven() []aspectinfo.Pair {
	var woven []aspectinfo.Pair
	for _, p := range a.preprocessor.Info.Applications() {
		if residue.NeverMatches(p.Appl.Residue()) {
			continue
		}
		woven = append(woven, p)
	}
	return woven
}

func (a *AnalyzerConfig) Weaver() *weaver.Weaver {
	return a.weaver
}

func (a *AnalyzerConfig) Program() *ir.Program {
	return a.preprocessor.IR
}

func (a *AnalyzerConfig) Info() *aspectinfo.Info {
	return a.preprocessor.Info
}

func (a *AnalyzerConfig) Messages() []message.Message {
	return a.messages.Messages()
}

// Position is where appl is reported: its call site, or the function for
// execution join points.
func Position(prog *ir.Program, appl *aspectinfo.AdviceApplication) token.Position {
	if appl.Target != 0 {
		return prog.Position(prog.Unit(appl.Target).Pos)
	}
	return prog.Position(appl.Method.Pos)
}

func (a *AnalyzerConfig) record() {
	prog := a.Program()
	for _, p := range a.Woven() {
		msg := fmt.Sprintf("%s %s", p.Appl.Advice.Kind, p.Appl.Advice)
		if r := p.Appl.Residue(); !residue.AlwaysMatches(r) {
			msg += " if " + r.String()
		}
		pos := Position(prog, p.Appl)
		log.Debugf("%s: %s", pos, msg)
		if a.testOutput != nil && pos.IsValid() {
			a.testOutput[pos] = append(a.testOutput[pos], msg)
		}
	}
	if a.testOutput == nil {
		return
	}
	for _, m := range a.messages.Messages() {
		if m.Pos.IsValid() {
			a.testOutput[m.Pos] = append(a.testOutput[m.Pos], m.Severity.String()+": "+m.Text)
		}
	}
}

func mainPackages(pkgs []*ssa.Package) ([]*ssa.Package, error) {
	var mains []*ssa.Package
	for _, p := range pkgs {
		if p != nil && p.Pkg.Name() == "main" && p.Func("main") != nil {
			mains = append(mains, p)
		}
	}
	if len(mains) == 0 {
		return nil, fmt.Errorf("no main packages")
	}
	return mains, nil
}

func roots(mains []*ssa.Package) []*ssa.Function {
	var fns []*ssa.Function
	for _, p := range mains {
		fns = append(fns, p.Func("init"), p.Func("main"))
	}
	sort.Slice(fns, func(i, j int) bool {
		return fns[i].String() < fns[j].String()
	})
	return fns
}
