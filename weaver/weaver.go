// Package weaver rewrites method bodies so that matched join points call
// their advice, and reweaves them as long as a registered analysis asks
// for it.
package weaver

import (
	"fmt"

	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/residue"
	log "github.com/sirupsen/logrus"
)

type Weaver struct {
	ctx      *Context
	gen      AspectCodeGen
	sjp      StaticJoinPoints
	pcg      PointcutCodeGen
	unweaver *Unweaver

	// bindings maps units from before the first weave to the units that
	// currently stand for them; reverse is its inverse.
	bindings map[ir.UnitID]ir.UnitID
	reverse  map[ir.UnitID]ir.UnitID
	rounds   int
}

func New(ctx *Context) *Weaver {
	return NewWithCodeGen(ctx, SingletonCodeGen{Program: ctx.Program})
}

func NewWithCodeGen(ctx *Context, gen AspectCodeGen) *Weaver {
	w := &Weaver{
		ctx:      ctx,
		gen:      gen,
		bindings: make(map[ir.UnitID]ir.UnitID),
		reverse:  make(map[ir.UnitID]ir.UnitID),
	}
	w.sjp = StaticJoinPoints{ctx: ctx}
	w.pcg = PointcutCodeGen{ctx: ctx, rebind: w.Rebind}
	return w
}

func (w *Weaver) Context() *Context {
	return w.ctx
}

// Unweaver returns the snapshot store, or nil if no reweaving took place.
func (w *Weaver) Unweaver() *Unweaver {
	return w.unweaver
}

// Rounds is the number of weave rounds run so far.
func (w *Weaver) Rounds() int {
	return w.rounds
}

func (w *Weaver) UnitBindings() map[ir.UnitID]ir.UnitID {
	return w.bindings
}

// Rebind returns the current version of a unit from before the first weave,
// or u itself if it has none.
func (w *Weaver) Rebind(u ir.UnitID) ir.UnitID {
	if cur, ok := w.bindings[u]; ok {
		return cur
	}
	return u
}

// ReverseRebind returns the unit from before the first weave that u stands
// for, or u itself.
func (w *Weaver) ReverseRebind(u ir.UnitID) ir.UnitID {
	if orig, ok := w.reverse[u]; ok {
		return orig
	}
	return u
}

func (w *Weaver) Weave() error {
	if err := w.WeaveGenerateAspectMethods(); err != nil {
		return err
	}
	if err := w.InlineConstructors(); err != nil {
		return err
	}
	opts := w.ctx.Options
	if opts.OptimizeResidues {
		w.OptimizeResidues()
	}

	if passes := w.ctx.Passes.All(); len(passes) > 0 {
		w.unweaver = NewUnweaver(w.ctx.Program, w.ctx.Info)
		if err := w.unweaver.Save(); err != nil {
			return err
		}
		w.storeBindings()
		if err := w.WeaveAdvice(); err != nil {
			return err
		}
		for _, p := range passes {
			w.ctx.Info.Residues().Clear()
			reweave, err := p.Analyze()
			if err != nil {
				return err
			}
			if w.ctx.Info.Residues().Changed() {
				w.OptimizeResidues()
			}
			if !reweave {
				continue
			}
			w.storeBindings()
			w.ResetForReweaving()
			if err := p.SetupWeaving(); err != nil {
				return err
			}
			if err := w.WeaveAdvice(); err != nil {
				return err
			}
			if err := p.TearDownWeaving(); err != nil {
				return err
			}
		}
		w.storeBindings()
		w.ResetForReweaving()
	}

	if opts.OptimizeResidues {
		w.OptimizeResidues()
	}
	w.ReportMessages()
	w.RemoveDeclareWarnings()
	return w.WeaveAdvice()
}

// storeBindings restores the saved bodies and replaces both binding maps.
func (w *Weaver) storeBindings() {
	bindings := w.unweaver.Restore()
	reverse := make(map[ir.UnitID]ir.UnitID, len(bindings))
	for orig, cur := range bindings {
		if prev, dup := reverse[cur]; dup {
			panic(fmt.Sprintf("weaver: units %d and %d are both bound to %d", prev, orig, cur))
		}
		reverse[cur] = orig
	}
	w.bindings, w.reverse = bindings, reverse
	log.Debugf("stored %d unit bindings", len(bindings))
}

func (w *Weaver) OptimizeResidues() {
	for _, p := range w.ctx.Info.Applications() {
		p.Appl.SetResidue(p.Appl.Residue().Optimize())
	}
}

// ResetForReweaving clears every weaving cache and takes residues and advice
// declarations back to their state before this round.
func (w *Weaver) ResetForReweaving() {
	w.ctx.Reset()
	for _, p := range w.ctx.Info.Applications() {
		p.Appl.SetResidue(p.Appl.Residue().ResetForReweaving())
	}
	for _, d := range w.ctx.Info.AdviceDecls() {
		d.ResetForReweaving()
	}
}

// ReportMessages reports the declare errors and warnings that still match.
func (w *Weaver) ReportMessages() {
	for _, p := range w.ctx.Info.Applications() {
		if !p.Method.IsConcrete() {
			continue
		}
		p.Appl.ReportMessages(w.ctx.Sink, w.ctx.Program)
	}
}

// RemoveDeclareWarnings keeps declare errors and warnings out of the final
// weave unless Options.WeaveDeclareWarning is set.
func (w *Weaver) RemoveDeclareWarnings() {
	if w.ctx.Options.WeaveDeclareWarning {
		return
	}
	for _, p := range w.ctx.Info.Applications() {
		if p.Appl.Advice.IsDeclareMessage() {
			p.Appl.SetResidue(residue.Never)
		}
	}
}

// WeaveAdvice runs one weave round over every weavable class.
func (w *Weaver) WeaveAdvice() error {
	opts := w.ctx.Options
	for _, cl := range w.ctx.Info.WeavableClasses() {
		log.Debugf("--------- STARTING WEAVING OF CLASS >>>>> %s", cl.Name)
		w.sjp.GenStaticJoinPoints(cl)
		if opts.PrintAdviceInfo {
			PrintAdviceInfo(w.ctx.Info, cl)
		}
		if err := w.pcg.WeaveInAspectsPass(cl, 1); err != nil {
			return err
		}
		if err := w.pcg.WeaveInAspectsPass(cl, 2); err != nil {
			return err
		}
		log.Debugf("--------- FINISHED WEAVING OF CLASS >>>>> %s", cl.Name)
	}
	if err := w.pcg.WeaveInAroundAdviceExecutionsPass(); err != nil {
		return err
	}
	if opts.CleanupAfterAdviceWeave {
		w.cleanup()
	}
	w.rounds++
	log.Infof("weave round %d: %d methods woven", w.rounds, w.ctx.State.NumWoven())
	return nil
}

func (w *Weaver) cleanup() {
	for _, cl := range w.ctx.Info.WeavableClasses() {
		for _, m := range cl.Methods {
			if !m.IsConcrete() {
				continue
			}
			for _, t := range w.ctx.Transforms {
				if n := t.Apply(w.ctx.Program, m); n > 0 {
					log.Debugf("%s: %s removed %d units", m, t.Name(), n)
				}
			}
		}
	}
}

// InlineConstructors inlines delegating constructor calls in classes with
// initialization advice, setting shadow points before and after.
func (w *Weaver) InlineConstructors() error {
	sps := NewShadowPointsSetter(w.ctx.Program, w.ctx.Info, w.Rebind)
	ci := NewConstructorInliner(w.ctx.Program, w.ctx.Info)
	for _, cl := range w.ctx.Info.WeavableClasses() {
		if err := sps.SetShadowPointsPass1(cl); err != nil {
			return err
		}
		if err := ci.InlineConstructors(cl); err != nil {
			return err
		}
		if err := sps.SetShadowPointsPass2(cl); err != nil {
			return err
		}
	}
	return nil
}

// WeaveGenerateAspectMethods fills in the stub methods of every aspect.
func (w *Weaver) WeaveGenerateAspectMethods() error {
	log.Debugf("generating extra code in aspects")
	for _, a := range w.ctx.Info.Aspects() {
		if err := w.gen.FillInAspect(a); err != nil {
			return err
		}
	}
	return nil
}

// DoInlining runs the advice inliner if either kind of inlining is enabled.
func (w *Weaver) DoInlining() {
	if w.ctx.Options.AroundInlining || w.ctx.Options.BeforeAfterInlining {
		w.RunInliner()
	}
}

func (w *Weaver) RunInliner() {
	w.ctx.Inliner.Run(w.ctx.Options)
}
