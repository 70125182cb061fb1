package weaver

import (
	"fmt"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	log "github.com/sirupsen/logrus"
)

// ShadowPointsSetter brackets every join point shadow with a pair of nop
// markers. Pass 1 handles execution, call and advice execution shadows.
// Pass 2 runs after constructor inlining and handles the initialization
// shadows, whose extent depends on the inlined code.
type ShadowPointsSetter struct {
	prog   *ir.Program
	info   *aspectinfo.Info
	rebind func(ir.UnitID) ir.UnitID

	bodies map[*ir.Method]aspectinfo.ShadowPoints
	calls  map[ir.UnitID]aspectinfo.ShadowPoints
}

func NewShadowPointsSetter(prog *ir.Program, info *aspectinfo.Info, rebind func(ir.UnitID) ir.UnitID) *ShadowPointsSetter {
	return &ShadowPointsSetter{
		prog:   prog,
		info:   info,
		rebind: rebind,
		bodies: make(map[*ir.Method]aspectinfo.ShadowPoints),
		calls:  make(map[ir.UnitID]aspectinfo.ShadowPoints),
	}
}

func (s *ShadowPointsSetter) nop() ir.UnitID {
	return s.prog.Arena.New(ir.Unit{Op: ir.OpNop})
}

// lastReturn is the index of the trailing return of b, or len(b) if the
// body does not end in one.
func (s *ShadowPointsSetter) lastReturn(b *ir.Body) int {
	if n := b.Len(); n > 0 && s.prog.Unit(b.Units[n-1]).Op == ir.OpReturn {
		return n - 1
	}
	return b.Len()
}

func (s *ShadowPointsSetter) SetShadowPointsPass1(cl *ir.Class) error {
	for _, m := range cl.Methods {
		if !m.IsConcrete() {
			continue
		}
		l := s.info.AdviceList(m)
		for _, appl := range l.BodyAdvice {
			appl.Shadow = s.bodyShadow(m)
		}
		for _, appl := range l.AdviceExecutionAdvice {
			appl.Shadow = s.bodyShadow(m)
		}
		for _, appl := range l.StmtAdvice {
			sp, err := s.callShadow(m, appl.Target)
			if err != nil {
				return err
			}
			appl.Shadow = sp
		}
	}
	return nil
}

func (s *ShadowPointsSetter) bodyShadow(m *ir.Method) aspectinfo.ShadowPoints {
	if sp, ok := s.bodies[m]; ok {
		return sp
	}
	begin, end := s.nop(), s.nop()
	m.Body.Insert(0, begin)
	m.Body.Insert(s.lastReturn(m.Body), end)
	sp := aspectinfo.ShadowPoints{Begin: begin, End: end}
	s.bodies[m] = sp
	log.Debugf("execution shadow of %s: %d..%d", m, begin, end)
	return sp
}

func (s *ShadowPointsSetter) callShadow(m *ir.Method, target ir.UnitID) (aspectinfo.ShadowPoints, error) {
	target = s.rebind(target)
	if sp, ok := s.calls[target]; ok {
		return sp, nil
	}
	begin, end := s.nop(), s.nop()
	if !m.Body.InsertBefore(target, begin) || !m.Body.InsertAfter(target, end) {
		return aspectinfo.ShadowPoints{}, fmt.Errorf("call shadow %d not found in %s", target, m)
	}
	sp := aspectinfo.ShadowPoints{Begin: begin, End: end}
	s.calls[target] = sp
	return sp, nil
}

func (s *ShadowPointsSetter) SetShadowPointsPass2(cl *ir.Class) error {
	for _, m := range cl.Methods {
		if !m.IsConcrete() {
			continue
		}
		l := s.info.AdviceList(m)
		if len(l.PreinitializationAdvice) == 0 && len(l.InitializationAdvice) == 0 {
			continue
		}
		super := -1
		for i, id := range m.Body.Units {
			if s.prog.Unit(id).Op == ir.OpInvokeSuper {
				super = i
				break
			}
		}
		// Initialization starts right after the super call, or after the
		// preinitialization shadow if there is no super call.
		start := super + 1
		if len(l.PreinitializationAdvice) > 0 {
			begin, end := s.nop(), s.nop()
			m.Body.Insert(0, begin)
			if super >= 0 {
				m.Body.Insert(super+1, end)
				start = super + 3
			} else {
				m.Body.Insert(1, end)
				start = 2
			}
			sp := aspectinfo.ShadowPoints{Begin: begin, End: end}
			for _, appl := range l.PreinitializationAdvice {
				appl.Shadow = sp
			}
		}
		if len(l.InitializationAdvice) > 0 {
			begin, end := s.nop(), s.nop()
			m.Body.Insert(start, begin)
			m.Body.Insert(s.lastReturn(m.Body), end)
			sp := aspectinfo.ShadowPoints{Begin: begin, End: end}
			for _, appl := range l.InitializationAdvice {
				appl.Shadow = sp
			}
		}
	}
	return nil
}
