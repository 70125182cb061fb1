package weaver

import (
	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/message"
	"github.com/o2lab/reweave/pass"
)

// Context is everything one weaving run works on. The caches that must be
// dropped between reweaving rounds all hang off it, so Reset can clear them
// together.
type Context struct {
	Program    *ir.Program
	Info       *aspectinfo.Info
	Options    Options
	Sink       message.Sink
	State      *State
	Around     *AroundWeaver
	Inliner    *AdviceInliner
	Passes     *pass.Registry
	Transforms []Transform
}

func NewContext(info *aspectinfo.Info, opts Options, sink message.Sink) *Context {
	prog := info.Program()
	if sink == nil {
		sink = &message.Queue{}
	}
	return &Context{
		Program:    prog,
		Info:       info,
		Options:    opts,
		Sink:       sink,
		State:      NewState(),
		Around:     NewAroundWeaver(prog),
		Inliner:    NewAdviceInliner(prog, info),
		Passes:     &pass.Registry{},
		Transforms: []Transform{NopEliminator{}},
	}
}

func (c *Context) Reset() {
	c.State.Reset()
	c.Around.Reset()
	c.Inliner.Reset()
}

// State records what the current round has woven.
type State struct {
	sjps  map[*aspectinfo.AdviceApplication]string
	front map[ir.UnitID]int
	back  map[ir.UnitID]int
	woven map[*ir.Method]bool
}

func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

func (s *State) Reset() {
	s.sjps = make(map[*aspectinfo.AdviceApplication]string)
	s.front = make(map[ir.UnitID]int)
	s.back = make(map[ir.UnitID]int)
	s.woven = make(map[*ir.Method]bool)
}

// StaticJoinPoint returns the name of the static join point made for appl in
// this round.
func (s *State) StaticJoinPoint(appl *aspectinfo.AdviceApplication) (string, bool) {
	name, ok := s.sjps[appl]
	return name, ok
}

func (s *State) setStaticJoinPoint(appl *aspectinfo.AdviceApplication, name string) {
	s.sjps[appl] = name
}

func (s *State) MarkWoven(m *ir.Method) {
	s.woven[m] = true
}

func (s *State) IsWoven(m *ir.Method) bool {
	return s.woven[m]
}

func (s *State) NumWoven() int {
	return len(s.woven)
}
