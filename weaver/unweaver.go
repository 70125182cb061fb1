package weaver

import (
	"errors"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	log "github.com/sirupsen/logrus"
)

var ErrAlreadySaved = errors.New("weaver: unweaver snapshot already taken")

type savedUnit struct {
	id   ir.UnitID
	unit ir.Unit
}

// Unweaver keeps a value snapshot of every weavable body from before the
// first weave. Every Restore goes back to that same snapshot, so the
// bindings it returns always start from the original units.
type Unweaver struct {
	prog    *ir.Program
	info    *aspectinfo.Info
	saved   bool
	classes []*ir.Class
	methods map[*ir.Class][]*ir.Method
	bodies  map[*ir.Method][]savedUnit
}

func NewUnweaver(prog *ir.Program, info *aspectinfo.Info) *Unweaver {
	return &Unweaver{
		prog:    prog,
		info:    info,
		methods: make(map[*ir.Class][]*ir.Method),
		bodies:  make(map[*ir.Method][]savedUnit),
	}
}

func (u *Unweaver) Save() error {
	if u.saved {
		return ErrAlreadySaved
	}
	units := 0
	for _, cl := range u.info.WeavableClasses() {
		u.classes = append(u.classes, cl)
		u.methods[cl] = append([]*ir.Method(nil), cl.Methods...)
		for _, m := range cl.Methods {
			if !m.IsConcrete() {
				continue
			}
			body := make([]savedUnit, len(m.Body.Units))
			for i, id := range m.Body.Units {
				body[i] = savedUnit{id: id, unit: *u.prog.Unit(id)}
			}
			u.bodies[m] = body
			units += len(body)
		}
	}
	u.saved = true
	log.Debugf("unweaver: saved %d bodies, %d units", len(u.bodies), units)
	return nil
}

// Restore reinstalls fresh copies of the saved bodies and class method sets.
// It returns, for every saved unit, the unit that now stands for it.
func (u *Unweaver) Restore() map[ir.UnitID]ir.UnitID {
	if !u.saved {
		panic("weaver: restore before save")
	}
	bindings := make(map[ir.UnitID]ir.UnitID)
	for _, cl := range u.classes {
		if n := len(cl.Methods) - len(u.methods[cl]); n > 0 {
			log.Debugf("unweaver: dropping %d methods added to %s", n, cl.Name)
		}
		cl.Methods = append([]*ir.Method(nil), u.methods[cl]...)
		for _, m := range cl.Methods {
			saved, ok := u.bodies[m]
			if !ok {
				continue
			}
			body := ir.NewBody()
			for _, s := range saved {
				id := u.prog.Arena.New(s.unit)
				bindings[s.id] = id
				body.Append(id)
			}
			m.Body = body
		}
	}
	return bindings
}

// Methods returns the saved weavable methods that have bodies, in class order.
func (u *Unweaver) Methods() []*ir.Method {
	var ms []*ir.Method
	for _, cl := range u.classes {
		for _, m := range u.methods[cl] {
			if _, ok := u.bodies[m]; ok {
				ms = append(ms, m)
			}
		}
	}
	return ms
}

// Saved returns the original units of m as they were saved.
func (u *Unweaver) Saved(m *ir.Method) []ir.UnitID {
	saved := u.bodies[m]
	ids := make([]ir.UnitID, len(saved))
	for i, s := range saved {
		ids[i] = s.id
	}
	return ids
}
