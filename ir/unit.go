package ir

import (
	"fmt"
	"go/token"
)

type Op int

const (
	OpNop Op = iota
	OpStmt
	OpCall
	OpInvokeThis
	OpInvokeSuper
	OpReturn
	OpGuard
	OpAdviceCall
	OpAroundCall
)

var opNames = [...]string{
	OpNop:         "nop",
	OpStmt:        "stmt",
	OpCall:        "call",
	OpInvokeThis:  "this",
	OpInvokeSuper: "super",
	OpReturn:      "return",
	OpGuard:       "guard",
	OpAdviceCall:  "advice",
	OpAroundCall:  "around",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// UnitID is a handle into an Arena. The zero handle never names a unit.
type UnitID int32

// Unit is the smallest rewritable element of a body.
type Unit struct {
	Op     Op
	Text   string
	Pos    token.Pos
	Callee *Method
}

func (u Unit) String() string {
	if u.Text == "" {
		return u.Op.String()
	}
	return u.Op.String() + " " + u.Text
}

// Arena owns every unit of a program. Handles are never reused, so a handle
// taken before a rewrite still names the same record afterwards.
type Arena struct {
	units []Unit
}

func NewArena() *Arena {
	return &Arena{units: make([]Unit, 1)}
}

func (a *Arena) New(u Unit) UnitID {
	a.units = append(a.units, u)
	return UnitID(len(a.units) - 1)
}

// Unit returns the record for id so that it can be mutated in place.
func (a *Arena) Unit(id UnitID) *Unit {
	if id <= 0 || int(id) >= len(a.units) {
		panic(fmt.Sprintf("ir: invalid unit handle %d", id))
	}
	return &a.units[id]
}

func (a *Arena) Clone(id UnitID) UnitID {
	return a.New(*a.Unit(id))
}

func (a *Arena) Len() int {
	return len(a.units) - 1
}
