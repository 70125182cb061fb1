package ir

import (
	"go/token"
	"strings"
)

type MethodKind int

const (
	Plain MethodKind = iota
	Constructor
	StaticInit
	Advice
	AspectStub
)

const StaticInitName = "<clinit>"

type Method struct {
	Name  string
	Kind  MethodKind
	Class *Class
	Body  *Body
	Pos   token.Pos
}

// IsConcrete reports whether m has a body that can be woven.
func (m *Method) IsConcrete() bool {
	return m.Body != nil
}

func (m *Method) String() string {
	if m.Class == nil {
		return m.Name
	}
	return m.Class.Name + "." + m.Name
}

type Class struct {
	Name     string
	Methods  []*Method
	IsAspect bool
}

func (c *Class) AddMethod(m *Method) *Method {
	m.Class = c
	c.Methods = append(c.Methods, m)
	return m
}

func (c *Class) Method(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (c *Class) Constructors() []*Method {
	var ctors []*Method
	for _, m := range c.Methods {
		if m.Kind == Constructor {
			ctors = append(ctors, m)
		}
	}
	return ctors
}

// StaticInitializer returns the class initializer of c, or nil.
func (c *Class) StaticInitializer() *Method {
	for _, m := range c.Methods {
		if m.Kind == StaticInit {
			return m
		}
	}
	return nil
}

type Program struct {
	Fset    *token.FileSet
	Arena   *Arena
	Classes []*Class
}

func NewProgram(fset *token.FileSet) *Program {
	return &Program{
		Fset:  fset,
		Arena: NewArena(),
	}
}

func (p *Program) AddClass(name string) *Class {
	c := &Class{Name: name}
	p.Classes = append(p.Classes, c)
	return c
}

func (p *Program) Class(name string) *Class {
	for _, c := range p.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Emit allocates u and appends it to b.
func (p *Program) Emit(b *Body, u Unit) UnitID {
	id := p.Arena.New(u)
	b.Append(id)
	return id
}

func (p *Program) Unit(id UnitID) *Unit {
	return p.Arena.Unit(id)
}

// Text renders every unit of b on its own line.
func (p *Program) Text(b *Body) []string {
	if b == nil {
		return nil
	}
	lines := make([]string, len(b.Units))
	for i, id := range b.Units {
		lines[i] = p.Arena.Unit(id).String()
	}
	return lines
}

func (p *Program) Dump(m *Method) string {
	var sb strings.Builder
	sb.WriteString(m.String())
	sb.WriteString(":\n")
	for _, line := range p.Text(m.Body) {
		sb.WriteString("\t")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (p *Program) Position(pos token.Pos) token.Position {
	if p.Fset == nil || !pos.IsValid() {
		return token.Position{}
	}
	return p.Fset.Position(pos)
}
