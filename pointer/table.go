package pointer

// Table is an oracle backed by explicitly bound points-to facts.
type Table struct {
	objects map[string]int
	sets    map[Local]*Set
}

func NewTable() *Table {
	return &Table{
		objects: make(map[string]int),
		sets:    make(map[Local]*Set),
	}
}

// Bind records that v may reference each of the named objects.
func (t *Table) Bind(v Local, objects ...string) *Table {
	s, ok := t.sets[v]
	if !ok {
		s = &Set{}
		t.sets[v] = s
	}
	for _, name := range objects {
		s.Insert(t.object(name))
	}
	return t
}

func (t *Table) object(name string) int {
	id, ok := t.objects[name]
	if !ok {
		id = len(t.objects) + 1
		t.objects[name] = id
	}
	return id
}

func (t *Table) ReachingObjects(v Local) (*Set, bool) {
	s, ok := t.sets[v]
	return s, ok
}
