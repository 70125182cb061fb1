package residue

// Tracker records whether any residue it watches was replaced since the last
// Clear.
type Tracker struct {
	changed bool
}

func (t *Tracker) MarkChanged()  { t.changed = true }
func (t *Tracker) Changed() bool { return t.changed }
func (t *Tracker) Clear()        { t.changed = false }

// Box holds the residue of one advice application.
type Box struct {
	r Residue
	t *Tracker
}

func NewBox(r Residue, t *Tracker) *Box {
	if r == nil {
		r = Always
	}
	return &Box{r: r, t: t}
}

func (b *Box) Get() Residue {
	return b.r
}

// Set stores r and marks the tracker if the value actually differs.
func (b *Box) Set(r Residue) {
	if Equal(b.r, r) {
		return
	}
	b.r = r
	if b.t != nil {
		b.t.MarkChanged()
	}
}

// Walk calls fn for r and every residue nested in it, parents first. Walk
// descends through the current form of Optimized wrappers only.
func Walk(r Residue, fn func(Residue) bool) {
	if !fn(r) {
		return
	}
	switch r := r.(type) {
	case Optimized:
		Walk(r.Current, fn)
	case And:
		Walk(r.L, fn)
		Walk(r.R, fn)
	case Or:
		Walk(r.L, fn)
		Walk(r.R, fn)
	case Not:
		Walk(r.R, fn)
	}
}

// Names returns the leaf names a runtime state must provide to evaluate r.
func Names(r Residue) []string {
	seen := make(map[string]bool)
	var names []string
	Walk(r, func(r Residue) bool {
		switch r.(type) {
		case Test, Binding:
			if n := r.String(); !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
		return true
	})
	return names
}

// Bindings returns every variable binding in r.
func Bindings(r Residue) []Binding {
	var bs []Binding
	Walk(r, func(r Residue) bool {
		if b, ok := r.(Binding); ok {
			bs = append(bs, b)
		}
		return true
	})
	return bs
}

// Conjuncts flattens the top level conjunction of r.
func Conjuncts(r Residue) []Residue {
	r = Current(r)
	if a, ok := r.(And); ok {
		return append(Conjuncts(a.L), Conjuncts(a.R)...)
	}
	return []Residue{r}
}
