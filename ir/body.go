package ir

// Body is the ordered unit sequence of a concrete method.
type Body struct {
	Units []UnitID
}

func NewBody(units ...UnitID) *Body {
	return &Body{Units: append([]UnitID(nil), units...)}
}

func (b *Body) Len() int {
	return len(b.Units)
}

func (b *Body) Index(id UnitID) int {
	for i, u := range b.Units {
		if u == id {
			return i
		}
	}
	return -1
}

func (b *Body) Contains(id UnitID) bool {
	return b.Index(id) >= 0
}

// Insert places ids at position i, shifting the rest of the body back.
func (b *Body) Insert(i int, ids ...UnitID) {
	if i < 0 || i > len(b.Units) {
		panic("ir: insert position out of range")
	}
	units := make([]UnitID, 0, len(b.Units)+len(ids))
	units = append(units, b.Units[:i]...)
	units = append(units, ids...)
	units = append(units, b.Units[i:]...)
	b.Units = units
}

func (b *Body) InsertBefore(at UnitID, ids ...UnitID) bool {
	i := b.Index(at)
	if i < 0 {
		return false
	}
	b.Insert(i, ids...)
	return true
}

func (b *Body) InsertAfter(at UnitID, ids ...UnitID) bool {
	i := b.Index(at)
	if i < 0 {
		return false
	}
	b.Insert(i+1, ids...)
	return true
}

func (b *Body) Append(ids ...UnitID) {
	b.Units = append(b.Units, ids...)
}

func (b *Body) Remove(id UnitID) bool {
	i := b.Index(id)
	if i < 0 {
		return false
	}
	b.Units = append(b.Units[:i], b.Units[i+1:]...)
	return true
}

// Replace swaps the unit at for ids, in order.
func (b *Body) Replace(at UnitID, ids ...UnitID) bool {
	i := b.Index(at)
	if i < 0 {
		return false
	}
	b.Units = append(b.Units[:i], b.Units[i+1:]...)
	b.Insert(i, ids...)
	return true
}

// Filter keeps the units for which keep returns true.
func (b *Body) Filter(keep func(UnitID) bool) int {
	kept := b.Units[:0]
	removed := 0
	for _, u := range b.Units {
		if keep(u) {
			kept = append(kept, u)
		} else {
			removed++
		}
	}
	b.Units = kept
	return removed
}
