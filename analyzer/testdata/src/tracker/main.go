package main

type T struct{ n int }

func (t *T) Close() { t.n = 0 }

func use(t *T) {}

func check(t *T) {}

func main() { // want "after Tracker.onMain"
	a := &T{}
	use(a) // want "before Tracker.onUse if x=" "before Tracker.alias if y="
	check(a)
	a.Close() // want "warning: closing a T"
}
