package residue

import "testing"

var (
	a = Test{Name: "a"}
	b = Test{Name: "b"}
	x = Binding{Var: "x", Value: "main:p"}
	y = Binding{Var: "y", Value: "main:q", Negative: true}
)

var samples = []Residue{
	Always,
	Never,
	a,
	x,
	And{a, Always},
	And{Always, And{Never, b}},
	Or{Never, a},
	Or{a, Always},
	Not{Not{b}},
	Not{Always},
	And{Or{Never, x}, Not{Not{y}}},
	AndOf(a, b, Always, x),
	OrOf(Never, Never),
	Or{And{a, b}, Not{Never}},
}

// states enumerates every assignment to the leaves of r.
func states(r Residue) []State {
	names := Names(r)
	var out []State
	for bits := 0; bits < 1<<uint(len(names)); bits++ {
		s := make(State)
		for i, n := range names {
			s[n] = bits&(1<<uint(i)) != 0
		}
		out = append(out, s)
	}
	return out
}

func TestOptimizeIdempotent(t *testing.T) {
	for _, r := range samples {
		once := r.Optimize()
		twice := once.Optimize()
		if !Equal(once, twice) {
			t.Errorf("%s: Optimize() = %#v, Optimize().Optimize() = %#v", r, once, twice)
		}
	}
}

func TestOptimizePreservesMeaning(t *testing.T) {
	for _, r := range samples {
		opt := r.Optimize()
		reset := opt.ResetForReweaving()
		again := reset.Optimize()
		for _, s := range states(r) {
			want := r.Eval(s)
			if got := opt.Eval(s); got != want {
				t.Errorf("%s in %v: optimized evaluates to %t, want %t", r, s, got, want)
			}
			if got := reset.Eval(s); got != want {
				t.Errorf("%s in %v: reset evaluates to %t, want %t", r, s, got, want)
			}
			if got := again.Eval(s); got != want {
				t.Errorf("%s in %v: reoptimized evaluates to %t, want %t", r, s, got, want)
			}
		}
	}
}

func TestResetRestoresOriginal(t *testing.T) {
	for _, r := range samples {
		if got := r.Optimize().ResetForReweaving(); !Equal(got, r) {
			t.Errorf("%s: Optimize().ResetForReweaving() = %s, want the original", r, got)
		}
	}
	// An optimized residue that a pass rewrote still resets to what was
	// there before the generation started.
	r := And{a, Always}
	opt := Optimized{Current: Never, Original: r}
	if got := opt.ResetForReweaving(); !Equal(got, r) {
		t.Errorf("reset of rewritten residue = %s, want %s", got, r)
	}
	nested := And{opt, b}
	if got, want := nested.ResetForReweaving(), (And{r, b}); !Equal(got, want) {
		t.Errorf("nested reset = %s, want %s", got, want)
	}
}

func TestSimplification(t *testing.T) {
	tests := []struct {
		in   Residue
		want Residue
	}{
		{And{a, Always}, a},
		{And{Never, a}, Never},
		{Or{Always, a}, Always},
		{Or{Never, a}, a},
		{Not{Always}, Never},
		{Not{Never}, Always},
		{Not{Not{a}}, a},
		{And{a, b}, And{a, b}},
	}
	for _, test := range tests {
		if got := Current(test.in.Optimize()); !Equal(got, test.want) {
			t.Errorf("optimize %s = %s, want %s", test.in, got, test.want)
		}
	}
	if !NeverMatches(And{x, Never}.Optimize()) {
		t.Error("x && false should never match")
	}
	if !AlwaysMatches(Or{x, Always}.Optimize()) {
		t.Error("x || true should always match")
	}
	if AlwaysMatches(a) || NeverMatches(a) {
		t.Error("a dynamic test is neither always nor never")
	}
}

func TestBoxTracksChanges(t *testing.T) {
	var tr Tracker
	box := NewBox(nil, &tr)
	if !AlwaysMatches(box.Get()) {
		t.Fatalf("empty box holds %s, want true", box.Get())
	}
	box.Set(Always)
	if tr.Changed() {
		t.Error("setting an equal residue marked the tracker")
	}
	box.Set(And{a, b})
	if !tr.Changed() {
		t.Error("setting a new residue did not mark the tracker")
	}
	tr.Clear()
	box.Set(And{a, b})
	if tr.Changed() {
		t.Error("setting a structurally equal residue marked the tracker")
	}
}

func TestConjunctsAndBindings(t *testing.T) {
	r := AndOf(x, a, y).Optimize()
	if n := len(Conjuncts(r)); n != 3 {
		t.Errorf("len(Conjuncts(%s)) = %d, want 3", r, n)
	}
	bs := Bindings(r)
	if len(bs) != 2 || bs[0] != x || bs[1] != y {
		t.Errorf("Bindings(%s) = %v, want [%s %s]", r, bs, x, y)
	}
	if got := y.String(); got != "y!=main:q" {
		t.Errorf("negative binding prints %q", got)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b Residue
		want bool
	}{
		{And{a, x}, And{Test{Name: "a"}, Binding{Var: "x", Value: "main:p"}}, true},
		{x, Binding{Var: "x", Value: "main:p", Negative: true}, false},
		{And{a, b}, Or{a, b}, false},
		{Always, AlwaysMatch{}, true},
		{Always, Never, false},
		{And{a, Always}.Optimize(), And{a, Always}.Optimize(), true},
		{And{a, Always}.Optimize(), a, false},
	}
	for _, test := range tests {
		if got := Equal(test.a, test.b); got != test.want {
			t.Errorf("Equal(%s, %s) = %t, want %t", test.a, test.b, got, test.want)
		}
	}
}
