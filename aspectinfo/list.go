package aspectinfo

// MethodAdviceList holds the advice applications of one method, grouped by
// join point kind and kept in precedence order within each group.
type MethodAdviceList struct {
	BodyAdvice              []*AdviceApplication
	StmtAdvice              []*AdviceApplication
	PreinitializationAdvice []*AdviceApplication
	InitializationAdvice    []*AdviceApplication
	AdviceExecutionAdvice   []*AdviceApplication
}

func (l *MethodAdviceList) Add(a *AdviceApplication) {
	switch a.Kind {
	case Execution:
		l.BodyAdvice = append(l.BodyAdvice, a)
	case Call:
		l.StmtAdvice = append(l.StmtAdvice, a)
	case PreInitialization:
		l.PreinitializationAdvice = append(l.PreinitializationAdvice, a)
	case Initialization:
		l.InitializationAdvice = append(l.InitializationAdvice, a)
	case AdviceExecution:
		l.AdviceExecutionAdvice = append(l.AdviceExecutionAdvice, a)
	}
}

func (l *MethodAdviceList) groups() [][]*AdviceApplication {
	return [][]*AdviceApplication{
		l.BodyAdvice,
		l.StmtAdvice,
		l.PreinitializationAdvice,
		l.InitializationAdvice,
		l.AdviceExecutionAdvice,
	}
}

func (l *MethodAdviceList) AllAdvice() []*AdviceApplication {
	var all []*AdviceApplication
	for _, g := range l.groups() {
		all = append(all, g...)
	}
	return all
}

// Pass returns the applications woven in the given per-class pass.
func (l *MethodAdviceList) Pass(n int) []*AdviceApplication {
	var out []*AdviceApplication
	for _, a := range l.AllAdvice() {
		if a.Kind.Pass() == n {
			out = append(out, a)
		}
	}
	return out
}

func (l *MethodAdviceList) IsEmpty() bool {
	for _, g := range l.groups() {
		if len(g) > 0 {
			return false
		}
	}
	return true
}
