package aspectinfo

type JoinPointKind int

const (
	Execution JoinPointKind = iota
	Call
	PreInitialization
	Initialization
	AdviceExecution
)

var joinPointNames = [...]string{
	Execution:         "execution",
	Call:              "call",
	PreInitialization: "preinitialization",
	Initialization:    "initialization",
	AdviceExecution:   "adviceexecution",
}

func (k JoinPointKind) String() string {
	return joinPointNames[k]
}

// Pass returns the per-class weaving pass the join point kind belongs to.
// Initialization shadows are only known once constructors are inlined, so
// they go second. Advice execution is woven after every class is done.
func (k JoinPointKind) Pass() int {
	switch k {
	case Execution, Call:
		return 1
	case PreInitialization, Initialization:
		return 2
	}
	return 0
}

type AdviceKind int

const (
	Before AdviceKind = iota
	After
	Around
	DeclareMessage
)

var adviceNames = [...]string{
	Before:         "before",
	After:          "after",
	Around:         "around",
	DeclareMessage: "declare",
}

func (k AdviceKind) String() string {
	return adviceNames[k]
}
