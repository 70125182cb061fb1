package weaver

type Options struct {
	OptimizeResidues bool `yaml:"optimizeResidues"`
	// WeaveDeclareWarning keeps declare error and warning residues in the
	// final weave. Used for debugging the matcher.
	WeaveDeclareWarning     bool `yaml:"weaveDeclareWarning"`
	CleanupAfterAdviceWeave bool `yaml:"cleanupAfterAdviceWeave"`
	PrintAdviceInfo         bool `yaml:"printAdviceInfo"`
	AroundInlining          bool `yaml:"aroundInlining"`
	BeforeAfterInlining     bool `yaml:"beforeAfterInlining"`
	// InlineThreshold is the largest advice body, in units, that the advice
	// inliner copies into a call site.
	InlineThreshold int `yaml:"inlineThreshold"`
}

func DefaultOptions() Options {
	return Options{
		OptimizeResidues:        true,
		CleanupAfterAdviceWeave: true,
		InlineThreshold:         4,
	}
}
