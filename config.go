package loom

// Config holds process-wide tunables that have no single natural owner,
// following the package-level config pattern used elsewhere in this
// ecosystem for similar cross-cutting hooks.
var Config config = config{
	DenseGrowthFactor:        2,
	PanicOnContractViolation: true,
}

type config struct {
	// DenseGrowthFactor controls the capacity multiplier used when a
	// typed store's dense/owners slices need to grow past their current
	// capacity.
	DenseGrowthFactor int

	// PanicOnContractViolation selects the debug-abort behavior for
	// contract violations. When false, ones that have a safe
	// no-op or error-return fallback take it instead of panicking; the
	// underlying invariant is still enforced either way.
	PanicOnContractViolation bool
}

// SetDenseGrowthFactor overrides the growth multiplier every typed store
// uses the next time its dense/owners slices grow.
func (c *config) SetDenseGrowthFactor(factor int) {
	if factor < 1 {
		factor = 1
	}
	c.DenseGrowthFactor = factor
}

// SetPanicOnContractViolation toggles whether contract violations panic.
func (c *config) SetPanicOnContractViolation(panics bool) {
	c.PanicOnContractViolation = panics
}
