package core

// ResourceBounds caps the four dimensions a pulse's execution is metered
// against. Enforcement always checks them in this fixed order: maxSteps,
// then maxMemoryBytes, then maxBranchDepth, then maxExecutionMs.
type ResourceBounds struct {
	MaxSteps       uint64 `json:"maxSteps"`
	MaxMemoryBytes uint64 `json:"maxMemoryBytes"`
	MaxBranchDepth uint64 `json:"maxBranchDepth"`
	MaxExecutionMs uint64 `json:"maxExecutionMs"`
}

// DefaultBounds returns the bounds applied when a pulse does not specify
// its own.
func DefaultBounds() ResourceBounds {
	return ResourceBounds{
		MaxSteps:       1_000_000,
		MaxMemoryBytes: 100 * 1 << 20,
		MaxBranchDepth: 100,
		MaxExecutionMs: 30_000,
	}
}

// ceilingBounds are the hard maxima no pulse, however configured, may
// exceed.
var ceilingBounds = ResourceBounds{
	MaxSteps:       1_000_000_000,
	MaxMemoryBytes: 1 << 30,
	MaxBranchDepth: 1000,
	MaxExecutionMs: 300_000,
}

// Validate reports a *ValidationError if any field is zero or exceeds its
// ceiling.
func (b ResourceBounds) Validate() error {
	type check struct {
		field   string
		value   uint64
		ceiling uint64
	}
	for _, c := range []check{
		{"maxSteps", b.MaxSteps, ceilingBounds.MaxSteps},
		{"maxMemoryBytes", b.MaxMemoryBytes, ceilingBounds.MaxMemoryBytes},
		{"maxBranchDepth", b.MaxBranchDepth, ceilingBounds.MaxBranchDepth},
		{"maxExecutionMs", b.MaxExecutionMs, ceilingBounds.MaxExecutionMs},
	} {
		if c.value == 0 {
			return &ValidationError{Field: c.field, Reason: "must be nonzero"}
		}
		if c.value > c.ceiling {
			return &ValidationError{Field: c.field, Reason: "exceeds ceiling"}
		}
	}
	return nil
}

// WithDefaults returns a copy of b with any zero field filled in from
// DefaultBounds.
func (b ResourceBounds) WithDefaults() ResourceBounds {
	d := DefaultBounds()
	if b.MaxSteps == 0 {
		b.MaxSteps = d.MaxSteps
	}
	if b.MaxMemoryBytes == 0 {
		b.MaxMemoryBytes = d.MaxMemoryBytes
	}
	if b.MaxBranchDepth == 0 {
		b.MaxBranchDepth = d.MaxBranchDepth
	}
	if b.MaxExecutionMs == 0 {
		b.MaxExecutionMs = d.MaxExecutionMs
	}
	return b
}

// Usage tracks consumption against a ResourceBounds during execution.
type Usage struct {
	Steps       uint64 `json:"steps"`
	MemoryBytes uint64 `json:"memoryBytes"`
	BranchDepth uint64 `json:"branchDepth"`
	ExecutionMs uint64 `json:"executionMs"`
}

// enforceBounds returns the first bound usage exceeds, checked in the fixed
// order maxSteps -> maxMemoryBytes -> maxBranchDepth -> maxExecutionMs, or
// nil if usage is within bounds.
func enforceBounds(u Usage, b ResourceBounds) *BoundViolation {
	switch {
	case u.Steps > b.MaxSteps:
		return &BoundViolation{Bound: "maxSteps", Limit: b.MaxSteps, Observed: u.Steps}
	case u.MemoryBytes > b.MaxMemoryBytes:
		return &BoundViolation{Bound: "maxMemoryBytes", Limit: b.MaxMemoryBytes, Observed: u.MemoryBytes}
	case u.BranchDepth > b.MaxBranchDepth:
		return &BoundViolation{Bound: "maxBranchDepth", Limit: b.MaxBranchDepth, Observed: u.BranchDepth}
	case u.ExecutionMs > b.MaxExecutionMs:
		return &BoundViolation{Bound: "maxExecutionMs", Limit: b.MaxExecutionMs, Observed: u.ExecutionMs}
	default:
		return nil
	}
}
