package core

// Status is one of the five lifecycle states a pulse record moves through.
// Once a pulse reaches a terminal status the record is immutable.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusViolated  Status = "violated"
)

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusExecuting, StatusCompleted, StatusFailed, StatusViolated:
		return true
	default:
		return false
	}
}

// PulseError is the structured form of a terminal error or violation
// recorded on a pulse. Bound, Observed, and Limit are populated only for
// bound violations.
type PulseError struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Bound    string `json:"bound,omitempty"`
	Observed uint64 `json:"observed,omitempty"`
	Limit    uint64 `json:"limit,omitempty"`
}

// Pulse is the complete record of a single bounded invocation.
type Pulse struct {
	PulseID       CID            `json:"pulseId,omitempty"`
	ParentPulseID CID            `json:"parentPulseId,omitempty"`
	LogicalTick   uint64         `json:"logicalTick"`
	Bounds        ResourceBounds `json:"bounds"`
	InputCID      CID            `json:"inputCid,omitempty"`
	FunctionCID   CID            `json:"functionCid"`
	OutputCID     CID            `json:"outputCid,omitempty"`
	TraceCID      CID            `json:"traceCid,omitempty"`
	Author        string         `json:"author"`
	Signature     string         `json:"signature,omitempty"`
	Status        Status         `json:"status"`
	Error         *PulseError    `json:"error,omitempty"`
}

// PulseOptions is the caller-supplied subset of a pulse used to mint a
// template via createPulseTemplate.
type PulseOptions struct {
	ParentPulseID CID
	LogicalTick   uint64
	Bounds        ResourceBounds
	InputCID      CID
	FunctionCID   CID
	Author        string
}

// createPulseTemplate populates a record from caller options: bounds
// default where unsupplied, status is pending, and identifier fields
// (pulseId, outputCid, traceCid) are left unset.
func createPulseTemplate(opts PulseOptions) Pulse {
	return Pulse{
		ParentPulseID: opts.ParentPulseID,
		LogicalTick:   opts.LogicalTick,
		Bounds:        opts.Bounds.WithDefaults(),
		InputCID:      opts.InputCID,
		FunctionCID:   opts.FunctionCID,
		Author:        opts.Author,
		Status:        StatusPending,
	}
}

// CreatePulseTemplate is the exported entry point for createPulseTemplate.
func CreatePulseTemplate(opts PulseOptions) Pulse {
	return createPulseTemplate(opts)
}

// ChainPulse builds a template causally chained off parent: parentPulseId
// is set to parent's pulseId and logicalTick increments from parent's.
// Bounds, functionCid, and author default to the parent's unless overridden
// in opts.
func ChainPulse(parent Pulse, opts PulseOptions) Pulse {
	if opts.Bounds == (ResourceBounds{}) {
		opts.Bounds = parent.Bounds
	}
	if opts.FunctionCID == "" {
		opts.FunctionCID = parent.FunctionCID
	}
	if opts.Author == "" {
		opts.Author = parent.Author
	}
	opts.ParentPulseID = parent.PulseID
	opts.LogicalTick = parent.LogicalTick + 1
	return createPulseTemplate(opts)
}

// validatePulse checks the required fields, bound ceilings, CID shapes, and
// status enumeration, returning the exhaustive list of violations rather
// than stopping at the first.
func validatePulse(p Pulse) []error {
	var errs []error

	if p.Bounds == (ResourceBounds{}) {
		errs = append(errs, &ValidationError{Field: "bounds", Reason: "required"})
	} else if err := p.Bounds.Validate(); err != nil {
		errs = append(errs, err)
	}

	// inputCid is a required wire key but an empty value is legal: it means
	// "no input". Only the format is checked when the field is non-empty.
	if p.InputCID != "" && !p.InputCID.Valid() {
		errs = append(errs, &ValidationError{Field: "inputCid", Reason: "malformed CID"})
	}

	if p.FunctionCID == "" {
		errs = append(errs, &ValidationError{Field: "functionCid", Reason: "required"})
	} else if !p.FunctionCID.Valid() {
		errs = append(errs, &ValidationError{Field: "functionCid", Reason: "malformed CID"})
	}

	if p.Author == "" {
		errs = append(errs, &ValidationError{Field: "author", Reason: "required"})
	}

	for _, optional := range []struct {
		name string
		cid  CID
	}{
		{"pulseId", p.PulseID},
		{"parentPulseId", p.ParentPulseID},
		{"outputCid", p.OutputCID},
		{"traceCid", p.TraceCID},
	} {
		if optional.cid != "" && !optional.cid.Valid() {
			errs = append(errs, &ValidationError{Field: optional.name, Reason: "malformed CID"})
		}
	}

	if p.Status != "" && !p.Status.valid() {
		errs = append(errs, &ValidationError{Field: "status", Reason: "not one of pending|executing|completed|failed|violated"})
	}

	return errs
}

// ValidatePulse is the exported entry point for validatePulse.
func ValidatePulse(p Pulse) []error {
	return validatePulse(p)
}
