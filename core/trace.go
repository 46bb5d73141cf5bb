package core

// Step is a single recorded operation within a pulse's execution trace.
type Step struct {
	Tick      uint64 `json:"tick"`
	Operation string `json:"operation"`
	Args      any    `json:"args,omitempty"`
	Result    any    `json:"result,omitempty"`
	Memory    uint64 `json:"memory,omitempty"`
}

// Trace is the complete, ordered record of a pulse's observable operations.
// StartTime and EndTime are logical tick markers, not wall-clock readings:
// a trace is a pure function of the pulse's input, code, and bounds, so two
// executions of the same pulse canonicalize to the same bytes and the same
// traceCid. Wall-clock time never appears in the trace.
type Trace struct {
	Steps             []Step `json:"steps"`
	TotalSteps        uint64 `json:"totalSteps"`
	PeakMemory        uint64 `json:"peakMemory"`
	MaxBranchDepth    uint64 `json:"maxBranchDepth"`
	DeterministicSeed CID    `json:"deterministicSeed"`
	StartTime         int64  `json:"startTime"`
	EndTime           int64  `json:"endTime"`
}

// newTrace assembles the trace for one finished execution. The
// deterministic seed is, by convention, the pulse's inputCid; the start
// marker is tick zero and the end marker is the total step count.
func newTrace(steps []Step, usage Usage, peakBranch uint64, seed CID) Trace {
	return Trace{
		Steps:             steps,
		TotalSteps:        usage.Steps,
		PeakMemory:        usage.MemoryBytes,
		MaxBranchDepth:    peakBranch,
		DeterministicSeed: seed,
		StartTime:         0,
		EndTime:           int64(usage.Steps),
	}
}
