package core

import "time"

// ExecutionContext is the sole channel through which executing code
// affects a pulse's trace or resource counters. It exposes exactly five
// operations: step, allocate, enterBranch, exitBranch, and the read-only
// getUsage/getBounds pair.
type ExecutionContext struct {
	pulseID    CID
	bounds     ResourceBounds
	usage      Usage
	peakBranch uint64
	startedAt  time.Time
	trace      []Step
	events     *EventBus
}

// newExecutionContext constructs a fresh context for one pulse execution.
// Per-pulse state never leaks between executions.
func newExecutionContext(pulseID CID, bounds ResourceBounds, events *EventBus) *ExecutionContext {
	return &ExecutionContext{
		pulseID:   pulseID,
		bounds:    bounds,
		startedAt: time.Now(),
		events:    events,
	}
}

// elapsedMs reports wall-clock milliseconds since execution began. This is
// the only place real time enters the engine, and only as the
// maxExecutionMs kill-switch: it decides whether a computation survives,
// never what it computes.
func (c *ExecutionContext) elapsedMs() uint64 {
	return uint64(time.Since(c.startedAt).Milliseconds())
}

func (c *ExecutionContext) snapshotUsage() Usage {
	u := c.usage
	u.ExecutionMs = c.elapsedMs()
	return u
}

// checkBounds enforces all four bounds in the fixed order maxSteps,
// maxMemoryBytes, maxBranchDepth, maxExecutionMs, firing OnBoundViolation
// and returning the violation when one is found.
func (c *ExecutionContext) checkBounds() *BoundViolation {
	v := enforceBounds(c.snapshotUsage(), c.bounds)
	if v != nil {
		c.events.fireBoundViolation(c.pulseID, *v)
	}
	return v
}

// Step increments the step counter, records a trace entry with the given
// args/result and current memory, fires the step observer, and enforces
// bounds. It returns result unchanged (pass-through) so callers can write
// `x, v := ctx.Step("add", args, compute())`.
func (c *ExecutionContext) Step(operation string, args, result any) (any, *BoundViolation) {
	c.usage.Steps++
	step := Step{
		Tick:      c.usage.Steps - 1,
		Operation: operation,
		Args:      args,
		Result:    result,
		Memory:    c.usage.MemoryBytes,
	}
	c.trace = append(c.trace, step)
	c.events.fireStep(c.pulseID, step)
	return result, c.checkBounds()
}

// Allocate adds bytes to the running memory counter and enforces bounds.
func (c *ExecutionContext) Allocate(bytes uint64) *BoundViolation {
	c.usage.MemoryBytes += bytes
	return c.checkBounds()
}

// EnterBranch increments branch depth, updates the observed maximum, and
// enforces bounds.
func (c *ExecutionContext) EnterBranch() *BoundViolation {
	c.usage.BranchDepth++
	if c.usage.BranchDepth > c.peakBranch {
		c.peakBranch = c.usage.BranchDepth
	}
	return c.checkBounds()
}

// ExitBranch decrements branch depth, floored at zero. It never enforces
// bounds: exits are always safe.
func (c *ExecutionContext) ExitBranch() {
	if c.usage.BranchDepth > 0 {
		c.usage.BranchDepth--
	}
}

// GetUsage returns a read-only snapshot of current resource consumption.
func (c *ExecutionContext) GetUsage() Usage {
	return c.snapshotUsage()
}

// GetBounds returns the bounds this context enforces.
func (c *ExecutionContext) GetBounds() ResourceBounds {
	return c.bounds
}
