package core

import (
	"testing"
	"time"
)

func newTestContext(bounds ResourceBounds) *ExecutionContext {
	return newExecutionContext("", bounds, NewEventBus(nil))
}

// TestContextBranchDepthPeakTracking verifies the observed maximum branch
// depth survives the matching exits, while the live counter returns to
// zero.
func TestContextBranchDepthPeakTracking(t *testing.T) {
	ctx := newTestContext(DefaultBounds())

	for i := 0; i < 3; i++ {
		if v := ctx.EnterBranch(); v != nil {
			t.Fatalf("enterBranch %d violated: %+v", i, v)
		}
	}
	ctx.ExitBranch()
	ctx.ExitBranch()
	if v := ctx.EnterBranch(); v != nil {
		t.Fatalf("re-enter violated: %+v", v)
	}
	ctx.ExitBranch()
	ctx.ExitBranch()

	if ctx.peakBranch != 3 {
		t.Fatalf("peak branch depth = %d, want 3", ctx.peakBranch)
	}
	if ctx.usage.BranchDepth != 0 {
		t.Fatalf("live branch depth = %d, want 0", ctx.usage.BranchDepth)
	}
}

// TestContextExitBranchFloorsAtZero verifies unbalanced exits never drive
// the depth negative.
func TestContextExitBranchFloorsAtZero(t *testing.T) {
	ctx := newTestContext(DefaultBounds())
	ctx.ExitBranch()
	ctx.ExitBranch()
	if ctx.usage.BranchDepth != 0 {
		t.Fatalf("branch depth = %d, want 0 after exits on an empty stack", ctx.usage.BranchDepth)
	}
	if v := ctx.EnterBranch(); v != nil {
		t.Fatalf("enter after floored exits violated: %+v", v)
	}
	if ctx.usage.BranchDepth != 1 {
		t.Fatalf("branch depth = %d, want 1", ctx.usage.BranchDepth)
	}
}

// deepRecursionBuiltin enters branches without exiting, driving the depth
// counter up to its bound.
func deepRecursionBuiltin(depth int) Runnable {
	return NewBuiltin(func(ctx *ExecutionContext, input any) (any, error) {
		for i := 0; i < depth; i++ {
			if v := ctx.EnterBranch(); v != nil {
				return nil, v
			}
		}
		for i := 0; i < depth; i++ {
			ctx.ExitBranch()
		}
		return map[string]any{"depth": depth}, nil
	})
}

// TestEngineBranchDepthViolation verifies a pulse nesting deeper than
// maxBranchDepth terminates with status violated on that bound.
func TestEngineBranchDepthViolation(t *testing.T) {
	store, registry, engine := newTestEngine(t)
	functionCID, err := registry.Register(KindBuiltin, "recurse", Metadata{Name: "recurse"}, deepRecursionBuiltin(50))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inputCID, err := store.Store(map[string]any{})
	if err != nil {
		t.Fatalf("store input: %v", err)
	}
	bounds := DefaultBounds()
	bounds.MaxBranchDepth = 10
	result := engine.Execute(CreatePulseTemplate(PulseOptions{
		Bounds:      bounds,
		InputCID:    inputCID,
		FunctionCID: functionCID,
		Author:      "tester",
	}))
	if result.Pulse.Status != StatusViolated {
		t.Fatalf("status = %s, want violated", result.Pulse.Status)
	}
	if result.Pulse.Error == nil || result.Pulse.Error.Bound != "maxBranchDepth" {
		t.Fatalf("error = %+v, want bound maxBranchDepth", result.Pulse.Error)
	}
	if result.Pulse.Error.Observed < 10 {
		t.Fatalf("observed = %d, want >= limit 10", result.Pulse.Error.Observed)
	}
}

// slowBuiltin sleeps before its next step so elapsed wall-clock time
// crosses the execution ceiling.
func slowBuiltin(d time.Duration) Runnable {
	return NewBuiltin(func(ctx *ExecutionContext, input any) (any, error) {
		if _, v := ctx.Step("init", nil, nil); v != nil {
			return nil, v
		}
		time.Sleep(d)
		if _, v := ctx.Step("late", nil, nil); v != nil {
			return nil, v
		}
		return map[string]any{"done": true}, nil
	})
}

// TestEngineExecutionTimeViolation verifies the wall-clock kill-switch: a
// pulse whose code outlives maxExecutionMs is terminated at its next
// enforcement point with status violated on maxExecutionMs.
func TestEngineExecutionTimeViolation(t *testing.T) {
	store, registry, engine := newTestEngine(t)
	functionCID, err := registry.Register(KindBuiltin, "slow", Metadata{Name: "slow"}, slowBuiltin(30*time.Millisecond))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inputCID, err := store.Store(map[string]any{})
	if err != nil {
		t.Fatalf("store input: %v", err)
	}
	bounds := DefaultBounds()
	bounds.MaxExecutionMs = 1
	result := engine.Execute(CreatePulseTemplate(PulseOptions{
		Bounds:      bounds,
		InputCID:    inputCID,
		FunctionCID: functionCID,
		Author:      "tester",
	}))
	if result.Pulse.Status != StatusViolated {
		t.Fatalf("status = %s, want violated", result.Pulse.Status)
	}
	if result.Pulse.Error == nil || result.Pulse.Error.Bound != "maxExecutionMs" {
		t.Fatalf("error = %+v, want bound maxExecutionMs", result.Pulse.Error)
	}
}

// TestEngineTraceRecordsPeakBranchDepth verifies the trace's
// maxBranchDepth is the observed peak, not the depth left after exits.
func TestEngineTraceRecordsPeakBranchDepth(t *testing.T) {
	store, registry, engine := newTestEngine(t)
	functionCID, err := registry.Register(KindBuiltin, "recurse", Metadata{Name: "recurse"}, deepRecursionBuiltin(7))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inputCID, err := store.Store(map[string]any{})
	if err != nil {
		t.Fatalf("store input: %v", err)
	}
	result := engine.Execute(CreatePulseTemplate(PulseOptions{
		Bounds:      DefaultBounds(),
		InputCID:    inputCID,
		FunctionCID: functionCID,
		Author:      "tester",
	}))
	if !result.Success {
		t.Fatalf("execution failed: %v", result.Error)
	}
	if result.Trace.MaxBranchDepth != 7 {
		t.Fatalf("trace maxBranchDepth = %d, want observed peak 7", result.Trace.MaxBranchDepth)
	}
}
