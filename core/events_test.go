package core

import "testing"

// recordingObserver counts the notifications it receives.
type recordingObserver struct {
	steps      int
	violations int
	completes  int
	errors     int
}

func (o *recordingObserver) OnStep(pulseID CID, step Step)                  { o.steps++ }
func (o *recordingObserver) OnBoundViolation(pulseID CID, v BoundViolation) { o.violations++ }
func (o *recordingObserver) OnComplete(pulseID CID, output any)             { o.completes++ }
func (o *recordingObserver) OnError(pulseID CID, err error)                 { o.errors++ }

// panickyObserver panics on every notification.
type panickyObserver struct{}

func (panickyObserver) OnStep(pulseID CID, step Step)                  { panic("observer step") }
func (panickyObserver) OnBoundViolation(pulseID CID, v BoundViolation) { panic("observer violation") }
func (panickyObserver) OnComplete(pulseID CID, output any)             { panic("observer complete") }
func (panickyObserver) OnError(pulseID CID, err error)                 { panic("observer error") }

// TestObserverReceivesLifecycleEvents verifies a registered observer sees
// one step notification per recorded step and a single completion.
func TestObserverReceivesLifecycleEvents(t *testing.T) {
	store := NewStore()
	registry := NewCodeRegistry(store)
	bus := NewEventBus(nil)
	engine := NewEngine(store, registry, WithEngineEventBus(bus))

	obs := &recordingObserver{}
	engine.On(obs)

	functionCID, err := registry.Register(KindBuiltin, "fibonacci", Metadata{Name: "fibonacci"}, FibonacciBuiltin())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inputCID, err := store.Store(map[string]any{"n": 5})
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

	if obs.steps != int(result.Trace.TotalSteps) {
		t.Fatalf("observer saw %d steps, trace recorded %d", obs.steps, result.Trace.TotalSteps)
	}
	if obs.completes != 1 {
		t.Fatalf("observer saw %d completions, want 1", obs.completes)
	}
	if obs.violations != 0 || obs.errors != 0 {
		t.Fatalf("unexpected violation/error notifications: %+v", obs)
	}
}

// TestObserverPanicDoesNotUnwindEngine verifies a panicking observer is
// recovered by the bus: execution completes normally and later observers
// still receive their notifications.
func TestObserverPanicDoesNotUnwindEngine(t *testing.T) {
	store := NewStore()
	registry := NewCodeRegistry(store)
	engine := NewEngine(store, registry)

	after := &recordingObserver{}
	engine.On(panickyObserver{})
	engine.On(after)

	functionCID, err := registry.Register(KindBuiltin, "fibonacci", Metadata{Name: "fibonacci"}, FibonacciBuiltin())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inputCID, err := store.Store(map[string]any{"n": 5})
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
		t.Fatalf("execution failed despite observer panics: %v", result.Error)
	}
	if after.steps == 0 || after.completes != 1 {
		t.Fatalf("observer after the panicking one was starved: %+v", after)
	}
}

// TestObserverOffStopsDelivery verifies Off removes an observer while
// leaving the others registered.
func TestObserverOffStopsDelivery(t *testing.T) {
	bus := NewEventBus(nil)
	kept := &recordingObserver{}
	removed := &recordingObserver{}
	bus.On(kept)
	bus.On(removed)
	bus.Off(removed)

	bus.fireStep("", Step{Operation: "noop"})
	if kept.steps != 1 {
		t.Fatalf("kept observer saw %d steps, want 1", kept.steps)
	}
	if removed.steps != 0 {
		t.Fatalf("removed observer still received a step")
	}

	// Off on an observer that was never registered is a no-op.
	bus.Off(&recordingObserver{})
	bus.fireStep("", Step{Operation: "noop"})
	if kept.steps != 2 {
		t.Fatalf("kept observer saw %d steps, want 2", kept.steps)
	}
}
