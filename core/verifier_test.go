package core

import "testing"

// TestVerifyValidPulse verifies that replaying a completed pulse whose code
// is still registered reports valid=true with both outputMatch and
// stepsMatch true.
func TestVerifyValidPulse(t *testing.T) {
	store, registry, engine := newTestEngine(t)
	functionCID, err := registry.Register(KindBuiltin, "fibonacci", Metadata{Name: "fibonacci"}, FibonacciBuiltin())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inputCID, err := store.Store(map[string]any{"n": 15})
	if err != nil {
		t.Fatalf("store input: %v", err)
	}
	pulse := CreatePulseTemplate(PulseOptions{
		Bounds:      DefaultBounds(),
		InputCID:    inputCID,
		FunctionCID: functionCID,
		Author:      "tester",
	})
	result := engine.Execute(pulse)
	if !result.Success {
		t.Fatalf("execution failed: %v", result.Error)
	}

	v := Verify(engine, store, result.Pulse)
	if v.Inconclusive {
		t.Fatalf("verification inconclusive: %s", v.Reason)
	}
	if !v.Valid || !v.OutputMatch || !v.StepsMatch {
		t.Fatalf("verify = %+v, want valid with outputMatch and stepsMatch", v)
	}
}

// TestVerifyInconclusiveWhenCodeUnregistered verifies that verifying a
// pulse against an engine whose registry never saw functionCid is reported
// as inconclusive rather than as an invalid/failed verification.
func TestVerifyInconclusiveWhenCodeUnregistered(t *testing.T) {
	store, registry, engine := newTestEngine(t)
	functionCID, err := registry.Register(KindBuiltin, "fibonacci", Metadata{Name: "fibonacci"}, FibonacciBuiltin())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inputCID, err := store.Store(map[string]any{"n": 5})
	if err != nil {
		t.Fatalf("store input: %v", err)
	}
	pulse := CreatePulseTemplate(PulseOptions{
		Bounds:      DefaultBounds(),
		InputCID:    inputCID,
		FunctionCID: functionCID,
		Author:      "tester",
	})
	result := engine.Execute(pulse)
	if !result.Success {
		t.Fatalf("execution failed: %v", result.Error)
	}

	freshStore := NewStore()
	freshRegistry := NewCodeRegistry(freshStore)
	freshEngine := NewEngine(freshStore, freshRegistry)

	v := Verify(freshEngine, store, result.Pulse)
	if !v.Inconclusive {
		t.Fatalf("expected inconclusive verification for unregistered code, got %+v", v)
	}
}

// TestReplayByPulseID verifies Replay resolves a finalized pulse record
// from the store when given its pulseId CID rather than the record
// itself.
func TestReplayByPulseID(t *testing.T) {
	store, registry, engine := newTestEngine(t)
	functionCID, err := registry.Register(KindBuiltin, "bubble-sort", Metadata{Name: "bubble-sort"}, BubbleSortBuiltin())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inputCID, err := store.Store(map[string]any{"values": []any{5, 2, 8, 1, 9, 3}})
	if err != nil {
		t.Fatalf("store input: %v", err)
	}
	pulse := CreatePulseTemplate(PulseOptions{
		Bounds:      DefaultBounds(),
		InputCID:    inputCID,
		FunctionCID: functionCID,
		Author:      "tester",
	})
	result := engine.Execute(pulse)
	if !result.Success {
		t.Fatalf("execution failed: %v", result.Error)
	}

	byRecord := Replay(engine, store, result.Pulse)
	byID := Replay(engine, store, result.Pulse.PulseID)
	if byID.Inconclusive {
		t.Fatalf("replay by pulseId inconclusive: %s", byID.Reason)
	}
	if byRecord.Valid != byID.Valid || byRecord.OutputMatch != byID.OutputMatch || byRecord.StepsMatch != byID.StepsMatch {
		t.Fatalf("replay by id diverged from replay by record: %+v vs %+v", byID, byRecord)
	}

	unknown := Replay(engine, store, CID("cid:sha256:"+zeros64))
	if !unknown.Inconclusive {
		t.Fatalf("expected inconclusive replay for unknown pulseId, got %+v", unknown)
	}
}

// TestVerifyBatchIsolation verifies VerifyBatch reports an independent,
// correctly-indexed result for each pulse in the batch.
func TestVerifyBatchIsolation(t *testing.T) {
	store, registry, engine := newTestEngine(t)
	functionCID, err := registry.Register(KindBuiltin, "fibonacci", Metadata{Name: "fibonacci"}, FibonacciBuiltin())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var pulses []Pulse
	for _, n := range []int{3, 5, 8} {
		inputCID, err := store.Store(map[string]any{"n": n})
		if err != nil {
			t.Fatalf("store input: %v", err)
		}
		pulse := CreatePulseTemplate(PulseOptions{
			Bounds:      DefaultBounds(),
			InputCID:    inputCID,
			FunctionCID: functionCID,
			Author:      "tester",
		})
		result := engine.Execute(pulse)
		if !result.Success {
			t.Fatalf("execution failed: %v", result.Error)
		}
		pulses = append(pulses, result.Pulse)
	}

	results := VerifyBatch(engine, store, pulses)
	if len(results) != len(pulses) {
		t.Fatalf("got %d results, want %d", len(results), len(pulses))
	}
	for i, v := range results {
		if !v.Valid {
			t.Fatalf("result[%d] not valid: %+v", i, v)
		}
	}
}
