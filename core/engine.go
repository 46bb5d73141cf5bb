package core

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Engine executes pulses (C3). Each instance owns its own store, code
// registry, and event bus; instances never share per-pulse state, so
// multiple engines may run in parallel.
type Engine struct {
	store    *Store
	registry *CodeRegistry
	events   *EventBus
	log      *logrus.Logger
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithEngineEventBus attaches an EventBus observers have already
// registered against.
func WithEngineEventBus(b *EventBus) EngineOption {
	return func(e *Engine) { e.events = b }
}

// WithEngineLogger attaches the logrus logger used for engine-level
// diagnostics.
func WithEngineLogger(l *logrus.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// NewEngine constructs an Engine over store and registry.
func NewEngine(store *Store, registry *CodeRegistry, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		registry: registry,
		events:   NewEventBus(nil),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// On registers an observer for step, boundViolation, complete, and error
// notifications from this engine instance.
func (e *Engine) On(o Observer) { e.events.On(o) }

// Off removes a previously registered observer.
func (e *Engine) Off(o Observer) { e.events.Off(o) }

// Result is the envelope Execute returns.
type Result struct {
	Success bool
	Pulse   Pulse
	Output  any
	Trace   Trace
	Error   error
}

// Execute runs a validated pulse to a terminal status, enforcing bounds and
// recording a complete trace. It never panics across this boundary: every
// failure is reported through the returned Result.
func (e *Engine) Execute(pulse Pulse) Result {
	if errs := validatePulse(pulse); len(errs) > 0 {
		return Result{Success: false, Pulse: pulse, Error: errors.Join(errs...)}
	}

	runnable, err := e.registry.Lookup(pulse.FunctionCID)
	if err != nil {
		e.events.fireError(pulse.PulseID, err)
		return e.failBeforeRun(pulse, "MissingCode", err)
	}

	var input any
	if pulse.InputCID != "" {
		raw, ok := e.store.Fetch(pulse.InputCID)
		if !ok {
			absence := &StoreAbsence{CID: pulse.InputCID}
			return e.failBeforeRun(pulse, "StoreAbsence", absence)
		}
		input = decodeStored(raw)
	}

	pulse.Status = StatusExecuting
	e.log.WithFields(logrus.Fields{
		"functionCid": string(pulse.FunctionCID),
		"inputCid":    string(pulse.InputCID),
	}).Debug("pulse executing")

	ctx := newExecutionContext(pulse.PulseID, pulse.Bounds, e.events)

	output, runErr := e.runGuarded(runnable, ctx, input, pulse.FunctionCID)

	trace := newTrace(ctx.trace, ctx.usage, ctx.peakBranch, pulse.InputCID)
	traceCID, err := e.store.Store(trace)
	if err != nil {
		pulse.Status = StatusFailed
		pulse.Error = &PulseError{Kind: "CodeFault", Message: err.Error()}
		return Result{Success: false, Pulse: pulse, Error: err, Trace: trace}
	}
	pulse.TraceCID = traceCID

	var violation *BoundViolation
	if errors.As(runErr, &violation) {
		pulse.Status = StatusViolated
		pulse.Error = &PulseError{
			Kind:     "BoundViolation",
			Message:  violation.Error(),
			Bound:    violation.Bound,
			Observed: violation.Observed,
			Limit:    violation.Limit,
		}
	} else if runErr != nil {
		pulse.Status = StatusFailed
		pulse.Error = &PulseError{Kind: "CodeFault", Message: runErr.Error()}
		e.events.fireError(pulse.PulseID, runErr)
	} else {
		outputCID, err := e.store.Store(output)
		if err != nil {
			pulse.Status = StatusFailed
			pulse.Error = &PulseError{Kind: "CodeFault", Message: err.Error()}
			return Result{Success: false, Pulse: pulse, Error: err, Trace: trace}
		}
		pulse.OutputCID = outputCID
		pulse.Status = StatusCompleted
		e.events.fireComplete(pulse.PulseID, output)
	}

	pulseID, err := e.finalizePulseID(pulse)
	if err != nil {
		return Result{Success: false, Pulse: pulse, Error: err, Trace: trace}
	}
	pulse.PulseID = pulseID

	return Result{
		Success: pulse.Status == StatusCompleted,
		Pulse:   pulse,
		Output:  output,
		Trace:   trace,
		Error:   runErr,
	}
}

// failBeforeRun terminates a pulse that never reached its runnable (missing
// code, unresolvable input). The terminal record still carries a traceCid
// (over an empty trace) and a finalized pulseId, so terminal pulses are
// uniform regardless of how early they died.
func (e *Engine) failBeforeRun(pulse Pulse, kind string, cause error) Result {
	pulse.Status = StatusFailed
	pulse.Error = &PulseError{Kind: kind, Message: cause.Error()}

	trace := newTrace(nil, Usage{}, 0, pulse.InputCID)
	traceCID, err := e.store.Store(trace)
	if err != nil {
		return Result{Success: false, Pulse: pulse, Error: cause, Trace: trace}
	}
	pulse.TraceCID = traceCID

	pulseID, err := e.finalizePulseID(pulse)
	if err != nil {
		return Result{Success: false, Pulse: pulse, Error: cause, Trace: trace}
	}
	pulse.PulseID = pulseID
	return Result{Success: false, Pulse: pulse, Error: cause, Trace: trace}
}

// runGuarded invokes runnable, recovering a panic as a *CodeFault so
// cooperative-but-buggy code never crosses the Execute boundary as a Go
// panic.
func (e *Engine) runGuarded(runnable Runnable, ctx *ExecutionContext, input any, functionCID CID) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CodeFault{FunctionCID: functionCID, Err: errFromRecover(r)}
		}
	}()
	return runnable.Run(ctx, input)
}

// finalizePulseID computes the CID of the completed record. Signature and
// pulseId itself are excluded from the preimage, so an attestation added
// after the fact does not change the record's identity.
func (e *Engine) finalizePulseID(p Pulse) (CID, error) {
	preimage := p
	preimage.Signature = ""
	preimage.PulseID = ""
	return e.store.Store(preimage)
}

// decodeStored is a permissive pass-through: the store holds canonical
// bytes, and builtins/scripts operate on the JSON-shaped value that
// canonicalization would have produced, so re-decoding with
// decodeCanonical (the same UseNumber decoding normalize applies) keeps
// input and output symmetric.
func decodeStored(raw []byte) any {
	v, err := decodeCanonical(raw)
	if err != nil {
		return string(raw)
	}
	return v
}

func errFromRecover(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
