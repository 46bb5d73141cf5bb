package core

import "go.uber.org/zap"

// Observer receives synchronous notifications from an executing pulse.
// A panic or error from any one method is recovered and logged by the
// owning EventBus; it never unwinds the engine.
type Observer interface {
	OnStep(pulseID CID, step Step)
	OnBoundViolation(pulseID CID, violation BoundViolation)
	OnComplete(pulseID CID, output any)
	OnError(pulseID CID, err error)
}

// EventBus fans notifications out to a set of observers owned by one
// engine instance. It is never a package-level singleton.
type EventBus struct {
	observers []Observer
	log       *zap.Logger
}

// NewEventBus returns an EventBus that logs recovered observer panics
// through log. A nil logger falls back to zap.NewNop().
func NewEventBus(log *zap.Logger) *EventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventBus{log: log}
}

// On registers an observer.
func (b *EventBus) On(o Observer) {
	b.observers = append(b.observers, o)
}

// Off removes a previously registered observer, compared by identity.
// Removing an observer that was never registered is a no-op.
func (b *EventBus) Off(o Observer) {
	for i, registered := range b.observers {
		if registered == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

func (b *EventBus) guard(name string, pulseID CID, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("observer panicked",
				zap.String("callback", name),
				zap.String("pulseId", string(pulseID)),
				zap.Any("recovered", r),
			)
		}
	}()
	fn()
}

func (b *EventBus) fireStep(pulseID CID, step Step) {
	for _, o := range b.observers {
		o := o
		b.guard("OnStep", pulseID, func() { o.OnStep(pulseID, step) })
	}
}

func (b *EventBus) fireBoundViolation(pulseID CID, v BoundViolation) {
	for _, o := range b.observers {
		o := o
		b.guard("OnBoundViolation", pulseID, func() { o.OnBoundViolation(pulseID, v) })
	}
}

func (b *EventBus) fireComplete(pulseID CID, output any) {
	for _, o := range b.observers {
		o := o
		b.guard("OnComplete", pulseID, func() { o.OnComplete(pulseID, output) })
	}
}

func (b *EventBus) fireError(pulseID CID, err error) {
	for _, o := range b.observers {
		o := o
		b.guard("OnError", pulseID, func() { o.OnError(pulseID, err) })
	}
}
