package formskema

import (
	"maps"
	"slices"
	"sync"
)

// Reason names the batched update that produced an Event.
type Reason string

const (
	ReasonValidateStart    Reason = "validate_start"
	ReasonValidateEnd      Reason = "validate_end"
	ReasonFormErrorCleared Reason = "form_error_cleared"
	ReasonChildPassed      Reason = "child_passed"
	ReasonChildReinit      Reason = "child_reinit"
	ReasonComposed         Reason = "composed"
	ReasonReset            Reason = "reset"
	ReasonAutoValidation   Reason = "auto_validation"
	ReasonCascadeFault     Reason = "cascade_fault"
)

// State is a consistent snapshot of a form's own mutable state. Derived
// values that depend on children (FieldError, HasError) are read through
// the form instead.
type State struct {
	Validating     bool
	FormError      string
	Validated      int // Size of the validated-subfields set.
	AutoValidation bool
}

// Event is published once per atomic update, after the update is applied.
type Event struct {
	Reason Reason
	State  State
	Err    error // Set for ReasonCascadeFault.
}

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Event)
}

func (l *listeners) add(fn func(Event)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = map[int]func(Event){}
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

// emit calls listeners in subscription order outside the registry lock, so
// a listener may subscribe or unsubscribe.
func (l *listeners) emit(ev Event) {
	l.mu.Lock()
	if len(l.fns) == 0 {
		l.mu.Unlock()
		return
	}
	ids := slices.Sorted(maps.Keys(l.fns))
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
