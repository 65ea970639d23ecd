package formskema

import "context"

// Validatable is the contract shared by leaf fields and composites. A
// composite treats every child through this interface only.
type Validatable interface {
	// ErrorText returns the current error, or "" when there is none.
	ErrorText() string
	// HasError reports whether ErrorText is non-empty.
	HasError() bool
	// Validate runs validation to completion. Failure is reported through the
	// Outcome; the error is non-nil only when a validator faulted.
	Validate(ctx context.Context) (Outcome, error)
	// Reset restores the unvalidated state. It does not notify the parent.
	Reset()
	EnableAutoValidation()
	DisableAutoValidation()
	// SetCompositionParent installs the sink notified on pass and reinit,
	// replacing any previous one. A nil sink makes the node standalone.
	SetCompositionParent(s Sink)
}

// Sink receives upward notifications from a composed child.
type Sink interface {
	// NotifyPass is called after the child completed a successful validation.
	NotifyPass(ctx context.Context)
	// NotifyReinit is called when the child was reinitialized.
	NotifyReinit(ctx context.Context)
}

// Outcome is the result of a validation: either a failure or a pass carrying
// the validated value.
type Outcome struct {
	ok    bool
	value any
}

// Pass returns a successful Outcome carrying v.
func Pass(v any) Outcome { return Outcome{ok: true, value: v} }

// Fail returns a failing Outcome.
func Fail() Outcome { return Outcome{} }

// OK reports whether the validation passed.
func (o Outcome) OK() bool { return o.ok }

// Value returns the validated value; it is nil for a failing Outcome.
func (o Outcome) Value() any { return o.value }

// Child is a child validatable together with its key in the parent
// collection: the field key in object mode, the index in array mode and the
// formatted map key in map mode.
type Child struct {
	Key   string
	Value Validatable
}

// Composite is implemented by validatables that own children. Report
// walking uses it to descend into nested forms.
type Composite interface {
	Validatable
	Mode() Mode
	Children() []Child
	FieldError() string
	FormError() string
	ShowFormError() bool
}
