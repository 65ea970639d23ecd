package formskema

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Validator is a form-level check over the whole subject. It returns an
// error message, or "" when the subject is valid. A non-nil error is a
// fault, not a validation failure.
type Validator[S any] func(ctx context.Context, subject S) (string, error)

// Form is a composite validatable. It owns the structure of its subject
// while the children themselves stay addressable by the caller.
//
// Form's own mutable state (validating flag, form error, validated
// children, auto-validation flag, parent sink) is only changed inside
// atomic updates guarded by a mutex; each update publishes one Event.
type Form[S any] struct {
	subject S
	subj    subject
	name    string
	logger  *slog.Logger

	mu             sync.Mutex
	validators     []Validator[S]
	formError      string
	validating     bool
	autoValidation bool
	validated      []Validatable
	parent         Sink

	cascades  sync.WaitGroup
	listeners listeners
}

// New creates a form over subject. The mode is inferred from the runtime
// shape of subject: a struct pointer or *Object gives object mode, a slice
// or slice pointer gives array mode and a map gives map mode.
//
// Children are tracked by identity, so every child must be comparable;
// pointer types such as *Field and *Form always are.
func New[S any](subject S, opts ...Option) (*Form[S], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	subj, err := newSubject(any(subject))
	if err != nil {
		return nil, err
	}
	for _, c := range subj.children() {
		if !comparableNode(c.Value) {
			return nil, fmt.Errorf("%w: child %q of type %T is not comparable", ErrUnsupportedSubject, c.Key, c.Value)
		}
	}
	f := &Form[S]{
		subject: subject,
		subj:    subj,
		name:    cfg.name,
		logger:  cfg.logger,
	}
	if f.name != "" {
		f.logger = f.logger.With(slog.String("form", f.name))
	}
	if cfg.compose {
		f.Compose()
	}
	if cfg.auto {
		f.EnableAutoValidation()
	}
	return f, nil
}

// MustNew is like New but panics on error.
func MustNew[S any](subject S, opts ...Option) *Form[S] {
	f, err := New(subject, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Subject returns the subject the form was created with.
func (f *Form[S]) Subject() S { return f.subject }

// Mode returns the mode inferred at construction.
func (f *Form[S]) Mode() Mode { return f.subj.mode() }

// Children returns the current children with their keys, in mode order.
func (f *Form[S]) Children() []Child { return f.subj.children() }

// Values returns the current children in mode order.
func (f *Form[S]) Values() []Validatable {
	children := f.subj.children()
	out := make([]Validatable, len(children))
	for i, c := range children {
		out[i] = c.Value
	}
	return out
}

// Validators replaces the form-level validator sequence.
func (f *Form[S]) Validators(vs ...Validator[S]) *Form[S] {
	f.mu.Lock()
	f.validators = slices.Clone(vs)
	f.mu.Unlock()
	return f
}

// Subscribe registers fn for change events and returns a function that
// removes it.
func (f *Form[S]) Subscribe(fn func(Event)) (unsubscribe func()) {
	return f.listeners.add(fn)
}

// update applies fn as one atomic change and publishes an event when fn
// reports a change.
func (f *Form[S]) update(reason Reason, fn func() bool) {
	f.mu.Lock()
	changed := fn()
	st := f.stateLocked()
	f.mu.Unlock()
	if changed {
		f.listeners.emit(Event{Reason: reason, State: st})
	}
}

func (f *Form[S]) stateLocked() State {
	return State{
		Validating:     f.validating,
		FormError:      f.formError,
		Validated:      len(f.validated),
		AutoValidation: f.autoValidation,
	}
}

// State returns a snapshot of the form's own state.
func (f *Form[S]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// Validate validates every child concurrently and, when all of them pass,
// runs the form-level validators against the subject.
func (f *Form[S]) Validate(ctx context.Context) (Outcome, error) {
	f.update(ReasonValidateStart, func() bool {
		f.validating = true
		return true
	})

	children := f.subj.children()
	f.logger.DebugContext(ctx, "validating form",
		slog.String("mode", f.subj.mode().String()),
		slog.Int("children", len(children)),
	)

	passed, err := validateChildren(ctx, children)
	if err != nil || !passed {
		f.finish(ctx, nil)
		return Fail(), err
	}

	msg, err := f.runValidators(ctx)
	if err != nil {
		f.finish(ctx, nil)
		return Fail(), faultAt("/", err)
	}
	f.finish(ctx, &msg)
	if msg != "" {
		return Fail(), nil
	}

	f.mu.Lock()
	parent := f.parent
	f.mu.Unlock()
	if parent != nil {
		parent.NotifyPass(ctx)
	}
	return Pass(f.subject), nil
}

// finish clears the validating flag and, when msg is non-nil, stores the
// form error in the same update.
func (f *Form[S]) finish(ctx context.Context, msg *string) {
	f.update(ReasonValidateEnd, func() bool {
		f.validating = false
		if msg != nil {
			f.formError = *msg
		}
		return true
	})
	f.logger.DebugContext(ctx, "form validated", slog.Bool("local_validators_ran", msg != nil))
}

// validateChildren starts every child validation before awaiting any of
// them and waits for all to complete.
func validateChildren(ctx context.Context, children []Child) (bool, error) {
	var g errgroup.Group
	results := make([]bool, len(children))
	for i, c := range children {
		g.Go(func() error {
			var out Outcome
			err := guard(func() (err error) {
				out, err = c.Value.Validate(ctx)
				return err
			})
			results[i] = out.OK()
			if err != nil {
				return faultAt(Root().Field(c.Key).Pointer(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return !slices.Contains(results, false), nil
}

// runValidators runs the form-level validators in order and returns the
// first non-empty message.
func (f *Form[S]) runValidators(ctx context.Context) (string, error) {
	f.mu.Lock()
	vs := f.validators
	f.mu.Unlock()
	for _, v := range vs {
		if v == nil {
			continue
		}
		var msg string
		err := guard(func() (err error) {
			msg, err = v(ctx, f.subject)
			return err
		})
		if err != nil {
			return "", err
		}
		if msg != "" {
			return msg, nil
		}
	}
	return "", nil
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Reset resets every child and clears the form error.
func (f *Form[S]) Reset() {
	for _, c := range f.subj.children() {
		c.Value.Reset()
	}
	f.update(ReasonReset, func() bool {
		changed := f.formError != ""
		f.formError = ""
		return changed
	})
}

// Reinit resets the form, forgets which children passed and tells the
// parent sink that this form was reinitialized.
func (f *Form[S]) Reinit(ctx context.Context) {
	f.Reset()
	var parent Sink
	f.update(ReasonReset, func() bool {
		changed := len(f.validated) > 0
		f.validated = nil
		parent = f.parent
		return changed
	})
	if parent != nil {
		parent.NotifyReinit(ctx)
	}
}

// ClearFormError clears the error set by the form-level validators.
func (f *Form[S]) ClearFormError() {
	f.update(ReasonFormErrorCleared, func() bool {
		changed := f.formError != ""
		f.formError = ""
		return changed
	})
}

// FieldError returns the error of the first child that has one.
func (f *Form[S]) FieldError() string {
	for _, c := range f.subj.children() {
		if c.Value.HasError() {
			return c.Value.ErrorText()
		}
	}
	return ""
}

// HasFieldError reports whether any child has an error.
func (f *Form[S]) HasFieldError() bool { return f.FieldError() != "" }

// FormError returns the error produced by the form-level validators.
func (f *Form[S]) FormError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.formError
}

// HasFormError reports whether the form-level validators left an error.
func (f *Form[S]) HasFormError() bool { return f.FormError() != "" }

// ErrorText returns the field error when there is one, else the form error.
func (f *Form[S]) ErrorText() string {
	if fe := f.FieldError(); fe != "" {
		return fe
	}
	return f.FormError()
}

// HasError reports whether ErrorText is non-empty.
func (f *Form[S]) HasError() bool { return f.HasFieldError() || f.HasFormError() }

// ShowFormError reports whether the form error should be displayed: it is
// suppressed while any child has an error.
func (f *Form[S]) ShowFormError() bool { return f.HasFormError() && !f.HasFieldError() }

// Validating reports whether a validation is in progress. It is advisory:
// overlapping Validate calls are not serialized.
func (f *Form[S]) Validating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validating
}

// AutoValidation reports whether auto-validation is enabled on the form.
func (f *Form[S]) AutoValidation() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoValidation
}

// EnableAutoValidation enables auto-validation on the form and, recursively,
// on every current child.
func (f *Form[S]) EnableAutoValidation() { f.setAutoValidation(true) }

// DisableAutoValidation is the recursive counterpart of EnableAutoValidation.
func (f *Form[S]) DisableAutoValidation() { f.setAutoValidation(false) }

func (f *Form[S]) setAutoValidation(on bool) {
	f.update(ReasonAutoValidation, func() bool {
		changed := f.autoValidation != on
		f.autoValidation = on
		return changed
	})
	for _, c := range f.subj.children() {
		if on {
			c.Value.EnableAutoValidation()
		} else {
			c.Value.DisableAutoValidation()
		}
	}
}

// EnableAutoValidationAndValidate enables auto-validation recursively and
// validates the form.
func (f *Form[S]) EnableAutoValidationAndValidate(ctx context.Context) (Outcome, error) {
	f.EnableAutoValidation()
	return f.Validate(ctx)
}

// SetCompositionParent installs the sink this form notifies when it passes
// validation or is reinitialized.
func (f *Form[S]) SetCompositionParent(s Sink) {
	f.mu.Lock()
	f.parent = s
	f.mu.Unlock()
}

var _ Composite = (*Form[*Object])(nil)
