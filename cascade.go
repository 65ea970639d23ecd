package formskema

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// link is the sink a form installs into one composed child.
type link[S any] struct {
	form  *Form[S]
	child Validatable
}

func (l *link[S]) NotifyPass(ctx context.Context)   { l.form.childPassed(ctx, l.child) }
func (l *link[S]) NotifyReinit(ctx context.Context) { l.form.childReinit(l.child) }

// Compose installs the form as the composition parent of every current
// child. Children added later are not wired until Compose is called again.
// Compose must not run concurrently with changes to the child collection.
// Children that are not comparable cannot be tracked and are left
// standalone.
func (f *Form[S]) Compose() {
	children := f.subj.children()
	for _, c := range children {
		if !comparableNode(c.Value) {
			f.logger.Warn("child is not comparable, left standalone",
				slog.String("key", c.Key),
				slog.String("type", fmt.Sprintf("%T", c.Value)),
			)
			continue
		}
		c.Value.SetCompositionParent(&link[S]{form: f, child: c.Value})
	}
	f.update(ReasonComposed, func() bool {
		n := len(f.validated)
		f.validated = pruneValidated(f.validated, children)
		return n != len(f.validated)
	})
}

// Validated returns the children that passed since their last reinit, in
// the order they first passed. Children no longer in the collection are
// dropped.
func (f *Form[S]) Validated() []Validatable {
	children := f.subj.children()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated = pruneValidated(f.validated, children)
	return slices.Clone(f.validated)
}

func (f *Form[S]) childReinit(child Validatable) {
	f.update(ReasonChildReinit, func() bool {
		n := len(f.validated)
		f.validated = slices.DeleteFunc(f.validated, func(v Validatable) bool { return sameNode(v, child) })
		return n != len(f.validated)
	})
}

func (f *Form[S]) childPassed(ctx context.Context, child Validatable) {
	f.update(ReasonChildPassed, func() bool {
		f.formError = ""
		if !containsNode(f.validated, child) {
			f.validated = append(f.validated, child)
		}
		return true
	})
	if f.claimCascade() {
		f.cascade(ctx)
	}
}

// claimCascade reports whether every current child has passed while the
// form has no field error and is not validating. On success it marks the
// form as validating so that concurrent passes cannot start a second run.
func (f *Form[S]) claimCascade() bool {
	if f.HasFieldError() {
		return false
	}
	children := f.subj.children()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.validating {
		return false
	}
	f.validated = pruneValidated(f.validated, children)
	for _, c := range children {
		if !containsNode(f.validated, c.Value) {
			return false
		}
	}
	f.validating = true
	return true
}

// cascade revalidates the form in the background. The caller's
// cancellation does not reach the revalidation; Wait blocks until it is
// done.
func (f *Form[S]) cascade(ctx context.Context) {
	f.logger.DebugContext(ctx, "all children passed, revalidating form")
	ctx = context.WithoutCancel(ctx)
	f.cascades.Add(1)
	go func() {
		defer f.cascades.Done()
		if _, err := f.Validate(ctx); err != nil {
			f.logger.ErrorContext(ctx, "cascade validation faulted", slog.Any("error", err))
			f.listeners.emit(Event{Reason: ReasonCascadeFault, State: f.State(), Err: err})
		}
	}()
}

// Wait blocks until background revalidations started by the cascade have
// finished.
func (f *Form[S]) Wait() { f.cascades.Wait() }

func containsNode(set []Validatable, v Validatable) bool {
	return slices.ContainsFunc(set, func(x Validatable) bool { return sameNode(x, v) })
}

// pruneValidated keeps only the entries that are still children.
func pruneValidated(set []Validatable, children []Child) []Validatable {
	return slices.DeleteFunc(set, func(v Validatable) bool {
		return !slices.ContainsFunc(children, func(c Child) bool { return sameNode(c.Value, v) })
	})
}
