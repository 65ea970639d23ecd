package formskema_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formskema "github.com/reoring/formskema"
)

func composedPair(t *testing.T, calls *atomic.Int32) (*pair, *formskema.Form[*pair]) {
	t.Helper()
	p := &pair{A: formskema.NewField("a"), B: formskema.NewField("b")}
	f, err := formskema.New(p, formskema.WithCompose())
	require.NoError(t, err)
	f.Validators(countingValidator[*pair](calls, ""))
	return p, f
}

func TestCascade_TriggersOnceAllChildrenPassed(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	p, f := composedPair(t, &calls)

	_, err := p.A.Validate(ctx)
	require.NoError(t, err)
	f.Wait()
	assert.EqualValues(t, 0, calls.Load(), "B has not passed yet")
	assert.Len(t, f.Validated(), 1)

	_, err = p.B.Validate(ctx)
	require.NoError(t, err)
	f.Wait()
	assert.EqualValues(t, 1, calls.Load())
	assert.False(t, f.Validating())
	assert.Len(t, f.Validated(), 2)
}

func TestCascade_ReinitRemovesChild(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	p, f := composedPair(t, &calls)

	_, err := p.A.Validate(ctx)
	require.NoError(t, err)
	_, err = p.B.Validate(ctx)
	require.NoError(t, err)
	f.Wait()
	require.EqualValues(t, 1, calls.Load())

	p.A.Reinit(ctx, "fresh")
	assert.Equal(t, []formskema.Validatable{p.B}, f.Validated())

	_, err = p.B.Validate(ctx)
	require.NoError(t, err)
	f.Wait()
	assert.EqualValues(t, 1, calls.Load(), "A must pass again before the form revalidates")
}

func TestCascade_BlockedByFieldError(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	p, f := composedPair(t, &calls)

	_, err := p.A.Validate(ctx)
	require.NoError(t, err)
	p.A.SetError("taken")

	_, err = p.B.Validate(ctx)
	require.NoError(t, err)
	f.Wait()
	assert.EqualValues(t, 0, calls.Load())
}

func TestCascade_ChildPassClearsFormError(t *testing.T) {
	ctx := context.Background()
	p := &pair{A: formskema.NewField("a"), B: formskema.NewField("b")}
	f := formskema.MustNew(p, formskema.WithCompose()).
		Validators(func(context.Context, *pair) (string, error) { return "mismatch", nil })

	_, err := f.Validate(ctx)
	require.NoError(t, err)
	f.Wait()
	require.Equal(t, "mismatch", f.FormError())

	// Reinit both so that A passing alone does not start a revalidation.
	p.A.Reinit(ctx, "a")
	p.B.Reinit(ctx, "b")
	_, err = p.A.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", f.FormError())
	f.Wait()
}

func TestCascade_PropagatesToGrandparent(t *testing.T) {
	ctx := context.Background()
	leaf := formskema.NewField("x")
	inner := formskema.MustNew([]*formskema.Field[string]{leaf}, formskema.WithCompose())
	outer := formskema.MustNew(formskema.NewObject().Set("inner", inner), formskema.WithCompose())

	var outerCalls atomic.Int32
	outer.Validators(countingValidator[*formskema.Object](&outerCalls, ""))

	_, err := leaf.Validate(ctx)
	require.NoError(t, err)
	inner.Wait()
	outer.Wait()

	assert.EqualValues(t, 1, outerCalls.Load())
	assert.Equal(t, []formskema.Validatable{inner}, outer.Validated())
}

func TestCascade_FaultIsPublished(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	leaf := formskema.NewField("x")
	f := formskema.MustNew([]*formskema.Field[string]{leaf}, formskema.WithCompose()).
		Validators(func(context.Context, []*formskema.Field[string]) (string, error) { return "", boom })

	var mu sync.Mutex
	var faults []error
	f.Subscribe(func(ev formskema.Event) {
		if ev.Reason == formskema.ReasonCascadeFault {
			mu.Lock()
			faults = append(faults, ev.Err)
			mu.Unlock()
		}
	})

	_, err := leaf.Validate(ctx)
	require.NoError(t, err)
	f.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], boom)
	assert.False(t, f.Validating())
}

func TestCascade_IgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var seen atomic.Value
	leaf := formskema.NewField("x")
	f := formskema.MustNew([]*formskema.Field[string]{leaf}, formskema.WithCompose()).
		Validators(func(ctx context.Context, _ []*formskema.Field[string]) (string, error) {
			seen.Store(ctx.Err() == nil)
			return "", nil
		})

	_, err := leaf.Validate(ctx)
	require.NoError(t, err)
	cancel()
	f.Wait()
	assert.Equal(t, true, seen.Load())
}

func TestCompose_PrunesRemovedChildren(t *testing.T) {
	ctx := context.Background()
	a, b := formskema.NewField("a"), formskema.NewField("b")
	obj := formskema.NewObject().Set("a", a).Set("b", b)
	f := formskema.MustNew(obj, formskema.WithCompose())

	_, err := a.Validate(ctx)
	require.NoError(t, err)
	require.Len(t, f.Validated(), 1)

	obj.Delete("a")
	f.Compose()
	assert.Empty(t, f.Validated())

	c := formskema.NewField("c")
	obj.Set("c", c)
	f.Compose()
	_, err = b.Validate(ctx)
	require.NoError(t, err)
	_, err = c.Validate(ctx)
	require.NoError(t, err)
	f.Wait()
	assert.Len(t, f.Validated(), 2)
}

func TestStandaloneChildDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	p := &pair{A: formskema.NewField("a"), B: formskema.NewField("b")}
	f := formskema.MustNew(p)

	_, err := p.A.Validate(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.Validated())

	f.Compose()
	p.A.SetCompositionParent(nil)
	_, err = p.A.Validate(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.Validated())
}

func TestFormReinit_NotifiesParent(t *testing.T) {
	ctx := context.Background()
	leaf := formskema.NewField("", nonEmpty("required"))
	inner := formskema.MustNew([]*formskema.Field[string]{leaf}, formskema.WithCompose())
	other := formskema.NewField("x")
	outer := formskema.MustNew(formskema.NewObject().Set("inner", inner).Set("other", other), formskema.WithCompose())

	require.NoError(t, leaf.Set(ctx, "filled"))
	out, err := inner.Validate(ctx)
	require.NoError(t, err)
	require.True(t, out.OK())
	inner.Wait()
	outer.Wait()
	require.Equal(t, []formskema.Validatable{inner}, outer.Validated())

	inner.Reinit(ctx)
	assert.Empty(t, outer.Validated())
	assert.Empty(t, inner.Validated())
	assert.Equal(t, "", leaf.Value())
	assert.False(t, inner.HasError())
}

func TestAutoValidation_SetValidatesAndCascades(t *testing.T) {
	ctx := context.Background()
	p := &pair{A: formskema.NewField("", nonEmpty("a required")), B: formskema.NewField("", nonEmpty("b required"))}
	f, err := formskema.New(p, formskema.WithCompose(), formskema.WithAutoValidation())
	require.NoError(t, err)
	var calls atomic.Int32
	f.Validators(countingValidator[*pair](&calls, ""))
	require.True(t, p.A.AutoValidation())

	require.NoError(t, p.A.Set(ctx, ""))
	assert.Equal(t, "a required", p.A.ErrorText())
	require.NoError(t, p.B.Set(ctx, ""))
	assert.Equal(t, "b required", p.B.ErrorText())
	assert.Equal(t, "a required", f.ErrorText())

	require.NoError(t, p.A.Set(ctx, "x"))
	assert.False(t, p.A.HasError())
	f.Wait()
	assert.EqualValues(t, 0, calls.Load(), "B still fails")

	require.NoError(t, p.B.Set(ctx, "y"))
	assert.False(t, p.B.HasError())
	f.Wait()
	assert.EqualValues(t, 1, calls.Load())
	assert.False(t, f.HasError())
	assert.Len(t, f.Validated(), 2)
}
