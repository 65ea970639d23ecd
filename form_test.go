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

func fails(msg string) formskema.Rule[string] {
	return func(context.Context, string) (string, error) { return msg, nil }
}

func nonEmpty(msg string) formskema.Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if v == "" {
			return msg, nil
		}
		return "", nil
	}
}

// countingValidator counts its calls and returns msg.
func countingValidator[S any](n *atomic.Int32, msg string) formskema.Validator[S] {
	return func(context.Context, S) (string, error) {
		n.Add(1)
		return msg, nil
	}
}

type pair struct {
	A *formskema.Field[string] `form:"a"`
	B *formskema.Field[string] `form:"b"`
}

func TestValidate_AllChildrenPass(t *testing.T) {
	ctx := context.Background()
	p := &pair{A: formskema.NewField("x", nonEmpty("required")), B: formskema.NewField("y")}
	f := formskema.MustNew(p)

	out, err := f.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Same(t, p, out.Value())
	assert.False(t, f.HasError())
	assert.False(t, f.Validating())
	assert.Equal(t, "", f.FormError())
}

func TestValidate_FieldErrorSkipsLocalValidators(t *testing.T) {
	ctx := context.Background()
	p := &pair{A: formskema.NewField("", nonEmpty("required")), B: formskema.NewField("ok")}
	f := formskema.MustNew(p)

	var calls atomic.Int32
	f.Validators(countingValidator[*pair](&calls, "form broken"))

	// First run: make A pass so the form error gets set.
	require.NoError(t, p.A.Set(ctx, "filled"))
	out, err := f.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.Equal(t, "form broken", f.FormError())
	assert.EqualValues(t, 1, calls.Load())

	// Second run: A fails, local validators are skipped and the form error
	// is neither cleared nor replaced.
	require.NoError(t, p.A.Set(ctx, ""))
	out, err = f.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.Nil(t, out.Value())
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "form broken", f.FormError())
	assert.Equal(t, "required", f.FieldError())
	assert.Equal(t, "required", f.ErrorText())
}

func TestValidate_FieldWithErrorScenario(t *testing.T) {
	ctx := context.Background()
	p := &pair{A: formskema.NewField("", fails("required")), B: formskema.NewField("ok")}
	f := formskema.MustNew(p)

	out, err := f.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.True(t, f.HasError())
	assert.Equal(t, "required", f.FieldError())
	assert.Equal(t, "", f.FormError())
}

func TestValidate_ChildValidationsRunConcurrently(t *testing.T) {
	const n = 4
	var started sync.WaitGroup
	started.Add(n)
	barrier := func(context.Context, string) (string, error) {
		started.Done()
		started.Wait() // blocks unless every child was started
		return "", nil
	}
	items := make([]*formskema.Field[string], n)
	for i := range items {
		items[i] = formskema.NewField("v", barrier)
	}
	f := formskema.MustNew(items)

	out, err := f.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, out.OK())
}

func TestValidate_EveryChildRunsDespiteFailure(t *testing.T) {
	var calls atomic.Int32
	counted := func(msg string) formskema.Rule[string] {
		return func(context.Context, string) (string, error) {
			calls.Add(1)
			return msg, nil
		}
	}
	f := formskema.MustNew([]formskema.Validatable{
		formskema.NewField("", counted("bad")),
		formskema.NewField("", counted("")),
		formskema.NewField("", counted("bad too")),
	})

	out, err := f.Validate(context.Background())
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, "bad", f.FieldError())
}

func TestShowFormError(t *testing.T) {
	ctx := context.Background()
	p := &pair{A: formskema.NewField("x"), B: formskema.NewField("y")}
	f := formskema.MustNew(p).Validators(func(context.Context, *pair) (string, error) {
		return "mismatch", nil
	})

	t.Run("no child error and form error set", func(t *testing.T) {
		out, err := f.Validate(ctx)
		require.NoError(t, err)
		assert.False(t, out.OK())
		assert.True(t, f.HasFormError())
		assert.False(t, f.HasFieldError())
		assert.True(t, f.ShowFormError())
		assert.Equal(t, "mismatch", f.ErrorText())
	})

	t.Run("one child error hides the form error", func(t *testing.T) {
		p.A.SetError("required")
		assert.True(t, f.HasFormError())
		assert.True(t, f.HasFieldError())
		assert.False(t, f.ShowFormError())
		assert.True(t, f.HasError())
		assert.Equal(t, "required", f.ErrorText())
	})
}

func TestValidators_ReplaceSequence(t *testing.T) {
	ctx := context.Background()
	f := formskema.MustNew(&pair{A: formskema.NewField("x"), B: formskema.NewField("y")})

	var first, second atomic.Int32
	f.Validators(countingValidator[*pair](&first, "first"), countingValidator[*pair](&second, "second"))
	_, err := f.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", f.FormError())
	assert.EqualValues(t, 0, second.Load(), "later validators are not run after a failure")

	f.Validators(countingValidator[*pair](&second, ""))
	out, err := f.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.EqualValues(t, 1, first.Load())
	assert.Equal(t, "", f.FormError())
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	p := &pair{A: formskema.NewField("", nonEmpty("required")), B: formskema.NewField("y")}
	f := formskema.MustNew(p)

	_, err := f.Validate(ctx)
	require.NoError(t, err)
	require.True(t, f.HasError())

	f.Reset()
	assert.False(t, f.HasError())
	assert.Equal(t, "", p.A.Value())
}

func TestClearFormError(t *testing.T) {
	f := formskema.MustNew(&pair{A: formskema.NewField("x"), B: formskema.NewField("y")}).
		Validators(func(context.Context, *pair) (string, error) { return "nope", nil })
	_, err := f.Validate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "nope", f.FormError())

	f.ClearFormError()
	assert.Equal(t, "", f.FormError())
	assert.False(t, f.HasError())
}

func TestValidate_Faults(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("local validator error", func(t *testing.T) {
		f := formskema.MustNew(&pair{A: formskema.NewField("x"), B: formskema.NewField("y")})
		f.Validators(func(context.Context, *pair) (string, error) { return "", boom })

		out, err := f.Validate(ctx)
		assert.False(t, out.OK())
		require.ErrorIs(t, err, formskema.ErrFault)
		assert.ErrorIs(t, err, boom)
		assert.False(t, f.Validating())
		assert.Equal(t, "", f.FormError())
	})

	t.Run("child rule panics", func(t *testing.T) {
		p := &pair{
			A: formskema.NewField("x", func(context.Context, string) (string, error) { panic("kaput") }),
			B: formskema.NewField("y"),
		}
		f := formskema.MustNew(p)

		out, err := f.Validate(ctx)
		assert.False(t, out.OK())
		var fe *formskema.FaultError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "/a", fe.Path)
		assert.Contains(t, fe.Cause.Error(), "kaput")
		assert.False(t, f.Validating())
	})

	t.Run("nested fault keeps the full path", func(t *testing.T) {
		inner := formskema.MustNew(map[string]*formskema.Field[string]{
			"city": formskema.NewField("x", func(context.Context, string) (string, error) { return "", boom }),
		})
		outer := formskema.MustNew(formskema.NewObject().Set("address", inner))

		_, err := outer.Validate(ctx)
		var fe *formskema.FaultError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "/address/city", fe.Path)
		assert.ErrorIs(t, err, boom)
	})
}

func TestNestedForms(t *testing.T) {
	ctx := context.Background()
	inner := formskema.MustNew([]*formskema.Field[string]{
		formskema.NewField("", nonEmpty("street required")),
	})
	outer := formskema.MustNew(formskema.NewObject().
		Set("name", formskema.NewField("Ada")).
		Set("address", inner))

	out, err := outer.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.Equal(t, "street required", outer.FieldError())

	iss := formskema.Collect(outer)
	require.Len(t, iss, 1)
	assert.Equal(t, "/address/0", iss[0].Path)
	assert.Equal(t, formskema.CodeField, iss[0].Code)
}

func TestAutoValidation_Recurses(t *testing.T) {
	a := formskema.NewField("")
	inner := formskema.MustNew([]*formskema.Field[string]{formskema.NewField("")})
	f := formskema.MustNew(formskema.NewObject().Set("a", a).Set("inner", inner))

	f.EnableAutoValidation()
	assert.True(t, f.AutoValidation())
	assert.True(t, a.AutoValidation())
	assert.True(t, inner.AutoValidation())
	assert.True(t, inner.Values()[0].(*formskema.Field[string]).AutoValidation())

	f.DisableAutoValidation()
	assert.False(t, f.AutoValidation())
	assert.False(t, a.AutoValidation())
	assert.False(t, inner.AutoValidation())
}

func TestEnableAutoValidationAndValidate(t *testing.T) {
	a := formskema.NewField("", nonEmpty("required"))
	f := formskema.MustNew([]*formskema.Field[string]{a})

	out, err := f.EnableAutoValidationAndValidate(context.Background())
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.True(t, a.AutoValidation())

	// With auto-validation on, Set validates immediately.
	require.NoError(t, a.Set(context.Background(), "filled"))
	assert.False(t, a.HasError())
}

func TestSubscribe(t *testing.T) {
	f := formskema.MustNew(&pair{A: formskema.NewField("x"), B: formskema.NewField("y")}).
		Validators(func(context.Context, *pair) (string, error) { return "bad", nil })

	var mu sync.Mutex
	var events []formskema.Event
	unsubscribe := f.Subscribe(func(ev formskema.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	_, err := f.Validate(context.Background())
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, events, 2)
	assert.Equal(t, formskema.ReasonValidateStart, events[0].Reason)
	assert.True(t, events[0].State.Validating)
	assert.Equal(t, formskema.ReasonValidateEnd, events[1].Reason)
	assert.False(t, events[1].State.Validating)
	assert.Equal(t, "bad", events[1].State.FormError)
	mu.Unlock()

	unsubscribe()
	f.ClearFormError()
	mu.Lock()
	assert.Len(t, events, 2)
	mu.Unlock()
}

func TestNew_Errors(t *testing.T) {
	_, err := formskema.New[any](nil)
	assert.ErrorIs(t, err, formskema.ErrNilSubject)

	_, err = formskema.New([]string{"a"})
	assert.ErrorIs(t, err, formskema.ErrUnsupportedSubject)

	_, err = formskema.New(42)
	assert.ErrorIs(t, err, formskema.ErrUnsupportedSubject)

	var nilMap map[string]formskema.Validatable
	_, err = formskema.New(nilMap)
	assert.ErrorIs(t, err, formskema.ErrNilSubject)

	assert.Panics(t, func() { formskema.MustNew(3.14) })
}
