package formskema

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"sync"
)

// Rule checks a single field value. It returns an error message, or ""
// when the value is valid. A non-nil error is a fault.
type Rule[T any] func(ctx context.Context, v T) (string, error)

// Valuer exposes a field's value without its type parameter.
type Valuer interface {
	AnyValue() any
}

// Setter accepts an untyped value, converting it to the field's type.
type Setter interface {
	SetAny(ctx context.Context, v any) error
}

// Field is a leaf validatable holding a value of type T.
type Field[T any] struct {
	mu      sync.Mutex
	value   T
	initial T
	err     string
	rules   []Rule[T]
	auto    bool
	parent  Sink
}

// NewField returns a field holding initial and validated by rules in order.
func NewField[T any](initial T, rules ...Rule[T]) *Field[T] {
	return &Field[T]{value: initial, initial: initial, rules: slices.Clone(rules)}
}

// Value returns the current value.
func (f *Field[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// AnyValue returns Value as an untyped value.
func (f *Field[T]) AnyValue() any { return f.Value() }

// Set stores v. With auto-validation enabled the field validates at once.
func (f *Field[T]) Set(ctx context.Context, v T) error {
	f.mu.Lock()
	f.value = v
	auto := f.auto
	f.mu.Unlock()
	if auto {
		_, err := f.Validate(ctx)
		return err
	}
	return nil
}

// SetAny converts v to T and stores it. Numbers are converted between
// numeric kinds, and strings are parsed for numeric and boolean fields.
func (f *Field[T]) SetAny(ctx context.Context, v any) error {
	tv, err := Coerce[T](v)
	if err != nil {
		return err
	}
	return f.Set(ctx, tv)
}

// Rules replaces the rule sequence.
func (f *Field[T]) Rules(rules ...Rule[T]) *Field[T] {
	f.mu.Lock()
	f.rules = slices.Clone(rules)
	f.mu.Unlock()
	return f
}

// SetError stores msg as the field error, as when an external check (for
// example a server response) rejects the value.
func (f *Field[T]) SetError(msg string) {
	f.mu.Lock()
	f.err = msg
	f.mu.Unlock()
}

// ErrorText returns the stored field error.
func (f *Field[T]) ErrorText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// HasError reports whether ErrorText is non-empty.
func (f *Field[T]) HasError() bool { return f.ErrorText() != "" }

// Validate runs the rules in order; the first message becomes the field
// error. A passing field notifies its composition parent.
func (f *Field[T]) Validate(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	v := f.value
	rules := f.rules
	f.mu.Unlock()

	var msg string
	for _, r := range rules {
		if r == nil {
			continue
		}
		err := guard(func() (err error) {
			msg, err = r(ctx, v)
			return err
		})
		if err != nil {
			return Fail(), &FaultError{Path: "/", Cause: err}
		}
		if msg != "" {
			break
		}
	}

	f.mu.Lock()
	f.err = msg
	parent := f.parent
	f.mu.Unlock()
	if msg != "" {
		return Fail(), nil
	}
	if parent != nil {
		parent.NotifyPass(ctx)
	}
	return Pass(v), nil
}

// Reset restores the initial value and clears the error.
func (f *Field[T]) Reset() {
	f.mu.Lock()
	f.value = f.initial
	f.err = ""
	f.mu.Unlock()
}

// Reinit replaces the initial value, resets the field and notifies the
// composition parent that the field must be validated again.
func (f *Field[T]) Reinit(ctx context.Context, initial T) {
	f.mu.Lock()
	f.initial = initial
	f.value = initial
	f.err = ""
	parent := f.parent
	f.mu.Unlock()
	if parent != nil {
		parent.NotifyReinit(ctx)
	}
}

// AutoValidation reports whether Set validates immediately.
func (f *Field[T]) AutoValidation() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auto
}

// EnableAutoValidation makes Set validate immediately.
func (f *Field[T]) EnableAutoValidation() { f.setAuto(true) }

// DisableAutoValidation makes Set store values without validating.
func (f *Field[T]) DisableAutoValidation() { f.setAuto(false) }

func (f *Field[T]) setAuto(on bool) {
	f.mu.Lock()
	f.auto = on
	f.mu.Unlock()
}

// SetCompositionParent installs the sink notified on pass and reinit.
func (f *Field[T]) SetCompositionParent(s Sink) {
	f.mu.Lock()
	f.parent = s
	f.mu.Unlock()
}

var (
	_ Validatable = (*Field[string])(nil)
	_ Setter      = (*Field[string])(nil)
	_ Valuer      = (*Field[string])(nil)
)

// Coerce converts v to T, accepting the conversions JSON and YAML decoding
// make necessary (float64/int to any numeric kind, strings to numbers and
// booleans). A nil v yields the zero value.
func Coerce[T any](v any) (T, error) {
	var zero T
	if tv, ok := v.(T); ok {
		return tv, nil
	}
	target := reflect.TypeFor[T]()
	if v == nil {
		return zero, nil
	}
	rv := reflect.ValueOf(v)
	if s, ok := v.(string); ok {
		parsed, err := parseString(s, target)
		if err != nil {
			return zero, err
		}
		rv = parsed
	}
	if isNumber(rv.Kind()) && isNumber(target.Kind()) {
		if !fitsNumber(rv, target) {
			return zero, fmt.Errorf("formskema: cannot use %v (%T) as %s: out of range or not a whole number", v, v, target)
		}
		return rv.Convert(target).Interface().(T), nil
	}
	if rv.Type().ConvertibleTo(target) && rv.Kind() == target.Kind() {
		return rv.Convert(target).Interface().(T), nil
	}
	if rv.Type().AssignableTo(target) {
		return rv.Interface().(T), nil
	}
	return zero, fmt.Errorf("formskema: cannot use %T as %s", v, target)
}

func parseString(s string, target reflect.Type) (reflect.Value, error) {
	switch {
	case target.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("formskema: %q is not a bool: %w", s, err)
		}
		return reflect.ValueOf(b), nil
	case isNumber(target.Kind()):
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("formskema: %q is not a number: %w", s, err)
		}
		return reflect.ValueOf(n), nil
	}
	return reflect.ValueOf(s), nil
}

// fitsNumber reports whether the numeric rv converts to target without
// wrapping or truncation.
func fitsNumber(rv reflect.Value, target reflect.Type) bool {
	dst := reflect.New(target).Elem()
	switch {
	case isFloat(target.Kind()):
		switch {
		case isFloat(rv.Kind()):
			return !dst.OverflowFloat(rv.Float())
		case isInt(rv.Kind()):
			return !dst.OverflowFloat(float64(rv.Int()))
		default:
			return !dst.OverflowFloat(float64(rv.Uint()))
		}
	case isInt(target.Kind()):
		switch {
		case isFloat(rv.Kind()):
			f := rv.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return false
			}
			return !dst.OverflowInt(int64(f))
		case isInt(rv.Kind()):
			return !dst.OverflowInt(rv.Int())
		default:
			u := rv.Uint()
			return u <= math.MaxInt64 && !dst.OverflowInt(int64(u))
		}
	default:
		switch {
		case isFloat(rv.Kind()):
			f := rv.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return false
			}
			return !dst.OverflowUint(uint64(f))
		case isInt(rv.Kind()):
			n := rv.Int()
			return n >= 0 && !dst.OverflowUint(uint64(n))
		default:
			return !dst.OverflowUint(rv.Uint())
		}
	}
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
