package rules

import (
	"cmp"
	"context"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	formskema "github.com/reoring/formskema"
	"github.com/reoring/formskema/i18n"
)

// Rule codes, resolved to messages through the i18n package.
const (
	CodeRequired     = "required"
	CodeTooShort     = "too_short"
	CodeTooLong      = "too_long"
	CodeTooSmall     = "too_small"
	CodeTooBig       = "too_big"
	CodePattern      = "pattern"
	CodeInvalidEmail = "invalid_email"
	CodeInvalidEnum  = "invalid_enum"
	CodeMismatch     = "mismatch"
	CodeAtLeastOne   = "at_least_one"
	CodeTaken        = "taken"
)

func pass(ok bool, code string, data map[string]string) (string, error) {
	if ok {
		return "", nil
	}
	return i18n.T(code, data), nil
}

// Required rejects the zero value. Strings made only of white space count
// as empty.
func Required[T comparable]() formskema.Rule[T] {
	return func(_ context.Context, v T) (string, error) {
		var zero T
		if s, ok := any(v).(string); ok {
			return pass(strings.TrimSpace(s) != "", CodeRequired, nil)
		}
		return pass(v != zero, CodeRequired, nil)
	}
}

// MinLen requires at least n characters. Empty strings pass; combine with
// Required to reject them.
func MinLen(n int) formskema.Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		return pass(v == "" || utf8.RuneCountInString(v) >= n, CodeTooShort, map[string]string{"min": strconv.Itoa(n)})
	}
}

// MaxLen allows at most n characters.
func MaxLen(n int) formskema.Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		return pass(utf8.RuneCountInString(v) <= n, CodeTooLong, map[string]string{"max": strconv.Itoa(n)})
	}
}

// Pattern requires non-empty values to match re.
func Pattern(re *regexp.Regexp) formskema.Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		return pass(v == "" || re.MatchString(v), CodePattern, map[string]string{"pattern": re.String()})
	}
}

// Email requires non-empty values to be a bare RFC 5322 address.
func Email() formskema.Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if v == "" {
			return "", nil
		}
		addr, err := mail.ParseAddress(v)
		return pass(err == nil && addr.Address == v, CodeInvalidEmail, nil)
	}
}

// OneOf requires the value to be one of values.
func OneOf[T comparable](values ...T) formskema.Rule[T] {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	joined := strings.Join(parts, ", ")
	return func(_ context.Context, v T) (string, error) {
		for _, want := range values {
			if v == want {
				return "", nil
			}
		}
		return i18n.T(CodeInvalidEnum, map[string]string{"values": joined}), nil
	}
}

// Min requires v >= n.
func Min[T cmp.Ordered](n T) formskema.Rule[T] {
	return func(_ context.Context, v T) (string, error) {
		return pass(cmp.Compare(v, n) >= 0, CodeTooSmall, map[string]string{"min": fmt.Sprint(n)})
	}
}

// Max requires v <= n.
func Max[T cmp.Ordered](n T) formskema.Rule[T] {
	return func(_ context.Context, v T) (string, error) {
		return pass(cmp.Compare(v, n) <= 0, CodeTooBig, map[string]string{"max": fmt.Sprint(n)})
	}
}

// WithMessage replaces the message of r when it fails.
func WithMessage[T any](r formskema.Rule[T], msg string) formskema.Rule[T] {
	return func(ctx context.Context, v T) (string, error) {
		got, err := r(ctx, v)
		if err != nil || got == "" {
			return got, err
		}
		return msg, nil
	}
}

// Availability reports whether a value is still free, for example a user
// name checked against a directory. Install one with formskema.WithService.
type Availability[T any] interface {
	Available(ctx context.Context, v T) (bool, error)
}

// Available rejects non-zero values the Availability[T] service from ctx
// reports as taken. A missing service or a lookup error is a fault.
func Available[T comparable]() formskema.Rule[T] {
	return func(ctx context.Context, v T) (string, error) {
		var zero T
		if v == zero {
			return "", nil
		}
		svc, err := formskema.RequireService[Availability[T]](ctx)
		if err != nil {
			return "", err
		}
		ok, err := svc.Available(ctx, v)
		if err != nil {
			return "", err
		}
		return pass(ok, CodeTaken, nil)
	}
}

// ------- form-level validators -------

// Equal requires the values of fields a and b to be equal.
func Equal(a, b string) formskema.Validator[*formskema.Object] {
	return func(_ context.Context, o *formskema.Object) (string, error) {
		vals := o.Values()
		return pass(reflect.DeepEqual(vals[a], vals[b]), CodeMismatch, map[string]string{"a": a, "b": b})
	}
}

// AtLeastOne requires at least one of keys to hold a non-zero value.
func AtLeastOne(keys ...string) formskema.Validator[*formskema.Object] {
	joined := strings.Join(keys, ", ")
	return func(_ context.Context, o *formskema.Object) (string, error) {
		vals := o.Values()
		for _, k := range keys {
			v, ok := vals[k]
			if !ok || v == nil {
				continue
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			if !reflect.ValueOf(v).IsZero() {
				return "", nil
			}
		}
		return i18n.T(CodeAtLeastOne, map[string]string{"keys": joined}), nil
	}
}
