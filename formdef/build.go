package formdef

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"

	formskema "github.com/reoring/formskema"
	"github.com/reoring/formskema/rules"
)

// Build turns a definition into a composed tree. Every composite is
// composed over its children, so the auto-validation cascade is active at
// every level. opts apply to every composite in the tree.
func Build(def *Definition, opts ...formskema.Option) (formskema.Composite, error) {
	return build(def, "/", opts)
}

func build(def *Definition, path string, opts []formskema.Option) (formskema.Composite, error) {
	local := append(slices.Clone(opts), formskema.WithCompose())
	if def.Name != "" {
		local = append(local, formskema.WithName(def.Name))
	}
	switch def.kind() {
	case KindArray:
		items := make([]formskema.Validatable, 0, len(def.Fields))
		for i, fd := range def.Fields {
			v, err := buildChild(fd, childPath(path, fd.Name, i, KindArray), opts)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		f, err := formskema.New(items, local...)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindMap:
		items := make(map[string]formskema.Validatable, len(def.Fields))
		for i, fd := range def.Fields {
			v, err := buildChild(fd, childPath(path, fd.Name, i, KindMap), opts)
			if err != nil {
				return nil, err
			}
			items[fd.Name] = v
		}
		f, err := formskema.New(items, local...)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		obj := formskema.NewObject()
		for i, fd := range def.Fields {
			v, err := buildChild(fd, childPath(path, fd.Name, i, KindObject), opts)
			if err != nil {
				return nil, err
			}
			obj.Set(fd.Name, v)
		}
		validators := make([]formskema.Validator[*formskema.Object], 0, len(def.Rules))
		for _, rd := range def.Rules {
			v, err := formRule(rd, path)
			if err != nil {
				return nil, err
			}
			validators = append(validators, v)
		}
		f, err := formskema.New(obj, local...)
		if err != nil {
			return nil, err
		}
		return f.Validators(validators...), nil
	}
}

func buildChild(fd FieldDef, path string, opts []formskema.Option) (formskema.Validatable, error) {
	if fd.Form != nil {
		return build(fd.Form, path, opts)
	}
	switch fd.fieldType() {
	case TypeNumber:
		return buildField(fd, path, numberRule)
	case TypeBool:
		return buildField(fd, path, boolRule)
	default:
		return buildField(fd, path, stringRule)
	}
}

func buildField[T comparable](fd FieldDef, path string, rule func(RuleDef) (formskema.Rule[T], error)) (formskema.Validatable, error) {
	rs := make([]formskema.Rule[T], 0, len(fd.Rules))
	for _, rd := range fd.Rules {
		r, err := rule(rd)
		if err != nil {
			return nil, fmt.Errorf("%w at %s: %w", ErrInvalidDefinition, path, err)
		}
		if rd.Message != "" {
			r = rules.WithMessage(r, rd.Message)
		}
		rs = append(rs, r)
	}
	initial, err := formskema.Coerce[T](fd.Default)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: default: %w", ErrInvalidDefinition, path, err)
	}
	return formskema.NewField(initial, rs...), nil
}

func stringRule(rd RuleDef) (formskema.Rule[string], error) {
	switch rd.Rule {
	case "required":
		return rules.Required[string](), nil
	case "min_len":
		n, err := intValue(rd)
		return rules.MinLen(n), err
	case "max_len":
		n, err := intValue(rd)
		return rules.MaxLen(n), err
	case "pattern":
		s, ok := rd.Value.(string)
		if !ok {
			return nil, fmt.Errorf("rule %q needs a string value", rd.Rule)
		}
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rd.Rule, err)
		}
		return rules.Pattern(re), nil
	case "email":
		return rules.Email(), nil
	case "one_of":
		list, ok := rd.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("rule %q needs a list value", rd.Rule)
		}
		values := make([]string, len(list))
		for i, v := range list {
			values[i] = fmt.Sprint(v)
		}
		return rules.OneOf(values...), nil
	}
	return nil, fmt.Errorf("unknown string rule %q", rd.Rule)
}

func numberRule(rd RuleDef) (formskema.Rule[float64], error) {
	switch rd.Rule {
	case "required":
		return rules.Required[float64](), nil
	case "min":
		n, err := floatValue(rd)
		return rules.Min(n), err
	case "max":
		n, err := floatValue(rd)
		return rules.Max(n), err
	}
	return nil, fmt.Errorf("unknown number rule %q", rd.Rule)
}

func boolRule(rd RuleDef) (formskema.Rule[bool], error) {
	switch rd.Rule {
	case "required":
		return rules.Required[bool](), nil
	}
	return nil, fmt.Errorf("unknown bool rule %q", rd.Rule)
}

func formRule(rd RuleDef, path string) (formskema.Validator[*formskema.Object], error) {
	var v formskema.Validator[*formskema.Object]
	switch rd.Rule {
	case "equal":
		if len(rd.Fields) != 2 {
			return nil, fmt.Errorf("%w at %s: rule %q needs exactly two fields", ErrInvalidDefinition, path, rd.Rule)
		}
		v = rules.Equal(rd.Fields[0], rd.Fields[1])
	case "at_least_one":
		if len(rd.Fields) == 0 {
			return nil, fmt.Errorf("%w at %s: rule %q needs fields", ErrInvalidDefinition, path, rd.Rule)
		}
		v = rules.AtLeastOne(rd.Fields...)
	default:
		return nil, fmt.Errorf("%w at %s: unknown form rule %q", ErrInvalidDefinition, path, rd.Rule)
	}
	if rd.Message != "" {
		inner := v
		v = func(ctx context.Context, o *formskema.Object) (string, error) {
			msg, err := inner(ctx, o)
			if err != nil || msg == "" {
				return msg, err
			}
			return rd.Message, nil
		}
	}
	return v, nil
}

func intValue(rd RuleDef) (int, error) {
	f, err := floatValue(rd)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("rule %q needs a whole number, got %v", rd.Rule, rd.Value)
	}
	return int(f), nil
}

// floatValue reads a numeric rule argument; YAML yields int, JSON float64.
func floatValue(rd RuleDef) (float64, error) {
	switch v := rd.Value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("rule %q: %w", rd.Rule, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("rule %q needs a numeric value, got %T", rd.Rule, rd.Value)
}
