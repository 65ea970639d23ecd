package formdef

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	formskema "github.com/reoring/formskema"
)

// DecodeData decodes a JSON or YAML document into JSON-like Go values
// (map[string]any, []any and primitives). JSON documents with repeated
// object keys are rejected with ErrDuplicateKey.
func DecodeData(data []byte, format Format) (any, error) {
	var v any
	switch format {
	case FormatJSON:
		if err := checkDuplicateKeys(data); err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("formdef: decoding data: %w", err)
		}
		return v, nil
	default:
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("formdef: decoding data: %w", err)
		}
		return yamlNormalizeValue(v), nil
	}
}

// LoadData reads and decodes the data file at path.
func LoadData(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("formdef: reading data: %w", err)
	}
	return DecodeData(data, FormatOf(path))
}

// Bind assigns data to the leaves of the tree rooted at v. Objects and maps
// are matched by key, arrays by index; values absent from data leave the
// field untouched. Every binding error is reported, joined.
func Bind(ctx context.Context, v formskema.Validatable, data any) error {
	var errs []error
	bind(ctx, formskema.Root(), v, data, &errs)
	return errors.Join(errs...)
}

func bind(ctx context.Context, p formskema.PathRef, v formskema.Validatable, data any, errs *[]error) {
	if c, ok := v.(formskema.Composite); ok {
		for _, ch := range c.Children() {
			sub, ok := lookup(data, ch.Key, c.Mode())
			if !ok {
				continue
			}
			bind(ctx, p.Field(ch.Key), ch.Value, sub, errs)
		}
		return
	}
	s, ok := v.(formskema.Setter)
	if !ok {
		return
	}
	if err := s.SetAny(ctx, data); err != nil {
		*errs = append(*errs, fmt.Errorf("formdef: binding %s: %w", p.Pointer(), err))
	}
}

func lookup(data any, key string, mode formskema.Mode) (any, bool) {
	switch mode {
	case formskema.ModeArray:
		arr, ok := data.([]any)
		if !ok {
			return nil, false
		}
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(arr) {
			return nil, false
		}
		return arr[i], true
	default:
		m, ok := data.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[key]
		return v, ok
	}
}

// yamlNormalizeValue converts map[any]any produced for non-string YAML keys
// into map[string]any, recursively.
func yamlNormalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = yamlNormalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = yamlNormalizeValue(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = yamlNormalizeValue(t[i])
		}
		return arr
	default:
		return v
	}
}
