package formdef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding of definitions and data.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatOf infers the format from a file extension; anything other than
// .json is treated as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Kinds of composite definitions.
const (
	KindObject = "object"
	KindArray  = "array"
	KindMap    = "map"
)

// Field value types.
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeBool   = "bool"
)

// Definition declares a composite: its kind, its children and its
// form-level rules.
type Definition struct {
	Name   string     `yaml:"name,omitempty" json:"name,omitempty"`
	Kind   string     `yaml:"kind,omitempty" json:"kind,omitempty"`
	Fields []FieldDef `yaml:"fields" json:"fields"`
	Rules  []RuleDef  `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// FieldDef declares a child. A child with Form set is a nested composite;
// otherwise it is a leaf of the given Type.
type FieldDef struct {
	Name    string      `yaml:"name" json:"name"`
	Type    string      `yaml:"type,omitempty" json:"type,omitempty"`
	Default any         `yaml:"default,omitempty" json:"default,omitempty"`
	Rules   []RuleDef   `yaml:"rules,omitempty" json:"rules,omitempty"`
	Form    *Definition `yaml:"form,omitempty" json:"form,omitempty"`
}

// RuleDef names a rule. Value carries the rule argument (a length, a
// pattern, a bound, a list of choices); Fields names the operands of
// form-level rules.
type RuleDef struct {
	Rule    string   `yaml:"rule" json:"rule"`
	Value   any      `yaml:"value,omitempty" json:"value,omitempty"`
	Fields  []string `yaml:"fields,omitempty" json:"fields,omitempty"`
	Message string   `yaml:"message,omitempty" json:"message,omitempty"`
}

// ErrInvalidDefinition is wrapped by every definition error.
var ErrInvalidDefinition = errors.New("formdef: invalid definition")

// Parse decodes a definition. Unknown keys are rejected.
func Parse(data []byte, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
	}
	if err := def.check("/"); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads and parses the definition at path, choosing the format from
// its extension.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("formdef: reading definition: %w", err)
	}
	return Parse(data, FormatOf(path))
}

func (d *Definition) kind() string {
	if d.Kind == "" {
		return KindObject
	}
	return d.Kind
}

// check validates the definition's structure before anything is built.
func (d *Definition) check(path string) error {
	switch d.kind() {
	case KindObject, KindArray, KindMap:
	default:
		return fmt.Errorf("%w at %s: unknown kind %q", ErrInvalidDefinition, path, d.Kind)
	}
	if len(d.Rules) > 0 && d.kind() != KindObject {
		return fmt.Errorf("%w at %s: form rules require kind %q", ErrInvalidDefinition, path, KindObject)
	}
	seen := map[string]bool{}
	for i, f := range d.Fields {
		fp := childPath(path, f.Name, i, d.kind())
		if d.kind() != KindArray {
			if f.Name == "" {
				return fmt.Errorf("%w at %s: field %d has no name", ErrInvalidDefinition, path, i)
			}
			if seen[f.Name] {
				return fmt.Errorf("%w at %s: duplicate field %q", ErrInvalidDefinition, path, f.Name)
			}
			seen[f.Name] = true
		}
		if f.Form != nil {
			if err := f.Form.check(fp); err != nil {
				return err
			}
			continue
		}
		switch f.fieldType() {
		case TypeString, TypeNumber, TypeBool:
		default:
			return fmt.Errorf("%w at %s: unknown type %q", ErrInvalidDefinition, fp, f.Type)
		}
	}
	for _, r := range d.Rules {
		for _, name := range r.Fields {
			if !seen[name] {
				return fmt.Errorf("%w at %s: rule %q names unknown field %q", ErrInvalidDefinition, path, r.Rule, name)
			}
		}
	}
	return nil
}

func (f FieldDef) fieldType() string {
	if f.Type == "" {
		return TypeString
	}
	return f.Type
}

func childPath(base, name string, i int, kind string) string {
	if kind == KindArray {
		name = fmt.Sprint(i)
	}
	if base == "/" {
		return "/" + name
	}
	return base + "/" + name
}
