package formskema

import (
	"io"

	json "github.com/goccy/go-json"
)

// Collect walks the tree rooted at v and returns one Issue per error, in
// child order. Field errors of leaves are reported at the leaf's pointer
// with CodeField. A composite's form error is reported at its own pointer
// with CodeForm, and only while it is shown (no child has an error).
func Collect(v Validatable) Issues {
	var out Issues
	collect(Root(), v, &out)
	return out
}

func collect(p PathRef, v Validatable, out *Issues) {
	c, ok := v.(Composite)
	if !ok {
		if msg := v.ErrorText(); msg != "" {
			*out = AppendIssues(*out, p.Issue(CodeField, msg))
		}
		return
	}
	if c.ShowFormError() {
		*out = AppendIssues(*out, p.Issue(CodeForm, c.FormError(), "mode", c.Mode().String()))
	}
	for _, ch := range c.Children() {
		collect(p.Field(ch.Key), ch.Value, out)
	}
}

// Report is the serializable summary of a validation run.
type Report struct {
	Valid  bool   `json:"valid"`
	Value  any    `json:"value,omitempty"`
	Issues Issues `json:"issues"`
}

// NewReport builds a Report from the outcome of validating v.
func NewReport(v Validatable, out Outcome) Report {
	iss := Collect(v)
	if iss == nil {
		iss = Issues{}
	}
	r := Report{Valid: out.OK(), Issues: iss}
	if out.OK() {
		r.Value = snapshot(v)
	}
	return r
}

// snapshot returns the plain values of the tree: leaves contribute their
// AnyValue, composites a map or slice of their children.
func snapshot(v Validatable) any {
	c, ok := v.(Composite)
	if !ok {
		if vr, ok := v.(Valuer); ok {
			return vr.AnyValue()
		}
		return nil
	}
	children := c.Children()
	if c.Mode() == ModeArray {
		out := make([]any, 0, len(children))
		for _, ch := range children {
			out = append(out, snapshot(ch.Value))
		}
		return out
	}
	out := make(map[string]any, len(children))
	for _, ch := range children {
		out[ch.Key] = snapshot(ch.Value)
	}
	return out
}

// WriteJSON encodes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
