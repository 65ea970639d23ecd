package formskema

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes
const (
	// CodeField marks an error reported by a child validatable.
	CodeField = "field_error"
	// CodeForm marks an error produced by a composite's local validators.
	CodeForm = "form_error"
	// CodeFault marks a validator that returned an error or panicked.
	CodeFault = "validator_fault"
)

var (
	// ErrUnsupportedSubject is returned by New when the subject is neither a
	// struct pointer, an *Object, a slice nor a map of validatables.
	ErrUnsupportedSubject = errors.New("formskema: unsupported subject")
	// ErrNilSubject is returned by New for a nil subject.
	ErrNilSubject = errors.New("formskema: nil subject")
	// ErrFault is wrapped by every FaultError.
	ErrFault = errors.New("formskema: validator fault")
)

// FaultError reports a validator that failed to produce a verdict. It is
// returned from Validate next to a failing Outcome and is never stored as a
// field or form error.
type FaultError struct {
	Path  string // JSON Pointer of the node whose validator faulted.
	Cause error
}

func (e *FaultError) Error() string {
	if e.Path == "" || e.Path == "/" {
		return fmt.Sprintf("%s: %v", ErrFault, e.Cause)
	}
	return fmt.Sprintf("%s at %s: %v", ErrFault, e.Path, e.Cause)
}

func (e *FaultError) Unwrap() []error { return []error{ErrFault, e.Cause} }

// Issue converts the fault into a report entry with CodeFault.
func (e *FaultError) Issue() Issue {
	return At(e.Path).Issue(CodeFault, fmt.Sprint(e.Cause))
}

// faultAt wraps err as a FaultError rooted at path. Faults coming up from a
// nested child keep their own path, prefixed by the child's position.
func faultAt(path string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FaultError
	if errors.As(err, &fe) {
		return &FaultError{Path: joinPointer(path, fe.Path), Cause: fe.Cause}
	}
	return &FaultError{Path: path, Cause: err}
}

// Issue represents a single entry of an error report.
type Issue struct {
	Path    string         `json:"path"`    // JSON Pointer (for example: /items/2/price).
	Code    string         `json:"code"`    // One of the codes listed above.
	Message string         `json:"message"` // The error text as stored on the node.
	Params  map[string]any `json:"params,omitempty"`
}

// Issues is a collection of report entries that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. required at /email
		fmt.Fprintf(b, "%s at %s", it.Message, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
