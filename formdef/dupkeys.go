package formdef

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	formskema "github.com/reoring/formskema"
)

// ErrDuplicateKey is returned when a JSON data document repeats an object
// key. Decoding would otherwise keep the last value silently.
var ErrDuplicateKey = errors.New("formdef: duplicate key")

type keyFrame struct {
	array   bool
	keys    map[string]bool
	key     string // current member key (objects)
	index   int    // current element index (arrays)
	wantKey bool
}

// checkDuplicateKeys scans data token by token and reports the first
// repeated object key with its JSON Pointer.
func checkDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []*keyFrame

	valueDone := func() {
		if n := len(stack); n > 0 {
			if top := stack[n-1]; top.array {
				top.index++
			} else {
				top.wantKey = true
			}
		}
	}
	pointer := func() string {
		p := formskema.Root()
		for _, f := range stack {
			if f.array {
				p = p.Index(f.index)
			} else {
				p = p.Field(f.key)
			}
		}
		return p.Pointer()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("formdef: decoding data: %w", err)
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, &keyFrame{keys: map[string]bool{}, wantKey: true})
			case '[':
				stack = append(stack, &keyFrame{array: true})
			default:
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 && !stack[n-1].array && stack[n-1].wantKey {
				top := stack[n-1]
				top.key, top.wantKey = v, false
				if top.keys[v] {
					return fmt.Errorf("%w at %s", ErrDuplicateKey, pointer())
				}
				top.keys[v] = true
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}
