package formskema

import (
	"reflect"
	"strings"
)

// ResolveStructKey applies the repository-wide rule to resolve the key of a
// struct field holding a child validatable.
// Priority: form:"name" > json tag name > field name; "-" disables the field.
func ResolveStructKey(sf reflect.StructField) string {
	if ft := sf.Tag.Get("form"); ft != "" {
		if i := strings.IndexByte(ft, ','); i >= 0 {
			ft = ft[:i]
		}
		if ft != "" {
			return strings.TrimSpace(ft)
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			jt = jt[:i]
		}
		if jt != "" {
			return jt
		}
	}
	return sf.Name
}

// isNilValue reports whether rv holds a nil pointer, interface, map or slice.
func isNilValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// comparableNode reports whether v can be compared by identity. Pointer
// children always can; value types holding slices, maps or funcs cannot.
func comparableNode(v Validatable) bool {
	return v != nil && reflect.ValueOf(v).Comparable()
}

// sameNode compares two validatables by identity. Values that are not
// comparable never match, including themselves.
func sameNode(a, b Validatable) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !comparableNode(a) || !comparableNode(b) {
		return false
	}
	return a == b
}
