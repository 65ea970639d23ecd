package formskema

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// Mode is the structural shape of a composite's child collection. It is
// inferred once at construction.
type Mode int

const (
	ModeObject Mode = iota // Struct pointer or *Object, keyed by field name.
	ModeArray              // Slice (or pointer to slice), keyed by index.
	ModeMap                // Go map, keyed by the formatted map key.
)

func (m Mode) String() string {
	switch m {
	case ModeObject:
		return "object"
	case ModeArray:
		return "array"
	case ModeMap:
		return "map"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

var validatableType = reflect.TypeFor[Validatable]()

// subject enumerates the children of a composite. There is one
// implementation per mode and the collection is re-read on every call.
type subject interface {
	mode() Mode
	children() []Child
}

// newSubject infers the mode from the runtime shape of v.
func newSubject(v any) (subject, error) {
	if v == nil {
		return nil, ErrNilSubject
	}
	if o, ok := v.(*Object); ok {
		if o == nil {
			return nil, ErrNilSubject
		}
		return objectSubject{o: o}, nil
	}
	rv := reflect.ValueOf(v)
	rt := rv.Type()
	switch rt.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, ErrNilSubject
		}
		switch rt.Elem().Kind() {
		case reflect.Struct:
			return newStructSubject(rv.Elem())
		case reflect.Slice:
			if !rt.Elem().Elem().Implements(validatableType) {
				return nil, fmt.Errorf("%w: %s elements do not implement Validatable", ErrUnsupportedSubject, rt)
			}
			return sliceSubject{rv: rv}, nil
		}
	case reflect.Slice:
		if !rt.Elem().Implements(validatableType) {
			return nil, fmt.Errorf("%w: %s elements do not implement Validatable", ErrUnsupportedSubject, rt)
		}
		return sliceSubject{rv: rv}, nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, ErrNilSubject
		}
		if !rt.Elem().Implements(validatableType) {
			return nil, fmt.Errorf("%w: %s values do not implement Validatable", ErrUnsupportedSubject, rt)
		}
		return mapSubject{rv: rv}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSubject, rt)
}

// ---- object mode ----

type structField struct {
	index int
	key   string
}

type structSubject struct {
	rv     reflect.Value
	fields []structField
}

func newStructSubject(rv reflect.Value) (subject, error) {
	rt := rv.Type()
	var fields []structField
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || !sf.Type.Implements(validatableType) {
			continue
		}
		key := ResolveStructKey(sf)
		if key == "-" || key == "" {
			continue
		}
		fields = append(fields, structField{index: i, key: key})
	}
	return structSubject{rv: rv, fields: fields}, nil
}

func (structSubject) mode() Mode { return ModeObject }

func (s structSubject) children() []Child {
	out := make([]Child, 0, len(s.fields))
	for _, f := range s.fields {
		fv := s.rv.Field(f.index)
		if isNilValue(fv) {
			continue
		}
		out = append(out, Child{Key: f.key, Value: fv.Interface().(Validatable)})
	}
	return out
}

type objectSubject struct{ o *Object }

func (objectSubject) mode() Mode { return ModeObject }

func (s objectSubject) children() []Child {
	out := make([]Child, 0, s.o.Len())
	for _, k := range s.o.Keys() {
		if v, ok := s.o.Get(k); ok && v != nil {
			out = append(out, Child{Key: k, Value: v})
		}
	}
	return out
}

// ---- array mode ----

type sliceSubject struct{ rv reflect.Value }

func (sliceSubject) mode() Mode { return ModeArray }

func (s sliceSubject) children() []Child {
	rv := s.rv
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	out := make([]Child, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		ev := rv.Index(i)
		if isNilValue(ev) {
			continue
		}
		out = append(out, Child{Key: strconv.Itoa(i), Value: ev.Interface().(Validatable)})
	}
	return out
}

// ---- map mode ----

type mapSubject struct{ rv reflect.Value }

func (mapSubject) mode() Mode { return ModeMap }

func (s mapSubject) children() []Child {
	keys := s.rv.MapKeys()
	slices.SortFunc(keys, compareKeys)
	out := make([]Child, 0, len(keys))
	for _, k := range keys {
		ev := s.rv.MapIndex(k)
		if isNilValue(ev) {
			continue
		}
		out = append(out, Child{Key: fmt.Sprint(k.Interface()), Value: ev.Interface().(Validatable)})
	}
	return out
}

// compareKeys orders map keys by value for ordered kinds and by their
// formatted form otherwise.
func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	}
	return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}
