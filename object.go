package formskema

import "slices"

// Object is an insertion-ordered, string-keyed collection of validatables.
// It is the object-mode subject for forms assembled at runtime, where no
// struct type exists. Object is not safe for concurrent mutation.
type Object struct {
	keys []string
	vals map[string]Validatable
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{vals: map[string]Validatable{}}
}

// Set stores v under key. A new key is appended to the enumeration order; an
// existing key keeps its position.
func (o *Object) Set(key string, v Validatable) *Object {
	if o.vals == nil {
		o.vals = map[string]Validatable{}
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
	return o
}

// Get returns the child stored under key.
func (o *Object) Get(key string) (Validatable, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Delete removes key.
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in enumeration order.
func (o *Object) Keys() []string { return slices.Clone(o.keys) }

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// Values returns the field values of every child that implements Valuer,
// keyed by name. Form-level validators read the subject through it.
func (o *Object) Values() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		if vr, ok := o.vals[k].(Valuer); ok {
			out[k] = vr.AnyValue()
		}
	}
	return out
}
