package document

import (
	"fmt"
	"sort"
)

// Document represents a BSON-like document (ordered key-value pairs).
// Insertion order is preserved and observable; duplicate keys cannot occur.
type Document struct {
	fields map[string]interface{}
	order  []string
}

// New creates a new empty document
func New() *Document {
	return &Document{
		fields: make(map[string]interface{}),
		order:  make([]string, 0),
	}
}

// FromMap creates a document from a map. Map iteration order is not
// deterministic, so keys are inserted in sorted order.
func FromMap(m map[string]interface{}) *Document {
	doc := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		doc.Set(k, m[k])
	}
	return doc
}

// Set sets a field value in the document. The value is normalized into the
// canonical representation first.
func (d *Document) Set(key string, value interface{}) {
	if _, exists := d.fields[key]; !exists {
		d.order = append(d.order, key)
	}
	d.fields[key] = Normalize(value)
}

// Get retrieves a field value from the document
func (d *Document) Get(key string) (interface{}, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// Has checks if a field exists in the document
func (d *Document) Has(key string) bool {
	_, ok := d.fields[key]
	return ok
}

// Delete removes a field from the document
func (d *Document) Delete(key string) {
	if _, ok := d.fields[key]; !ok {
		return
	}

	delete(d.fields, key)

	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Keys returns all field names in insertion order
func (d *Document) Keys() []string {
	return d.order
}

// Len returns the number of fields in the document
func (d *Document) Len() int {
	return len(d.fields)
}

// ToMap converts the document to a map[string]interface{} recursively
func (d *Document) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(d.fields))
	for k, v := range d.fields {
		m[k] = valueToInterface(v)
	}
	return m
}

func valueToInterface(v interface{}) interface{} {
	switch val := v.(type) {
	case *Document:
		return val.ToMap()
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, item := range val {
			result[i] = valueToInterface(item)
		}
		return result
	default:
		return v
	}
}

// Clone creates a deep copy of the document
func (d *Document) Clone() *Document {
	clone := New()
	for _, key := range d.order {
		clone.Set(key, CloneValue(d.fields[key]))
	}
	return clone
}

// CloneValue creates a deep copy of a value
func CloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *Document:
		return val.Clone()
	case []interface{}:
		clone := make([]interface{}, len(val))
		for i, item := range val {
			clone[i] = CloneValue(item)
		}
		return clone
	case []byte:
		clone := make([]byte, len(val))
		copy(clone, val)
		return clone
	default:
		return v
	}
}

// CloneInto copies every field of src into d, deep-cloning values
func (d *Document) CloneInto(src *Document) {
	for _, key := range src.Keys() {
		v, _ := src.Get(key)
		d.Set(key, CloneValue(v))
	}
}

// ContainsQueryExpression reports whether the value holds a query operator
// document (any field starting with '$') at any nesting level
func ContainsQueryExpression(v interface{}) bool {
	doc, ok := v.(*Document)
	if !ok {
		return false
	}
	for _, key := range doc.Keys() {
		if len(key) > 0 && key[0] == '$' {
			return true
		}
		sub, _ := doc.Get(key)
		if ContainsQueryExpression(sub) {
			return true
		}
	}
	return false
}

// String returns a string representation of the document
func (d *Document) String() string {
	s := "{"
	for i, key := range d.order {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %v", key, d.fields[key])
	}
	return s + "}"
}
