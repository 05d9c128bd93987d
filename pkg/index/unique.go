package index

import (
	"sync"

	"github.com/mnohosten/clara-db/pkg/document"
)

// UniqueIndex is a hash index enforcing uniqueness on one field. Key values
// are canonicalized so that numerically equal values of different numeric
// kinds collide, as do arrays with equal elements in the same order and
// documents with equal fields in the same field order; documents that differ
// only in field order do not collide.
type UniqueIndex struct {
	name      string
	namespace string
	field     string
	entries   map[string]Key
	dataSize  int64
	mu        sync.RWMutex
}

// NewUniqueIndex creates a unique index over field for the given namespace
func NewUniqueIndex(namespace, name, field string) *UniqueIndex {
	return &UniqueIndex{
		name:      name,
		namespace: namespace,
		field:     field,
		entries:   make(map[string]Key),
	}
}

// Name returns the index name
func (idx *UniqueIndex) Name() string {
	return idx.name
}

// Field returns the indexed field path
func (idx *UniqueIndex) Field() string {
	return idx.field
}

// keyValue extracts the indexed value; a missing field indexes as null
func (idx *UniqueIndex) keyValue(doc *document.Document) interface{} {
	return document.GetPath(doc, idx.field)
}

// canonicalKey folds numerically equal values together by normalizing every
// numeric kind to double, then uses the BSON encoding as the map key
func canonicalKey(value interface{}) string {
	wrapper := document.New()
	wrapper.Set("", foldNumbers(value))
	data, err := document.NewEncoder().Encode(wrapper)
	if err != nil {
		return ""
	}
	return string(data)
}

func foldNumbers(value interface{}) interface{} {
	switch v := value.(type) {
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case []interface{}:
		folded := make([]interface{}, len(v))
		for i, elem := range v {
			folded[i] = foldNumbers(elem)
		}
		return folded
	case *document.Document:
		folded := document.New()
		for _, key := range v.Keys() {
			elem, _ := v.Get(key)
			folded.Set(key, foldNumbers(elem))
		}
		return folded
	default:
		return value
	}
}

// CanHandle accepts queries of the form {field: <plain value>} or
// {field: {$in: [<plain values>]}}
func (idx *UniqueIndex) CanHandle(query *document.Document) bool {
	if query == nil || query.Len() != 1 || !query.Has(idx.field) {
		return false
	}
	value, _ := query.Get(idx.field)
	if expr, ok := value.(*document.Document); ok {
		for _, key := range expr.Keys() {
			if key != "$in" {
				return false
			}
			operand, _ := expr.Get(key)
			list, ok := operand.([]interface{})
			if !ok {
				return false
			}
			for _, item := range list {
				if document.ContainsQueryExpression(item) {
					return false
				}
			}
		}
		return true
	}
	return !document.ContainsQueryExpression(value)
}

// Keys returns the candidate store keys for an accepted query
func (idx *UniqueIndex) Keys(query *document.Document) []Key {
	value, _ := query.Get(idx.field)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if expr, ok := value.(*document.Document); ok {
		operand, _ := expr.Get("$in")
		list, _ := operand.([]interface{})
		keys := make([]Key, 0, len(list))
		for _, item := range list {
			if key, ok := idx.entries[canonicalKey(document.Normalize(item))]; ok {
				keys = append(keys, key)
			}
		}
		return keys
	}

	if key, ok := idx.entries[canonicalKey(document.Normalize(value))]; ok {
		return []Key{key}
	}
	return nil
}

// CheckAdd fails when the document's key value is already indexed
func (idx *UniqueIndex) CheckAdd(doc *document.Document) error {
	value := idx.keyValue(doc)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if _, exists := idx.entries[canonicalKey(value)]; exists {
		return &DuplicateKeyError{Namespace: idx.namespace, IndexName: idx.name, Value: value}
	}
	return nil
}

// Add registers the document under the store key. CheckAdd must have passed.
func (idx *UniqueIndex) Add(doc *document.Document, key Key) {
	value := idx.keyValue(doc)
	canonical := canonicalKey(value)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries[canonical] = key
	idx.dataSize += int64(len(canonical)) + 8
}

// CheckUpdate fails when moving to newDoc's key value would collide with
// another entry. An unchanged key value always passes.
func (idx *UniqueIndex) CheckUpdate(oldDoc, newDoc *document.Document) error {
	oldValue := idx.keyValue(oldDoc)
	newValue := idx.keyValue(newDoc)
	if document.Equals(oldValue, newValue) {
		return nil
	}
	return idx.CheckAdd(newDoc)
}

// UpdateInPlace moves the entry from the old key value to the new one
func (idx *UniqueIndex) UpdateInPlace(oldDoc, newDoc *document.Document) {
	oldCanonical := canonicalKey(idx.keyValue(oldDoc))
	newCanonical := canonicalKey(idx.keyValue(newDoc))
	if oldCanonical == newCanonical {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	key, exists := idx.entries[oldCanonical]
	if !exists {
		return
	}
	delete(idx.entries, oldCanonical)
	idx.entries[newCanonical] = key
	idx.dataSize += int64(len(newCanonical)) - int64(len(oldCanonical))
}

// Remove drops the document's entry and returns the store key it held
func (idx *UniqueIndex) Remove(doc *document.Document) (Key, bool) {
	canonical := canonicalKey(idx.keyValue(doc))

	idx.mu.Lock()
	defer idx.mu.Unlock()

	key, exists := idx.entries[canonical]
	if !exists {
		return 0, false
	}
	delete(idx.entries, canonical)
	idx.dataSize -= int64(len(canonical)) + 8
	return key, true
}

// Count returns the number of entries
func (idx *UniqueIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// DataSize returns the approximate memory footprint of the entries
func (idx *UniqueIndex) DataSize() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dataSize
}
