package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoMatchPosition is returned when a path contains the positional '$'
// segment but no match position is available to resolve it
var ErrNoMatchPosition = errors.New("cannot apply the positional operator without a corresponding query field containing an array")

// MatchPos is the array position captured by the query matcher. It is a
// single-shot cell: Take hands out the position exactly once, so the
// positional operator cannot be resolved twice within one update.
type MatchPos struct {
	pos   int
	taken bool
}

// NewMatchPos creates a match position holding pos
func NewMatchPos(pos int) *MatchPos {
	return &MatchPos{pos: pos}
}

// Take returns the position and consumes it. Subsequent calls fail.
func (p *MatchPos) Take() (int, bool) {
	if p == nil || p.taken {
		return 0, false
	}
	p.taken = true
	return p.pos, true
}

// ResolvePositional replaces every '$' segment in the path with the match
// position. The position is consumed on first use; a second '$' segment, or
// an unbound position, fails with ErrNoMatchPosition.
func ResolvePositional(key string, pos *MatchPos) (string, error) {
	if !strings.Contains(key, "$") {
		return key, nil
	}
	segments := strings.Split(key, ".")
	for i, segment := range segments {
		if segment != "$" {
			continue
		}
		p, ok := pos.Take()
		if !ok {
			return "", ErrNoMatchPosition
		}
		segments[i] = strconv.Itoa(p)
	}
	return strings.Join(segments, "."), nil
}

// GetPath resolves a dotted path against the document and returns the value,
// or nil when any step is absent
func GetPath(doc *Document, key string) interface{} {
	return getPathValue(doc, key)
}

func getPathValue(container interface{}, key string) interface{} {
	if dotPos := strings.Index(key, "."); dotPos > 0 {
		mainKey := key[:dotPos]
		subKey := key[dotPos+1:]
		sub := getFieldListSafe(container, mainKey)
		switch sub.(type) {
		case *Document, []interface{}:
			return getPathValue(sub, subKey)
		default:
			return nil
		}
	}
	return getFieldListSafe(container, key)
}

// HasPath reports whether the dotted path resolves to a present field,
// distinguishing absent from present-null
func HasPath(doc *Document, key string) bool {
	return hasPathValue(doc, key)
}

func hasPathValue(container interface{}, key string) bool {
	if dotPos := strings.Index(key, "."); dotPos > 0 {
		mainKey := key[:dotPos]
		subKey := key[dotPos+1:]
		sub := getFieldListSafe(container, mainKey)
		switch sub.(type) {
		case *Document, []interface{}:
			return hasPathValue(sub, subKey)
		default:
			return false
		}
	}
	return hasFieldListSafe(container, key)
}

// SetPath assigns a value at a dotted path, creating intermediate documents
// as needed. A scalar intermediate is overwritten with a fresh document
// holding the remainder of the path.
func SetPath(doc *Document, key string, value interface{}) error {
	_, err := setPathValue(doc, key, value)
	return err
}

func setPathValue(container interface{}, key string, value interface{}) (interface{}, error) {
	if dotPos := strings.Index(key, "."); dotPos > 0 {
		mainKey := key[:dotPos]
		subKey := key[dotPos+1:]

		sub := getFieldListSafe(container, mainKey)
		switch sub.(type) {
		case *Document, []interface{}:
			newSub, err := setPathValue(sub, subKey, value)
			if err != nil {
				return nil, err
			}
			return setFieldListSafe(container, mainKey, newSub)
		default:
			obj := New()
			if _, err := setPathValue(obj, subKey, value); err != nil {
				return nil, err
			}
			return setFieldListSafe(container, mainKey, obj)
		}
	}
	return setFieldListSafe(container, key, value)
}

// RemovePath removes the value at a dotted path. On an array terminal the
// element is removed and the remaining elements shift left.
func RemovePath(doc *Document, key string) error {
	_, err := removePathValue(doc, key)
	return err
}

func removePathValue(container interface{}, key string) (interface{}, error) {
	if dotPos := strings.Index(key, "."); dotPos > 0 {
		mainKey := key[:dotPos]
		subKey := key[dotPos+1:]

		sub := getFieldListSafe(container, mainKey)
		switch sub.(type) {
		case *Document, []interface{}:
			newSub, err := removePathValue(sub, subKey)
			if err != nil {
				return nil, err
			}
			return setFieldListSafe(container, mainKey, newSub)
		default:
			return nil, fmt.Errorf("failed to remove subdocument at %q", key)
		}
	}
	return removeFieldListSafe(container, key)
}

// FieldValue reads one path segment from a document or array container:
// a field name on documents, an index on arrays. A non-numeric segment on
// an array resolves to nil.
func FieldValue(container interface{}, key string) interface{} {
	return getFieldListSafe(container, key)
}

// HasFieldValue reports whether one path segment resolves to a present
// field or an in-range array index
func HasFieldValue(container interface{}, key string) bool {
	return hasFieldListSafe(container, key)
}

// getFieldListSafe reads one path segment: a field name on documents, an
// index on arrays. A non-numeric segment on an array resolves to nil.
func getFieldListSafe(container interface{}, key string) interface{} {
	switch c := container.(type) {
	case *Document:
		v, _ := c.Get(key)
		return v
	case []interface{}:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil
		}
		return c[idx]
	default:
		return nil
	}
}

func hasFieldListSafe(container interface{}, key string) bool {
	switch c := container.(type) {
	case *Document:
		return c.Has(key)
	case []interface{}:
		idx, err := strconv.Atoi(key)
		return err == nil && idx >= 0 && idx < len(c)
	default:
		return false
	}
}

// setFieldListSafe writes one path segment and returns the possibly
// reallocated container. Arrays grow with nulls up to the target index.
func setFieldListSafe(container interface{}, key string, value interface{}) (interface{}, error) {
	switch c := container.(type) {
	case *Document:
		c.Set(key, value)
		return c, nil
	case []interface{}:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("cannot set field %q on array", key)
		}
		for len(c) <= idx {
			c = append(c, nil)
		}
		c[idx] = Normalize(value)
		return c, nil
	default:
		return nil, fmt.Errorf("cannot set field %q on %v", key, TypeOf(container))
	}
}

func removeFieldListSafe(container interface{}, key string) (interface{}, error) {
	switch c := container.(type) {
	case *Document:
		c.Delete(key)
		return c, nil
	case []interface{}:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("cannot remove field %q from array", key)
		}
		if idx < len(c) {
			c = append(c[:idx], c[idx+1:]...)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("cannot remove field %q from %v", key, TypeOf(container))
	}
}
