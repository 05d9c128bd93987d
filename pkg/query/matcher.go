package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mnohosten/clara-db/pkg/document"
)

// Matcher evaluates query predicates against candidate documents. It is
// stateless and safe for concurrent use.
type Matcher struct{}

// NewMatcher creates a matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// matchState carries the array position captured during a single evaluation.
// Only the first array-traversing clause records a position.
type matchState struct {
	position *int
}

func (s *matchState) record(pos int) {
	if s.position == nil {
		p := pos
		s.position = &p
	}
}

// Matches checks whether a document matches the query
func (m *Matcher) Matches(doc *document.Document, query *document.Document) (bool, error) {
	matched, _, err := m.Match(doc, query)
	return matched, err
}

// MatchPosition returns the array index of the element that satisfied the
// first array-traversing clause, or nil when no clause traversed an array
func (m *Matcher) MatchPosition(doc *document.Document, query *document.Document) (*int, error) {
	matched, pos, err := m.Match(doc, query)
	if err != nil || !matched {
		return nil, err
	}
	return pos, nil
}

// Match evaluates the query and reports both the boolean result and the
// captured match position
func (m *Matcher) Match(doc *document.Document, query *document.Document) (bool, *int, error) {
	state := &matchState{}
	matched, err := m.matchesDocument(doc, query, state)
	if err != nil {
		return false, nil, err
	}
	if !matched {
		return false, nil, nil
	}
	return true, state.position, nil
}

// matchesDocument evaluates a query as a conjunction of its clauses
func (m *Matcher) matchesDocument(container interface{}, query *document.Document, state *matchState) (bool, error) {
	if query == nil {
		return true, nil
	}
	for _, key := range query.Keys() {
		expr, _ := query.Get(key)

		switch Operator(key) {
		case OpAnd:
			ok, err := m.matchesAll(container, expr, state)
			if err != nil || !ok {
				return false, err
			}
			continue
		case OpOr:
			ok, err := m.matchesAny(container, expr, state)
			if err != nil || !ok {
				return false, err
			}
			continue
		case OpNor:
			ok, err := m.matchesAny(container, expr, &matchState{})
			if err != nil {
				return false, err
			}
			if ok {
				return false, nil
			}
			continue
		}

		ok, err := m.matchesKey(container, key, expr, state)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func subQueries(expr interface{}, op Operator) ([]*document.Document, error) {
	list, ok := expr.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s requires an array of conditions", op)
	}
	queries := make([]*document.Document, 0, len(list))
	for _, item := range list {
		sub, ok := item.(*document.Document)
		if !ok {
			return nil, fmt.Errorf("invalid condition in %s", op)
		}
		queries = append(queries, sub)
	}
	return queries, nil
}

func (m *Matcher) matchesAll(container interface{}, expr interface{}, state *matchState) (bool, error) {
	queries, err := subQueries(expr, OpAnd)
	if err != nil {
		return false, err
	}
	for _, sub := range queries {
		ok, err := m.matchesDocument(container, sub, state)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) matchesAny(container interface{}, expr interface{}, state *matchState) (bool, error) {
	queries, err := subQueries(expr, OpOr)
	if err != nil {
		return false, err
	}
	for _, sub := range queries {
		ok, err := m.matchesDocument(container, sub, state)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// matchesKey evaluates a single (path, predicate) clause, walking dotted
// paths and traversing arrays element-wise
func (m *Matcher) matchesKey(container interface{}, key string, expr interface{}, state *matchState) (bool, error) {
	if dotPos := strings.Index(key, "."); dotPos > 0 {
		mainKey := key[:dotPos]
		subKey := key[dotPos+1:]

		value := document.FieldValue(container, mainKey)
		switch sub := value.(type) {
		case *document.Document:
			return m.matchesKey(sub, subKey, expr, state)
		case []interface{}:
			// a numeric next segment addresses the element directly
			firstSub := subKey
			if p := strings.Index(subKey, "."); p > 0 {
				firstSub = subKey[:p]
			}
			if _, err := strconv.Atoi(firstSub); err == nil {
				return m.matchesKey(sub, subKey, expr, state)
			}
			for i, elem := range sub {
				elemDoc, ok := elem.(*document.Document)
				if !ok {
					continue
				}
				matched, err := m.matchesKey(elemDoc, subKey, expr, state)
				if err != nil {
					return false, err
				}
				if matched {
					state.record(i)
					return true, nil
				}
			}
			return m.matchesValue(nil, false, expr, state, false)
		default:
			// unresolvable remainder behaves like an absent field
			return m.matchesValue(nil, false, expr, state, false)
		}
	}

	value := document.FieldValue(container, key)
	present := document.HasFieldValue(container, key)
	return m.matchesValue(value, present, expr, state, true)
}

// matchesValue evaluates a predicate against a resolved value. With
// arrayTraverse set, array values match when any element satisfies the
// predicate and the element index is recorded.
func (m *Matcher) matchesValue(value interface{}, present bool, expr interface{}, state *matchState, arrayTraverse bool) (bool, error) {
	if opDoc, ok := operatorDocument(expr); ok {
		for _, opKey := range opDoc.Keys() {
			if Operator(opKey) == OpOptions {
				// consumed together with $regex
				continue
			}
			operand, _ := opDoc.Get(opKey)
			matched, err := m.evaluateOperator(Operator(opKey), value, present, operand, opDoc, state, arrayTraverse)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	}

	return m.equalityMatches(value, expr, state, arrayTraverse), nil
}

// equalityMatches implements the equality predicate: direct equality, or
// array-contains when the value is an array
func (m *Matcher) equalityMatches(value interface{}, expr interface{}, state *matchState, arrayTraverse bool) bool {
	if document.Equals(value, expr) {
		return true
	}
	if arr, ok := value.([]interface{}); ok && arrayTraverse {
		for i, elem := range arr {
			if document.Equals(elem, expr) {
				state.record(i)
				return true
			}
		}
	}
	return false
}

// operatorDocument reports whether expr is a query operator document:
// a non-empty document whose keys all start with '$'
func operatorDocument(expr interface{}) (*document.Document, bool) {
	doc, ok := expr.(*document.Document)
	if !ok || doc.Len() == 0 {
		return nil, false
	}
	for _, key := range doc.Keys() {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}
	return doc, true
}

func (m *Matcher) evaluateOperator(op Operator, value interface{}, present bool, operand interface{}, opDoc *document.Document, state *matchState, arrayTraverse bool) (bool, error) {
	switch op {
	case OpEqual:
		return m.equalityMatches(value, operand, state, arrayTraverse), nil

	case OpNotEqual:
		return !m.equalityMatches(value, operand, &matchState{}, arrayTraverse), nil

	case OpGreaterThan:
		return m.comparisonMatches(value, operand, state, arrayTraverse, func(c int) bool { return c > 0 }), nil
	case OpGreaterThanOrEqual:
		return m.comparisonMatches(value, operand, state, arrayTraverse, func(c int) bool { return c >= 0 }), nil
	case OpLessThan:
		return m.comparisonMatches(value, operand, state, arrayTraverse, func(c int) bool { return c < 0 }), nil
	case OpLessThanOrEqual:
		return m.comparisonMatches(value, operand, state, arrayTraverse, func(c int) bool { return c <= 0 }), nil

	case OpIn:
		list, ok := operand.([]interface{})
		if !ok {
			return false, fmt.Errorf("$in needs an array")
		}
		for _, item := range list {
			if m.equalityMatches(value, item, state, arrayTraverse) {
				return true, nil
			}
		}
		return false, nil

	case OpNotIn:
		list, ok := operand.([]interface{})
		if !ok {
			return false, fmt.Errorf("$nin needs an array")
		}
		for _, item := range list {
			if m.equalityMatches(value, item, &matchState{}, arrayTraverse) {
				return false, nil
			}
		}
		return true, nil

	case OpExists:
		want := isTrue(operand)
		return present == want, nil

	case OpType:
		return typeMatches(value, operand), nil

	case OpRegex:
		pattern, ok := operand.(string)
		if !ok {
			return false, fmt.Errorf("$regex has to be a string")
		}
		if options, ok := opDoc.Get(string(OpOptions)); ok {
			if optStr, ok := options.(string); ok && optStr != "" {
				pattern = "(?" + optStr + ")" + pattern
			}
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regex pattern: %w", err)
		}
		if str, ok := value.(string); ok && re.MatchString(str) {
			return true, nil
		}
		if arr, ok := value.([]interface{}); ok && arrayTraverse {
			for i, elem := range arr {
				if str, ok := elem.(string); ok && re.MatchString(str) {
					state.record(i)
					return true, nil
				}
			}
		}
		return false, nil

	case OpMod:
		return modMatches(value, operand, state, arrayTraverse)

	case OpAll:
		list, ok := operand.([]interface{})
		if !ok {
			return false, fmt.Errorf("$all needs an array")
		}
		arr, ok := value.([]interface{})
		if !ok || len(list) == 0 {
			return false, nil
		}
		for _, item := range list {
			found := false
			for _, elem := range arr {
				if document.Equals(elem, item) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
		return true, nil

	case OpSize:
		arr, ok := value.([]interface{})
		if !ok {
			return false, nil
		}
		if document.TypeOf(document.Normalize(operand)) == document.TypeNull {
			return false, nil
		}
		return document.Equals(int64(len(arr)), document.Normalize(operand)), nil

	case OpElemMatch:
		return m.elemMatches(value, operand, state)

	case OpNot:
		matched, err := m.matchesValue(value, present, operand, &matchState{}, arrayTraverse)
		if err != nil {
			return false, err
		}
		return !matched, nil

	default:
		return false, fmt.Errorf("unsupported operator: %s", op)
	}
}

// comparisonMatches applies an ordering predicate; missing values compare
// as null, array values match element-wise
func (m *Matcher) comparisonMatches(value interface{}, operand interface{}, state *matchState, arrayTraverse bool, accept func(int) bool) bool {
	if arr, ok := value.([]interface{}); ok && arrayTraverse {
		for i, elem := range arr {
			if accept(document.Compare(elem, document.Normalize(operand))) {
				state.record(i)
				return true
			}
		}
		return false
	}
	return accept(document.Compare(value, document.Normalize(operand)))
}

func (m *Matcher) elemMatches(value interface{}, operand interface{}, state *matchState) (bool, error) {
	sub, ok := operand.(*document.Document)
	if !ok {
		return false, fmt.Errorf("$elemMatch needs an object")
	}
	arr, ok := value.([]interface{})
	if !ok {
		return false, nil
	}

	for i, elem := range arr {
		var matched bool
		var err error
		if _, isOp := operatorDocument(sub); isOp {
			matched, err = m.matchesValue(elem, true, sub, &matchState{}, false)
		} else if elemDoc, isDoc := elem.(*document.Document); isDoc {
			matched, err = m.matchesDocument(elemDoc, sub, &matchState{})
		}
		if err != nil {
			return false, err
		}
		if matched {
			state.record(i)
			return true, nil
		}
	}
	return false, nil
}

func modMatches(value interface{}, operand interface{}, state *matchState, arrayTraverse bool) (bool, error) {
	spec, ok := operand.([]interface{})
	if !ok || len(spec) != 2 {
		return false, fmt.Errorf("$mod needs a [divisor, remainder] array")
	}
	divisor, ok1 := toInt64(spec[0])
	remainder, ok2 := toInt64(spec[1])
	if !ok1 || !ok2 {
		return false, fmt.Errorf("$mod needs numeric divisor and remainder")
	}
	if divisor == 0 {
		return false, fmt.Errorf("$mod divisor cannot be 0")
	}

	check := func(v interface{}) bool {
		n, ok := toInt64(v)
		return ok && n%divisor == remainder
	}

	if check(value) {
		return true, nil
	}
	if arr, ok := value.([]interface{}); ok && arrayTraverse {
		for i, elem := range arr {
			if check(elem) {
				state.record(i)
				return true, nil
			}
		}
	}
	return false, nil
}

// typeMatches resolves the $type operand (alias string or numeric code)
// against the value, traversing array elements
func typeMatches(value interface{}, operand interface{}) bool {
	var want document.Type
	switch spec := document.Normalize(operand).(type) {
	case string:
		t, ok := document.TypeByName(spec)
		if !ok {
			return false
		}
		want = t
	case int64:
		want = document.Type(spec)
	case float64:
		want = document.Type(int(spec))
	default:
		return false
	}

	if document.TypeOf(value) == want {
		return true
	}
	if arr, ok := value.([]interface{}); ok {
		for _, elem := range arr {
			if document.TypeOf(elem) == want {
				return true
			}
		}
	}
	return false
}

func toInt64(v interface{}) (int64, bool) {
	switch val := document.Normalize(v).(type) {
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		return int64(val), true
	default:
		return 0, false
	}
}

// isTrue mirrors the truthiness used by option flags in commands
func isTrue(v interface{}) bool {
	switch val := document.Normalize(v).(type) {
	case bool:
		return val
	case int32:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return v != nil
	}
}
