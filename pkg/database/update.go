package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mnohosten/clara-db/pkg/document"
)

// UpdateOperator represents an update modifier
type UpdateOperator string

const (
	OpSet         UpdateOperator = "$set"
	OpSetOnInsert UpdateOperator = "$setOnInsert"
	OpUnset       UpdateOperator = "$unset"
	OpInc         UpdateOperator = "$inc"
	OpMul         UpdateOperator = "$mul"
	OpMin         UpdateOperator = "$min"
	OpMax         UpdateOperator = "$max"
	OpPush        UpdateOperator = "$push"
	OpPushAll     UpdateOperator = "$pushAll"
	OpAddToSet    UpdateOperator = "$addToSet"
	OpPull        UpdateOperator = "$pull"
	OpPullAll     UpdateOperator = "$pullAll"
	OpPop         UpdateOperator = "$pop"
	OpCurrentDate UpdateOperator = "$currentDate"
)

var updateOperators = map[UpdateOperator]bool{
	OpSet: true, OpSetOnInsert: true, OpUnset: true, OpInc: true,
	OpMul: true, OpMin: true, OpMax: true, OpPush: true, OpPushAll: true,
	OpAddToSet: true, OpPull: true, OpPullAll: true, OpPop: true,
	OpCurrentDate: true,
}

// calculateUpdateDocument computes the post-state of a document under an
// update: operator mode when every top-level key starts with '$', full
// replacement when none does, an error otherwise. The input document is
// never mutated.
func calculateUpdateDocument(oldDoc, update *document.Document, idField string, pos *document.MatchPos, isUpsert bool) (*document.Document, error) {
	numStartsWithDollar := 0
	for _, key := range update.Keys() {
		if strings.HasPrefix(key, "$") {
			numStartsWithDollar++
		}
	}

	oldID := document.GetPath(oldDoc, idField)
	newDoc := document.New()
	newDoc.Set(idField, oldID)

	switch {
	case numStartsWithDollar == update.Len():
		newDoc.CloneInto(oldDoc)
		for _, modifier := range update.Keys() {
			changeValue, _ := update.Get(modifier)
			change, ok := changeValue.(*document.Document)
			if !ok {
				return nil, NewIllegalUpdate(update)
			}
			if err := modifyField(newDoc, modifier, change, idField, pos, isUpsert); err != nil {
				return nil, err
			}
		}
	case numStartsWithDollar == 0:
		if err := applyReplacement(newDoc, update, idField); err != nil {
			return nil, err
		}
	default:
		return nil, NewIllegalUpdate(update)
	}

	return newDoc, nil
}

// applyReplacement copies the replacement document into the target, which
// is seeded with the prior identifier. A replacement naming a different
// non-null identifier fails.
func applyReplacement(target, replacement *document.Document, idField string) error {
	oldID, _ := target.Get(idField)
	newID, _ := replacement.Get(idField)

	if newID != nil && !document.Equals(oldID, newID) {
		return NewCannotChangeID(idField, oldID, newID)
	}

	target.CloneInto(replacement)
	if newID == nil && oldID != nil {
		target.Set(idField, oldID)
	}
	return nil
}

// resolveKey resolves the positional '$' segments in a change key through
// the match position
func resolveKey(key string, pos *document.MatchPos) (string, error) {
	resolved, err := document.ResolvePositional(key, pos)
	if errors.Is(err, document.ErrNoMatchPosition) {
		return "", NewPositionalWithoutMatch()
	}
	return resolved, err
}

// modifyField applies a single update operator to the document
func modifyField(doc *document.Document, modifier string, change *document.Document, idField string, pos *document.MatchPos, isUpsert bool) error {
	op := UpdateOperator(modifier)
	if !updateOperators[op] {
		return NewInvalidModifier(modifier)
	}

	if op != OpUnset {
		for _, key := range change.Keys() {
			if strings.HasPrefix(key, "$") {
				return NewDollarInFieldName()
			}
		}
	}

	assertNotKeyField := func(key string) error {
		if key == idField {
			return NewModOnIDNotAllowed(idField)
		}
		return nil
	}

	switch op {
	case OpSetOnInsert, OpSet:
		if op == OpSetOnInsert && !isUpsert {
			// no upsert, nothing to do
			return nil
		}
		for _, key := range change.Keys() {
			newValue, _ := change.Get(key)
			resolved, err := resolveKey(key, pos)
			if err != nil {
				return err
			}
			oldValue := document.GetPath(doc, resolved)

			if document.Equals(document.Normalize(newValue), oldValue) {
				// no change
				continue
			}
			if err := assertNotKeyField(key); err != nil {
				return err
			}
			if err := document.SetPath(doc, resolved, document.CloneValue(newValue)); err != nil {
				return &ServerError{Message: err.Error()}
			}
		}

	case OpUnset:
		for _, key := range change.Keys() {
			if err := assertNotKeyField(key); err != nil {
				return err
			}
			resolved, err := resolveKey(key, pos)
			if err != nil {
				return err
			}
			if err := document.RemovePath(doc, resolved); err != nil {
				return &ServerError{Message: "failed to remove subdocument"}
			}
		}

	case OpPush, OpPushAll, OpAddToSet:
		return applyPushAllAddToSet(doc, op, change, pos)

	case OpPull, OpPullAll:
		for _, key := range change.Keys() {
			resolved, err := resolveKey(key, pos)
			if err != nil {
				return err
			}
			value := document.GetPath(doc, resolved)
			if value == nil {
				return nil
			}
			list, ok := value.([]interface{})
			if !ok {
				return NewNonArrayTarget(10142, modifier)
			}

			pullValue, _ := change.Get(key)
			var remaining []interface{}
			if op == OpPullAll {
				removeList, ok := pullValue.([]interface{})
				if !ok {
					return NewArrayOnlyModifier(modifier)
				}
				remaining = pullElements(list, func(elem interface{}) bool {
					for _, rm := range removeList {
						if document.Equals(elem, rm) {
							return true
						}
					}
					return false
				})
			} else {
				remaining = pullElements(list, func(elem interface{}) bool {
					return document.Equals(elem, document.Normalize(pullValue))
				})
			}
			if err := document.SetPath(doc, resolved, remaining); err != nil {
				return &ServerError{Message: err.Error()}
			}
		}

	case OpPop:
		for _, key := range change.Keys() {
			resolved, err := resolveKey(key, pos)
			if err != nil {
				return err
			}
			value := document.GetPath(doc, resolved)
			if value == nil {
				return nil
			}
			list, ok := value.([]interface{})
			if !ok {
				return NewNonArrayTarget(10143, modifier)
			}

			if len(list) > 0 {
				popValue, _ := change.Get(key)
				if popsFirst(popValue) {
					list = list[1:]
				} else {
					list = list[:len(list)-1]
				}
				if err := document.SetPath(doc, resolved, list); err != nil {
					return &ServerError{Message: err.Error()}
				}
			}
		}

	case OpInc, OpMul:
		operation := "increment"
		if op == OpMul {
			operation = "multiply"
		}
		for _, key := range change.Keys() {
			if err := assertNotKeyField(key); err != nil {
				return err
			}
			resolved, err := resolveKey(key, pos)
			if err != nil {
				return err
			}

			value := document.GetPath(doc, resolved)
			if value == nil {
				value = int32(0)
			} else if !document.IsNumeric(value) {
				return &ServerError{Message: fmt.Sprintf("cannot %s value '%v'", operation, value)}
			}

			changeValue, _ := change.Get(key)
			changeValue = document.Normalize(changeValue)
			if !document.IsNumeric(changeValue) {
				return &ServerError{Message: fmt.Sprintf("cannot %s with non-numeric value: %v", operation, change)}
			}

			var newValue interface{}
			if op == OpInc {
				newValue, err = document.AddNumbers(value, changeValue)
			} else {
				newValue, err = document.MultiplyNumbers(value, changeValue)
			}
			if err != nil {
				return &ServerError{Message: err.Error()}
			}
			if err := document.SetPath(doc, resolved, newValue); err != nil {
				return &ServerError{Message: err.Error()}
			}
		}

	case OpMin, OpMax:
		for _, key := range change.Keys() {
			if err := assertNotKeyField(key); err != nil {
				return err
			}
			resolved, err := resolveKey(key, pos)
			if err != nil {
				return err
			}

			newValue, _ := change.Get(key)
			newValue = document.Normalize(newValue)
			oldValue := document.GetPath(doc, resolved)

			comparison := document.Compare(newValue, oldValue)

			var shouldChange bool
			switch {
			case oldValue == nil && !document.HasPath(doc, resolved):
				// absent field: $min/$max both set the value
				shouldChange = true
			case op == OpMax:
				shouldChange = comparison > 0
			default:
				shouldChange = comparison < 0
			}

			if shouldChange {
				if err := document.SetPath(doc, resolved, document.CloneValue(newValue)); err != nil {
					return &ServerError{Message: err.Error()}
				}
			}
		}

	case OpCurrentDate:
		for _, key := range change.Keys() {
			if err := assertNotKeyField(key); err != nil {
				return err
			}
			resolved, err := resolveKey(key, pos)
			if err != nil {
				return err
			}

			typeSpec, _ := change.Get(key)
			useDate, err := currentDateUsesDate(typeSpec, change)
			if err != nil {
				return err
			}

			var newValue interface{}
			if useDate {
				newValue = time.Now().UTC()
			} else {
				newValue = document.Timestamp{Seconds: uint32(time.Now().Unix()), Increment: 1}
			}
			if err := document.SetPath(doc, resolved, newValue); err != nil {
				return &ServerError{Message: err.Error()}
			}
		}
	}

	return nil
}

// currentDateUsesDate interprets the $currentDate type specification:
// true selects a datetime, {$type: "date"|"timestamp"} selects explicitly,
// anything else is invalid
func currentDateUsesDate(typeSpec interface{}, change *document.Document) (bool, error) {
	if b, ok := typeSpec.(bool); ok && b {
		return true, nil
	}
	if spec, ok := typeSpec.(*document.Document); ok {
		typeName, _ := spec.Get("$type")
		switch typeName {
		case "timestamp":
			return false, nil
		case "date":
			return true, nil
		default:
			return false, NewInvalidCurrentDateType(fmt.Sprintf(
				"The '$type' string field is required to be 'date' or 'timestamp': %v", change))
		}
	}
	return false, NewInvalidCurrentDateType(fmt.Sprintf(
		"%s is not a valid type for $currentDate."+
			" Please use a boolean ('true') or a $type expression ({$type: 'timestamp/date'})",
		document.TypeOf(document.Normalize(typeSpec))))
}

// applyPushAllAddToSet handles the append-family operators
func applyPushAllAddToSet(doc *document.Document, op UpdateOperator, change *document.Document, pos *document.MatchPos) error {
	for _, key := range change.Keys() {
		resolved, err := resolveKey(key, pos)
		if err != nil {
			return err
		}

		value := document.GetPath(doc, resolved)
		var list []interface{}
		switch v := value.(type) {
		case nil:
			list = make([]interface{}, 0)
		case []interface{}:
			list = v
		default:
			return NewNonArrayTarget(10141, string(op))
		}

		changeValue, _ := change.Get(key)
		if op == OpPushAll {
			values, ok := changeValue.([]interface{})
			if !ok {
				return NewArrayOnlyModifier(string(op))
			}
			list = append(list, values...)
		} else {
			var pushValues []interface{}
			if eachDoc, ok := changeValue.(*document.Document); ok && eachDoc.Len() == 1 && eachDoc.Has("$each") {
				each, _ := eachDoc.Get("$each")
				values, ok := each.([]interface{})
				if !ok {
					return &ServerError{Message: fmt.Sprintf("The argument to $each in %s must be an array", op)}
				}
				pushValues = values
			} else {
				pushValues = []interface{}{document.Normalize(changeValue)}
			}

			for _, val := range pushValues {
				if op == OpPush {
					list = append(list, document.CloneValue(val))
				} else if !containsEqual(list, val) {
					list = append(list, document.CloneValue(val))
				}
			}
		}

		if err := document.SetPath(doc, resolved, list); err != nil {
			return &ServerError{Message: err.Error()}
		}
	}
	return nil
}

func containsEqual(list []interface{}, value interface{}) bool {
	for _, elem := range list {
		if document.Equals(elem, value) {
			return true
		}
	}
	return false
}

// pullElements returns the elements not matched by remove, preserving order
func pullElements(list []interface{}, remove func(interface{}) bool) []interface{} {
	remaining := make([]interface{}, 0, len(list))
	for _, elem := range list {
		if !remove(elem) {
			remaining = append(remaining, elem)
		}
	}
	return remaining
}

// popsFirst reports whether a $pop operand selects the first element:
// any numeric value normalizing to -1.0
func popsFirst(popValue interface{}) bool {
	f, ok := asPopFloat(document.Normalize(popValue))
	return ok && f == -1.0
}

func asPopFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}
