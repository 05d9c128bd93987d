package database

import (
	"errors"
	"fmt"

	"github.com/mnohosten/clara-db/pkg/document"
)

var (
	// ErrCollectionNotFound is returned when a collection is not found
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDatabaseClosed is returned when operating on a closed database
	ErrDatabaseClosed = errors.New("database is closed")
)

// ServerError is an error carrying a wire-compatible numeric code. A zero
// code means the error has a message only.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// NewInvalidModifier reports an unknown update operator (code 10147)
func NewInvalidModifier(modifier string) *ServerError {
	return &ServerError{Code: 10147, Message: fmt.Sprintf("Invalid modifier specified: %s", modifier)}
}

// NewModOnIDNotAllowed reports a mutation targeting the identifier field
// (code 10148)
func NewModOnIDNotAllowed(idField string) *ServerError {
	return &ServerError{Code: 10148, Message: fmt.Sprintf("Mod on %s not allowed", idField)}
}

// NewDollarInFieldName reports a modified field name starting with '$'
// (code 15896)
func NewDollarInFieldName() *ServerError {
	return &ServerError{Code: 15896, Message: "Modified field name may not start with $"}
}

// NewCannotChangeID reports a replacement document carrying a different
// identifier (code 13596)
func NewCannotChangeID(idField string, oldID, newID interface{}) *ServerError {
	oldDoc := document.New()
	oldDoc.Set(idField, oldID)
	newDoc := document.New()
	newDoc.Set(idField, newID)
	return &ServerError{
		Code:    13596,
		Message: fmt.Sprintf("cannot change _id of a document old:%v new:%v", oldDoc, newDoc),
	}
}

// NewMultiUpdateRequiresOperators reports a multi update with a replacement
// document (code 10158)
func NewMultiUpdateRequiresOperators() *ServerError {
	return &ServerError{Code: 10158, Message: "multi update only works with $ operators"}
}

// NewPositionalWithoutMatch reports a positional '$' segment with no match
// position to resolve it (code 16650)
func NewPositionalWithoutMatch() *ServerError {
	return &ServerError{
		Code:    16650,
		Message: "Cannot apply the positional operator without a corresponding query field containing an array.",
	}
}

// NewNonArrayTarget reports an array modifier applied to a non-array value.
// The code depends on the operator family: 10141 for $push/$pushAll/
// $addToSet, 10142 for $pull/$pullAll, 10143 for $pop.
func NewNonArrayTarget(code int, modifier string) *ServerError {
	return &ServerError{Code: code, Message: fmt.Sprintf("Cannot apply %s modifier to non-array", modifier)}
}

// NewArrayOnlyModifier reports a non-array operand where an array is
// required (code 10153)
func NewArrayOnlyModifier(modifier string) *ServerError {
	return &ServerError{Code: 10153, Message: fmt.Sprintf("Modifier %s allowed for arrays only", modifier)}
}

// NewInvalidCurrentDateType reports a malformed $currentDate type
// specification (code 2)
func NewInvalidCurrentDateType(message string) *ServerError {
	return &ServerError{Code: 2, Message: message}
}

// NewIllegalUpdate reports an update document mixing operator and plain keys
func NewIllegalUpdate(update *document.Document) *ServerError {
	return &ServerError{Message: fmt.Sprintf("illegal update: %v", update)}
}
