package index

import "fmt"

// DuplicateKeyError is returned when a unique index rejects a document
// whose key value is already present
type DuplicateKeyError struct {
	Namespace string
	IndexName string
	Value     interface{}
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("E11000 duplicate key error index: %s.$%s  dup key: { : %v }",
		e.Namespace, e.IndexName, e.Value)
}

// Code returns the wire-compatible duplicate key error code
func (e *DuplicateKeyError) Code() int {
	return 11000
}
