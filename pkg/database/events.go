package database

import "github.com/mnohosten/clara-db/pkg/document"

// Change operations reported to change listeners
const (
	OperationInsert = "insert"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// ChangeEvent describes a successful mutation on a collection
type ChangeEvent struct {
	Operation    string             `json:"operation"`
	Namespace    string             `json:"ns"`
	DocumentKey  interface{}        `json:"documentKey"`
	FullDocument *document.Document `json:"-"`
}

// ChangeListener receives change events. Listeners run synchronously inside
// the mutating call and must not call back into the collection.
type ChangeListener func(event ChangeEvent)
