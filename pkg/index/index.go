package index

import (
	"github.com/mnohosten/clara-db/pkg/document"
)

// Key is the opaque document-store key an index entry points at
type Key = uint64

// Index answers "which store keys might match this query" and enforces its
// constraints on add and update. Implementations are kept coherent with the
// document set by the collection, which calls the Check* methods before any
// mutation.
type Index interface {
	// Name returns the index name
	Name() string

	// CanHandle reports whether Keys can narrow the candidate set for
	// this query
	CanHandle(query *document.Document) bool

	// Keys returns the candidate store keys for a query CanHandle
	// accepted
	Keys(query *document.Document) []Key

	// CheckAdd fails when adding the document would violate the index
	// constraints, without mutating anything
	CheckAdd(doc *document.Document) error

	// Add registers the document under the given store key
	Add(doc *document.Document, key Key)

	// CheckUpdate fails when replacing oldDoc with newDoc would violate
	// the index constraints, without mutating anything
	CheckUpdate(oldDoc, newDoc *document.Document) error

	// UpdateInPlace moves the index entry from oldDoc's key value to
	// newDoc's. CheckUpdate must have passed.
	UpdateInPlace(oldDoc, newDoc *document.Document)

	// Remove drops the document's entry and returns the store key it
	// pointed at
	Remove(doc *document.Document) (Key, bool)

	// Count returns the number of entries
	Count() int

	// DataSize returns the approximate memory footprint of the entries
	DataSize() int64
}
