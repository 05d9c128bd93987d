package database

import (
	"sort"
	"strings"
	"sync"

	"github.com/mnohosten/clara-db/pkg/document"
	"github.com/mnohosten/clara-db/pkg/index"
	"github.com/mnohosten/clara-db/pkg/query"
)

// Collection owns a document store, keeps its indexes coherent with the
// stored documents and sequences the public operations.
//
// Structural mutations (insert, update, delete, findAndModify) serialize on
// the collection write lock; readers share the read lock and observe
// consistent snapshots. Each document mutation additionally holds a
// per-document lock while indexes are checked and the content is swapped.
type Collection struct {
	databaseName string
	name         string
	idField      string

	store    DocumentStore
	matcher  *query.Matcher
	locks    *DocumentLockManager
	dataSize int64

	indexes []index.Index
	indexMu sync.RWMutex

	mu sync.RWMutex

	listener   ChangeListener
	listenerMu sync.RWMutex
}

// matched pairs a store key with the decoded document snapshot
type matched struct {
	key uint64
	doc *document.Document
}

// NewCollection creates a collection backed by the given store, with a
// unique index on the identifier field
func NewCollection(databaseName, name, idField string, store DocumentStore) *Collection {
	c := &Collection{
		databaseName: databaseName,
		name:         name,
		idField:      idField,
		store:        store,
		matcher:      query.NewMatcher(),
		locks:        NewDocumentLockManager(0),
	}

	c.indexes = append(c.indexes, index.NewUniqueIndex(c.FullName(), idField+"_", idField))
	return c
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// FullName returns the namespace: database.collection
func (c *Collection) FullName() string {
	return c.databaseName + "." + c.name
}

// IDField returns the identifier field name
func (c *Collection) IDField() string {
	return c.idField
}

// AddIndex appends an index to the collection. This is a setup-time
// operation; existing documents are registered with the new index.
func (c *Collection) AddIndex(idx index.Index) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.store.Keys() {
		doc, err := c.store.Fetch(key)
		if err != nil {
			return err
		}
		if err := idx.CheckAdd(doc); err != nil {
			return err
		}
		idx.Add(doc, key)
	}

	c.indexMu.Lock()
	c.indexes = append(c.indexes, idx)
	c.indexMu.Unlock()
	return nil
}

// NumIndexes returns the number of indexes
func (c *Collection) NumIndexes() int {
	c.indexMu.RLock()
	defer c.indexMu.RUnlock()
	return len(c.indexes)
}

// SetChangeListener registers the listener notified after successful
// mutations
func (c *Collection) SetChangeListener(listener ChangeListener) {
	c.listenerMu.Lock()
	c.listener = listener
	c.listenerMu.Unlock()
}

func (c *Collection) emit(operation string, doc *document.Document) {
	c.listenerMu.RLock()
	listener := c.listener
	c.listenerMu.RUnlock()
	if listener == nil {
		return
	}
	id, _ := doc.Get(c.idField)
	listener(ChangeEvent{
		Operation:    operation,
		Namespace:    c.FullName(),
		DocumentKey:  id,
		FullDocument: doc,
	})
}

// InsertDocuments adds documents one by one. The batch stops at the first
// failing document and reports how many made it in.
func (c *Collection) InsertDocuments(docs []*document.Document) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n, doc := range docs {
		if err := c.addDocument(doc); err != nil {
			return n, err
		}
	}
	return len(docs), nil
}

// addDocument inserts a single document: index checks first, then the
// store write, then index registration. Caller holds the write lock.
func (c *Collection) addDocument(doc *document.Document) error {
	if !doc.Has(c.idField) {
		withID := document.New()
		withID.Set(c.idField, document.NewObjectID())
		withID.CloneInto(doc)
		doc = withID
	}

	if id, _ := doc.Get(c.idField); document.TypeOf(id) == document.TypeArray {
		return &ServerError{Message: "can't use an array for _id"}
	}
	for _, key := range doc.Keys() {
		if strings.Contains(key, ".") {
			return &ServerError{Message: "field names cannot contain '.'"}
		}
	}

	c.indexMu.RLock()
	defer c.indexMu.RUnlock()

	for _, idx := range c.indexes {
		if err := idx.CheckAdd(doc); err != nil {
			return err
		}
	}

	key, err := c.store.Insert(doc)
	if err != nil {
		return err
	}

	for _, idx := range c.indexes {
		idx.Add(doc, key)
	}

	c.dataSize += document.CalculateSize(doc)
	c.emit(OperationInsert, doc)
	return nil
}

// queryDocuments narrows candidates through the first index that can
// handle the query, matches, sorts, then applies skip and limit. Caller
// holds at least the read lock.
func (c *Collection) queryDocuments(q, orderBy *document.Document, skip, limit int) ([]matched, error) {
	c.indexMu.RLock()
	var candidates []uint64
	narrowed := false
	for _, idx := range c.indexes {
		if idx.CanHandle(q) {
			candidates = idx.Keys(q)
			narrowed = true
			break
		}
	}
	c.indexMu.RUnlock()

	if !narrowed {
		candidates = c.store.Keys()
	}

	results := make([]matched, 0)
	for _, key := range candidates {
		doc, err := c.store.Fetch(key)
		if err != nil {
			return nil, err
		}
		ok, err := c.matcher.Matches(doc, q)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, matched{key: key, doc: doc})
		}
	}

	sortMatches(results, orderBy)

	if skip > 0 {
		if skip >= len(results) {
			return nil, nil
		}
		results = results[skip:]
	}
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// sortMatches applies an orderby document. $natural keeps store order.
func sortMatches(results []matched, orderBy *document.Document) {
	if orderBy == nil || orderBy.Len() == 0 {
		return
	}

	fields := orderBy.Keys()
	sort.SliceStable(results, func(i, j int) bool {
		for _, field := range fields {
			if field == "$natural" {
				continue
			}
			direction := int64(1)
			if d, ok := orderBy.Get(field); ok {
				if n, ok := document.Normalize(d).(int64); ok {
					direction = n
				} else if f, ok := document.Normalize(d).(float64); ok && f < 0 {
					direction = -1
				}
			}
			cmp := document.Compare(
				document.GetPath(results[i].doc, field),
				document.GetPath(results[j].doc, field))
			if cmp == 0 {
				continue
			}
			if direction < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// unwrapQuery extracts the query and orderby parts from a wrapped query
// object ("query"/"orderby" or "$query"/"$orderby")
func unwrapQuery(queryObject *document.Document) (q, orderBy *document.Document) {
	if queryObject == nil {
		return document.New(), nil
	}
	if queryObject.Has("query") {
		q, _ = docField(queryObject, "query")
		orderBy, _ = docField(queryObject, "orderby")
		return q, orderBy
	}
	if queryObject.Has("$query") {
		q, _ = docField(queryObject, "$query")
		orderBy, _ = docField(queryObject, "$orderby")
		return q, orderBy
	}
	return queryObject, nil
}

func docField(doc *document.Document, key string) (*document.Document, bool) {
	v, ok := doc.Get(key)
	if !ok {
		return document.New(), false
	}
	sub, ok := v.(*document.Document)
	if !ok {
		return document.New(), false
	}
	return sub, true
}

// HandleQuery evaluates a query object against the collection and returns
// the matching documents, projected through the optional field selector
func (c *Collection) HandleQuery(queryObject *document.Document, skip, limit int, fieldSelector *document.Document) ([]*document.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit < 0 {
		// negative limit requests automatic cursor close
		limit = -limit
	}

	q, orderBy := unwrapQuery(queryObject)

	if c.store.Count() == 0 {
		return nil, nil
	}

	results, err := c.queryDocuments(q, orderBy, skip, limit)
	if err != nil {
		return nil, err
	}

	docs := make([]*document.Document, 0, len(results))
	for _, m := range results {
		if fieldSelector != nil && fieldSelector.Len() > 0 {
			docs = append(docs, projectDocument(m.doc, fieldSelector, c.idField))
		} else {
			docs = append(docs, m.doc)
		}
	}
	return docs, nil
}

// projectDocument copies the fields with a truthy include flag, resolving
// dotted paths and skipping non-document intermediates. The identifier is
// included implicitly unless the selector mentions it.
func projectDocument(doc *document.Document, fields *document.Document, idField string) *document.Document {
	if doc == nil {
		return nil
	}

	projected := document.New()
	for _, key := range fields.Keys() {
		include, _ := fields.Get(key)
		if truthy(include) {
			projectField(doc, projected, key)
		}
	}

	if !fields.Has(idField) {
		id, _ := doc.Get(idField)
		projected.Set(idField, id)
	}

	return projected
}

func projectField(doc *document.Document, projected *document.Document, key string) {
	if doc == nil {
		return
	}

	if dotPos := strings.Index(key, "."); dotPos > 0 {
		mainKey := key[:dotPos]
		subKey := key[dotPos+1:]

		value, _ := doc.Get(mainKey)
		sub, ok := value.(*document.Document)
		if !ok {
			// only documents project through
			return
		}
		if !projected.Has(mainKey) {
			projected.Set(mainKey, document.New())
		}
		target, _ := projected.Get(mainKey)
		projectField(sub, target.(*document.Document), subKey)
		return
	}

	value, _ := doc.Get(key)
	projected.Set(key, value)
}

// Count returns the number of documents matching the query; an empty query
// counts everything
func (c *Collection) Count(q *document.Document) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if q == nil || q.Len() == 0 {
		return c.store.Count(), nil
	}

	results, err := c.queryDocuments(q, nil, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// CountAll returns the number of documents in the collection
func (c *Collection) CountAll() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Count()
}

// DataSize returns the running byte-size estimate of all live documents
func (c *Collection) DataSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataSize
}

// HandleDistinct returns the sorted unique values under the given key
// across all matching documents: { values: [...], ok: 1 }
func (c *Collection) HandleDistinct(spec *document.Document) (*document.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keyValue, _ := spec.Get("key")
	key, _ := keyValue.(string)
	q, _ := docField(spec, "query")

	results, err := c.queryDocuments(q, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, 0)
	for _, m := range results {
		if !m.doc.Has(key) {
			continue
		}
		value, _ := m.doc.Get(key)
		duplicate := false
		for _, existing := range values {
			if document.Equals(existing, value) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			values = append(values, value)
		}
	}

	sort.SliceStable(values, func(i, j int) bool {
		return document.Compare(values[i], values[j]) < 0
	})

	response := document.New()
	response.Set("values", values)
	response.Set("ok", int32(1))
	return response, nil
}

// DeleteDocuments removes the documents matching the selector, up to limit
// (0 means unlimited), and returns the number removed
func (c *Collection) DeleteDocuments(selector *document.Document, limit int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	results, err := c.queryDocuments(selector, nil, 0, limit)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range results {
		if err := c.removeDocument(m.doc); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// removeDocument drops a document from every index and the store. Caller
// holds the write lock.
func (c *Collection) removeDocument(doc *document.Document) error {
	c.indexMu.RLock()
	var key uint64
	found := false
	for _, idx := range c.indexes {
		if k, ok := idx.Remove(doc); ok {
			key = k
			found = true
		}
	}
	c.indexMu.RUnlock()

	if !found {
		// not found
		return nil
	}

	c.dataSize -= document.CalculateSize(doc)
	if err := c.store.Remove(key); err != nil {
		return err
	}
	c.emit(OperationDelete, doc)
	return nil
}

// UpdateDocuments applies an update to the documents matching the
// selector. Response shape: { n, updatedExisting, upserted? }.
func (c *Collection) UpdateDocuments(selector, updateQuery *document.Document, isMulti, isUpsert bool) (*document.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isMulti {
		for _, key := range updateQuery.Keys() {
			if !strings.HasPrefix(key, "$") {
				return nil, NewMultiUpdateRequiresOperators()
			}
		}
	}

	results, err := c.queryDocuments(selector, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	n := 0
	updatedExisting := false
	for _, m := range results {
		pos, err := c.matcher.MatchPosition(m.doc, selector)
		if err != nil {
			return nil, err
		}
		if _, err := c.updateDocument(m.key, m.doc, updateQuery, matchPosOf(pos)); err != nil {
			return nil, err
		}
		updatedExisting = true
		n++

		if !isMulti {
			break
		}
	}

	result := document.New()

	if n == 0 && isUpsert {
		newDoc, err := c.upsert(updateQuery, selector)
		if err != nil {
			return nil, err
		}
		idValue, hasID := selector.Get(c.idField)
		if !hasID || document.ContainsQueryExpression(idValue) {
			// the selector did not pin a concrete identifier
			id, _ := newDoc.Get(c.idField)
			result.Set("upserted", id)
		}
		n++
	}

	result.Set("n", int32(n))
	result.Set("updatedExisting", updatedExisting)
	return result, nil
}

func matchPosOf(pos *int) *document.MatchPos {
	if pos == nil {
		return nil
	}
	return document.NewMatchPos(*pos)
}

// updateDocument computes the post-state against a snapshot, verifies
// every index before mutating any of them, then swaps the stored content.
// A failed check leaves the document and all indexes untouched. Returns
// the prior document.
func (c *Collection) updateDocument(key uint64, doc *document.Document, updateQuery *document.Document, pos *document.MatchPos) (*document.Document, error) {
	c.locks.Lock(key)
	defer c.locks.Unlock(key)

	oldDoc := doc.Clone()

	newDoc, err := calculateUpdateDocument(doc, updateQuery, c.idField, pos, false)
	if err != nil {
		return nil, err
	}

	if document.Equals(newDoc, oldDoc) {
		return oldDoc, nil
	}

	for _, fieldName := range newDoc.Keys() {
		if strings.Contains(fieldName, ".") {
			return nil, &ServerError{Message: "field names cannot contain '.'"}
		}
	}

	c.indexMu.RLock()
	defer c.indexMu.RUnlock()

	for _, idx := range c.indexes {
		if err := idx.CheckUpdate(oldDoc, newDoc); err != nil {
			return nil, err
		}
	}
	for _, idx := range c.indexes {
		idx.UpdateInPlace(oldDoc, newDoc)
	}

	c.dataSize += document.CalculateSize(newDoc) - document.CalculateSize(oldDoc)

	if err := c.store.Replace(key, newDoc); err != nil {
		return nil, err
	}
	c.emit(OperationUpdate, newDoc)
	return oldDoc, nil
}

// upsert inserts the document synthesized from the selector and the update
func (c *Collection) upsert(updateQuery, selector *document.Document) (*document.Document, error) {
	seed, err := convertSelectorToDocument(selector)
	if err != nil {
		return nil, err
	}

	newDoc, err := calculateUpdateDocument(seed, updateQuery, c.idField, nil, true)
	if err != nil {
		return nil, err
	}

	if id := document.GetPath(newDoc, c.idField); id == nil {
		newDoc.Set(c.idField, c.deriveDocumentID(selector))
	}

	if err := c.addDocument(newDoc); err != nil {
		return nil, err
	}
	return newDoc, nil
}

// deriveDocumentID picks the identifier for an upserted document: the
// selector's concrete value, the first value of an $in expression, or a
// fresh object id
func (c *Collection) deriveDocumentID(selector *document.Document) interface{} {
	value, ok := selector.Get(c.idField)
	if ok && value != nil {
		if !document.ContainsQueryExpression(value) {
			return value
		}
		if expr, isDoc := value.(*document.Document); isDoc {
			for _, key := range expr.Keys() {
				if key != "$in" {
					continue
				}
				operand, _ := expr.Get(key)
				if list, isList := operand.([]interface{}); isList && len(list) > 0 {
					return list[0]
				}
			}
		}
	}
	return document.NewObjectID()
}

// convertSelectorToDocument builds the upsert seed: operator keys are
// dropped, as are values containing query expressions; dotted keys create
// nested documents
func convertSelectorToDocument(selector *document.Document) (*document.Document, error) {
	doc := document.New()
	for _, key := range selector.Keys() {
		if strings.HasPrefix(key, "$") {
			continue
		}
		value, _ := selector.Get(key)
		if document.ContainsQueryExpression(value) {
			continue
		}
		if err := document.SetPath(doc, key, document.CloneValue(value)); err != nil {
			return nil, &ServerError{Message: err.Error()}
		}
	}
	return doc, nil
}

// FindAndModify removes or updates the first match and returns it:
// { value, lastErrorObject?: { updatedExisting, n }, ok: 1 }
func (c *Collection) FindAndModify(spec *document.Document) (*document.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	returnNew := truthy(fieldOrNil(spec, "new"))

	if !spec.Has("remove") && !spec.Has("update") {
		return nil, &ServerError{Message: "need remove or update"}
	}

	q, _ := docField(spec, "query")
	var orderBy *document.Document
	if spec.Has("sort") {
		orderBy, _ = docField(spec, "sort")
	}

	var lastErrorObject *document.Document
	var returnDocument *document.Document
	num := 0

	results, err := c.queryDocuments(q, orderBy, 0, 1)
	if err != nil {
		return nil, err
	}

	for _, m := range results {
		num++
		if truthy(fieldOrNil(spec, "remove")) {
			if err := c.removeDocument(m.doc); err != nil {
				return nil, err
			}
			returnDocument = m.doc
		} else if updateQuery, ok := docField(spec, "update"); ok {
			pos, err := c.matcher.MatchPosition(m.doc, q)
			if err != nil {
				return nil, err
			}
			oldDoc, err := c.updateDocument(m.key, m.doc, updateQuery, matchPosOf(pos))
			if err != nil {
				return nil, err
			}
			if returnNew {
				returnDocument, err = c.store.Fetch(m.key)
				if err != nil {
					return nil, err
				}
			} else {
				returnDocument = oldDoc
			}
			lastErrorObject = document.New()
			lastErrorObject.Set("updatedExisting", true)
			lastErrorObject.Set("n", int32(1))
		}
	}

	if num == 0 && truthy(fieldOrNil(spec, "upsert")) {
		updateQuery, _ := docField(spec, "update")
		newDoc, err := c.upsert(updateQuery, q)
		if err != nil {
			return nil, err
		}
		if returnNew {
			returnDocument = newDoc
		} else {
			returnDocument = document.New()
		}
		num++
	}

	if fields, ok := docField(spec, "fields"); ok {
		returnDocument = projectDocument(returnDocument, fields, c.idField)
	}

	result := document.New()
	if lastErrorObject != nil {
		result.Set("lastErrorObject", lastErrorObject)
	}
	if returnDocument != nil {
		result.Set("value", returnDocument)
	} else {
		result.Set("value", nil)
	}
	result.Set("ok", int32(1))
	return result, nil
}

// GetStats returns the collection statistics document
func (c *Collection) GetStats() *document.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := c.store.Count()

	response := document.New()
	response.Set("ns", c.FullName())
	response.Set("count", int32(count))
	response.Set("size", c.dataSize)

	averageSize := float64(0)
	if count > 0 {
		averageSize = float64(c.dataSize) / float64(count)
	}
	response.Set("avgObjSize", averageSize)
	response.Set("storageSize", int32(0))
	response.Set("numExtents", int32(0))

	c.indexMu.RLock()
	response.Set("nindexes", int32(len(c.indexes)))
	indexSizes := document.New()
	for _, idx := range c.indexes {
		indexSizes.Set(idx.Name(), idx.DataSize())
	}
	c.indexMu.RUnlock()

	response.Set("indexSize", indexSizes)
	response.Set("ok", int32(1))
	return response
}

// Validate returns the collection validation document
func (c *Collection) Validate() *document.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	response := document.New()
	response.Set("ns", c.FullName())
	response.Set("extentCount", int32(0))
	response.Set("datasize", c.dataSize)
	response.Set("nrecords", int32(c.store.Count()))
	response.Set("padding", int32(1))
	response.Set("deletedCount", int32(0))
	response.Set("deletedSize", int32(0))

	c.indexMu.RLock()
	response.Set("nIndexes", int32(len(c.indexes)))
	keysPerIndex := document.New()
	for _, idx := range c.indexes {
		keysPerIndex.Set(idx.Name(), int64(idx.Count()))
	}
	c.indexMu.RUnlock()

	response.Set("keysPerIndex", keysPerIndex)
	response.Set("valid", true)
	response.Set("errors", []interface{}{})
	response.Set("ok", int32(1))
	return response
}

func fieldOrNil(doc *document.Document, key string) interface{} {
	v, _ := doc.Get(key)
	return v
}

// truthy mirrors the truthiness of command option flags
func truthy(v interface{}) bool {
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
