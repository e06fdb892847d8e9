// Package index stores the searchable view of the catalog keyed by product id.
package index

import (
	"sort"
	"sync"
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine/tokenizer"
)

// Document pairs the scoring entry of a product with its display fields.
// Documents are never mutated after being stored.
type Document struct {
	Entry   domain.IndexEntry
	Product domain.Product
}

// Index maps product ids to documents. Thread-safe via sync.RWMutex.
type Index struct {
	mu   sync.RWMutex
	tok  *tokenizer.Tokenizer
	docs map[string]*Document
}

// New creates an empty index that tokenizes with tok.
func New(tok *tokenizer.Tokenizer) *Index {
	return &Index{
		tok:  tok,
		docs: make(map[string]*Document),
	}
}

// Put builds the document for rec and stores it, replacing any previous
// document with the same id. A record without a creation date keeps the date
// of the document it replaces, or now for a new id.
func (ix *Index) Put(rec domain.ProductRecord, now time.Time) *Document {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	return ix.putLocked(rec, now)
}

// PutAll stores every record under a single write lock and returns the stored
// documents. Records without an id are skipped.
func (ix *Index) PutAll(recs []domain.ProductRecord, now time.Time) []*Document {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	docs := make([]*Document, 0, len(recs))
	for i := range recs {
		if recs[i].ID == "" {
			continue
		}
		docs = append(docs, ix.putLocked(recs[i], now))
	}
	return docs
}

func (ix *Index) putLocked(rec domain.ProductRecord, now time.Time) *Document {
	createdAt := now.UTC()
	if rec.CreatedAt != nil {
		createdAt = rec.CreatedAt.UTC()
	} else if prev, ok := ix.docs[rec.ID]; ok {
		createdAt = prev.Entry.CreatedAt
	}

	doc := build(ix.tok, rec, createdAt)
	ix.docs[rec.ID] = doc
	return doc
}

// Delete removes the document for id and reports whether it existed.
func (ix *Index) Delete(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	_, ok := ix.docs[id]
	delete(ix.docs, id)
	return ok
}

// Get returns the document stored for id.
func (ix *Index) Get(id string) (*Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, ok := ix.docs[id]
	return doc, ok
}

// Len returns the number of indexed products.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Snapshot returns a consistent read-only view of the index. Later writes do
// not affect the snapshot.
func (ix *Index) Snapshot() *Snapshot {
	ix.mu.RLock()
	docs := make(map[string]*Document, len(ix.docs))
	for id, doc := range ix.docs {
		docs[id] = doc
	}
	ix.mu.RUnlock()

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Snapshot{ids: ids, docs: docs}
}

// Snapshot is an immutable view of the index taken at one point in time.
type Snapshot struct {
	ids  []string
	docs map[string]*Document
}

// IDs returns the product ids in ascending order.
func (s *Snapshot) IDs() []string {
	return s.ids
}

// Get returns the document for id.
func (s *Snapshot) Get(id string) (*Document, bool) {
	doc, ok := s.docs[id]
	return doc, ok
}

// Len returns the number of documents in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.ids)
}

// build derives the document for rec. Tokens come from the name followed by
// the description.
func build(tok *tokenizer.Tokenizer, rec domain.ProductRecord, createdAt time.Time) *Document {
	var rating float64
	if rec.Rating != nil {
		rating = *rec.Rating
	}
	var reviews int
	if rec.ReviewCount != nil {
		reviews = *rec.ReviewCount
	}
	var popularity float64
	if rec.Sales != nil {
		popularity = *rec.Sales
	}

	images := append([]string{}, rec.Images...)
	tags := append([]string{}, rec.Tags...)

	inStock := rec.Stock > 0

	return &Document{
		Entry: domain.IndexEntry{
			ID:          rec.ID,
			Tokens:      tok.Tokenize(rec.Name + " " + rec.Description),
			Category:    rec.Category,
			Brand:       rec.Brand,
			Price:       rec.Price,
			Rating:      rating,
			ReviewCount: reviews,
			InStock:     inStock,
			Popularity:  popularity,
			CreatedAt:   createdAt,
		},
		Product: domain.Product{
			ID:             rec.ID,
			Name:           rec.Name,
			Description:    rec.Description,
			Price:          rec.Price,
			CompareAtPrice: rec.CompareAtPrice,
			Images:         images,
			Rating:         rating,
			ReviewCount:    reviews,
			InStock:        inStock,
			Category:       rec.Category,
			Brand:          rec.Brand,
			Tags:           tags,
		},
	}
}
