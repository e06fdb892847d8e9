// Package results narrows and orders scored candidates.
package results

import (
	"log/slog"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// EntryLookup resolves a candidate's product id to its index entry.
type EntryLookup func(id string) (*domain.IndexEntry, bool)

// Filter keeps the candidates whose entries satisfy every constraint in f.
// Order is preserved. A candidate without an entry is dropped and logged,
// since it means the candidate list and the index went out of sync.
func Filter(candidates []domain.Candidate, f *domain.Filters, lookup EntryLookup, logger *slog.Logger) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		entry, ok := lookup(c.ProductID)
		if !ok {
			logger.Warn("candidate missing from index, dropping",
				slog.String("product_id", c.ProductID),
			)
			continue
		}
		if !matches(entry, f) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// matches reports whether entry satisfies all constraints of f. A nil f
// matches everything.
func matches(entry *domain.IndexEntry, f *domain.Filters) bool {
	if f == nil {
		return true
	}

	if len(f.Category) > 0 && !contains(f.Category, entry.Category) {
		return false
	}

	if len(f.Brand) > 0 && !contains(f.Brand, entry.Brand) {
		return false
	}

	// Price range filter, inclusive on both ends.
	if f.PriceRange != nil && !f.PriceRange.Contains(entry.Price) {
		return false
	}

	if f.Rating != nil && entry.Rating < *f.Rating {
		return false
	}

	if f.InStock != nil && entry.InStock != *f.InStock {
		return false
	}

	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
