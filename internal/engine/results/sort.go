package results

import (
	"cmp"
	"slices"

	"github.com/utafrali/catalogsearch/internal/domain"
)

type sortItem struct {
	cand  domain.Candidate
	entry *domain.IndexEntry
}

// Sort orders candidates in place. Without a sort, or with an unknown field,
// candidates are ordered by descending score. Named fields compare ascending
// and order "desc" inverts the comparison. Ties keep their incoming order.
func Sort(candidates []domain.Candidate, s *domain.Sort, lookup EntryLookup) {
	compare := comparator(s)

	items := make([]sortItem, len(candidates))
	for i, c := range candidates {
		entry, ok := lookup(c.ProductID)
		if !ok {
			entry = &domain.IndexEntry{ID: c.ProductID}
		}
		items[i] = sortItem{cand: c, entry: entry}
	}

	slices.SortStableFunc(items, compare)

	for i := range items {
		candidates[i] = items[i].cand
	}
}

func comparator(s *domain.Sort) func(a, b sortItem) int {
	byScore := func(a, b sortItem) int { return cmp.Compare(b.cand.Score, a.cand.Score) }
	if s == nil {
		return byScore
	}

	var asc func(a, b sortItem) int
	switch s.Field {
	case domain.SortPrice:
		asc = func(a, b sortItem) int { return cmp.Compare(a.entry.Price, b.entry.Price) }
	case domain.SortRating:
		asc = func(a, b sortItem) int { return cmp.Compare(a.entry.Rating, b.entry.Rating) }
	case domain.SortPopularity:
		asc = func(a, b sortItem) int { return cmp.Compare(a.entry.Popularity, b.entry.Popularity) }
	case domain.SortNewest:
		asc = func(a, b sortItem) int { return a.entry.CreatedAt.Compare(b.entry.CreatedAt) }
	default:
		return byScore
	}

	if s.Order == domain.OrderDesc {
		return func(a, b sortItem) int { return asc(b, a) }
	}
	return asc
}
