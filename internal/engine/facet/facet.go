// Package facet aggregates category, brand and price counts over a filtered
// candidate set.
package facet

import (
	"math"
	"sort"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/pkg/slug"
)

// MaxBrandValues is the number of brand values kept, by count.
const MaxBrandValues = 10

// PriceBucket is a half-open price interval [Min, Max).
type PriceBucket struct {
	Value string
	Label string
	Min   float64
	Max   float64
}

// PriceBuckets are the fixed price facet buckets.
var PriceBuckets = []PriceBucket{
	{Value: "0-50", Label: "Até R$ 50", Min: 0, Max: 50},
	{Value: "50-100", Label: "R$ 50 a R$ 100", Min: 50, Max: 100},
	{Value: "100-200", Label: "R$ 100 a R$ 200", Min: 100, Max: 200},
	{Value: "200+", Label: "Acima de R$ 200", Min: 200, Max: math.Inf(1)},
}

// Contains reports whether price falls in the bucket.
func (b PriceBucket) Contains(price float64) bool {
	return price >= b.Min && price < b.Max
}

// Aggregate computes the category, brand and price facets, in that order, for
// the given entries. Entries are expected to be the filtered candidate set.
func Aggregate(entries []*domain.IndexEntry, filters *domain.Filters) []domain.SearchFacet {
	var selectedCategories, selectedBrands []string
	var priceRange *domain.PriceRange
	if filters != nil {
		selectedCategories = filters.Category
		selectedBrands = filters.Brand
		priceRange = filters.PriceRange
	}

	categories := countBy(entries, func(e *domain.IndexEntry) string { return e.Category })
	brands := countBy(entries, func(e *domain.IndexEntry) string { return e.Brand })
	if len(brands) > MaxBrandValues {
		brands = brands[:MaxBrandValues]
	}

	return []domain.SearchFacet{
		{
			Field:  domain.FacetCategory,
			Label:  "Categoria",
			Values: toValues(categories, selectedCategories),
		},
		{
			Field:  domain.FacetBrand,
			Label:  "Marca",
			Values: toValues(brands, selectedBrands),
		},
		{
			Field:  domain.FacetPrice,
			Label:  "Preço",
			Values: priceValues(entries, priceRange),
		},
	}
}

type valueCount struct {
	value string
	count int
}

// countBy counts the distinct non-empty values of key, ordered by count
// descending and then by value.
func countBy(entries []*domain.IndexEntry, key func(*domain.IndexEntry) string) []valueCount {
	counts := make(map[string]int)
	for _, e := range entries {
		v := key(e)
		if v == "" {
			continue
		}
		counts[v]++
	}

	out := make([]valueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, valueCount{value: v, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].value < out[j].value
	})
	return out
}

func toValues(counts []valueCount, selected []string) []domain.FacetValue {
	values := make([]domain.FacetValue, 0, len(counts))
	for _, vc := range counts {
		values = append(values, domain.FacetValue{
			Value:    vc.value,
			Label:    vc.value,
			Slug:     slug.Generate(vc.value),
			Count:    vc.count,
			Selected: isSelected(selected, vc.value),
		})
	}
	return values
}

func priceValues(entries []*domain.IndexEntry, priceRange *domain.PriceRange) []domain.FacetValue {
	values := make([]domain.FacetValue, 0, len(PriceBuckets))
	for _, b := range PriceBuckets {
		n := 0
		for _, e := range entries {
			if b.Contains(e.Price) {
				n++
			}
		}
		values = append(values, domain.FacetValue{
			Value:    b.Value,
			Label:    b.Label,
			Count:    n,
			Selected: priceRange != nil && priceRange.Min >= b.Min && priceRange.Upper() <= b.Max,
		})
	}
	return values
}

func isSelected(selected []string, v string) bool {
	for _, s := range selected {
		if s == v {
			return true
		}
	}
	return false
}
