package domain

import "math"

// Sort fields accepted by SearchQuery.Sort. Any other field falls back to
// relevance ordering.
const (
	SortRelevance  = "relevance"
	SortPrice      = "price"
	SortRating     = "rating"
	SortPopularity = "popularity"
	SortNewest     = "newest"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Facet fields, always produced in this order.
const (
	FacetCategory = "category"
	FacetBrand    = "brand"
	FacetPrice    = "price"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// PriceRange is an inclusive price interval. A nil Max leaves the range
// unbounded above.
type PriceRange struct {
	Min float64  `json:"min" validate:"gte=0"`
	Max *float64 `json:"max,omitempty" validate:"omitempty,gtefield=Min"`
}

// Upper returns the inclusive upper bound, +Inf when Max is unset.
func (r *PriceRange) Upper() float64 {
	if r.Max == nil {
		return math.Inf(1)
	}
	return *r.Max
}

// Contains reports whether price lies within the range.
func (r *PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Upper()
}

// Filters holds the structured constraints of a search. Nil or empty fields
// impose no constraint.
type Filters struct {
	Category   []string    `json:"category,omitempty"`
	Brand      []string    `json:"brand,omitempty"`
	PriceRange *PriceRange `json:"price_range,omitempty"`
	Rating     *float64    `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	InStock    *bool       `json:"in_stock,omitempty"`
}

// Sort selects the result ordering.
type Sort struct {
	Field string `json:"field"`
	Order string `json:"order" validate:"omitempty,oneof=asc desc"`
}

// Pagination selects a result page.
type Pagination struct {
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0"`
}

// Boost holds additive scoring weights. A zero weight disables that boost.
type Boost struct {
	PopularProducts float64 `json:"popular_products"`
	NewProducts     float64 `json:"new_products"`
	HighRated       float64 `json:"high_rated"`
}

// SearchQuery holds all parameters for a search request.
type SearchQuery struct {
	Query      string      `json:"query"`
	Filters    *Filters    `json:"filters,omitempty"`
	Sort       *Sort       `json:"sort,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Boost      *Boost      `json:"boost,omitempty"`
}

// Candidate is a scored product id produced during a single search call.
type Candidate struct {
	ProductID  string
	Score      float64
	Highlights []string
}

// FacetValue is one bucket of a facet.
type FacetValue struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Slug     string `json:"slug,omitempty"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// SearchFacet is a count breakdown of the filtered results along one field.
type SearchFacet struct {
	Field  string       `json:"field"`
	Label  string       `json:"label"`
	Values []FacetValue `json:"values"`
}

// PageInfo describes the returned page.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// SearchResult holds the paginated search response.
type SearchResult struct {
	Products     []ProductHit  `json:"products"`
	Facets       []SearchFacet `json:"facets"`
	Suggestions  []string      `json:"suggestions"`
	DidYouMean   string        `json:"did_you_mean,omitempty"`
	TotalResults int           `json:"total_results"`
	SearchTimeMs int64         `json:"search_time_ms"`
	Pagination   PageInfo      `json:"pagination"`
}
