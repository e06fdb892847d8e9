package domain

import (
	"strings"
	"time"
)

// ProductRecord is a catalog feed record as received from the product service
// or the Kafka product events. Optional numeric fields are pointers so that an
// absent value can be told apart from zero.
type ProductRecord struct {
	ID             string     `json:"id" validate:"required"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Brand          string     `json:"brand"`
	Price          float64    `json:"price" validate:"gte=0"`
	CompareAtPrice *float64   `json:"compare_at_price,omitempty"`
	Images         []string   `json:"images"`
	Tags           []string   `json:"tags"`
	Rating         *float64   `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ReviewCount    *int       `json:"review_count,omitempty"`
	Stock          int        `json:"stock"`
	Sales          *float64   `json:"sales,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// IndexEntry is the scoring view of a product. Entries are immutable once
// stored; reindexing the same id replaces the whole entry.
type IndexEntry struct {
	ID          string    `json:"id"`
	Tokens      []string  `json:"tokens"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Price       float64   `json:"price"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	InStock     bool      `json:"in_stock"`
	Popularity  float64   `json:"popularity"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product is the display document returned to callers for a matched entry.
type Product struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	CompareAtPrice *float64 `json:"compare_at_price,omitempty"`
	Images         []string `json:"images"`
	Rating         float64  `json:"rating"`
	ReviewCount    int      `json:"review_count"`
	InStock        bool     `json:"in_stock"`
	Category       string   `json:"category"`
	Brand          string   `json:"brand"`
	Tags           []string `json:"tags"`
}

// ProductHit is a product in a search result page.
type ProductHit struct {
	Product
	RelevanceScore float64  `json:"relevance_score"`
	Highlights     []string `json:"highlights,omitempty"`
}

// IsPublished reports whether a catalog status makes a product searchable.
// Feeds that carry no status are treated as published.
func IsPublished(status string) bool {
	switch strings.ToLower(status) {
	case "", "published", "active":
		return true
	}
	return false
}
