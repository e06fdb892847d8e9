package pagination

import (
	"net/http"
	"strconv"
)

// Defaults applied when a request carries no usable pagination.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return New(DefaultPage, DefaultLimit)
}

// New builds params for page and limit. Values below 1 fall back to the
// defaults.
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// FromRequest extracts pagination parameters from an HTTP request. The page
// size is read from "limit", or "per_page" when "limit" is absent, and is
// ignored above MaxLimit.
func FromRequest(r *http.Request) Params {
	page, limit := DefaultPage, DefaultLimit

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	raw := r.URL.Query().Get("limit")
	if raw == "" {
		raw = r.URL.Query().Get("per_page")
	}
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= MaxLimit {
			limit = n
		}
	}

	return New(page, limit)
}

// TotalPages returns the number of pages needed for total items.
func TotalPages(total, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	return pages
}

// Window returns the slice of items on the page described by p. Pages past
// the end yield an empty, non-nil slice.
func Window[T any](items []T, p Params) []T {
	if p.Offset >= len(items) || p.Offset < 0 {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}
