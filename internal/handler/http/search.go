package http

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/pkg/httputil"
	"github.com/utafrali/catalogsearch/pkg/pagination"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// SuggestResponse is the payload of the autocomplete endpoint.
type SuggestResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r)
	if err != nil {
		writeParamError(w, err.Error())
		return
	}

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// Query handles POST /api/v1/search/query with a full JSON search query,
// including boosts.
func (h *SearchHandler) Query(w http.ResponseWriter, r *http.Request) {
	var query domain.SearchQuery
	if err := httputil.DecodeJSON(w, r, &query); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	query.Query = strings.TrimSpace(query.Query)

	result, err := h.service.Search(r.Context(), &query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if prefix == "" {
		httputil.WriteData(w, http.StatusOK, SuggestResponse{Suggestions: []domain.Suggestion{}})
		return
	}

	limit := domain.DefaultSuggestLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			writeParamError(w, "limit must be a positive integer")
			return
		}
		limit = l
	}

	suggestions, err := h.service.Suggest(r.Context(), &domain.AutocompleteQuery{Query: prefix, Limit: limit})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, SuggestResponse{Suggestions: suggestions})
}

// Stats handles GET /api/v1/search/stats
func (h *SearchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.Stats(r.Context()))
}

// parseSearchQuery builds a search query from URL parameters. Category and
// brand accept repeated or comma-separated values.
func parseSearchQuery(r *http.Request) (*domain.SearchQuery, error) {
	values := r.URL.Query()
	p := pagination.FromRequest(r)

	query := &domain.SearchQuery{
		Query:      strings.TrimSpace(values.Get("q")),
		Pagination: &domain.Pagination{Page: p.Page, Limit: p.Limit},
	}

	var filters domain.Filters
	hasFilters := false

	if v := splitList(values["category"]); len(v) > 0 {
		filters.Category = v
		hasFilters = true
	}
	if v := splitList(values["brand"]); len(v) > 0 {
		filters.Brand = v
		hasFilters = true
	}

	minPrice, hasMin, err := parseFloat(values.Get("min_price"), "min_price")
	if err != nil {
		return nil, err
	}
	maxPrice, hasMax, err := parseFloat(values.Get("max_price"), "max_price")
	if err != nil {
		return nil, err
	}
	if hasMin || hasMax {
		filters.PriceRange = &domain.PriceRange{Min: minPrice}
		if hasMax {
			if minPrice > maxPrice {
				return nil, fmt.Errorf("min_price must not exceed max_price")
			}
			filters.PriceRange.Max = &maxPrice
		}
		hasFilters = true
	}

	rating, hasRating, err := parseFloat(values.Get("min_rating"), "min_rating")
	if err != nil {
		return nil, err
	}
	if hasRating {
		if rating > 5 {
			return nil, fmt.Errorf("min_rating must be between 0 and 5")
		}
		filters.Rating = &rating
		hasFilters = true
	}

	if v := values.Get("in_stock"); v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("in_stock must be a boolean")
		}
		filters.InStock = &inStock
		hasFilters = true
	}

	if hasFilters {
		query.Filters = &filters
	}

	if field := values.Get("sort"); field != "" {
		order := strings.ToLower(values.Get("order"))
		switch order {
		case "", domain.OrderAsc, domain.OrderDesc:
		default:
			return nil, fmt.Errorf("order must be one of: asc, desc")
		}
		query.Sort = &domain.Sort{Field: field, Order: order}
	}

	return query, nil
}

func parseFloat(raw, name string) (float64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%s must be a valid number", name)
	}
	if v < 0 {
		return 0, false, fmt.Errorf("%s must not be negative", name)
	}
	return v, true, nil
}

func splitList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, v := range strings.Split(item, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func writeParamError(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}
