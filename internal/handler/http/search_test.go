package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine/memory"
	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/pkg/health"
)

const testAdminKey = "test-admin-key"

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

type testEnv struct {
	router http.Handler
	svc    *service.SearchService
	reg    *prometheus.Registry
}

func newTestEnv(t *testing.T, opts ...service.Option) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng := memory.New(memory.WithClock(func() time.Time { return now }), memory.WithLogger(logger))
	svc := service.NewSearchService(eng, logger, opts...)
	reg := prometheus.NewRegistry()

	router := NewRouter(svc, health.NewHandler(), RouterConfig{
		AdminAPIKey: testAdminKey,
		CacheMaxAge: 30 * time.Second,
		Registerer:  reg,
		Gatherer:    reg,
	}, logger)

	return &testEnv{router: router, svc: svc, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	contentType := ""
	if reader != nil {
		contentType = "application/json"
	}
	return e.doRaw(t, method, path, reader, contentType, token)
}

func (e *testEnv) doRaw(t *testing.T, method, path string, body io.Reader, contentType, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) *response {
	t.Helper()
	var resp response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	if data != nil {
		require.NotNil(t, resp.Data, "response carries no data")
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return &resp
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	rating := 4.5
	_, err := e.svc.BulkIndex(context.Background(), []domain.ProductRecord{
		{ID: "p1", Name: "Vela Aromática Lavanda", Category: "Velas", Brand: "ZenLife", Price: 39.9, Stock: 5, Rating: &rating},
		{ID: "p2", Name: "Vela Soja Baunilha", Category: "Velas", Brand: "Aura", Price: 24.5, Stock: 0},
		{ID: "p3", Name: "Vela Decorativa Grande", Category: "Decoração", Brand: "Aura", Price: 89.0, Stock: 2},
		{ID: "p4", Name: "Incenso Sândalo", Category: "Incensos", Brand: "ZenLife", Price: 12.0, Stock: 10},
	})
	require.NoError(t, err)
}

func hitIDs(products []domain.ProductHit) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestSearch_EmptyQueryReturnsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/v1/search?q=&page=1&limit=20", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.SearchResult
	decode(t, w, &result)
	assert.Equal(t, 0, result.TotalResults)
	assert.Equal(t, 0, result.Pagination.TotalPages)
	assert.Empty(t, result.Products)
}

func TestSearch_AppliesQueryParameters(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/v1/search?q=vela&category=Velas,Decora%C3%A7%C3%A3o&min_price=20&max_price=90&sort=price&order=desc", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.SearchResult
	decode(t, w, &result)
	assert.Equal(t, []string{"p3", "p1", "p2"}, hitIDs(result.Products))
	assert.Equal(t, 3, result.TotalResults)

	w = env.do(t, http.MethodGet, "/api/v1/search?q=vela&in_stock=true&brand=Aura", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.Equal(t, []string{"p3"}, hitIDs(result.Products))

	w = env.do(t, http.MethodGet, "/api/v1/search?q=vela&min_rating=4", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.Equal(t, []string{"p1"}, hitIDs(result.Products))
}

func TestSearch_Pagination(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/v1/search?q=vela&page=2&limit=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.SearchResult
	decode(t, w, &result)
	assert.Len(t, result.Products, 1)
	assert.Equal(t, domain.PageInfo{Page: 2, Limit: 2, TotalPages: 2}, result.Pagination)
}

func TestSearch_FacetsAndCacheHeaders(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/v1/search?q=vela", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=30", w.Header().Get("Cache-Control"))

	var result domain.SearchResult
	decode(t, w, &result)
	require.Len(t, result.Facets, 3)
	assert.Equal(t, domain.FacetCategory, result.Facets[0].Field)
	assert.Equal(t, domain.FacetBrand, result.Facets[1].Field)
	assert.Equal(t, domain.FacetPrice, result.Facets[2].Field)
}

func TestSearch_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"non-numeric min_price", "min_price=abc"},
		{"negative max_price", "max_price=-1"},
		{"inverted price range", "min_price=50&max_price=10"},
		{"rating above five", "min_rating=6"},
		{"non-boolean in_stock", "in_stock=maybe"},
		{"unknown order", "sort=price&order=sideways"},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/search?q=vela&"+tt.query, nil, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)

			resp := decode(t, w, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
		})
	}
}

func TestSearch_UnknownSortFallsBackToRelevance(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/v1/search?q=vela&sort=bestseller", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuery_PostedSearchWithBoost(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodPost, "/api/v1/search/query", map[string]any{
		"query":      "vela",
		"filters":    map[string]any{"category": []string{"Velas"}},
		"boost":      map[string]any{"high_rated": 10},
		"pagination": map[string]any{"page": 1, "limit": 10},
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var result domain.SearchResult
	decode(t, w, &result)
	assert.Equal(t, []string{"p1", "p2"}, hitIDs(result.Products))
	assert.Greater(t, result.Products[0].RelevanceScore, result.Products[1].RelevanceScore)
}

func TestQuery_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/search/query", map[string]any{
		"query":   "vela",
		"filters": map[string]any{"price_range": map[string]any{"min": 50, "max": 10}},
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "filters.price_range.max")
}

func TestQuery_MinimumPriceOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodPost, "/api/v1/search/query", map[string]any{
		"query":   "vela",
		"filters": map[string]any{"price_range": map[string]any{"min": 30}},
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.SearchResult
	decode(t, w, &result)
	assert.ElementsMatch(t, []string{"p1", "p3"}, hitIDs(result.Products))
}

func TestQuery_RejectsInvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/search/query", `{"query": `, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestSuggest_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/search/suggest", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var got SuggestResponse
	decode(t, w, &got)
	assert.NotNil(t, got.Suggestions)
	assert.Empty(t, got.Suggestions)
}

func TestSuggest_WithQuery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.svc.AddSuggestion(ctx, domain.Suggestion{Text: "difusor aromático", Type: domain.SuggestionProduct, Popularity: 50}))
	require.NoError(t, env.svc.AddSuggestion(ctx, domain.Suggestion{Text: "aromaterapia", Type: domain.SuggestionCategory, Popularity: 90}))
	require.NoError(t, env.svc.AddSuggestion(ctx, domain.Suggestion{Text: "vela", Type: domain.SuggestionQuery, Popularity: 10}))

	w := env.do(t, http.MethodGet, "/api/v1/search/suggest?q=arom&limit=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var got SuggestResponse
	decode(t, w, &got)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "aromaterapia", got.Suggestions[0].Text)

	w = env.do(t, http.MethodGet, "/api/v1/search/suggest?q=kiwi", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Empty(t, got.Suggestions)
}

func TestSuggest_InvalidLimit(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/search/suggest?q=vela&limit=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/v1/search/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats domain.IndexStats
	decode(t, w, &stats)
	assert.Equal(t, 4, stats.Products)
}
