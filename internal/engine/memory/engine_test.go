package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/engine/autocomplete"
)

func ptr[T any](v T) *T { return &v }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...)
}

func difusorRecord() domain.ProductRecord {
	return domain.ProductRecord{
		ID:          "p1",
		Name:        "Difusor Aromático",
		Description: "Difusor ultrassônico com LED",
		Category:    "Difusores",
		Brand:       "ZenLife",
		Price:       129.9,
		Stock:       5,
	}
}

func catalog() []domain.ProductRecord {
	return []domain.ProductRecord{
		difusorRecord(),
		{ID: "p2", Name: "Difusor Elétrico", Description: "Difusor compacto para carro", Category: "Difusores", Brand: "Aroma+", Price: 59.9, Stock: 0, Rating: ptr(4.8), Sales: ptr(500.0)},
		{ID: "p3", Name: "Vela Aromática", Description: "Vela de soja lavanda", Category: "Velas", Brand: "Aroma+", Price: 39.9, Stock: 12, Rating: ptr(4.1)},
		{ID: "p4", Name: "Óleo Essencial Lavanda", Description: "Óleo puro para difusor", Category: "Óleos", Brand: "ZenLife", Price: 45, Stock: 3, Rating: ptr(4.9)},
		{ID: "p5", Name: "Kit Difusor Premium", Description: "Difusor de cerâmica com óleos", Category: "Difusores", Brand: "Casa Zen", Price: 249, Stock: 1},
	}
}

func indexAll(t *testing.T, e *Engine, recs []domain.ProductRecord) {
	t.Helper()
	n, err := e.BulkIndex(context.Background(), recs)
	require.NoError(t, err)
	require.Equal(t, len(recs), n)
}

func hitIDs(r *domain.SearchResult) []string {
	out := make([]string, len(r.Products))
	for i, p := range r.Products {
		out[i] = p.ID
	}
	return out
}

func TestEngine_SingleProductMatch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	rec := difusorRecord()
	require.NoError(t, e.Index(ctx, &rec))

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "difusor"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalResults)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].ID)
	assert.Greater(t, result.Products[0].RelevanceScore, 0.0)
	assert.Equal(t, []string{"difusor"}, result.Products[0].Highlights)
	assert.Equal(t, "Difusor Aromático", result.Products[0].Name)
	assert.True(t, result.Products[0].InStock)
}

func TestEngine_PriceFilterExcludes(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	rec := difusorRecord()
	require.NoError(t, e.Index(ctx, &rec))

	result, err := e.Search(ctx, &domain.SearchQuery{
		Query:   "difusor",
		Filters: &domain.Filters{PriceRange: &domain.PriceRange{Min: 200, Max: ptr(300.0)}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalResults)
	assert.Empty(t, result.Products)
}

func TestEngine_SuggestByInnerWord(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	require.NoError(t, e.AddSuggestion(ctx, domain.Suggestion{Text: "difusor aromático", Type: domain.SuggestionProduct, Popularity: 50}))

	got, err := e.Suggest(ctx, &domain.AutocompleteQuery{Query: "arom"})
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, "difusor aromático", got[0].Text)
}

func TestEngine_ScoreOrder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	// "vela" scores 30 against "vela" and 10 against "velas".
	indexAll(t, e, []domain.ProductRecord{
		{ID: "a-low", Name: "Velas", Price: 10},
		{ID: "b-high", Name: "Vela", Price: 10},
	})

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "vela"})
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, []string{"b-high", "a-low"}, hitIDs(result))
	assert.Equal(t, 30.0, result.Products[0].RelevanceScore)
	assert.Equal(t, 10.0, result.Products[1].RelevanceScore)
}

func TestEngine_EmptyQuery(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	result, err := e.Search(ctx, &domain.SearchQuery{
		Query:      "",
		Pagination: &domain.Pagination{Page: 1, Limit: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalResults)
	assert.Equal(t, 0, result.Pagination.TotalPages)
	assert.Empty(t, result.Products)
	assert.Empty(t, result.Suggestions)
	assert.Len(t, result.Facets, 3)
}

func TestEngine_StopwordOnlyQuery(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "o a de para com"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalResults)
}

func TestEngine_SynonymsContributeToScore(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, []domain.ProductRecord{{ID: "n1", Name: "Nebulizador", Price: 10}})

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "difusor"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalResults)

	require.NoError(t, e.AddSynonyms(ctx, "difusor", []string{"nebulizador"}))

	result, err = e.Search(ctx, &domain.SearchQuery{Query: "difusor"})
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalResults)
	assert.Equal(t, 5.0, result.Products[0].RelevanceScore)

	// Replacing the list drops the old synonym.
	require.NoError(t, e.AddSynonyms(ctx, "difusor", []string{"aromatizador"}))
	result, err = e.Search(ctx, &domain.SearchQuery{Query: "difusor"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalResults)
}

func TestEngine_FiltersAndFacets(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	result, err := e.Search(ctx, &domain.SearchQuery{
		Query:   "difusor",
		Filters: &domain.Filters{InStock: ptr(true)},
	})
	require.NoError(t, err)

	// p2 is out of stock.
	assert.ElementsMatch(t, []string{"p1", "p4", "p5"}, hitIDs(result))

	require.Len(t, result.Facets, 3)
	category := result.Facets[0]
	assert.Equal(t, domain.FacetCategory, category.Field)
	require.Len(t, category.Values, 2)
	assert.Equal(t, "Difusores", category.Values[0].Value)
	assert.Equal(t, 2, category.Values[0].Count)
	assert.Equal(t, "Óleos", category.Values[1].Value)
	assert.Equal(t, 1, category.Values[1].Count)

	price := result.Facets[2]
	assert.Equal(t, 1, price.Values[0].Count) // 45
	assert.Equal(t, 0, price.Values[1].Count)
	assert.Equal(t, 1, price.Values[2].Count) // 129.9
	assert.Equal(t, 1, price.Values[3].Count) // 249
}

func TestEngine_FacetCountInvariant(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	recs := catalog()
	recs = append(recs, domain.ProductRecord{ID: "p6", Name: "Difusor sem marca", Price: 75})
	indexAll(t, e, recs)

	queries := []*domain.SearchQuery{
		{Query: "difusor"},
		{Query: "difusor", Filters: &domain.Filters{Category: []string{"Difusores"}}},
		{Query: "lavanda óleo vela"},
		{Query: "difusor", Filters: &domain.Filters{PriceRange: &domain.PriceRange{Min: 50, Max: ptr(200.0)}}},
		{Query: "difusor", Pagination: &domain.Pagination{Page: 2, Limit: 1}},
	}

	for _, q := range queries {
		result, err := e.Search(ctx, q)
		require.NoError(t, err)

		withCategory, withBrand := 0, 0
		all, err := e.Search(ctx, &domain.SearchQuery{Query: q.Query, Filters: q.Filters, Pagination: &domain.Pagination{Limit: 100}})
		require.NoError(t, err)
		for _, p := range all.Products {
			if p.Category != "" {
				withCategory++
			}
			if p.Brand != "" {
				withBrand++
			}
		}

		sum := func(f domain.SearchFacet) int {
			n := 0
			for _, v := range f.Values {
				n += v.Count
			}
			return n
		}

		assert.Equal(t, withCategory, sum(result.Facets[0]), "category facet for %q", q.Query)
		assert.Equal(t, withBrand, sum(result.Facets[1]), "brand facet for %q", q.Query)
		assert.Equal(t, result.TotalResults, sum(result.Facets[2]), "price facet for %q", q.Query)
	}
}

func TestEngine_SortByField(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	result, err := e.Search(ctx, &domain.SearchQuery{
		Query: "difusor",
		Sort:  &domain.Sort{Field: domain.SortPrice, Order: domain.OrderAsc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p2", "p1", "p5"}, hitIDs(result))

	result, err = e.Search(ctx, &domain.SearchQuery{
		Query: "difusor",
		Sort:  &domain.Sort{Field: domain.SortPrice, Order: domain.OrderDesc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p5", "p1", "p2", "p4"}, hitIDs(result))
}

func TestEngine_UnknownSortFallsBackToScore(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	byScore, err := e.Search(ctx, &domain.SearchQuery{Query: "difusor"})
	require.NoError(t, err)

	unknown, err := e.Search(ctx, &domain.SearchQuery{Query: "difusor", Sort: &domain.Sort{Field: "color"}})
	require.NoError(t, err)

	assert.Equal(t, hitIDs(byScore), hitIDs(unknown))
	for i := 1; i < len(byScore.Products); i++ {
		assert.GreaterOrEqual(t, byScore.Products[i-1].RelevanceScore, byScore.Products[i].RelevanceScore)
	}
}

func TestEngine_BoostChangesRanking(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, []domain.ProductRecord{
		{ID: "old", Name: "Vela", Price: 10, CreatedAt: ptr(testNow.Add(-60 * 24 * time.Hour))},
		{ID: "new", Name: "Vela", Price: 10, CreatedAt: ptr(testNow)},
	})

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "vela"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, hitIDs(result), "ties keep id order")
	assert.Equal(t, result.Products[0].RelevanceScore, result.Products[1].RelevanceScore)

	result, err = e.Search(ctx, &domain.SearchQuery{Query: "vela", Boost: &domain.Boost{NewProducts: 10}})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, hitIDs(result))
	assert.Equal(t, 40.0, result.Products[0].RelevanceScore)
	assert.Equal(t, 30.0, result.Products[1].RelevanceScore)
}

func TestEngine_BoostAloneMakesCandidate(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	// p2 matches no token but its 500 sales add 5.
	result, err := e.Search(ctx, &domain.SearchQuery{Query: "lavanda", Boost: &domain.Boost{PopularProducts: 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalResults)
	assert.Equal(t, []string{"p3", "p4", "p2"}, hitIDs(result))
	assert.Equal(t, 5.0, result.Products[2].RelevanceScore)
	assert.Empty(t, result.Products[2].Highlights)

	empty, err := e.Search(ctx, &domain.SearchQuery{Query: "", Boost: &domain.Boost{PopularProducts: 1}})
	require.NoError(t, err)
	assert.Zero(t, empty.TotalResults)
}

func TestEngine_PaginationInvariant(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	var recs []domain.ProductRecord
	for i := 0; i < 23; i++ {
		recs = append(recs, domain.ProductRecord{ID: fmt.Sprintf("p%02d", i), Name: "Incenso natural", Price: float64(i)})
	}
	indexAll(t, e, recs)

	full, err := e.Search(ctx, &domain.SearchQuery{Query: "incenso", Pagination: &domain.Pagination{Page: 1, Limit: 100}})
	require.NoError(t, err)
	require.Equal(t, 23, full.TotalResults)

	for _, limit := range []int{1, 4, 10, 23, 50} {
		var collected []string
		first, err := e.Search(ctx, &domain.SearchQuery{Query: "incenso", Pagination: &domain.Pagination{Page: 1, Limit: limit}})
		require.NoError(t, err)

		for page := 1; page <= first.Pagination.TotalPages; page++ {
			r, err := e.Search(ctx, &domain.SearchQuery{Query: "incenso", Pagination: &domain.Pagination{Page: page, Limit: limit}})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(r.Products), limit)
			collected = append(collected, hitIDs(r)...)
		}
		assert.Equal(t, hitIDs(full), collected, "limit %d", limit)
	}
}

func TestEngine_OutOfRangePage(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "difusor", Pagination: &domain.Pagination{Page: 9, Limit: 2}})
	require.NoError(t, err)

	assert.Empty(t, result.Products)
	assert.Equal(t, 4, result.TotalResults)
	assert.Equal(t, 2, result.Pagination.TotalPages)
	assert.Equal(t, 9, result.Pagination.Page)
}

func TestEngine_DefaultPagination(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "qualquer"})
	require.NoError(t, err)
	assert.Equal(t, domain.PageInfo{Page: 1, Limit: 20, TotalPages: 0}, result.Pagination)
}

func TestEngine_ReindexIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	q := &domain.SearchQuery{Query: "difusor lavanda"}
	before, err := e.Search(ctx, q)
	require.NoError(t, err)

	indexAll(t, e, catalog())
	after, err := e.Search(ctx, q)
	require.NoError(t, err)

	before.SearchTimeMs, after.SearchTimeMs = 0, 0
	assert.Equal(t, before, after)
	assert.Equal(t, 5, e.Stats(ctx).Products)
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	removed, err := e.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = e.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, removed)

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "aromático"})
	require.NoError(t, err)
	assert.NotContains(t, hitIDs(result), "p1")
}

func TestEngine_ResultSuggestionsFromTrie(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())
	require.NoError(t, e.AddSuggestion(ctx, domain.Suggestion{Text: "difusor aromático", Type: domain.SuggestionProduct, Popularity: 10}))
	require.NoError(t, e.AddSuggestion(ctx, domain.Suggestion{Text: "difusores", Type: domain.SuggestionCategory, Popularity: 20}))

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "difus"})
	require.NoError(t, err)
	assert.Equal(t, []string{"difusores", "difusor aromático"}, result.Suggestions)
	assert.Empty(t, result.DidYouMean)
}

func TestEngine_DidYouMeanForMisspelledQuery(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "difusr"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalResults)
	assert.Equal(t, "difusor", result.DidYouMean)
}

func TestEngine_DidYouMeanLearnsSuggestionWords(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	require.NoError(t, e.AddSuggestion(ctx, domain.Suggestion{Text: "Bambu Natural", Type: domain.SuggestionQuery}))

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "bambo"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalResults)
	assert.Equal(t, "bambu", result.DidYouMean)
}

type stubAdvisor struct{}

func (stubAdvisor) Suggestions(string) []string { return []string{"stub"} }
func (stubAdvisor) DidYouMean(q string) string  { return q + "?" }

func TestEngine_CustomAdvisor(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(WithAdvisor(func(*autocomplete.Trie) engine.Advisor { return stubAdvisor{} }))

	result, err := e.Search(ctx, &domain.SearchQuery{Query: "nada"})
	require.NoError(t, err)
	assert.Equal(t, []string{"stub"}, result.Suggestions)
	assert.Equal(t, "nada?", result.DidYouMean)
}

func TestEngine_Stats(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())
	require.NoError(t, e.AddSynonyms(ctx, "vela", []string{"círio"}))
	require.NoError(t, e.AddSuggestion(ctx, domain.Suggestion{Text: "ab", Type: domain.SuggestionQuery}))

	stats := e.Stats(ctx)
	assert.Equal(t, domain.IndexStats{Products: 5, Synonyms: 1, Suggestions: 1, TrieKeys: 1}, stats)
}

func TestEngine_ConcurrentReadsAndWrites(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	indexAll(t, e, catalog())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(3)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				rec := domain.ProductRecord{ID: fmt.Sprintf("w%d-%d", w, i), Name: "Difusor extra", Price: 99}
				assert.NoError(t, e.Index(ctx, &rec))
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r, err := e.Search(ctx, &domain.SearchQuery{Query: "difusor"})
				assert.NoError(t, err)
				assert.GreaterOrEqual(t, r.TotalResults, 4)
			}
		}()
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.NoError(t, e.AddSynonyms(ctx, fmt.Sprintf("w%d", w), []string{"x"}))
				assert.NoError(t, e.AddSuggestion(ctx, domain.Suggestion{Text: "difusor extra", Type: domain.SuggestionQuery}))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 405, e.Stats(ctx).Products)
}
