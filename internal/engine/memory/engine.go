package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/engine/autocomplete"
	"github.com/utafrali/catalogsearch/internal/engine/facet"
	"github.com/utafrali/catalogsearch/internal/engine/index"
	"github.com/utafrali/catalogsearch/internal/engine/results"
	"github.com/utafrali/catalogsearch/internal/engine/scoring"
	"github.com/utafrali/catalogsearch/internal/engine/synonym"
	"github.com/utafrali/catalogsearch/internal/engine/tokenizer"
	"github.com/utafrali/catalogsearch/pkg/pagination"
)

// Engine is an in-memory implementation of the SearchEngine interface. It owns
// the product index, the synonym table and the autocomplete trie; each
// structure carries its own read/write lock, so searches run concurrently with
// each other and never observe a half-written entry.
type Engine struct {
	tok      *tokenizer.Tokenizer
	index    *index.Index
	synonyms *synonym.Table
	trie     *autocomplete.Trie
	scorer   *scoring.Scorer
	advisor  engine.Advisor
	now      func() time.Time
	logger   *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*options)

type options struct {
	locale    string
	stopwords []string
	now       func() time.Time
	logger    *slog.Logger
	advisor   func(*autocomplete.Trie) engine.Advisor
}

// WithLocale selects the tokenizer stopword locale.
func WithLocale(locale string) Option {
	return func(o *options) { o.locale = locale }
}

// WithStopwords adds stopwords on top of the locale set.
func WithStopwords(words ...string) Option {
	return func(o *options) { o.stopwords = append(o.stopwords, words...) }
}

// WithClock sets the clock used for creation dates and newness boosts.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used for index diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAdvisor replaces the default spelling advisor. An advisor that also
// implements engine.Trainer is trained on indexed tokens and suggestion words.
func WithAdvisor(build func(*autocomplete.Trie) engine.Advisor) Option {
	return func(o *options) { o.advisor = build }
}

// New creates a new in-memory search engine.
func New(opts ...Option) *Engine {
	o := options{
		locale: tokenizer.LocalePT,
		now:    time.Now,
		logger: slog.Default(),
		advisor: func(t *autocomplete.Trie) engine.Advisor {
			return NewSpellAdvisor(t, defaultAdvisorLimit)
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	tok := tokenizer.New(o.locale, o.stopwords...)
	syn := synonym.New()
	trie := autocomplete.New()

	return &Engine{
		tok:      tok,
		index:    index.New(tok),
		synonyms: syn,
		trie:     trie,
		scorer:   scoring.New(syn, o.now),
		advisor:  o.advisor(trie),
		now:      o.now,
		logger:   o.logger,
	}
}

// Index adds or replaces a single product in the in-memory index.
func (e *Engine) Index(_ context.Context, record *domain.ProductRecord) error {
	doc := e.index.Put(*record, e.now())
	e.train(doc.Entry.Tokens)
	return nil
}

// BulkIndex adds or replaces multiple products under one index write lock.
func (e *Engine) BulkIndex(_ context.Context, records []domain.ProductRecord) (int, error) {
	docs := e.index.PutAll(records, e.now())
	for _, doc := range docs {
		e.train(doc.Entry.Tokens)
	}
	return len(docs), nil
}

// Delete removes a product from the in-memory index by its ID.
func (e *Engine) Delete(_ context.Context, id string) (bool, error) {
	return e.index.Delete(id), nil
}

// AddSynonyms replaces the synonym list for word.
func (e *Engine) AddSynonyms(_ context.Context, word string, synonyms []string) error {
	e.synonyms.Set(word, synonyms)
	return nil
}

// AddSuggestion stores an autocomplete suggestion. Blank text is ignored.
func (e *Engine) AddSuggestion(_ context.Context, s domain.Suggestion) error {
	if e.trie.Add(s) {
		e.train(e.tok.Tokenize(s.Text))
	}
	return nil
}

// train feeds words to the advisor when it learns vocabulary.
func (e *Engine) train(words []string) {
	if t, ok := e.advisor.(engine.Trainer); ok && len(words) > 0 {
		t.Train(words...)
	}
}

// Suggest returns autocomplete suggestions for the last word of the query.
func (e *Engine) Suggest(_ context.Context, q *domain.AutocompleteQuery) ([]domain.Suggestion, error) {
	return e.trie.Suggest(q.Query, q.Limit), nil
}

// Stats reports the size of the engine's structures.
func (e *Engine) Stats(_ context.Context) domain.IndexStats {
	return domain.IndexStats{
		Products:    e.index.Len(),
		Synonyms:    e.synonyms.Len(),
		Suggestions: e.trie.Len(),
		TrieKeys:    e.trie.Keys(),
	}
}

// Search scores every indexed product against the query, filters and sorts
// the matches, aggregates facets over the filtered set and returns one page.
func (e *Engine) Search(_ context.Context, q *domain.SearchQuery) (*domain.SearchResult, error) {
	start := time.Now()

	tokens := e.tok.Tokenize(q.Query)
	snap := e.index.Snapshot()
	lookup := func(id string) (*domain.IndexEntry, bool) {
		doc, ok := snap.Get(id)
		if !ok {
			return nil, false
		}
		return &doc.Entry, true
	}

	candidates := e.score(tokens, snap, q.Boost)

	matched := results.Filter(candidates, q.Filters, lookup, e.logger)
	results.Sort(matched, q.Sort, lookup)

	entries := make([]*domain.IndexEntry, 0, len(matched))
	for _, c := range matched {
		entry, _ := lookup(c.ProductID)
		entries = append(entries, entry)
	}
	facets := facet.Aggregate(entries, q.Filters)

	params := pageParams(q.Pagination)
	page := pagination.Window(matched, params)

	products := make([]domain.ProductHit, 0, len(page))
	for _, c := range page {
		doc, _ := snap.Get(c.ProductID)
		products = append(products, domain.ProductHit{
			Product:        doc.Product,
			RelevanceScore: c.Score,
			Highlights:     c.Highlights,
		})
	}

	result := &domain.SearchResult{
		Products:     products,
		Facets:       facets,
		Suggestions:  []string{},
		TotalResults: len(matched),
		Pagination: domain.PageInfo{
			Page:       params.Page,
			Limit:      params.Limit,
			TotalPages: pagination.TotalPages(len(matched), params.Limit),
		},
	}

	if strings.TrimSpace(q.Query) != "" {
		result.Suggestions = e.advisor.Suggestions(q.Query)
		if result.TotalResults == 0 {
			result.DidYouMean = e.advisor.DidYouMean(q.Query)
		}
	}

	result.SearchTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// score returns the candidates with a positive score, in snapshot id order.
func (e *Engine) score(tokens []string, snap *index.Snapshot, boost *domain.Boost) []domain.Candidate {
	if len(tokens) == 0 {
		return []domain.Candidate{}
	}

	candidates := make([]domain.Candidate, 0)
	for _, id := range snap.IDs() {
		doc, _ := snap.Get(id)
		res := e.scorer.Score(tokens, &doc.Entry, boost)
		if res.Score <= 0 {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			ProductID:  id,
			Score:      res.Score,
			Highlights: res.Highlights,
		})
	}
	return candidates
}

func pageParams(p *domain.Pagination) pagination.Params {
	if p == nil {
		return pagination.DefaultParams()
	}
	return pagination.New(p.Page, p.Limit)
}
