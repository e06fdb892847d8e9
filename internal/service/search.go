package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/querylog"
	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
	"github.com/utafrali/catalogsearch/pkg/tracing"
	"github.com/utafrali/catalogsearch/pkg/validator"
)

// TracerName names the tracer used for service spans.
const TracerName = "github.com/utafrali/catalogsearch/internal/service"

// MaxSuggestLimit caps the number of autocomplete suggestions per request.
const MaxSuggestLimit = 50

const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// CatalogSource streams the full product catalog page by page.
type CatalogSource interface {
	FetchAll(ctx context.Context, fn func([]domain.ProductRecord) error) (int, error)
}

// ReindexResult summarizes a full catalog reindex.
type ReindexResult struct {
	Indexed    int   `json:"indexed"`
	Total      int   `json:"total"`
	DurationMs int64 `json:"duration_ms"`
}

// SearchService implements the business logic for search operations.
type SearchService struct {
	engine  engine.SearchEngine
	catalog CatalogSource
	queries querylog.Log
	metrics *Metrics
	tracer  trace.Tracer
	reindex singleflight.Group
	logger  *slog.Logger
}

// Option configures a SearchService.
type Option func(*SearchService)

// WithCatalog sets the product source used by Reindex.
func WithCatalog(c CatalogSource) Option {
	return func(s *SearchService) { s.catalog = c }
}

// WithQueryLog records every first-page search query in l.
func WithQueryLog(l querylog.Log) Option {
	return func(s *SearchService) { s.queries = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(s *SearchService) { s.metrics = m }
}

// NewSearchService creates a new search service.
func NewSearchService(eng engine.SearchEngine, logger *slog.Logger, opts ...Option) *SearchService {
	s := &SearchService{
		engine: eng,
		tracer: tracing.Tracer(TracerName),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates the query, normalizes its pagination and runs it against
// the engine.
func (s *SearchService) Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, error) {
	if query == nil {
		s.metrics.searched(outcomeInvalid, 0, 0)
		return nil, apperrors.InvalidInput("search query is required")
	}

	ctx, span := s.tracer.Start(ctx, "SearchService.Search",
		trace.WithAttributes(attribute.String("search.query", query.Query)),
	)
	defer span.End()

	normalizePagination(query)
	if err := validator.Validate(query); err != nil {
		s.metrics.searched(outcomeInvalid, 0, 0)
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}

	start := time.Now()
	result, err := s.engine.Search(ctx, query)
	if err != nil {
		s.metrics.searched(outcomeError, 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search: %w", err)
	}
	s.metrics.searched(outcomeOK, time.Since(start), result.TotalResults)
	span.SetAttributes(attribute.Int("search.total_results", result.TotalResults))

	if s.queries != nil && query.Pagination.Page == domain.DefaultPage && strings.TrimSpace(query.Query) != "" {
		if err := s.queries.Record(ctx, query.Query); err != nil {
			s.logger.WarnContext(ctx, "failed to record search query",
				slog.String("query", query.Query),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", query.Query),
		slog.Int("total", result.TotalResults),
		slog.Int64("took_ms", result.SearchTimeMs),
	)

	return result, nil
}

func normalizePagination(q *domain.SearchQuery) {
	if q.Pagination == nil {
		q.Pagination = &domain.Pagination{}
	}
	if q.Pagination.Page <= 0 {
		q.Pagination.Page = domain.DefaultPage
	}
	if q.Pagination.Limit <= 0 {
		q.Pagination.Limit = domain.DefaultLimit
	}
	if q.Pagination.Limit > domain.MaxLimit {
		q.Pagination.Limit = domain.MaxLimit
	}
}

// Suggest returns autocomplete suggestions for the last word of the query.
func (s *SearchService) Suggest(ctx context.Context, query *domain.AutocompleteQuery) ([]domain.Suggestion, error) {
	if query == nil {
		return nil, apperrors.InvalidInput("autocomplete query is required")
	}

	ctx, span := s.tracer.Start(ctx, "SearchService.Suggest",
		trace.WithAttributes(attribute.String("suggest.query", query.Query)),
	)
	defer span.End()

	if query.Limit <= 0 {
		query.Limit = domain.DefaultSuggestLimit
	}
	if query.Limit > MaxSuggestLimit {
		query.Limit = MaxSuggestLimit
	}

	start := time.Now()
	suggestions, err := s.engine.Suggest(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("suggest: %w", err)
	}
	s.metrics.suggested(time.Since(start))
	span.SetAttributes(attribute.Int("suggest.count", len(suggestions)))

	return suggestions, nil
}

// IndexProduct validates and indexes a single product.
func (s *SearchService) IndexProduct(ctx context.Context, record *domain.ProductRecord) error {
	if record == nil {
		return apperrors.InvalidInput("product is required")
	}
	if err := validator.Validate(record); err != nil {
		return err
	}

	if err := s.engine.Index(ctx, record); err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	s.refreshIndexSize(ctx)

	s.logger.InfoContext(ctx, "product indexed",
		slog.String("product_id", record.ID),
		slog.String("name", record.Name),
	)

	return nil
}

// BulkIndex indexes every valid record and returns how many were stored.
// Records that fail validation are skipped and logged.
func (s *SearchService) BulkIndex(ctx context.Context, records []domain.ProductRecord) (int, error) {
	valid := make([]domain.ProductRecord, 0, len(records))
	for i := range records {
		if err := validator.Validate(&records[i]); err != nil {
			s.logger.WarnContext(ctx, "skipping invalid product",
				slog.Int("index", i),
				slog.String("product_id", records[i].ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		valid = append(valid, records[i])
	}

	n, err := s.engine.BulkIndex(ctx, valid)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	s.refreshIndexSize(ctx)

	s.logger.InfoContext(ctx, "bulk index completed",
		slog.Int("count", n),
		slog.Int("skipped", len(records)-len(valid)),
	)

	return n, nil
}

// DeleteProduct removes a product from the search index.
func (s *SearchService) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.InvalidInput("product id is required")
	}

	removed, err := s.engine.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if !removed {
		return apperrors.NotFound("product", id)
	}
	s.refreshIndexSize(ctx)

	s.logger.InfoContext(ctx, "product deleted from index",
		slog.String("product_id", id),
	)

	return nil
}

// AddSynonyms replaces the synonym list of word.
func (s *SearchService) AddSynonyms(ctx context.Context, word string, synonyms []string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return apperrors.InvalidInput("synonym word is required")
	}

	if err := s.engine.AddSynonyms(ctx, word, synonyms); err != nil {
		return fmt.Errorf("add synonyms: %w", err)
	}

	s.logger.InfoContext(ctx, "synonyms updated",
		slog.String("word", word),
		slog.Int("count", len(synonyms)),
	)
	return nil
}

// AddSuggestion validates and stores an autocomplete suggestion.
func (s *SearchService) AddSuggestion(ctx context.Context, suggestion domain.Suggestion) error {
	if err := validator.Validate(&suggestion); err != nil {
		return err
	}
	if strings.TrimSpace(suggestion.Text) == "" {
		return apperrors.InvalidInput("suggestion text is required")
	}

	if err := s.engine.AddSuggestion(ctx, suggestion); err != nil {
		return fmt.Errorf("add suggestion: %w", err)
	}
	return nil
}

// Stats reports the size of the engine's structures.
func (s *SearchService) Stats(ctx context.Context) domain.IndexStats {
	return s.engine.Stats(ctx)
}

// Reindex pulls the whole catalog from the product service and upserts it
// into the index. Concurrent calls share a single run, which is detached from
// the caller's cancellation so one client disconnecting does not abort the
// others.
func (s *SearchService) Reindex(ctx context.Context) (*ReindexResult, error) {
	if s.catalog == nil {
		return nil, apperrors.ServiceUnavailable("product catalog is not configured")
	}

	ch := s.reindex.DoChan("reindex", func() (any, error) {
		return s.runReindex(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ReindexResult), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("reindex: %w", ctx.Err())
	}
}

func (s *SearchService) runReindex(ctx context.Context) (*ReindexResult, error) {
	ctx, span := s.tracer.Start(ctx, "SearchService.Reindex")
	defer span.End()

	start := time.Now()
	s.logger.InfoContext(ctx, "reindex started")

	indexed := 0
	fetched, err := s.catalog.FetchAll(ctx, func(records []domain.ProductRecord) error {
		n, err := s.engine.BulkIndex(ctx, records)
		indexed += n
		return err
	})
	s.refreshIndexSize(ctx)
	if err != nil {
		s.metrics.reindexed(outcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "reindex failed",
			slog.Int("indexed", indexed),
			slog.String("error", err.Error()),
		)
		return nil, &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "product catalog could not be read",
			Status:  http.StatusServiceUnavailable,
			Err:     fmt.Errorf("reindex: %w: %w", apperrors.ErrServiceUnavail, err),
		}
	}

	result := &ReindexResult{
		Indexed:    indexed,
		Total:      s.engine.Stats(ctx).Products,
		DurationMs: time.Since(start).Milliseconds(),
	}
	s.metrics.reindexed(outcomeOK)
	span.SetAttributes(attribute.Int("reindex.indexed", indexed))

	s.logger.InfoContext(ctx, "reindex completed",
		slog.Int("fetched", fetched),
		slog.Int("indexed", result.Indexed),
		slog.Int("total", result.Total),
		slog.Int64("duration_ms", result.DurationMs),
	)
	return result, nil
}

// LoadPopularQueries adds the n most searched queries as "query"
// suggestions, weighted by how often they were searched. It returns the
// number of suggestions added.
func (s *SearchService) LoadPopularQueries(ctx context.Context, n int) (int, error) {
	if s.queries == nil {
		return 0, nil
	}

	top, err := s.queries.Top(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("load popular queries: %w", err)
	}

	added := 0
	for _, q := range top {
		err := s.engine.AddSuggestion(ctx, domain.Suggestion{
			Text:       q.Query,
			Type:       domain.SuggestionQuery,
			Popularity: q.Count,
		})
		if err != nil {
			return added, fmt.Errorf("load popular queries: %w", err)
		}
		added++
	}

	s.logger.InfoContext(ctx, "popular queries loaded", slog.Int("count", added))
	return added, nil
}

func (s *SearchService) refreshIndexSize(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.indexSize(s.engine.Stats(ctx).Products)
	}
}
