package engine

import (
	"context"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// SearchEngine defines the interface for indexing, searching and completing
// products. Implementations must be safe for concurrent use.
type SearchEngine interface {
	// Index adds or replaces a single product in the search index.
	Index(ctx context.Context, record *domain.ProductRecord) error

	// BulkIndex adds or replaces multiple products and returns how many were stored.
	BulkIndex(ctx context.Context, records []domain.ProductRecord) (int, error)

	// Delete removes a product from the search index by its ID.
	Delete(ctx context.Context, id string) (bool, error)

	// Search executes a search query and returns a result page with facets.
	Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, error)

	// AddSynonyms replaces the synonym list for word.
	AddSynonyms(ctx context.Context, word string, synonyms []string) error

	// AddSuggestion stores an autocomplete suggestion.
	AddSuggestion(ctx context.Context, suggestion domain.Suggestion) error

	// Suggest returns autocomplete suggestions for the last word of the query.
	Suggest(ctx context.Context, query *domain.AutocompleteQuery) ([]domain.Suggestion, error)

	// Stats reports the size of the engine's structures.
	Stats(ctx context.Context) domain.IndexStats
}

// Advisor proposes alternative queries for a search. It stands in for query
// suggestion and spelling correction, which are swappable collaborators.
type Advisor interface {
	// Suggestions returns related queries for query.
	Suggestions(query string) []string

	// DidYouMean returns a corrected query, or "" when it has none.
	DidYouMean(query string) string
}

// Trainer is implemented by advisors that learn the indexed vocabulary.
type Trainer interface {
	Train(words ...string)
}
