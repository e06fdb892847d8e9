package domain

// SuggestionType classifies an autocomplete suggestion.
type SuggestionType string

const (
	SuggestionProduct  SuggestionType = "product"
	SuggestionCategory SuggestionType = "category"
	SuggestionBrand    SuggestionType = "brand"
	SuggestionQuery    SuggestionType = "query"
)

// DefaultSuggestLimit is used when an autocomplete query carries no limit.
const DefaultSuggestLimit = 10

// IsValid reports whether t is one of the known suggestion types.
func (t SuggestionType) IsValid() bool {
	switch t {
	case SuggestionProduct, SuggestionCategory, SuggestionBrand, SuggestionQuery:
		return true
	}
	return false
}

// Suggestion is an autocomplete entry. It is immutable after insertion.
type Suggestion struct {
	Text       string            `json:"text" validate:"required"`
	Type       SuggestionType    `json:"type" validate:"oneof=product category brand query"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Popularity float64           `json:"popularity"`
}

// AutocompleteQuery asks for completions of the last word of Query.
type AutocompleteQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// IndexStats summarizes the engine state.
type IndexStats struct {
	Products    int `json:"products"`
	Synonyms    int `json:"synonyms"`
	Suggestions int `json:"suggestions"`
	TrieKeys    int `json:"trie_keys"`
}

// PopularQuery is a normalized search query with the number of times it was
// searched.
type PopularQuery struct {
	Query string  `json:"query"`
	Count float64 `json:"count"`
}
