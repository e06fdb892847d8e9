// Package seed loads synonyms and autocomplete suggestions from a YAML file
// at startup.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/pkg/validator"
)

// File is the seed document.
//
//	synonyms:
//	  vela: [candle, lamparina]
//	suggestions:
//	  - text: Velas Aromáticas
//	    type: category
//	    popularity: 120
type File struct {
	Synonyms    map[string][]string `yaml:"synonyms"`
	Suggestions []Suggestion        `yaml:"suggestions"`
}

// Suggestion is a seeded autocomplete entry.
type Suggestion struct {
	Text       string            `yaml:"text" json:"text" validate:"required"`
	Type       string            `yaml:"type" json:"type" validate:"oneof=product category brand query"`
	Popularity float64           `yaml:"popularity" json:"popularity" validate:"gte=0"`
	Metadata   map[string]string `yaml:"metadata" json:"metadata"`
}

// Target receives seeded data.
type Target interface {
	AddSynonyms(ctx context.Context, word string, synonyms []string) error
	AddSuggestion(ctx context.Context, suggestion domain.Suggestion) error
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are rejected and every
// suggestion is validated.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i := range f.Suggestions {
		if err := validator.Validate(&f.Suggestions[i]); err != nil {
			return nil, fmt.Errorf("seed suggestion %d: %w", i, err)
		}
	}
	for word := range f.Synonyms {
		if strings.TrimSpace(word) == "" {
			return nil, errors.New("seed synonyms: empty word")
		}
	}
	return &f, nil
}

// Counts reports how many entries of each kind were applied.
type Counts struct {
	Synonyms    int
	Suggestions int
}

// Apply feeds f into target.
func Apply(ctx context.Context, target Target, f *File) (Counts, error) {
	var c Counts
	if f == nil {
		return c, nil
	}

	for word, syns := range f.Synonyms {
		if err := target.AddSynonyms(ctx, word, syns); err != nil {
			return c, fmt.Errorf("seed synonyms for %q: %w", word, err)
		}
		c.Synonyms++
	}
	for _, s := range f.Suggestions {
		err := target.AddSuggestion(ctx, domain.Suggestion{
			Text:       s.Text,
			Type:       domain.SuggestionType(s.Type),
			Metadata:   s.Metadata,
			Popularity: s.Popularity,
		})
		if err != nil {
			return c, fmt.Errorf("seed suggestion %q: %w", s.Text, err)
		}
		c.Suggestions++
	}
	return c, nil
}
