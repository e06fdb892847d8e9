// Package scoring computes the relevance of an index entry for a tokenized
// query.
//
// The pairwise score is cumulative over every (query token, entry token) pair:
// a query token that matches many entry tokens compounds. It is not capped or
// normalized.
package scoring

import (
	"strings"
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// Pairwise weights and boost constants.
const (
	ContainsWeight = 10.0
	ExactWeight    = 20.0
	SynonymWeight  = 5.0

	PopularityFactor = 0.01
	NewnessWindow    = 30 * 24 * time.Hour
)

// SynonymLookup reports whether candidate is a synonym of word.
type SynonymLookup interface {
	Has(word, candidate string) bool
}

// Scorer scores entries against query tokens.
type Scorer struct {
	synonyms SynonymLookup
	now      func() time.Time
}

// New creates a scorer. A nil clock defaults to time.Now.
func New(synonyms SynonymLookup, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{synonyms: synonyms, now: now}
}

// Result is the score of one entry with the entry tokens that matched.
type Result struct {
	Score      float64
	Highlights []string
}

// Score returns the pairwise score of entry for query plus the optional
// boosts. Boosts add to the pairwise sum even when no token matched, so a
// boosted entry can be a match on its own. Entries scoring zero or less are
// not matches; callers drop them.
func (s *Scorer) Score(query []string, entry *domain.IndexEntry, boost *domain.Boost) Result {
	var score float64
	var highlights []string
	var seen map[string]struct{}

	for _, tok := range entry.Tokens {
		var pair float64
		for _, q := range query {
			pair += s.pairScore(q, tok)
		}
		if pair == 0 {
			continue
		}
		score += pair

		if seen == nil {
			seen = make(map[string]struct{})
		}
		if _, dup := seen[tok]; !dup {
			seen[tok] = struct{}{}
			highlights = append(highlights, tok)
		}
	}

	if boost != nil {
		score += s.boost(entry, boost)
	}

	return Result{Score: score, Highlights: highlights}
}

func (s *Scorer) pairScore(q, tok string) float64 {
	var v float64
	if strings.Contains(tok, q) || strings.Contains(q, tok) {
		v += ContainsWeight
		if tok == q {
			v += ExactWeight
		}
	}
	if s.synonyms != nil && s.synonyms.Has(q, tok) {
		v += SynonymWeight
	}
	return v
}

func (s *Scorer) boost(entry *domain.IndexEntry, b *domain.Boost) float64 {
	var v float64

	if b.PopularProducts != 0 {
		v += entry.Popularity * b.PopularProducts * PopularityFactor
	}

	if b.NewProducts != 0 {
		age := s.now().Sub(entry.CreatedAt)
		if age < 0 {
			age = 0
		}
		if age < NewnessWindow {
			v += b.NewProducts * (1 - float64(age)/float64(NewnessWindow))
		}
	}

	if b.HighRated != 0 {
		v += entry.Rating * b.HighRated
	}

	return v
}
