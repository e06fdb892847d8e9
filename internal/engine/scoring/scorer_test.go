package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine/synonym"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func TestScore_Pairwise(t *testing.T) {
	syn := synonym.New()
	syn.Set("difusor", []string{"aromatizador"})
	s := New(syn, fixedClock)

	tests := []struct {
		name   string
		query  []string
		tokens []string
		want   float64
	}{
		{name: "exact match", query: []string{"difusor"}, tokens: []string{"difusor"}, want: 30},
		{name: "query contained in token", query: []string{"difus"}, tokens: []string{"difusor"}, want: 10},
		{name: "token contained in query", query: []string{"difusores"}, tokens: []string{"difusor"}, want: 10},
		{name: "synonym only", query: []string{"difusor"}, tokens: []string{"aromatizador"}, want: 5},
		{name: "no match", query: []string{"vela"}, tokens: []string{"difusor", "led"}, want: 0},
		{name: "empty query", query: []string{}, tokens: []string{"difusor"}, want: 0},
		{
			name:   "cumulative over duplicate tokens",
			query:  []string{"difusor"},
			tokens: []string{"difusor", "aromático", "difusor"},
			want:   60,
		},
		{
			name:   "cumulative over query tokens",
			query:  []string{"difusor", "difusor"},
			tokens: []string{"difusor"},
			want:   60,
		},
		{
			name:   "full cross product",
			query:  []string{"difusor", "led"},
			tokens: []string{"difusor", "ultrassônico", "led", "aromatizador"},
			want:   30 + 30 + 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &domain.IndexEntry{Tokens: tt.tokens, CreatedAt: testNow}
			got := s.Score(tt.query, entry, nil)
			assert.Equal(t, tt.want, got.Score)
		})
	}
}

func TestScore_Highlights(t *testing.T) {
	s := New(synonym.New(), fixedClock)

	entry := &domain.IndexEntry{Tokens: []string{"difusor", "aromático", "difusor", "led"}}
	got := s.Score([]string{"difusor", "led"}, entry, nil)

	assert.Equal(t, []string{"difusor", "led"}, got.Highlights)
}

func TestScore_Boosts(t *testing.T) {
	s := New(synonym.New(), fixedClock)

	base := domain.IndexEntry{
		Tokens:     []string{"vela"},
		Popularity: 200,
		Rating:     4,
		CreatedAt:  testNow,
	}

	tests := []struct {
		name    string
		age     time.Duration
		boost   domain.Boost
		wantAdd float64
	}{
		{name: "popularity", boost: domain.Boost{PopularProducts: 2}, wantAdd: 200 * 2 * 0.01},
		{name: "rating", boost: domain.Boost{HighRated: 3}, wantAdd: 12},
		{name: "newness at day zero", boost: domain.Boost{NewProducts: 15}, wantAdd: 15},
		{name: "newness decays linearly", age: 15 * 24 * time.Hour, boost: domain.Boost{NewProducts: 10}, wantAdd: 5},
		{name: "newness zero at 30 days", age: 30 * 24 * time.Hour, boost: domain.Boost{NewProducts: 10}, wantAdd: 0},
		{name: "newness zero past window", age: 90 * 24 * time.Hour, boost: domain.Boost{NewProducts: 10}, wantAdd: 0},
		{name: "future creation counts as new", age: -24 * time.Hour, boost: domain.Boost{NewProducts: 10}, wantAdd: 10},
		{
			name:    "boosts add up",
			boost:   domain.Boost{PopularProducts: 1, NewProducts: 10, HighRated: 1},
			wantAdd: 2 + 10 + 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := base
			entry.CreatedAt = testNow.Add(-tt.age)
			boost := tt.boost

			got := s.Score([]string{"vela"}, &entry, &boost)
			assert.InDelta(t, 30+tt.wantAdd, got.Score, 1e-9)
		})
	}
}

func TestScore_BoostsApplyWithoutTextMatch(t *testing.T) {
	s := New(synonym.New(), fixedClock)

	entry := &domain.IndexEntry{Tokens: []string{"vela"}, Popularity: 1000, Rating: 5, CreatedAt: testNow.Add(-60 * 24 * time.Hour)}

	got := s.Score([]string{"difusor"}, entry, &domain.Boost{PopularProducts: 1, HighRated: 1})
	assert.InDelta(t, 10+5, got.Score, 1e-9)
	assert.Empty(t, got.Highlights)

	unboosted := s.Score([]string{"difusor"}, entry, nil)
	assert.Zero(t, unboosted.Score)
}

func TestNew_DefaultClock(t *testing.T) {
	s := New(nil, nil)

	entry := &domain.IndexEntry{Tokens: []string{"vela"}, CreatedAt: time.Now()}
	got := s.Score([]string{"vela"}, entry, &domain.Boost{NewProducts: 10})

	assert.InDelta(t, 40, got.Score, 0.01)
}
