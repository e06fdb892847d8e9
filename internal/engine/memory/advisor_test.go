package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine/autocomplete"
)

func TestSpellAdvisor_DidYouMean(t *testing.T) {
	a := NewSpellAdvisor(autocomplete.New(), 0)
	a.Train("difusor", "difusor", "vela", "lavanda")

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "one word corrected", query: "difusr", want: "difusor"},
		{name: "each word corrected", query: "Vella lavnda", want: "vela lavanda"},
		{name: "known words unchanged", query: "vela lavanda", want: ""},
		{name: "short words kept", query: "de difusr", want: "de difusor"},
		{name: "nothing close", query: "xyzxyz", want: ""},
		{name: "blank", query: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.DidYouMean(tt.query))
		})
	}
}

func TestSpellAdvisor_SeededFromTrie(t *testing.T) {
	tr := autocomplete.New()
	tr.Add(domain.Suggestion{Text: "incenso sândalo", Type: domain.SuggestionQuery})

	a := NewSpellAdvisor(tr, 0)
	assert.Equal(t, "incenso", a.DidYouMean("insenso"))
}

func TestSpellAdvisor_SuggestionsAreDistinct(t *testing.T) {
	tr := autocomplete.New()
	tr.Add(domain.Suggestion{Text: "vela", Type: domain.SuggestionQuery, Popularity: 2})
	tr.Add(domain.Suggestion{Text: "vela", Type: domain.SuggestionProduct, Popularity: 1})
	tr.Add(domain.Suggestion{Text: "velas", Type: domain.SuggestionCategory})

	a := NewSpellAdvisor(tr, 2)
	assert.Equal(t, []string{"vela"}, a.Suggestions("ve"))
}
