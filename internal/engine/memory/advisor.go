package memory

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sajari/fuzzy"

	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/engine/autocomplete"
	"github.com/utafrali/catalogsearch/internal/engine/tokenizer"
)

const (
	// defaultAdvisorLimit is the number of related queries attached to a result.
	defaultAdvisorLimit = 5

	// spellDepth is the largest edit distance a correction may cover.
	spellDepth = 2
)

var _ engine.Trainer = (*SpellAdvisor)(nil)

// SpellAdvisor proposes related queries from the autocomplete trie and
// corrects misspelled queries against the vocabulary it was trained on.
type SpellAdvisor struct {
	trie  *autocomplete.Trie
	limit int

	mu    sync.RWMutex
	model *fuzzy.Model
}

// NewSpellAdvisor creates an advisor that returns up to limit completions.
// The words already in trie seed the spelling model.
func NewSpellAdvisor(trie *autocomplete.Trie, limit int) *SpellAdvisor {
	if limit < 1 {
		limit = defaultAdvisorLimit
	}
	model := fuzzy.NewModel()
	model.SetDepth(spellDepth)
	model.SetThreshold(1)

	a := &SpellAdvisor{trie: trie, limit: limit, model: model}
	trie.Words(func(w string) { a.Train(w) })
	return a
}

// Train adds words to the spelling vocabulary. Repeated words weigh more.
func (a *SpellAdvisor) Train(words ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, w := range words {
		a.model.TrainWord(w)
	}
}

// Suggestions returns the distinct texts of the trie completions of query.
func (a *SpellAdvisor) Suggestions(query string) []string {
	found := a.trie.Suggest(query, a.limit)
	out := make([]string, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, s := range found {
		if _, dup := seen[s.Text]; dup {
			continue
		}
		seen[s.Text] = struct{}{}
		out = append(out, s.Text)
	}
	return out
}

// DidYouMean corrects each word of the lowercased query on its own. Words
// shorter than a token or without a close match stay as they are. It returns
// "" when no word changed.
func (a *SpellAdvisor) DidYouMean(query string) string {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return ""
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	changed := false
	for i, w := range words {
		if utf8.RuneCountInString(w) < tokenizer.MinTokenLength {
			continue
		}
		if fixed := a.model.SpellCheck(w); fixed != "" && fixed != w {
			words[i] = fixed
			changed = true
		}
	}
	if !changed {
		return ""
	}
	return strings.Join(words, " ")
}
