// Package autocomplete implements a word trie of suggestion phrases.
//
// A phrase is reachable from every one of its words: adding "difusor
// aromático" stores the phrase under the key "difusor" and under the key
// "aromático". Lookups complete the last word of the query and return the
// phrases stored under every key with that prefix.
package autocomplete

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// entry is a stored suggestion. seq records insertion order for tie breaks.
type entry struct {
	suggestion domain.Suggestion
	seq        uint64
}

// Trie is a prefix index of suggestions backed by a patricia trie keyed on
// lowercased words. Thread-safe via sync.RWMutex.
type Trie struct {
	mu      sync.RWMutex
	words   *patricia.Trie
	seq     uint64
	entries int
	keys    int
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{words: patricia.NewTrie()}
}

// Add stores s under every space separated word of its lowercased text and
// reports whether anything was stored. Text without words is ignored.
func (t *Trie) Add(s domain.Suggestion) bool {
	words := strings.Fields(strings.ToLower(s.Text))
	if len(words) == 0 {
		return false
	}

	if s.Metadata != nil {
		s.Metadata = maps.Clone(s.Metadata)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	e := &entry{suggestion: s, seq: t.seq}
	t.entries++

	for _, w := range words {
		key := patricia.Prefix(w)
		stored, _ := t.words.Get(key).([]*entry)
		if stored == nil {
			t.keys++
		}
		t.words.Set(key, append(stored, e))
	}
	return true
}

// Suggest completes the last space separated word of query. It returns up to
// limit suggestions ordered by popularity, highest first, with earlier
// insertions winning ties. A limit below 1 means domain.DefaultSuggestLimit.
// Unknown prefixes and blank queries yield an empty slice.
func (t *Trie) Suggest(query string, limit int) []domain.Suggestion {
	if limit < 1 {
		limit = domain.DefaultSuggestLimit
	}

	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return []domain.Suggestion{}
	}
	prefix := words[len(words)-1]

	t.mu.RLock()
	found := t.collect(prefix)
	t.mu.RUnlock()

	slices.SortFunc(found, func(a, b *entry) int {
		if c := cmp.Compare(b.suggestion.Popularity, a.suggestion.Popularity); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	if len(found) > limit {
		found = found[:limit]
	}

	out := make([]domain.Suggestion, len(found))
	for i, e := range found {
		out[i] = e.suggestion
		if e.suggestion.Metadata != nil {
			out[i].Metadata = maps.Clone(e.suggestion.Metadata)
		}
	}
	return out
}

// collect gathers the distinct entries stored under every word starting with
// prefix. A phrase reachable through several matching words appears once.
// Caller must hold t.mu.
func (t *Trie) collect(prefix string) []*entry {
	var found []*entry
	seen := make(map[*entry]struct{})

	_ = t.words.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		stored, _ := item.([]*entry)
		for _, e := range stored {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			found = append(found, e)
		}
		return nil
	})
	return found
}

// Words calls fn for every distinct indexed word.
func (t *Trie) Words(fn func(word string)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_ = t.words.Visit(func(p patricia.Prefix, _ patricia.Item) error {
		fn(string(p))
		return nil
	})
}

// Len returns the number of stored suggestions.
func (t *Trie) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries
}

// Keys returns the number of distinct words the suggestions are indexed by.
func (t *Trie) Keys() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.keys
}
