// Package synonym holds the word to alternate-word mapping consulted while
// scoring.
package synonym

import (
	"strings"
	"sync"
)

// Table maps a word to an ordered set of synonyms. Thread-safe via
// sync.RWMutex.
type Table struct {
	mu    sync.RWMutex
	words map[string][]string
}

// New creates an empty synonym table.
func New() *Table {
	return &Table{words: make(map[string][]string)}
}

// Set replaces the synonym list of word. Synonyms are lowercased, blanks are
// skipped and duplicates removed keeping first occurrence. An empty list
// removes the word.
func (t *Table) Set(word string, synonyms []string) {
	key := normalize(word)
	if key == "" {
		return
	}

	seen := make(map[string]struct{}, len(synonyms))
	list := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		s = normalize(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		list = append(list, s)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(list) == 0 {
		delete(t.words, key)
		return
	}
	t.words[key] = list
}

// Get returns a copy of the synonym list of word.
func (t *Table) Get(word string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	list := t.words[normalize(word)]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Has reports whether candidate is listed as a synonym of word.
func (t *Table) Has(word, candidate string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.words[word] {
		if s == candidate {
			return true
		}
	}
	return false
}

// Len returns the number of words with synonyms.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.words)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
