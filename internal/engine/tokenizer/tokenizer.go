// Package tokenizer normalizes free text into index tokens.
//
// Text is lowercased, every rune that is neither a word rune (letter, digit or
// underscore) nor whitespace is replaced by a space, and the result is split
// on whitespace. Tokens of two runes or fewer and stopwords are dropped.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the shortest token kept, in runes.
const MinTokenLength = 3

// Locales with a built-in stopword set.
const (
	LocalePT = "pt"
	LocaleEN = "en"
)

var baseStopwords = []string{"o", "a", "de", "da", "do", "para", "com"}

var localeStopwords = map[string][]string{
	LocalePT: {
		"os", "as", "em", "no", "na", "nos", "nas", "um", "uma", "uns", "umas",
		"por", "que", "e", "ao", "aos", "dos", "das", "pelo", "pela", "sem",
		"mais", "muito", "seu", "sua",
	},
	LocaleEN: {
		"the", "and", "for", "with", "from", "that", "this", "are", "was",
		"you", "your", "its", "but", "not",
	},
}

// Tokenizer splits text into normalized tokens. It is safe for concurrent use.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// New creates a tokenizer with the default stopwords plus the additions for
// the given locale. Unknown locales get the default set only.
func New(locale string, extra ...string) *Tokenizer {
	words := make(map[string]struct{}, len(baseStopwords)+len(localeStopwords[locale])+len(extra))
	for _, w := range baseStopwords {
		words[w] = struct{}{}
	}
	for _, w := range localeStopwords[locale] {
		words[w] = struct{}{}
	}
	for _, w := range extra {
		words[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Tokenizer{stopwords: words}
}

// Tokenize returns the tokens of text in source order. Duplicates are kept.
// Empty or stopword-only input yields an empty, non-nil slice.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < MinTokenLength {
			continue
		}
		if t.IsStopword(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// IsStopword reports whether word (already lowercased) is a stopword.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// isSeparator treats whitespace and any non-word rune as a token boundary.
func isSeparator(r rune) bool {
	if r == '_' {
		return false
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
}
