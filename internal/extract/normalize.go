package extract

import (
	"strings"
	"unicode"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/russian"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Word is a token of a text with its normalized key.
type Word struct {
	Text string
	Key  string
}

// SplitWords breaks text into runs of letters, digits, hyphens and
// apostrophes, trimming hyphens and apostrophes at the edges.
func SplitWords(text string) []string {
	fields := strings.FieldsFunc(norm.NFC.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.Trim(f, "-'"); f != "" {
			words = append(words, f)
		}
	}
	return words
}

// NormalizeWord maps a word to its matching key: NFC, case-folded, ё as е,
// and Russian-stemmed when the word is Cyrillic.
func NormalizeWord(word string) string {
	w := folder.String(norm.NFC.String(word))
	w = strings.ReplaceAll(w, "ё", "е")
	if !isCyrillic(w) {
		return w
	}

	env := snowballstem.NewEnv(w)
	russian.Stem(env)
	if stem := env.Current(); stem != "" {
		return stem
	}
	return w
}

// NormalizePhrase returns the space-joined keys of every word in phrase.
func NormalizePhrase(phrase string) string {
	words := SplitWords(phrase)
	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = NormalizeWord(w)
	}
	return strings.Join(keys, " ")
}

// Words splits text and normalizes each word.
func Words(text string) []Word {
	split := SplitWords(text)
	words := make([]Word, len(split))
	for i, w := range split {
		words[i] = Word{Text: w, Key: NormalizeWord(w)}
	}
	return words
}

func isCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}
