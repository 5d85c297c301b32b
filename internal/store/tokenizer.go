package store

import "strings"

// Tokenize splits text on whitespace. Tokens keep their case and punctuation,
// so documents and queries must both go through this function.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// TermFrequency counts occurrences of each token.
func TermFrequency(tokens []string) map[string]int {
	freqs := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freqs[tok]++
	}
	return freqs
}
