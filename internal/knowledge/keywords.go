package knowledge

import (
	"regexp"
	"slices"
	"strings"
)

var (
	keywordPattern = regexp.MustCompile(`[А-Яа-яЁё]{5,}`)
	codePattern    = regexp.MustCompile(`(?i)[A-Z]\d{2}(?:\.\d{1,2})?`)
)

// stopWords are common words long enough to pass keywordPattern.
var stopWords = []string{
	"которые", "который", "которая", "после", "также", "более", "менее",
	"через", "между", "может", "очень", "всего", "перед", "около",
}

// Keywords returns up to limit distinct lowercased Cyrillic words of five
// or more letters, in order of first appearance, without stop words.
func Keywords(text string, limit int) []string {
	seen := make(map[string]bool)
	var words []string

	for _, w := range keywordPattern.FindAllString(text, -1) {
		w = strings.ToLower(w)
		if seen[w] {
			continue
		}
		seen[w] = true
		if slices.Contains(stopWords, w) {
			continue
		}
		words = append(words, w)
		if limit > 0 && len(words) == limit {
			break
		}
	}

	return words
}

// CodeTokens returns the distinct diagnosis-code-shaped tokens in text,
// upper-cased, in order of first appearance.
func CodeTokens(text string) []string {
	seen := make(map[string]bool)
	var codes []string

	for _, c := range codePattern.FindAllString(text, -1) {
		c = strings.ToUpper(c)
		if seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}

	return codes
}
