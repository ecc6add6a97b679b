// Package textutil provides the token counting and timestamp primitives shared
// by the transcript and evaluation layers.
package textutil

import (
	"regexp"
	"strings"
)

var (
	wordRe = regexp.MustCompile(`\b\w+\b`)

	// advancedRe treats hyphenated compounds and contractions as single tokens.
	// Alternation order matters: the hyphenated branch must win over the plain
	// word branch so "65-year-old" counts once, not three times.
	advancedRe = regexp.MustCompile(`\b\w+(?:-\w+)+\b|\b\w+'\w+\b|\b\w+\b`)
)

// CountTokens counts whitespace-separated tokens.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// CountWords counts word tokens using a simple word-boundary regex.
// Punctuation does not contribute to the count.
func CountWords(text string) int {
	return len(wordRe.FindAllString(text, -1))
}

// CountTokensAdvanced counts tokens the way the summary evaluator expects:
// the text is lowercased, hyphenated compounds ("65-year-old") and
// contractions ("don't") each count as one token, and every other word counts
// as one token.
func CountTokensAdvanced(text string) int {
	return len(advancedRe.FindAllString(strings.ToLower(text), -1))
}

// Tokenize returns the lowercase token stream used for lexical matching.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}
