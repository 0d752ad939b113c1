// Package textnorm cleans raw review text into a normalized form used by
// every downstream analysis stage. Normalization is deterministic: the same
// input always yields the same output.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// URLs: scheme://... or www.-prefixed hosts, up to the next whitespace.
	urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)
	// Anything that is neither a word character nor whitespace.
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// stopwords is a fixed list of short English function words dropped during
// normalization. Changing this list changes every cleaned artifact, so it
// is intentionally not configurable.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"is": {}, "it": {}, "be": {}, "as": {}, "by": {}, "this": {}, "that": {},
	"with": {}, "from": {}, "are": {}, "was": {}, "were": {}, "so": {},
	"we": {}, "he": {}, "she": {}, "they": {}, "you": {}, "i": {},
	"me": {}, "my": {}, "our": {}, "your": {}, "their": {},
}

// Normalize cleans review text:
//
//  1. lowercase
//  2. strip URLs
//  3. strip punctuation and symbols
//  4. collapse whitespace
//  5. drop stopwords
//
// It is total: any input, including the empty string, produces a result and
// never an error. No stemming or lemmatization is applied.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = nonWordPattern.ReplaceAllString(text, " ")

	tokens := strings.Fields(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, skip := stopwords[tok]; !skip {
			kept = append(kept, tok)
		}
	}

	return strings.Join(kept, " ")
}

// IsStopword reports whether a token is in the fixed stopword list.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
