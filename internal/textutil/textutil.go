// internal/textutil/textutil.go

// Package textutil holds the shared text primitives behind answer
// deduplication and semantic cache matching: normalization, term-frequency
// vectors, cosine similarity, and sentence splitting.
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var (
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`[.!?]+\s+|[.!?]+$`)
)

// Normalize lowercases and collapses punctuation and whitespace so that
// near-identical phrasings map to the same token stream.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = punctRe.ReplaceAllString(t, " ")
	t = whitespaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Tokenize splits normalized text into terms.
func Tokenize(text string) []string {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}
	return strings.Fields(norm)
}

// TermFreq builds a term-frequency vector for the text.
func TermFreq(text string) map[string]float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}

// Cosine computes cosine similarity between two term-frequency vectors.
// Empty vectors yield 0.
func Cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, av := range a {
		normA += av * av
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		normB += bv * bv
	}

	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Similarity is cosine similarity computed directly on two texts.
func Similarity(a, b string) float64 {
	return Cosine(TermFreq(a), TermFreq(b))
}

// SplitSentences breaks text into trimmed sentences on terminal punctuation.
func SplitSentences(text string) []string {
	parts := sentenceRe.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DigitRatio is the fraction of characters in s that are digits.
func DigitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	digits := 0
	total := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}

// StartsAlnum reports whether the first rune is a letter or digit.
func StartsAlnum(s string) bool {
	for _, r := range s {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
	return false
}

// HasAlnum reports whether the text contains any letter or digit at all.
func HasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
