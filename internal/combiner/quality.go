// internal/combiner/quality.go
package combiner

import (
	"strings"

	"search-orchestrator/internal/textutil"
)

// Phrases that signal the answer is an apology rather than content.
var apologyPhrases = []string{
	"não encontrei",
	"nao encontrei",
	"não sei",
	"desculpe",
	"not found",
	"no answer",
	"sorry",
}

// EvaluateQuality scores a final answer against the question on [0,1] using
// length, sentence count, query-term overlap, and apology detection.
func EvaluateQuality(question, answer string) float64 {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return 0
	}

	score := 0.0

	if n := len(trimmed); n >= 50 && n <= 1000 {
		score += 0.3
	}

	if len(textutil.SplitSentences(trimmed)) >= 2 {
		score += 0.3
	}

	score += 0.2 * termOverlap(question, trimmed)

	if !containsApology(trimmed) {
		score += 0.2
	}

	if score > 1 {
		score = 1
	}
	return score
}

// termOverlap is the fraction of question terms present in the answer.
func termOverlap(question, answer string) float64 {
	qTerms := textutil.Tokenize(question)
	if len(qTerms) == 0 {
		return 0
	}

	aTerms := make(map[string]bool)
	for _, t := range textutil.Tokenize(answer) {
		aTerms[t] = true
	}

	hits := 0
	for _, t := range qTerms {
		if aTerms[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(qTerms))
}

func containsApology(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range apologyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
