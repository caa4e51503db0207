// internal/combiner/combiner.go
package combiner

import (
	"sort"
	"strings"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/textutil"
)

type Combiner struct {
	cfg    config.CombinerConfig
	logger logger.Logger
}

func New(cfg config.CombinerConfig, log logger.Logger) *Combiner {
	return &Combiner{cfg: cfg, logger: log}
}

// Combine merges the fan-out results into one answer. Factual-style
// questions take the single best result unmodified; explanatory and
// unclassified questions merge the top sources with sentence-level
// deduplication. The output is deterministic for a fixed result set,
// independent of arrival order.
func (c *Combiner) Combine(qc models.QueryContext, results []models.SearchResult) models.CombinedAnswer {
	usable := usableResults(results)
	if len(usable) == 0 {
		return noAnswer()
	}

	switch qc.QuestionType {
	case models.QuestionFactual, models.QuestionComputational, models.QuestionDefinitional:
		return c.bestSingle(usable)
	default:
		return c.merge(usable)
	}
}

func noAnswer() models.CombinedAnswer {
	return models.CombinedAnswer{
		Text:        models.NoAnswerText,
		Attribution: "",
		Quality:     0,
	}
}

// usableResults keeps succeeded results with non-empty text, ordered by
// quality descending with name as the deterministic tie-break.
func usableResults(results []models.SearchResult) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Success && strings.TrimSpace(r.Text) != "" {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quality != out[j].Quality {
			return out[i].Quality > out[j].Quality
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// bestSingle returns the highest-quality result verbatim.
func (c *Combiner) bestSingle(usable []models.SearchResult) models.CombinedAnswer {
	best := usable[0]
	return models.CombinedAnswer{
		Text:        best.Text,
		Attribution: best.Source,
		Quality:     best.Quality,
	}
}

// merge concatenates sentences from the top sources, dropping any sentence
// too similar to one already accepted.
func (c *Combiner) merge(usable []models.SearchResult) models.CombinedAnswer {
	candidates := usable
	if len(candidates) > c.cfg.MaxMergeSources {
		candidates = candidates[:c.cfg.MaxMergeSources]
	}

	var (
		accepted    []string
		acceptedTF  []map[string]float64
		contributed = map[string]bool{}
		bestQuality float64
	)

	for _, res := range candidates {
		if res.Quality < c.cfg.MinMergeScore {
			continue
		}
		for _, sentence := range textutil.SplitSentences(res.Text) {
			if !keepSentence(sentence) {
				continue
			}
			tf := textutil.TermFreq(sentence)
			if len(tf) == 0 {
				continue
			}
			duplicate := false
			for _, prev := range acceptedTF {
				if textutil.Cosine(tf, prev) > c.cfg.DedupeThreshold {
					duplicate = true
					break
				}
			}
			if duplicate {
				continue
			}
			accepted = append(accepted, sentence)
			acceptedTF = append(acceptedTF, tf)
			contributed[res.Source] = true
			if res.Quality > bestQuality {
				bestQuality = res.Quality
			}
		}
	}

	if len(accepted) == 0 {
		return noAnswer()
	}

	sources := make([]string, 0, len(contributed))
	for name := range contributed {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	return models.CombinedAnswer{
		Text:        strings.Join(accepted, ". ") + ".",
		Attribution: strings.Join(sources, "+"),
		Quality:     bestQuality,
	}
}

// keepSentence drops fragments that read like noise: mostly digits, very
// short, or not starting with a letter or digit.
func keepSentence(s string) bool {
	if len(s) < 20 {
		return false
	}
	if textutil.DigitRatio(s) > 0.3 {
		return false
	}
	return textutil.StartsAlnum(s)
}
