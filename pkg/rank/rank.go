// Package rank orders tab and history candidates against a typed query.
//
// Scores run from 0 (best) to 1. A candidate is first scored by weighted
// approximate matching over title, page text and URL, then adjusted: an exact
// substring hit halves the score, an exact title match jumps to the front,
// and history entries are penalised so that an open tab beats its history
// twin.
package rank

import (
	"cmp"
	"slices"
	"strings"

	"github.com/devraulu/tabseek/pkg/candidate"
)

const (
	DefaultThreshold = 0.6

	ExactMatchBoost = 0.5
	HistoryPenalty  = 1.5
	ExactTitleScore = 1e-6

	// DefaultSurfaced is what the address bar shows: one default suggestion
	// plus six more.
	DefaultSurfaced = 7
)

type Options struct {
	// Threshold is the worst field score still considered a match.
	Threshold float64
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 || o.Threshold > 1 {
		return DefaultThreshold
	}
	return o.Threshold
}

type Result struct {
	candidate.Candidate
	Score      float64
	ExactTitle bool
}

// Rank scores and orders candidates for query. An empty query or no
// candidates yields an empty list.
func Rank(query string, candidates []candidate.Candidate, opts Options) []Result {
	query = strings.TrimSpace(query)
	if query == "" || len(candidates) == 0 {
		return []Result{}
	}

	pattern := patternRunes(query)
	lowerQuery := strings.ToLower(query)
	threshold := opts.threshold()

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		r := Result{Candidate: c}

		score, ok := baseScore(&r, pattern, threshold)
		if !ok {
			continue
		}

		if containsFold(c, lowerQuery) {
			score *= ExactMatchBoost
		}
		if strings.EqualFold(strings.TrimSpace(c.Title), query) {
			score = ExactTitleScore
			r.ExactTitle = true
		}
		if c.IsHistory {
			score *= HistoryPenalty
		}

		r.Score = clamp(score)
		results = append(results, r)
	}

	slices.SortStableFunc(results, compare)
	return results
}

// compare orders exact titles first, then by score, then open tabs before
// history. Remaining ties keep source order.
func compare(a, b Result) int {
	if a.ExactTitle != b.ExactTitle {
		if a.ExactTitle {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Score, b.Score); c != 0 {
		return c
	}
	if a.IsHistory != b.IsHistory {
		if !a.IsHistory {
			return -1
		}
		return 1
	}
	return 0
}

// Recent is the no-query view: history candidates, most recently visited
// first.
func Recent(candidates []candidate.Candidate) []Result {
	results := []Result{}
	for _, c := range candidates {
		if c.IsHistory {
			results = append(results, Result{Candidate: c})
		}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return b.Recency.Compare(a.Recency)
	})
	return results
}

// Surface splits ranked results into the default suggestion and at most
// max-1 further suggestions.
func Surface(results []Result, max int) (*Result, []Result) {
	if len(results) == 0 {
		return nil, []Result{}
	}
	if max <= 0 {
		max = DefaultSurfaced
	}
	top := results[0]
	rest := results[1:min(len(results), max)]
	return &top, rest
}

func containsFold(c candidate.Candidate, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(c.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(c.Text), lowerQuery) ||
		strings.Contains(strings.ToLower(c.URL), lowerQuery)
}

func clamp(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
