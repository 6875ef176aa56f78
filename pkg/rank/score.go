package rank

import (
	"math"
	"strings"
)

// epsilon stands in for a perfect field score so that a perfect match still
// contributes its weight to the product.
const epsilon = 2.220446049250313e-16

// maxPatternRunes bounds the approximate matcher's work per field.
const maxPatternRunes = 64

type field struct {
	weight float64
	value  func(r *Result) string
}

var fields = []field{
	{weight: 0.4, value: func(r *Result) string { return r.Title }},
	{weight: 0.4, value: func(r *Result) string { return r.Text }},
	{weight: 0.2, value: func(r *Result) string { return r.URL }},
}

// baseScore is the weighted fuzzy score of a candidate against a lower-cased
// pattern: 0 is a perfect match, 1 no match. Fields that are blank or worse
// than threshold do not contribute; ok is false if no field matched.
func baseScore(r *Result, pattern []rune, threshold float64) (float64, bool) {
	total := 1.0
	matched := false

	for _, f := range fields {
		value := f.value(r)
		if strings.TrimSpace(value) == "" {
			continue
		}

		s := fieldScore(pattern, strings.ToLower(value))
		if s > threshold {
			continue
		}
		matched = true

		if s == 0 {
			s = epsilon
		}
		total *= math.Pow(s, f.weight*fieldNorm(value))
	}

	return total, matched
}

// fieldScore is the fewest edits needed to find pattern anywhere in text,
// relative to the pattern length. Where the match sits does not matter.
func fieldScore(pattern []rune, text string) float64 {
	if len(pattern) == 0 {
		return 1
	}
	if strings.Contains(text, string(pattern)) {
		return 0
	}
	return float64(substringDistance(pattern, []rune(text))) / float64(len(pattern))
}

// substringDistance is the minimum edit distance between p and any substring
// of t.
func substringDistance(p, t []rune) int {
	m := len(p)
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for i := range prev {
		prev[i] = i
	}

	best := m
	for j := 1; j <= len(t); j++ {
		cur[0] = 0
		for i := 1; i <= m; i++ {
			cost := 1
			if p[i-1] == t[j-1] {
				cost = 0
			}
			cur[i] = min(prev[i-1]+cost, prev[i]+1, cur[i-1]+1)
		}
		if cur[m] < best {
			best = cur[m]
			if best == 0 {
				return 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}

// fieldNorm damps matches in long values: 1/sqrt(tokens), three decimals.
func fieldNorm(value string) float64 {
	tokens := len(strings.Fields(value))
	if tokens == 0 {
		return 1
	}
	return math.Round(1/math.Sqrt(float64(tokens))*1000) / 1000
}

func patternRunes(query string) []rune {
	p := []rune(strings.ToLower(query))
	if len(p) > maxPatternRunes {
		p = p[:maxPatternRunes]
	}
	return p
}
