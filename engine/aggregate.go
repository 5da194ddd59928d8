// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/danielhkuo/planning-poker/models"
)

// ConsensusSpread is the largest max-min spread still treated as agreement
const ConsensusSpread = 2.0

// Summarize aggregates the ballots of a revealed story.
//
// Only tokens that parse as finite numbers feed average, median and
// consensus; every ballot counts toward TotalVotes. The median is the
// element at index n/2 of the ascending numeric values, so an even count
// takes the upper-middle element rather than interpolating. With no
// numeric ballots Average and Median are nil and Consensus is true.
func Summarize(values []string) models.VoteSummary {
	nums := numericValues(values)
	summary := models.VoteSummary{
		TotalVotes: len(values),
		Consensus:  true,
	}
	if len(nums) == 0 {
		return summary
	}

	sort.Float64s(nums)

	avg := roundTenths(mean(nums))
	median := nums[len(nums)/2]
	summary.Average = &avg
	summary.Median = &median
	summary.Consensus = nums[len(nums)-1]-nums[0] <= ConsensusSpread

	return summary
}

// FinalEstimate picks the token recorded as a story's estimate: the token
// of the median ballot when any ballot is numeric, otherwise the most
// frequent token with ties going to the earlier token in the scale.
func FinalEstimate(values []string, scale []string) string {
	type ballot struct {
		token string
		num   float64
	}

	var numeric []ballot
	for _, v := range values {
		if f, ok := parseNumeric(v); ok {
			numeric = append(numeric, ballot{token: strings.TrimSpace(v), num: f})
		}
	}
	if len(numeric) > 0 {
		sort.SliceStable(numeric, func(i, j int) bool { return numeric[i].num < numeric[j].num })
		return numeric[len(numeric)/2].token
	}

	if len(values) == 0 {
		return ""
	}

	rank := make(map[string]int, len(scale))
	for i, s := range scale {
		rank[s] = i
	}
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		a, b := tokens[i], tokens[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		ra, okA := rank[a]
		rb, okB := rank[b]
		if okA != okB {
			return okA
		}
		if ra != rb {
			return ra < rb
		}
		return a < b
	})

	return tokens[0]
}

func numericValues(values []string) []float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := parseNumeric(v); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

// parseNumeric accepts finite decimal numbers only; "?", "XS", "Inf" and
// "NaN" are symbolic tokens.
func parseNumeric(token string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// mean calculates the arithmetic mean
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func roundTenths(v float64) float64 {
	return math.Round(v*10) / 10
}
