// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

func TestSummarize(t *testing.T) {
	tests := []struct {
		name          string
		values        []string
		wantAverage   *float64
		wantMedian    *float64
		wantConsensus bool
		wantTotal     int
	}{
		{
			name:          "mixed spread",
			values:        []string{"3", "5", "5", "8", "5", "3"},
			wantAverage:   floatPtr(4.8),
			wantMedian:    floatPtr(5), // sorted [3 3 5 5 5 8], index 3
			wantConsensus: false,
			wantTotal:     6,
		},
		{
			name:          "unanimous",
			values:        []string{"5", "5", "5"},
			wantAverage:   floatPtr(5.0),
			wantMedian:    floatPtr(5),
			wantConsensus: true,
			wantTotal:     3,
		},
		{
			name:          "all symbolic",
			values:        []string{"XS", "M", "?"},
			wantConsensus: true,
			wantTotal:     3,
		},
		{
			name:          "no votes",
			values:        nil,
			wantConsensus: true,
			wantTotal:     0,
		},
		{
			name:          "even count takes upper middle",
			values:        []string{"1", "2", "3", "8"},
			wantAverage:   floatPtr(3.5),
			wantMedian:    floatPtr(3),
			wantConsensus: false,
			wantTotal:     4,
		},
		{
			name:          "spread of exactly two is consensus",
			values:        []string{"3", "5", "?"},
			wantAverage:   floatPtr(4.0),
			wantMedian:    floatPtr(5),
			wantConsensus: true,
			wantTotal:     3,
		},
		{
			name:          "fractional tokens",
			values:        []string{"0.5", "1", "2"},
			wantAverage:   floatPtr(1.2), // 3.5/3 = 1.1666
			wantMedian:    floatPtr(1),
			wantConsensus: true,
			wantTotal:     3,
		},
		{
			name:          "infinity is symbolic",
			values:        []string{"Inf", "13"},
			wantAverage:   floatPtr(13),
			wantMedian:    floatPtr(13),
			wantConsensus: true,
			wantTotal:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)

			if got.TotalVotes != tt.wantTotal {
				t.Errorf("TotalVotes = %d, want %d", got.TotalVotes, tt.wantTotal)
			}
			if got.Consensus != tt.wantConsensus {
				t.Errorf("Consensus = %v, want %v", got.Consensus, tt.wantConsensus)
			}
			checkFloat(t, "Average", got.Average, tt.wantAverage)
			checkFloat(t, "Median", got.Median, tt.wantMedian)
		})
	}
}

func checkFloat(t *testing.T, field string, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %v, want nil", field, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %v", field, *want)
	case want != nil && *got != *want:
		t.Errorf("%s = %v, want %v", field, *got, *want)
	}
}

func TestFinalEstimate(t *testing.T) {
	tshirt := []string{"XS", "S", "M", "L", "XL", "XXL", "?"}
	fib := []string{"0", "1", "2", "3", "5", "8", "13", "?"}

	tests := []struct {
		name   string
		values []string
		scale  []string
		want   string
	}{
		{"median token", []string{"3", "5", "5", "8", "5", "3"}, fib, "5"},
		{"median ignores symbols", []string{"?", "8", "13", "?"}, fib, "13"},
		{"fractional token kept verbatim", []string{"0.5", "0.5", "1"}, []string{"0.5", "1"}, "0.5"},
		{"mode of symbols", []string{"M", "L", "M"}, tshirt, "M"},
		{"tie goes to earlier in scale", []string{"L", "S"}, tshirt, "S"},
		{"unknown tokens rank last", []string{"ZZ", "XL"}, tshirt, "XL"},
		{"empty", nil, tshirt, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FinalEstimate(tt.values, tt.scale); got != tt.want {
				t.Errorf("FinalEstimate() = %q, want %q", got, tt.want)
			}
		})
	}
}
