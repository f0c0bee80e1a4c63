/*
Copyright © 2026 Guessbox contributors
*/

package main

import (
	"math"
	"sort"
)

// scoreRound computes the result of one round from the submitted entries.
// It is a pure function: given the same entries it always produces the same
// averages, ratios, and ranks, so a stored RoundRecord can be re-derived
// from its own player snapshot.
//
// The deviation ratio is the distance from the average as a percentage of
// the average. A zero average cannot divide, so in that case a zero guess
// scores 0% and any other guess scores 100%.
//
// Entries are returned sorted by distance from the average, closest first,
// with standard competition ranking: ties share a rank, and the next
// distinct distance takes rank index+1.
func scoreRound(entries []RoundEntry) (float64, []RoundEntry) {
	if len(entries) == 0 {
		return 0, nil
	}

	scored := make([]RoundEntry, len(entries))
	copy(scored, entries)

	total := 0
	for _, e := range scored {
		total += e.Value
	}
	average := float64(total) / float64(len(scored))

	for i := range scored {
		diff := math.Abs(float64(scored[i].Value) - average)
		scored[i].Diff = diff
		switch {
		case average > 0:
			scored[i].DiffRatio = (diff / average) * 100
		case scored[i].Value == 0:
			scored[i].DiffRatio = 0
		default:
			scored[i].DiffRatio = 100
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Diff < scored[j].Diff
	})

	rank := 0
	lastDiff := -1.0
	for i := range scored {
		if scored[i].Diff > lastDiff {
			rank = i + 1
			lastDiff = scored[i].Diff
		}
		scored[i].Rank = rank
	}

	return average, scored
}
