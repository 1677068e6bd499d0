package metrics

import "sort"

// median/p90/mean over a slice of day counts (spec.md §4.9 "Lead-time").
// Empty input returns all zeros rather than NaN, since "no tasks completed
// in period" is a normal, common case callers shouldn't have to special-case.

func median(days []int) float64 {
	if len(days) == 0 {
		return 0
	}
	sorted := sortedCopy(days)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return float64(sorted[mid])
}

func percentile(days []int, p float64) float64 {
	if len(days) == 0 {
		return 0
	}
	sorted := sortedCopy(days)
	idx := int(p * float64(len(sorted)-1))
	return float64(sorted[idx])
}

func mean(days []int) float64 {
	if len(days) == 0 {
		return 0
	}
	var sum int
	for _, d := range days {
		sum += d
	}
	return float64(sum) / float64(len(days))
}

func sortedCopy(days []int) []int {
	out := make([]int, len(days))
	copy(out, days)
	sort.Ints(out)
	return out
}
