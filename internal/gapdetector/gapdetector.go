// Package gapdetector computes the date windows a sync still needs to fetch
// by subtracting already-synced ranges from a desired window, then splitting
// the remainder at calendar month boundaries for batched ingestion
// (spec.md §4.4, §4.5).
package gapdetector

import (
	"sort"
	"time"
)

// Range is an inclusive [Start, End] civil-date window.
type Range struct {
	Start time.Time
	End   time.Time
}

// Gaps returns the portions of [desired.Start, desired.End] not covered by
// synced, merging overlapping or adjacent synced ranges first and ordering
// the result oldest-to-newest (spec.md §8 "gap completeness": the returned
// gaps plus synced exactly reconstruct desired, with no overlaps).
func Gaps(desired Range, synced []Range) []Range {
	merged := merge(synced)

	var gaps []Range
	cursor := desired.Start
	for _, r := range merged {
		if r.End.Before(desired.Start) || r.Start.After(desired.End) {
			continue
		}
		start := r.Start
		if start.Before(desired.Start) {
			start = desired.Start
		}
		if cursor.Before(start) {
			gapEnd := start.AddDate(0, 0, -1)
			if !gapEnd.After(desired.End) {
				gaps = append(gaps, Range{Start: cursor, End: gapEnd})
			}
		}
		end := r.End
		if end.After(desired.End) {
			end = desired.End
		}
		if end.After(cursor) || end.Equal(cursor) {
			next := end.AddDate(0, 0, 1)
			if next.After(cursor) {
				cursor = next
			}
		}
	}
	if !cursor.After(desired.End) {
		gaps = append(gaps, Range{Start: cursor, End: desired.End})
	}
	return gaps
}

// merge sorts ranges by start and coalesces any that overlap or touch
// (one day's End immediately preceding another's Start).
func merge(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		adjacentOrOverlapping := !r.Start.After(last.End.AddDate(0, 0, 1))
		if adjacentOrOverlapping {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// SplitByMonth splits a gap into one Range per calendar month it overlaps,
// so the sync engine can ingest one transactional batch per month
// (spec.md §4.5 step 5).
func SplitByMonth(r Range) []Range {
	var out []Range
	cursor := r.Start
	for !cursor.After(r.End) {
		monthStart := time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, -1)
		end := monthEnd
		if end.After(r.End) {
			end = r.End
		}
		out = append(out, Range{Start: cursor, End: end})
		cursor = end.AddDate(0, 0, 1)
	}
	return out
}
