package gapdetector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGapsNoSyncedRanges(t *testing.T) {
	gaps := Gaps(Range{Start: d("2026-01-01"), End: d("2026-01-31")}, nil)
	assert.Equal(t, []Range{{Start: d("2026-01-01"), End: d("2026-01-31")}}, gaps)
}

func TestGapsFullyCovered(t *testing.T) {
	desired := Range{Start: d("2026-01-01"), End: d("2026-01-31")}
	synced := []Range{{Start: d("2026-01-01"), End: d("2026-01-31")}}
	assert.Empty(t, Gaps(desired, synced))
}

func TestGapsSplitAroundMiddleSyncedRange(t *testing.T) {
	desired := Range{Start: d("2026-01-01"), End: d("2026-03-31")}
	synced := []Range{{Start: d("2026-01-10"), End: d("2026-01-20")}}
	gaps := Gaps(desired, synced)
	assert.Equal(t, []Range{
		{Start: d("2026-01-01"), End: d("2026-01-09")},
		{Start: d("2026-01-21"), End: d("2026-03-31")},
	}, gaps)
}

func TestGapsMergesOverlappingAndAdjacentSyncedRanges(t *testing.T) {
	desired := Range{Start: d("2026-01-01"), End: d("2026-01-31")}
	synced := []Range{
		{Start: d("2026-01-01"), End: d("2026-01-10")},
		{Start: d("2026-01-11"), End: d("2026-01-15")}, // adjacent to previous
		{Start: d("2026-01-13"), End: d("2026-01-20")}, // overlaps previous
	}
	gaps := Gaps(desired, synced)
	assert.Equal(t, []Range{{Start: d("2026-01-21"), End: d("2026-01-31")}}, gaps)
}

func TestGapsTrimsSyncedRangeExtendingBeforeDesired(t *testing.T) {
	desired := Range{Start: d("2026-01-10"), End: d("2026-01-31")}
	synced := []Range{{Start: d("2026-01-01"), End: d("2026-01-15")}}
	gaps := Gaps(desired, synced)
	assert.Equal(t, []Range{{Start: d("2026-01-16"), End: d("2026-01-31")}}, gaps)
}

func TestGapsIgnoresSyncedRangeOutsideDesired(t *testing.T) {
	desired := Range{Start: d("2026-02-01"), End: d("2026-02-28")}
	synced := []Range{{Start: d("2026-01-01"), End: d("2026-01-31")}}
	gaps := Gaps(desired, synced)
	assert.Equal(t, []Range{desired}, gaps)
}

func TestSplitByMonthSingleMonth(t *testing.T) {
	parts := SplitByMonth(Range{Start: d("2026-01-05"), End: d("2026-01-20")})
	assert.Equal(t, []Range{{Start: d("2026-01-05"), End: d("2026-01-20")}}, parts)
}

func TestSplitByMonthMultipleMonths(t *testing.T) {
	parts := SplitByMonth(Range{Start: d("2026-01-15"), End: d("2026-03-10")})
	assert.Equal(t, []Range{
		{Start: d("2026-01-15"), End: d("2026-01-31")},
		{Start: d("2026-02-01"), End: d("2026-02-28")},
		{Start: d("2026-03-01"), End: d("2026-03-10")},
	}, parts)
}
