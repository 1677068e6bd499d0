package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDatesCoversRangeInclusive(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	rows := BuildDates(from, to)
	require.Len(t, rows, 31)
	assert.Equal(t, 20260101, rows[0].DateKey)
	assert.Equal(t, 20260131, rows[len(rows)-1].DateKey)
}

func TestBuildDatesBoundaryFlags(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	rows := BuildDates(from, to)

	byKey := map[int]DateRow{}
	for _, r := range rows {
		byKey[r.DateKey] = r
	}

	assert.True(t, byKey[20260301].IsFirstOfMonth)
	assert.True(t, byKey[20260331].IsLastOfMonth)
	assert.True(t, byKey[20260331].IsLastOfQuarter) // Q1 ends Mar 31
	assert.False(t, byKey[20260315].IsFirstOfMonth)
}

func TestBuildDatesFeb29HasNoPriorYearKey(t *testing.T) {
	from := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	rows := BuildDates(from, to)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].PriorYearDateKey) // 2023 is not a leap year
}

func TestBuildDatesPriorQuarterDayOfQuarterAlignment(t *testing.T) {
	// 2026-02-07 is day_of_quarter 38 in Q1 2026 (Jan 31 + 7).
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)
	rows := BuildDates(from, to)
	last := rows[len(rows)-1]
	require.NotNil(t, last.PriorQuarterDateKey)

	prior := keyToDate(*last.PriorQuarterDateKey)
	assert.Equal(t, 2025, prior.Year())
	assert.True(t, prior.Before(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBuildPeriodsPriorLinkage(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	rows := BuildPeriods(from, to)

	var q1_2026, q1_2025 *PeriodRow
	for i := range rows {
		r := &rows[i]
		if r.PeriodType == Quarter && r.Label == "2026-Q1" {
			q1_2026 = r
		}
		if r.PeriodType == Quarter && r.Label == "2025-Q1" {
			q1_2025 = r
		}
	}
	require.NotNil(t, q1_2026)
	require.NotNil(t, q1_2025)
	require.NotNil(t, q1_2026.PriorPeriodKey)
	assert.Equal(t, q1_2025.PeriodKey, *q1_2026.PriorPeriodKey)
}

type mapLookup map[int]DateRow

func (m mapLookup) DateByKey(k int) (DateRow, bool) {
	r, ok := m[k]
	return r, ok
}

func lookupFor(rows []DateRow) mapLookup {
	m := mapLookup{}
	for _, r := range rows {
		m[r.DateKey] = r
	}
	return m
}

func TestParsePeriodGrammar(t *testing.T) {
	asOf := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input     string
		wantType  PeriodType
		wantStart string
		wantEnd   string
	}{
		{"2026", Year, "2026-01-01", "2026-12-31"},
		{"2026-H1", Half, "2026-01-01", "2026-06-30"},
		{"2026-Q1", Quarter, "2026-01-01", "2026-03-31"},
		{"2026-02", Month, "2026-02-01", "2026-02-28"},
		{"ytd", Year, "2026-01-01", "2026-02-07"},
		{"qtd", Quarter, "2026-01-01", "2026-02-07"},
		{"mtd", Month, "2026-02-01", "2026-02-07"},
		{"7d", Rolling, "2026-02-01", "2026-02-07"},
		{"rolling-7d", Rolling, "2026-02-01", "2026-02-07"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			p, err := Parse(tc.input, asOf)
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, p.Type)
			assert.Equal(t, tc.wantStart, p.Start.Format("2006-01-02"))
			assert.Equal(t, tc.wantEnd, p.End.Format("2006-01-02"))
		})
	}
}

func TestParseInvalidPeriod(t *testing.T) {
	_, err := Parse("not-a-period", time.Now())
	assert.ErrorContains(t, err, "invalid period format")
}

func TestParsePeriodRoundTrip(t *testing.T) {
	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	inputs := []string{"2026", "2026-H2", "2026-Q2", "2026-06", "2026-W25"}
	for _, in := range inputs {
		p, err := Parse(in, asOf)
		require.NoError(t, err)
		p2, err := Parse(p.Raw, asOf)
		require.NoError(t, err)
		assert.Equal(t, p.Start, p2.Start)
		assert.Equal(t, p.End, p2.End)
	}
}

func TestIsCurrent(t *testing.T) {
	asOf := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)
	p, err := Parse("2026-Q1", asOf)
	require.NoError(t, err)
	assert.True(t, IsCurrent(p, asOf))
	assert.False(t, IsCurrent(p, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPriorPeriodToDateCurrentQuarter(t *testing.T) {
	// spec.md §8 scenario 6: on 2026-02-07, day_of_quarter=38 in Q1 2026.
	asOf := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)
	calRows := BuildDates(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))
	lookup := lookupFor(calRows)

	p, err := Parse("2026-Q1", asOf)
	require.NoError(t, err)

	prior, err := PriorPeriodToDate(p, asOf, lookup)
	require.NoError(t, err)
	assert.Equal(t, Quarter, prior.Type)
	assert.Equal(t, "2025-01-01", prior.Start.Format("2006-01-02"))

	// End must match dim_date(asOf).prior_quarter_date_key exactly.
	row, ok := lookup.DateByKey(20260207)
	require.True(t, ok)
	require.NotNil(t, row.PriorQuarterDateKey)
	assert.Equal(t, keyToDate(*row.PriorQuarterDateKey), prior.End)
}

func TestPriorPeriodToDateFeb29Clamps(t *testing.T) {
	asOf := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	calRows := BuildDates(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	lookup := lookupFor(calRows)

	p, err := Parse("2024-02", asOf)
	require.NoError(t, err)
	prior, err := PriorPeriodToDate(p, asOf, lookup)
	require.NoError(t, err)
	assert.Equal(t, "2023-02-28", prior.End.Format("2006-01-02"))
}
