// Package calendar builds the dim_date and dim_period rows that anchor every
// period computation and metric in asanadw, and parses the period grammar
// described in spec.md §4.2.
package calendar

import (
	"fmt"
	"time"
)

// PeriodType enumerates the canonical period granularities.
type PeriodType string

const (
	Year    PeriodType = "year"
	Half    PeriodType = "half"
	Quarter PeriodType = "quarter"
	Month   PeriodType = "month"
	Week    PeriodType = "week"

	// Rolling periods are computed ad hoc (spec.md §4.2) and never appear
	// in dim_period, which covers only the five calendar granularities.
	Rolling PeriodType = "rolling"
)

// DateRow mirrors one row of dim_date.
type DateRow struct {
	DateKey   int // YYYYMMDD
	Date      time.Time
	ISOYear   int
	ISOWeek   int
	Quarter   int // 1-4
	Half      int // 1-2
	Month     int // 1-12
	DayOfWeek int // 1=Mon .. 7=Sun
	IsWeekend bool

	IsFirstOfMonth   bool
	IsLastOfMonth    bool
	IsFirstOfQuarter bool
	IsLastOfQuarter  bool

	// Period join keys, each a YYYYMMDD-shaped integer identifying the
	// period's own canonical start date.
	YearKey    int
	HalfKey    int
	QuarterKey int
	MonthKey   int
	WeekKey    int

	DayOfQuarter int // 1-based offset within the quarter
	DayOfHalf    int // 1-based offset within the half

	// Prior-period same-day alignment keys. The quarter and month keys point
	// at the same offset in the same quarter/month one year earlier, the
	// linkage dim_period's PriorPeriodKey uses. Nil where not well-defined
	// (e.g. Feb 29 has no prior-year analog).
	PriorYearDateKey    *int
	PriorQuarterDateKey *int
	PriorMonthDateKey   *int
}

// PeriodRow mirrors one row of dim_period.
type PeriodRow struct {
	PeriodKey      int // YYYYMMDD of the period's start date
	PeriodType     PeriodType
	Label          string
	Start          time.Time
	End            time.Time
	DayCount       int
	PriorPeriodKey *int
}

func dateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func civil(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// quarterOf returns the calendar quarter (1-4) for month m.
func quarterOf(m time.Month) int { return (int(m)-1)/3 + 1 }

// halfOf returns the calendar half (1-2) for month m.
func halfOf(m time.Month) int { return (int(m)-1)/6 + 1 }

func firstOfQuarter(t time.Time) time.Time {
	q := quarterOf(t.Month())
	return civil(t.Year(), time.Month((q-1)*3+1), 1)
}

func firstOfHalf(t time.Time) time.Time {
	h := halfOf(t.Month())
	return civil(t.Year(), time.Month((h-1)*6+1), 1)
}

func firstOfMonth(t time.Time) time.Time { return civil(t.Year(), t.Month(), 1) }

func lastOfMonth(t time.Time) time.Time {
	return firstOfMonth(t).AddDate(0, 1, -1)
}

func lastOfQuarter(t time.Time) time.Time {
	return firstOfQuarter(t).AddDate(0, 3, -1)
}

// clampDay returns the last valid day of the given year/month if day exceeds
// the month's length (e.g. clampDay(2025, time.February, 30) -> 28).
func clampDay(y int, m time.Month, day int) time.Time {
	last := civil(y, m, 1).AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return civil(y, m, day)
}

// BuildDates generates dim_date rows spanning [from, to] inclusive (civil
// dates, UTC midnight). The sync engine extends the calendar lazily by
// calling this with a widened range whenever a batch references a date
// outside the currently populated window (spec.md §3 "extended lazily",
// §9 "dim_date extension policy").
func BuildDates(from, to time.Time) []DateRow {
	from = civil(from.Year(), from.Month(), from.Day())
	to = civil(to.Year(), to.Month(), to.Day())
	if to.Before(from) {
		return nil
	}

	n := int(to.Sub(from).Hours()/24) + 1
	rows := make([]DateRow, 0, n)
	for t := from; !t.After(to); t = t.AddDate(0, 0, 1) {
		rows = append(rows, buildDateRow(t))
	}
	return rows
}

func buildDateRow(t time.Time) DateRow {
	isoYear, isoWeek := t.ISOWeek()
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // Sunday -> 7
	}

	fq := firstOfQuarter(t)
	fh := firstOfHalf(t)
	fm := firstOfMonth(t)
	fw := isoWeekStart(t)

	dayOfQuarter := int(t.Sub(fq).Hours()/24) + 1
	dayOfHalf := int(t.Sub(fh).Hours()/24) + 1

	row := DateRow{
		DateKey:          dateKey(t),
		Date:             t,
		ISOYear:          isoYear,
		ISOWeek:          isoWeek,
		Quarter:          quarterOf(t.Month()),
		Half:             halfOf(t.Month()),
		Month:            int(t.Month()),
		DayOfWeek:        wd,
		IsWeekend:        wd == 6 || wd == 7,
		IsFirstOfMonth:   t.Equal(fm),
		IsLastOfMonth:    t.Equal(lastOfMonth(t)),
		IsFirstOfQuarter: t.Equal(fq),
		IsLastOfQuarter:  t.Equal(lastOfQuarter(t)),
		YearKey:          dateKey(civil(t.Year(), time.January, 1)),
		HalfKey:          dateKey(fh),
		QuarterKey:       dateKey(fq),
		MonthKey:         dateKey(fm),
		WeekKey:          dateKey(fw),
		DayOfQuarter:     dayOfQuarter,
		DayOfHalf:        dayOfHalf,
	}

	row.PriorYearDateKey = priorYearKey(t)
	row.PriorQuarterDateKey = priorOffsetKey(t, fq, dayOfQuarter, -4)
	row.PriorMonthDateKey = priorMonthKey(t)

	return row
}

// isoWeekStart returns the Monday that begins t's ISO week.
func isoWeekStart(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return t.AddDate(0, 0, -(wd - 1))
}

// priorYearKey returns the same calendar day one year earlier, or nil for
// Feb 29 when the prior year is not a leap year (spec.md §3).
func priorYearKey(t time.Time) *int {
	if t.Month() == time.February && t.Day() == 29 {
		prevYear := t.Year() - 1
		if !isLeap(prevYear) {
			return nil
		}
	}
	pt := clampDay(t.Year()-1, t.Month(), t.Day())
	k := dateKey(pt)
	return &k
}

func isLeap(y int) bool {
	return (y%4 == 0 && y%100 != 0) || y%400 == 0
}

// priorOffsetKey aligns t to the same offset-within-period in the
// `periodsBack`-th prior quarter, clamping if the prior quarter is shorter
// (spec.md §4.2 prior_period_to_date; §9 Feb 29 / month-length clamps).
func priorOffsetKey(t time.Time, periodStart time.Time, offset int, periodsBack int) *int {
	priorStart := periodStart.AddDate(0, 3*periodsBack, 0)
	priorEnd := priorStart.AddDate(0, 3, -1)
	priorLen := int(priorEnd.Sub(priorStart).Hours()/24) + 1
	if offset > priorLen {
		offset = priorLen
	}
	pt := priorStart.AddDate(0, 0, offset-1)
	k := dateKey(pt)
	return &k
}

func priorMonthKey(t time.Time) *int {
	priorMonthStart := firstOfMonth(t).AddDate(-1, 0, 0)
	pt := clampDay(priorMonthStart.Year(), priorMonthStart.Month(), t.Day())
	k := dateKey(pt)
	return &k
}

// BuildPeriods generates dim_period rows for every year/half/quarter/month/
// ISO-week overlapping [from, to].
func BuildPeriods(from, to time.Time) []PeriodRow {
	var rows []PeriodRow
	rows = append(rows, buildYearPeriods(from, to)...)
	rows = append(rows, buildHalfPeriods(from, to)...)
	rows = append(rows, buildQuarterPeriods(from, to)...)
	rows = append(rows, buildMonthPeriods(from, to)...)
	rows = append(rows, buildWeekPeriods(from, to)...)
	return rows
}

func buildYearPeriods(from, to time.Time) []PeriodRow {
	var rows []PeriodRow
	var prior *int
	for y := from.Year(); y <= to.Year(); y++ {
		start := civil(y, time.January, 1)
		end := civil(y, time.December, 31)
		k := dateKey(start)
		rows = append(rows, PeriodRow{
			PeriodKey: k, PeriodType: Year, Label: start.Format("2006"),
			Start: start, End: end, DayCount: int(end.Sub(start).Hours()/24) + 1,
			PriorPeriodKey: prior,
		})
		prior = &k
	}
	return rows
}

func buildHalfPeriods(from, to time.Time) []PeriodRow {
	var rows []PeriodRow
	priors := map[int]*int{1: nil, 2: nil}
	start := firstOfHalf(from)
	for !start.After(to) {
		h := halfOf(start.Month())
		end := start.AddDate(0, 6, -1)
		k := dateKey(start)
		label := formatHalfLabel(start.Year(), h)
		rows = append(rows, PeriodRow{
			PeriodKey: k, PeriodType: Half, Label: label,
			Start: start, End: end, DayCount: int(end.Sub(start).Hours()/24) + 1,
			PriorPeriodKey: priors[h],
		})
		pk := k
		priors[h] = &pk
		start = start.AddDate(0, 6, 0)
	}
	return rows
}

func buildQuarterPeriods(from, to time.Time) []PeriodRow {
	var rows []PeriodRow
	priors := map[int]*int{1: nil, 2: nil, 3: nil, 4: nil}
	start := firstOfQuarter(from)
	for !start.After(to) {
		q := quarterOf(start.Month())
		end := start.AddDate(0, 3, -1)
		k := dateKey(start)
		label := formatQuarterLabel(start.Year(), q)
		rows = append(rows, PeriodRow{
			PeriodKey: k, PeriodType: Quarter, Label: label,
			Start: start, End: end, DayCount: int(end.Sub(start).Hours()/24) + 1,
			PriorPeriodKey: priors[q],
		})
		pk := k
		priors[q] = &pk
		start = start.AddDate(0, 3, 0)
	}
	return rows
}

func buildMonthPeriods(from, to time.Time) []PeriodRow {
	var rows []PeriodRow
	priors := map[int]*int{}
	start := firstOfMonth(from)
	for !start.After(to) {
		end := lastOfMonth(start)
		k := dateKey(start)
		m := int(start.Month())
		rows = append(rows, PeriodRow{
			PeriodKey: k, PeriodType: Month, Label: start.Format("2006-01"),
			Start: start, End: end, DayCount: int(end.Sub(start).Hours()/24) + 1,
			PriorPeriodKey: priors[m],
		})
		pk := k
		priors[m] = &pk
		start = start.AddDate(0, 1, 0)
	}
	return rows
}

func buildWeekPeriods(from, to time.Time) []PeriodRow {
	var rows []PeriodRow
	var prior *int
	start := isoWeekStart(from)
	for !start.After(to) {
		end := start.AddDate(0, 0, 6)
		k := dateKey(start)
		year, week := start.ISOWeek()
		rows = append(rows, PeriodRow{
			PeriodKey: k, PeriodType: Week, Label: formatWeekLabel(year, week),
			Start: start, End: end, DayCount: 7,
			PriorPeriodKey: prior,
		})
		pk := k
		prior = &pk
		start = start.AddDate(0, 0, 7)
	}
	return rows
}

func formatHalfLabel(y, h int) string    { return fmt.Sprintf("%d-H%d", y, h) }
func formatQuarterLabel(y, q int) string { return fmt.Sprintf("%d-Q%d", y, q) }
func formatWeekLabel(y, w int) string    { return fmt.Sprintf("%d-W%02d", y, w) }
