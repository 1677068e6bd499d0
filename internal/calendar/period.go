package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adlio/asanadw/internal/errs"
)

// Period is a parsed, resolved time range of a given PeriodType.
type Period struct {
	Type  PeriodType
	Raw   string // canonical form, e.g. "2026-Q1", "rolling-30d", "ytd"
	Start time.Time
	End   time.Time
}

// Lookup resolves dim_date rows by key; it is how period operations reach
// the precomputed prior-period alignment columns (spec.md §4.2) without
// recomputing calendar arithmetic that the storage layer already owns.
// storage.Store satisfies this interface; tests use an in-memory map built
// from BuildDates.
type Lookup interface {
	DateByKey(dateKey int) (DateRow, bool)
}

var (
	reAbsYear    = regexp.MustCompile(`^(\d{4})$`)
	reAbsHalf    = regexp.MustCompile(`(?i)^(\d{4})-h([12])$`)
	reAbsQuarter = regexp.MustCompile(`(?i)^(\d{4})-q([1-4])$`)
	reAbsMonth   = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	reAbsWeek    = regexp.MustCompile(`(?i)^(\d{4})-w(\d{2})$`)
	reRolling    = regexp.MustCompile(`^(?:rolling-)?(\d+)d$`)
)

// Parse parses a period string per spec.md §4.2's grammar. asOf anchors
// to-date and rolling windows; absolute periods do not depend on it.
func Parse(s string, asOf time.Time) (Period, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	asOf = civil(asOf.Year(), asOf.Month(), asOf.Day())

	switch raw {
	case "ytd":
		return Period{Type: Year, Raw: raw, Start: civil(asOf.Year(), time.January, 1), End: asOf}, nil
	case "htd":
		return Period{Type: Half, Raw: raw, Start: firstOfHalf(asOf), End: asOf}, nil
	case "qtd":
		return Period{Type: Quarter, Raw: raw, Start: firstOfQuarter(asOf), End: asOf}, nil
	case "mtd":
		return Period{Type: Month, Raw: raw, Start: firstOfMonth(asOf), End: asOf}, nil
	case "wtd":
		return Period{Type: Week, Raw: raw, Start: isoWeekStart(asOf), End: asOf}, nil
	}

	if m := reAbsYear.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		return Period{Type: Year, Raw: raw, Start: civil(y, time.January, 1), End: civil(y, time.December, 31)}, nil
	}
	if m := reAbsHalf.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		start := civil(y, time.Month((h-1)*6+1), 1)
		return Period{Type: Half, Raw: raw, Start: start, End: start.AddDate(0, 6, -1)}, nil
	}
	if m := reAbsQuarter.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		start := civil(y, time.Month((q-1)*3+1), 1)
		return Period{Type: Quarter, Raw: raw, Start: start, End: start.AddDate(0, 3, -1)}, nil
	}
	if m := reAbsMonth.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 {
			return Period{}, errs.New(errs.KindPeriodParse, "invalid period format")
		}
		start := civil(y, time.Month(mo), 1)
		return Period{Type: Month, Raw: raw, Start: start, End: lastOfMonth(start)}, nil
	}
	if m := reAbsWeek.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		w, _ := strconv.Atoi(m[2])
		if w < 1 || w > 53 {
			return Period{}, errs.New(errs.KindPeriodParse, "invalid period format")
		}
		start := isoWeekDate(y, w)
		return Period{Type: Week, Raw: raw, Start: start, End: start.AddDate(0, 0, 6)}, nil
	}
	if m := reRolling.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n <= 0 {
			return Period{}, errs.New(errs.KindPeriodParse, "invalid period format")
		}
		return Period{Type: Rolling, Raw: fmt.Sprintf("rolling-%dd", n), Start: asOf.AddDate(0, 0, -(n - 1)), End: asOf}, nil
	}

	return Period{}, errs.New(errs.KindPeriodParse, "invalid period format")
}

// isoWeekDate returns the Monday of ISO week w in year y.
func isoWeekDate(y, w int) time.Time {
	jan4 := civil(y, time.January, 4)
	start := isoWeekStart(jan4)
	return start.AddDate(0, 0, (w-1)*7)
}

// Previous returns the same-type period immediately preceding p.
func Previous(p Period) Period {
	switch p.Type {
	case Year:
		start := civil(p.Start.Year()-1, time.January, 1)
		return Period{Type: Year, Raw: start.Format("2006"), Start: start, End: civil(start.Year(), time.December, 31)}
	case Half:
		start := p.Start.AddDate(0, -6, 0)
		h := halfOf(start.Month())
		return Period{Type: Half, Raw: fmt.Sprintf("%d-H%d", start.Year(), h), Start: start, End: start.AddDate(0, 6, -1)}
	case Quarter:
		start := p.Start.AddDate(0, -3, 0)
		q := quarterOf(start.Month())
		return Period{Type: Quarter, Raw: fmt.Sprintf("%d-Q%d", start.Year(), q), Start: start, End: start.AddDate(0, 3, -1)}
	case Month:
		start := p.Start.AddDate(0, -1, 0)
		return Period{Type: Month, Raw: start.Format("2006-01"), Start: start, End: lastOfMonth(start)}
	case Week:
		start := p.Start.AddDate(0, 0, -7)
		y, w := start.ISOWeek()
		return Period{Type: Week, Raw: formatWeekLabel(y, w), Start: start, End: start.AddDate(0, 0, 6)}
	default:
		return p
	}
}

// IsCurrent reports whether asOf falls inside p's range.
func IsCurrent(p Period, asOf time.Time) bool {
	asOf = civil(asOf.Year(), asOf.Month(), asOf.Day())
	return !asOf.Before(p.Start) && !asOf.After(p.End)
}

// PriorPeriodToDate computes the to-date window in the prior same-type
// period that is aligned with asOf's offset into p: the same half, quarter,
// or month one year earlier, or the preceding year or ISO week (the same
// linkage as dim_period's PriorPeriodKey). It uses the prior-period
// alignment columns stored in dim_date (spec.md §4.2, §8 "Prior-period
// alignment" law). asOf must fall within p (callers should check IsCurrent
// first); the prior end date comes directly off dim_date so that Feb 29 /
// month-length clamps (spec.md §9) are applied exactly once, in BuildDates.
func PriorPeriodToDate(p Period, asOf time.Time, lookup Lookup) (Period, error) {
	prior := Previous(p)
	if p.Type == Half || p.Type == Quarter || p.Type == Month {
		start := p.Start.AddDate(-1, 0, 0)
		prior = Period{Type: p.Type, Start: start}
		switch p.Type {
		case Half:
			prior.Raw = formatHalfLabel(start.Year(), halfOf(start.Month()))
		case Quarter:
			prior.Raw = formatQuarterLabel(start.Year(), quarterOf(start.Month()))
		case Month:
			prior.Raw = start.Format("2006-01")
		}
	}
	row, ok := lookup.DateByKey(dateKey(civil(asOf.Year(), asOf.Month(), asOf.Day())))
	if !ok {
		return Period{}, errs.New(errs.KindPeriodParse, "as-of date not present in calendar")
	}

	var priorEndKey *int
	switch p.Type {
	case Year:
		priorEndKey = row.PriorYearDateKey
	case Quarter:
		priorEndKey = row.PriorQuarterDateKey
	case Month:
		priorEndKey = row.PriorMonthDateKey
	case Half:
		// Halves reuse the quarter-offset alignment scaled into the half;
		// fall back to a direct same-day-of-half computation.
		end := prior.Start.AddDate(0, 0, row.DayOfHalf-1)
		priorEndKey = intPtr(dateKey(end))
	case Week:
		end := prior.Start.AddDate(0, 0, int(asOf.Sub(p.Start).Hours()/24))
		priorEndKey = intPtr(dateKey(end))
	}
	if priorEndKey == nil {
		return Period{}, errs.New(errs.KindPeriodParse, "prior period has no well-defined same-day alignment")
	}

	end := keyToDate(*priorEndKey)
	return Period{Type: prior.Type, Raw: prior.Raw + "-to-date", Start: prior.Start, End: end}, nil
}

func intPtr(i int) *int { return &i }

func keyToDate(k int) time.Time {
	y := k / 10000
	m := (k / 100) % 100
	d := k % 100
	return civil(y, time.Month(m), d)
}
