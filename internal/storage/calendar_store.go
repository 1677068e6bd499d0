package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/adlio/asanadw/internal/calendar"
)

// ExtendCalendar widens dim_date/dim_period to cover [from, to], inserting
// only the rows not already present. The sync engine calls this before
// ingesting a batch that references dates outside the currently populated
// window (spec.md §3 "extended lazily").
func (s *Store) ExtendCalendar(ctx context.Context, from, to time.Time) error {
	dateRows := calendar.BuildDates(from, to)
	periodRows := calendar.BuildPeriods(from, to)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		dateStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO dim_date (
				date_key, date, iso_year, iso_week, quarter, half, month, day_of_week, is_weekend,
				is_first_of_month, is_last_of_month, is_first_of_quarter, is_last_of_quarter,
				year_key, half_key, quarter_key, month_key, week_key,
				day_of_quarter, day_of_half,
				prior_year_date_key, prior_quarter_date_key, prior_month_date_key
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(date_key) DO NOTHING
		`)
		if err != nil {
			return wrapDBErrorf(err, "prepare dim_date insert")
		}
		defer dateStmt.Close()

		for _, r := range dateRows {
			_, err := dateStmt.ExecContext(ctx,
				r.DateKey, r.Date, r.ISOYear, r.ISOWeek, r.Quarter, r.Half, r.Month, r.DayOfWeek, r.IsWeekend,
				r.IsFirstOfMonth, r.IsLastOfMonth, r.IsFirstOfQuarter, r.IsLastOfQuarter,
				r.YearKey, r.HalfKey, r.QuarterKey, r.MonthKey, r.WeekKey,
				r.DayOfQuarter, r.DayOfHalf,
				r.PriorYearDateKey, r.PriorQuarterDateKey, r.PriorMonthDateKey,
			)
			if err != nil {
				return wrapDBErrorf(err, "insert dim_date row %d", r.DateKey)
			}
		}

		periodStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO dim_period (period_key, period_type, label, start_date, end_date, day_count, prior_period_key)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(period_type, period_key) DO NOTHING
		`)
		if err != nil {
			return wrapDBErrorf(err, "prepare dim_period insert")
		}
		defer periodStmt.Close()

		for _, r := range periodRows {
			_, err := periodStmt.ExecContext(ctx,
				r.PeriodKey, string(r.PeriodType), r.Label, r.Start, r.End, r.DayCount, r.PriorPeriodKey,
			)
			if err != nil {
				return wrapDBErrorf(err, "insert dim_period row %s/%d", r.PeriodType, r.PeriodKey)
			}
		}
		return nil
	})
}

// DateByKey implements calendar.Lookup by reading a single dim_date row.
func (s *Store) DateByKey(dateKey int) (calendar.DateRow, bool) {
	var r calendar.DateRow
	err := s.reader().QueryRowContext(context.Background(), `
		SELECT date_key, date, iso_year, iso_week, quarter, half, month, day_of_week, is_weekend,
			is_first_of_month, is_last_of_month, is_first_of_quarter, is_last_of_quarter,
			year_key, half_key, quarter_key, month_key, week_key,
			day_of_quarter, day_of_half,
			prior_year_date_key, prior_quarter_date_key, prior_month_date_key
		FROM dim_date WHERE date_key = ?
	`, dateKey).Scan(
		&r.DateKey, &r.Date, &r.ISOYear, &r.ISOWeek, &r.Quarter, &r.Half, &r.Month, &r.DayOfWeek, &r.IsWeekend,
		&r.IsFirstOfMonth, &r.IsLastOfMonth, &r.IsFirstOfQuarter, &r.IsLastOfQuarter,
		&r.YearKey, &r.HalfKey, &r.QuarterKey, &r.MonthKey, &r.WeekKey,
		&r.DayOfQuarter, &r.DayOfHalf,
		&r.PriorYearDateKey, &r.PriorQuarterDateKey, &r.PriorMonthDateKey,
	)
	if err != nil {
		return calendar.DateRow{}, false
	}
	return r, true
}

// PeriodByKey reads a single dim_period row.
func (s *Store) PeriodByKey(ctx context.Context, periodType calendar.PeriodType, periodKey int) (calendar.PeriodRow, bool, error) {
	var r calendar.PeriodRow
	var pt string
	err := s.reader().QueryRowContext(ctx, `
		SELECT period_key, period_type, label, start_date, end_date, day_count, prior_period_key
		FROM dim_period WHERE period_type = ? AND period_key = ?
	`, string(periodType), periodKey).Scan(&r.PeriodKey, &pt, &r.Label, &r.Start, &r.End, &r.DayCount, &r.PriorPeriodKey)
	if err == sql.ErrNoRows {
		return calendar.PeriodRow{}, false, nil
	}
	if err != nil {
		return calendar.PeriodRow{}, false, wrapDBErrorf(err, "get period %s/%d", periodType, periodKey)
	}
	r.PeriodType = calendar.PeriodType(pt)
	return r, true, nil
}
