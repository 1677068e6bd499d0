package main

import (
	"time"

	"github.com/adlio/asanadw/internal/calendar"
)

// parseSince accepts the same freeform syntax as the rest of asanadw's
// period handling (spec.md §4.6), e.g. "7 days ago" or "2026-01-01".
func parseSince(s string) (time.Time, error) {
	return calendar.ParseSince(s, time.Now())
}

func timeNow() time.Time { return time.Now() }
