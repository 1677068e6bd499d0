package calendar

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/adlio/asanadw/internal/errs"
)

// freeformParser is built once, at package initialisation; when.Parser
// carries no per-call state so a single instance is safe to reuse across
// calls.
var freeformParser = newFreeformParser()

func newFreeformParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseSince resolves the free-form "since" / "as-of" override accepted by
// sync and query operations (SPEC_FULL.md §M1): a formal period string is
// tried first, then natural-language input like "3 weeks ago" or
// "last monday" via olebedev/when. This path is never used for the
// `period` argument itself, only for exclusive lower bounds supplied
// alongside it.
func ParseSince(s string, asOf time.Time) (time.Time, error) {
	if p, err := Parse(s, asOf); err == nil {
		return p.Start, nil
	}

	r, err := freeformParser.Parse(s, asOf)
	if err != nil {
		return time.Time{}, errs.Wrap(errs.KindPeriodParse, "invalid period format", err)
	}
	if r == nil {
		return time.Time{}, errs.New(errs.KindPeriodParse, "invalid period format")
	}
	t := r.Time
	return civil(t.Year(), t.Month(), t.Day()), nil
}
