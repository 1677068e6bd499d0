package asana

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/adlio/asanadw/internal/errs"
)

// ResolvedRef is what ParseURL extracts from an Asana web URL:
// the entity's gid and which kind of entity it names.
type ResolvedRef struct {
	Kind EntityKind
	GID  string
}

// Asana web URLs look like https://app.asana.com/0/<project_gid>/<task_gid>
// or https://app.asana.com/0/portfolio/<portfolio_gid> /
// https://app.asana.com/0/team/<team_gid>, each possibly followed by a
// trailing /f or query string that ParseURL ignores.
var pathRe = regexp.MustCompile(`^/0/(\d+|project|portfolio|team)(?:/(\d+))?`)

// ParseURL extracts the canonical entity reference from an Asana web URL
// (spec.md §2 "scope resolution": URL -> canonical gid).
func ParseURL(raw string) (ResolvedRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || !strings.Contains(u.Host, "asana.com") {
		return ResolvedRef{}, errs.New(errs.KindURLParse, "not an Asana URL: "+raw)
	}

	m := pathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ResolvedRef{}, errs.New(errs.KindURLParse, "unrecognized Asana URL shape: "+raw)
	}

	switch m[1] {
	case "portfolio":
		if m[2] == "" {
			return ResolvedRef{}, errs.New(errs.KindURLParse, "portfolio URL missing gid: "+raw)
		}
		return ResolvedRef{Kind: KindPortfolio, GID: m[2]}, nil
	case "team":
		if m[2] == "" {
			return ResolvedRef{}, errs.New(errs.KindURLParse, "team URL missing gid: "+raw)
		}
		return ResolvedRef{Kind: KindTeam, GID: m[2]}, nil
	default:
		// /0/<project_gid>[/<task_gid>] — a task URL identifies the task;
		// a bare project URL identifies the project.
		if m[2] != "" {
			return ResolvedRef{Kind: KindTask, GID: m[2]}, nil
		}
		return ResolvedRef{Kind: KindProject, GID: m[1]}, nil
	}
}
