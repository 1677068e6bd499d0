package query

import (
	"context"
	"regexp"

	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/storage"
)

var gidPattern = regexp.MustCompile(`^\d+$`)

func resolveUser(ctx context.Context, store *storage.Store, identifier string) (string, error) {
	if gidPattern.MatchString(identifier) {
		return identifier, nil
	}
	matches, err := store.ResolveUserIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", errs.New(errs.KindNotFound, "no user matches: "+identifier)
	case 1:
		return matches[0].GID, nil
	default:
		return "", errs.New(errs.KindInvalidIdentifier, "identifier matches multiple users: "+identifier)
	}
}

func resolveProject(ctx context.Context, store *storage.Store, identifier string) (string, error) {
	if gidPattern.MatchString(identifier) {
		return identifier, nil
	}
	matches, err := store.ResolveProjectIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", errs.New(errs.KindNotFound, "no project matches: "+identifier)
	case 1:
		return matches[0].GID, nil
	default:
		return "", errs.New(errs.KindInvalidIdentifier, "identifier matches multiple projects: "+identifier)
	}
}

func resolvePortfolio(ctx context.Context, store *storage.Store, identifier string) (string, error) {
	if gidPattern.MatchString(identifier) {
		return identifier, nil
	}
	matches, err := store.ResolvePortfolioIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", errs.New(errs.KindNotFound, "no portfolio matches: "+identifier)
	case 1:
		return matches[0].GID, nil
	default:
		return "", errs.New(errs.KindInvalidIdentifier, "identifier matches multiple portfolios: "+identifier)
	}
}

func resolveTeam(ctx context.Context, store *storage.Store, identifier string) (string, error) {
	if gidPattern.MatchString(identifier) {
		return identifier, nil
	}
	matches, err := store.ResolveTeamIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", errs.New(errs.KindNotFound, "no team matches: "+identifier)
	case 1:
		return matches[0].GID, nil
	default:
		return "", errs.New(errs.KindInvalidIdentifier, "identifier matches multiple teams: "+identifier)
	}
}
