package sync

import (
	"context"
	"regexp"

	"github.com/adlio/asanadw/internal/asana"
	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/storage"
)

var gidPattern = regexp.MustCompile(`^\d+$`)

// ResolveIdentifier turns a user-supplied string — a raw gid, an email, an
// Asana web URL, or an exact display name — into a canonical entity
// reference (spec.md §2 "scope resolution"). A name that matches more than
// one user is reported as ambiguous rather than picking one silently.
func ResolveIdentifier(ctx context.Context, store userResolver, identifier string) (asana.ResolvedRef, error) {
	if gidPattern.MatchString(identifier) {
		return asana.ResolvedRef{Kind: asana.KindUser, GID: identifier}, nil
	}
	if ref, err := asana.ParseURL(identifier); err == nil {
		return ref, nil
	}

	matches, err := store.ResolveUserIdentifier(ctx, identifier)
	if err != nil {
		return asana.ResolvedRef{}, err
	}
	switch len(matches) {
	case 0:
		return asana.ResolvedRef{}, errs.New(errs.KindInvalidIdentifier, "no user matches identifier: "+identifier)
	case 1:
		return asana.ResolvedRef{Kind: asana.KindUser, GID: matches[0].GID}, nil
	default:
		return asana.ResolvedRef{}, errs.New(errs.KindInvalidIdentifier, "identifier matches multiple users: "+identifier)
	}
}

// userResolver is the storage dependency ResolveIdentifier needs;
// satisfied by *storage.Store.
type userResolver interface {
	ResolveUserIdentifier(ctx context.Context, identifier string) ([]storage.User, error)
}
