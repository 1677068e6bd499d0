package storage

import (
	"context"

	"github.com/adlio/asanadw/internal/errs"
)

// DeleteTask removes a task and cascades to its comments, bridge rows,
// custom field values, and dependent edges via the table's ON DELETE
// CASCADE foreign keys (spec.md §8 "cascading deletes").
func (s *Store) DeleteTask(ctx context.Context, gid string) error {
	res, err := s.writer.ExecContext(ctx, `DELETE FROM fact_tasks WHERE gid = ?`, gid)
	if err != nil {
		return wrapDBErrorf(err, "delete task %s", gid)
	}
	return notFoundIfZero(res, "task", gid)
}

// DeleteProject removes a project and cascades to its sections and bridge
// memberships.
func (s *Store) DeleteProject(ctx context.Context, gid string) error {
	res, err := s.writer.ExecContext(ctx, `DELETE FROM dim_projects WHERE gid = ?`, gid)
	if err != nil {
		return wrapDBErrorf(err, "delete project %s", gid)
	}
	return notFoundIfZero(res, "project", gid)
}

// DeletePortfolio removes a portfolio, its bridge rows, and its
// portfolios_fts entry.
func (s *Store) DeletePortfolio(ctx context.Context, gid string) error {
	res, err := s.writer.ExecContext(ctx, `DELETE FROM dim_portfolios WHERE gid = ?`, gid)
	if err != nil {
		return wrapDBErrorf(err, "delete portfolio %s", gid)
	}
	if _, err := s.writer.ExecContext(ctx, `DELETE FROM portfolios_fts WHERE portfolio_gid = ?`, gid); err != nil {
		return wrapDBErrorf(err, "delete portfolio fts row %s", gid)
	}
	return notFoundIfZero(res, "portfolio", gid)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func notFoundIfZero(res rowsAffecter, kind, gid string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBErrorf(err, "check rows affected deleting %s %s", kind, gid)
	}
	if n == 0 {
		return errs.New(errs.KindNotFound, kind+" not found: "+gid)
	}
	return nil
}
