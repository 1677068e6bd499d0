package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/adlio/asanadw/internal/errs"
)

// Store is the local mirror's single SQLite file, opened with one dedicated
// writer connection (serialized behind writeMu, matching SQLite's
// single-writer model) and a small pool of connections, opened with the
// same DSN, that serves concurrent query/search/metrics reads. The WAL journal mode and busy
// timeout mirror the DSN used by beads' comment graph store.
type Store struct {
	writer  *sql.DB
	readers *sql.DB
	writeMu sync.Mutex
	path    string
	logger  *slog.Logger
}

// Open creates the database file and its parent directory if needed, applies
// pragmas, runs pending migrations, and returns a ready Store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errs.New(errs.KindDatabase, "database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "create database directory", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=true"

	writer, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "open writer connection", err)
	}
	writer.SetMaxOpenConns(1)

	readers, err := sql.Open("sqlite3", dsn)
	if err != nil {
		writer.Close()
		return nil, errs.Wrap(errs.KindDatabase, "open reader pool", err)
	}
	readers.SetMaxOpenConns(4)

	if err := writer.PingContext(ctx); err != nil {
		writer.Close()
		readers.Close()
		return nil, errs.Wrap(errs.KindDatabase, "ping database", err)
	}

	s := &Store{writer: writer, readers: readers, path: path, logger: slog.Default()}
	if err := s.migrate(ctx); err != nil {
		writer.Close()
		readers.Close()
		return nil, err
	}
	s.logger.Info("storage opened", "path", path)
	return s, nil
}

// SetLogger overrides the default logger (slog.Default()) for this Store.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Close releases both connection pools.
func (s *Store) Close() error {
	werr := s.writer.Close()
	rerr := s.readers.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Path returns the underlying database file path.
func (s *Store) Path() string { return s.path }

// withTx runs fn inside a write transaction, serialized against every other
// writer on this Store (spec.md §4.5's "one monthly batch per transaction"
// relies on this serialization to keep batches atomic and ordered).
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		s.logger.Debug("transaction rolled back", "error", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindDatabase, "commit transaction", err)
	}
	return nil
}

// WithTx exposes withTx for callers outside the package (the sync engine
// composes several Store methods into one monthly-batch transaction).
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withTx(ctx, fn)
}

// reader returns the connection pool used for read-only queries.
func (s *Store) reader() *sql.DB { return s.readers }

// Query runs a read-only query against the reader pool. Exposed so the
// query/search/metrics packages can compose ad hoc SQL without reaching
// into Store's private fields.
func (s *Store) Query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	rows, err := s.readers.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "query", err)
	}
	return rows, nil
}

// QueryRow runs a read-only single-row query against the reader pool.
func (s *Store) QueryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.readers.QueryRowContext(ctx, q, args...)
}

func prepareErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: prepare statement: %w", op, err)
}
