package storage

import (
	"context"
	"database/sql"
	"time"
)

// applyOperationalTables creates the bookkeeping tables the sync engine uses
// to decide incremental-vs-full (sync_tokens), track completed windows
// (synced_ranges), audit each run (sync_jobs), remember what to sync
// (monitored_entities), and persist runtime settings (app_config).
func applyOperationalTables(ctx context.Context, tx *sql.Tx) error {
	return exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS monitored_entities (
			gid         TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			label       TEXT NOT NULL DEFAULT '',
			added_at    DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS synced_ranges (
			entity_gid  TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			start_date  DATE NOT NULL,
			end_date    DATE NOT NULL,
			PRIMARY KEY (entity_gid, start_date, end_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_synced_ranges_entity ON synced_ranges(entity_gid)`,
		`CREATE TABLE IF NOT EXISTS sync_jobs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_gid      TEXT NOT NULL,
			entity_type     TEXT NOT NULL,
			status          TEXT NOT NULL,
			requested_start DATE NOT NULL,
			requested_end   DATE NOT NULL,
			started_at      DATETIME NOT NULL,
			completed_at    DATETIME,
			batches_total   INTEGER NOT NULL DEFAULT 0,
			batches_done    INTEGER NOT NULL DEFAULT 0,
			items_synced    INTEGER NOT NULL DEFAULT 0,
			items_skipped   INTEGER NOT NULL DEFAULT 0,
			items_failed    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_jobs_entity ON sync_jobs(entity_gid, started_at)`,
		`CREATE TABLE IF NOT EXISTS sync_tokens (
			entity_gid TEXT PRIMARY KEY,
			token      TEXT NOT NULL,
			fetched_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS app_config (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	)
}

// AddMonitoredEntity records gid as a sync target.
func (s *Store) AddMonitoredEntity(ctx context.Context, e MonitoredEntity) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO monitored_entities (gid, entity_type, label, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET entity_type = excluded.entity_type, label = excluded.label
	`, e.GID, e.EntityType, e.Label, e.AddedAt)
	return wrapDBErrorf(err, "add monitored entity %s", e.GID)
}

// RemoveMonitoredEntity stops tracking gid.
func (s *Store) RemoveMonitoredEntity(ctx context.Context, gid string) error {
	_, err := s.writer.ExecContext(ctx, `DELETE FROM monitored_entities WHERE gid = ?`, gid)
	return wrapDBErrorf(err, "remove monitored entity %s", gid)
}

// ListMonitoredEntities returns every tracked sync target.
func (s *Store) ListMonitoredEntities(ctx context.Context) ([]MonitoredEntity, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT gid, entity_type, label, added_at FROM monitored_entities ORDER BY added_at
	`)
	if err != nil {
		return nil, wrapDBError("list monitored entities", err)
	}
	defer rows.Close()

	var out []MonitoredEntity
	for rows.Next() {
		var e MonitoredEntity
		if err := rows.Scan(&e.GID, &e.EntityType, &e.Label, &e.AddedAt); err != nil {
			return nil, wrapDBError("scan monitored entity", err)
		}
		out = append(out, e)
	}
	return out, wrapDBError("iterate monitored entities", rows.Err())
}

// SyncedRangesFor returns every completed window for entityGID, ordered by
// start date; the gap detector subtracts these from the desired window.
func (s *Store) SyncedRangesFor(ctx context.Context, entityGID string) ([]SyncedRange, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT entity_gid, entity_type, start_date, end_date
		FROM synced_ranges WHERE entity_gid = ? ORDER BY start_date
	`, entityGID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list synced ranges for %s", entityGID)
	}
	defer rows.Close()

	var out []SyncedRange
	for rows.Next() {
		var r SyncedRange
		if err := rows.Scan(&r.EntityGID, &r.EntityType, &r.Start, &r.End); err != nil {
			return nil, wrapDBError("scan synced range", err)
		}
		out = append(out, r)
	}
	return out, wrapDBError("iterate synced ranges", rows.Err())
}

// RecordSyncedRange marks [start, end] as successfully synced for an entity.
// Called once per completed monthly batch (spec.md §4.5 step 5), inside the
// caller's transaction.
func RecordSyncedRange(ctx context.Context, tx *sql.Tx, r SyncedRange) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO synced_ranges (entity_gid, entity_type, start_date, end_date)
		VALUES (?, ?, ?, ?)
	`, r.EntityGID, r.EntityType, r.Start, r.End)
	return wrapDBErrorf(err, "record synced range for %s", r.EntityGID)
}

// StartSyncJob inserts a running sync_jobs row and returns its id.
func (s *Store) StartSyncJob(ctx context.Context, j SyncJob) (int64, error) {
	res, err := s.writer.ExecContext(ctx, `
		INSERT INTO sync_jobs (entity_gid, entity_type, status, requested_start, requested_end, started_at, batches_total)
		VALUES (?, ?, 'running', ?, ?, ?, ?)
	`, j.EntityGID, j.EntityType, j.RequestedStart, j.RequestedEnd, j.StartedAt, j.BatchesTotal)
	if err != nil {
		return 0, wrapDBErrorf(err, "start sync job for %s", j.EntityGID)
	}
	return res.LastInsertId()
}

// UpdateSyncJobProgress advances the batch/item counters for a running job.
func (s *Store) UpdateSyncJobProgress(ctx context.Context, jobID int64, batchesDone, synced, skipped, failed int) error {
	_, err := s.writer.ExecContext(ctx, `
		UPDATE sync_jobs SET batches_done = ?, items_synced = ?, items_skipped = ?, items_failed = ?
		WHERE id = ?
	`, batchesDone, synced, skipped, failed, jobID)
	return wrapDBErrorf(err, "update sync job %d progress", jobID)
}

// FinishSyncJob sets the terminal status (completed/partial/failed) and
// completion timestamp.
func (s *Store) FinishSyncJob(ctx context.Context, jobID int64, status string, completedAt time.Time) error {
	_, err := s.writer.ExecContext(ctx, `
		UPDATE sync_jobs SET status = ?, completed_at = ? WHERE id = ?
	`, status, completedAt, jobID)
	return wrapDBErrorf(err, "finish sync job %d", jobID)
}

// GetSyncToken returns the stored events-delta cursor for entityGID, if any.
func (s *Store) GetSyncToken(ctx context.Context, entityGID string) (SyncToken, bool, error) {
	var t SyncToken
	err := s.reader().QueryRowContext(ctx, `
		SELECT entity_gid, token, fetched_at FROM sync_tokens WHERE entity_gid = ?
	`, entityGID).Scan(&t.EntityGID, &t.Token, &t.FetchedAt)
	if err == sql.ErrNoRows {
		return SyncToken{}, false, nil
	}
	if err != nil {
		return SyncToken{}, false, wrapDBErrorf(err, "get sync token for %s", entityGID)
	}
	return t, true, nil
}

// SetSyncToken persists entityGID's current events-delta cursor.
func (s *Store) SetSyncToken(ctx context.Context, t SyncToken) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO sync_tokens (entity_gid, token, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(entity_gid) DO UPDATE SET token = excluded.token, fetched_at = excluded.fetched_at
	`, t.EntityGID, t.Token, t.FetchedAt)
	return wrapDBErrorf(err, "set sync token for %s", t.EntityGID)
}

// GetConfig returns an app_config value, or ok=false if unset.
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.reader().QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapDBErrorf(err, "get config %s", key)
	}
	return v, true, nil
}

// SetConfig persists an app_config value.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO app_config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return wrapDBErrorf(err, "set config %s", key)
}
