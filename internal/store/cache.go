package store

import (
	"context"
	"strings"
	"time"

	"github.com/spacefleet/spacefleet/internal/errors"
)

// Analysis kinds stored in the cache.
const (
	KindFileTypes  = "file_types"
	KindLargeFiles = "large_files"
)

// GetOrCreateCache fetches the cache row for (server, mount, kind), creating
// an empty one if missing. Two callers can race on the insert; the loser hits
// the unique constraint and re-reads the winner's row.
func (s *Store) GetOrCreateCache(ctx context.Context, serverID int64, mountPoint, kind string) (*CacheEntry, error) {
	entry, err := s.getCache(ctx, serverID, mountPoint, kind)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return entry, nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (server_id, mount_point, kind, refreshing)
		VALUES (?, ?, ?, 0)`, serverID, mountPoint, kind)
	if err != nil && !isUniqueConflict(err) {
		return nil, errors.WrapWithCode(err, errors.ErrCache, "Can't create cache entry", "")
	}

	entry, err = s.getCache(ctx, serverID, mountPoint, kind)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errors.New(errors.ErrCache, "Cache entry vanished after insert", "")
	}
	return entry, nil
}

// ClaimRefresh atomically flips refreshing from 0 to 1 for a cache entry.
// Returns true only for the caller that won the claim.
func (s *Store) ClaimRefresh(ctx context.Context, entryID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE analysis_cache SET refreshing = 1
		WHERE id = ? AND refreshing = 0`, entryID)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrCache, "Can't claim cache refresh", "")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteRefresh stores a fresh payload, stamps the collection time, clears
// the refreshing flag and any previous error.
func (s *Store) CompleteRefresh(ctx context.Context, entryID int64, dataJSON string, collectedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE analysis_cache
		SET data_json = ?, collected_at = ?, refreshing = 0, error = NULL
		WHERE id = ?`, dataJSON, collectedAt, entryID)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache, "Can't store cache payload", "")
	}
	return nil
}

// FailRefresh records a scan error and clears the refreshing flag. The stale
// payload, if any, is kept so readers still have something to show.
func (s *Store) FailRefresh(ctx context.Context, entryID int64, scanErr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE analysis_cache SET refreshing = 0, error = ? WHERE id = ?`,
		scanErr, entryID)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache, "Can't record cache failure", "")
	}
	return nil
}

func (s *Store) getCache(ctx context.Context, serverID int64, mountPoint, kind string) (*CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, server_id, mount_point, kind, COALESCE(data_json, ''), collected_at, refreshing, COALESCE(error, '')
		FROM analysis_cache
		WHERE server_id = ? AND mount_point = ? AND kind = ?`,
		serverID, mountPoint, kind)
	var e CacheEntry
	var refreshing int
	err := row.Scan(&e.ID, &e.ServerID, &e.MountPoint, &e.Kind,
		&e.DataJSON, &e.CollectedAt, &refreshing, &e.Error)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrCache, "Can't read cache entry", "")
	}
	e.Refreshing = refreshing != 0
	return &e, nil
}

func isUniqueConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
