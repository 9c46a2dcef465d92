package store

import (
	"context"
	"strings"
	"time"

	"github.com/spacefleet/spacefleet/internal/errors"
)

// UpsertTarget inserts or updates a target keyed by name and returns its id.
func (s *Store) UpsertTarget(ctx context.Context, t Target) (int64, error) {
	now := time.Now().UTC()
	mounts := strings.Join(t.ScanMounts, ",")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO servers (name, host, port, user, password, key_path, sudo, enabled, scan_mounts, os, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			host=excluded.host, port=excluded.port, user=excluded.user,
			password=excluded.password, key_path=excluded.key_path,
			sudo=excluded.sudo, enabled=excluded.enabled,
			scan_mounts=excluded.scan_mounts, os=excluded.os,
			updated_at=excluded.updated_at`,
		t.Name, t.Host, t.Port, t.User, t.Password, t.KeyPath,
		boolInt(t.Sudo), boolInt(t.Enabled), mounts, t.OS, now, now)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrStore, "Can't save target "+t.Name, "")
	}
	// LastInsertId is unreliable on the update arm of an upsert, so
	// resolve the id by name.
	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM servers WHERE name = ?`, t.Name).Scan(&id)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrStore, "Can't resolve id for target "+t.Name, "")
	}
	return id, nil
}

// GetTarget looks a target up by name.
func (s *Store) GetTarget(ctx context.Context, name string) (*Target, error) {
	row := s.db.QueryRowContext(ctx, selectTargets+` WHERE name = ?`, name)
	t, err := scanTarget(row)
	if isNoRows(err) {
		return nil, errors.New(errors.ErrStore, "No target named "+name,
			"Run 'spacefleet targets list' to see configured targets.")
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTargets returns all targets, or only enabled ones.
func (s *Store) ListTargets(ctx context.Context, enabledOnly bool) ([]Target, error) {
	q := selectTargets
	if enabledOnly {
		q += ` WHERE enabled = 1`
	}
	q += ` ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Can't list targets", "")
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// SetTargetEnabled flips a target's enabled flag.
func (s *Store) SetTargetEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE servers SET enabled = ?, updated_at = ? WHERE name = ?`,
		boolInt(enabled), time.Now().UTC(), name)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Can't update target "+name, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrStore, "No target named "+name, "")
	}
	return nil
}

// DeleteTarget removes a target and, via foreign keys, its collected data.
func (s *Store) DeleteTarget(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE name = ?`, name)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Can't delete target "+name, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrStore, "No target named "+name, "")
	}
	return nil
}

const selectTargets = `
	SELECT id, name, host, port, user,
	       COALESCE(password, ''), COALESCE(key_path, ''),
	       sudo, enabled, COALESCE(scan_mounts, ''), COALESCE(os, ''),
	       created_at, updated_at
	FROM servers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(r rowScanner) (*Target, error) {
	var t Target
	var sudo, enabled int
	var mounts string
	err := r.Scan(&t.ID, &t.Name, &t.Host, &t.Port, &t.User,
		&t.Password, &t.KeyPath, &sudo, &enabled, &mounts, &t.OS,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Sudo = sudo != 0
	t.Enabled = enabled != 0
	if mounts != "" {
		for _, m := range strings.Split(mounts, ",") {
			if m = strings.TrimSpace(m); m != "" {
				t.ScanMounts = append(t.ScanMounts, m)
			}
		}
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
