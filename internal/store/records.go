package store

import (
	"context"
	"time"

	"github.com/spacefleet/spacefleet/internal/errors"
)

// SaveHostBatch writes one collection cycle's disk and directory rows for a
// host in a single transaction. Either everything lands or nothing does.
func (s *Store) SaveHostBatch(ctx context.Context, serverID int64, disks []DiskRecord, dirs []DirectoryRecord, collectedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Can't begin transaction", "")
	}
	defer tx.Rollback()

	for _, d := range disks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO disk_usages (server_id, device, filesystem, mount_point, total_gb, used_gb, free_gb, use_percent, collected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			serverID, d.Device, d.Filesystem, d.MountPoint,
			d.TotalGB, d.UsedGB, d.FreeGB, d.UsePercent, collectedAt)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrStore, "Can't save disk usage", "")
		}
	}
	for _, d := range dirs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO directory_usages (server_id, mount_point, directory, owner, used_gb, collected_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			serverID, d.MountPoint, d.Directory, d.Owner, d.UsedGB, collectedAt)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrStore, "Can't save directory usage", "")
		}
	}
	return tx.Commit()
}

// SaveMetrics writes one CPU/memory/GPU sample. Kept outside SaveHostBatch so
// a failed disk scan doesn't lose an otherwise good metrics sample.
func (s *Store) SaveMetrics(ctx context.Context, m MetricsRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_metrics (server_id, cpu_percent, memory_total_gb, memory_used_gb, memory_free_gb, memory_percent, gpu_info, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ServerID, m.CPUPercent, m.MemoryTotalGB, m.MemoryUsedGB,
		m.MemoryFreeGB, m.MemoryPercent, m.GPUJSON, m.CollectedAt)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Can't save metrics", "")
	}
	return nil
}

// LatestMetrics returns the most recent sample for a host, nil when none exists.
func (s *Store) LatestMetrics(ctx context.Context, serverID int64) (*MetricsRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT server_id, cpu_percent, memory_total_gb, memory_used_gb, memory_free_gb, memory_percent, COALESCE(gpu_info, ''), collected_at
		FROM server_metrics WHERE server_id = ?
		ORDER BY collected_at DESC LIMIT 1`, serverID)
	var m MetricsRecord
	err := row.Scan(&m.ServerID, &m.CPUPercent, &m.MemoryTotalGB,
		&m.MemoryUsedGB, &m.MemoryFreeGB, &m.MemoryPercent, &m.GPUJSON, &m.CollectedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Can't read metrics", "")
	}
	return &m, nil
}

// LatestDisksPerMount returns the newest disk row for each mount point of a host.
func (s *Store) LatestDisksPerMount(ctx context.Context, serverID int64) ([]DiskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.device, d.filesystem, d.mount_point, d.total_gb, d.used_gb, d.free_gb, d.use_percent
		FROM disk_usages d
		JOIN (
			SELECT mount_point, MAX(collected_at) AS ts
			FROM disk_usages WHERE server_id = ?
			GROUP BY mount_point
		) latest ON d.mount_point = latest.mount_point AND d.collected_at = latest.ts
		WHERE d.server_id = ?
		ORDER BY d.mount_point`, serverID, serverID)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Can't read disk usage", "")
	}
	defer rows.Close()

	var out []DiskRecord
	for rows.Next() {
		var d DiskRecord
		if err := rows.Scan(&d.Device, &d.Filesystem, &d.MountPoint,
			&d.TotalGB, &d.UsedGB, &d.FreeGB, &d.UsePercent); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// KnownMounts returns the mount points seen for a host in its latest cycle.
func (s *Store) KnownMounts(ctx context.Context, serverID int64) ([]string, error) {
	disks, err := s.LatestDisksPerMount(ctx, serverID)
	if err != nil {
		return nil, err
	}
	mounts := make([]string, 0, len(disks))
	for _, d := range disks {
		mounts = append(mounts, d.MountPoint)
	}
	return mounts, nil
}
