package store

import (
	"context"
	"time"

	"github.com/spacefleet/spacefleet/internal/errors"
)

// Metric types an alert rule can watch.
const (
	MetricCPU       = "cpu"
	MetricMemory    = "memory"
	MetricDisk      = "disk"
	MetricGPUMemory = "gpu_memory"
	MetricGPUUtil   = "gpu_util"
)

// CreateRule inserts an alert rule and returns its id.
func (s *Store) CreateRule(ctx context.Context, r AlertRule) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_rules (name, metric_type, threshold, server_id, enabled, cooldown_minutes, bark_url, bark_sound)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.MetricType, r.Threshold, r.ServerID,
		boolInt(r.Enabled), r.CooldownMinutes, r.BarkURL, r.BarkSound)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrStore, "Can't create alert rule", "")
	}
	return res.LastInsertId()
}

// UpdateRule rewrites an existing rule in place.
func (s *Store) UpdateRule(ctx context.Context, r AlertRule) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alert_rules
		SET name = ?, metric_type = ?, threshold = ?, server_id = ?,
		    enabled = ?, cooldown_minutes = ?, bark_url = ?, bark_sound = ?
		WHERE id = ?`,
		r.Name, r.MetricType, r.Threshold, r.ServerID,
		boolInt(r.Enabled), r.CooldownMinutes, r.BarkURL, r.BarkSound, r.ID)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Can't update alert rule", "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrStore, "No alert rule with that id", "")
	}
	return nil
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Can't delete alert rule", "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrStore, "No alert rule with that id", "")
	}
	return nil
}

// ListRules returns all rules, or only enabled ones.
func (s *Store) ListRules(ctx context.Context, enabledOnly bool) ([]AlertRule, error) {
	q := `
		SELECT id, name, metric_type, threshold, server_id, enabled,
		       cooldown_minutes, last_triggered_at, bark_url, COALESCE(bark_sound, '')
		FROM alert_rules`
	if enabledOnly {
		q += ` WHERE enabled = 1`
	}
	q += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Can't list alert rules", "")
	}
	defer rows.Close()

	var out []AlertRule
	for rows.Next() {
		var r AlertRule
		var enabled int
		err := rows.Scan(&r.ID, &r.Name, &r.MetricType, &r.Threshold,
			&r.ServerID, &enabled, &r.CooldownMinutes,
			&r.LastTriggeredAt, &r.BarkURL, &r.BarkSound)
		if err != nil {
			return nil, err
		}
		r.Enabled = enabled != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// StampRuleTriggered records when a rule last fired successfully.
func (s *Store) StampRuleTriggered(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alert_rules SET last_triggered_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Can't stamp alert rule", "")
	}
	return nil
}
