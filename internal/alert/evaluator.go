// Package alert checks collected samples against threshold rules and pushes
// notifications when they trip.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spacefleet/spacefleet/internal/logger"
	"github.com/spacefleet/spacefleet/internal/notify"
	"github.com/spacefleet/spacefleet/internal/parsers"
	"github.com/spacefleet/spacefleet/internal/store"
)

// digestLimit caps how many violations a notification body lists; the rest
// collapse into a count.
const digestLimit = 5

// RuleOutcome reports one rule's evaluation for status output.
type RuleOutcome struct {
	RuleID     int64
	RuleName   string
	Violations []string
	Notified   bool
	Skipped    string
	Error      string
}

// Evaluator walks enabled rules against the latest stored samples.
type Evaluator struct {
	store    *store.Store
	notifier notify.Notifier
	log      logger.Logger
	now      func() time.Time
}

func NewEvaluator(st *store.Store, notifier notify.Notifier, log logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Noop()
	}
	return &Evaluator{store: st, notifier: notifier, log: log, now: time.Now}
}

// Evaluate runs every enabled rule once. Rules inside their cooldown window
// are skipped without being evaluated. The last-triggered stamp moves only
// when the notification actually went out.
func (e *Evaluator) Evaluate(ctx context.Context) ([]RuleOutcome, error) {
	rules, err := e.store.ListRules(ctx, true)
	if err != nil {
		return nil, err
	}

	outcomes := make([]RuleOutcome, 0, len(rules))
	for _, rule := range rules {
		outcomes = append(outcomes, e.evaluateRule(ctx, rule))
	}
	return outcomes, nil
}

func (e *Evaluator) evaluateRule(ctx context.Context, rule store.AlertRule) RuleOutcome {
	out := RuleOutcome{RuleID: rule.ID, RuleName: rule.Name}

	if rule.LastTriggeredAt != nil {
		cooldown := time.Duration(rule.CooldownMinutes) * time.Minute
		since := e.now().Sub(*rule.LastTriggeredAt)
		if since < cooldown {
			out.Skipped = fmt.Sprintf("in cooldown for another %s", (cooldown - since).Round(time.Second))
			return out
		}
	}

	targets, err := e.ruleTargets(ctx, rule)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	for _, t := range targets {
		violations, err := e.checkTarget(ctx, rule, t)
		if err != nil {
			e.log.Error("evaluating %s against %s: %v", rule.Name, t.Name, err)
			continue
		}
		out.Violations = append(out.Violations, violations...)
	}
	if len(out.Violations) == 0 {
		return out
	}

	title := fmt.Sprintf("spacefleet: %s", rule.Name)
	body := digest(rule, out.Violations)
	if err := e.notifier.Send(ctx, rule.BarkURL, title, body, rule.BarkSound); err != nil {
		out.Error = err.Error()
		e.log.Error("notifying for rule %s: %v", rule.Name, err)
		return out
	}
	out.Notified = true

	if err := e.store.StampRuleTriggered(ctx, rule.ID, e.now().UTC()); err != nil {
		e.log.Error("stamping rule %s: %v", rule.Name, err)
	}
	return out
}

// SendTest pushes a test notification through a rule's Bark channel without
// touching its cooldown stamp.
func (e *Evaluator) SendTest(ctx context.Context, rule store.AlertRule) error {
	title := fmt.Sprintf("spacefleet: %s (test)", rule.Name)
	body := fmt.Sprintf("Test notification for %s threshold %.0f%%", rule.MetricType, rule.Threshold)
	return e.notifier.Send(ctx, rule.BarkURL, title, body, rule.BarkSound)
}

func (e *Evaluator) ruleTargets(ctx context.Context, rule store.AlertRule) ([]store.Target, error) {
	enabled, err := e.store.ListTargets(ctx, true)
	if err != nil {
		return nil, err
	}
	if rule.ServerID == nil {
		return enabled, nil
	}
	for _, t := range enabled {
		if t.ID == *rule.ServerID {
			return []store.Target{t}, nil
		}
	}
	all, err := e.store.ListTargets(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if t.ID == *rule.ServerID {
			// The target exists but is disabled; nothing to evaluate.
			return nil, nil
		}
	}
	return nil, fmt.Errorf("rule %s references unknown target id %d", rule.Name, *rule.ServerID)
}

func (e *Evaluator) checkTarget(ctx context.Context, rule store.AlertRule, t store.Target) ([]string, error) {
	switch rule.MetricType {
	case store.MetricDisk:
		return e.checkDisks(ctx, rule, t)
	case store.MetricCPU, store.MetricMemory, store.MetricGPUMemory, store.MetricGPUUtil:
		return e.checkMetrics(ctx, rule, t)
	default:
		return nil, fmt.Errorf("unknown metric type %q", rule.MetricType)
	}
}

func (e *Evaluator) checkDisks(ctx context.Context, rule store.AlertRule, t store.Target) ([]string, error) {
	disks, err := e.store.LatestDisksPerMount(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	var violations []string
	for _, d := range disks {
		if d.UsePercent >= rule.Threshold {
			violations = append(violations, fmt.Sprintf(
				"%s %s at %.1f%% (%.1f/%.1f GB)",
				t.Name, d.MountPoint, d.UsePercent, d.UsedGB, d.TotalGB))
		}
	}
	return violations, nil
}

func (e *Evaluator) checkMetrics(ctx context.Context, rule store.AlertRule, t store.Target) ([]string, error) {
	m, err := e.store.LatestMetrics(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		// Host was never sampled; nothing to judge yet.
		return nil, nil
	}

	switch rule.MetricType {
	case store.MetricCPU:
		if m.CPUPercent >= rule.Threshold {
			return []string{fmt.Sprintf("%s CPU at %.1f%%", t.Name, m.CPUPercent)}, nil
		}
	case store.MetricMemory:
		if m.MemoryPercent >= rule.Threshold {
			return []string{fmt.Sprintf("%s memory at %.1f%% (%.1f/%.1f GB)",
				t.Name, m.MemoryPercent, m.MemoryUsedGB, m.MemoryTotalGB)}, nil
		}
	case store.MetricGPUMemory, store.MetricGPUUtil:
		return checkGPUs(rule, t, m.GPUJSON)
	}
	return nil, nil
}

func checkGPUs(rule store.AlertRule, t store.Target, gpuJSON string) ([]string, error) {
	if gpuJSON == "" {
		return nil, nil
	}
	var gpus []parsers.GPUSample
	if err := json.Unmarshal([]byte(gpuJSON), &gpus); err != nil {
		return nil, fmt.Errorf("decoding stored GPU sample for %s: %w", t.Name, err)
	}

	var violations []string
	for _, g := range gpus {
		switch rule.MetricType {
		case store.MetricGPUMemory:
			if g.MemoryPercent >= rule.Threshold {
				violations = append(violations, fmt.Sprintf(
					"%s GPU%d (%s) memory at %.1f%%", t.Name, g.Index, g.Name, g.MemoryPercent))
			}
		case store.MetricGPUUtil:
			if g.UtilPercent >= rule.Threshold {
				violations = append(violations, fmt.Sprintf(
					"%s GPU%d (%s) utilization at %.1f%%", t.Name, g.Index, g.Name, g.UtilPercent))
			}
		}
	}
	return violations, nil
}

// digest builds the notification body: the rule's threshold on the first
// line, then the violations, folding any overflow into a trailing count.
func digest(rule store.AlertRule, violations []string) string {
	header := fmt.Sprintf("%s >= %.0f%%", rule.MetricType, rule.Threshold)
	if len(violations) <= digestLimit {
		return header + "\n" + strings.Join(violations, "\n")
	}
	shown := strings.Join(violations[:digestLimit], "\n")
	return fmt.Sprintf("%s\n%s\n+%d more", header, shown, len(violations)-digestLimit)
}
