package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spacefleet/spacefleet/internal/config"
	"github.com/spacefleet/spacefleet/internal/logger"
	"github.com/spacefleet/spacefleet/internal/parsers"
	"github.com/spacefleet/spacefleet/internal/store"
	"github.com/spacefleet/spacefleet/pkg/sshutil"
)

// HostStatus reports the outcome of one host's collection cycle. A failed
// host never aborts the fleet run; its error lands here instead.
type HostStatus struct {
	ServerID        int64
	Name            string
	Success         bool
	Error           string
	Warning         string
	DiskCount       int
	DirectoryCount  int
	AvailableMounts []string
	Elapsed         time.Duration
}

// Collector samples fleet hosts over SSH and persists the results.
type Collector struct {
	store *store.Store
	dial  sshutil.Dialer
	cfg   *config.Config
	log   logger.Logger
}

func New(st *store.Store, dial sshutil.Dialer, cfg *config.Config, log logger.Logger) *Collector {
	if dial == nil {
		dial = sshutil.DefaultDialer
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{store: st, dial: dial, cfg: cfg, log: log}
}

// CollectFleet runs a full disk+directory+metrics collection for every
// enabled target, at most cfg.Collection.Workers hosts at a time. Each host
// gets its own deadline so one hung scan can't stall the run.
func (c *Collector) CollectFleet(ctx context.Context) ([]HostStatus, error) {
	return c.collectAll(ctx, c.cfg.Collection.HostDeadline, c.CollectHost)
}

// CollectFleetMetrics runs the lightweight CPU/memory/GPU pass only.
func (c *Collector) CollectFleetMetrics(ctx context.Context) ([]HostStatus, error) {
	return c.collectAll(ctx, c.cfg.Collection.MetricsHostDeadline, c.CollectHostMetrics)
}

func (c *Collector) collectAll(ctx context.Context, deadline time.Duration, collect func(context.Context, store.Target) HostStatus) ([]HostStatus, error) {
	targets, err := c.store.ListTargets(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		c.log.Info("no enabled targets to collect")
		return nil, nil
	}

	workers := c.cfg.Collection.Workers
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	results := make([]HostStatus, len(targets))
	done := make(chan int, len(targets))

	for i, t := range targets {
		go func(i int, t store.Target) {
			sem <- struct{}{}
			defer func() { <-sem }()

			hostCtx, cancel := context.WithTimeout(ctx, deadline)
			defer cancel()
			results[i] = collect(hostCtx, t)
			done <- i
		}(i, t)
	}
	for range targets {
		<-done
	}
	return results, nil
}

// CollectHost runs a full collection cycle against one target: metrics
// sample, disk table, and per-mount directory sizes. Metrics are committed on
// their own; disk and directory rows share one transaction.
func (c *Collector) CollectHost(ctx context.Context, t store.Target) HostStatus {
	start := time.Now()
	status := HostStatus{ServerID: t.ID, Name: t.Name}

	runner, err := c.dial(targetConfig(t), sshutil.DefaultConnectTimeout)
	if err != nil {
		status.Error = err.Error()
		status.Elapsed = time.Since(start)
		return status
	}
	defer runner.Close()

	collectedAt := time.Now().UTC()

	// Metrics first; a later disk failure shouldn't cost us the sample.
	if m, err := c.sampleMetrics(ctx, runner, t.ID, collectedAt); err != nil {
		c.log.Error("metrics sample failed for %s: %v", t.Name, err)
	} else if err := c.store.SaveMetrics(ctx, *m); err != nil {
		c.log.Error("saving metrics for %s: %v", t.Name, err)
	}

	disks, allMounts, err := c.sampleDisks(ctx, runner, t)
	if err != nil {
		status.Error = err.Error()
		status.Elapsed = time.Since(start)
		return status
	}
	status.AvailableMounts = allMounts
	status.DiskCount = len(disks)

	if len(t.ScanMounts) > 0 && len(disks) == 0 {
		status.Warning = fmt.Sprintf(
			"none of the configured mounts %v exist on %s; available: %v",
			t.ScanMounts, t.Name, allMounts)
		c.log.Error("%s", status.Warning)
	}

	var dirs []store.DirectoryRecord
	for _, d := range disks {
		// Root is recorded as a disk but never crawled for directories.
		if d.MountPoint == "/" {
			continue
		}
		if err := ctx.Err(); err != nil {
			status.Error = "host deadline exceeded during directory scan"
			status.Elapsed = time.Since(start)
			return status
		}
		mountDirs, err := c.sampleDirectories(ctx, runner, d.MountPoint)
		if err != nil {
			c.log.Error("directory scan of %s on %s: %v", d.MountPoint, t.Name, err)
			continue
		}
		dirs = append(dirs, mountDirs...)
	}
	status.DirectoryCount = len(dirs)

	if err := c.store.SaveHostBatch(ctx, t.ID, disks, dirs, collectedAt); err != nil {
		status.Error = err.Error()
		status.Elapsed = time.Since(start)
		return status
	}

	status.Success = true
	status.Elapsed = time.Since(start)
	c.log.Info("collected %s: %d disks, %d directories in %s",
		t.Name, status.DiskCount, status.DirectoryCount, status.Elapsed.Round(time.Millisecond))
	return status
}

// CollectHostMetrics samples CPU, memory, and GPUs for one target.
func (c *Collector) CollectHostMetrics(ctx context.Context, t store.Target) HostStatus {
	start := time.Now()
	status := HostStatus{ServerID: t.ID, Name: t.Name}

	runner, err := c.dial(targetConfig(t), sshutil.DefaultConnectTimeout)
	if err != nil {
		status.Error = err.Error()
		status.Elapsed = time.Since(start)
		return status
	}
	defer runner.Close()

	m, err := c.sampleMetrics(ctx, runner, t.ID, time.Now().UTC())
	if err != nil {
		status.Error = err.Error()
		status.Elapsed = time.Since(start)
		return status
	}
	if err := c.store.SaveMetrics(ctx, *m); err != nil {
		status.Error = err.Error()
		status.Elapsed = time.Since(start)
		return status
	}

	status.Success = true
	status.Elapsed = time.Since(start)
	return status
}

func (c *Collector) sampleDisks(ctx context.Context, runner sshutil.Runner, t store.Target) ([]store.DiskRecord, []string, error) {
	stdout, stderr, code, err := runner.Run(diskTableCmd, commandBudget(ctx, sshutil.DefaultCommandTimeout))
	if err != nil {
		return nil, nil, err
	}
	if code != 0 {
		return nil, nil, fmt.Errorf("df failed on %s: %s", t.Name, strings.TrimSpace(string(stderr)))
	}

	entries, allMounts := parsers.ParseDiskTable(string(stdout), t.ScanMounts, c.cfg.Collection.MinDiskSizeGB)
	disks := make([]store.DiskRecord, 0, len(entries))
	for _, e := range entries {
		disks = append(disks, store.DiskRecord{
			Device:     e.Device,
			Filesystem: e.Filesystem,
			MountPoint: e.MountPoint,
			TotalGB:    e.TotalGB,
			UsedGB:     e.UsedGB,
			FreeGB:     e.FreeGB,
			UsePercent: e.UsePercent,
		})
	}
	return disks, allMounts, nil
}

func (c *Collector) sampleDirectories(ctx context.Context, runner sshutil.Runner, mount string) ([]store.DirectoryRecord, error) {
	budget := commandBudget(ctx, sshutil.DefaultCommandTimeout)

	// du exits non-zero whenever any subtree is unreadable; its partial
	// output is still usable.
	sizeOut, _, _, err := runner.Run(directorySizesCmd(mount), budget)
	if err != nil {
		return nil, err
	}
	ownerOut, _, _, err := runner.Run(directoryOwnersCmd(mount), budget)
	if err != nil {
		return nil, err
	}

	usages := parsers.ParseDirectoryUsage(string(sizeOut), string(ownerOut))
	records := make([]store.DirectoryRecord, 0, len(usages))
	for _, u := range usages {
		records = append(records, store.DirectoryRecord{
			MountPoint: mount,
			Directory:  u.Directory,
			Owner:      u.Owner,
			UsedGB:     u.UsedGB,
		})
	}
	return records, nil
}

func (c *Collector) sampleMetrics(ctx context.Context, runner sshutil.Runner, serverID int64, at time.Time) (*store.MetricsRecord, error) {
	budget := commandBudget(ctx, sshutil.DefaultCommandTimeout)

	cpu, err := c.sampleCPU(runner, budget)
	if err != nil {
		return nil, err
	}

	memOut, _, memCode, err := runner.Run(memoryCmd, budget)
	if err != nil {
		return nil, err
	}
	mem, ok := parsers.ParseMemory(string(memOut))
	if memCode != 0 || !ok {
		return nil, fmt.Errorf("can't read memory info on %s", runner.Host())
	}

	gpuJSON := c.sampleGPUs(runner, budget)

	return &store.MetricsRecord{
		ServerID:      serverID,
		CPUPercent:    cpu,
		MemoryTotalGB: mem.TotalGB,
		MemoryUsedGB:  mem.UsedGB,
		MemoryFreeGB:  mem.FreeGB,
		MemoryPercent: mem.Percent,
		GPUJSON:       gpuJSON,
		CollectedAt:   at,
	}, nil
}

func (c *Collector) sampleCPU(runner sshutil.Runner, budget time.Duration) (float64, error) {
	stdout, _, code, err := runner.Run(cpuSampleCmd, budget)
	if err == nil && code == 0 {
		if pct, ok := diffProcStat(string(stdout)); ok {
			return pct, nil
		}
	}

	// /proc/stat unreadable or malformed; fall back to top.
	stdout, _, code, err = runner.Run(cpuFallbackCmd, budget)
	if err != nil {
		return 0, err
	}
	if pct, ok := parsers.ParseTopCPU(string(stdout)); code == 0 && ok {
		return pct, nil
	}
	return 0, fmt.Errorf("can't read CPU usage on %s", runner.Host())
}

// sampleGPUs returns the GPU samples as JSON, or "" when the host has no
// usable nvidia-smi. GPU absence is normal and never an error.
func (c *Collector) sampleGPUs(runner sshutil.Runner, budget time.Duration) string {
	for _, cmd := range gpuCommands {
		stdout, _, code, err := runner.Run(cmd, budget)
		if err != nil || code != 0 {
			continue
		}
		samples := parsers.ParseGPURows(string(stdout))
		if samples == nil {
			return ""
		}
		data, err := json.Marshal(samples)
		if err != nil {
			return ""
		}
		return string(data)
	}
	return ""
}

// diffProcStat splits the doubled /proc/stat output on the '---' marker and
// diffs the two snapshots.
func diffProcStat(output string) (float64, bool) {
	parts := strings.SplitN(output, "---", 2)
	if len(parts) != 2 {
		return 0, false
	}
	before, ok1 := parsers.ParseProcStat(parts[0])
	after, ok2 := parsers.ParseProcStat(parts[1])
	if !ok1 || !ok2 {
		return 0, false
	}
	return parsers.CPUPercent(before, after), true
}

// commandBudget trims a command timeout to whatever remains of the host
// deadline.
func commandBudget(ctx context.Context, fallback time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return time.Millisecond
	}
	if remaining < fallback {
		return remaining
	}
	return fallback
}

func targetConfig(t store.Target) sshutil.Config {
	return sshutil.Config{
		Host:     t.Host,
		Port:     t.Port,
		User:     t.User,
		Password: t.Password,
		KeyPath:  t.KeyPath,
		Sudo:     t.Sudo,
	}
}
