package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacefleet/spacefleet/internal/config"
	"github.com/spacefleet/spacefleet/internal/logger"
	"github.com/spacefleet/spacefleet/internal/store"
	"github.com/spacefleet/spacefleet/pkg/sshutil"
)

// fakeRunner scripts remote command responses by prefix match.
type fakeRunner struct {
	host    string
	handler func(cmd string) (stdout string, exitCode int, err error)
	ran     []string
}

func (f *fakeRunner) Run(cmd string, timeout time.Duration) ([]byte, []byte, int, error) {
	f.ran = append(f.ran, cmd)
	out, code, err := f.handler(cmd)
	return []byte(out), nil, code, err
}

func (f *fakeRunner) Close() error { return nil }
func (f *fakeRunner) Host() string { return f.host }

const fakeDiskTable = `Filesystem     Type  Size  Used Avail Use% Mounted on
/dev/sda1      ext4  1.0T  400G  600G  40% /data
tmpfs          tmpfs  16G     0   16G   0% /run
`

const fakeProcStat = `cpu  100 0 100 700 100 0 0 0 0 0
---
cpu  300 0 300 1100 300 0 0 0 0 0
`

const fakeFree = "              total        used        free\n" +
	"Mem:    34359738368 17179869184  8589934592\n"

// healthyHandler scripts a host with one data mount and no GPUs.
func healthyHandler(cmd string) (string, int, error) {
	switch {
	case cmd == diskTableCmd:
		return fakeDiskTable, 0, nil
	case strings.HasPrefix(cmd, "du -s"):
		return "209715200\t/data/archive\n", 0, nil
	case strings.HasPrefix(cmd, "stat -c"):
		return "root /data/archive\n", 0, nil
	case strings.HasPrefix(cmd, "cat /proc/stat"):
		return fakeProcStat, 0, nil
	case cmd == memoryCmd:
		return fakeFree, 0, nil
	case strings.Contains(cmd, "nvidia-smi"):
		return "", 127, nil
	}
	return "", 1, fmt.Errorf("unexpected command: %s", cmd)
}

func dialerFor(runners map[string]*fakeRunner) sshutil.Dialer {
	return func(cfg sshutil.Config, timeout time.Duration) (sshutil.Runner, error) {
		r, ok := runners[cfg.Host]
		if !ok {
			return nil, fmt.Errorf("dial %s: connection refused", cfg.Host)
		}
		return r, nil
	}
}

func testSetup(t *testing.T) (*store.Store, *config.Config) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, config.DefaultConfig()
}

func seedTarget(t *testing.T, st *store.Store, name, host string, mounts []string) store.Target {
	t.Helper()
	id, err := st.UpsertTarget(context.Background(), store.Target{
		Name: name, Host: host, Port: 22, User: "monitor",
		Enabled: true, ScanMounts: mounts,
	})
	require.NoError(t, err)
	target, err := st.GetTarget(context.Background(), name)
	require.NoError(t, err)
	require.Equal(t, id, target.ID)
	return *target
}

func TestCollectHost(t *testing.T) {
	st, cfg := testSetup(t)
	ctx := context.Background()
	target := seedTarget(t, st, "nas01", "nas01.internal", nil)

	runner := &fakeRunner{host: "nas01.internal", handler: healthyHandler}
	c := New(st, dialerFor(map[string]*fakeRunner{"nas01.internal": runner}), cfg, logger.Noop())

	status := c.CollectHost(ctx, target)
	require.True(t, status.Success, "error: %s", status.Error)
	assert.Equal(t, 1, status.DiskCount)
	assert.Equal(t, 1, status.DirectoryCount)
	assert.Equal(t, []string{"/data"}, status.AvailableMounts)
	assert.Empty(t, status.Warning)

	disks, err := st.LatestDisksPerMount(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, "/data", disks[0].MountPoint)
	assert.InDelta(t, 40.0, disks[0].UsePercent, 0.01)

	m, err := st.LatestMetrics(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.InDelta(t, 40.0, m.CPUPercent, 0.01)
	assert.InDelta(t, 50.0, m.MemoryPercent, 0.01)
	assert.Empty(t, m.GPUJSON)
}

func TestCollectHostSkipsRootDirectoryScan(t *testing.T) {
	st, cfg := testSetup(t)
	ctx := context.Background()
	target := seedTarget(t, st, "nas01", "nas01.internal", nil)

	handler := func(cmd string) (string, int, error) {
		if cmd == diskTableCmd {
			return "Filesystem     Type  Size  Used Avail Use% Mounted on\n" +
				"/dev/sda1      ext4  500G  100G  400G  20% /\n" +
				"/dev/sdb1      ext4  1.0T  400G  600G  40% /data\n", 0, nil
		}
		return healthyHandler(cmd)
	}
	runner := &fakeRunner{host: "nas01.internal", handler: handler}
	c := New(st, dialerFor(map[string]*fakeRunner{"nas01.internal": runner}), cfg, logger.Noop())

	status := c.CollectHost(ctx, target)
	require.True(t, status.Success, "error: %s", status.Error)
	assert.Equal(t, 2, status.DiskCount)
	assert.Equal(t, 1, status.DirectoryCount)

	// Root shows up in the disk table but must not be crawled.
	for _, cmd := range runner.ran {
		assert.NotContains(t, cmd, "du -s '/'/")
		assert.NotContains(t, cmd, "stat -c '%U %n' '/'/")
	}
}

func TestCollectHostWarnsOnUnmatchedMounts(t *testing.T) {
	st, cfg := testSetup(t)
	ctx := context.Background()
	target := seedTarget(t, st, "nas01", "nas01.internal", []string{"/volume1"})

	runner := &fakeRunner{host: "nas01.internal", handler: healthyHandler}
	c := New(st, dialerFor(map[string]*fakeRunner{"nas01.internal": runner}), cfg, logger.Noop())

	status := c.CollectHost(ctx, target)
	require.True(t, status.Success, "error: %s", status.Error)
	assert.Zero(t, status.DiskCount)
	assert.Contains(t, status.Warning, "/volume1")
	assert.Contains(t, status.Warning, "/data")
}

func TestCollectHostDialFailure(t *testing.T) {
	st, cfg := testSetup(t)
	target := seedTarget(t, st, "gone", "gone.internal", nil)

	c := New(st, dialerFor(nil), cfg, logger.Noop())
	status := c.CollectHost(context.Background(), target)

	assert.False(t, status.Success)
	assert.Contains(t, status.Error, "connection refused")
}

func TestCollectFleetIsolatesFailures(t *testing.T) {
	st, cfg := testSetup(t)
	ctx := context.Background()
	seedTarget(t, st, "good", "good.internal", nil)
	seedTarget(t, st, "bad", "bad.internal", nil)

	runners := map[string]*fakeRunner{
		"good.internal": {host: "good.internal", handler: healthyHandler},
	}
	c := New(st, dialerFor(runners), cfg, logger.Noop())

	statuses, err := c.CollectFleet(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := map[string]HostStatus{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.False(t, byName["bad"].Success)
	assert.NotEmpty(t, byName["bad"].Error)
	assert.True(t, byName["good"].Success, "error: %s", byName["good"].Error)
}

func TestCollectFleetSkipsDisabledTargets(t *testing.T) {
	st, cfg := testSetup(t)
	ctx := context.Background()
	seedTarget(t, st, "off", "off.internal", nil)
	require.NoError(t, st.SetTargetEnabled(ctx, "off", false))

	c := New(st, dialerFor(nil), cfg, logger.Noop())
	statuses, err := c.CollectFleet(ctx)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestCollectHostMetrics(t *testing.T) {
	st, cfg := testSetup(t)
	ctx := context.Background()
	target := seedTarget(t, st, "gpu01", "gpu01.internal", nil)

	handler := func(cmd string) (string, int, error) {
		switch {
		case strings.HasPrefix(cmd, "cat /proc/stat"):
			return fakeProcStat, 0, nil
		case cmd == memoryCmd:
			return fakeFree, 0, nil
		case strings.HasPrefix(cmd, "nvidia-smi"):
			return "0, RTX 4090, 24564, 12282, 87, 61\n", 0, nil
		}
		return "", 1, fmt.Errorf("unexpected command: %s", cmd)
	}
	runner := &fakeRunner{host: "gpu01.internal", handler: handler}
	c := New(st, dialerFor(map[string]*fakeRunner{"gpu01.internal": runner}), cfg, logger.Noop())

	status := c.CollectHostMetrics(ctx, target)
	require.True(t, status.Success, "error: %s", status.Error)

	m, err := st.LatestMetrics(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Contains(t, m.GPUJSON, "RTX 4090")
	assert.Contains(t, m.GPUJSON, `"memory_percent":50`)

	// No disk commands in a metrics pass.
	for _, cmd := range runner.ran {
		assert.NotContains(t, cmd, "df")
		assert.NotContains(t, cmd, "du -s")
	}
}

func TestCollectHostCPUFallback(t *testing.T) {
	st, cfg := testSetup(t)
	ctx := context.Background()
	target := seedTarget(t, st, "old01", "old01.internal", nil)

	handler := func(cmd string) (string, int, error) {
		switch {
		case strings.HasPrefix(cmd, "cat /proc/stat"):
			return "", 1, nil
		case strings.HasPrefix(cmd, "top"):
			return "%Cpu(s):  7.1 us,  2.3 sy,  0.0 ni, 89.6 id,  0.8 wa\n", 0, nil
		case cmd == memoryCmd:
			return fakeFree, 0, nil
		case strings.Contains(cmd, "nvidia-smi"):
			return "", 127, nil
		}
		return "", 1, fmt.Errorf("unexpected command: %s", cmd)
	}
	runner := &fakeRunner{host: "old01.internal", handler: handler}
	c := New(st, dialerFor(map[string]*fakeRunner{"old01.internal": runner}), cfg, logger.Noop())

	status := c.CollectHostMetrics(ctx, target)
	require.True(t, status.Success, "error: %s", status.Error)

	m, err := st.LatestMetrics(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.InDelta(t, 10.4, m.CPUPercent, 0.01)
}

func TestScanFileTypes(t *testing.T) {
	st, cfg := testSetup(t)
	target := seedTarget(t, st, "nas01", "nas01.internal", nil)

	handler := func(cmd string) (string, int, error) {
		if strings.HasPrefix(cmd, "find ") {
			assert.Contains(t, cmd, "'/data'")
			return "10737418240\t/data/movies/a.mkv\n2147483648\t/data/backup.tar\n", 0, nil
		}
		return "", 1, fmt.Errorf("unexpected command: %s", cmd)
	}
	runner := &fakeRunner{host: "nas01.internal", handler: handler}
	c := New(st, dialerFor(map[string]*fakeRunner{"nas01.internal": runner}), cfg, logger.Noop())

	stats, err := c.ScanFileTypes(context.Background(), target, "/data")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "mkv", stats[0].Extension)
}

func TestScanLargeFiles(t *testing.T) {
	st, cfg := testSetup(t)
	target := seedTarget(t, st, "nas01", "nas01.internal", nil)

	handler := func(cmd string) (string, int, error) {
		if strings.HasPrefix(cmd, "find ") {
			assert.Contains(t, cmd, "head -2")
			return "10737418240\troot\t2026-07-01 03:12\t/data/a.mkv\n" +
				"5368709120\talice\t2026-06-12 19:44\t/data/b.bin\n", 0, nil
		}
		return "", 1, fmt.Errorf("unexpected command: %s", cmd)
	}
	runner := &fakeRunner{host: "nas01.internal", handler: handler}
	c := New(st, dialerFor(map[string]*fakeRunner{"nas01.internal": runner}), cfg, logger.Noop())

	files, err := c.ScanLargeFiles(context.Background(), target, "/data", 2)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/data/a.mkv", files[0].Path)
}
