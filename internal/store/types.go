package store

import "time"

// Target is a fleet host the collector connects to. Stored credentials are
// optional; when blank the SSH layer falls back to ssh_config and agent keys.
type Target struct {
	ID         int64
	Name       string
	Host       string
	Port       int
	User       string
	Password   string
	KeyPath    string
	Sudo       bool
	Enabled    bool
	ScanMounts []string
	OS         string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DiskRecord is one row of df output captured for a host.
type DiskRecord struct {
	Device     string
	Filesystem string
	MountPoint string
	TotalGB    float64
	UsedGB     float64
	FreeGB     float64
	UsePercent float64
}

// DirectoryRecord is a top-level directory size under a monitored mount.
type DirectoryRecord struct {
	MountPoint string
	Directory  string
	Owner      *string
	UsedGB     float64
}

// MetricsRecord is one CPU/memory/GPU sample for a host. GPUJSON holds the
// raw JSON array of GPU samples, empty when the host has no GPUs.
type MetricsRecord struct {
	ServerID      int64
	CPUPercent    float64
	MemoryTotalGB float64
	MemoryUsedGB  float64
	MemoryFreeGB  float64
	MemoryPercent float64
	GPUJSON       string
	CollectedAt   time.Time
}

// CacheEntry is a row of the analysis cache keyed by (server, mount, kind).
type CacheEntry struct {
	ID          int64
	ServerID    int64
	MountPoint  string
	Kind        string
	DataJSON    string
	CollectedAt *time.Time
	Refreshing  bool
	Error       string
}

// AlertRule describes one threshold check. ServerID nil means the rule
// applies to every enabled target.
type AlertRule struct {
	ID              int64
	Name            string
	MetricType      string
	Threshold       float64
	ServerID        *int64
	Enabled         bool
	CooldownMinutes int
	LastTriggeredAt *time.Time
	BarkURL         string
	BarkSound       string
}
