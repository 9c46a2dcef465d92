package config

import "time"

// Config represents the complete spacefleet.yaml configuration file.
type Config struct {
	// DBPath is the sqlite database file holding targets, samples, and cache rows.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	// Targets declared in the config file are synced into the store at startup.
	Targets map[string]Target `yaml:"targets" mapstructure:"targets"`

	Collection CollectionConfig `yaml:"collection" mapstructure:"collection"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Alerting   AlertingConfig   `yaml:"alerting" mapstructure:"alerting"`
}

// Target defines a remote machine under monitoring and its connection settings.
type Target struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`

	// Sudo enables non-interactive privilege escalation for remote commands.
	Sudo bool `yaml:"sudo" mapstructure:"sudo"`

	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// ScanMounts restricts disk collection to these mount points
	// (comma-separated). Empty means all mounts above the size threshold.
	ScanMounts string `yaml:"scan_mounts" mapstructure:"scan_mounts"`

	// OS is an optional hint (e.g. "ubuntu", "centos"); informational only.
	OS string `yaml:"os" mapstructure:"os"`
}

// CollectionConfig controls the fleet collection pipeline.
type CollectionConfig struct {
	// MinDiskSizeGB is the size threshold for mounts collected when a target
	// has no explicit mount allow-list.
	MinDiskSizeGB float64 `yaml:"min_disk_size_gb" mapstructure:"min_disk_size_gb"`

	// Hour and Minute schedule the daily full disk+directory collection.
	Hour   int `yaml:"hour" mapstructure:"hour"`
	Minute int `yaml:"minute" mapstructure:"minute"`

	// MetricsInterval is the cadence of the lightweight metrics-only pass.
	MetricsInterval time.Duration `yaml:"metrics_interval" mapstructure:"metrics_interval"`

	// Workers bounds how many hosts are collected concurrently.
	Workers int `yaml:"workers" mapstructure:"workers"`

	// HostDeadline caps the total time spent on one host in a full
	// collection run; MetricsHostDeadline does the same for metrics passes.
	HostDeadline        time.Duration `yaml:"host_deadline" mapstructure:"host_deadline"`
	MetricsHostDeadline time.Duration `yaml:"metrics_host_deadline" mapstructure:"metrics_host_deadline"`
}

// AnalysisConfig controls the on-demand scan cache.
type AnalysisConfig struct {
	// TTL is the staleness threshold for cached scans.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// TopLargeFiles is how many files the large-file scan keeps.
	TopLargeFiles int `yaml:"top_large_files" mapstructure:"top_large_files"`
}

// AlertingConfig controls threshold alerting.
type AlertingConfig struct {
	// DefaultThresholdPercent marks disks as alerting in summaries.
	DefaultThresholdPercent float64 `yaml:"default_threshold_percent" mapstructure:"default_threshold_percent"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DBPath:  "spacefleet.db",
		Targets: make(map[string]Target),
		Collection: CollectionConfig{
			MinDiskSizeGB:       250,
			Hour:                2,
			Minute:              0,
			MetricsInterval:     time.Minute,
			Workers:             4,
			HostDeadline:        15 * time.Minute,
			MetricsHostDeadline: 2 * time.Minute,
		},
		Analysis: AnalysisConfig{
			TTL:           7 * 24 * time.Hour,
			TopLargeFiles: 50,
		},
		Alerting: AlertingConfig{
			DefaultThresholdPercent: 80,
		},
	}
}
