// Package cli wires the spacefleet commands together.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spacefleet/spacefleet/internal/collector"
	"github.com/spacefleet/spacefleet/internal/config"
	"github.com/spacefleet/spacefleet/internal/errors"
	"github.com/spacefleet/spacefleet/internal/logger"
	"github.com/spacefleet/spacefleet/internal/store"
)

var configFlag string

// rootCmd is the base command for spacefleet
var rootCmd = &cobra.Command{
	Use:   "spacefleet",
	Short: "Disk, CPU, memory, and GPU monitoring for a fleet of SSH hosts",
	Long: `spacefleet collects disk usage, directory sizes, and system metrics
from remote hosts over SSH, stores them locally, and alerts when
thresholds trip.

Targets are declared in spacefleet.yaml and synced into the local
database on startup.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"Path to config file (default: ./spacefleet.yaml, ~/.config/spacefleet/config.yaml)")
}

// app bundles everything a command needs after startup.
type app struct {
	cfg       *config.Config
	store     *store.Store
	collector *collector.Collector
	log       logger.Logger
}

// openApp loads configuration, opens the database, and syncs declared
// targets into it.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	if err := syncTargets(ctx, st, cfg); err != nil {
		_ = st.Close()
		return nil, err
	}

	log := logger.NewEnvLogger("spacefleet")
	return &app{
		cfg:       cfg,
		store:     st,
		collector: collector.New(st, nil, cfg, log),
		log:       log,
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

// syncTargets upserts every target declared in the config file so the
// database reflects the file on each run.
func syncTargets(ctx context.Context, st *store.Store, cfg *config.Config) error {
	for name, t := range cfg.Targets {
		if t.Host == "" {
			return errors.New(errors.ErrConfig,
				"Target "+name+" has no host",
				"Every target needs at least a host in spacefleet.yaml.")
		}
		port := t.Port
		if port == 0 {
			port = 22
		}
		var mounts []string
		for _, m := range strings.Split(t.ScanMounts, ",") {
			if m = strings.TrimSpace(m); m != "" {
				mounts = append(mounts, m)
			}
		}
		_, err := st.UpsertTarget(ctx, store.Target{
			Name:       name,
			Host:       t.Host,
			Port:       port,
			User:       t.User,
			Password:   t.Password,
			KeyPath:    t.KeyPath,
			Sudo:       t.Sudo,
			Enabled:    t.Enabled,
			ScanMounts: mounts,
			OS:         t.OS,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
