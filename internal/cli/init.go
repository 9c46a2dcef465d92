package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spacefleet/spacefleet/internal/config"
	"github.com/spacefleet/spacefleet/internal/errors"
)

var initForce bool

// initCmd writes a starter spacefleet.yaml
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter spacefleet.yaml",
	Long: `Write a spacefleet.yaml in the current directory with the default
settings and one example target to edit.

Examples:
  spacefleet init
  spacefleet init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing spacefleet.yaml")
}

func initCommand(force bool) error {
	const path = "spacefleet.yaml"
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			path+" already exists",
			"Use --force to overwrite it.")
	}

	// Durations are written as strings so the file stays hand-editable.
	cfg := config.DefaultConfig()
	doc := map[string]any{
		"db_path": cfg.DBPath,
		"targets": map[string]any{
			"example": map[string]any{
				"host":     "example.internal",
				"port":     22,
				"user":     "monitor",
				"key_path": "~/.ssh/id_ed25519",
				"sudo":     false,
				"enabled":  false,
			},
		},
		"collection": map[string]any{
			"min_disk_size_gb":      cfg.Collection.MinDiskSizeGB,
			"hour":                  cfg.Collection.Hour,
			"minute":                cfg.Collection.Minute,
			"metrics_interval":      cfg.Collection.MetricsInterval.String(),
			"workers":               cfg.Collection.Workers,
			"host_deadline":         cfg.Collection.HostDeadline.String(),
			"metrics_host_deadline": cfg.Collection.MetricsHostDeadline.String(),
		},
		"analysis": map[string]any{
			"ttl":             cfg.Analysis.TTL.String(),
			"top_large_files": cfg.Analysis.TopLargeFiles,
		},
		"alerting": map[string]any{
			"default_threshold_percent": cfg.Alerting.DefaultThresholdPercent,
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	header := []byte("# spacefleet configuration\n# Enable the example target or add your own, then run 'spacefleet collect'.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Can't write "+path, "")
	}
	fmt.Printf("✓ wrote %s\n", path)
	return nil
}
