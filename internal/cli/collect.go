package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spacefleet/spacefleet/internal/collector"
)

var (
	collectTargetFlag  string
	collectMetricsOnly bool
)

// collectCmd runs one collection cycle immediately
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect disk and metrics data from the fleet now",
	Long: `Run one collection cycle immediately instead of waiting for the
scheduled run.

Examples:
  spacefleet collect
  spacefleet collect --target nas01
  spacefleet collect --metrics-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return collectCommand(cmd.Context(), collectTargetFlag, collectMetricsOnly)
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringVar(&collectTargetFlag, "target", "", "Collect a single target by name")
	collectCmd.Flags().BoolVar(&collectMetricsOnly, "metrics-only", false, "Skip disk and directory scans")
}

func collectCommand(ctx context.Context, targetName string, metricsOnly bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var statuses []collector.HostStatus
	if targetName != "" {
		t, err := a.store.GetTarget(ctx, targetName)
		if err != nil {
			return err
		}
		deadline := a.cfg.Collection.HostDeadline
		collect := a.collector.CollectHost
		if metricsOnly {
			deadline = a.cfg.Collection.MetricsHostDeadline
			collect = a.collector.CollectHostMetrics
		}
		hostCtx, cancel := context.WithTimeout(ctx, deadline)
		defer cancel()
		statuses = []collector.HostStatus{collect(hostCtx, *t)}
	} else if metricsOnly {
		statuses, err = a.collector.CollectFleetMetrics(ctx)
	} else {
		statuses, err = a.collector.CollectFleet(ctx)
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, st := range statuses {
		switch {
		case st.Success && st.Warning != "":
			fmt.Printf("⚠ %s: %s\n", st.Name, st.Warning)
		case st.Success:
			if metricsOnly {
				fmt.Printf("✓ %s (%s)\n", st.Name, st.Elapsed.Round(time.Millisecond))
			} else {
				fmt.Printf("✓ %s: %d disks, %d directories (%s)\n",
					st.Name, st.DiskCount, st.DirectoryCount, st.Elapsed.Round(time.Millisecond))
			}
		default:
			failed++
			fmt.Printf("✗ %s: %s\n", st.Name, st.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d hosts failed", failed, len(statuses))
	}
	return nil
}
