package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spacefleet/spacefleet/internal/parsers"
)

// statusCmd shows the latest stored sample for each target
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest disk and metrics snapshot per target",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCommand(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	targets, err := a.store.ListTargets(ctx, false)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("No targets configured.")
		return nil
	}

	threshold := a.cfg.Alerting.DefaultThresholdPercent
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	for _, t := range targets {
		fmt.Fprintf(w, "%s (%s)\n", t.Name, t.Host)

		m, err := a.store.LatestMetrics(ctx, t.ID)
		if err != nil {
			return err
		}
		if m == nil {
			fmt.Fprintln(w, "  no samples yet")
		} else {
			fmt.Fprintf(w, "  cpu\t%.1f%%\n", m.CPUPercent)
			fmt.Fprintf(w, "  memory\t%.1f%% (%.1f/%.1f GB)\n",
				m.MemoryPercent, m.MemoryUsedGB, m.MemoryTotalGB)
			for _, g := range decodeGPUs(m.GPUJSON) {
				fmt.Fprintf(w, "  gpu%d %s\tmem %.1f%% util %.1f%% %.0f°C\n",
					g.Index, g.Name, g.MemoryPercent, g.UtilPercent, g.Temperature)
			}
		}

		disks, err := a.store.LatestDisksPerMount(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, d := range disks {
			mark := ""
			if d.UsePercent >= threshold {
				mark = " ⚠"
			}
			fmt.Fprintf(w, "  %s\t%.1f%% of %.1f GB%s\n", d.MountPoint, d.UsePercent, d.TotalGB, mark)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func decodeGPUs(gpuJSON string) []parsers.GPUSample {
	if gpuJSON == "" {
		return nil
	}
	var gpus []parsers.GPUSample
	if err := json.Unmarshal([]byte(gpuJSON), &gpus); err != nil {
		return nil
	}
	return gpus
}
