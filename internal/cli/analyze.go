package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spacefleet/spacefleet/internal/analysis"
	"github.com/spacefleet/spacefleet/internal/parsers"
	"github.com/spacefleet/spacefleet/internal/store"
)

var (
	analyzeKindFlag  string
	analyzeForceFlag bool
)

// analyzeCmd serves cached whole-mount scans
var analyzeCmd = &cobra.Command{
	Use:   "analyze <target> <mount>",
	Short: "Show file type or large file analysis for a mount",
	Long: `Show the cached analysis of a mount. Stale results are returned
immediately while a refresh runs in the background; --force scans
synchronously instead.

Only mount points discovered by a previous collection can be analyzed.

Examples:
  spacefleet analyze nas01 /data
  spacefleet analyze nas01 /data --kind large_files
  spacefleet analyze nas01 /data --force`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeCommand(cmd.Context(), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeKindFlag, "kind", store.KindFileTypes,
		"Analysis kind (file_types or large_files)")
	analyzeCmd.Flags().BoolVar(&analyzeForceFlag, "force", false,
		"Scan now instead of serving the cache")
}

func analyzeCommand(ctx context.Context, targetName, mount string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cache := analysis.NewCache(a.store, a.collector, a.cfg, a.log)

	var result *analysis.Result
	if analyzeForceFlag {
		result, err = cache.ForceRefresh(ctx, targetName, mount, analyzeKindFlag)
	} else {
		result, err = cache.Get(ctx, targetName, mount, analyzeKindFlag)
	}
	if err != nil {
		return err
	}

	if !analyzeForceFlag && result.Refreshing {
		// A one-shot process can't leave the claimed refresh behind; wait
		// it out and report whatever landed.
		fmt.Println("scanning; this can take a while on large mounts")
		cache.Wait()
		result, err = cache.Peek(ctx, targetName, mount, analyzeKindFlag)
		if err != nil {
			return err
		}
	}

	if result.CollectedAt != nil {
		fmt.Printf("collected %s\n", result.CollectedAt.Local().Format("2006-01-02 15:04"))
	}
	if result.Refreshing {
		fmt.Println("refresh in progress; rerun shortly for fresh data")
	}
	if result.ScanError != "" {
		fmt.Printf("last scan error: %s\n", result.ScanError)
	}
	if result.DataJSON == "" {
		fmt.Println("no data yet")
		return nil
	}

	switch analyzeKindFlag {
	case store.KindFileTypes:
		return printFileTypes(result.DataJSON)
	case store.KindLargeFiles:
		return printLargeFiles(result.DataJSON)
	default:
		fmt.Println(result.DataJSON)
		return nil
	}
}

func printFileTypes(dataJSON string) error {
	var stats []parsers.FileTypeStat
	if err := json.Unmarshal([]byte(dataJSON), &stats); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXTENSION\tCOUNT\tTOTAL GB")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%.2f\n", s.Extension, s.Count, s.TotalGB)
	}
	return w.Flush()
}

func printLargeFiles(dataJSON string) error {
	var files []parsers.LargeFile
	if err := json.Unmarshal([]byte(dataJSON), &files); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SIZE GB\tOWNER\tMODIFIED\tPATH")
	for _, f := range files {
		fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", f.SizeGB, f.Owner, f.Modified, f.Path)
	}
	return w.Flush()
}
