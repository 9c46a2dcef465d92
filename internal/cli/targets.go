package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spacefleet/spacefleet/pkg/sshutil"
)

// targetsCmd groups target management subcommands
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Inspect and manage monitored hosts",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetsListCommand(cmd.Context())
	},
}

var targetsTestCmd = &cobra.Command{
	Use:   "test [name]",
	Short: "Test SSH connectivity to one target or the whole fleet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return targetsTestCommand(cmd.Context(), name)
	},
}

var targetsEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetsSetEnabledCommand(cmd.Context(), args[0], true)
	},
}

var targetsDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a target without removing its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetsSetEnabledCommand(cmd.Context(), args[0], false)
	},
}

var targetsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a target and its collected history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetsRemoveCommand(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	targetsCmd.AddCommand(targetsListCmd)
	targetsCmd.AddCommand(targetsTestCmd)
	targetsCmd.AddCommand(targetsEnableCmd)
	targetsCmd.AddCommand(targetsDisableCmd)
	targetsCmd.AddCommand(targetsRemoveCmd)
}

func targetsListCommand(ctx context.Context) error {
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
		fmt.Println("No targets configured. Add them to spacefleet.yaml and rerun.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tHOST\tUSER\tENABLED\tSUDO\tMOUNTS")
	for _, t := range targets {
		mounts := strings.Join(t.ScanMounts, ",")
		if mounts == "" {
			mounts = "(auto)"
		}
		fmt.Fprintf(w, "%s\t%s:%d\t%s\t%v\t%v\t%s\n",
			t.Name, t.Host, t.Port, t.User, t.Enabled, t.Sudo, mounts)
	}
	return w.Flush()
}

func targetsTestCommand(ctx context.Context, name string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	targets, err := a.store.ListTargets(ctx, false)
	if err != nil {
		return err
	}

	tested, failed := 0, 0
	for _, t := range targets {
		if name != "" && t.Name != name {
			continue
		}
		tested++
		ok, msg := sshutil.TestConnection(sshutil.Config{
			Host:     t.Host,
			Port:     t.Port,
			User:     t.User,
			Password: t.Password,
			KeyPath:  t.KeyPath,
			Sudo:     t.Sudo,
		})
		if ok {
			fmt.Printf("✓ %s: %s\n", t.Name, msg)
		} else {
			failed++
			fmt.Printf("✗ %s: %s\n", t.Name, msg)
		}
	}
	if tested == 0 {
		if name != "" {
			return fmt.Errorf("no target named %s", name)
		}
		fmt.Println("No targets configured.")
		return nil
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets unreachable", failed, tested)
	}
	return nil
}

func targetsSetEnabledCommand(ctx context.Context, name string, enabled bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.SetTargetEnabled(ctx, name, enabled); err != nil {
		return err
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("✓ %s %s\n", name, state)
	return nil
}

func targetsRemoveCommand(ctx context.Context, name string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.DeleteTarget(ctx, name); err != nil {
		return err
	}
	fmt.Printf("✓ %s removed\n", name)
	return nil
}
