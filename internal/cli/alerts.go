package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spacefleet/spacefleet/internal/alert"
	"github.com/spacefleet/spacefleet/internal/notify"
	"github.com/spacefleet/spacefleet/internal/store"
)

var (
	alertAddMetric   string
	alertAddThresh   float64
	alertAddTarget   string
	alertAddCooldown int
	alertAddBarkURL  string
	alertAddSound    string
)

// alertsCmd groups alert rule subcommands
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage and test alert rules",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertsListCommand(cmd.Context())
	},
}

var alertsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an alert rule",
	Long: `Add a threshold rule. Metric types: cpu, memory, disk, gpu_memory,
gpu_util. Without --target the rule watches every enabled target.

Examples:
  spacefleet alerts add disk-full --metric disk --threshold 90 --bark-url https://bark.example/KEY
  spacefleet alerts add gpu-hot --metric gpu_util --threshold 95 --target ml01 --bark-url https://bark.example/KEY`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertsAddCommand(cmd.Context(), args[0])
	},
}

var alertsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("rule id must be a number, got %q", args[0])
		}
		return alertsRemoveCommand(cmd.Context(), id)
	},
}

var alertsTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Send a test notification through a rule's Bark channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("rule id must be a number, got %q", args[0])
		}
		return alertsTestCommand(cmd.Context(), id)
	},
}

var alertsEvalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate all enabled rules once and show the outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertsEvalCommand(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsAddCmd)
	alertsCmd.AddCommand(alertsRemoveCmd)
	alertsCmd.AddCommand(alertsTestCmd)
	alertsCmd.AddCommand(alertsEvalCmd)

	alertsAddCmd.Flags().StringVar(&alertAddMetric, "metric", "", "Metric type (cpu, memory, disk, gpu_memory, gpu_util)")
	alertsAddCmd.Flags().Float64Var(&alertAddThresh, "threshold", 0, "Threshold percent")
	alertsAddCmd.Flags().StringVar(&alertAddTarget, "target", "", "Restrict to one target by name")
	alertsAddCmd.Flags().IntVar(&alertAddCooldown, "cooldown", 30, "Minutes between notifications")
	alertsAddCmd.Flags().StringVar(&alertAddBarkURL, "bark-url", "", "Bark server URL including device key")
	alertsAddCmd.Flags().StringVar(&alertAddSound, "sound", "", "Bark notification sound")
	_ = alertsAddCmd.MarkFlagRequired("metric")
	_ = alertsAddCmd.MarkFlagRequired("threshold")
	_ = alertsAddCmd.MarkFlagRequired("bark-url")
}

func alertsListCommand(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	rules, err := a.store.ListRules(ctx, false)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Println("No alert rules. Add one with 'spacefleet alerts add'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMETRIC\tTHRESHOLD\tSCOPE\tENABLED\tCOOLDOWN\tLAST TRIGGERED")
	for _, r := range rules {
		scope := "fleet"
		if r.ServerID != nil {
			scope = fmt.Sprintf("target %d", *r.ServerID)
		}
		last := "never"
		if r.LastTriggeredAt != nil {
			last = r.LastTriggeredAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.0f%%\t%s\t%v\t%dm\t%s\n",
			r.ID, r.Name, r.MetricType, r.Threshold, scope, r.Enabled, r.CooldownMinutes, last)
	}
	return w.Flush()
}

func alertsAddCommand(ctx context.Context, name string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	switch alertAddMetric {
	case store.MetricCPU, store.MetricMemory, store.MetricDisk, store.MetricGPUMemory, store.MetricGPUUtil:
	default:
		return fmt.Errorf("unknown metric type %q", alertAddMetric)
	}

	var serverID *int64
	if alertAddTarget != "" {
		t, err := a.store.GetTarget(ctx, alertAddTarget)
		if err != nil {
			return err
		}
		serverID = &t.ID
	}

	id, err := a.store.CreateRule(ctx, store.AlertRule{
		Name:            name,
		MetricType:      alertAddMetric,
		Threshold:       alertAddThresh,
		ServerID:        serverID,
		Enabled:         true,
		CooldownMinutes: alertAddCooldown,
		BarkURL:         alertAddBarkURL,
		BarkSound:       alertAddSound,
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ rule %s created (id %d)\n", name, id)
	return nil
}

func alertsRemoveCommand(ctx context.Context, id int64) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.DeleteRule(ctx, id); err != nil {
		return err
	}
	fmt.Printf("✓ rule %d removed\n", id)
	return nil
}

func alertsTestCommand(ctx context.Context, id int64) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	rules, err := a.store.ListRules(ctx, false)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if r.ID != id {
			continue
		}
		evaluator := alert.NewEvaluator(a.store, notify.NewBark(), a.log)
		if err := evaluator.SendTest(ctx, r); err != nil {
			return err
		}
		fmt.Printf("✓ test notification sent for rule %s\n", r.Name)
		return nil
	}
	return fmt.Errorf("no alert rule with id %d", id)
}

func alertsEvalCommand(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	evaluator := alert.NewEvaluator(a.store, notify.NewBark(), a.log)
	outcomes, err := evaluator.Evaluate(ctx)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Println("No enabled alert rules.")
		return nil
	}
	for _, o := range outcomes {
		switch {
		case o.Error != "":
			fmt.Printf("✗ %s: %s\n", o.RuleName, o.Error)
		case o.Skipped != "":
			fmt.Printf("- %s: %s\n", o.RuleName, o.Skipped)
		case o.Notified:
			fmt.Printf("! %s: %d violation(s), notified\n", o.RuleName, len(o.Violations))
		default:
			fmt.Printf("✓ %s: ok\n", o.RuleName)
		}
	}
	return nil
}
