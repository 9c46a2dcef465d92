package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spacefleet/spacefleet/internal/alert"
	"github.com/spacefleet/spacefleet/internal/notify"
	"github.com/spacefleet/spacefleet/internal/scheduler"
)

// serveCmd runs the scheduler until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collection scheduler",
	Long: `Run spacefleet as a long-lived process: a full disk collection once
a day at the configured time, a metrics pass on a short interval, and
alert evaluation after each metrics pass.

Stops cleanly on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	evaluator := alert.NewEvaluator(a.store, notify.NewBark(), a.log)
	sched := scheduler.New(a.collector, evaluator, a.cfg, a.log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched.Start(ctx)
	fmt.Printf("spacefleet running: full collection daily at %02d:%02d, metrics every %s\n",
		a.cfg.Collection.Hour, a.cfg.Collection.Minute, a.cfg.Collection.MetricsInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("shutting down")
	cancel()
	sched.Stop()
	return nil
}
