package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/colisflow/colisflow/internal/model"
	"github.com/colisflow/colisflow/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a drop directory for extract files",
	Long: `Watch a directory for files named {type}_{YYYYMMDD}.xlsx and submit
each one through the ingestion pipeline. Processed files move to a
processed/ subdirectory, rejected ones to failed/. Files already present
at startup are submitted first.

Examples:
  colisflow watch /srv/colisflow/drop
  colisflow watch        # uses watch.dir from the config file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := a.cfg.Watch.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no drop directory: pass one or set watch.dir in the config")
	}

	submit := watch.SubmitterFunc(func(ctx context.Context, sub model.Submission) error {
		_, err := a.orch.Submit(ctx, sub)
		return err
	})
	w, err := watch.NewWatcher(dir, a.cfg.Site, submit, a.log)
	if err != nil {
		return err
	}

	a.log.Info("watching drop directory", "dir", dir)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
