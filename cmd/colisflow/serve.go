package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/colisflow/colisflow/pkg/api/rest"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion API server",
	Long: `Start the HTTP server that accepts extract uploads and answers
completeness queries.

Examples:
  colisflow serve
  colisflow serve --addr 0.0.0.0:8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr()
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := rest.NewServer(rest.Config{
		Addr:          addr,
		Site:          a.cfg.Site,
		MaxUploadSize: a.cfg.Server.MaxUploadSize,
		Submitter:     a.orch,
		Ledger:        a.led,
		Log:           a.log,
	})

	errChan := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", addr)
		if err := srv.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		a.log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}
