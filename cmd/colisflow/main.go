// Colisflow ingests daily sorter extracts for the LTH parcel facility:
// Excel uploads are archived to blob storage, normalized per type and
// written to Postgres with a completeness ledger on top.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/colisflow/colisflow/internal/logging"
	"github.com/colisflow/colisflow/internal/model"
	"github.com/colisflow/colisflow/pkg/blob"
	"github.com/colisflow/colisflow/pkg/calendar"
	"github.com/colisflow/colisflow/pkg/config"
	"github.com/colisflow/colisflow/pkg/ingest"
	"github.com/colisflow/colisflow/pkg/ledger"
	"github.com/colisflow/colisflow/pkg/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	configFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "colisflow",
	Short: "Colisflow - Sorter extract ingestion for site LTH",
	Long: `Colisflow ingests the daily Excel extracts of a parcel sorting
facility. Each upload is archived to blob storage, normalized and written
to Postgres with a delete-then-insert replace, then recorded in the
completeness ledger so missing days can be chased.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
}

// app bundles the wired services behind every command.
type app struct {
	cfg  *config.Config
	log  *slog.Logger
	db   *sql.DB
	blob blob.Store
	led  *ledger.Ledger
	orch *ingest.Orchestrator
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// newApp loads configuration and wires the full pipeline. Commands that
// only need a subset still pay for the whole thing; startup is cheap and
// a broken DSN should fail up front either way.
func newApp(ctx context.Context) (*app, error) {
	mgr := config.NewManager()
	var err error
	if configFile != "" {
		err = mgr.LoadFile(configFile)
	} else {
		err = mgr.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.Get()

	log, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	blobs, err := blob.NewS3Store(ctx, blob.S3Config{
		Region:          cfg.Blob.Region,
		Bucket:          cfg.Blob.Bucket,
		Endpoint:        cfg.Blob.Endpoint,
		UsePathStyle:    cfg.Blob.UsePathStyle,
		AccessKeyID:     cfg.Blob.AccessKeyID,
		SecretAccessKey: cfg.Blob.SecretAccessKey,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	holidays, err := cfg.HolidayDates()
	if err != nil {
		db.Close()
		return nil, err
	}
	epochs, err := cfg.EpochDates()
	if err != nil {
		db.Close()
		return nil, err
	}

	led := ledger.New(db, cfg.Site, calendar.New(holidays), epochs, log)
	orch := ingest.New(
		cfg.Site,
		blobs,
		ingest.NewSQLTableWriter(db, store.NewWriter(log)),
		led,
		ingest.NewSQLWeightSource(db),
		log,
	)

	return &app{cfg: cfg, log: log, db: db, blob: blobs, led: led, orch: orch}, nil
}

// sortedSlugs lists the extract type slugs for help text and errors.
func sortedSlugs() []string {
	slugs := model.Slugs()
	sort.Strings(slugs)
	return slugs
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}
