package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

var ingestDate string

var ingestCmd = &cobra.Command{
	Use:   "ingest <type> <file>",
	Short: "Submit one extract file",
	Long: `Submit a single Excel extract for a reporting date. The file is
archived to blob storage, normalized and written to Postgres, and the
date is marked present in the completeness ledger.

Types: ` + strings.Join(sortedSlugs(), ", ") + `

Examples:
  colisflow ingest events extracts/Evenementsetdefauts.xlsx --date 2025-04-05
  colisflow ingest qualite qualite.xlsx --date 2025-04-05`,
	Args: cobra.ExactArgs(2),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "Reporting date, YYYY-MM-DD (required)")
	ingestCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	t, ok := model.TypeFromSlug(args[0])
	if !ok {
		return fmt.Errorf("unknown extract type %q (one of: %s)",
			args[0], strings.Join(sortedSlugs(), ", "))
	}
	date, err := time.Parse("2006-01-02", ingestDate)
	if err != nil {
		return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	content, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	receipt, err := a.orch.Submit(ctx, model.Submission{
		Type:          t,
		Site:          a.cfg.Site,
		ReportingDate: date,
		Content:       content,
	})
	if err != nil {
		if cferrors.IsMalformedExtract(err) {
			return fmt.Errorf("the file is not in the expected format, please re-export it (%w)", err)
		}
		return err
	}

	fmt.Printf("Ingested %s for %s (token %s)\n", t, date.Format("2006-01-02"), receipt.Token)
	for _, table := range receipt.Tables {
		fmt.Printf("  wrote %s\n", table)
	}
	return nil
}
