package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/colisflow/colisflow/internal/model"
)

var missingLimit int

var missingCmd = &cobra.Command{
	Use:   "missing [type]",
	Short: "List the most recent dates with no data",
	Long: `List reporting days (working days minus public holidays) whose data
has not been loaded, most recent first. With no type argument, every
extract type is checked.

Examples:
  colisflow missing
  colisflow missing qualite --limit 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMissing,
}

func init() {
	missingCmd.Flags().IntVar(&missingLimit, "limit", 5, "Maximum dates per type (0 for all)")
	rootCmd.AddCommand(missingCmd)
}

func runMissing(cmd *cobra.Command, args []string) error {
	types := model.AllTypes()
	if len(args) == 1 {
		t, ok := model.TypeFromSlug(args[0])
		if !ok {
			return fmt.Errorf("unknown extract type %q (one of: %s)",
				args[0], strings.Join(sortedSlugs(), ", "))
		}
		types = []model.DataType{t}
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now()
	for _, t := range types {
		missing, err := a.led.MissingDates(ctx, t, now, missingLimit)
		if err != nil {
			return fmt.Errorf("query failed for %s: %w", t, err)
		}
		if len(missing) == 0 {
			fmt.Printf("%s: up to date\n", t)
			continue
		}
		dates := make([]string, 0, len(missing))
		for _, d := range missing {
			dates = append(dates, d.Format("02/01/2006"))
		}
		fmt.Printf("%s: %s\n", t, strings.Join(dates, ", "))
	}
	return nil
}
