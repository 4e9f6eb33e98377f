package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/colisflow/colisflow/pkg/ingest"
)

var (
	sptgdDate                string
	sptgdSecurite            bool
	sptgdTauxDispo           bool
	sptgdPreventif           bool
	sptgdGmao                bool
	sptgdDemandeIntervention bool
)

var sptgdCmd = &cobra.Command{
	Use:   "sptgd",
	Short: "Record a daily maintenance review entry",
	Long: `Record the outcome of the daily maintenance stand-up as boolean
flags on a timestamp. Submitting the same date again replaces the entry.

Examples:
  colisflow sptgd --date "2025-04-05 09:30" --securite --preventif`,
	RunE: runSPTGD,
}

func init() {
	sptgdCmd.Flags().StringVar(&sptgdDate, "date", "", `Date and time, "YYYY-MM-DD HH:MM" (required)`)
	sptgdCmd.Flags().BoolVar(&sptgdSecurite, "securite", false, "Safety point covered")
	sptgdCmd.Flags().BoolVar(&sptgdTauxDispo, "taux-dispo", false, "Availability rate reviewed")
	sptgdCmd.Flags().BoolVar(&sptgdPreventif, "preventif", false, "Preventive plan reviewed")
	sptgdCmd.Flags().BoolVar(&sptgdGmao, "gmao-centralise", false, "CMMS entries centralized")
	sptgdCmd.Flags().BoolVar(&sptgdDemandeIntervention, "demande-intervention", false, "Intervention requests reviewed")
	sptgdCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(sptgdCmd)
}

func runSPTGD(cmd *cobra.Command, args []string) error {
	date, err := time.Parse("2006-01-02 15:04", sptgdDate)
	if err != nil {
		date, err = time.Parse("2006-01-02", sptgdDate)
		if err != nil {
			return fmt.Errorf(`--date must be "YYYY-MM-DD HH:MM" or "YYYY-MM-DD"`)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	receipt, err := a.orch.SubmitManual(ctx, ingest.ManualRecord{
		Date:                date,
		Securite:            sptgdSecurite,
		TauxDispo:           sptgdTauxDispo,
		Preventif:           sptgdPreventif,
		GmaoCentralise:      sptgdGmao,
		DemandeIntervention: sptgdDemandeIntervention,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded entry for %s (token %s)\n", date.Format("2006-01-02 15:04"), receipt.Token)
	return nil
}
