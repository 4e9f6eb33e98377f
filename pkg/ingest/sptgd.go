package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

// sptgdDesc is the daily maintenance check-list table. It lives in its
// own schema, separate from the extract tables.
var sptgdDesc = model.TableDescriptor{
	Name:       "sptgd",
	Schema:     "sptgd",
	KeyColumns: []string{"Date"},
	Columns: []string{
		"Date",
		"Securite",
		"Taux de dispo",
		"Preventif",
		"Gmao centralise",
		"Demande intervention",
	},
}

// ManualRecord is one manual daily check-list entry: five yes/no answers
// for a given moment of the day.
type ManualRecord struct {
	// Date is the moment the checks were done, time of day included.
	Date time.Time

	Securite            bool
	TauxDispo           bool
	Preventif           bool
	GmaoCentralise      bool
	DemandeIntervention bool
}

// SubmitManual records one SPTGD check-list entry, replacing any earlier
// entry for the same timestamp.
func (o *Orchestrator) SubmitManual(ctx context.Context, rec ManualRecord) (*Receipt, error) {
	if rec.Date.IsZero() {
		return nil, cferrors.New(cferrors.CodeBadDate, "record date is required")
	}
	if rec.Date.After(o.now()) {
		return nil, cferrors.New(cferrors.CodeBadDate, "record date is in the future").
			WithContext("date", rec.Date.Format("2006-01-02 15:04"))
	}

	set := model.RowSet{
		Desc: sptgdDesc,
		Rows: []model.Row{{
			"Date":                 rec.Date,
			"Securite":             boolFlag(rec.Securite),
			"Taux de dispo":        boolFlag(rec.TauxDispo),
			"Preventif":            boolFlag(rec.Preventif),
			"Gmao centralise":      boolFlag(rec.GmaoCentralise),
			"Demande intervention": boolFlag(rec.DemandeIntervention),
		}},
	}
	if err := o.tables.Write(ctx, set); err != nil {
		return nil, err
	}
	o.log.Info("recorded manual check-list entry", "date", rec.Date.Format("2006-01-02 15:04"))

	return &Receipt{
		Token:  uuid.NewString(),
		Date:   rec.Date,
		Tables: []string{sptgdDesc.Schema + "." + sptgdDesc.Name},
	}, nil
}

// boolFlag stores the historical "0"/"1" text encoding.
func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
