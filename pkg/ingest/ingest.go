// Package ingest drives one submission through the pipeline: archive the
// raw file, normalize it, replace the target tables, and mark the date in
// the completeness ledger.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/colisflow/colisflow/internal/model"
	"github.com/colisflow/colisflow/pkg/blob"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/normalize"
)

// TableWriter performs one keyed replace in its own transaction scope.
type TableWriter interface {
	Write(ctx context.Context, set model.RowSet) error
}

// Ledger is the completeness surface the orchestrator needs.
type Ledger interface {
	MarkPresent(ctx context.Context, t model.DataType, date time.Time) error
	LastDate(ctx context.Context, t model.DataType) (time.Time, error)
}

// WeightSource loads the fault-severity lookup for the events extract.
type WeightSource interface {
	FaultWeights(ctx context.Context) (map[string]float64, error)
}

// Receipt summarizes a completed submission. The token is fresh per
// call so upload forms can invalidate their state.
type Receipt struct {
	Token  string
	Type   model.DataType
	Date   time.Time
	Tables []string
}

// Orchestrator runs submissions end to end.
type Orchestrator struct {
	site    string
	blobs   blob.Store
	tables  TableWriter
	ledger  Ledger
	weights WeightSource
	log     *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an orchestrator for one site.
func New(site string, blobs blob.Store, tables TableWriter, ledger Ledger, weights WeightSource, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		site:    site,
		blobs:   blobs,
		tables:  tables,
		ledger:  ledger,
		weights: weights,
		log:     log,
		now:     time.Now,
	}
}

// BlobPath returns the archive location of one extract:
// PFC_{site}/0_raw_data/Extractions_quoti/{YYYYMMDD}/{filename}.
func (o *Orchestrator) BlobPath(date time.Time, filename string) string {
	return fmt.Sprintf("PFC_%s/0_raw_data/Extractions_quoti/%s/%s",
		o.site, date.Format("20060102"), filename)
}

// Submit ingests one uploaded extract. The raw bytes are archived before
// any table work so a failed run can be replayed.
func (o *Orchestrator) Submit(ctx context.Context, sub model.Submission) (*Receipt, error) {
	rule, err := normalize.Get(sub.Type)
	if err != nil {
		return nil, err
	}
	date, err := o.validateDate(sub.Type, sub.ReportingDate)
	if err != nil {
		return nil, err
	}

	dest := o.BlobPath(date, rule.Filename())
	if err := o.blobs.Put(ctx, dest, sub.Content, true); err != nil {
		return nil, err
	}
	o.log.Info("archived extract",
		"type", string(sub.Type), "date", date.Format("2006-01-02"), "path", dest)

	return o.run(ctx, rule, date, sub.Content)
}

// Replay re-ingests an extract already present in blob storage. Used by
// backfill; a missing blob yields CodeBlobNotFound so callers can skip.
func (o *Orchestrator) Replay(ctx context.Context, t model.DataType, date time.Time) (*Receipt, error) {
	rule, err := normalize.Get(t)
	if err != nil {
		return nil, err
	}
	content, err := o.blobs.Get(ctx, o.BlobPath(model.Date(date), rule.Filename()))
	if err != nil {
		return nil, err
	}
	return o.run(ctx, rule, model.Date(date), content)
}

// ArchivedTypes reports which extract types have an archived file for a
// date, from one listing of the date's archive prefix. Backfill uses it
// to replay only what was actually uploaded.
func (o *Orchestrator) ArchivedTypes(ctx context.Context, date time.Time) ([]model.DataType, error) {
	paths, err := o.blobs.List(ctx, o.BlobPath(model.Date(date), ""))
	if err != nil {
		return nil, err
	}
	archived := make(map[string]bool, len(paths))
	for _, p := range paths {
		archived[path.Base(p)] = true
	}

	var types []model.DataType
	for _, t := range model.AllTypes() {
		rule, err := normalize.Get(t)
		if err != nil {
			continue
		}
		if archived[rule.Filename()] {
			types = append(types, t)
		}
	}
	return types, nil
}

// run normalizes and writes one extract, then records it in the ledger.
func (o *Orchestrator) run(ctx context.Context, rule normalize.Rule, date time.Time, content []byte) (*Receipt, error) {
	nctx := normalize.Context{Site: o.site, ReportingDate: date}
	if rule.Type() == model.TypeEvents {
		weights, err := o.weights.FaultWeights(ctx)
		if err != nil {
			return nil, err
		}
		nctx.FaultWeights = weights
	}

	sets, err := rule.Normalize(nctx, content)
	if err != nil {
		return nil, err
	}

	// Each table gets its own transaction. The first set is the primary
	// table; a derived set failing must not undo it.
	var derived cferrors.MultiError
	tables := make([]string, 0, len(sets))
	for i, set := range sets {
		if err := o.tables.Write(ctx, set); err != nil {
			if i == 0 {
				return nil, err
			}
			o.log.Error("derived table write failed",
				"table", set.Desc.Name, "error", err)
			derived.Add(err)
			continue
		}
		tables = append(tables, set.Desc.Name)
	}

	if err := o.ledger.MarkPresent(ctx, rule.Type(), date); err != nil {
		return nil, err
	}

	if rule.Type() == model.TypeInjectionHaut || rule.Type() == model.TypeInjectionBas {
		name, err := o.aggregateInjections(ctx, date)
		if err != nil {
			return nil, err
		}
		if name != "" {
			tables = append(tables, name)
		}
	}

	if err := derived.Combined(); err != nil {
		return nil, err
	}
	return &Receipt{
		Token:  uuid.NewString(),
		Type:   rule.Type(),
		Date:   date,
		Tables: tables,
	}, nil
}

// aggregateInjections writes the combined daily total once both sorter
// files are archived. An absent sibling defers silently; a sibling whose
// total cannot be read is a malformed extract. The per-sorter writes
// stay committed either way.
func (o *Orchestrator) aggregateInjections(ctx context.Context, date time.Time) (string, error) {
	totals := make(map[string]int64, 2)
	for _, sorter := range []string{"haut", "bas"} {
		sibling := o.BlobPath(date,
			fmt.Sprintf("Injectiondescolisauxantennes_trieur_%s.xlsx", sorter))
		present, err := o.blobs.Exists(ctx, sibling)
		if err != nil {
			return "", err
		}
		if !present {
			o.log.Debug("sibling injection file not uploaded yet",
				"sorter", sorter, "date", date.Format("2006-01-02"))
			return "", nil
		}
		content, err := o.blobs.Get(ctx, sibling)
		if err != nil {
			return "", err
		}
		total, err := normalize.TotalInjected(sorter, content)
		if err != nil {
			return "", err
		}
		totals[sorter] = total
	}

	set := model.RowSet{
		Desc: normalize.InjectionJourDesc,
		Rows: []model.Row{{
			"Date":                     date,
			"nombre de colis injectés": totals["haut"] + totals["bas"],
		}},
	}
	if err := o.tables.Write(ctx, set); err != nil {
		return "", err
	}
	if err := o.ledger.MarkPresent(ctx, model.TypeInjectionJour, date); err != nil {
		return "", err
	}
	o.log.Info("wrote combined injection total",
		"date", date.Format("2006-01-02"), "total", totals["haut"]+totals["bas"])
	return set.Desc.Name, nil
}

// validateDate normalizes and bounds the reporting date. Daily extracts
// describe a finished day, so they stop at yesterday; extraction-dated
// types carry the day the export was pulled and may be today.
func (o *Orchestrator) validateDate(t model.DataType, reportingDate time.Time) (time.Time, error) {
	if reportingDate.IsZero() {
		return time.Time{}, cferrors.New(cferrors.CodeBadDate, "reporting date is required")
	}
	date := model.Date(reportingDate)

	limit := model.Date(o.now()).AddDate(0, 0, -1)
	if t.ExtractionDated() {
		limit = model.Date(o.now())
	}
	if date.After(limit) {
		return time.Time{}, cferrors.New(cferrors.CodeBadDate, "reporting date is in the future").
			WithContext("date", date.Format("2006-01-02")).
			WithContext("limit", limit.Format("2006-01-02"))
	}
	return date, nil
}
