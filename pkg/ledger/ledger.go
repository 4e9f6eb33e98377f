// Package ledger tracks which (site, type, date) extracts have been
// ingested, in the Dates_data table. The ledger is append-only: marking a
// date twice is harmless, readers deduplicate.
package ledger

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/colisflow/colisflow/internal/model"
	"github.com/colisflow/colisflow/pkg/calendar"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

// historyStart is the first date the facility reported data. Nothing
// before it is ever considered missing.
var historyStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// Ledger reads and writes the Dates_data completeness table.
type Ledger struct {
	db     *sql.DB
	site   string
	cal    *calendar.Calendar
	epochs map[model.DataType]time.Time
	log    *slog.Logger
}

// New creates a ledger for one site. The epochs map supplies per-type
// fallback dates for LastDate when a type has no marks yet; missing
// entries fall back to DefaultEpochs.
func New(db *sql.DB, site string, cal *calendar.Calendar, epochs map[model.DataType]time.Time, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	merged := DefaultEpochs()
	for t, d := range epochs {
		merged[t] = d
	}
	return &Ledger{db: db, site: site, cal: cal, epochs: merged, log: log}
}

// DefaultEpochs returns the per-type dates ingestion history starts at.
func DefaultEpochs() map[model.DataType]time.Time {
	def := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	epochs := make(map[model.DataType]time.Time, len(model.AllTypes()))
	for _, t := range model.AllTypes() {
		epochs[t] = def
	}
	epochs[model.TypeInventaire] = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	epochs[model.TypeInterventions] = time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)
	epochs[model.TypeMvtStock] = time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)
	return epochs
}

// MarkPresent records one ingested (type, date) pair.
func (l *Ledger) MarkPresent(ctx context.Context, t model.DataType, date time.Time) error {
	const query = `INSERT INTO public."Dates_data" ("Site", "Data_type", "Date") VALUES ($1, $2, $3)`
	if _, err := l.db.ExecContext(ctx, query, l.site, string(t), model.Date(date)); err != nil {
		return cferrors.Wrap(err, cferrors.CodeStoreWrite, "failed to mark date").
			WithContext("type", string(t)).
			WithContext("date", date.Format("2006-01-02"))
	}
	l.log.Info("marked date present", "type", string(t), "date", date.Format("2006-01-02"))
	return nil
}

// LastDate returns the most recent ingested date for a type, or the
// type's epoch when nothing was ingested yet.
func (l *Ledger) LastDate(ctx context.Context, t model.DataType) (time.Time, error) {
	const query = `SELECT MAX("Date") FROM public."Dates_data" WHERE "Site" = $1 AND "Data_type" = $2`

	var last sql.NullTime
	if err := l.db.QueryRowContext(ctx, query, l.site, string(t)).Scan(&last); err != nil {
		return time.Time{}, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to query last date").
			WithContext("type", string(t))
	}
	if !last.Valid {
		return l.EpochFor(t), nil
	}
	return model.Date(last.Time), nil
}

// EpochFor returns the fallback start date for a type.
func (l *Ledger) EpochFor(t model.DataType) time.Time {
	if epoch, ok := l.epochs[t]; ok {
		return epoch
	}
	return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
}

// MarkedDates returns the distinct ingested dates for a type.
func (l *Ledger) MarkedDates(ctx context.Context, t model.DataType) ([]time.Time, error) {
	const query = `SELECT DISTINCT "Date" FROM public."Dates_data" WHERE "Site" = $1 AND "Data_type" = $2`

	rows, err := l.db.QueryContext(ctx, query, l.site, string(t))
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to query marked dates").
			WithContext("type", string(t))
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to scan date")
		}
		dates = append(dates, model.Date(d))
	}
	if err := rows.Err(); err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to read marked dates")
	}
	return dates, nil
}

// MissingDates returns the reporting days with no ingested extract for a
// type, most recent first. Limit 0 returns everything.
func (l *Ledger) MissingDates(ctx context.Context, t model.DataType, now time.Time, limit int) ([]time.Time, error) {
	marked, err := l.MarkedDates(ctx, t)
	if err != nil {
		return nil, err
	}
	yesterday := model.Date(now).AddDate(0, 0, -1)
	expected := l.cal.ExpectedDates(historyStart, yesterday)
	return ComputeMissing(expected, marked, limit), nil
}

// ComputeMissing is the pure difference: expected dates not present in
// marked, descending, truncated to limit when limit > 0.
func ComputeMissing(expected, marked []time.Time, limit int) []time.Time {
	present := make(map[time.Time]struct{}, len(marked))
	for _, d := range marked {
		present[model.Date(d)] = struct{}{}
	}

	var missing []time.Time
	for i := len(expected) - 1; i >= 0; i-- {
		d := model.Date(expected[i])
		if d.Before(historyStart) {
			continue
		}
		if _, ok := present[d]; ok {
			continue
		}
		missing = append(missing, d)
		if limit > 0 && len(missing) == limit {
			break
		}
	}
	return missing
}
