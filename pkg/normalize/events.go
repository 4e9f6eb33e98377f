package normalize

import (
	"sort"
	"strings"
	"time"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/extract"
)

// Descriptors for the three tables fed by the events extract. The raw
// event rows, the jam/IOB fault aggregate, and the severity-weighted
// daily total.
var (
	evtDefautsDesc = model.TableDescriptor{
		Name:       "LTH_Evt_defauts",
		KeyColumns: []string{"Date"},
		Columns: []string{
			"Date heure de début",
			"Date heure de fin",
			"Machine",
			"Message",
			"Date",
		},
		RequireRows: true,
	}

	faultAggregateDesc = model.TableDescriptor{
		Name:       "OPB_Bourrage_LTH",
		KeyColumns: []string{"Date", "Type"},
		Columns:    []string{"Date", "Type", "Duree", "Nombre de défauts"},
	}

	weightedFaultDesc = model.TableDescriptor{
		Name:       "OPB_LTH",
		KeyColumns: []string{"Date"},
		Columns:    []string{"Date", "Duree_ponderee"},
	}
)

// eventsRule handles the "Evenements et defauts" extract. Beyond the raw
// event table it derives two fault aggregates, so a single submission can
// emit up to three row-sets.
type eventsRule struct{}

func (r *eventsRule) Type() model.DataType { return model.TypeEvents }

func (r *eventsRule) Filename() string { return "Evenementsetdefauts.xlsx" }

type eventRow struct {
	start   time.Time
	end     time.Time
	machine string
	message string
	rawStart, rawEnd string
}

func (r *eventsRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 5)
	if err != nil {
		return nil, err
	}
	if err := tbl.RequireColumns(
		"Date heure de début", "Date heure de fin", "Machine", "Message",
	); err != nil {
		return nil, err
	}

	// Closing markers mirror an opening event and would double-count.
	var events []eventRow
	for _, row := range tbl.Rows {
		msg := tbl.Cell(row, "Message")
		if msg == "" || strings.HasPrefix(msg, "Fin :") {
			continue
		}
		ev := eventRow{
			machine:  tbl.Cell(row, "Machine"),
			message:  msg,
			rawStart: tbl.Cell(row, "Date heure de début"),
			rawEnd:   tbl.Cell(row, "Date heure de fin"),
		}
		ev.start, _ = extract.ParseTimestamp(ev.rawStart)
		ev.end, _ = extract.ParseTimestamp(ev.rawEnd)
		events = append(events, ev)
	}
	if len(events) == 0 {
		return nil, cferrors.NoRows(evtDefautsDesc.Name)
	}

	// The file carries its own day; a mismatch with the submitted date
	// means the operator picked the wrong file.
	fileDate := time.Time{}
	for _, ev := range events {
		if !ev.start.IsZero() {
			fileDate = model.Date(ev.start)
			break
		}
	}
	if fileDate.IsZero() {
		return nil, cferrors.NoRows(evtDefautsDesc.Name)
	}
	if !fileDate.Equal(model.Date(ctx.ReportingDate)) {
		return nil, cferrors.DateMismatch(
			ctx.ReportingDate.Format("2006-01-02"),
			fileDate.Format("2006-01-02"),
		)
	}

	date := model.Date(ctx.ReportingDate)
	raw := make([]model.Row, 0, len(events))
	for _, ev := range events {
		raw = append(raw, model.Row{
			"Date heure de début": timestampValue(ev.start, ev.rawStart),
			"Date heure de fin":   timestampValue(ev.end, ev.rawEnd),
			"Machine":             ev.machine,
			"Message":             ev.message,
			"Date":                date,
		})
	}

	sets := []model.RowSet{{Desc: evtDefautsDesc, Rows: raw}}

	if agg := aggregateFaults(events, date); len(agg) > 0 {
		sets = append(sets, model.RowSet{Desc: faultAggregateDesc, Rows: agg})
	}
	if weighted := weightFaults(events, ctx.FaultWeights, date); len(weighted) > 0 {
		sets = append(sets, model.RowSet{Desc: weightedFaultDesc, Rows: weighted})
	}
	return sets, nil
}

func timestampValue(parsed time.Time, raw string) any {
	if parsed.IsZero() {
		if raw == "" {
			return nil
		}
		return raw
	}
	return parsed
}

// aggregateFaults sums jam and IOB fault hours per day and fault type.
// A message naming both is counted as IOB, matching the historical data.
func aggregateFaults(events []eventRow, date time.Time) []model.Row {
	type bucket struct {
		hours float64
		count int64
	}
	buckets := make(map[string]*bucket)
	for _, ev := range events {
		var typ string
		if strings.Contains(ev.message, "Bourrage") {
			typ = "Bourrage"
		}
		if strings.Contains(ev.message, "Erreur IOB") {
			typ = "IOB"
		}
		if typ == "" {
			continue
		}
		b := buckets[typ]
		if b == nil {
			b = &bucket{}
			buckets[typ] = b
		}
		b.hours += durationHours(ev)
		b.count++
	}

	types := make([]string, 0, len(buckets))
	for typ := range buckets {
		types = append(types, typ)
	}
	sort.Strings(types)

	rows := make([]model.Row, 0, len(buckets))
	for _, typ := range types {
		b := buckets[typ]
		rows = append(rows, model.Row{
			"Date":              date,
			"Type":              typ,
			"Duree":             b.hours,
			"Nombre de défauts": b.count,
		})
	}
	return rows
}

// weightFaults sums coefficient-weighted fault hours per day. Only
// messages present in the weighting lookup participate; no match means
// no row, a day without weighted faults writes nothing.
func weightFaults(events []eventRow, weights map[string]float64, date time.Time) []model.Row {
	var total float64
	matched := false
	for _, ev := range events {
		coeff, ok := weights[ev.message]
		if !ok {
			continue
		}
		matched = true
		total += durationHours(ev) * coeff
	}
	if !matched {
		return nil
	}
	return []model.Row{{
		"Date":           date,
		"Duree_ponderee": total,
	}}
}

func durationHours(ev eventRow) float64 {
	if ev.start.IsZero() || ev.end.IsZero() {
		return 0
	}
	return ev.end.Sub(ev.start).Hours()
}
