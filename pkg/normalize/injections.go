package normalize

import (
	"fmt"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/extract"
)

var injectionsDesc = model.TableDescriptor{
	Name:       "LTH_Injections_Antennes",
	KeyColumns: []string{"Date", "Antenne"},
	Columns: []string{
		"Antenne",
		"Colis codés",
		"Colis poussés",
		"Flashage pistolet",
		"Colis inadmis",
		"Rejets non lu",
		"Pourcentage Rejets non lu",
		"Multilabels",
		"Pourcentage Multilabel",
		"Total injecté",
		"Temps d'utilisation",
		"Cadence en fonctionnement",
		"Date",
	},
	RequireRows: true,
}

// InjectionJourDesc is the combined daily total derived from both sorter
// files, written by the orchestrator once both siblings are present.
var InjectionJourDesc = model.TableDescriptor{
	Name:       "Injection_par_jour_LTH",
	KeyColumns: []string{"Date"},
	Columns:    []string{"Date", "nombre de colis injectés"},
}

// injectionsRule handles the per-antenna injection extract of one sorter.
type injectionsRule struct {
	sorter string // "haut" or "bas"
}

func (r *injectionsRule) Type() model.DataType {
	if r.sorter == "haut" {
		return model.TypeInjectionHaut
	}
	return model.TypeInjectionBas
}

func (r *injectionsRule) Filename() string {
	return fmt.Sprintf("Injectiondescolisauxantennes_trieur_%s.xlsx", r.sorter)
}

func (r *injectionsRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 0)
	if err != nil {
		return nil, err
	}

	// The export wraps two headers across a line break.
	tbl.RenameColumn("Rejets\nnon lu", "Rejets non lu")
	tbl.RenameColumn("Pourcentage\nRejets non lu", "Pourcentage Rejets non lu")

	// The raw export has no Date column; the submitted reporting date is
	// stamped on every row below.
	for _, col := range injectionsDesc.Columns {
		if col == "Date" {
			continue
		}
		if err := tbl.RequireColumns(col); err != nil {
			return nil, err
		}
	}

	// An empty Antenne marks the footer totals, not a data row.
	tbl.Filter(func(row []string) bool {
		return tbl.Cell(row, "Antenne") != ""
	})
	if len(tbl.Rows) == 0 {
		return nil, cferrors.NoRows(injectionsDesc.Name)
	}

	date := model.Date(ctx.ReportingDate)
	rows := make([]model.Row, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out := make(model.Row, len(injectionsDesc.Columns))
		for _, col := range injectionsDesc.Columns {
			switch col {
			case "Antenne", "Temps d'utilisation":
				out[col] = tbl.Cell(row, col)
			case "Date":
				out[col] = date
			default:
				out[col] = numberValue(tbl.Cell(row, col))
			}
		}
		rows = append(rows, out)
	}

	return []model.RowSet{{Desc: injectionsDesc, Rows: rows}}, nil
}

// TotalInjected extracts the "Total injecté" figure from a sorter's
// injection file: the value on the footer row whose Trieur cell reads
// "Total". A missing or non-numeric total means the export is truncated.
func TotalInjected(sorter string, content []byte) (int64, error) {
	tbl, err := extract.ReadTable(content, 0)
	if err != nil {
		return 0, err
	}
	if err := tbl.RequireColumns("Trieur", "Total injecté"); err != nil {
		return 0, cferrors.BadTotal(sorter, "")
	}
	for _, row := range tbl.Rows {
		if tbl.Cell(row, "Trieur") != "Total" {
			continue
		}
		raw := tbl.Cell(row, "Total injecté")
		v, ok := extract.ParseInt(raw)
		if !ok {
			return 0, cferrors.BadTotal(sorter, raw)
		}
		return v, nil
	}
	return 0, cferrors.BadTotal(sorter, "")
}
