package normalize

import (
	"fmt"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/extract"
)

var traficDesc = model.TableDescriptor{
	Name:       "LTH_Trafic_par_sortie",
	KeyColumns: []string{"Date", "Trieur", "Sortie"},
	Columns: []string{
		"Trieur",
		"Sortie",
		"Nb total de colis",
		"Nb de colis en bac",
		"Type de sortie",
		"Rejet Saturation/CP Absent/Mal positionné",
		"Rejet sortie inhibée/fermée",
		"Nb Saturation",
		"Tps Saturation",
		"Nb Bourrage",
		"Tps Bourrage",
		"Date",
	},
	RequireRows: true,
}

// traficRule handles the per-exit traffic extract of one sorter. The file
// mixes both sorters; only the submitted sorter's rows are kept.
type traficRule struct {
	sorter string // "haut" or "bas"
}

func (r *traficRule) Type() model.DataType {
	if r.sorter == "haut" {
		return model.TypeTraficHaut
	}
	return model.TypeTraficBas
}

func (r *traficRule) Filename() string {
	return fmt.Sprintf("Trafic_par_sortie_trieur_%s.xlsx", r.sorter)
}

func (r *traficRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 6)
	if err != nil {
		return nil, err
	}
	if err := tbl.RequireColumns("Trieur", "Sortie"); err != nil {
		return nil, err
	}

	wanted := "Trieur " + r.sorter
	tbl.Filter(func(row []string) bool {
		return tbl.Cell(row, "Trieur") == wanted
	})
	if len(tbl.Rows) == 0 {
		return nil, cferrors.NoRows(traficDesc.Name)
	}

	date := model.Date(ctx.ReportingDate)
	rows := make([]model.Row, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out := make(model.Row, len(traficDesc.Columns))
		for _, col := range traficDesc.Columns {
			switch col {
			case "Date":
				out[col] = date
			case "Trieur", "Sortie", "Type de sortie", "Tps Saturation":
				out[col] = tbl.Cell(row, col)
			case "Tps Bourrage":
				out[col] = extract.ParseDuration(tbl.Cell(row, col), 0)
			default:
				out[col] = numberValue(tbl.Cell(row, col))
			}
		}
		rows = append(rows, out)
	}

	return []model.RowSet{{Desc: traficDesc, Rows: rows}}, nil
}
