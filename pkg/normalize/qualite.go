package normalize

import (
	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/extract"
)

var qualiteDesc = model.TableDescriptor{
	Name: "LTH_Qualite_de_tri",
	KeyColumns: []string{
		"Date",
		"Trieur",
		"Tri/contrôle ou rejet",
		"Type de tri/contrôle/rejet",
		"Détail de tri/rejet",
	},
	Columns: []string{
		"Trieur",
		"Tri/contrôle ou rejet",
		"Type de tri/contrôle/rejet",
		"Détail de tri/rejet",
		"Nb total colis",
		"Nb de colis en bac",
		"En pourcentage",
		"Date",
	},
	RequireRows: true,
}

// qualiteRule handles the sorting-quality extract. The export prints the
// grouping columns once per block, so they are filled down before use.
type qualiteRule struct{}

func (r *qualiteRule) Type() model.DataType { return model.TypeQualite }

func (r *qualiteRule) Filename() string { return "Qualité_de_tri.xlsx" }

func (r *qualiteRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 3)
	if err != nil {
		return nil, err
	}
	if err := tbl.RequireColumns(
		"Trieur",
		"Tri/contrôle ou rejet",
		"Type de tri/contrôle/rejet",
		"Détail de tri/rejet",
		"Nb total colis",
		"Nb de colis en bac",
		"En pourcentage",
	); err != nil {
		return nil, err
	}

	tbl.ForwardFill("Trieur", "Tri/contrôle ou rejet", "Type de tri/contrôle/rejet")
	tbl.Filter(func(row []string) bool {
		return tbl.Cell(row, "Détail de tri/rejet") != ""
	})
	if len(tbl.Rows) == 0 {
		return nil, cferrors.NoRows(qualiteDesc.Name)
	}

	date := model.Date(ctx.ReportingDate)
	rows := make([]model.Row, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out := make(model.Row, len(qualiteDesc.Columns))
		for _, col := range qualiteDesc.Columns {
			switch col {
			case "Date":
				out[col] = date
			case "Nb total colis", "Nb de colis en bac", "En pourcentage":
				out[col] = numberValue(tbl.Cell(row, col))
			default:
				out[col] = tbl.Cell(row, col)
			}
		}
		rows = append(rows, out)
	}

	return []model.RowSet{{Desc: qualiteDesc, Rows: rows}}, nil
}
