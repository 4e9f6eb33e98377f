package normalize

import (
	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/extract"
)

var poidsCarboneDesc = model.TableDescriptor{
	Name:        "Poids_carbone_LTH",
	KeyColumns:  []string{"Article"},
	Columns:     []string{"Article", "Libellé", "Poids carbone (kgCO2eq)"},
	RequireRows: true,
}

// poidsCarboneRule handles the carbon-weight reference extract. The file
// ships without usable headers, so the three columns are assigned
// positionally.
type poidsCarboneRule struct{}

func (r *poidsCarboneRule) Type() model.DataType { return model.TypePoidsCarbone }

func (r *poidsCarboneRule) Filename() string { return "Poids_carbone.xlsx" }

func (r *poidsCarboneRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 0)
	if err != nil {
		return nil, err
	}
	if len(tbl.Header) < 3 {
		return nil, cferrors.MissingColumn("Poids carbone (kgCO2eq)", tbl.Header)
	}
	tbl.RenameColumn(tbl.Header[0], "Article")
	tbl.RenameColumn(tbl.Header[1], "Libellé")
	tbl.RenameColumn(tbl.Header[2], "Poids carbone (kgCO2eq)")

	rows := make([]model.Row, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if tbl.Cell(row, "Article") == "" {
			continue
		}
		rows = append(rows, model.Row{
			"Article": tbl.Cell(row, "Article"),
			"Libellé": tbl.Cell(row, "Libellé"),
			"Poids carbone (kgCO2eq)": numberValue(
				tbl.Cell(row, "Poids carbone (kgCO2eq)"),
			),
		})
	}
	if len(rows) == 0 {
		return nil, cferrors.NoRows(poidsCarboneDesc.Name)
	}

	return []model.RowSet{{Desc: poidsCarboneDesc, Rows: rows}}, nil
}
