package normalize

import (
	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/extract"
)

// interventionTimestampColumns are parsed day-first; everything else in
// the GMAO export passes through as-is, so the insert column list follows
// the file's own header.
var interventionTimestampColumns = []string{
	"Date/heure de fin de l'intervention",
	"Date initiale de début",
	"Date/heure de début de l'intervention",
	"Date de dernière modification",
}

// interventionsRule handles the maintenance-intervention extract. Rows
// are replaced by intervention code, not by date: a later export updates
// interventions it shares with an earlier one.
type interventionsRule struct{}

func (r *interventionsRule) Type() model.DataType { return model.TypeInterventions }

func (r *interventionsRule) Filename() string { return "Interventions.xlsx" }

func (r *interventionsRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 0)
	if err != nil {
		return nil, err
	}
	required := append([]string{"Code de l'intervention", "Charge prévue"},
		interventionTimestampColumns...)
	if err := tbl.RequireColumns(required...); err != nil {
		return nil, err
	}

	desc := model.TableDescriptor{
		Name:        "Interventions_LTH",
		KeyColumns:  []string{"Code de l'intervention"},
		Columns:     tbl.Header,
		RequireRows: true,
	}

	timestamps := make(map[string]bool, len(interventionTimestampColumns))
	for _, col := range interventionTimestampColumns {
		timestamps[col] = true
	}

	rows := make([]model.Row, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if tbl.Cell(row, "Code de l'intervention") == "" {
			continue
		}
		out := make(model.Row, len(tbl.Header))
		for _, col := range tbl.Header {
			cell := tbl.Cell(row, col)
			switch {
			case timestamps[col]:
				out[col] = timestampOrNil(cell)
			case col == "Charge prévue":
				out[col] = extract.ParseDuration(cell, 86400)
			default:
				out[col] = cell
			}
		}
		rows = append(rows, out)
	}
	if len(rows) == 0 {
		return nil, cferrors.NoRows(desc.Name)
	}

	return []model.RowSet{{Desc: desc, Rows: rows}}, nil
}
