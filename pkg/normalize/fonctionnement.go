package normalize

import (
	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/extract"
)

var fonctionnementDesc = model.TableDescriptor{
	Name:       "LTH_Tmps_fonctionnement",
	KeyColumns: []string{"Date", "Système"},
	Columns: []string{
		"Système",
		"Temps de fonctionnement (s)",
		"Date",
	},
	RequireRows: true,
}

// fonctionnementRule handles the machine running-time extract. The export
// names its columns inconsistently across versions, so the first two kept
// columns are taken positionally.
type fonctionnementRule struct{}

func (r *fonctionnementRule) Type() model.DataType { return model.TypeFonctionnement }

func (r *fonctionnementRule) Filename() string {
	return "Temps_de_fonctionnement_et_arrêts_machine.xlsx"
}

func (r *fonctionnementRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 3)
	if err != nil {
		return nil, err
	}
	if len(tbl.Header) < 2 {
		return nil, cferrors.MissingColumn("Temps de fonctionnement (s)", tbl.Header)
	}
	tbl.RenameColumn(tbl.Header[0], "Système")
	tbl.RenameColumn(tbl.Header[1], "Temps de fonctionnement (s)")

	// Legend blocks follow the data after a blank separator row.
	tbl.TruncateAtEmptyRow()
	tbl.Filter(func(row []string) bool {
		sys := tbl.Cell(row, "Système")
		return sys != "" && sys != "Total"
	})
	if len(tbl.Rows) == 0 {
		return nil, cferrors.NoRows(fonctionnementDesc.Name)
	}

	date := model.Date(ctx.ReportingDate)
	rows := make([]model.Row, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		rows = append(rows, model.Row{
			"Système": tbl.Cell(row, "Système"),
			"Temps de fonctionnement (s)": extract.ParseDuration(
				tbl.Cell(row, "Temps de fonctionnement (s)"), 86400,
			),
			"Date": date,
		})
	}

	return []model.RowSet{{Desc: fonctionnementDesc, Rows: rows}}, nil
}
