package normalize

import (
	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/extract"
)

// mvtStockRule handles the stock-movement extract. The same movement can
// appear in consecutive daily exports, so rows replace by the full
// movement identity rather than appending.
type mvtStockRule struct{}

func (r *mvtStockRule) Type() model.DataType { return model.TypeMvtStock }

func (r *mvtStockRule) Filename() string { return "Mvt_stock.xlsx" }

func (r *mvtStockRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 0)
	if err != nil {
		return nil, err
	}

	keys := []string{
		"Date et heure du mouvement de stock",
		"Article",
		"Quantité du mouvement",
		"Magasin de stockage",
	}
	required := append([]string{"Date et heure de valorisation stock"}, keys...)
	if err := tbl.RequireColumns(required...); err != nil {
		return nil, err
	}

	desc := model.TableDescriptor{
		Name:        "LTH_MVT_Stock",
		KeyColumns:  keys,
		Columns:     tbl.Header,
		RequireRows: true,
	}

	rows := make([]model.Row, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if tbl.Cell(row, "Article") == "" {
			continue
		}
		out := make(model.Row, len(tbl.Header))
		for _, col := range tbl.Header {
			cell := tbl.Cell(row, col)
			switch col {
			case "Date et heure du mouvement de stock",
				"Date et heure de valorisation stock":
				out[col] = timestampOrNil(cell)
			case "Quantité du mouvement":
				out[col] = numberValue(cell)
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

// inventaireRule handles the stock-state extract, replaced per article
// and warehouse so re-uploads stay idempotent.
type inventaireRule struct{}

func (r *inventaireRule) Type() model.DataType { return model.TypeInventaire }

func (r *inventaireRule) Filename() string { return "Etat_stock.xlsx" }

func (r *inventaireRule) Normalize(ctx Context, content []byte) ([]model.RowSet, error) {
	tbl, err := extract.ReadTable(content, 0)
	if err != nil {
		return nil, err
	}
	if err := tbl.RequireColumns("Article", "Magasin de stockage"); err != nil {
		return nil, err
	}

	desc := model.TableDescriptor{
		Name:        "LTH_Inventaire",
		KeyColumns:  []string{"Article", "Magasin de stockage"},
		Columns:     tbl.Header,
		RequireRows: true,
	}

	rows := make([]model.Row, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if tbl.Cell(row, "Article") == "" {
			continue
		}
		out := make(model.Row, len(tbl.Header))
		for _, col := range tbl.Header {
			out[col] = tbl.Cell(row, col)
		}
		rows = append(rows, out)
	}
	if len(rows) == 0 {
		return nil, cferrors.NoRows(desc.Name)
	}

	return []model.RowSet{{Desc: desc, Rows: rows}}, nil
}
