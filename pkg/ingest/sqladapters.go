package ingest

import (
	"context"
	"database/sql"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/store"
)

// SQLTableWriter runs each keyed replace on its own connection and
// transaction, so one table's failure never poisons another's commit.
type SQLTableWriter struct {
	db *sql.DB
	w  *store.Writer
}

// NewSQLTableWriter wraps a database handle and writer.
func NewSQLTableWriter(db *sql.DB, w *store.Writer) *SQLTableWriter {
	return &SQLTableWriter{db: db, w: w}
}

func (s *SQLTableWriter) Write(ctx context.Context, set model.RowSet) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.w.Replace(ctx, tx, set)
	})
}

// SQLWeightSource reads the fault-severity lookup table.
type SQLWeightSource struct {
	db *sql.DB
}

// NewSQLWeightSource creates a weight source over the given database.
func NewSQLWeightSource(db *sql.DB) *SQLWeightSource {
	return &SQLWeightSource{db: db}
}

func (s *SQLWeightSource) FaultWeights(ctx context.Context) (map[string]float64, error) {
	const query = `SELECT "CLE_BOURRAGE", "COEFF" FROM public."Ponderations_Bourrages_LTH"`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to load fault weights")
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var key string
		var coeff float64
		if err := rows.Scan(&key, &coeff); err != nil {
			return nil, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to scan fault weight")
		}
		weights[key] = coeff
	}
	if err := rows.Err(); err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to read fault weights")
	}
	return weights, nil
}
