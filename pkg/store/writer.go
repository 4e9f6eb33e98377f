package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

const (
	// deleteChunkSize bounds the key tuples per DELETE statement.
	deleteChunkSize = 100

	// insertChunkSize bounds the rows per INSERT statement, keeping the
	// placeholder count well under the protocol limit.
	insertChunkSize = 500
)

// Writer performs keyed replaces. It holds no connection of its own; the
// caller passes the transaction so commit scope stays with the caller.
type Writer struct {
	log *slog.Logger
}

// NewWriter creates a writer.
func NewWriter(log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{log: log}
}

// Replace deletes every row matching the set's key tuples and inserts
// the set's rows, all through the given transaction. A delete against a
// table that does not exist yet is ignored; the insert will surface any
// real problem.
func (w *Writer) Replace(ctx context.Context, tx Execer, set model.RowSet) error {
	desc := set.Desc
	if len(set.Rows) == 0 {
		if desc.RequireRows {
			return cferrors.NoRows(desc.Name)
		}
		return nil
	}

	tuples, err := distinctKeyTuples(desc, set.Rows)
	if err != nil {
		return err
	}

	w.log.Debug("replacing rows",
		"table", desc.Name,
		"rows", len(set.Rows),
		"keys", len(tuples))

	for start := 0; start < len(tuples); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(tuples) {
			end = len(tuples)
		}
		missing, err := w.deleteChunk(ctx, tx, desc, tuples[start:end])
		if err != nil {
			return err
		}
		if missing {
			break
		}
	}

	for start := 0; start < len(set.Rows); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(set.Rows) {
			end = len(set.Rows)
		}
		if err := w.insertChunk(ctx, tx, desc, set.Rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// distinctKeyTuples extracts the unique key tuples in first-seen order,
// rejecting any row with an incomplete key.
func distinctKeyTuples(desc model.TableDescriptor, rows []model.Row) ([][]any, error) {
	seen := make(map[string]struct{}, len(rows))
	tuples := make([][]any, 0, len(rows))
	for i, row := range rows {
		tuple, ok := desc.KeyTuple(row)
		if !ok {
			return nil, cferrors.New(cferrors.CodeStoreWrite, "row has incomplete key").
				WithContext("table", desc.Name).
				WithContext("row", i)
		}
		fp := fmt.Sprintf("%v", tuple)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		tuples = append(tuples, tuple)
	}
	return tuples, nil
}

// deleteChunk deletes one batch of key tuples. It reports missing=true
// when the table does not exist yet, so the caller skips the remaining
// batches and lets the insert create the first rows.
func (w *Writer) deleteChunk(ctx context.Context, tx Execer, desc model.TableDescriptor, tuples [][]any) (missing bool, err error) {
	cols := make([]string, len(desc.KeyColumns))
	for i, col := range desc.KeyColumns {
		cols[i] = quoteIdent(col)
	}

	placeholders := make([]string, len(tuples))
	args := make([]any, 0, len(tuples)*len(desc.KeyColumns))
	n := 1
	for i, tuple := range tuples {
		slots := make([]string, len(tuple))
		for j, v := range tuple {
			slots[j] = fmt.Sprintf("$%d", n)
			args = append(args, v)
			n++
		}
		placeholders[i] = "(" + strings.Join(slots, ", ") + ")"
	}

	query := fmt.Sprintf(
		`DELETE FROM %s WHERE (%s) IN (%s)`,
		qualifiedName(desc),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)

	// Postgres marks the whole transaction failed after any statement
	// error, so the delete runs under a savepoint; a 42P01 undefined_table
	// (first write of a brand-new table) rolls back to it and the insert
	// still goes through.
	if _, err := tx.ExecContext(ctx, "SAVEPOINT keyed_delete"); err != nil {
		return false, cferrors.Wrap(err, cferrors.CodeStoreWrite, "failed to set savepoint").
			WithContext("table", desc.Name)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT keyed_delete"); rbErr != nil {
				return false, cferrors.Wrap(rbErr, cferrors.CodeStoreWrite, "failed to roll back savepoint").
					WithContext("table", desc.Name)
			}
			w.log.Debug("delete skipped, table does not exist", "table", desc.Name)
			return true, nil
		}
		return false, cferrors.Wrap(err, cferrors.CodeStoreWrite, "failed to delete existing rows").
			WithContext("table", desc.Name)
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT keyed_delete"); err != nil {
		return false, cferrors.Wrap(err, cferrors.CodeStoreWrite, "failed to release savepoint").
			WithContext("table", desc.Name)
	}
	return false, nil
}

func (w *Writer) insertChunk(ctx context.Context, tx Execer, desc model.TableDescriptor, rows []model.Row) error {
	cols := make([]string, len(desc.Columns))
	for i, col := range desc.Columns {
		cols[i] = quoteIdent(col)
	}

	builder := sq.Insert(qualifiedName(desc)).
		Columns(cols...).
		PlaceholderFormat(sq.Dollar)
	for _, row := range rows {
		values := make([]any, len(desc.Columns))
		for i, col := range desc.Columns {
			values[i] = row[col]
		}
		builder = builder.Values(values...)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return cferrors.Wrap(err, cferrors.CodeStoreWrite, "failed to build insert").
			WithContext("table", desc.Name)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return cferrors.Wrap(err, cferrors.CodeStoreWrite, "failed to insert rows").
			WithContext("table", desc.Name)
	}
	return nil
}

// qualifiedName quotes a schema-qualified table name. The table names
// carry accents and mixed case, so quoting is not optional.
func qualifiedName(desc model.TableDescriptor) string {
	schema := desc.Schema
	if schema == "" {
		schema = "public"
	}
	return quoteIdent(schema) + "." + quoteIdent(desc.Name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
