package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

type execCall struct {
	query string
	args  []any
}

// fakeExecer records statements and can fail selectively.
type fakeExecer struct {
	calls  []execCall
	failOn func(query string) error
}

func (f *fakeExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: query, args: args})
	if f.failOn != nil {
		if err := f.failOn(query); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (f *fakeExecer) deletes() []execCall {
	var out []execCall
	for _, c := range f.calls {
		if strings.HasPrefix(c.query, "DELETE") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeExecer) inserts() []execCall {
	var out []execCall
	for _, c := range f.calls {
		if strings.HasPrefix(c.query, "INSERT") {
			out = append(out, c)
		}
	}
	return out
}

var testDesc = model.TableDescriptor{
	Name:       "LTH_Injections_Antennes",
	KeyColumns: []string{"Date", "Antenne"},
	Columns:    []string{"Antenne", "Total injecté", "Date"},
}

func makeRows(n int) []model.Row {
	date := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	rows := make([]model.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, model.Row{
			"Antenne":       fmt.Sprintf("A%03d", i),
			"Total injecté": float64(i),
			"Date":          date,
		})
	}
	return rows
}

func TestReplaceDeleteChunking(t *testing.T) {
	tests := []struct {
		rows        int
		wantDeletes int
		lastChunk   int
	}{
		{99, 1, 99},
		{100, 1, 100},
		{101, 2, 1},
		{250, 3, 50},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d rows", tt.rows), func(t *testing.T) {
			fake := &fakeExecer{}
			w := NewWriter(nil)
			err := w.Replace(context.Background(), fake, model.RowSet{
				Desc: testDesc,
				Rows: makeRows(tt.rows),
			})
			require.NoError(t, err)

			deletes := fake.deletes()
			require.Len(t, deletes, tt.wantDeletes)

			// Each tuple contributes one arg per key column.
			last := deletes[len(deletes)-1]
			assert.Len(t, last.args, tt.lastChunk*len(testDesc.KeyColumns))
			assert.Contains(t, last.query, `"public"."LTH_Injections_Antennes"`)
			assert.Contains(t, last.query, `("Date", "Antenne") IN`)
		})
	}
}

func TestReplaceInsertsAllRows(t *testing.T) {
	fake := &fakeExecer{}
	w := NewWriter(nil)
	err := w.Replace(context.Background(), fake, model.RowSet{
		Desc: testDesc,
		Rows: makeRows(3),
	})
	require.NoError(t, err)

	inserts := fake.inserts()
	require.Len(t, inserts, 1)
	assert.Contains(t, inserts[0].query, `INSERT INTO "public"."LTH_Injections_Antennes"`)
	assert.Contains(t, inserts[0].query, `"Total injecté"`)
	assert.Len(t, inserts[0].args, 3*len(testDesc.Columns))
	assert.Equal(t, "A000", inserts[0].args[0])
}

func TestReplaceInsertChunking(t *testing.T) {
	fake := &fakeExecer{}
	w := NewWriter(nil)
	err := w.Replace(context.Background(), fake, model.RowSet{
		Desc: testDesc,
		Rows: makeRows(750),
	})
	require.NoError(t, err)
	assert.Len(t, fake.inserts(), 2)
}

func TestReplaceIsRepeatable(t *testing.T) {
	// The same row-set twice must produce identical statements: the
	// second run deletes what the first inserted.
	w := NewWriter(nil)
	set := model.RowSet{Desc: testDesc, Rows: makeRows(5)}

	first := &fakeExecer{}
	require.NoError(t, w.Replace(context.Background(), first, set))
	second := &fakeExecer{}
	require.NoError(t, w.Replace(context.Background(), second, set))

	assert.Equal(t, first.calls, second.calls)
}

func TestReplaceDistinctKeys(t *testing.T) {
	date := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	rows := []model.Row{
		{"Antenne": "A01", "Total injecté": 1.0, "Date": date},
		{"Antenne": "A01", "Total injecté": 2.0, "Date": date},
		{"Antenne": "A02", "Total injecté": 3.0, "Date": date},
	}

	fake := &fakeExecer{}
	w := NewWriter(nil)
	require.NoError(t, w.Replace(context.Background(), fake, model.RowSet{
		Desc: testDesc,
		Rows: rows,
	}))

	deletes := fake.deletes()
	require.Len(t, deletes, 1)
	// Two distinct keys, not three.
	assert.Len(t, deletes[0].args, 2*len(testDesc.KeyColumns))
	// All three rows still inserted.
	assert.Len(t, fake.inserts()[0].args, 3*len(testDesc.Columns))
}

func TestReplaceIncompleteKey(t *testing.T) {
	rows := []model.Row{
		{"Antenne": "", "Total injecté": 1.0, "Date": time.Now()},
	}

	fake := &fakeExecer{}
	w := NewWriter(nil)
	err := w.Replace(context.Background(), fake, model.RowSet{Desc: testDesc, Rows: rows})
	require.Error(t, err)
	assert.True(t, cferrors.IsCode(err, cferrors.CodeStoreWrite))
	assert.Empty(t, fake.calls, "nothing may reach the store on a bad key")
}

func TestReplaceEmptySet(t *testing.T) {
	w := NewWriter(nil)

	fake := &fakeExecer{}
	err := w.Replace(context.Background(), fake, model.RowSet{Desc: testDesc})
	require.NoError(t, err)
	assert.Empty(t, fake.calls)

	strict := testDesc
	strict.RequireRows = true
	err = w.Replace(context.Background(), fake, model.RowSet{Desc: strict})
	assert.True(t, cferrors.IsCode(err, cferrors.CodeNoRows))
}

func TestReplaceSwallowsMissingTable(t *testing.T) {
	fake := &fakeExecer{
		failOn: func(query string) error {
			if strings.HasPrefix(query, "DELETE") {
				return &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
			}
			return nil
		},
	}

	w := NewWriter(nil)
	err := w.Replace(context.Background(), fake, model.RowSet{
		Desc: testDesc,
		Rows: makeRows(2),
	})
	require.NoError(t, err)
	require.Len(t, fake.inserts(), 1, "insert must still run")

	// The failed delete must be rolled back to its savepoint before the
	// insert, or the server rejects every later statement with 25P02.
	var rollbackAt, insertAt = -1, -1
	for i, c := range fake.calls {
		switch {
		case strings.HasPrefix(c.query, "ROLLBACK TO SAVEPOINT"):
			rollbackAt = i
		case strings.HasPrefix(c.query, "INSERT") && insertAt < 0:
			insertAt = i
		}
	}
	require.GreaterOrEqual(t, rollbackAt, 0, "missing-table delete must roll back its savepoint")
	assert.Less(t, rollbackAt, insertAt)
}

func TestReplaceMissingTableStopsDeleteBatches(t *testing.T) {
	fake := &fakeExecer{
		failOn: func(query string) error {
			if strings.HasPrefix(query, "DELETE") {
				return &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
			}
			return nil
		},
	}

	w := NewWriter(nil)
	err := w.Replace(context.Background(), fake, model.RowSet{
		Desc: testDesc,
		Rows: makeRows(250),
	})
	require.NoError(t, err)
	assert.Len(t, fake.deletes(), 1, "no point retrying batches against an absent table")
	assert.Len(t, fake.inserts(), 1)
}

func TestReplaceReleasesSavepoints(t *testing.T) {
	fake := &fakeExecer{}
	w := NewWriter(nil)
	require.NoError(t, w.Replace(context.Background(), fake, model.RowSet{
		Desc: testDesc,
		Rows: makeRows(250),
	}))

	var savepoints, releases int
	for _, c := range fake.calls {
		switch {
		case strings.HasPrefix(c.query, "SAVEPOINT"):
			savepoints++
		case strings.HasPrefix(c.query, "RELEASE SAVEPOINT"):
			releases++
		}
	}
	assert.Equal(t, 3, savepoints, "one savepoint per delete batch")
	assert.Equal(t, savepoints, releases)
}

func TestReplacePropagatesOtherErrors(t *testing.T) {
	fake := &fakeExecer{
		failOn: func(query string) error {
			if strings.HasPrefix(query, "DELETE") {
				return &pgconn.PgError{Code: "42501", Message: "permission denied"}
			}
			return nil
		},
	}

	w := NewWriter(nil)
	err := w.Replace(context.Background(), fake, model.RowSet{
		Desc: testDesc,
		Rows: makeRows(2),
	})
	require.Error(t, err)
	assert.True(t, cferrors.IsCode(err, cferrors.CodeStoreWrite))
	assert.Empty(t, fake.inserts(), "insert must not run after a failed delete")
}
