// Package store writes normalized row-sets into Postgres with keyed
// replace semantics: delete the incoming keys, then insert the incoming
// rows. Re-running an ingestion therefore converges instead of
// duplicating.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

// Execer is the statement surface the writer needs. *sql.Tx and *sql.DB
// both satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open connects to Postgres through the pgx stdlib driver and verifies
// the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to open database")
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to ping database")
	}
	return db, nil
}

// WithTx runs fn inside a transaction on a dedicated connection,
// committing on success and rolling back on error. Each table write gets
// its own call so a failing table never poisons the others.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to acquire connection")
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return cferrors.Wrap(err, cferrors.CodeStoreQuery, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return cferrors.Wrap(err, cferrors.CodeStoreCommit, "failed to commit transaction")
	}
	return nil
}
