// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cblms/core"
)

// withTx runs fn in a transaction, committed when fn returns nil and rolled back otherwise.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		// a rollback failing for another reason than a cancelled context leaves the database in an unknown state
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return core.NewShutdownError(fmt.Sprintf("rolling back transaction: %v (after: %v)", rbErr, err))
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

const pqInvalidTextRepresentation = "22P02"

// notFound turns sql.ErrNoRows into notFoundErr. So does a malformed id, which no row can match.
func notFound(err, notFoundErr error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation {
		return notFoundErr
	}
	return err
}

func newID() string {
	return uuid.New().String()
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
