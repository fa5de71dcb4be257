package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openvdm/openvdm-web/internal/syslog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// withTx runs fn inside tx, or inside a transaction of its own when tx is
// nil. An owned transaction is committed when fn succeeds and rolled back
// otherwise; a caller-supplied one is left to the caller.
func (database *Database) withTx(op string, tx *sql.Tx, fn func(tx *sql.Tx) error) (err error) {
	if tx != nil {
		return fn(tx)
	}

	tx, err = database.writeDb.BeginTx(database.ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				syslog.L.Error(fmt.Errorf("%s: failed to rollback transaction: %w", op, rbErr)).Write()
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("%s: failed to commit transaction: %w", op, cErr)
			syslog.L.Error(err).Write()
		}
	}()

	return fn(tx)
}

// InTx runs fn in one transaction so a group of writes lands together or
// not at all.
func (database *Database) InTx(op string, fn func(tx *sql.Tx) error) error {
	return database.withTx(op, nil, fn)
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func int64ToBool(i int64) bool {
	return i != 0
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
