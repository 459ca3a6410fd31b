package storage

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/pcpartshop/storefront/internal/core/domain"
)

// MySQLAdapter implements the catalog, order and user repositories on a
// single MySQL database.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// MySQL error numbers the adapters translate into domain errors.
const (
	erDupEntry        = 1062
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
	erNoReferencedRow = 1452
)

// mapStoreErr turns driver-level failures into domain conditions:
// lock contention becomes the retryable ErrBusy, a failed foreign key
// lookup becomes ErrNotFound.
func mapStoreErr(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case erLockWaitTimeout, erLockDeadlock:
		return domain.ErrBusy
	case erNoReferencedRow:
		return domain.ErrNotFound
	}
	return err
}
