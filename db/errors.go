package db

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

const mysqlDupEntryCode = 1062

// IsDupKeyErr reports whether err is a MySQL duplicate-key violation. The flag
// ledger relies on it for per-user idempotency.
func IsDupKeyErr(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDupEntryCode
}
