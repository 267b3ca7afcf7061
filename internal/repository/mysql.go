package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (ER_DUP_ENTRY, 1062). Uniqueness constraints are the final defense for
// usernames, firm names, coupon codes and the active-seat key, so several
// repositories need this check.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
