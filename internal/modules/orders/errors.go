package orders

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotActionable     = errors.New("order not actionable")
)

// IsDuplicate reports whether err is a MySQL unique-key violation (1062),
// e.g. a second order insert for the same provider payment id.
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
