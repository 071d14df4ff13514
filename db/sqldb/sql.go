package sqldb

import (
	"context"
	"database/sql"
	"strings"

	db2 "github.com/nutriscan/nutriscan-be/db"
	"github.com/upper/db/v4"
)

// execTx runs a single write in its own transaction. A failed insert is rolled
// back before the connection goes back to the pool, which matters on sqlite
// where the pool holds one connection.
func execTx(ctx context.Context, sess db.Session, fn func(tx db.Session) (sql.Result, error)) (sql.Result, error) {
	var res sql.Result
	err := sess.TxContext(ctx, func(tx db.Session) error {
		var err error
		res, err = fn(tx)
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// requireAffected maps an update or delete that matched nothing to db.ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db2.ErrNotFound
	}
	return nil
}

// conditions collects WHERE fragments joined with AND.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, "("+clause+")")
	c.args = append(c.args, args...)
}

func (c *conditions) empty() bool {
	return len(c.clauses) == 0
}

func (c *conditions) where() []interface{} {
	return append([]interface{}{strings.Join(c.clauses, " AND ")}, c.args...)
}

// assignments collects "column = ?" pairs for an UPDATE.
type assignments struct {
	columns []string
	args    []interface{}
}

func (a *assignments) add(column string, value interface{}) {
	a.columns = append(a.columns, column+" = ?")
	a.args = append(a.args, value)
}

func (a *assignments) set() []interface{} {
	return append([]interface{}{strings.Join(a.columns, ", ")}, a.args...)
}
