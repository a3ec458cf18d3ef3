// Package pgrepos implements the domain repositories on PostgreSQL with sqlx.
package pgrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
)

// postgres error codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// uniqueViolation returns the constraint violated by err, if err is a unique violation.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func foreignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation
}

// validUUID reports whether id can be compared to a uuid column.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validUUIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validUUID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

// where accumulates AND-ed conditions written with `?` bind vars.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// in adds a `column IN (...)` condition. An empty list matches nothing.
func (w *where) in(column string, values []string) {
	if len(values) == 0 {
		w.add("false")
		return
	}
	q, args, _ := sqlx.In(column+" IN (?)", values)
	w.add(q, args...)
}

func (w *where) search(term string, columns ...string) {
	if term == "" {
		return
	}
	val := "%" + term + "%"
	ors := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		ors = append(ors, col+" ILIKE ?")
		args = append(args, val)
	}
	w.add("("+strings.Join(ors, " OR ")+")", args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		list = append(list, ord.String())
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

func limitOffset(page core.Pagination) string {
	if page.Limit == 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", page.Limit, page.Offset())
}

// queryPage counts the rows of table matching w, then selects one page of them into dest.
func queryPage(ctx context.Context, db *sqlx.DB, dest interface{}, table string, w *where, order string, page core.Pagination) (int, error) {
	var total int
	if err := db.GetContext(ctx, &total, db.Rebind("SELECT COUNT(*) FROM "+table+w.String()), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting rows")
	}
	q := "SELECT * FROM " + table + w.String() + order + limitOffset(page)
	if err := db.SelectContext(ctx, dest, db.Rebind(q), w.args...); err != nil {
		return 0, errors.Wrap(err, "selecting rows")
	}
	return total, nil
}

// inTx runs fn in a transaction, committed if fn succeeds.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// excluding adds `id NOT IN (...)` for the valid ids among excludedIDs.
func (w *where) excluding(excludedIDs []string) {
	if ids := validUUIDs(excludedIDs); len(ids) > 0 {
		q, args, _ := sqlx.In("id NOT IN (?)", ids)
		w.add(q, args...)
	}
}
