package store

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Direction of an ORDER BY key.
type Direction bool

const (
	Asc  Direction = false
	Desc Direction = true
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Op is a comparison operator accepted by Query.Where.
type Op string

const (
	Eq  Op = "="
	Ne  Op = "<>"
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

func (o Op) valid() bool {
	switch o {
	case Eq, Ne, Lt, Lte, Gt, Gte:
		return true
	}
	return false
}

const identityTable = "users"

var schemaCache sync.Map

type identityJoin struct {
	alias string
	fk    string
}

type predicate struct {
	column string
	op     Op
	value  any
	isNull bool
}

type ordering struct {
	column string
	dir    Direction
}

// Query describes one SELECT over a base table, joined with the identity of
// the users referenced by the row. It is an immutable value: every refinement
// returns a copy. Rows are scanned into T, which embeds the base model and
// carries <alias>_username / <alias>_nickname columns for each identity join.
//
// Unknown columns, duplicate aliases and unsupported operators panic.
type Query[T any] struct {
	table   string
	columns map[string]struct{}
	joins   []identityJoin
	where   []predicate
	orders  []ordering
	limit   int
}

// From starts a query over the table backing model.
func From[T any](model any) Query[T] {
	s, err := schema.Parse(model, &schemaCache, schema.NamingStrategy{})
	if err != nil {
		panic(fmt.Sprintf("store: cannot parse model %T: %v", model, err))
	}
	cols := make(map[string]struct{}, len(s.DBNames))
	for _, n := range s.DBNames {
		cols[n] = struct{}{}
	}
	return Query[T]{table: s.Table, columns: cols}
}

func (q Query[T]) mustColumn(col string) {
	if _, ok := q.columns[col]; !ok {
		panic(fmt.Sprintf("store: unknown column %q on %s", col, q.table))
	}
}

// WithIdentity joins the user referenced by fk under alias. Soft-deleted
// users do not join, so their rows drop out like they do for Users.Get.
func (q Query[T]) WithIdentity(alias, fk string) Query[T] {
	q.mustColumn(fk)
	if alias == "" || alias == q.table {
		panic(fmt.Sprintf("store: invalid identity alias %q", alias))
	}
	for _, j := range q.joins {
		if j.alias == alias {
			panic(fmt.Sprintf("store: duplicate identity alias %q", alias))
		}
	}
	q.joins = append(append([]identityJoin(nil), q.joins...), identityJoin{alias: alias, fk: fk})
	return q
}

// Where restricts rows to column <op> value.
func (q Query[T]) Where(column string, op Op, value any) Query[T] {
	q.mustColumn(column)
	if !op.valid() {
		panic(fmt.Sprintf("store: unsupported operator %q", op))
	}
	q.where = append(append([]predicate(nil), q.where...), predicate{column: column, op: op, value: value})
	return q
}

// WhereIf applies Where only when cond holds; absent filters mean no restriction.
func (q Query[T]) WhereIf(cond bool, column string, op Op, value any) Query[T] {
	q.mustColumn(column)
	if !cond {
		return q
	}
	return q.Where(column, op, value)
}

// WhereNull restricts rows to column IS NULL.
func (q Query[T]) WhereNull(column string) Query[T] {
	q.mustColumn(column)
	q.where = append(append([]predicate(nil), q.where...), predicate{column: column, isNull: true})
	return q
}

// OrderBy appends an ordering key.
func (q Query[T]) OrderBy(column string, dir Direction) Query[T] {
	q.mustColumn(column)
	q.orders = append(append([]ordering(nil), q.orders...), ordering{column: column, dir: dir})
	return q
}

// Limit caps the number of rows; n <= 0 removes the cap.
func (q Query[T]) Limit(n int) Query[T] {
	q.limit = n
	return q
}

func (q Query[T]) col(column string) string {
	return fmt.Sprintf("`%s`.`%s`", q.table, column)
}

func (q Query[T]) projection() []string {
	sel := []string{fmt.Sprintf("`%s`.*", q.table)}
	for _, j := range q.joins {
		sel = append(sel,
			fmt.Sprintf("`%s`.`username` AS `%s_username`", j.alias, j.alias),
			fmt.Sprintf("`%s`.`nickname` AS `%s_nickname`", j.alias, j.alias),
		)
	}
	return sel
}

// orderKeys returns the ordering with the primary key appended as the final
// tiebreaker so repeated listings return rows in the same order.
func (q Query[T]) orderKeys() []ordering {
	keys := append([]ordering(nil), q.orders...)
	for _, o := range keys {
		if o.column == "id" {
			return keys
		}
	}
	dir := Asc
	if len(keys) > 0 {
		dir = keys[len(keys)-1].dir
	}
	return append(keys, ordering{column: "id", dir: dir})
}

// Find executes the query as a single round trip and returns every row.
func (q Query[T]) Find(ctx context.Context, db *gorm.DB) ([]T, error) {
	tx := db.WithContext(ctx).Table(q.table).Select(q.projection())
	for _, j := range q.joins {
		tx = tx.Joins(fmt.Sprintf("JOIN `%s` AS `%s` ON `%s`.`id` = %s AND `%s`.`deleted_at` IS NULL",
			identityTable, j.alias, j.alias, q.col(j.fk), j.alias))
	}
	for _, p := range q.where {
		if p.isNull {
			tx = tx.Where(q.col(p.column) + " IS NULL")
			continue
		}
		tx = tx.Where(fmt.Sprintf("%s %s ?", q.col(p.column), p.op), p.value)
	}
	for _, o := range q.orderKeys() {
		tx = tx.Order(q.col(o.column) + " " + o.dir.String())
	}
	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}
	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// First returns the single matching row or ErrNotFound.
func (q Query[T]) First(ctx context.Context, db *gorm.DB) (T, error) {
	var zero T
	rows, err := q.Limit(1).Find(ctx, db)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, ErrNotFound
	}
	return rows[0], nil
}
