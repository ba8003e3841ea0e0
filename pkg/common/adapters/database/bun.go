package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/uptrace/bun"
)

// BunAdapter runs data browser queries and store operations through Bun.
type BunAdapter struct {
	db  *bun.DB
	idb bun.IDB
}

func NewBunAdapter(db *bun.DB) *BunAdapter {
	return &BunAdapter{db: db, idb: db}
}

func (b *BunAdapter) NewSelect() common.SelectQuery {
	return &bunSelect{query: b.idb.NewSelect()}
}

func (b *BunAdapter) NewInsert() common.InsertQuery {
	return &bunInsert{db: b.idb}
}

func (b *BunAdapter) NewUpdate() common.UpdateQuery {
	return &bunUpdate{db: b.idb}
}

func (b *BunAdapter) NewDelete() common.DeleteQuery {
	return &bunDelete{query: b.idb.NewDelete()}
}

func (b *BunAdapter) Exec(ctx context.Context, query string, args ...interface{}) (common.Result, error) {
	res, err := b.idb.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return bunResult{result: res}, nil
}

func (b *BunAdapter) Query(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return b.idb.NewRaw(query, args...).Scan(ctx, dest)
}

func (b *BunAdapter) RunInTransaction(ctx context.Context, fn func(common.Database) error) error {
	return b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(&BunAdapter{db: b.db, idb: tx})
	})
}

// Dialect maps Bun's dialect names onto the names GORM uses.
func (b *BunAdapter) Dialect() string {
	name := b.db.Dialect().Name().String()
	if name == "pg" {
		return "postgres"
	}
	return name
}

type bunSelect struct {
	query *bun.SelectQuery
	model interface{}
}

func (q *bunSelect) Model(model interface{}) common.SelectQuery {
	q.model = model
	q.query = q.query.Model(model)
	return q
}

func (q *bunSelect) Where(query string, args ...interface{}) common.SelectQuery {
	q.query = q.query.Where(query, args...)
	return q
}

func (q *bunSelect) Order(order string) common.SelectQuery {
	q.query = q.query.OrderExpr(order)
	return q
}

func (q *bunSelect) Limit(n int) common.SelectQuery {
	q.query = q.query.Limit(n)
	return q
}

func (q *bunSelect) Offset(n int) common.SelectQuery {
	q.query = q.query.Offset(n)
	return q
}

// Scan loads into the model when dest is the model itself.
func (q *bunSelect) Scan(ctx context.Context, dest interface{}) error {
	if dest == nil || dest == q.model {
		return q.query.Scan(ctx)
	}
	return q.query.Scan(ctx, dest)
}

func (q *bunSelect) Count(ctx context.Context) (int, error) {
	return q.query.Count(ctx)
}

type bunInsert struct {
	db    bun.IDB
	model interface{}
}

func (q *bunInsert) Model(model interface{}) common.InsertQuery {
	q.model = model
	return q
}

func (q *bunInsert) Exec(ctx context.Context) (common.Result, error) {
	if q.model == nil {
		return nil, fmt.Errorf("insert: no model")
	}
	res, err := q.db.NewInsert().Model(q.model).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return bunResult{result: res}, nil
}

type bunUpdate struct {
	db     bun.IDB
	model  interface{}
	values map[string]interface{}
	wheres []whereClause
}

type whereClause struct {
	query string
	args  []interface{}
}

func (q *bunUpdate) Model(model interface{}) common.UpdateQuery {
	q.model = model
	return q
}

func (q *bunUpdate) SetMap(values map[string]interface{}) common.UpdateQuery {
	q.values = values
	return q
}

func (q *bunUpdate) Where(query string, args ...interface{}) common.UpdateQuery {
	q.wheres = append(q.wheres, whereClause{query: query, args: args})
	return q
}

// Exec updates only the columns given to SetMap. Without a Where clause the
// model's primary key selects the row.
func (q *bunUpdate) Exec(ctx context.Context) (common.Result, error) {
	if q.model == nil || len(q.values) == 0 {
		return nil, fmt.Errorf("update: no columns set")
	}

	query := q.db.NewUpdate().Model(q.model)
	for column, value := range q.values {
		query = query.Set("? = ?", bun.Ident(column), value)
	}
	for _, where := range q.wheres {
		query = query.Where(where.query, where.args...)
	}
	if len(q.wheres) == 0 {
		query = query.WherePK()
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return nil, err
	}
	return bunResult{result: res}, nil
}

type bunDelete struct {
	query *bun.DeleteQuery
}

func (q *bunDelete) Model(model interface{}) common.DeleteQuery {
	q.query = q.query.Model(model)
	return q
}

func (q *bunDelete) Where(query string, args ...interface{}) common.DeleteQuery {
	q.query = q.query.Where(query, args...)
	return q
}

func (q *bunDelete) Exec(ctx context.Context) (common.Result, error) {
	res, err := q.query.Exec(ctx)
	if err != nil {
		return nil, err
	}
	return bunResult{result: res}, nil
}

type bunResult struct {
	result sql.Result
}

func (r bunResult) RowsAffected() int64 {
	n, err := r.result.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
