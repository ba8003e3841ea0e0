package database

import (
	"context"
	"fmt"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"gorm.io/gorm"
)

// GormAdapter runs data browser queries and store operations through GORM.
type GormAdapter struct {
	db *gorm.DB
}

func NewGormAdapter(db *gorm.DB) *GormAdapter {
	return &GormAdapter{db: db}
}

func (g *GormAdapter) NewSelect() common.SelectQuery {
	return &gormSelect{db: g.db}
}

func (g *GormAdapter) NewInsert() common.InsertQuery {
	return &gormInsert{db: g.db}
}

func (g *GormAdapter) NewUpdate() common.UpdateQuery {
	return &gormUpdate{db: g.db}
}

func (g *GormAdapter) NewDelete() common.DeleteQuery {
	return &gormDelete{db: g.db}
}

func (g *GormAdapter) Exec(ctx context.Context, query string, args ...interface{}) (common.Result, error) {
	result := g.db.WithContext(ctx).Exec(query, args...)
	return gormResult{rows: result.RowsAffected}, result.Error
}

// Query scans a raw statement. Result rows keep GORM's driver values, which
// the field types normalise afterwards.
func (g *GormAdapter) Query(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return g.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error
}

func (g *GormAdapter) RunInTransaction(ctx context.Context, fn func(common.Database) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormAdapter{db: tx})
	})
}

// Dialect reports the GORM dialector name ("sqlite", "postgres", ...).
func (g *GormAdapter) Dialect() string {
	return g.db.Dialector.Name()
}

type gormSelect struct {
	db *gorm.DB
}

func (q *gormSelect) Model(model interface{}) common.SelectQuery {
	q.db = q.db.Model(model)
	return q
}

func (q *gormSelect) Where(query string, args ...interface{}) common.SelectQuery {
	q.db = q.db.Where(query, args...)
	return q
}

func (q *gormSelect) Order(order string) common.SelectQuery {
	q.db = q.db.Order(order)
	return q
}

func (q *gormSelect) Limit(n int) common.SelectQuery {
	q.db = q.db.Limit(n)
	return q
}

func (q *gormSelect) Offset(n int) common.SelectQuery {
	q.db = q.db.Offset(n)
	return q
}

func (q *gormSelect) Scan(ctx context.Context, dest interface{}) error {
	return q.db.WithContext(ctx).Find(dest).Error
}

func (q *gormSelect) Count(ctx context.Context) (int, error) {
	var count int64
	err := q.db.WithContext(ctx).Count(&count).Error
	return int(count), err
}

type gormInsert struct {
	db    *gorm.DB
	model interface{}
}

func (q *gormInsert) Model(model interface{}) common.InsertQuery {
	q.model = model
	return q
}

// Exec creates the model row; GORM fills its primary key.
func (q *gormInsert) Exec(ctx context.Context) (common.Result, error) {
	if q.model == nil {
		return nil, fmt.Errorf("insert: no model")
	}
	result := q.db.WithContext(ctx).Create(q.model)
	return gormResult{rows: result.RowsAffected}, result.Error
}

type gormUpdate struct {
	db     *gorm.DB
	values map[string]interface{}
}

func (q *gormUpdate) Model(model interface{}) common.UpdateQuery {
	q.db = q.db.Model(model)
	return q
}

func (q *gormUpdate) SetMap(values map[string]interface{}) common.UpdateQuery {
	q.values = values
	return q
}

func (q *gormUpdate) Where(query string, args ...interface{}) common.UpdateQuery {
	q.db = q.db.Where(query, args...)
	return q
}

func (q *gormUpdate) Exec(ctx context.Context) (common.Result, error) {
	if len(q.values) == 0 {
		return nil, fmt.Errorf("update: no columns set")
	}
	result := q.db.WithContext(ctx).Updates(q.values)
	return gormResult{rows: result.RowsAffected}, result.Error
}

type gormDelete struct {
	db    *gorm.DB
	model interface{}
}

func (q *gormDelete) Model(model interface{}) common.DeleteQuery {
	q.model = model
	return q
}

func (q *gormDelete) Where(query string, args ...interface{}) common.DeleteQuery {
	q.db = q.db.Where(query, args...)
	return q
}

func (q *gormDelete) Exec(ctx context.Context) (common.Result, error) {
	if q.model == nil {
		return nil, fmt.Errorf("delete: no model")
	}
	result := q.db.WithContext(ctx).Delete(q.model)
	return gormResult{rows: result.RowsAffected}, result.Error
}

type gormResult struct {
	rows int64
}

func (r gormResult) RowsAffected() int64 {
	return r.rows
}
