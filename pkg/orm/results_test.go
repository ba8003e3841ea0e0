package orm_test

import (
	"context"
	"testing"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/bitechdev/DataBrowser/pkg/common/adapters/database"
	"github.com/bitechdev/DataBrowser/pkg/modelregistry"
	"github.com/bitechdev/DataBrowser/pkg/orm"
	"github.com/bitechdev/DataBrowser/pkg/query"
	"github.com/bitechdev/DataBrowser/pkg/testmodels"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

func setupDB(t *testing.T, seed func(context.Context, common.Database) error) (*database.GormAdapter, orm.Models) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormlog.Default.LogMode(gormlog.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(testmodels.GetTestModels()...))
	adapter := database.NewGormAdapter(db)
	if seed != nil {
		require.NoError(t, seed(context.Background(), adapter))
	}

	registry := modelregistry.NewModelRegistry()
	testmodels.RegisterTestModels(registry)
	catalog, err := orm.NewCatalog(registry)
	require.NoError(t, err)

	return adapter, catalog.All()
}

func run(t *testing.T, db *database.GormAdapter, models orm.Models, fields, rawQuery string) (*query.BoundQuery, *orm.Results) {
	q := query.FromRequest("tests.Product", fields, rawQuery, 1000)
	bound := query.Bind(q, models)
	res, err := orm.GetResults(context.Background(), db, bound.Selection())
	require.NoError(t, err)
	return bound, res
}

func TestGetResults_FilterAndSort(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedProducts)

	_, res := run(t, db, models, "size-0,name+1,size_unit", "size__lt=2&id__gt=0")

	expected := []orm.Record{
		{"size": 1.0, "name": "a", "size_unit": "g"},
		{"size": 1.0, "name": "b", "size_unit": "g"},
	}
	assert.Equal(t, expected, res.Results)
	assert.Equal(t, expected, res.Rows)
	assert.Empty(t, res.Cols)
	assert.Empty(t, res.Body)
}

func TestGetResults_BadFieldsAndFilters(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedProducts)

	bound, res := run(t, db, models,
		"size-0,name+1,size_unit,bob-2,is_onsale,pooducer__name,producer__name",
		"size__lt=2&id__gt=0&bob__gt=1&size__xx=1&size__lt=xx")

	assert.Equal(t, []orm.Record{
		{"size": 1.0, "name": "a", "size_unit": "g", "is_onsale": false, "producer__name": "Bob"},
		{"size": 1.0, "name": "b", "size_unit": "g", "is_onsale": false, "producer__name": "Bob"},
	}, res.Results)

	require.Len(t, bound.Filters, 5)
	assert.Len(t, bound.ValidFilters(), 2)
}

func TestGetResults_NoFields(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedProducts)

	_, res := run(t, db, models, "", "size__lt=2")
	assert.Empty(t, res.Results)
	assert.Empty(t, res.Rows)
	assert.NotNil(t, res.Results)
}

func TestGetResults_Limit(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedProducts)

	_, res := run(t, db, models, "name+0", "limit=2")
	assert.Equal(t, []orm.Record{{"name": "a"}, {"name": "b"}}, res.Results)
}

func TestGetResults_RelationFilter(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedProducts)

	_, res := run(t, db, models, "name+0,producer__address__city", "producer__name__equals=Bob&name__not_equals=b")
	assert.Equal(t, []orm.Record{
		{"name": "a", "producer__address__city": "london"},
		{"name": "c", "producer__address__city": "london"},
	}, res.Results)
}

func TestGetResults_Aggregate(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedProducts)

	_, res := run(t, db, models, "size+0,id__count,size__sum", "")
	assert.Equal(t, []orm.Record{
		{"size": 1.0, "id__count": int64(2), "size__sum": 2.0},
		{"size": 2.0, "id__count": int64(1), "size__sum": 2.0},
	}, res.Results)
}

func TestGetResults_Pivot(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedPivotProducts)

	bound, res := run(t, db, models, "created_time__year+0,&created_time__month+1,id__count,id__max", "")

	require.Len(t, bound.ColFields(), 1)
	require.Len(t, bound.RowFields(), 1)
	require.Len(t, bound.DataFields(), 2)

	assert.Equal(t, []orm.Record{
		{"created_time__year": int64(2020)},
		{"created_time__year": int64(2021)},
	}, res.Rows)
	assert.Equal(t, []orm.Record{
		{"created_time__month": int64(1)},
		{"created_time__month": int64(2)},
	}, res.Cols)
	assert.Equal(t, [][]orm.Record{
		{
			{"id__count": int64(1), "id__max": int64(1)},
			{"id__count": int64(3), "id__max": int64(6)},
		},
		{
			{"id__count": int64(2), "id__max": int64(3)},
			{},
		},
	}, res.Body)

	require.Len(t, res.Body, len(res.Cols))
	for _, sub := range res.Body {
		assert.Len(t, sub, len(res.Rows))
	}
}

func TestGetResults_PivotWithoutRows(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedPivotProducts)

	_, res := run(t, db, models, "&created_time__year+0,id__count", "")

	assert.Equal(t, []orm.Record{{}}, res.Rows)
	assert.Equal(t, []orm.Record{
		{"created_time__year": int64(2020)},
		{"created_time__year": int64(2021)},
	}, res.Cols)
	assert.Equal(t, [][]orm.Record{
		{{"id__count": int64(3)}},
		{{"id__count": int64(3)}},
	}, res.Body)
}

func TestGetResults_TimeFilter(t *testing.T) {
	db, models := setupDB(t, testmodels.SeedPivotProducts)

	_, res := run(t, db, models, "created_time+0", "created_time__gte=2021-01-02")
	assert.Equal(t, []orm.Record{
		{"created_time": "2021-01-02 00:00:00"},
		{"created_time": "2021-01-03 00:00:00"},
	}, res.Results)
}
