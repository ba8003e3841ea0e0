package server

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/common"
	"github.com/bitechdev/DataBrowser/pkg/common/adapters/database"
	"github.com/bitechdev/DataBrowser/pkg/config"
	"github.com/bitechdev/DataBrowser/pkg/logger"
	_ "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

// sqliteDriver is the database/sql driver glebarez/go-sqlite registers. Bun
// shares it with the GORM dialector so only one sqlite driver is linked.
const sqliteDriver = "sqlite"

// gormWriter sends GORM's SQL log through the package logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Debug(strings.TrimSpace(format), args...)
}

func gormLogLevel(level string) gormlog.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlog.Silent
	case "error":
		return gormlog.Error
	case "info":
		return gormlog.Info
	default:
		return gormlog.Warn
	}
}

// Database is an open connection in whichever ORM was configured.
type Database struct {
	common.Database
	gorm *gorm.DB
	bun  *bun.DB
}

// OpenDatabase connects according to cfg.
func OpenDatabase(cfg config.DatabaseConfig) (*Database, error) {
	if cfg.ORM == "bun" {
		if cfg.Driver != "sqlite" {
			return nil, fmt.Errorf("bun is only wired for sqlite, not %s", cfg.Driver)
		}
		sqldb, err := sql.Open(sqliteDriver, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if strings.Contains(cfg.DSN, ":memory:") {
			sqldb.SetMaxOpenConns(1)
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		return &Database{Database: database.NewBunAdapter(db), bun: db}, nil
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	newLogger := gormlog.New(gormWriter{}, gormlog.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLogLevel(cfg.LogLevel),
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   newLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	// sqlite in-memory databases live per connection
	if cfg.Driver == "sqlite" && strings.Contains(cfg.DSN, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return &Database{Database: database.NewGormAdapter(db), gorm: db}, nil
}

// Migrate creates or updates the tables of models.
func (d *Database) Migrate(ctx context.Context, models ...interface{}) error {
	if d.gorm != nil {
		if err := d.gorm.WithContext(ctx).AutoMigrate(models...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	for _, model := range models {
		if _, err := d.bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// Gorm returns the GORM connection, or nil when bun is in use.
func (d *Database) Gorm() *gorm.DB {
	return d.gorm
}

// Close releases the connection pool.
func (d *Database) Close() error {
	if d.bun != nil {
		return d.bun.Close()
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
