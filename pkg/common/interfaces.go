package common

import "context"

// Database is the ORM-agnostic handle the rest of the module talks to.
// Implementations live in pkg/common/adapters/database.
type Database interface {
	NewSelect() SelectQuery
	NewInsert() InsertQuery
	NewUpdate() UpdateQuery
	NewDelete() DeleteQuery

	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)
	// Query runs a raw SELECT and scans every row into dest, which is either a
	// pointer to a slice of structs or a *[]map[string]interface{}.
	Query(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// RunInTransaction calls fn with a Database bound to one transaction,
	// committing when fn returns nil and rolling back otherwise.
	RunInTransaction(ctx context.Context, fn func(Database) error) error

	// Dialect names the SQL flavour of the underlying connection ("sqlite", "postgres").
	Dialect() string
}

type SelectQuery interface {
	Model(model interface{}) SelectQuery
	Where(query string, args ...interface{}) SelectQuery
	Order(order string) SelectQuery
	Limit(n int) SelectQuery
	Offset(n int) SelectQuery

	Scan(ctx context.Context, dest interface{}) error
	Count(ctx context.Context) (int, error)
}

type InsertQuery interface {
	Model(model interface{}) InsertQuery

	Exec(ctx context.Context) (Result, error)
}

type UpdateQuery interface {
	Model(model interface{}) UpdateQuery
	SetMap(values map[string]interface{}) UpdateQuery
	Where(query string, args ...interface{}) UpdateQuery

	Exec(ctx context.Context) (Result, error)
}

type DeleteQuery interface {
	Model(model interface{}) DeleteQuery
	Where(query string, args ...interface{}) DeleteQuery

	Exec(ctx context.Context) (Result, error)
}

type Result interface {
	RowsAffected() int64
}
