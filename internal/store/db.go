package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Execer is satisfied by *sqlx.DB and *sqlx.Tx. Every mutating store method
// takes one so the caller decides which transaction the write joins.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// DB is the pool-level handle the stores read through.
type DB interface {
	Execer
	Getter
	Selecter
}

// bind expands slice arguments of a query written with '?' placeholders and
// rewrites the placeholders into Postgres' $n form.
func bind(query string, args ...any) (string, []any, error) {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, expanded), expandedArgs, nil
}
