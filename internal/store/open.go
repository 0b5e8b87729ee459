package store

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Options struct {
	Backend     string
	SQLitePath  string
	PostgresURL string
	User        string
	Migrate     bool
}

// Migrator is implemented by backends that can provision their own schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

func Open(ctx context.Context, opts Options) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendSQLite:
		return OpenSQLite(ctx, SQLiteOptions{Path: opts.SQLitePath, User: opts.User, Migrate: opts.Migrate})
	case BackendPostgres:
		if strings.TrimSpace(opts.PostgresURL) == "" {
			return nil, &Error{Op: "open postgres", Err: fmt.Errorf("postgres backend requires a database url")}
		}
		return OpenPostgres(ctx, PostgresOptions{URL: opts.PostgresURL, User: opts.User, Migrate: opts.Migrate})
	case BackendMemory:
		return NewMemory(opts.User), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}
