package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
	user string
}

type PostgresOptions struct {
	URL     string
	User    string
	Migrate bool
}

func OpenPostgres(ctx context.Context, opts PostgresOptions) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, &Error{Op: "open postgres", Err: fmt.Errorf("parse database url: %w", err)}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, &Error{Op: "open postgres", Err: fmt.Errorf("%w: connect: %v", ErrUnavailable, err)}
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, &Error{Op: "open postgres", Err: fmt.Errorf("%w: ping: %v", ErrUnavailable, err)}
	}

	p := &Postgres{pool: pool, user: opts.User}
	if opts.Migrate {
		if err := p.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	statements := []string{
		`create table if not exists tasks (
			id text primary key,
			user_id text not null,
			text text not null,
			completed boolean not null default false,
			quadrant text not null,
			created_at timestamptz not null default now()
		)`,
		`create index if not exists tasks_user_created on tasks (user_id, created_at desc)`,
		`create table if not exists quadrant_settings (
			user_id text not null,
			quadrant text not null,
			subtitle text not null default '',
			updated_at timestamptz not null default now(),
			primary key (user_id, quadrant)
		)`,
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return &Error{Op: "migrate", Err: fmt.Errorf("postgres migration failed: %w", mapPgErr(err))}
		}
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *Postgres) CurrentUser(ctx context.Context) (*UserIdentity, error) {
	return identityFor(p.user), nil
}

func (p *Postgres) ListTasks(ctx context.Context, userID string) ([]TaskRow, error) {
	rows, err := p.pool.Query(ctx, `
		select id, text, completed, quadrant, created_at
		from tasks
		where user_id = $1
		order by created_at desc
	`, userID)
	if err != nil {
		return nil, wrap("list tasks", mapPgErr(err))
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var row TaskRow
		if err := rows.Scan(&row.ID, &row.Text, &row.Completed, &row.Quadrant, &row.CreatedAt); err != nil {
			return nil, wrap("list tasks", mapPgErr(err))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list tasks", mapPgErr(err))
	}
	return out, nil
}

func (p *Postgres) ListSubtitles(ctx context.Context, userID string) ([]SubtitleRow, error) {
	rows, err := p.pool.Query(ctx, `
		select quadrant, subtitle
		from quadrant_settings
		where user_id = $1
		order by quadrant asc
	`, userID)
	if err != nil {
		return nil, wrap("list subtitles", mapPgErr(err))
	}
	defer rows.Close()

	var out []SubtitleRow
	for rows.Next() {
		row := SubtitleRow{UserID: userID}
		if err := rows.Scan(&row.Quadrant, &row.Subtitle); err != nil {
			return nil, wrap("list subtitles", mapPgErr(err))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list subtitles", mapPgErr(err))
	}
	return out, nil
}

func (p *Postgres) CreateTask(ctx context.Context, task NewTask) error {
	_, err := p.pool.Exec(ctx, `
		insert into tasks (id, user_id, text, completed, quadrant)
		values ($1, $2, $3, $4, $5)
	`, task.ID, task.UserID, task.Text, task.Completed, string(task.Quadrant))
	return wrap("create task", mapPgErr(err))
}

func (p *Postgres) UpdateTaskCompleted(ctx context.Context, userID, id string, completed bool) error {
	tag, err := p.pool.Exec(ctx, `update tasks set completed = $1 where id = $2 and user_id = $3`,
		completed, id, userID)
	if err != nil {
		return wrap("update task completed", mapPgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return wrap("update task completed", ErrNotFound)
	}
	return nil
}

func (p *Postgres) UpdateTaskText(ctx context.Context, userID, id, text string) error {
	tag, err := p.pool.Exec(ctx, `update tasks set text = $1 where id = $2 and user_id = $3`,
		text, id, userID)
	if err != nil {
		return wrap("update task text", mapPgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return wrap("update task text", ErrNotFound)
	}
	return nil
}

func (p *Postgres) DeleteTask(ctx context.Context, userID, id string) error {
	_, err := p.pool.Exec(ctx, `delete from tasks where id = $1 and user_id = $2`, id, userID)
	return wrap("delete task", mapPgErr(err))
}

func (p *Postgres) UpsertSubtitle(ctx context.Context, row SubtitleRow) error {
	_, err := p.pool.Exec(ctx, `
		insert into quadrant_settings (user_id, quadrant, subtitle)
		values ($1, $2, $3)
		on conflict (user_id, quadrant) do update
		set subtitle = excluded.subtitle,
		    updated_at = now()
	`, row.UserID, row.Quadrant, row.Subtitle)
	return wrap("upsert subtitle", mapPgErr(err))
}

func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("%w: %s", ErrSchemaAbsent, pgErr.Message)
		default:
			return fmt.Errorf("db_error %s: %s", pgErr.Code, pgErr.Message)
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
