package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that created_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLite struct {
	db   *sql.DB
	path string
	user string
}

type SQLiteOptions struct {
	Path    string
	User    string
	Migrate bool
}

func OpenSQLite(ctx context.Context, opts SQLiteOptions) (*SQLite, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, &Error{Op: "open sqlite", Err: errors.New("empty database path")}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &Error{Op: "open sqlite", Err: err}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Op: "open sqlite", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, &Error{Op: "open sqlite", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	s := &SQLite{db: db, path: path, user: opts.User}
	if opts.Migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			quadrant TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS tasks_user_created ON tasks (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS quadrant_settings (
			user_id TEXT NOT NULL,
			quadrant TEXT NOT NULL,
			subtitle TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, quadrant)
		);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &Error{Op: "migrate", Err: fmt.Errorf("sqlite migration failed: %w", err)}
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) CurrentUser(ctx context.Context) (*UserIdentity, error) {
	return identityFor(s.user), nil
}

func (s *SQLite) ListTasks(ctx context.Context, userID string) ([]TaskRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, completed, quadrant, created_at
		  FROM tasks
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, wrap("list tasks", mapSQLiteErr(err))
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var (
			row       TaskRow
			completed int
			created   string
		)
		if err := rows.Scan(&row.ID, &row.Text, &completed, &row.Quadrant, &created); err != nil {
			return nil, wrap("list tasks", err)
		}
		row.Completed = completed != 0
		row.CreatedAt = parseTime(created)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list tasks", mapSQLiteErr(err))
	}
	return out, nil
}

func (s *SQLite) ListSubtitles(ctx context.Context, userID string) ([]SubtitleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT quadrant, subtitle
		  FROM quadrant_settings
		 WHERE user_id = ?
		 ORDER BY quadrant ASC
	`, userID)
	if err != nil {
		return nil, wrap("list subtitles", mapSQLiteErr(err))
	}
	defer rows.Close()

	var out []SubtitleRow
	for rows.Next() {
		row := SubtitleRow{UserID: userID}
		if err := rows.Scan(&row.Quadrant, &row.Subtitle); err != nil {
			return nil, wrap("list subtitles", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list subtitles", mapSQLiteErr(err))
	}
	return out, nil
}

func (s *SQLite) CreateTask(ctx context.Context, task NewTask) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, text, completed, quadrant, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, task.ID, task.UserID, task.Text, boolToInt(task.Completed), string(task.Quadrant), formatTime(time.Now()))
	return wrap("create task", mapSQLiteErr(err))
}

func (s *SQLite) UpdateTaskCompleted(ctx context.Context, userID, id string, completed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = ? WHERE id = ? AND user_id = ?`,
		boolToInt(completed), id, userID)
	if err != nil {
		return wrap("update task completed", mapSQLiteErr(err))
	}
	return wrap("update task completed", requireAffected(res))
}

func (s *SQLite) UpdateTaskText(ctx context.Context, userID, id, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET text = ? WHERE id = ? AND user_id = ?`,
		text, id, userID)
	if err != nil {
		return wrap("update task text", mapSQLiteErr(err))
	}
	return wrap("update task text", requireAffected(res))
}

func (s *SQLite) DeleteTask(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	return wrap("delete task", mapSQLiteErr(err))
}

func (s *SQLite) UpsertSubtitle(ctx context.Context, row SubtitleRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quadrant_settings (user_id, quadrant, subtitle, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, quadrant) DO UPDATE SET
			subtitle = excluded.subtitle,
			updated_at = excluded.updated_at
	`, row.UserID, row.Quadrant, row.Subtitle, formatTime(time.Now()))
	return wrap("upsert subtitle", mapSQLiteErr(err))
}

func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return fmt.Errorf("%w: %v", ErrSchemaAbsent, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "unable to open database"):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
