package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bekirdag/goal/internal/model"
)

var (
	// ErrSchemaAbsent reports that the subtitle table has not been provisioned.
	ErrSchemaAbsent = errors.New("store resource does not exist")
	ErrNotFound     = errors.New("row not found")
	ErrUnavailable  = errors.New("store unavailable")
)

// Error wraps every failure returned by a backend.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Op: op, Err: err}
}

type UserIdentity struct {
	ID string
}

type TaskRow struct {
	ID        string
	Text      string
	Completed bool
	Quadrant  string
	CreatedAt time.Time
}

// Normalize validates a row read from a backend and converts it into a task.
func (r TaskRow) Normalize() (model.Task, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return model.Task{}, errors.New("task row without id")
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return model.Task{}, fmt.Errorf("task %s has empty text", id)
	}
	q, err := model.ParseQuadrant(r.Quadrant)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	return model.Task{
		ID:        id,
		Text:      text,
		Completed: r.Completed,
		Quadrant:  q,
		CreatedAt: r.CreatedAt,
	}, nil
}

type NewTask struct {
	ID        string
	Text      string
	Completed bool
	Quadrant  model.Quadrant
	UserID    string
}

type SubtitleRow struct {
	UserID   string
	Quadrant string
	Subtitle string
}

// Client is the remote persistence boundary. Every call is scoped to a user id.
type Client interface {
	// CurrentUser returns nil when nobody is signed in.
	CurrentUser(ctx context.Context) (*UserIdentity, error)
	ListTasks(ctx context.Context, userID string) ([]TaskRow, error)
	ListSubtitles(ctx context.Context, userID string) ([]SubtitleRow, error)
	CreateTask(ctx context.Context, task NewTask) error
	UpdateTaskCompleted(ctx context.Context, userID, id string, completed bool) error
	UpdateTaskText(ctx context.Context, userID, id, text string) error
	DeleteTask(ctx context.Context, userID, id string) error
	UpsertSubtitle(ctx context.Context, row SubtitleRow) error
	Close() error
}

func identityFor(user string) *UserIdentity {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil
	}
	return &UserIdentity{ID: user}
}
