package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Op string

const (
	OpCurrentUser         Op = "current_user"
	OpListTasks           Op = "list_tasks"
	OpListSubtitles       Op = "list_subtitles"
	OpCreateTask          Op = "create_task"
	OpUpdateTaskCompleted Op = "update_task_completed"
	OpUpdateTaskText      Op = "update_task_text"
	OpDeleteTask          Op = "delete_task"
	OpUpsertSubtitle      Op = "upsert_subtitle"
)

type memoryTask struct {
	row    TaskRow
	userID string
	seq    int
}

// Memory keeps rows in process. Failures can be injected per operation, which
// makes it the backend used by tests and by the demo mode.
type Memory struct {
	mu        sync.Mutex
	user      string
	tasks     map[string]*memoryTask
	subtitles map[string]map[string]string
	failures  map[Op]error
	calls     map[Op]int
	seq       int
	now       func() time.Time
}

func NewMemory(user string) *Memory {
	return &Memory{
		user:      user,
		tasks:     make(map[string]*memoryTask),
		subtitles: make(map[string]map[string]string),
		failures:  make(map[Op]error),
		calls:     make(map[Op]int),
		now:       time.Now,
	}
}

// FailOn makes every subsequent call of op return err until cleared with a nil err.
func (m *Memory) FailOn(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls reports how many times op has been invoked, failed calls included.
func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// DropSubtitles simulates a deployment where the subtitle table was never created.
func (m *Memory) DropSubtitles() {
	m.FailOn(OpListSubtitles, &Error{Op: string(OpListSubtitles), Err: fmt.Errorf("%w: quadrant_settings", ErrSchemaAbsent)})
}

func (m *Memory) enter(op Op) error {
	m.calls[op]++
	if err, ok := m.failures[op]; ok {
		return wrap(string(op), err)
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) CurrentUser(ctx context.Context) (*UserIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCurrentUser); err != nil {
		return nil, err
	}
	return identityFor(m.user), nil
}

func (m *Memory) ListTasks(ctx context.Context, userID string) ([]TaskRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpListTasks); err != nil {
		return nil, err
	}
	var owned []*memoryTask
	for _, t := range m.tasks {
		if t.userID == userID {
			owned = append(owned, t)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].row.CreatedAt.Equal(owned[j].row.CreatedAt) {
			return owned[i].row.CreatedAt.After(owned[j].row.CreatedAt)
		}
		return owned[i].seq > owned[j].seq
	})
	out := make([]TaskRow, 0, len(owned))
	for _, t := range owned {
		out = append(out, t.row)
	}
	return out, nil
}

func (m *Memory) ListSubtitles(ctx context.Context, userID string) ([]SubtitleRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpListSubtitles); err != nil {
		return nil, err
	}
	var out []SubtitleRow
	for q, subtitle := range m.subtitles[userID] {
		out = append(out, SubtitleRow{UserID: userID, Quadrant: q, Subtitle: subtitle})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quadrant < out[j].Quadrant })
	return out, nil
}

func (m *Memory) CreateTask(ctx context.Context, task NewTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateTask); err != nil {
		return err
	}
	if _, exists := m.tasks[task.ID]; exists {
		return wrap(string(OpCreateTask), fmt.Errorf("duplicate task id %s", task.ID))
	}
	m.seq++
	m.tasks[task.ID] = &memoryTask{
		row: TaskRow{
			ID:        task.ID,
			Text:      task.Text,
			Completed: task.Completed,
			Quadrant:  string(task.Quadrant),
			CreatedAt: m.now().UTC(),
		},
		userID: task.UserID,
		seq:    m.seq,
	}
	return nil
}

func (m *Memory) owned(userID, id string) (*memoryTask, bool) {
	t, ok := m.tasks[id]
	if !ok || t.userID != userID {
		return nil, false
	}
	return t, true
}

func (m *Memory) UpdateTaskCompleted(ctx context.Context, userID, id string, completed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpdateTaskCompleted); err != nil {
		return err
	}
	t, ok := m.owned(userID, id)
	if !ok {
		return wrap(string(OpUpdateTaskCompleted), ErrNotFound)
	}
	t.row.Completed = completed
	return nil
}

func (m *Memory) UpdateTaskText(ctx context.Context, userID, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpdateTaskText); err != nil {
		return err
	}
	t, ok := m.owned(userID, id)
	if !ok {
		return wrap(string(OpUpdateTaskText), ErrNotFound)
	}
	t.row.Text = text
	return nil
}

func (m *Memory) DeleteTask(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDeleteTask); err != nil {
		return err
	}
	if _, ok := m.owned(userID, id); ok {
		delete(m.tasks, id)
	}
	return nil
}

func (m *Memory) UpsertSubtitle(ctx context.Context, row SubtitleRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpsertSubtitle); err != nil {
		return err
	}
	byQuadrant := m.subtitles[row.UserID]
	if byQuadrant == nil {
		byQuadrant = make(map[string]string)
		m.subtitles[row.UserID] = byQuadrant
	}
	byQuadrant[row.Quadrant] = row.Subtitle
	return nil
}
