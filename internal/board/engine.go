package board

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/bekirdag/goal/internal/model"
	"github.com/bekirdag/goal/internal/store"
)

const DefaultErrorTimeout = 5 * time.Second

type Op string

const (
	OpAdd      Op = "add"
	OpToggle   Op = "toggle"
	OpDelete   Op = "delete"
	OpEdit     Op = "edit"
	OpSubtitle Op = "subtitle"
)

// Session scopes engine calls to a signed-in user.
type Session struct {
	UserID string
}

func (s Session) SignedIn() bool {
	return strings.TrimSpace(s.UserID) != ""
}

// MutationResultMsg carries the outcome of one remote write back to the loop.
type MutationResultMsg struct {
	ID  uint64
	Err error
}

type errorExpiredMsg struct {
	seq uint64
}

// Outcome describes a resolved mutation.
type Outcome struct {
	Op       Op
	Quadrant model.Quadrant
	Key      string
	Err      error
	// Stale is set when a failed mutation still had newer mutations on the
	// same entity in flight. Its rollback is folded into their replay instead
	// of restoring the value captured when it was issued.
	Stale bool
}

// mutation is one optimistic operation. apply is a pure transition on the
// entity's value; remote only sees values captured at plan time.
type mutation struct {
	op       Op
	quadrant model.Quadrant
	key      string
	entity   entityKey
	failure  string
	apply    func(*entityState)
	remote   func(ctx context.Context, c store.Client) error
	done     chan struct{}
	settled  bool
}

type Options struct {
	Logger       *slog.Logger
	ErrorTimeout time.Duration
	Observer     func(Outcome)
	NewID        func() string
	Now          func() time.Time
}

// Engine is the only writer of the task and settings stores. All methods must
// be called from the Bubble Tea update loop; only the returned commands run
// elsewhere, and they never touch the stores.
type Engine struct {
	ctx      context.Context
	client   store.Client
	tasks    *Collection
	settings *Settings

	log          *slog.Logger
	errorTimeout time.Duration
	observer     func(Outcome)
	newID        func() string
	now          func() time.Time

	pending map[uint64]*mutation
	ledgers map[entityKey]*ledger
	nextID  uint64

	errMessage string
	errSeq     uint64

	session Session
	loaded  bool
}

func NewEngine(ctx context.Context, client store.Client, opts Options) *Engine {
	e := &Engine{
		ctx:          ctx,
		client:       client,
		tasks:        NewCollection(),
		settings:     NewSettings(),
		log:          opts.Logger,
		errorTimeout: opts.ErrorTimeout,
		observer:     opts.Observer,
		newID:        opts.NewID,
		now:          opts.Now,
		pending:      make(map[uint64]*mutation),
		ledgers:      make(map[entityKey]*ledger),
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.errorTimeout <= 0 {
		e.errorTimeout = DefaultErrorTimeout
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

func (e *Engine) Tasks(q model.Quadrant) []model.Task {
	return e.tasks.Snapshot(q)
}

func (e *Engine) Subtitle(q model.Quadrant) string {
	return e.settings.Effective(q, e.now())
}

// Err is the transient error message, empty when none is showing.
func (e *Engine) Err() string {
	return e.errMessage
}

func (e *Engine) Loaded() bool {
	return e.loaded
}

func (e *Engine) Session() Session {
	return e.session
}

func (e *Engine) Pending() int {
	return len(e.pending)
}

func (e *Engine) AddTask(s Session, q model.Quadrant, text string) tea.Cmd {
	return e.run(e.planAdd(s, q, text))
}

func (e *Engine) ToggleTask(s Session, q model.Quadrant, id string) tea.Cmd {
	return e.run(e.planToggle(s, q, id))
}

func (e *Engine) DeleteTask(s Session, q model.Quadrant, id string) tea.Cmd {
	return e.run(e.planDelete(s, q, id))
}

func (e *Engine) EditTaskText(s Session, q model.Quadrant, id, text string) tea.Cmd {
	return e.run(e.planEdit(s, q, id, text))
}

func (e *Engine) SetSubtitle(s Session, q model.Quadrant, subtitle string) tea.Cmd {
	return e.run(e.planSubtitle(s, q, subtitle))
}

// Update consumes engine messages and ignores everything else.
func (e *Engine) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case MutationResultMsg:
		return e.resolve(msg)
	case LoadedMsg:
		return e.applyLoad(msg)
	case errorExpiredMsg:
		if msg.seq == e.errSeq {
			e.errMessage = ""
		}
	}
	return nil
}

func (e *Engine) run(m *mutation) tea.Cmd {
	if m == nil {
		return nil
	}
	l := e.track(m.entity)
	prev := l.tail()
	m.done = make(chan struct{})
	l.chain = append(l.chain, m)
	e.write(m.entity, l.value())

	e.nextID++
	id := e.nextID
	e.pending[id] = m
	e.log.Debug("optimistic apply", "op", m.op, "quadrant", m.quadrant, "key", m.key, "mutation", id)

	ctx, client, remote, done := e.ctx, e.client, m.remote, m.done
	return func() tea.Msg {
		defer close(done)
		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
				return MutationResultMsg{ID: id, Err: ctx.Err()}
			}
		}
		return MutationResultMsg{ID: id, Err: remote(ctx, client)}
	}
}

func (e *Engine) resolve(msg MutationResultMsg) tea.Cmd {
	m, ok := e.pending[msg.ID]
	if !ok {
		return nil
	}
	delete(e.pending, msg.ID)

	l := e.track(m.entity)
	var superseded bool
	if msg.Err == nil {
		l.settle(m)
	} else {
		superseded = l.fail(m)
	}
	e.write(m.entity, l.value())
	if len(l.chain) == 0 {
		delete(e.ledgers, m.entity)
	}

	outcome := Outcome{Op: m.op, Quadrant: m.quadrant, Key: m.key, Err: msg.Err}
	if msg.Err == nil {
		e.observe(outcome)
		return nil
	}

	if superseded {
		outcome.Stale = true
		e.log.Warn("remote write failed, newer mutations replayed", "op", m.op, "quadrant", m.quadrant, "key", m.key, "err", msg.Err)
	} else {
		e.log.Error("remote write failed, rolled back", "op", m.op, "quadrant", m.quadrant, "key", m.key, "err", msg.Err)
	}
	e.observe(outcome)
	return e.setError(m.failure)
}

func (e *Engine) observe(o Outcome) {
	if e.observer != nil {
		e.observer(o)
	}
}

// setError replaces the transient error and schedules its expiry.
func (e *Engine) setError(message string) tea.Cmd {
	e.errSeq++
	e.errMessage = message
	seq := e.errSeq
	return tea.Tick(e.errorTimeout, func(time.Time) tea.Msg {
		return errorExpiredMsg{seq: seq}
	})
}

func (e *Engine) reject(op Op, q model.Quadrant, reason string) *mutation {
	e.log.Debug("mutation rejected", "op", op, "quadrant", q, "reason", reason)
	return nil
}

func (e *Engine) precheck(op Op, s Session, q model.Quadrant) bool {
	if !s.SignedIn() {
		e.reject(op, q, "signed out")
		return false
	}
	if !q.Valid() {
		e.reject(op, q, "unknown quadrant")
		return false
	}
	return true
}

func (e *Engine) planAdd(s Session, q model.Quadrant, text string) *mutation {
	if !e.precheck(OpAdd, s, q) {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return e.reject(OpAdd, q, "empty text")
	}
	task := model.Task{
		ID:        e.newID(),
		Text:      text,
		Quadrant:  q,
		CreatedAt: e.now(),
	}
	row := store.NewTask{
		ID:       task.ID,
		Text:     task.Text,
		Quadrant: q,
		UserID:   s.UserID,
	}
	return &mutation{
		op:       OpAdd,
		quadrant: q,
		key:      task.ID,
		entity:   taskKey(q, task.ID),
		failure:  "Failed to add task",
		apply: func(st *entityState) {
			*st = entityState{present: true, task: task}
		},
		remote: func(ctx context.Context, c store.Client) error {
			return c.CreateTask(ctx, row)
		},
	}
}

func (e *Engine) planToggle(s Session, q model.Quadrant, id string) *mutation {
	if !e.precheck(OpToggle, s, q) {
		return nil
	}
	task, _, ok := e.tasks.Find(q, id)
	if !ok {
		return e.reject(OpToggle, q, "task not found")
	}
	next := !task.Completed
	userID := s.UserID
	return &mutation{
		op:       OpToggle,
		quadrant: q,
		key:      id,
		entity:   taskKey(q, id),
		failure:  "Failed to update task",
		apply: func(st *entityState) {
			st.task.Completed = next
		},
		remote: func(ctx context.Context, c store.Client) error {
			return c.UpdateTaskCompleted(ctx, userID, id, next)
		},
	}
}

func (e *Engine) planDelete(s Session, q model.Quadrant, id string) *mutation {
	if !e.precheck(OpDelete, s, q) {
		return nil
	}
	if _, _, ok := e.tasks.Find(q, id); !ok {
		return e.reject(OpDelete, q, "task not found")
	}
	userID := s.UserID
	return &mutation{
		op:       OpDelete,
		quadrant: q,
		key:      id,
		entity:   taskKey(q, id),
		failure:  "Failed to delete task",
		apply: func(st *entityState) {
			st.present = false
		},
		remote: func(ctx context.Context, c store.Client) error {
			return c.DeleteTask(ctx, userID, id)
		},
	}
}

func (e *Engine) planEdit(s Session, q model.Quadrant, id, text string) *mutation {
	if !e.precheck(OpEdit, s, q) {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return e.reject(OpEdit, q, "empty text")
	}
	task, _, ok := e.tasks.Find(q, id)
	if !ok {
		return e.reject(OpEdit, q, "task not found")
	}
	if task.Text == text {
		return e.reject(OpEdit, q, "text unchanged")
	}
	userID := s.UserID
	return &mutation{
		op:       OpEdit,
		quadrant: q,
		key:      id,
		entity:   taskKey(q, id),
		failure:  "Failed to update task",
		apply: func(st *entityState) {
			st.task.Text = text
		},
		remote: func(ctx context.Context, c store.Client) error {
			return c.UpdateTaskText(ctx, userID, id, text)
		},
	}
}

func (e *Engine) planSubtitle(s Session, q model.Quadrant, subtitle string) *mutation {
	if !e.precheck(OpSubtitle, s, q) {
		return nil
	}
	subtitle = strings.TrimSpace(subtitle)
	if subtitle == "" {
		return e.reject(OpSubtitle, q, "empty subtitle")
	}
	if e.settings.Effective(q, e.now()) == subtitle {
		return e.reject(OpSubtitle, q, "subtitle unchanged")
	}
	row := store.SubtitleRow{UserID: s.UserID, Quadrant: string(q), Subtitle: subtitle}
	return &mutation{
		op:       OpSubtitle,
		quadrant: q,
		key:      string(q),
		entity:   subtitleKey(q),
		failure:  "Failed to update subtitle",
		apply: func(st *entityState) {
			st.present = true
			st.subtitle = subtitle
		},
		remote: func(ctx context.Context, c store.Client) error {
			return c.UpsertSubtitle(ctx, row)
		},
	}
}
