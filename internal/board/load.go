package board

import (
	"context"
	"errors"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bekirdag/goal/internal/model"
	"github.com/bekirdag/goal/internal/store"
)

// LoadedMsg is the result of one initial load pass.
type LoadedMsg struct {
	Session      Session
	Tasks        []store.TaskRow
	Subtitles    []store.SubtitleRow
	UserErr      error
	TasksErr     error
	SubtitlesErr error
}

// Load resolves the current user and fetches everything scoped to it.
func (e *Engine) Load() tea.Cmd {
	ctx, client := e.ctx, e.client
	return func() tea.Msg {
		return fetchBoard(ctx, client)
	}
}

func fetchBoard(ctx context.Context, client store.Client) LoadedMsg {
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return LoadedMsg{UserErr: err}
	}
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return LoadedMsg{}
	}
	msg := LoadedMsg{Session: Session{UserID: user.ID}}
	msg.Tasks, msg.TasksErr = client.ListTasks(ctx, user.ID)
	if msg.TasksErr != nil {
		return msg
	}
	msg.Subtitles, msg.SubtitlesErr = client.ListSubtitles(ctx, user.ID)
	return msg
}

func (e *Engine) applyLoad(msg LoadedMsg) tea.Cmd {
	prev := e.session
	cmd := e.replaceBoard(msg)
	e.rebase(prev)
	return cmd
}

func (e *Engine) replaceBoard(msg LoadedMsg) tea.Cmd {
	e.loaded = true
	e.session = msg.Session
	e.tasks.Load(nil)
	e.settings.Load(nil)

	switch {
	case msg.UserErr != nil:
		e.session = Session{}
		e.log.Error("resolve current user", "err", msg.UserErr)
		return e.setError("Could not resolve the current user")
	case !msg.Session.SignedIn():
		e.log.Info("no signed-in user, showing signed-out view")
		return nil
	case msg.TasksErr != nil:
		e.log.Error("load tasks", "user", msg.Session.UserID, "err", msg.TasksErr)
		return e.setError("Could not load tasks")
	}

	e.tasks.Load(e.groupTasks(msg.Tasks))

	if msg.SubtitlesErr != nil {
		if errors.Is(msg.SubtitlesErr, store.ErrSchemaAbsent) {
			e.log.Info("subtitle table not provisioned, using defaults")
		} else {
			e.log.Error("load subtitles", "user", msg.Session.UserID, "err", msg.SubtitlesErr)
		}
		return nil
	}
	e.settings.Load(e.groupSubtitles(msg.Subtitles))
	e.log.Info("board loaded", "user", msg.Session.UserID, "tasks", len(msg.Tasks), "subtitles", len(msg.Subtitles))
	return nil
}

func (e *Engine) groupTasks(rows []store.TaskRow) map[model.Quadrant][]model.Task {
	grouped := make(map[model.Quadrant][]model.Task, len(model.Quadrants))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		task, err := row.Normalize()
		if err != nil {
			e.log.Warn("skipping malformed task row", "err", err)
			continue
		}
		if seen[task.ID] {
			e.log.Warn("skipping duplicate task row", "id", task.ID)
			continue
		}
		seen[task.ID] = true
		grouped[task.Quadrant] = append(grouped[task.Quadrant], task)
	}
	for q := range grouped {
		list := grouped[q]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		})
	}
	return grouped
}

func (e *Engine) groupSubtitles(rows []store.SubtitleRow) map[model.Quadrant]string {
	out := make(map[model.Quadrant]string, len(rows))
	for _, row := range rows {
		q, err := model.ParseQuadrant(row.Quadrant)
		if err != nil {
			e.log.Warn("skipping subtitle row", "err", err)
			continue
		}
		subtitle := strings.TrimSpace(row.Subtitle)
		if subtitle == "" {
			continue
		}
		out[q] = subtitle
	}
	return out
}
