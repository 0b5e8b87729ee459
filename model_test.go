package main

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekirdag/goal/internal/board"
	domain "github.com/bekirdag/goal/internal/model"
	"github.com/bekirdag/goal/internal/store"
)

var fixedNow = time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC)

type testBoard struct {
	m      *model
	mem    *store.Memory
	copied []string
}

func newTestBoard(t *testing.T, user string, seed ...store.NewTask) *testBoard {
	t.Helper()
	mem := store.NewMemory(user)
	for _, row := range seed {
		row.UserID = user
		require.NoError(t, mem.CreateTask(context.Background(), row))
	}
	tb := &testBoard{mem: mem}
	engine := board.NewEngine(context.Background(), mem, board.Options{Now: func() time.Time { return fixedNow }})
	tb.m = newModel(modelOptions{
		engine: engine,
		theme:  themeDark,
		now:    func() time.Time { return fixedNow },
		copy: func(s string) error {
			tb.copied = append(tb.copied, s)
			return nil
		},
	})
	tb.m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return tb
}

func (tb *testBoard) load() {
	tb.m.Update(tb.m.engine.Load()())
}

// press handles one key and resolves the engine command it produced, if any.
func (tb *testBoard) press(k tea.KeyMsg) {
	cmd := tb.m.handleKey(k)
	if cmd == nil {
		return
	}
	if msg, ok := cmd().(board.MutationResultMsg); ok {
		tb.m.Update(msg)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter    = tea.KeyMsg{Type: tea.KeyEnter}
	esc      = tea.KeyMsg{Type: tea.KeyEsc}
	tab      = tea.KeyMsg{Type: tea.KeyTab}
	shiftTab = tea.KeyMsg{Type: tea.KeyShiftTab}
	space    = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func TestViewLoadingThenEmptyBoard(t *testing.T) {
	tb := newTestBoard(t, "alice")
	assert.Contains(t, tb.m.View(), "Loading...")

	tb.load()
	view := tb.m.View()
	assert.Contains(t, view, "GOAL")
	assert.Contains(t, view, "Today's Focus")
	assert.Contains(t, view, "2026 Goals")
	assert.Contains(t, view, "No tasks yet")
	assert.Contains(t, view, "Saturday, October 17, 2026")
}

func TestViewSignedOut(t *testing.T) {
	tb := newTestBoard(t, "")
	tb.load()
	assert.Contains(t, tb.m.View(), "signed out")

	tb.press(runes("a"))
	assert.False(t, tb.m.inputActive)
}

func TestAddTaskFromInput(t *testing.T) {
	tb := newTestBoard(t, "alice")
	tb.load()

	tb.m.handleKey(runes("a"))
	require.True(t, tb.m.inputActive)
	tb.m.handleKey(runes("buy milk"))

	cmd := tb.m.handleKey(enter)
	require.NotNil(t, cmd)
	assert.False(t, tb.m.inputActive)
	tasks := tb.m.engine.Tasks(domain.Daily)
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].Text)
	assert.Equal(t, 1, tb.m.engine.Pending())
	assert.Contains(t, tb.m.View(), "Syncing 1")

	tb.m.Update(cmd())
	assert.Zero(t, tb.m.engine.Pending())
	assert.Equal(t, 1, tb.mem.Calls(store.OpCreateTask))
	assert.Contains(t, tb.m.View(), "buy milk")
}

func TestEmptyInputStaysOpen(t *testing.T) {
	tb := newTestBoard(t, "alice")
	tb.load()

	tb.m.handleKey(runes("a"))
	tb.m.handleKey(runes("   "))
	assert.Nil(t, tb.m.handleKey(enter))
	assert.True(t, tb.m.inputActive)
	assert.Equal(t, "Text cannot be empty", tb.m.toastMessage)

	tb.m.handleKey(esc)
	assert.False(t, tb.m.inputActive)
	assert.Zero(t, tb.mem.Calls(store.OpCreateTask))
}

func TestToggleAndDeleteKeys(t *testing.T) {
	tb := newTestBoard(t, "alice",
		store.NewTask{ID: "t1", Text: "older", Quadrant: domain.Daily},
		store.NewTask{ID: "t2", Text: "newer", Quadrant: domain.Daily},
	)
	tb.load()

	tb.press(runes("j"))
	tb.press(space)
	tasks := tb.m.engine.Tasks(domain.Daily)
	assert.False(t, tasks[0].Completed)
	assert.True(t, tasks[1].Completed)

	tb.mem.FailOn(store.OpDeleteTask, errors.New("offline"))
	tb.press(runes("d"))
	assert.Len(t, tb.m.engine.Tasks(domain.Daily), 2)
	assert.Contains(t, tb.m.View(), "Failed to delete task")
}

func TestEditAndSubtitleKeys(t *testing.T) {
	tb := newTestBoard(t, "alice", store.NewTask{ID: "t1", Text: "draft", Quadrant: domain.Weekly})
	tb.load()
	tb.press(tab)
	require.Equal(t, 1, tb.m.focus)

	tb.m.handleKey(runes("e"))
	require.Equal(t, "draft", tb.m.inputField.Value())
	tb.m.inputField.SetValue("final")
	tb.press(enter)
	assert.Equal(t, "final", tb.m.engine.Tasks(domain.Weekly)[0].Text)

	tb.m.handleKey(runes("s"))
	assert.Equal(t, "This Week", tb.m.inputField.Value())
	tb.m.inputField.SetValue("Ship v2")
	tb.press(enter)
	assert.Equal(t, "Ship v2", tb.m.engine.Subtitle(domain.Weekly))

	tb.m.handleKey(runes("s"))
	assert.Nil(t, tb.m.handleKey(enter), "unchanged subtitle closes without a write")
	assert.False(t, tb.m.inputActive)
	assert.Equal(t, 1, tb.mem.Calls(store.OpUpsertSubtitle))
}

func TestFocusWraps(t *testing.T) {
	tb := newTestBoard(t, "alice")
	tb.load()

	tb.press(shiftTab)
	assert.Equal(t, 3, tb.m.focus)
	for i := 0; i < 4; i++ {
		tb.press(tab)
	}
	assert.Equal(t, 3, tb.m.focus)

	tb.press(runes("f"))
	assert.True(t, tb.m.expanded)
	assert.Contains(t, tb.m.View(), "Yearly")
	assert.NotContains(t, tb.m.View(), "Today's Focus")
	tb.press(tab)
	assert.False(t, tb.m.expanded)
	assert.Equal(t, 0, tb.m.focus)
}

func TestCopySelectedTask(t *testing.T) {
	tb := newTestBoard(t, "alice", store.NewTask{ID: "t1", Text: "call mom", Quadrant: domain.Daily})
	tb.load()

	tb.press(runes("y"))
	assert.Equal(t, []string{"call mom"}, tb.copied)
	assert.Equal(t, "Task copied to clipboard", tb.m.toastMessage)

	tb.m.copyText = func(string) error { return errors.New("no clipboard") }
	tb.press(runes("y"))
	assert.Equal(t, "Clipboard unavailable", tb.m.toastMessage)
}

func TestThemeToggleAndSummary(t *testing.T) {
	tb := newTestBoard(t, "alice", store.NewTask{ID: "t1", Text: "stretch", Quadrant: domain.Daily})
	tb.load()

	tb.press(runes("t"))
	assert.Equal(t, themeLight, tb.m.theme)
	assert.Contains(t, tb.m.View(), "Theme: Light")
	tb.press(runes("t"))
	assert.Equal(t, themeDark, tb.m.theme)

	tb.press(runes("m"))
	assert.True(t, tb.m.showSummary)
	assert.NotEmpty(t, tb.m.summary)
	tb.press(runes("a"))
	assert.False(t, tb.m.inputActive, "keys other than close are ignored in the summary")
	tb.press(esc)
	assert.False(t, tb.m.showSummary)
}

func TestToastExpires(t *testing.T) {
	tb := newTestBoard(t, "alice")
	tb.load()
	now := fixedNow
	tb.m.now = func() time.Time { return now }

	tb.m.setToast("hello", time.Second)
	assert.Contains(t, tb.m.renderStatus(), "hello")
	now = now.Add(2 * time.Second)
	assert.NotContains(t, tb.m.renderStatus(), "hello")
	assert.Empty(t, tb.m.toastMessage)
}
