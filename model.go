package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bekirdag/goal/internal/board"
	domain "github.com/bekirdag/goal/internal/model"
)

type inputMode int

const (
	inputNone inputMode = iota
	inputAddTask
	inputEditTask
	inputEditSubtitle
)

type clockTickMsg time.Time

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockTickMsg(t)
	})
}

type modelOptions struct {
	engine    *board.Engine
	theme     themeName
	journal   *syncJournal
	logger    *slog.Logger
	now       func() time.Time
	copy      func(string) error
}

type model struct {
	width  int
	height int

	styles styles
	keys   keyMap
	help   help.Model
	theme  themeName

	engine    *board.Engine
	journal   *syncJournal
	log       *slog.Logger

	columns  []*quadrantColumn
	focus    int
	expanded bool

	inputActive bool
	inputMode   inputMode
	inputPrompt string
	inputTarget string
	inputField  textinput.Model

	spinner spinner.Model

	showSummary bool
	summary     string
	renderer    summaryRenderer

	toastMessage string
	toastExpires time.Time

	now      func() time.Time
	clock    time.Time
	copyText func(string) error
}

func newModel(opts modelOptions) *model {
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.copy == nil {
		opts.copy = clipboard.WriteAll
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}

	input := textinput.New()
	input.CharLimit = 280
	input.Prompt = "› "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &model{
		keys:       newKeyMap(),
		help:       help.New(),
		theme:      opts.theme,
		engine:     opts.engine,
		journal:    opts.journal,
		log:        opts.logger,
		inputField: input,
		spinner:    spin,
		renderer:   summaryRenderer{wrap: 80},
		now:        opts.now,
		clock:      opts.now(),
		copyText:   opts.copy,
	}
	for _, q := range domain.Quadrants {
		m.columns = append(m.columns, newQuadrantColumn(q))
	}
	m.applyTheme(opts.theme)
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.engine.Load(), m.spinner.Tick, clockTick())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The engine sees every message first; it only reacts to its own.
	if cmd := m.engine.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.applyLayout()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case clockTickMsg:
		m.clock = time.Time(msg)
		cmds = append(cmds, clockTick())
	case board.LoadedMsg:
		m.clampColumns()
		if m.engine.Session().SignedIn() {
			m.journal.record(journalEntry{Event: eventSessionStarted, UserID: m.engine.Session().UserID})
		}
	case board.MutationResultMsg:
		m.clampColumns()
	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.inputActive {
		return m.handleInputKey(msg)
	}
	if m.showSummary {
		switch {
		case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.summary):
			m.showSummary = false
		case key.Matches(msg, m.keys.quit):
			return tea.Quit
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.applyLayout()
		return nil
	case key.Matches(msg, m.keys.toggleTheme):
		m.applyTheme(m.theme.toggled())
		m.setToast(m.theme.Label()+" theme", 2*time.Second)
		return nil
	case key.Matches(msg, m.keys.reload):
		return m.engine.Load()
	}

	session := m.engine.Session()
	if !m.engine.Loaded() || !session.SignedIn() {
		return nil
	}

	col := m.columns[m.focus]
	tasks := m.engine.Tasks(col.quadrant)

	switch {
	case key.Matches(msg, m.keys.nextFocus):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.prevFocus):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.up):
		col.Move(-1, len(tasks))
	case key.Matches(msg, m.keys.down):
		col.Move(1, len(tasks))
	case key.Matches(msg, m.keys.expand):
		m.expanded = !m.expanded
		m.applyLayout()
	case key.Matches(msg, m.keys.toggle):
		if task, ok := col.Selected(tasks); ok {
			return m.engine.ToggleTask(session, col.quadrant, task.ID)
		}
	case key.Matches(msg, m.keys.remove):
		if task, ok := col.Selected(tasks); ok {
			return m.engine.DeleteTask(session, col.quadrant, task.ID)
		}
	case key.Matches(msg, m.keys.add):
		return m.openInput(inputAddTask, "Add a new task...", "", "")
	case key.Matches(msg, m.keys.edit):
		if task, ok := col.Selected(tasks); ok {
			return m.openInput(inputEditTask, "Edit task", task.Text, task.ID)
		}
	case key.Matches(msg, m.keys.subtitle):
		return m.openInput(inputEditSubtitle, col.Title()+" subtitle", m.engine.Subtitle(col.quadrant), "")
	case key.Matches(msg, m.keys.copyText):
		m.copySelected(tasks)
	case key.Matches(msg, m.keys.summary):
		m.openSummary()
	}
	return nil
}

func (m *model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.closeInput()
		return nil
	case key.Matches(msg, m.keys.confirm):
		return m.submitInput()
	}
	var cmd tea.Cmd
	m.inputField, cmd = m.inputField.Update(msg)
	return cmd
}

func (m *model) openInput(mode inputMode, prompt, value, target string) tea.Cmd {
	m.inputActive = true
	m.inputMode = mode
	m.inputPrompt = prompt
	m.inputTarget = target
	m.inputField.Placeholder = prompt
	m.inputField.SetValue(value)
	m.inputField.CursorEnd()
	return m.inputField.Focus()
}

func (m *model) closeInput() {
	m.inputActive = false
	m.inputMode = inputNone
	m.inputPrompt = ""
	m.inputTarget = ""
	m.inputField.Reset()
	m.inputField.Blur()
}

// submitInput hands the entry to the engine. A rejected entry leaves the
// input open so it can be corrected.
func (m *model) submitInput() tea.Cmd {
	session := m.engine.Session()
	q := m.columns[m.focus].quadrant
	value := m.inputField.Value()

	var cmd tea.Cmd
	switch m.inputMode {
	case inputAddTask:
		cmd = m.engine.AddTask(session, q, value)
		if cmd != nil {
			m.columns[m.focus].cursor = 0
		}
	case inputEditTask:
		cmd = m.engine.EditTaskText(session, q, m.inputTarget, value)
		if cmd == nil && strings.TrimSpace(value) != "" {
			m.closeInput()
			return nil
		}
	case inputEditSubtitle:
		cmd = m.engine.SetSubtitle(session, q, value)
		if cmd == nil && strings.TrimSpace(value) != "" {
			m.closeInput()
			return nil
		}
	}
	if cmd == nil {
		m.setToast("Text cannot be empty", 3*time.Second)
		return nil
	}
	m.closeInput()
	return cmd
}

func (m *model) copySelected(tasks []domain.Task) {
	task, ok := m.columns[m.focus].Selected(tasks)
	if !ok {
		m.setToast("Select a task first", 3*time.Second)
		return
	}
	if err := m.copyText(task.Text); err != nil {
		m.log.Warn("copy to clipboard", "err", err)
		m.setToast("Clipboard unavailable", 4*time.Second)
		return
	}
	m.setToast("Task copied to clipboard", 3*time.Second)
}

func (m *model) openSummary() {
	quadrants := make([]summaryQuadrant, 0, len(domain.Quadrants))
	for _, q := range domain.Quadrants {
		quadrants = append(quadrants, summaryQuadrant{
			Quadrant: q,
			Subtitle: m.engine.Subtitle(q),
			Tasks:    m.engine.Tasks(q),
		})
	}
	m.summary = m.renderer.Render(boardSummaryMarkdown(m.clock, quadrants))
	m.showSummary = true
}

func (m *model) moveFocus(delta int) {
	if m.expanded {
		m.expanded = false
		m.applyLayout()
	}
	n := len(m.columns)
	m.focus = ((m.focus+delta)%n + n) % n
}

func (m *model) clampColumns() {
	for _, col := range m.columns {
		col.Clamp(len(m.engine.Tasks(col.quadrant)))
	}
}

func (m *model) applyTheme(theme themeName) {
	m.theme = theme
	m.styles = newStyles(theme)
	m.renderer.configure(theme, m.renderer.wrap)
}

func (m *model) applyLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.renderer.configure(m.theme, min(m.width-8, 100))
	m.help.Width = max(m.width-4, 0)
	m.inputField.Width = max(min(64, m.width-4)-8, 10)

	chrome := 4
	if m.help.ShowAll {
		chrome += 5
	}
	body := max(m.height-chrome, 10)
	if m.expanded {
		m.columns[m.focus].SetSize(m.width, body)
		return
	}
	left := m.width / 2
	top := body / 2
	for i, col := range m.columns {
		w := left
		if i%2 == 1 {
			w = m.width - left
		}
		h := top
		if i >= 2 {
			h = body - top
		}
		col.SetSize(w, h)
	}
}

func (m *model) setToast(msg string, duration time.Duration) {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		m.toastMessage = ""
		m.toastExpires = time.Time{}
		return
	}
	if duration <= 0 {
		duration = 5 * time.Second
	}
	m.toastMessage = trimmed
	m.toastExpires = m.now().Add(duration)
}

func (m *model) View() string {
	var builder strings.Builder

	builder.WriteString(m.renderHeader())
	builder.WriteRune('\n')

	if banner := m.engine.Err(); banner != "" {
		builder.WriteString(m.styles.banner.Width(m.width).Render(banner))
		builder.WriteRune('\n')
	}

	session := m.engine.Session()
	switch {
	case !m.engine.Loaded():
		builder.WriteString(m.renderSplash(m.spinner.View() + " Loading..."))
	case !session.SignedIn():
		builder.WriteString(m.renderSplash("You are signed out.\nSet GOAL_USER or `user:` in config.yaml, then press r to reload."))
	case m.showSummary:
		overlay := m.styles.cmdOverlay.Width(max(m.width-4, 24)).Render(strings.TrimRight(m.summary, "\n"))
		builder.WriteString(overlay)
	default:
		builder.WriteString(m.renderGrid())
	}
	builder.WriteRune('\n')

	if helpView := m.help.View(m.keys); helpView != "" {
		builder.WriteString(helpView)
		if !strings.HasSuffix(helpView, "\n") {
			builder.WriteRune('\n')
		}
	}
	builder.WriteString(m.renderStatus())

	if m.inputActive {
		builder.WriteString("\n")
		builder.WriteString(m.renderInput())
	}
	return m.styles.app.Render(builder.String())
}

func (m *model) renderHeader() string {
	brand := m.styles.brand.Render("GOAL")
	clock := m.styles.clock.Render(m.clock.Format("15:04:05") + "  " + m.clock.Format("Monday, January 2, 2006"))
	gap := max(m.width-lipgloss.Width(brand)-lipgloss.Width(clock)-2, 1)
	return m.styles.topBar.Render(brand + strings.Repeat(" ", gap) + clock)
}

func (m *model) renderSplash(text string) string {
	body := m.styles.splash.Render(text)
	return lipgloss.Place(m.width, max(m.height-4, 3), lipgloss.Center, lipgloss.Center, body)
}

func (m *model) renderGrid() string {
	if m.expanded {
		col := m.columns[m.focus]
		return col.View(m.styles, m.engine.Subtitle(col.quadrant), m.engine.Tasks(col.quadrant), true)
	}
	views := make([]string, len(m.columns))
	for i, col := range m.columns {
		views[i] = col.View(m.styles, m.engine.Subtitle(col.quadrant), m.engine.Tasks(col.quadrant), i == m.focus)
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, views[0], views[1])
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, views[2], views[3])
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func (m *model) renderInput() string {
	overlayWidth := min(64, m.width-4)
	if overlayWidth < 24 {
		overlayWidth = 24
	}
	var content strings.Builder
	content.WriteString(m.styles.cmdPrompt.Render(m.inputPrompt))
	content.WriteRune('\n')
	content.WriteString(m.inputField.View())
	content.WriteRune('\n')
	content.WriteString(m.styles.cmdHint.Render("enter save • esc cancel"))
	overlay := m.styles.cmdOverlay.Width(overlayWidth).Render(content.String())
	return lipgloss.Place(m.width, 5, lipgloss.Center, lipgloss.Center, overlay)
}

func (m *model) renderStatus() string {
	col := m.columns[m.focus]
	segments := []string{
		m.styles.statusSeg.Render(fmt.Sprintf("%s: %d tasks", col.Title(), len(m.engine.Tasks(col.quadrant)))),
	}
	if session := m.engine.Session(); session.SignedIn() {
		segments = append(segments, m.styles.statusSeg.Render("User: "+session.UserID))
	}
	if pending := m.engine.Pending(); pending > 0 {
		segments = append(segments, m.styles.statusSeg.Render(fmt.Sprintf("%s Syncing %d", m.spinner.View(), pending)))
	}
	segments = append(segments, m.styles.statusSeg.Render("Theme: "+m.theme.Label()))
	if m.toastMessage != "" {
		if m.now().After(m.toastExpires) {
			m.toastMessage = ""
		} else {
			segments = append(segments, m.styles.statusSeg.Render(m.toastMessage))
		}
	}
	content := strings.Join(segments, lipgloss.NewStyle().Render("│"))
	return m.styles.statusBar.Width(m.width).Render(content)
}
