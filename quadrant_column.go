package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	domain "github.com/bekirdag/goal/internal/model"
)

// quadrantColumn renders one quadrant and tracks its cursor. Tasks are passed
// in on every call; the engine owns them.
type quadrantColumn struct {
	quadrant domain.Quadrant
	cursor   int
	offset   int
	width    int
	height   int
}

func newQuadrantColumn(q domain.Quadrant) *quadrantColumn {
	return &quadrantColumn{quadrant: q}
}

func (c *quadrantColumn) SetSize(width, height int) {
	c.width = max(width, 12)
	c.height = max(height, 5)
}

func (c *quadrantColumn) Title() string {
	return c.quadrant.Title()
}

// Clamp keeps the cursor inside a list of n tasks.
func (c *quadrantColumn) Clamp(n int) {
	if n == 0 {
		c.cursor, c.offset = 0, 0
		return
	}
	c.cursor = min(max(c.cursor, 0), n-1)
}

func (c *quadrantColumn) Move(delta, n int) {
	c.cursor += delta
	c.Clamp(n)
}

func (c *quadrantColumn) Selected(tasks []domain.Task) (domain.Task, bool) {
	c.Clamp(len(tasks))
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	return tasks[c.cursor], true
}

// rows is the number of task lines that fit below the title and subtitle.
func (c *quadrantColumn) rows() int {
	return max(c.height-4, 1)
}

func (c *quadrantColumn) scroll() {
	rows := c.rows()
	if c.cursor < c.offset {
		c.offset = c.cursor
	}
	if c.cursor >= c.offset+rows {
		c.offset = c.cursor - rows + 1
	}
	c.offset = max(c.offset, 0)
}

func (c *quadrantColumn) View(s styles, subtitle string, tasks []domain.Task, focused bool) string {
	c.Clamp(len(tasks))
	c.scroll()
	accent := s.accent(c.quadrant)
	inner := max(c.width-4, 8)

	title := s.quadrantTitle.Copy().Foreground(accent).Render(c.Title())
	if len(tasks) > 0 {
		done := 0
		for _, t := range tasks {
			if t.Completed {
				done++
			}
		}
		title += s.quadrantSubtitle.Render(fmt.Sprintf("  %d/%d", done, len(tasks)))
	}
	lines := []string{title, s.quadrantSubtitle.Render(truncate.StringWithTail(subtitle, uint(inner), "…"))}

	if len(tasks) == 0 {
		lines = append(lines, "", s.empty.Render("No tasks yet"))
	} else {
		end := min(c.offset+c.rows(), len(tasks))
		for i := c.offset; i < end; i++ {
			lines = append(lines, c.renderTask(s, tasks[i], focused && i == c.cursor, inner))
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	panel := s.panel
	if focused {
		panel = s.panelFocused.Copy().BorderForeground(accent)
	}
	return panel.Width(c.width - 2).Height(c.height - 2).Render(body)
}

func (c *quadrantColumn) renderTask(s styles, t domain.Task, selected bool, width int) string {
	marker := "[ ]"
	style := s.listItem
	if t.Completed {
		marker = "[x]"
		style = s.listDone
	}
	prefix := "  "
	if selected {
		prefix = "› "
		if !t.Completed {
			style = s.listSel
		}
	}
	text := truncate.StringWithTail(strings.ReplaceAll(t.Text, "\n", " "), uint(max(width-6, 1)), "…")
	return prefix + marker + " " + style.Render(text)
}
