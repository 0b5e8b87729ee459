package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	domain "github.com/bekirdag/goal/internal/model"
)

// summaryRenderer turns the board summary document into styled terminal
// output. The glamour renderer is rebuilt on the next render after the theme
// or wrap width changes.
type summaryRenderer struct {
	theme themeName
	wrap  int
	term  *glamour.TermRenderer
}

func (r *summaryRenderer) configure(theme themeName, wrap int) {
	wrap = max(wrap, 0)
	if r.term != nil && r.theme == theme && r.wrap == wrap {
		return
	}
	r.theme, r.wrap, r.term = theme, wrap, nil
}

// Render falls back to the raw document when glamour cannot be set up.
func (r *summaryRenderer) Render(doc string) string {
	if r.term == nil {
		style := glamour.WithAutoStyle()
		if r.theme != themeAuto {
			style = glamour.WithStandardStyle(string(r.theme))
		}
		term, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(r.wrap))
		if err != nil {
			return doc
		}
		r.term = term
	}
	out, err := r.term.Render(doc)
	if err != nil {
		return doc
	}
	return out
}

type summaryQuadrant struct {
	Quadrant domain.Quadrant
	Subtitle string
	Tasks    []domain.Task
}

// boardSummaryMarkdown lays the board out as a Markdown document: one section
// per quadrant with a completion count and a checklist.
func boardSummaryMarkdown(now time.Time, quadrants []summaryQuadrant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Goals for %s\n\n", now.Format("Monday, January 2, 2006"))
	total, done := 0, 0
	for _, q := range quadrants {
		completed := 0
		for _, t := range q.Tasks {
			if t.Completed {
				completed++
			}
		}
		total += len(q.Tasks)
		done += completed
		fmt.Fprintf(&b, "## %s: %s\n\n", q.Quadrant.Title(), q.Subtitle)
		if len(q.Tasks) == 0 {
			b.WriteString("_No tasks yet_\n\n")
			continue
		}
		fmt.Fprintf(&b, "%d of %d done\n\n", completed, len(q.Tasks))
		for _, t := range q.Tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, escapeMarkdown(t.Text))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "---\n\n**%d of %d tasks complete**\n", done, total)
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
