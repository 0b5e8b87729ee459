package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	domain "github.com/bekirdag/goal/internal/model"
)

type themeName string

const (
	themeAuto  themeName = "auto"
	themeDark  themeName = "dark"
	themeLight themeName = "light"
)

// parseTheme maps anything unrecognised to auto.
func parseTheme(value string) themeName {
	switch theme := themeName(strings.ToLower(strings.TrimSpace(value))); theme {
	case themeDark, themeLight:
		return theme
	}
	return themeAuto
}

func (t themeName) Label() string {
	if t == themeAuto || t == "" {
		return "Auto"
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

func (t themeName) light() bool {
	if t == themeAuto || t == "" {
		return !lipgloss.HasDarkBackground()
	}
	return t == themeLight
}

// toggled flips between dark and light, resolving auto against the terminal
// background first.
func (t themeName) toggled() themeName {
	if t.light() {
		return themeDark
	}
	return themeLight
}

type paletteColors struct {
	text      lipgloss.Color
	textMuted lipgloss.Color
	border    lipgloss.Color
	danger    lipgloss.Color
	dangerBg  lipgloss.Color
	accents   map[domain.Quadrant]lipgloss.Color
}

var darkPalette = paletteColors{
	text:      lipgloss.Color("#E5E7EB"),
	textMuted: lipgloss.Color("#9CA3AF"),
	border:    lipgloss.Color("#374151"),
	danger:    lipgloss.Color("#FEE2E2"),
	dangerBg:  lipgloss.Color("#B91C1C"),
	accents: map[domain.Quadrant]lipgloss.Color{
		domain.Daily:   lipgloss.Color("#60A5FA"),
		domain.Weekly:  lipgloss.Color("#A78BFA"),
		domain.Monthly: lipgloss.Color("#F472B6"),
		domain.Yearly:  lipgloss.Color("#FB923C"),
	},
}

var lightPalette = paletteColors{
	text:      lipgloss.Color("#1F2937"),
	textMuted: lipgloss.Color("#6B7280"),
	border:    lipgloss.Color("#D1D5DB"),
	danger:    lipgloss.Color("#7F1D1D"),
	dangerBg:  lipgloss.Color("#FECACA"),
	accents: map[domain.Quadrant]lipgloss.Color{
		domain.Daily:   lipgloss.Color("#2563EB"),
		domain.Weekly:  lipgloss.Color("#7C3AED"),
		domain.Monthly: lipgloss.Color("#DB2777"),
		domain.Yearly:  lipgloss.Color("#EA580C"),
	},
}

type styles struct {
	app, topBar, brand, clock       lipgloss.Style
	panel, panelFocused             lipgloss.Style
	quadrantTitle, quadrantSubtitle lipgloss.Style
	listItem, listSel, listDone     lipgloss.Style
	empty                           lipgloss.Style
	banner                          lipgloss.Style
	statusBar, statusSeg            lipgloss.Style
	cmdOverlay, cmdPrompt, cmdHint  lipgloss.Style
	splash                          lipgloss.Style

	palette paletteColors
}

func newStyles(theme themeName) styles {
	palette := darkPalette
	if theme.light() {
		palette = lightPalette
	}
	base := lipgloss.NewStyle().Foreground(palette.text)
	panelBorder := lipgloss.RoundedBorder()
	focusedBorder := lipgloss.ThickBorder()

	return styles{
		app:              base,
		topBar:           base.Copy().Padding(0, 1),
		brand:            base.Copy().Bold(true),
		clock:            base.Copy().Foreground(palette.textMuted),
		panel:            base.Copy().BorderStyle(panelBorder).BorderForeground(palette.border).Padding(0, 1),
		panelFocused:     base.Copy().BorderStyle(focusedBorder).Padding(0, 1),
		quadrantTitle:    base.Copy().Bold(true),
		quadrantSubtitle: base.Copy().Foreground(palette.textMuted).Italic(true),
		listItem:         base,
		listSel:          base.Copy().Bold(true),
		listDone:         base.Copy().Foreground(palette.textMuted).Strikethrough(true),
		empty:            base.Copy().Foreground(palette.textMuted).Faint(true),
		banner:           base.Copy().Foreground(palette.danger).Background(palette.dangerBg).Bold(true).Padding(0, 1),
		statusBar:        base.Copy().Padding(0, 1),
		statusSeg:        base.Copy().Padding(0, 1).MarginRight(1),
		cmdOverlay:       base.Copy().Border(lipgloss.RoundedBorder()).Padding(1, 2),
		cmdPrompt:        base.Copy().Bold(true),
		cmdHint:          base.Copy().Faint(true),
		splash:           base.Copy().Foreground(palette.textMuted),
		palette:          palette,
	}
}

func (s styles) accent(q domain.Quadrant) lipgloss.Color {
	if c, ok := s.palette.accents[q]; ok {
		return c
	}
	return s.palette.text
}
