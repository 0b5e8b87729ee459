package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	quit        key.Binding
	nextFocus   key.Binding
	prevFocus   key.Binding
	up          key.Binding
	down        key.Binding
	toggle      key.Binding
	add         key.Binding
	edit        key.Binding
	subtitle    key.Binding
	remove      key.Binding
	expand      key.Binding
	toggleTheme key.Binding
	copyText    key.Binding
	summary     key.Binding
	reload      key.Binding
	confirm     key.Binding
	cancel      key.Binding
	toggleHelp  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		nextFocus: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next quadrant"),
		),
		prevFocus: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("shift+tab", "prev quadrant"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle done"),
		),
		add: key.NewBinding(
			key.WithKeys("a", "n"),
			key.WithHelp("a", "add task"),
		),
		edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit task"),
		),
		subtitle: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "edit subtitle"),
		),
		remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete task"),
		),
		expand: key.NewBinding(
			key.WithKeys("f", "enter"),
			key.WithHelp("f", "expand quadrant"),
		),
		toggleTheme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle theme"),
		),
		copyText: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy task"),
		),
		summary: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "summary"),
		),
		reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		toggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.nextFocus,
		k.toggle,
		k.add,
		k.remove,
		k.expand,
		k.toggleHelp,
		k.quit,
	}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextFocus, k.prevFocus, k.up, k.down},
		{k.toggle, k.add, k.edit, k.remove},
		{k.subtitle, k.copyText, k.summary},
		{k.expand, k.toggleTheme, k.reload},
		{k.toggleHelp, k.quit},
	}
}
