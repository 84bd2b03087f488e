package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the share form until it is saved, cancelled or closed.
func Run(opts Options) (Result, error) {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Result{}, err
	}
	if fm, ok := final.(Model); ok {
		return fm.Result(), nil
	}
	return Result{}, nil
}
