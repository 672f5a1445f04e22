// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the soundboard UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and blocks until the user quits
func Run(controller Controller, volumes Volumes) error {
	p := tea.NewProgram(NewModel(controller, volumes), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
