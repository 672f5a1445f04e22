// ABOUTME: Bubbletea model for the soundboard TUI
// ABOUTME: Sound list navigation, playback keys and sink volume display
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/soundbridge/soundbridge-go/internal/board"
	"github.com/soundbridge/soundbridge-go/internal/library"
)

// Controller is the playback surface the TUI drives. Implemented by
// the board; tests supply a fake.
type Controller interface {
	Play(soundID string, opts board.PlayOptions) error
	Stop(soundID string)
	StopAll()
	IsPlaying(soundID string) bool
	Position(soundID string) (float64, bool)
	Sounds() []library.Sound
}

// Volumes is the sink volume surface the TUI drives
type Volumes interface {
	SetVirtualVolume(v float32)
	VirtualVolume() float32
	SetCaptureEnabled(enabled bool) error
	CaptureEnabled() bool
}

// tickMsg refreshes the now-playing markers
type tickMsg time.Time

// refreshPeriod keeps positions moving without redrawing too often
const refreshPeriod = 250 * time.Millisecond

// Model represents the TUI state
type Model struct {
	controller Controller
	volumes    Volumes

	sounds []library.Sound
	cursor int

	status string

	width  int
	height int
}

// NewModel creates a TUI model over a playback controller
func NewModel(controller Controller, volumes Volumes) Model {
	m := Model{
		controller: controller,
		volumes:    volumes,
	}
	if controller != nil {
		m.sounds = controller.Sounds()
	}
	return m
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshPeriod, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tick()
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.sounds)-1 {
			m.cursor++
		}

	case "enter", " ":
		if snd, ok := m.selected(); ok {
			m.playSound(snd, board.PlayOptions{})
		}

	case "l":
		// Preview: speakers only, nothing reaches the virtual mic
		if snd, ok := m.selected(); ok {
			m.playSound(snd, board.PlayOptions{LocalOnly: true})
		}

	case "o":
		if snd, ok := m.selected(); ok {
			m.playSound(snd, board.PlayOptions{Monitor: true})
		}

	case "c":
		if snd, ok := m.selected(); ok {
			m.playSound(snd, board.PlayOptions{ConcurrentAllowed: true})
		}

	case "s":
		if snd, ok := m.selected(); ok {
			m.controller.Stop(snd.ID)
			m.status = fmt.Sprintf("Stopped %s", snd.Name)
		}

	case "esc", "S":
		m.controller.StopAll()
		m.status = "Stopped all sounds"

	case "+", "=":
		if m.volumes != nil {
			m.volumes.SetVirtualVolume(m.volumes.VirtualVolume() + 0.05)
		}

	case "-":
		if m.volumes != nil {
			m.volumes.SetVirtualVolume(m.volumes.VirtualVolume() - 0.05)
		}

	case "m":
		if m.volumes != nil {
			if err := m.volumes.SetCaptureEnabled(!m.volumes.CaptureEnabled()); err != nil {
				m.status = fmt.Sprintf("Mic passthrough failed: %v", err)
			} else if m.volumes.CaptureEnabled() {
				m.status = "Mic passthrough on"
			} else {
				m.status = "Mic passthrough off"
			}
		}

	case "r":
		m.sounds = m.controller.Sounds()
		if m.cursor >= len(m.sounds) {
			m.cursor = len(m.sounds) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.status = "Library reloaded"
	}

	return m, nil
}

// selected returns the sound under the cursor
func (m Model) selected() (library.Sound, bool) {
	if m.cursor < 0 || m.cursor >= len(m.sounds) {
		return library.Sound{}, false
	}
	return m.sounds[m.cursor], true
}

// playSound starts a sound and records the outcome in the status line
func (m *Model) playSound(snd library.Sound, opts board.PlayOptions) {
	if err := m.controller.Play(snd.ID, opts); err != nil {
		m.status = fmt.Sprintf("Play failed: %v", err)
		return
	}
	switch {
	case opts.LocalOnly:
		m.status = fmt.Sprintf("Previewing %s (speakers only)", snd.Name)
	case opts.Monitor:
		m.status = fmt.Sprintf("Playing %s (monitored)", snd.Name)
	default:
		m.status = fmt.Sprintf("Playing %s", snd.Name)
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.renderHeader()
	s += m.renderSounds()
	s += m.renderStatus()
	s += m.renderHelp()
	return s
}

// renderHeader renders the title bar and sink state
func (m Model) renderHeader() string {
	volume := 0
	mic := "off"
	if m.volumes != nil {
		volume = int(m.volumes.VirtualVolume() * 100)
		if m.volumes.CaptureEnabled() {
			mic = "on"
		}
	}

	return fmt.Sprintf(`┌─ Soundbridge ────────────────────────────────────────┐
│ Virtual volume: [%s] %3d%%   Mic passthrough: %-3s │
├──────────────────────────────────────────────────────┤
`, renderBar(volume, 100, 10), volume, mic)
}

// renderSounds renders the sound list with playback markers
func (m Model) renderSounds() string {
	if len(m.sounds) == 0 {
		return "│ Library is empty                                     │\n"
	}

	s := ""
	for i, snd := range m.sounds {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		marker := "  "
		if m.controller.IsPlaying(snd.ID) {
			if pos, ok := m.controller.Position(snd.ID); ok {
				marker = fmt.Sprintf("▶ %5.1fs", pos)
			} else {
				marker = "▶"
			}
		}

		s += fmt.Sprintf("│ %s %-30s %-8s %-10s │\n",
			cursor, truncate(snd.Name, 30), truncate(snd.Hotkey, 8), marker)
	}
	return s
}

// renderStatus renders the last action's outcome
func (m Model) renderStatus() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ %-52s │
`, truncate(m.status, 52))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ enter:Play  l:Preview  c:Overlap  s:Stop  S:Stop all │
│ +/-:Volume  m:Mic  r:Reload  q:Quit                  │
└──────────────────────────────────────────────────────┘
`
}

// Utility functions
func renderBar(value, max, width int) string {
	if value > max {
		value = max
	}
	if value < 0 {
		value = 0
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	if length <= 3 {
		return s[:length]
	}
	return s[:length-3] + "..."
}
