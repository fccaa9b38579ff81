package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"glasscribe/session"
)

// Rotating speaker colours; the wearer's own lines use userStyle.
var speakerStyles = [session.PaletteSize]lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("170")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("201")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("118")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("166")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("129")),
}

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKey     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)

	stateStyles = map[session.State]lipgloss.Style{
		session.StateDisconnected:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		session.StateConnecting:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		session.StateIdle:           lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		session.StateRecording:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		session.StateAwaitingResult: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		session.StateEnrolling:      lipgloss.NewStyle().Foreground(lipgloss.Color("135")),
	}
)

func stateLabel(s session.State) string {
	switch s {
	case session.StateDisconnected:
		return "○ DISCONNECTED"
	case session.StateConnecting:
		return "◌ CONNECTING"
	case session.StateIdle:
		return "● CONNECTED"
	case session.StateRecording:
		return "● RECORDING"
	case session.StateAwaitingResult:
		return "◍ PROCESSING"
	case session.StateEnrolling:
		return "◉ ENROLLING"
	}
	return "?"
}

type tuiModel struct {
	ctrl *session.Controller

	state         session.State
	status        string
	entries       []session.Entry
	excludeVoice  bool
	width, height int

	serverLine string
	deviceLine string
}

func NewTUIProgram(ctrl *session.Controller, server, device string) *tea.Program {
	m := tuiModel{
		ctrl:       ctrl,
		status:     "Press c to connect",
		serverLine: "server: " + server,
		deviceLine: "mic: " + device,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.ctrl.Post(session.DisconnectIntent{})
			return m, tea.Quit
		case "c":
			m.ctrl.Post(session.ConnectIntent{})
		case "r":
			m.ctrl.Post(session.StartRecordIntent{})
		case "s":
			m.ctrl.Post(session.StopRecordIntent{})
		case "d":
			m.ctrl.Post(session.DisconnectIntent{})
		case "e":
			m.ctrl.Post(session.EnrollIntent{})
		case "x":
			m.excludeVoice = !m.excludeVoice
			m.ctrl.Post(session.ExclusionIntent{Exclude: m.excludeVoice})
		}

	case StateMsg:
		m.state = msg.State

	case StatusMsg:
		m.status = msg.Text

	case SegmentMsg:
		m.entries = append(m.entries, msg.Entry)
		if len(m.entries) > session.LogCap {
			m.entries = m.entries[len(m.entries)-session.LogCap:]
		}

	case ClearMsg:
		m.entries = nil
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	badge := stateStyles[m.state].Render(stateLabel(m.state))
	b.WriteString(titleStyle.Render("glasscribe") + "  " + badge + "\n")
	b.WriteString(statusStyle.Render(m.serverLine) + "\n")
	b.WriteString(statusStyle.Render(m.deviceLine) + "\n\n")

	wrapWidth := m.width - 2
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	if len(m.entries) == 0 {
		b.WriteString(helpStyle.Render("No conversation yet") + "\n")
	}
	for _, e := range m.entries {
		style := entryStyle(e)
		line := fmt.Sprintf("%s: %s", e.Speaker, e.Text)
		for _, l := range wrapText(line, wrapWidth) {
			b.WriteString(style.Render(l) + "\n")
		}
	}

	b.WriteString("\n" + statusStyle.Render(m.status) + "\n\n")

	help := []struct{ key, action string }{
		{"c", "connect"},
		{"r", "record"},
		{"s", "stop"},
		{"e", "enroll voice"},
		{"x", "exclude my voice"},
		{"d", "disconnect"},
		{"q", "quit"},
	}
	var parts []string
	for _, h := range help {
		parts = append(parts, helpKey.Render(h.key)+helpStyle.Render(" "+h.action))
	}
	b.WriteString(strings.Join(parts, helpStyle.Render("  ·  ")) + "\n")
	b.WriteString(helpStyle.Render("glasscribe " + version))

	return b.String()
}

func entryStyle(e session.Entry) lipgloss.Style {
	if e.IsUser || e.Palette == session.PaletteUser {
		return userStyle
	}
	slot := e.Palette
	if slot < 0 || slot >= session.PaletteSize {
		slot = 0
	}
	return speakerStyles[slot]
}

// wrapText breaks text into lines of at most width runes, preferring to
// split on spaces. Rune-based so CJK and accented transcripts never get
// cut mid-character.
func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	runes := []rune(text)
	var lines []string
	for len(runes) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = runes[splitAt:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
