// Package tui is the terminal front end: a live tuner display with a
// device-selector screen, driven by a fixed tick that pumps the engine.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tuner/internal/audio"
	"tuner/internal/tuner"
)

// tickInterval paces the analysis loop at roughly 30 updates per second.
const tickInterval = 33 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 0)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Padding(1, 0)

	recordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	inTuneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	closeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Cents thresholds for the needle coloring.
const (
	inTuneCents = 5.0
	closeCents  = 20.0
	needleSpan  = 50.0 // Needle clamps at ±50 cents, half a semitone each way
	needleWidth = 41
)

// ScreenType defines which screen is currently active.
type ScreenType int

const (
	TunerScreen ScreenType = iota
	DeviceScreen
)

type tickMsg time.Time

type devicesMsg struct {
	devices []audio.Device
}

type switchedMsg struct{}

type errMsg struct {
	err error
}

// Model is the Bubble Tea model for the tuner.
type Model struct {
	engine       *tuner.Engine
	activeScreen ScreenType

	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error

	recording bool
}

// NewModel creates the tuner model around a started engine.
func NewModel(engine *tuner.Engine) Model {
	return Model{
		engine:       engine,
		activeScreen: TunerScreen,
		recording:    engine.IsRecording(),
	}
}

// Init starts the analysis tick.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchDevices() tea.Cmd {
	return func() tea.Msg {
		devices, err := m.engine.Devices()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

func (m Model) switchDevice(dev audio.Device) tea.Cmd {
	return func() tea.Msg {
		if err := m.engine.SwitchDevice(dev); err != nil {
			return errMsg{err}
		}
		return switchedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tickMsg:
		// Keep the pipeline warm even while the selector is up, so the
		// display is live the moment the user returns.
		m.engine.Step()
		return m, tick()

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		m.selectedIndex = 0
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case switchedMsg:
		m.activeScreen = TunerScreen
		m.recording = m.engine.IsRecording()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		m.err = nil

		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		if m.activeScreen == TunerScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("d"))):
				m.activeScreen = DeviceScreen
				return m, m.fetchDevices()

			case key.Matches(msg, key.NewBinding(key.WithKeys("r"))):
				return m.toggleRecording()
			}
		} else {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = TunerScreen

			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					return m, m.switchDevice(m.devices[m.selectedIndex])
				}
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.recording {
		if err := m.engine.StopRecording(); err != nil {
			m.err = err
			return m, nil
		}
		m.recording = false
		return m, nil
	}

	name := fmt.Sprintf("recording-%s.wav", time.Now().Format("20060102-150405"))
	if err := m.engine.StartRecording(name); err != nil {
		m.err = err
		return m, nil
	}
	m.recording = true
	return m, nil
}

func (m Model) View() string {
	if m.activeScreen == DeviceScreen {
		if !m.ready {
			return "Initializing..."
		}
		title := titleStyle.Render("Input Devices")
		help := infoStyle.Render("↑/↓: Navigate • Enter: Select • Esc: Back • q: Quit")
		return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
	}

	title := titleStyle.Render("Tuner")
	device := infoStyle.Render(fmt.Sprintf("Input: %s", m.engine.DeviceName()))
	if m.recording {
		device += "  " + recordStyle.Render("● REC")
	}
	help := infoStyle.Render("d: Devices • r: Record • q: Quit")

	body := m.renderReading()
	if m.err != nil {
		body += "\n" + offStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", title, device, body, help)
}

func (m Model) renderReading() string {
	note, ok := m.engine.Current()
	if !ok {
		return idleStyle.Render("♪ Play a note...")
	}

	style := centsStyle(note.Cents)
	var sb strings.Builder
	sb.WriteString(noteStyle.Render(fmt.Sprintf("  %s", note.String())))
	sb.WriteString(fmt.Sprintf("\n  %.1f Hz\n\n", note.Frequency))
	sb.WriteString("  " + style.Render(needleRuler(note.Cents)))
	sb.WriteString("\n  " + style.Render(fmt.Sprintf("%+.1f cents", note.Cents)))
	sb.WriteString("\n")
	return sb.String()
}

type centsZone int

const (
	zoneInTune centsZone = iota
	zoneClose
	zoneOff
)

var zoneStyles = [...]lipgloss.Style{inTuneStyle, closeStyle, offStyle}

// zoneFor buckets a cents reading for the needle coloring: green in tune,
// orange close, red off.
func zoneFor(cents float64) centsZone {
	switch abs := math.Abs(cents); {
	case abs < inTuneCents:
		return zoneInTune
	case abs < closeCents:
		return zoneClose
	default:
		return zoneOff
	}
}

func centsStyle(cents float64) lipgloss.Style {
	return zoneStyles[zoneFor(cents)]
}

// needleRuler draws a fixed-width ruler with the needle at the cents
// position, clamped to ±needleSpan.
func needleRuler(cents float64) string {
	if cents > needleSpan {
		cents = needleSpan
	} else if cents < -needleSpan {
		cents = -needleSpan
	}
	pos := int(math.Round((cents + needleSpan) / (2 * needleSpan) * float64(needleWidth-1)))

	cells := make([]rune, needleWidth)
	for i := range cells {
		cells[i] = '─'
	}
	cells[needleWidth/2] = '┼'
	cells[pos] = '▼'
	return "♭ " + string(cells) + " ♯"
}

func (m Model) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		line := fmt.Sprintf("[%d] %s\n", device.ID, device.Name)
		line += fmt.Sprintf("    Input channels: %d\n", device.MaxInputChannels)
		line += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		if i == m.selectedIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Run launches the TUI and blocks until the user quits.
func Run(engine *tuner.Engine) error {
	p := tea.NewProgram(
		NewModel(engine),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
