package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/rfxcom/internal/logging"
	"github.com/muurk/rfxcom/internal/protocol"
	"github.com/muurk/rfxcom/internal/transceiver"
)

// maxLogEntries bounds the monitor's scrollback
const maxLogEntries = 500

// chromeHeight is the number of lines around the event log
const chromeHeight = 5

// LogEntry is one line of the event log
type LogEntry struct {
	Time time.Time
	Kind string
	Text string
}

// Render returns the styled log line
func (e LogEntry) Render() string {
	return TimestampStyle.Render(e.Time.Format("15:04:05.000")) + " " +
		kindStyle(e.Kind).Width(11).Render(e.Kind) + " " +
		e.Text
}

// EventEntry builds the log line for a decoded event
func EventEntry(evt protocol.Event, at time.Time) LogEntry {
	entry := LogEntry{Time: at, Text: evt.String()}
	switch e := evt.(type) {
	case *protocol.StatusEvent:
		entry.Kind = "status"
	case *protocol.ResponseEvent:
		entry.Kind = "response"
		if !e.OK() {
			entry.Kind = "nak"
		}
	case *protocol.Lighting5Event:
		entry.Kind = "lighting5"
	case *protocol.Elec2Event:
		entry.Kind = "elec2"
	case *protocol.Security1Event:
		entry.Kind = "security1"
	default:
		entry.Kind = evt.PacketType().String()
	}
	return entry
}

// DiagnosticEntry builds the log line for a driver diagnostic
func DiagnosticEntry(d transceiver.Diagnostic) LogEntry {
	at := d.Time
	if at.IsZero() {
		at = time.Now()
	}
	return LogEntry{Time: at, Kind: "diagnostic", Text: d.String()}
}

// Commander is the part of a transceiver the monitor can drive
type Commander interface {
	Reset(done transceiver.WriteHandler) int
	GetStatus(done transceiver.WriteHandler) int
}

// ReadyMsg reports that the transceiver has started
type ReadyMsg struct{}

// EventMsg carries a decoded event
type EventMsg struct {
	Event protocol.Event
	Time  time.Time
}

// DiagnosticMsg carries a driver diagnostic
type DiagnosticMsg struct {
	Diagnostic transceiver.Diagnostic
}

// CommandSentMsg reports the outcome of a command sent from the monitor
type CommandSentMsg struct {
	Kind string
	Seq  int
	Err  error
}

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	Status key.Binding
	Reset  key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Status, k.Reset, k.Up, k.Down, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Status, k.Reset},
		{k.Up, k.Down, k.Quit},
	}
}

func defaultMonitorKeys() monitorKeyMap {
	return monitorKeyMap{
		Status: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "status"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// MonitorModel is a live view of everything a transceiver receives
type MonitorModel struct {
	Port        string
	Ready       bool
	Status      *protocol.StatusEvent
	Entries     []LogEntry
	Events      int
	Diagnostics int

	Width  int
	Height int

	Spinner  spinner.Model
	Viewport viewport.Model
	Help     help.Model
	Keys     monitorKeyMap

	commander Commander
}

// NewMonitorModel creates a monitor for the transceiver on port
func NewMonitorModel(port string, commander Commander) MonitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	width, height := GetTerminalSize()
	vp := viewport.New(width, max(height-chromeHeight, 3))

	return MonitorModel{
		Port:      port,
		Width:     width,
		Height:    height,
		Spinner:   s,
		Viewport:  vp,
		Help:      help.New(),
		Keys:      defaultMonitorKeys(),
		commander: commander,
	}
}

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	return m.Spinner.Tick
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.Viewport.Width = msg.Width
		m.Viewport.Height = max(msg.Height-chromeHeight, 3)
		m.Help.Width = msg.Width
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Status):
			if m.commander != nil {
				return m, sendCommand("get-status", m.commander.GetStatus)
			}
			return m, nil
		case key.Matches(msg, m.Keys.Reset):
			if m.commander != nil {
				return m, sendCommand("reset", m.commander.Reset)
			}
			return m, nil
		}

	case ReadyMsg:
		m.Ready = true
		return m, nil

	case EventMsg:
		m.Events++
		if s, ok := msg.Event.(*protocol.StatusEvent); ok {
			m.Status = s
		}
		m.appendEntry(EventEntry(msg.Event, msg.Time))
		return m, nil

	case DiagnosticMsg:
		m.Diagnostics++
		m.appendEntry(DiagnosticEntry(msg.Diagnostic))
		return m, nil

	case CommandSentMsg:
		entry := LogEntry{Time: time.Now(), Kind: "sent", Text: fmt.Sprintf("%s seq=%d", msg.Kind, msg.Seq)}
		if msg.Err != nil {
			entry.Kind = "error"
			entry.Text = fmt.Sprintf("%s seq=%d: %v", msg.Kind, msg.Seq, msg.Err)
		}
		m.appendEntry(entry)
		return m, nil

	case spinner.TickMsg:
		if m.Status != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

func (m *MonitorModel) appendEntry(e LogEntry) {
	m.Entries = append(m.Entries, e)
	if len(m.Entries) > maxLogEntries {
		m.Entries = m.Entries[len(m.Entries)-maxLogEntries:]
	}
	m.refresh()
}

// refresh re-renders the log, following the tail unless the user scrolled up
func (m *MonitorModel) refresh() {
	follow := m.Viewport.AtBottom()

	lines := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		lines[i] = e.Render()
	}
	m.Viewport.SetContent(strings.Join(lines, "\n"))

	if follow {
		m.Viewport.GotoBottom()
	}
}

// View implements tea.Model
func (m MonitorModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("rfxcom monitor"))
	b.WriteString(StatusBarStyle.Render(m.Port))
	b.WriteString("\n")

	switch {
	case !m.Ready:
		b.WriteString(m.Spinner.View() + " Opening port...")
	case m.Status == nil:
		b.WriteString(m.Spinner.View() + " Waiting for interface status...")
	default:
		receiver := m.Status.ReceiverType
		if receiver == "" {
			receiver = "unknown receiver"
		}
		b.WriteString(kindStyle("response").Render(SuccessMarker) +
			fmt.Sprintf(" %s, firmware %d", receiver, m.Status.FirmwareVersion))
	}
	b.WriteString(StatusBarStyle.Render(fmt.Sprintf("events: %d  diagnostics: %d", m.Events, m.Diagnostics)))
	b.WriteString("\n\n")

	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.Help.View(m.Keys))

	return b.String()
}

// sendCommand queues a command and reports once it has been written
func sendCommand(kind string, send func(transceiver.WriteHandler) int) tea.Cmd {
	return func() tea.Msg {
		result := make(chan error, 1)
		seq := send(func(err error, n int) { result <- err })
		return CommandSentMsg{Kind: kind, Seq: seq, Err: <-result}
	}
}

// Attach forwards tx's callbacks to p as monitor messages
func Attach(p *tea.Program, tx *transceiver.Transceiver) {
	tx.OnReady(func() { p.Send(ReadyMsg{}) })
	tx.OnEvent(func(evt protocol.Event) { p.Send(EventMsg{Event: evt, Time: time.Now()}) })
	tx.OnDiagnostic(func(d transceiver.Diagnostic) { p.Send(DiagnosticMsg{Diagnostic: d}) })
}

// RunMonitor starts tx, runs the start-up handshake and shows the monitor
// until the user quits or ctx ends
func RunMonitor(ctx context.Context, tx *transceiver.Transceiver, port string) error {
	p := tea.NewProgram(NewMonitorModel(port, tx), tea.WithAltScreen(), tea.WithContext(ctx))
	Attach(p, tx)

	go func() {
		tx.Start(ctx)
		if _, err := tx.Initialise(ctx); err != nil {
			logging.Warn("Interface initialisation interrupted", zap.Error(err))
		}
	}()

	_, err := p.Run()
	return err
}
