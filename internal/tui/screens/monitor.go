package screens

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sj-launcher/sj/internal/health"
	"github.com/sj-launcher/sj/internal/rendezvous"
)

const monitorPollInterval = 2 * time.Second

// MonitorSnapshotMsg carries one poll's worth of state. Exported for
// testing.
type MonitorSnapshotMsg struct {
	Server health.ServerStatus
	Slots  []rendezvous.Slot
	Stale  []rendezvous.Slot
	Err    error
}

// MonitorPollTickMsg is the periodic poll tick. Exported for testing.
type MonitorPollTickMsg struct{}

type monitorKeyMap struct {
	Help key.Binding
	Quit key.Binding
}

func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Help, k.Quit}}
}

// MonitorScreen is the single dashboard screen for "sj monitor": server
// PID-file status, rendezvous slot occupancy, and a recent-warnings log,
// refreshed every monitorPollInterval. Adapted from the teacher's
// DoctorScreen (spinner + checklist rendering) and ServersScreen (periodic
// tea.Tick poll pattern).
type MonitorScreen struct {
	keys    monitorKeyMap
	help    help.Model
	spinner spinner.Model
	sjHome  string
	loading bool

	server health.ServerStatus
	slots  []rendezvous.Slot
	stale  []rendezvous.Slot
	err    error
	log    []string

	width  int
	height int
}

func NewMonitorScreen(sjHome string) MonitorScreen {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return MonitorScreen{
		keys: monitorKeyMap{
			Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
			Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		},
		help:    help.New(),
		spinner: s,
		loading: true,
		sjHome:  sjHome,
	}
}

func (m MonitorScreen) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, pollMonitor(m.sjHome), monitorPollTick())
}

func pollMonitor(sjHome string) tea.Cmd {
	return func() tea.Msg {
		server, err := health.CheckServer(sjHome)
		if err != nil {
			return MonitorSnapshotMsg{Err: err}
		}
		dir := rendezvous.New(sjHome)
		slots, err := dir.ScanSlots()
		if err != nil {
			return MonitorSnapshotMsg{Server: server, Err: err}
		}
		stale, err := health.StaleOwners(dir)
		if err != nil {
			return MonitorSnapshotMsg{Server: server, Slots: slots, Err: err}
		}
		return MonitorSnapshotMsg{Server: server, Slots: slots, Stale: stale}
	}
}

func monitorPollTick() tea.Cmd {
	return tea.Tick(monitorPollInterval, func(_ time.Time) tea.Msg {
		return MonitorPollTickMsg{}
	})
}

func (m MonitorScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case MonitorSnapshotMsg:
		m.loading = false
		m.server = msg.Server
		m.slots = msg.Slots
		m.err = msg.Err
		if len(msg.Stale) != len(m.stale) {
			m.log = append(m.log, fmt.Sprintf("%s: %d stale slot owner(s)", time.Now().Format("15:04:05"), len(msg.Stale)))
			if len(m.log) > 20 {
				m.log = m.log[len(m.log)-20:]
			}
		}
		m.stale = msg.Stale
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case MonitorPollTickMsg:
		return m, tea.Batch(pollMonitor(m.sjHome), monitorPollTick())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m MonitorScreen) View() string {
	var b strings.Builder

	b.WriteString("  sj monitor\n\n")

	if m.loading {
		b.WriteString(fmt.Sprintf("  Gathering status...  %s\n", m.spinner.View()))
		return b.String()
	}

	if m.err != nil {
		b.WriteString(fmt.Sprintf("  Error: %s\n", m.err))
	}

	b.WriteString("  Server: ")
	switch {
	case m.server.Running:
		b.WriteString(lipgloss.NewStyle().Foreground(colorSuccess).Render(fmt.Sprintf("running (pid %d)", m.server.PID)))
	case m.server.Stale:
		b.WriteString(lipgloss.NewStyle().Foreground(colorWarning).Render(fmt.Sprintf("stale pid file (pid %d)", m.server.PID)))
	default:
		b.WriteString(lipgloss.NewStyle().Foreground(colorDim).Render("not running"))
	}
	b.WriteString("\n\n")

	b.WriteString("  Slots\n")
	if len(m.slots) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(colorDim).Render("    (none)"))
		b.WriteString("\n")
	}
	for _, s := range m.slots {
		symbol := lipgloss.NewStyle().Foreground(colorDim).Render("free")
		if s.Occupied {
			label := fmt.Sprintf("owner pid %d (%s)", s.OwnerPID, health.ClassifyPID(s.OwnerPID))
			symbol = lipgloss.NewStyle().Foreground(colorPrimary).Render(label)
		}
		b.WriteString(fmt.Sprintf("    %-3d %s\n", s.Index, symbol))
	}

	if len(m.stale) > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(colorError).Render(fmt.Sprintf("  %d stale slot owner(s)", len(m.stale))))
		b.WriteString("\n")
	}

	if len(m.log) > 0 {
		b.WriteString("\n  Recent\n")
		start := 0
		if len(m.log) > 5 {
			start = len(m.log) - 5
		}
		for _, line := range m.log[start:] {
			b.WriteString("    " + line + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}
