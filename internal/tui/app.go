// Package tui implements the Monitor TUI ("sj monitor"): a single polling
// dashboard over the server's PID-file status, the rendezvous directory's
// slot occupancy, and recent warnings, adapted from the teacher's
// screen-stack Bubbletea app.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sj-launcher/sj/internal/tui/screens"
)

// App is the top-level Bubbletea model holding a screen stack. The monitor
// only ever pushes one screen today, but the stack is kept (rather than
// collapsed to a bare model) because screens.PushScreenMsg/PopScreenMsg are
// the teacher's established navigation contract and a detail screen (e.g.
// drilling into one slot) is a natural addition later.
type App struct {
	stack  []tea.Model
	width  int
	height int
}

// NewApp creates the Monitor TUI rooted at sjHome.
func NewApp(sjHome string) App {
	return App{
		stack: []tea.Model{screens.NewMonitorScreen(sjHome)},
	}
}

func (a App) Init() tea.Cmd {
	if len(a.stack) > 0 {
		return a.stack[len(a.stack)-1].Init()
	}
	return nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		for i, s := range a.stack {
			updated, _ := s.Update(msg)
			a.stack[i] = updated
		}
		return a, nil

	case screens.PushScreenMsg:
		a.stack = append(a.stack, msg.Screen)
		sized, cmd := msg.Screen.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
		a.stack[len(a.stack)-1] = sized
		initCmd := a.stack[len(a.stack)-1].Init()
		return a, tea.Batch(cmd, initCmd)

	case screens.PopScreenMsg:
		if len(a.stack) <= 1 {
			return a, tea.Quit
		}
		a.stack = a.stack[:len(a.stack)-1]
		return a, nil

	case tea.KeyMsg:
		if len(a.stack) == 1 {
			switch msg.String() {
			case "ctrl+c":
				return a, tea.Quit
			}
		}
	}

	if len(a.stack) > 0 {
		active := a.stack[len(a.stack)-1]
		updated, cmd := active.Update(msg)
		a.stack[len(a.stack)-1] = updated
		return a, cmd
	}

	return a, nil
}

func (a App) View() string {
	if len(a.stack) > 0 {
		return a.stack[len(a.stack)-1].View()
	}
	return ""
}

// StackLen returns the number of screens on the stack (for testing).
func (a App) StackLen() int {
	return len(a.stack)
}
