// Package routechooser is a terminal media route chooser. It lists the
// Cast devices a router knows about and selects the one picked by the
// user.
package routechooser

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"casty.app/casty/castprotocol"
	"casty.app/casty/casty"
	"casty.app/casty/devices"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	paddingStyle  = lipgloss.NewStyle().Padding(1, 2)
)

const disconnectLabel = "Stop casting"

// Chooser implements casty.RouteSelector on a bubbletea program.
type Chooser struct {
	router casty.Router
	run    func(tea.Model) (tea.Model, error)
}

var _ casty.RouteSelector = (*Chooser)(nil)

// New returns a Chooser drawing on the alternate screen.
func New() *Chooser {
	return &Chooser{
		run: func(m tea.Model) (tea.Model, error) {
			return tea.NewProgram(m, tea.WithAltScreen()).Run()
		},
	}
}

// Attach sets the router whose routes are listed.
func (c *Chooser) Attach(r casty.Router) {
	c.router = r
}

// Show runs the chooser until the user picks a route or leaves it, then
// applies the choice on the router.
func (c *Chooser) Show() error {
	if c.router == nil {
		return fmt.Errorf("route chooser: no router attached")
	}

	final, err := c.run(newModel(c.router))
	if err != nil {
		return fmt.Errorf("route chooser: %w", err)
	}

	m, ok := final.(model)
	if !ok {
		return nil
	}
	return apply(c.router, m.choice)
}

func apply(r casty.Router, ch choice) error {
	switch ch.kind {
	case choiceRoute:
		return r.SelectRoute(ch.device)
	case choiceDisconnect:
		return r.DeselectRoute()
	}
	return nil
}

type choiceKind int

const (
	choiceNone choiceKind = iota
	choiceRoute
	choiceDisconnect
)

type choice struct {
	kind   choiceKind
	device devices.Device
}

type entry struct {
	label  string
	choice choice
}

type model struct {
	router    casty.Router
	entries   []entry
	cursor    int
	connected devices.Device
	isConn    bool
	choice    choice
}

func newModel(r casty.Router) model {
	m := model{router: r}
	m.reload()
	return m
}

func (m *model) reload() {
	m.connected, m.isConn = m.router.ConnectedRoute()
	m.entries = nil
	for _, d := range m.router.Routes() {
		m.entries = append(m.entries, entry{
			label:  d.DisplayName(),
			choice: choice{kind: choiceRoute, device: d},
		})
	}
	if m.isConn {
		m.entries = append(m.entries, entry{
			label:  disconnectLabel,
			choice: choice{kind: choiceDisconnect},
		})
	}
	if m.cursor >= len(m.entries) {
		m.cursor = max(len(m.entries)-1, 0)
	}
}

// refreshMsg reloads the route list while discovery keeps finding
// devices.
type refreshMsg struct{}

const refreshInterval = time.Second

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m model) Init() tea.Cmd {
	return refreshTick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.reload()
		return m, refreshTick()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.choice = choice{}
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "r":
			m.reload()
		case "enter":
			if len(m.entries) == 0 {
				return m, nil
			}
			m.choice = m.entries[m.cursor].choice
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Cast to"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(faintStyle.Render("Searching for devices..."))
		b.WriteString("\n")
	}

	for i, e := range m.entries {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		label := e.label
		if e.choice.kind == choiceRoute && m.isConn && castprotocol.CanonicalAddr(e.choice.device.Addr) == castprotocol.CanonicalAddr(m.connected.Addr) {
			label = selectedStyle.Render(label + " (connected)")
		}
		b.WriteString(prefix + label + "\n")
	}

	b.WriteString("\n" + faintStyle.Render("enter select • r refresh • esc close"))
	return paddingStyle.Render(b.String())
}
