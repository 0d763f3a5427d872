package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/b2-runtime/script"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxLog bounds the event lines kept for display.
const maxLog = 12

type pane int

const (
	paneBodies pane = iota
	paneRays
	paneMovers
	paneCount
)

func (p pane) String() string {
	switch p {
	case paneBodies:
		return "bodies"
	case paneRays:
		return "rays"
	case paneMovers:
		return "movers"
	}
	return "?"
}

type modelState int

const (
	stateLoading modelState = iota
	stateView
	stateFilter
)

type interactiveModel struct {
	err      error
	sess     *session
	filename string
	log      []string
	last     counts
	filter   textinput.Model
	filtered string
	pane     pane
	selected int
	running  bool
	state    modelState
}

type loadedMsg struct {
	err  error
	sess *session
}

type tickMsg struct{}

func newInteractiveModel(filename string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = `if hit.shape == "floor" then return FILTER end`
	ti.Prompt = "lua> "
	ti.Width = 60
	return &interactiveModel{filename: filename, filter: ti, state: stateLoading}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	s, err := openSession(context.Background(), m.filename)
	return loadedMsg{err: err, sess: s}
}

func (m *interactiveModel) tick() tea.Cmd {
	dt := time.Duration(float64(m.sess.scene.Step.TimeStep) * float64(time.Second))
	return tea.Tick(dt, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *interactiveModel) step(n int) {
	for i := 0; i < n; i++ {
		rep, err := m.sess.advance(true)
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		m.last = rep.counts
		for _, line := range rep.lines {
			if strings.HasPrefix(line, "move") {
				continue
			}
			m.log = append(m.log, fmt.Sprintf("[%4d] %s", rep.step, line))
		}
	}
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
}

func (m *interactiveModel) quit() (tea.Model, tea.Cmd) {
	if m.sess != nil {
		m.sess.close()
		m.sess = nil
	}
	return m, tea.Quit
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m.quit()

		case " ", "s":
			if m.state == stateView {
				m.step(1)
			}

		case "n":
			if m.state == stateView {
				m.step(10)
			}

		case "r":
			if m.state == stateView {
				m.running = !m.running
				if m.running {
					return m, m.tick()
				}
			}

		case "tab":
			m.pane = (m.pane + 1) % paneCount
			m.selected = 0

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			m.selected++

		case "f":
			if m.state == stateView && m.sess != nil && len(m.sess.scene.Rays) > 0 {
				m.state = stateFilter
				m.filter.SetValue("")
				m.filter.Focus()
				m.running = false
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sess = msg.sess
		m.state = stateView

	case tickMsg:
		if m.running && m.sess != nil {
			m.step(1)
			if m.running {
				return m, m.tick()
			}
		}
	}
	return m, nil
}

// updateFilter edits a Lua filter for the first scene ray and casts it on
// enter.
func (m *interactiveModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc":
		m.state = stateView
		m.filter.Blur()
		return m, nil
	case "enter":
		m.state = stateView
		m.filter.Blur()
		m.filtered = m.castFiltered(m.filter.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *interactiveModel) castFiltered(src string) string {
	ray := m.sess.scene.Rays[0]
	name := rayName(0, ray)
	f, err := script.Compile(name, src, m.sess.built.Name)
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	prev, had := m.sess.filters[name]
	m.sess.filters[name] = f
	reps, err := m.sess.rays()
	if had {
		m.sess.filters[name] = prev
	} else {
		delete(m.sess.filters, name)
	}
	f.Close()

	if err != nil {
		return errorStyle.Render(err.Error())
	}
	r := reps[0]
	if !r.hit.Found {
		return resultStyle.Render(fmt.Sprintf("%s: miss, filter saw %d", name, f.Calls()))
	}
	return resultStyle.Render(fmt.Sprintf("%s: %s at fraction %.4f, filter saw %d",
		name, r.target, r.hit.Hit.Fraction, f.Calls()))
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.state == stateLoading || m.sess == nil {
		return "Loading scene..."
	}

	var b strings.Builder
	sc := m.sess.scene

	b.WriteString(titleStyle.Render("b2sim"))
	b.WriteString(" ")
	b.WriteString(sc.Name)
	b.WriteString(helpStyle.Render("  " + m.filename))
	b.WriteString("\n")
	status := "paused"
	if m.running {
		status = "running"
	}
	b.WriteString(fmt.Sprintf("step %s  %s  last: %s\n\n",
		nameStyle.Render(fmt.Sprint(m.sess.steps)), typeStyle.Render(status), m.last))

	for p := pane(0); p < paneCount; p++ {
		label := " " + p.String() + " "
		if p == m.pane {
			b.WriteString(selectedStyle.Render(label))
		} else {
			b.WriteString(label)
		}
	}
	b.WriteString("\n\n")

	switch m.pane {
	case paneBodies:
		m.viewBodies(&b)
	case paneRays:
		m.viewRays(&b)
	case paneMovers:
		m.viewMovers(&b)
	}

	b.WriteString("\nEvents:\n")
	if len(m.log) == 0 {
		b.WriteString(helpStyle.Render("  none yet\n"))
	}
	for _, line := range m.log {
		b.WriteString("  " + line + "\n")
	}

	if m.filtered != "" {
		b.WriteString("\n" + m.filtered + "\n")
	}

	b.WriteString("\n")
	if m.state == stateFilter {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter cast • esc back"))
	} else {
		b.WriteString(helpStyle.Render("space step • n step 10 • r run • tab pane • f lua filter • q quit"))
	}
	return b.String()
}

func (m *interactiveModel) cursor(i int, line string, b *strings.Builder) {
	if i == m.selected {
		b.WriteString(selectedStyle.Render("> " + line))
	} else {
		b.WriteString("  " + line)
	}
	b.WriteString("\n")
}

func (m *interactiveModel) viewBodies(b *strings.Builder) {
	bodies, err := m.sess.bodies()
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()) + "\n")
		return
	}
	for i, body := range bodies {
		m.cursor(i, fmt.Sprintf("%s %s p=(%.3f, %.3f) v=(%.3f, %.3f)",
			nameStyle.Render(fmt.Sprintf("%-12s", body.name)), typeStyle.Render(fmt.Sprintf("%-9s", body.typ)),
			body.position.X(), body.position.Y(), body.velocity.X(), body.velocity.Y()), b)
	}
}

func (m *interactiveModel) viewRays(b *strings.Builder) {
	rays, err := m.sess.rays()
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()) + "\n")
		return
	}
	if len(rays) == 0 {
		b.WriteString(helpStyle.Render("  scene has no rays\n"))
	}
	for i, r := range rays {
		line := nameStyle.Render(fmt.Sprintf("%-12s", r.name)) + " miss"
		if r.hit.Found {
			line = fmt.Sprintf("%s %s fraction=%.4f", nameStyle.Render(fmt.Sprintf("%-12s", r.name)),
				typeStyle.Render(r.target), r.hit.Hit.Fraction)
		}
		m.cursor(i, line, b)
	}
}

func (m *interactiveModel) viewMovers(b *strings.Builder) {
	movers, err := m.sess.movers()
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()) + "\n")
		return
	}
	if len(movers) == 0 {
		b.WriteString(helpStyle.Render("  scene has no movers\n"))
	}
	for i, mv := range movers {
		var parts []string
		for _, p := range mv.planes {
			parts = append(parts, fmt.Sprintf("%s(%.2f)", m.sess.built.Name(p.Shape), p.Result.Plane.Offset))
		}
		m.cursor(i, fmt.Sprintf("%s %d planes %s", nameStyle.Render(fmt.Sprintf("%-12s", mv.name)),
			len(mv.planes), typeStyle.Render(strings.Join(parts, " "))), b)
	}
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
