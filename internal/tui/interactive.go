package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/grfbalance/internal/config"
	"github.com/san-kum/grfbalance/internal/control"
	"github.com/san-kum/grfbalance/internal/experiment"
	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/qp"
	"github.com/san-kum/grfbalance/internal/sim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type state int

const (
	stateMenu state = iota
	stateSim
)

// entry is one robot/preset pair on the menu.
type entry struct {
	robot, preset string
}

type model struct {
	state   state
	cursor  int
	entries []entry
	log     *zap.Logger

	exp      *experiment.Experiment
	selected entry
	err      error

	paused   bool
	simState sim.State
	command  sim.Control
	simTime  float64
	speed    float64
	history  []float64
	fps      float64
	lastTick time.Time

	width  int
	height int
}

func newModel(logger *zap.Logger) model {
	var entries []entry
	for _, robot := range config.ListRobots() {
		for _, preset := range config.ListPresets(robot) {
			entries = append(entries, entry{robot, preset})
		}
	}
	return model{
		state:   stateMenu,
		entries: entries,
		log:     logger,
		speed:   1,
		width:   80,
		height:  24,
	}
}

func (m model) Init() tea.Cmd { return nil }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.state != stateSim {
			return m, nil
		}
		now := time.Time(msg)
		if !m.lastTick.IsZero() {
			if dt := now.Sub(m.lastTick).Seconds(); dt > 0 {
				m.fps = 1 / dt
			}
		}
		m.lastTick = now
		if !m.paused {
			m.advance(16 * time.Millisecond)
		}
		return m, tick()
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.entries) == 0 {
			return m, nil
		}
		m.selected = m.entries[m.cursor]
		if err := m.start(); err != nil {
			m.err = err
			return m, nil
		}
		m.state = stateSim
		return m, tea.Batch(tea.ClearScreen, tick())
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.state = stateMenu
		m.exp = nil
		return m, tea.ClearScreen
	case " ", "p":
		m.paused = !m.paused
	case "r":
		if err := m.start(); err != nil {
			m.err = err
		}
	case "x":
		m.kick(1.5, 0)
	case "y":
		m.kick(0, 1.5)
	case "+", "=":
		m.speed = math.Min(m.speed*2, 4)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.125)
	case "0":
		m.speed = 1
	}
	return m, nil
}

func (m *model) start() error {
	cfg := config.GetPreset(m.selected.robot, m.selected.preset)
	if cfg == nil {
		return errors.Errorf("unknown preset %s/%s", m.selected.robot, m.selected.preset)
	}
	exp, err := experiment.New(cfg, m.log)
	if err != nil {
		return err
	}
	m.exp = exp
	m.err = nil
	m.simState = exp.X0.Clone()
	m.command = make(sim.Control, exp.Plant.ControlDim())
	m.simTime = 0
	m.speed = 1
	m.paused = false
	m.history = make([]float64, 0, 120)
	m.lastTick = time.Time{}
	return nil
}

// kick adds a world-frame roll and pitch rate to the trunk.
func (m *model) kick(roll, pitch float64) {
	if m.simState == nil {
		return
	}
	m.simState[models.IdxOmega] += roll
	m.simState[models.IdxOmega+1] += pitch
}

// advance integrates enough steps to cover wall time scaled by speed.
func (m *model) advance(wall time.Duration) {
	if m.exp == nil {
		return
	}
	sc := m.exp.SimConfig()
	steps := int(math.Max(1, math.Round(wall.Seconds()*m.speed/sc.Dt)))
	for i := 0; i < steps; i++ {
		if m.simTime >= sc.Duration {
			m.paused = true
			return
		}
		next, u := m.exp.Simulator.Step(m.simState, m.simTime, sc.Dt)
		if !next.IsValid() {
			m.paused = true
			m.err = errors.Errorf("state diverged at t=%.3f", m.simTime)
			return
		}
		m.simState, m.command = next, u
		m.simTime += sc.Dt
	}
	m.history = append(m.history, models.Height(m.simState))
	if len(m.history) > 120 {
		m.history = m.history[1:]
	}
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("          " + cyan.Render("g r f b a l a n c e") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, e := range m.entries {
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-8s", e.robot)) + magenta.Render(e.preset) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-8s", e.robot)) + dimmer.Render(e.preset) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n      " + red.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter start   q quit") + "\n")
	return b.String()
}

func (m model) viewSim() string {
	if m.exp == nil {
		return ""
	}
	var b strings.Builder
	cfg := m.exp.Config()

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.paused {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s  %s\n", statusIcon,
		cyan.Render(m.selected.robot+"/"+m.selected.preset), statusText,
		dim.Render(fmt.Sprintf("x%.3g", m.speed))))

	progress := math.Min(m.simTime/cfg.Simulation.Duration, 1)
	barWidth := 36
	filled := int(progress * float64(barWidth))
	timeStr := fmt.Sprintf("%.2fs/%.1fs", m.simTime, cfg.Simulation.Duration)
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar, dim.Render(timeStr), dim.Render(fmt.Sprintf("%.0ffps", m.fps))))

	b.WriteString(m.viewForces())
	b.WriteString("\n")

	pose := models.Unpack(m.simState)
	b.WriteString(fmt.Sprintf("   %s%s  %s%s  %s%s\n",
		dim.Render("height="), white.Render(fmt.Sprintf("%.3fm", pose.Position.Z)),
		dim.Render("tilt="), white.Render(fmt.Sprintf("%.2f°", models.Tilt(m.simState)*180/math.Pi)),
		dim.Render("target="), white.Render(fmt.Sprintf("%.3fm", cfg.Scenario.Target.Height))))
	if len(m.history) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("z"), cyan.Render(sparkline(m.history, 40))))
	}

	b.WriteString(m.viewSolver())
	if m.err != nil {
		b.WriteString("   " + red.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + dim.Render("   space pause  ±speed  x/y kick  r reset  q back") + "\n")
	return b.String()
}

// viewForces draws one horizontal bar per leg proportional to the vertical
// ground reaction force, scaled to fz_max.
func (m model) viewForces() string {
	var b strings.Builder
	cfg := m.exp.Config()
	fzmax := cfg.Robot.FzMax
	if fzmax <= 0 {
		fzmax = 1
	}
	contacts := gait.AllStance(m.exp.Plant.Legs)
	if bc, ok := m.exp.Controller.(*control.Balance); ok {
		contacts = bc.Contacts(m.simTime)
	}

	barWidth := 40
	for i, leg := range m.exp.Plant.Legs {
		fz := 0.0
		if 3*i+2 < len(m.command) {
			// Commands push down on the ground, so the reaction is the negation.
			fz = -m.command[3*i+2]
		}
		n := int(math.Max(0, math.Min(fz/fzmax, 1)) * float64(barWidth))
		style := green
		if contacts[leg].State == gait.Swing {
			style = dimmer
		} else if fz > 0.9*fzmax || fz < cfg.Robot.FzMin*0.99 {
			style = yellow
		}
		b.WriteString(fmt.Sprintf("   %s %s%s %s\n",
			white.Render(fmt.Sprintf("%-3s", leg)),
			style.Render(strings.Repeat("█", n)),
			dimmer.Render(strings.Repeat("─", barWidth-n)),
			dim.Render(fmt.Sprintf("%6.1fN %s", fz, contacts[leg].State))))
	}
	return b.String()
}

func (m model) viewSolver() string {
	if m.exp.Balance == nil {
		return "   " + dim.Render("controller: "+m.exp.Config().Simulation.Controller) + "\n"
	}
	st := m.exp.Balance.Stats()
	status := green.Render(st.LastStatus.String())
	if st.LastStatus != qp.Optimal {
		status = red.Render(st.LastStatus.String())
	}
	return fmt.Sprintf("   %s %s  %s  %s\n",
		dim.Render("qp"), status,
		dim.Render(fmt.Sprintf("%d cycles  %d failed", st.Cycles, st.Failures)),
		dim.Render(fmt.Sprintf("%.0fµs", float64(st.LastElapsed)/float64(time.Microsecond))))
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// RunInteractive opens the live balance view. Controller logging goes to
// logger, which should not write to the terminal being drawn on.
func RunInteractive(logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := tea.NewProgram(newModel(logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
