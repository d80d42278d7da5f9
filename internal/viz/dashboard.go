package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/monitoring"
	"github.com/san-kum/tankdrive/internal/telemetry"
)

const (
	width           = 60
	height          = 24
	trailCapacity   = 400
	historyCapacity = 120
	keyStick        = 127
)

// Controls are the robot actions the dashboard can trigger.
type Controls interface {
	Calibrate() error
	CancelMotion()
}

// Model is the dashboard state. Snapshots arrive as SnapshotMsg; keys
// drive the KeyboardPad and the Controls.
type Model struct {
	title      string
	controls   Controls
	pad        *KeyboardPad
	trackWidth float64

	canvas *Canvas
	field  *Field
	snap   telemetry.Snapshot
	seen   bool
	trail  []geom.Pose

	leftHistory  []float64
	rightHistory []float64

	frozen   bool
	showHelp bool
}

// NewModel builds a dashboard. controls and pad may be nil, which
// disables the matching keys.
func NewModel(title string, trackWidth float64, controls Controls, pad *KeyboardPad) Model {
	c := NewCanvas(width, height)
	return Model{
		title:        title,
		controls:     controls,
		pad:          pad,
		trackWidth:   trackWidth,
		canvas:       c,
		field:        NewField(c),
		trail:        make([]geom.Pose, 0, trailCapacity),
		leftHistory:  make([]float64, 0, historyCapacity),
		rightHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case SnapshotMsg:
		if !m.frozen {
			m.record(telemetry.Snapshot(msg))
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.pad != nil {
			m.pad.Release()
		}
		return m, tea.Quit
	case "w":
		m.press(LeftStick, keyStick)
	case "s":
		m.press(LeftStick, -keyStick)
	case "i":
		m.press(RightStick, keyStick)
	case "k":
		m.press(RightStick, -keyStick)
	case "up":
		m.press(LeftStick, keyStick)
		m.press(RightStick, keyStick)
	case "down":
		m.press(LeftStick, -keyStick)
		m.press(RightStick, -keyStick)
	case "c":
		if m.controls == nil {
			break
		}
		if err := m.controls.Calibrate(); err != nil {
			monitoring.Logf("dashboard: %v", err)
			break
		}
		m.trail = m.trail[:0]
	case "x":
		if m.controls != nil {
			m.controls.CancelMotion()
		}
	case " ":
		m.frozen = !m.frozen
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m Model) press(s Stick, v int) {
	if m.pad != nil {
		m.pad.Press(s, v)
	}
}

func (m *Model) record(s telemetry.Snapshot) {
	m.snap, m.seen = s, true
	m.trail = appendCapped(m.trail, s.Pose, trailCapacity)
	m.leftHistory = appendCapped(m.leftHistory, s.LeftPower, historyCapacity)
	m.rightHistory = appendCapped(m.rightHistory, s.RightPower, historyCapacity)
}

func appendCapped[T any](s []T, v T, capacity int) []T {
	if len(s) >= capacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}

// Trail returns the recorded poses, oldest first.
func (m Model) Trail() []geom.Pose { return m.trail }

func (m Model) draw() {
	m.canvas.Clear()
	m.field.Border()
	for _, p := range m.trail {
		m.field.Plot(p.X, p.Y)
	}
	if !m.seen {
		return
	}
	if m.snap.MotionActive {
		m.field.Marker(m.snap.Target.X, m.snap.Target.Y, 3)
	}
	m.field.Robot(m.snap.Pose, m.trackWidth)
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	snap := m.snap
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Pose", snap.Pose.String())
	if snap.MotionActive {
		row("Target", snap.Target.String())
		row("Settled", fmt.Sprintf("lat %v  ang %v", snap.LateralSettled, snap.AngularSettled))
	}
	row("Left", PowerBar(snap.LeftPower, 20))
	row("Right", PowerBar(snap.RightPower, 20))
	row("Left W", formatWatts(snap.LeftWatts))
	row("Right W", formatWatts(snap.RightWatts))
	row("Battery", ProgressBar(snap.Battery/100, 20, telemetry.BatteryColor(snap.Battery))+fmt.Sprintf(" %d%%", int(snap.Battery)))
	if snap.SensorFaults > 0 {
		s.WriteString(labelStyle.Render("Faults") + StatusFault.Render(fmt.Sprintf("%d", snap.SensorFaults)) + "\n")
	}

	if len(m.leftHistory) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.leftHistory, m.rightHistory},
			asciigraph.Height(5), asciigraph.Width(32),
			asciigraph.LowerBound(-1), asciigraph.UpperBound(1),
			asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta),
			asciigraph.Caption("Power L/R"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(Separator(40) + "\n")
	s.WriteString(helpStyle.Render("W/S I/K:Drive C:Calibrate X:Cancel\nSP:Freeze ?:Help Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

func (m Model) status() string {
	switch {
	case m.frozen:
		return StatusFrozen.Render("FROZEN")
	case !m.seen:
		return StatusIdle.Render("WAITING")
	case m.snap.MotionActive:
		return StatusActive.Render("MOVING")
	default:
		return StatusIdle.Render("IDLE")
	}
}

func formatWatts(ws []float64) string {
	if len(ws) == 0 {
		return "-"
	}
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = fmt.Sprintf("%dW", int(w))
	}
	return strings.Join(parts, " ")
}

const helpOverlay = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  W / S    - Left side fwd / back     ║
║  I / K    - Right side fwd / back    ║
║  Up/Down  - Both sides               ║
║  C        - Calibrate                ║
║  X        - Cancel motion            ║
║  Space    - Freeze display           ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`
