package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"rtdt-monitor.klederson.com/internal/chart"
	"rtdt-monitor.klederson.com/internal/config"
	"rtdt-monitor.klederson.com/internal/link"
	"rtdt-monitor.klederson.com/internal/logging"
	"rtdt-monitor.klederson.com/internal/protocol"
	"rtdt-monitor.klederson.com/internal/record"
	"rtdt-monitor.klederson.com/internal/series"
	"rtdt-monitor.klederson.com/internal/session"
	"rtdt-monitor.klederson.com/internal/ui"
)

// displayOrder is the top-to-bottom order of the charts.
var displayOrder = [...]protocol.ChannelKind{protocol.Displacement, protocol.Acceleration, protocol.Velocity}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	cfg      *config.Config
	link     *link.Link
	store    *series.Store
	ctrl     *session.Controller
	viewport *chart.Viewport
	recorder *record.Recorder
	notifier *sampleNotifier
	log      *logrus.Entry
}

// AppModel is the root Bubble Tea model of the monitor.
type AppModel struct {
	width  int
	height int

	shared *shared

	ports      []link.PortInfo
	portCursor int

	focus ui.Field
	noise textinput.Model
	mpu   textinput.Model

	message string
	msgErr  bool

	// Cached snapshot
	windows [len(displayOrder)]chart.Window
	latest  [len(protocol.Kinds)][len(protocol.Axes)]float64
}

// New wires the store, controller and recorder around an existing link.
func New(cfg *config.Config, l *link.Link, logger *logrus.Logger) AppModel {
	store := series.NewStore(cfg.Acquisition.MaxPoints)
	recorder := record.New(cfg.Record.Dir, logging.Component(logger, "record"))
	notifier := &sampleNotifier{record: recorder.Record}

	s := &shared{
		cfg:   cfg,
		link:  l,
		store: store,
		ctrl: session.New(l, store, cfg.Acquisition.RateMs, notifier.Notify,
			logging.Component(logger, "session")),
		viewport: chart.NewViewport(config.DefaultPlotWidth, config.DefaultPlotHeight,
			config.ChartLabelCols*2, map[protocol.ChannelKind]float64{
				protocol.Acceleration: cfg.Chart.Ranges.Acceleration,
				protocol.Velocity:     cfg.Chart.Ranges.Velocity,
				protocol.Displacement: cfg.Chart.Ranges.Displacement,
			}),
		recorder: recorder,
		notifier: notifier,
		log:      logging.Component(logger, "app"),
	}

	m := AppModel{
		shared: s,
		noise:  newInput(cfg.Device.AccelNoiseFloor, 8),
		mpu:    newInput(cfg.Device.MPU6050Config, 12),
	}
	m.refresh()
	return m
}

func newInput(value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 32
	ti.Width = width
	ti.TextStyle = ui.StyleFieldValue
	ti.SetValue(value)
	return ti
}

// Attach gives the sample notifier a program to post to. Must be called
// before p.Run().
func (m *AppModel) Attach(p Sender) {
	m.shared.notifier.attach(p)
}

// Controller exposes the session controller to main.go.
func (m AppModel) Controller() *session.Controller {
	return m.shared.ctrl
}

func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.portsCmd()}
	if port := m.shared.cfg.Serial.Port; port != "" {
		cmds = append(cmds, m.connectCmd(port))
	}
	return tea.Batch(cmds...)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		d := ui.Layout(m.width, m.height, config.MinChartRows)
		m.shared.viewport.Resize(float64(d.ChartCols*2), float64(d.ChartRows*4))
		return m, nil

	case tea.KeyMsg:
		if m.focus != ui.FieldNone {
			return m.handleInputKey(msg)
		}
		return m.handleKey(msg)

	case TickMsg:
		return m, tickCmd()

	case SampleMsg:
		m.shared.notifier.consumed()
		m.refresh()
		return m, nil

	case PortsMsg:
		m.ports = msg.Ports
		if i := slices.IndexFunc(m.ports, func(p link.PortInfo) bool {
			return p.Name == m.shared.cfg.Serial.Port
		}); i >= 0 {
			m.portCursor = i
		}
		m.portCursor = min(m.portCursor, max(len(m.ports)-1, 0))
		return m, nil

	case ConnectResultMsg:
		switch {
		case msg.Err != nil:
			m.setError(msg.Err)
		case msg.Disconnect:
			m.setMessage("disconnected")
		default:
			m.shared.cfg.Serial.Port = msg.Port
			m.setMessage("connected to " + msg.Port)
		}
		m.refresh()
		return m, nil

	case CommandResultMsg:
		if msg.Err != nil {
			m.setError(fmt.Errorf("%s: %w", msg.Action, msg.Err))
		} else {
			m.setMessage(msg.Action)
		}
		m.refresh()
		return m, nil

	case ExportResultMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
		} else {
			m.setMessage("exported " + msg.Path)
		}
		return m, nil
	}

	// Cursor blink and other input internals
	var cmd tea.Cmd
	switch m.focus {
	case ui.FieldNoise:
		m.noise, cmd = m.noise.Update(msg)
	case ui.FieldMPU:
		m.mpu, cmd = m.mpu.Update(msg)
	}
	return m, cmd
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.shared.ctrl

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, m.shutdownCmd()

	case "c", "C":
		if ctrl.ConnectionState() == link.Disconnected {
			port := m.selectedPort()
			if port == "" {
				m.setError(errors.New("no port selected"))
				return m, nil
			}
			m.setMessage("connecting to " + port)
			return m, m.connectCmd(port)
		}
		return m, m.disconnectCmd()

	case " ", "s", "S":
		action := "start"
		if ctrl.RunState() == session.Running {
			action = "stop"
		}
		return m, commandCmd(action, ctrl.Toggle)

	case "x", "X":
		return m, commandCmd("reset", ctrl.Reset)

	case "[", "]":
		step := 1
		if msg.String() == "[" {
			step = -1
		}
		rate := config.StepRate(ctrl.Rate(), step)
		return m, commandCmd(fmt.Sprintf("rate %d ms", rate), func() error {
			return ctrl.SetRate(rate)
		})

	case "n", "N":
		m.focus = ui.FieldNoise
		return m, m.noise.Focus()

	case "m", "M":
		m.focus = ui.FieldMPU
		return m, m.mpu.Focus()

	case "p", "P":
		return m, m.portsCmd()

	case "up", "k":
		if m.portCursor > 0 {
			m.portCursor--
		}

	case "down", "j":
		if m.portCursor < len(m.ports)-1 {
			m.portCursor++
		}

	case "r", "R":
		m.toggleRecording()

	case "e", "E":
		return m, m.exportCmd()
	}

	return m, nil
}

// handleInputKey routes keys to the focused config field.
func (m AppModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.shared.ctrl
	input := &m.noise
	if m.focus == ui.FieldMPU {
		input = &m.mpu
	}

	switch msg.String() {
	case "ctrl+c":
		return m, m.shutdownCmd()

	case "esc":
		input.Blur()
		m.focus = ui.FieldNone
		return m, nil

	case "enter":
		input.Blur()
		value := input.Value()
		field := m.focus
		m.focus = ui.FieldNone
		if field == ui.FieldMPU {
			m.shared.cfg.Device.MPU6050Config = value
			return m, commandCmd("mpu6050 config "+value, func() error {
				return ctrl.SetMPUConfig(value)
			})
		}
		m.shared.cfg.Device.AccelNoiseFloor = value
		return m, commandCmd("noise floor "+value, func() error {
			return ctrl.SetAccelNoiseFloor(value)
		})
	}

	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	return m, cmd
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing " + config.AppName + "..."
	}

	ctrl := m.shared.ctrl
	state := ctrl.ConnectionState()
	run := ctrl.RunState()
	d := ui.Layout(m.width, m.height, config.MinChartRows)

	menuBar := ui.RenderMenuBar(m.width, state, run)
	configBar := ui.RenderConfigBar(m.width, ctrl.Rate(), m.noise.View(), m.mpu.View(), m.focus)

	panels := make([]string, len(m.windows))
	for i, w := range m.windows {
		content := chart.RenderViewport(m.shared.viewport, w.Kind, w.X, w.Y, w.Z)
		panels[i] = ui.RenderChartPanel(d.ChartW, d.ChartH, w.Kind, m.shared.viewport.Range(w.Kind), content)
	}
	charts := ui.JoinColumn(panels...)

	path, rows := m.shared.recorder.Status()
	side := ui.JoinColumn(
		ui.RenderPortList(m.ports, d.SideW, d.PortsH, m.portCursor, m.shared.link.PortName()),
		ui.RenderReadout(ui.Readout{
			Latest:     m.latest,
			MaxPoints:  m.shared.store.Capacity(),
			RateMs:     ctrl.Rate(),
			RecordPath: path,
			Rows:       rows,
		}, d.SideW, d.ReadoutH),
	)

	stats := ctrl.Stats()
	statusBar := ui.RenderStatusBar(m.width, ui.Status{
		State:     state,
		Run:       run,
		Port:      m.shared.link.PortName(),
		Decoded:   stats.Decoded,
		Rejected:  stats.Rejected,
		Recording: path != "",
		Message:   m.message,
		IsError:   m.msgErr,
	})

	return ui.ComposeLayout(menuBar, configBar, charts, side, statusBar)
}

// refresh copies the store into the cached snapshot.
func (m *AppModel) refresh() {
	store := m.shared.store
	for i, kind := range displayOrder {
		x, y, z := store.Snapshot(kind)
		m.windows[i] = chart.Window{Kind: kind, X: x, Y: y, Z: z}
	}
	for _, kind := range protocol.Kinds {
		x, y, z := store.Latest(kind)
		m.latest[kind] = [len(protocol.Axes)]float64{x, y, z}
	}
}

func (m AppModel) selectedPort() string {
	if m.portCursor >= 0 && m.portCursor < len(m.ports) {
		return m.ports[m.portCursor].Name
	}
	return m.shared.cfg.Serial.Port
}

func (m *AppModel) toggleRecording() {
	rec := m.shared.recorder
	if rec.Active() {
		rows, err := rec.Stop()
		if err != nil {
			m.setError(err)
			return
		}
		m.setMessage(fmt.Sprintf("recording stopped, %d rows", rows))
		return
	}
	path, err := rec.Start(time.Now())
	if err != nil {
		m.setError(err)
		return
	}
	m.setMessage("recording to " + path)
}

func (m *AppModel) setMessage(s string) {
	m.message, m.msgErr = s, false
}

func (m *AppModel) setError(err error) {
	m.message, m.msgErr = err.Error(), true
	m.shared.log.WithError(err).Warn("operation failed")
}

// shutdown releases the recorder and the link. It runs outside Update:
// Disconnect waits for the acquisition goroutine, which may be blocked
// posting a SampleMsg to the program.
func (m AppModel) shutdown() {
	if m.shared.recorder.Active() {
		if _, err := m.shared.recorder.Stop(); err != nil {
			m.shared.log.WithError(err).Warn("closing recording")
		}
	}
	if m.shared.ctrl.ConnectionState() != link.Disconnected {
		if err := m.shared.ctrl.Disconnect(); err != nil {
			m.shared.log.WithError(err).Warn("disconnect on quit")
		}
	}
}

func (m AppModel) shutdownCmd() tea.Cmd {
	return func() tea.Msg {
		m.shutdown()
		return tea.Quit()
	}
}

func (m AppModel) connectCmd(port string) tea.Cmd {
	ctrl, baud := m.shared.ctrl, m.shared.cfg.Serial.BaudRate
	return func() tea.Msg {
		return ConnectResultMsg{Port: port, Err: ctrl.Connect(port, baud)}
	}
}

func (m AppModel) disconnectCmd() tea.Cmd {
	ctrl := m.shared.ctrl
	return func() tea.Msg {
		return ConnectResultMsg{Disconnect: true, Err: ctrl.Disconnect()}
	}
}

func (m AppModel) portsCmd() tea.Cmd {
	l := m.shared.link
	return func() tea.Msg {
		return PortsMsg{Ports: l.ListAvailablePorts()}
	}
}

// exportCmd writes the cached windows, so the PNG matches the screen.
func (m AppModel) exportCmd() tea.Cmd {
	cfg, vp := m.shared.cfg, m.shared.viewport
	windows := m.windows[:]
	path := filepath.Join(cfg.Chart.ExportDir, "rtdt-"+time.Now().Format("20060102-150405")+".png")
	return func() tea.Msg {
		err := chart.ExportPNG(path, cfg.Chart.ExportSize.Width, cfg.Chart.ExportSize.Height, vp, windows)
		return ExportResultMsg{Path: path, Err: err}
	}
}

func commandCmd(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Action: action, Err: fn()}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
