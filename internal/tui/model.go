// Package tui is the full-screen order editor: a source editor with live
// diagnostics, a log pane, a start/stop control and a decision bar.
//
// Every component runs inside Update. Work finished on other goroutines is
// posted back through a Dispatcher, normally a Bridge feeding the program.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/musher-dev/wdlplay/internal/console"
	"github.com/musher-dev/wdlplay/internal/diagnostics"
	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/session"
	"github.com/musher-dev/wdlplay/internal/surface"
	"github.com/musher-dev/wdlplay/internal/transport"
)

const (
	minLogHeight  = 4
	maxMarkerList = 3
)

// Options configures the editor.
type Options struct {
	Context context.Context
	// Path is where ctrl+s saves. Empty disables saving.
	Path   string
	Source string
	Theme  string

	Loop      eventloop.Dispatcher
	Checker   oracle.Checker
	Dialer    transport.Dialer
	Scheduler eventloop.Scheduler
	Spawn     func(func())

	Debounce    time.Duration
	DialTimeout time.Duration
	Logger      *slog.Logger
}

// Model is the editor's bubbletea model. It also implements every surface
// the pipeline and session controller write to.
type Model struct {
	ctx    context.Context
	path   string
	logger *slog.Logger

	editor  textarea.Model
	logView viewport.Model
	help    help.Model
	keys    keyMap
	styles  Styles

	pipeline *diagnostics.Pipeline
	session  *session.Controller

	text    string
	entries []model.LogEntry
	markers []marker.Marker
	prompt  *model.DecisionRequest
	reply   surface.ReplyFunc
	busy    bool
	status  string

	width  int
	height int
}

var _ surface.Surface = (*Model)(nil)

// New builds the editor around opts.Source.
func New(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	editor := textarea.New()
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.Placeholder = "order { ... }"
	editor.SetValue(opts.Source)
	editor.Focus()

	m := &Model{
		ctx:     ctx,
		path:    opts.Path,
		logger:  logger,
		editor:  editor,
		logView: viewport.New(80, minLogHeight),
		help:    help.New(),
		keys:    defaultKeys(),
		styles:  NewStyles(opts.Theme),
		text:    editor.Value(),
		width:   80,
		height:  24,
	}

	m.pipeline = diagnostics.New(opts.Loop, opts.Checker, m, m, diagnostics.Options{
		Delay:     opts.Debounce,
		Scheduler: opts.Scheduler,
		Spawn:     opts.Spawn,
		Logger:    logger,
	})

	m.session = session.New(opts.Loop, opts.Dialer, m, session.Options{
		Pipeline:    m.pipeline,
		DialTimeout: opts.DialTimeout,
		Spawn:       opts.Spawn,
		Logger:      logger,
	})

	m.layout()

	return m
}

// Init checks the initial source right away.
func (m *Model) Init() tea.Cmd {
	text := m.text

	return tea.Batch(textarea.Blink, func() tea.Msg {
		return runMsg(func() { m.pipeline.CheckNow(text) })
	})
}

// Update routes messages to the editor, the log pane and the controllers.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runMsg:
		msg()
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateEditor(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Run):
		m.toggleOrder()
		return m, nil

	case key.Matches(msg, m.keys.Save):
		m.save()
		return m, nil

	case key.Matches(msg, m.keys.ReplyDone) && m.prompt != nil:
		m.answer(model.ReplyDone)
		return m, nil

	case key.Matches(msg, m.keys.ReplyNoStation) && m.prompt != nil:
		m.answer(model.ReplyNoStationLeft)
		return m, nil

	case key.Matches(msg, m.keys.LogUp), key.Matches(msg, m.keys.LogDown):
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)

		return m, cmd
	}

	return m.updateEditor(msg)
}

func (m *Model) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	m.editor, cmd = m.editor.Update(msg)

	if text := m.editor.Value(); text != m.text {
		m.text = text
		m.pipeline.OnTextChanged(text)
	}

	return m, cmd
}

func (m *Model) toggleOrder() {
	if m.busy {
		m.session.Cancel()
		return
	}

	if err := m.session.Start(m.ctx, m.editor.Value()); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) answer(reply model.DecisionReply) {
	fn := m.reply
	if fn == nil {
		return
	}

	if err := fn(reply); err != nil {
		m.status = "Reply not sent: " + err.Error()
		m.logger.Warn("decision reply failed", slog.String("error", err.Error()))
	}
}

func (m *Model) save() {
	if m.path == "" {
		m.status = "No file to save to"
		return
	}

	if err := os.WriteFile(m.path, []byte(m.editor.Value()), 0o644); err != nil {
		m.status = "Save failed: " + err.Error()
		return
	}

	m.status = "Saved " + filepath.Base(m.path)
}

// Close stops the pipeline and cancels any running order.
func (m *Model) Close() {
	m.session.Close()
	m.pipeline.Close()
}

// Session exposes the order controller.
func (m *Model) Session() *session.Controller {
	return m.session
}

// Text returns the current editor contents.
func (m *Model) Text() string {
	return m.editor.Value()
}

func (m *Model) layout() {
	chrome := 1 + 1 + 1 + 1 // title, markers, decision bar, help
	logHeight := max(minLogHeight, m.height/3)
	editorHeight := max(3, m.height-chrome-logHeight-2)

	m.editor.SetWidth(m.width)
	m.editor.SetHeight(editorHeight)

	m.logView.Width = max(10, m.width-2)
	m.logView.Height = logHeight
	m.help.Width = m.width

	m.refreshLog()
}

func (m *Model) refreshLog() {
	width := m.logView.Width

	lines := make([]string, 0, len(m.entries))

	for _, entry := range m.entries {
		head := m.styles.Level(entry.Level).Render(console.Line(model.LogEntry{
			Level:  entry.Level,
			Origin: entry.Origin,
			Span:   entry.Span,
		}))
		lines = append(lines, ansi.Wrap(head+strings.TrimRight(entry.Message, "\n"), width, " "))

		if excerpt := strings.TrimRight(entry.Rendered, "\n"); excerpt != "" {
			lines = append(lines, m.styles.Muted.Render(ansi.Wrap(excerpt, width, "")))
		}
	}

	m.logView.SetContent(strings.Join(lines, "\n"))
	m.logView.GotoBottom()
}

// View renders the editor.
func (m *Model) View() string {
	run := "ctrl+r start"
	if m.busy {
		run = "ctrl+r stop"
	}

	name := "untitled"
	if m.path != "" {
		name = filepath.Base(m.path)
	}

	title := m.styles.Title.Render("wdlplay") + " " + m.styles.Muted.Render(name+" · "+run)
	if m.status != "" {
		title += " " + m.styles.Status.Render(m.status)
	}

	sections := []string{
		ansi.Truncate(title, m.width, "…"),
		m.editor.View(),
		m.markerLine(),
		m.decisionLine(),
		m.styles.LogBox.Render(m.logView.View()),
		m.help.View(m.keys),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) markerLine() string {
	if len(m.markers) == 0 {
		return m.styles.Muted.Render("no markers")
	}

	parts := make([]string, 0, maxMarkerList+1)

	for i, mk := range m.markers {
		if i == maxMarkerList {
			parts = append(parts, m.styles.Muted.Render(fmt.Sprintf("+%d more", len(m.markers)-maxMarkerList)))
			break
		}

		rg := mk.Range()
		parts = append(parts, m.styles.Severity(mk.Severity).Render(fmt.Sprintf("%s %d:%d %s", mk.Severity, rg.StartLine, rg.StartColumn, mk.Message)))
	}

	return ansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}

func (m *Model) decisionLine() string {
	if m.prompt == nil {
		return ""
	}

	text := fmt.Sprintf("Router request %s %s  [f1] Done  [f2] NoStationLeft", m.prompt.Kind, strings.TrimSpace(string(m.prompt.Payload)))

	return ansi.Truncate(m.styles.Decision.Render(text), m.width, "…")
}
