package form

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"testgen/cmd/testgen/ui"
	"testgen/internal/logging"
	"testgen/internal/submission"
	"testgen/internal/watch"
)

const (
	defaultWidth  = 80
	editorHeight  = 8
	minOutputRows = 3
)

// New builds the form around cfg.Controller and subscribes to it.
func New(cfg Config) Model {
	styles := ui.NewStyles(ui.ThemeByName(cfg.Theme))

	ta := textarea.New()
	ta.Placeholder = "Paste the code to generate test cases for..."
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.SetWidth(defaultWidth)
	ta.SetHeight(editorHeight)
	ta.SetValue(cfg.Controller.Input().InlineText)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(defaultWidth, 10)

	startDir := cfg.StartDir
	if startDir == "" {
		startDir, _ = os.Getwd()
	}

	log := logging.For(cfg.Logger, logging.CategoryUI)
	ctx, cancel := context.WithCancel(context.Background())

	stateChan := make(chan submission.State, 1)
	unsubscribe := cfg.Controller.Subscribe(func(s submission.State) {
		deliverLatest(stateChan, s)
	})

	m := Model{
		ctrl:         cfg.Controller,
		log:          log,
		textarea:     ta,
		filepicker:   newFilePicker(startDir, 0),
		spinner:      sp,
		viewport:     vp,
		help:         help.New(),
		keys:         defaultKeyMap(),
		styles:       styles,
		renderer:     newRenderer(styles.Theme.IsDark, defaultWidth),
		state:        cfg.Controller.State(),
		stateChan:    stateChan,
		unsubscribe:  unsubscribe,
		watchEnabled: cfg.Watch,
		ctx:          ctx,
		cancel:       cancel,
		environment:  cfg.Environment,
		endpoint:     cfg.Endpoint,
		startDir:     startDir,
		width:        defaultWidth,
	}
	m.refreshOutput()
	return m
}

// deliverLatest replaces whatever is buffered so the reader always wakes up
// to the newest state. The controller serializes publication, so there is a
// single writer.
func deliverLatest(ch chan submission.State, s submission.State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func newFilePicker(dir string, height int) filepicker.Model {
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	if height > 0 {
		fp.Height = height
	}
	return fp
}

func newRenderer(dark bool, width int) *glamour.TermRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return renderer
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.waitForState(), // Start state listener
	)
}

// waitForState blocks until the controller publishes or the form shuts down.
func (m Model) waitForState() tea.Cmd {
	ch, done := m.stateChan, m.ctx.Done()
	return func() tea.Msg {
		select {
		case s := <-ch:
			return stateMsg(s)
		case <-done:
			return nil
		}
	}
}

// submitCmd runs one attempt off the update loop.
func (m Model) submitCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return submitDoneMsg(ctrl.Submit(ctx))
	}
}

func waitForChange(w *watch.Watcher, changes <-chan string) tea.Cmd {
	return func() tea.Msg {
		path, ok := <-changes
		if !ok {
			return watchStoppedMsg{watcher: w}
		}
		return fileChangedMsg{path: path, watcher: w}
	}
}

// busy reports whether submit is disabled.
func (m Model) busy() bool {
	return m.state.Submitting || m.dispatched > 0
}

// startWatch replaces any running watcher with one on path.
func (m *Model) startWatch(path string) tea.Cmd {
	m.stopWatch()

	w, err := watch.New(path, 0, m.log)
	if err != nil {
		m.notice = err.Error()
		return nil
	}
	changes, err := w.Start(m.ctx)
	if err != nil {
		w.Stop()
		m.notice = err.Error()
		return nil
	}
	m.watcher, m.changes = w, changes
	return waitForChange(w, changes)
}

func (m *Model) stopWatch() {
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher, m.changes = nil, nil
	}
}

// Shutdown releases the subscription, the watcher and any attempt in flight.
func (m *Model) Shutdown() {
	if m.quitting {
		return
	}
	m.quitting = true
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.stopWatch()
	m.cancel()
	m.ctrl.Close()
	m.log.Debug("form closed", zap.Uint64("attempts", m.state.Attempt))
}

// Run starts the interactive form and blocks until the user quits.
func Run(cfg Config) error {
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Shutdown()
	} else {
		model.Shutdown()
	}
	return err
}
