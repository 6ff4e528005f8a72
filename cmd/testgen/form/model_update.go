package form

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case stateMsg:
		// The message only wakes the loop; the controller snapshot is
		// authoritative in case deliveries were coalesced.
		m.state = m.ctrl.State()
		m.refreshOutput()
		cmds := []tea.Cmd{m.waitForState()}
		if m.state.Submitting {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case submitDoneMsg:
		if m.dispatched > 0 {
			m.dispatched--
		}
		m.state = m.ctrl.State()
		m.refreshOutput()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fileChangedMsg:
		if m.watcher == nil || msg.watcher != m.watcher {
			return m, nil
		}
		next := waitForChange(m.watcher, m.changes)
		if err := m.ctrl.LoadFile(msg.path); err != nil {
			m.notice = err.Error()
			return m, next
		}
		m.notice = fmt.Sprintf("%s changed, regenerating", filepath.Base(msg.path))
		m.log.Info("watched file changed", zap.String("path", msg.path))
		var submit tea.Cmd
		m, submit = m.dispatch()
		return m, tea.Batch(submit, next)

	case watchStoppedMsg:
		if msg.watcher == m.watcher {
			m.watcher, m.changes = nil, nil
		}
		return m, nil
	}

	// Internal component messages (cursor blink, directory listings)
	var taCmd, fpCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.filepicker, fpCmd = m.filepicker.Update(msg)
	return m, tea.Batch(taCmd, fpCmd)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Shutdown()
		return m, tea.Quit
	}

	if m.viewMode == FilePickerView {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.Shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		if m.busy() {
			return m, nil
		}
		return m.dispatch()

	case key.Matches(msg, m.keys.PickFile):
		m.viewMode = FilePickerView
		m.filepicker = newFilePicker(m.startDir, m.pickerHeight())
		return m, m.filepicker.Init()

	case key.Matches(msg, m.keys.ClearFile):
		m.ctrl.UpdateFile(nil)
		m.filePath = ""
		m.stopWatch()
		m.notice = "file cleared"
		return m, nil

	case key.Matches(msg, m.keys.Watch):
		m.watchEnabled = !m.watchEnabled
		if !m.watchEnabled {
			m.stopWatch()
			m.notice = "watch off"
			return m, nil
		}
		m.notice = "watch on"
		if m.filePath != "" {
			return m, m.startWatch(m.filePath)
		}
		return m, nil

	case key.Matches(msg, m.keys.Reset):
		m.ctrl.Reset()
		m.textarea.Reset()
		m.filePath = ""
		m.stopWatch()
		m.dispatched = 0
		m.state = m.ctrl.State()
		m.notice = ""
		m.refreshOutput()
		return m, nil

	case key.Matches(msg, m.keys.Scroll):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.ctrl.UpdateInlineText(m.textarea.Value())
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.viewMode = FormView
		return m, nil
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.viewMode = FormView
		return m, tea.Batch(cmd, m.selectFile(path))
	}

	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.notice = fmt.Sprintf("%s cannot be selected", filepath.Base(path))
	}
	return m, cmd
}

// selectFile loads path into the controller and starts watching it when
// watch mode is on.
func (m *Model) selectFile(path string) tea.Cmd {
	if err := m.ctrl.LoadFile(path); err != nil {
		m.notice = err.Error()
		return nil
	}
	m.filePath = path
	m.startDir = filepath.Dir(path)
	m.notice = ""
	m.log.Debug("file selected", zap.String("path", path))
	if !m.watchEnabled {
		return nil
	}
	return m.startWatch(path)
}

// dispatch starts an attempt. Submit publishes Submitting before it makes
// the request, so the spinner starts from the state subscription too.
func (m Model) dispatch() (Model, tea.Cmd) {
	m.dispatched++
	return m, tea.Batch(m.submitCmd(), m.spinner.Tick)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	inner := width - 6
	if inner < 10 {
		inner = 10
	}

	m.textarea.SetWidth(inner)
	m.viewport.Width = inner

	// header, labels, file line, action line, notice, help and borders
	const chrome = 14
	rows := height - editorHeight - chrome
	if rows < minOutputRows {
		rows = minOutputRows
	}
	m.viewport.Height = rows
	m.filepicker.Height = m.pickerHeight()
	m.help.Width = width

	m.renderer = newRenderer(m.styles.Theme.IsDark, inner-2)
	m.refreshOutput()
	m.ready = true
}

func (m Model) pickerHeight() int {
	if m.height > 8 {
		return m.height - 6
	}
	return 10
}
