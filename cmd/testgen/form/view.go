package form

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"testgen/cmd/testgen/ui"
)

// safeRenderMarkdown wraps glamour rendering with panic recovery
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, return plain text
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

// renderResult shows generated text as preformatted output, or raw when the
// renderer is missing or fails.
func (m Model) renderResult(text string) string {
	block := ui.CodeBlock(text)
	rendered := m.safeRenderMarkdown(block)
	if rendered == block || strings.TrimSpace(rendered) == "" {
		return text
	}
	return rendered
}

// outputContent is exactly one of: placeholder, error message or result.
func (m Model) outputContent() string {
	switch {
	case !m.state.ResultVisible:
		return m.styles.Placeholder.Render(OutputPlaceholder)
	case m.state.ShowsError():
		return m.styles.Error.Width(m.viewport.Width).Render(m.state.ErrorMessage)
	default:
		return m.renderResult(m.state.ResultText)
	}
}

func (m *Model) refreshOutput() {
	m.viewport.SetContent(m.outputContent())
	m.viewport.GotoTop()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	footer := m.styles.Footer.Render(m.help.View(m.keys))

	if m.viewMode == FilePickerView {
		content := m.styles.Content.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Title.Render("Choose a source file"),
			m.filepicker.View(),
		))
		return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Label.Render("Code"),
		m.styles.InputFocused.Render(m.textarea.View()),
		m.renderFileLine(),
		m.renderAction(),
		"",
		m.styles.Label.Render("Test Cases"),
		m.styles.Output.Render(m.viewport.View()),
	)

	sections := []string{header, m.styles.Content.Render(body)}
	if m.notice != "" {
		sections = append(sections, m.styles.Footer.Render(m.styles.Muted.Render(m.notice)))
	}
	sections = append(sections, footer)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render("testgen")
	env := m.styles.Badge.Render(m.environment)
	endpoint := m.styles.Muted.Render(m.endpoint)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", env, " ", endpoint)
}

func (m Model) renderFileLine() string {
	in := m.ctrl.Input()
	if in.File == nil {
		return m.styles.Muted.Render("File: none (ctrl+o to choose)")
	}
	line := fmt.Sprintf("File: %s (%d bytes)", in.File.Name, len(in.File.Content))
	if m.watcher != nil {
		line += " [watching]"
	}
	return m.styles.Label.Render(line)
}

func (m Model) renderAction() string {
	if m.busy() {
		return lipgloss.JoinHorizontal(lipgloss.Center,
			m.styles.ButtonPending.Render("Generate Test Cases"),
			" ",
			m.spinner.View(),
			m.styles.Muted.Render(" Generating test cases..."),
		)
	}
	return m.styles.Button.Render("Generate Test Cases")
}
