// Package form implements the interactive test case generation form: a code
// editor, an optional file selection, a submit action and an output region.
package form

import (
	"context"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"testgen/cmd/testgen/ui"
	"testgen/internal/submission"
	"testgen/internal/watch"
)

// ViewMode determines which component is focused/active
type ViewMode int

const (
	FormView ViewMode = iota
	FilePickerView
)

// OutputPlaceholder is shown in the output region before the first result.
const OutputPlaceholder = "Test cases will appear here..."

// Config carries what the form needs from the command line.
type Config struct {
	Controller  *submission.Controller
	Environment string
	Endpoint    string
	Theme       string
	Watch       bool
	StartDir    string
	Logger      *zap.Logger
}

// stateMsg delivers a controller state change to the update loop.
type stateMsg submission.State

// submitDoneMsg is returned by the command running Submit.
type submitDoneMsg submission.State

// fileChangedMsg reports that the watched file settled after a change.
type fileChangedMsg struct {
	path    string
	watcher *watch.Watcher
}

// watchStoppedMsg reports that a watch channel closed.
type watchStoppedMsg struct {
	watcher *watch.Watcher
}

// Model is the Bubble Tea model for the form.
type Model struct {
	ctrl *submission.Controller
	log  *zap.Logger

	// UI components
	textarea   textarea.Model
	filepicker filepicker.Model
	spinner    spinner.Model
	viewport   viewport.Model
	help       help.Model
	keys       keyMap
	styles     ui.Styles
	renderer   *glamour.TermRenderer

	// Latest controller state
	state submission.State

	// Submits dispatched but not yet returned
	dispatched int

	// Subscription plumbing
	stateChan   chan submission.State
	unsubscribe func()

	// File watching
	watchEnabled bool
	watcher      *watch.Watcher
	changes      <-chan string
	filePath     string // on-disk path of the selected file, if picked

	ctx    context.Context
	cancel context.CancelFunc

	viewMode    ViewMode
	environment string
	endpoint    string
	startDir    string
	notice      string
	width       int
	height      int
	ready       bool
	quitting    bool
}
