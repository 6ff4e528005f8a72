package form

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"testgen/internal/generator"
	"testgen/internal/submission"
)

// stubGenerator answers every request with result or err. When gate is set
// it blocks until the gate closes or the context ends.
type stubGenerator struct {
	mu     sync.Mutex
	result string
	err    error
	gate   chan struct{}
	calls  atomic.Int32
	last   generator.Request
}

func (g *stubGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Result, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.last = req
	result, err, gate := g.result, g.err, g.gate
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &generator.Result{TestCases: &result}, nil
}

func (g *stubGenerator) set(result string, err error) {
	g.mu.Lock()
	g.result, g.err = result, err
	g.mu.Unlock()
}

func (g *stubGenerator) lastRequest() generator.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// TestModelOption configures a test model
type TestModelOption func(*Config)

// WithWatch enables watch mode.
func WithWatch() TestModelOption {
	return func(c *Config) { c.Watch = true }
}

// NewTestModel creates a sized model with a plain-text renderer so output
// assertions are not affected by terminal styling.
func NewTestModel(t *testing.T, gen *stubGenerator, opts ...TestModelOption) Model {
	t.Helper()
	cfg := Config{
		Controller:  submission.New(gen),
		Environment: "local",
		Endpoint:    "http://localhost:8000/generate-test-cases",
		Theme:       "light",
		StartDir:    t.TempDir(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := New(cfg)
	m.renderer = nil
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)
	m.renderer = nil

	t.Cleanup(func() { m.Shutdown() })
	return m
}

// update sends msg and returns the concrete model.
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	result, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return result, cmd
}

// submitAndSettle presses ctrl+s, runs the submit command synchronously and
// feeds its completion back.
func submitAndSettle(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	done := m.submitCmd()()
	m, _ = update(t, m, done)
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}
