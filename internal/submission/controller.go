// Package submission implements the form controller: it owns the input and
// the presentation state, validates, dispatches one generation request per
// attempt and publishes every state change to subscribers.
package submission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"testgen/internal/generator"
	"testgen/internal/logging"
)

// Generator performs the remote call. *generator.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the base logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.log = logging.For(l, logging.CategorySubmission)
	}
}

// Controller is safe for concurrent use. Only the latest attempt may write
// its outcome; a newer Submit cancels and supersedes any attempt in flight.
type Controller struct {
	gen Generator
	log *zap.Logger

	mu      sync.Mutex
	input   Input
	state   State
	attempt uint64             // generation counter
	cancel  context.CancelFunc // cancels the attempt in flight
	subs    map[uint64]func(State)
	nextSub uint64

	// pubMu keeps subscriber delivery in mutation order.
	pubMu sync.Mutex
}

// New creates a controller backed by gen.
func New(gen Generator, opts ...Option) *Controller {
	c := &Controller{
		gen:  gen,
		log:  zap.NewNop(),
		subs: make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpdateInlineText replaces the inline code. No validation happens here.
func (c *Controller) UpdateInlineText(value string) {
	c.mu.Lock()
	c.input.InlineText = value
	c.mu.Unlock()
}

// UpdateFile replaces the file selection; nil clears it.
func (c *Controller) UpdateFile(f *File) {
	c.mu.Lock()
	c.input.File = f
	c.mu.Unlock()
}

// LoadFile reads path from disk and selects it.
func (c *Controller) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	c.UpdateFile(&File{Name: filepath.Base(path), Content: data})
	return nil
}

// Input returns a snapshot of the form content.
func (c *Controller) Input() Input {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// State returns a snapshot of the presentation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every state change and returns a func that
// removes it. fn runs on the goroutine that changed the state and must not
// call back into the controller synchronously.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Submit runs one attempt and returns the state it settled into. Invalid
// input fails without any network call. The busy flag set here is always
// released before Submit returns unless a newer attempt has taken over.
func (c *Controller) Submit(ctx context.Context) (final State) {
	c.mu.Lock()
	c.attempt++
	attempt := c.attempt
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	input := c.input
	log := c.log.With(zap.Uint64("attempt", attempt))

	if input.Empty() {
		c.state = State{
			ErrorMessage:  ValidationMessage,
			ResultVisible: true,
			Phase:         PhaseFailed,
			Attempt:       attempt,
		}
		log.Info("submission rejected", zap.Error(ErrNoInput))
		return c.publishLocked()
	}

	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = State{
		Submitting: true,
		Phase:      PhaseSubmitting,
		Attempt:    attempt,
	}
	c.publishLocked()

	log.Debug("submission started",
		zap.Bool("has_code", input.InlineText != ""),
		zap.Bool("has_file", input.File != nil))

	var (
		res *generator.Result
		err error
	)
	defer func() {
		cancel()
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
			res = nil
		}
		final = c.settle(attempt, res, err, log)
	}()

	res, err = c.gen.Generate(reqCtx, generator.Request{
		Code: input.InlineText,
		File: input.File,
	})
	return final
}

// settle writes the outcome of attempt unless it has been superseded.
func (c *Controller) settle(attempt uint64, res *generator.Result, err error, log *zap.Logger) State {
	c.mu.Lock()
	if attempt != c.attempt {
		st := c.state
		c.mu.Unlock()
		log.Debug("discarding stale completion", zap.Uint64("latest", st.Attempt))
		return st
	}
	c.cancel = nil

	if err == nil && res.Text() == "" {
		err = generator.ErrMissingField
	}
	if err != nil {
		c.state = State{
			ErrorMessage:  FailurePrefix + err.Error(),
			ResultVisible: true,
			Phase:         PhaseFailed,
			Attempt:       attempt,
		}
		log.Warn("submission failed", zap.Error(err))
	} else {
		c.state = State{
			ResultText:    res.Text(),
			ResultVisible: true,
			Phase:         PhaseSucceeded,
			Attempt:       attempt,
		}
		log.Info("submission succeeded", zap.Int("bytes", len(res.Text())))
	}
	return c.publishLocked()
}

// Reset clears the input, supersedes any attempt in flight and returns the
// state to idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.attempt++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.input = Input{}
	c.state = State{Attempt: c.attempt}
	c.publishLocked()
}

// Close cancels the attempt in flight, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// publishLocked must be called with c.mu held; it releases c.mu and delivers
// the current state to subscribers in order.
func (c *Controller) publishLocked() State {
	st := c.state
	subs := make([]func(State), 0, len(c.subs))
	for id := uint64(0); id < c.nextSub; id++ {
		if fn, ok := c.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
	return st
}
