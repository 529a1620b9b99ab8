// Package compositor is the device hotplug and event dispatch core. A
// Context tracks the keyboards and outputs announced by a backend, turns raw
// key edges into keysyms and frame notifications into elapsed times, and
// runs the blocking dispatch loop until an exit is requested.
//
// Everything except Terminate must be called from the goroutine running the
// dispatch loop. Callbacks run synchronously on that goroutine and must not
// retain KeyboardState or OutputState records past a remove notification.
package compositor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/backend/auto"
	"github.com/bnema/waycomp/internal/config"
	"github.com/bnema/waycomp/internal/display"
	"github.com/bnema/waycomp/internal/logger"
	"github.com/bnema/waycomp/internal/session"
	"github.com/bnema/waycomp/internal/xkb"
)

// ErrInvalidState is returned when Init or Run is called out of order
var ErrInvalidState = errors.New("invalid compositor state")

// State is the lifecycle stage of a Context
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BackendFactory creates the hardware backend once the display and session
// exist
type BackendFactory func(d *display.Display, s *session.Session) (backend.Backend, error)

// Options configures a Context. Zero values select the defaults.
type Options struct {
	// Backend defaults to auto.Create with the backend configuration
	Backend BackendFactory
	// Compiler defaults to a keymap context using the keyboard
	// configuration as compiler defaults
	Compiler *xkb.Context
	// RuleNames is read once per detected keyboard, defaults to the
	// XKB_DEFAULT_* environment
	RuleNames func() xkb.RuleNames
	// Clock defaults to CLOCK_MONOTONIC
	Clock Clock
}

// Context composes the registries, the symbol state machines and the
// dispatch loop
type Context struct {
	// OnFrame is called once per frame notification with the time elapsed
	// since the previous frame of that output
	OnFrame func(out *OutputState, elapsed time.Duration)
	// OnKey is called once per keysym bound to a key edge
	OnKey func(kb *KeyboardState, sym xkb.Keysym, state backend.KeyState)
	// OnOutputAdd is called after an output is registered and its mode set
	OnOutputAdd func(out *OutputState)
	// OnOutputRemove is called before an output record is released
	OnOutputRemove func(out *OutputState)

	// Data is owned by the embedding application and never touched here
	Data any

	opts  Options
	state State

	display *display.Display
	loop    *display.EventLoop
	session *session.Session
	backend backend.Backend

	listeners []interface{ Remove() }
	keyboards *Registry[backend.InputDevice, *KeyboardState]
	outputs   *Registry[backend.Output, *OutputState]

	lastFrame  time.Duration
	exit       atomic.Bool
	fatal      error
	dispatches int
}

// New creates an uninitialized context
func New(opts Options) *Context {
	if opts.Backend == nil {
		opts.Backend = func(d *display.Display, s *session.Session) (backend.Backend, error) {
			return auto.Create(d, s, config.Get().Backend)
		}
	}
	if opts.Compiler == nil {
		opts.Compiler = xkb.NewContext(xkb.ContextNoEnvironmentNames)
		opts.Compiler.SetDefaults(config.Get().Keyboard.RuleNames())
	}
	if opts.RuleNames == nil {
		opts.RuleNames = xkb.RuleNamesFromEnv
	}
	if opts.Clock == nil {
		opts.Clock = MonotonicClock{}
	}
	return &Context{
		opts:      opts,
		keyboards: NewRegistry[backend.InputDevice, *KeyboardState](),
		outputs:   NewRegistry[backend.Output, *OutputState](),
	}
}

// Init acquires the display, the session and the backend, and subscribes
// the registries to the backend hotplug signals. On failure everything
// acquired so far is released and the context stays uninitialized.
func (c *Context) Init() error {
	if c.state != StateUninitialized {
		return fmt.Errorf("%w: init while %s", ErrInvalidState, c.state)
	}

	d, err := display.Create()
	if err != nil {
		return fmt.Errorf("failed to create display: %w", err)
	}

	s, err := session.Start(d)
	if err != nil {
		d.Destroy()
		return fmt.Errorf("failed to start session: %w", err)
	}

	b, err := c.opts.Backend(d, s)
	if err != nil {
		s.Finish()
		d.Destroy()
		return fmt.Errorf("failed to create backend: %w", err)
	}
	if b == nil {
		s.Finish()
		d.Destroy()
		return backend.ErrNoBackend
	}

	c.display, c.loop, c.session, c.backend = d, d.EventLoop(), s, b

	ev := b.Events()
	c.listeners = []interface{ Remove() }{
		ev.InputAdd.Add(c.inputAdded),
		ev.InputRemove.Add(c.inputRemoved),
		ev.OutputAdd.Add(c.outputAdded),
		ev.OutputRemove.Add(c.outputRemoved),
	}

	c.lastFrame = c.opts.Clock.Now()
	c.state = StateInitialized
	logger.Debugf("Compositor initialized on %s with backend %s", d.Name(), b.Name())
	return nil
}

// Run starts the backend and dispatches events until an exit is requested
// or a device fails to initialize. Teardown always runs before Run returns.
func (c *Context) Run() error {
	if c.state != StateInitialized {
		return fmt.Errorf("%w: run while %s", ErrInvalidState, c.state)
	}
	c.state = StateRunning

	if err := c.backend.Start(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to start backend %s: %w", c.backend.Name(), err)
	}
	logger.Infof("Running compositor on %s", c.display.Name())

	var err error
	for !c.exit.Load() && c.fatal == nil {
		c.dispatches++
		if _, derr := c.loop.Dispatch(-1); derr != nil {
			err = fmt.Errorf("event loop dispatch failed: %w", derr)
			break
		}
	}
	if c.fatal != nil {
		err = c.fatal
	}

	c.teardown()
	return err
}

// teardown releases in reverse acquisition order. Destroying the backend
// emits the final remove notifications, which the registries still handle.
func (c *Context) teardown() {
	if c.state == StateTerminated {
		return
	}
	c.backend.Destroy()
	for _, l := range c.listeners {
		l.Remove()
	}
	c.listeners = nil

	c.keyboards.Each(func(dev backend.InputDevice, _ *KeyboardState) bool {
		c.inputRemoved(dev)
		return true
	})
	c.outputs.Each(func(out backend.Output, _ *OutputState) bool {
		c.outputRemoved(out)
		return true
	})

	c.session.Finish()
	c.display.Destroy()
	c.state = StateTerminated
	logger.Debugf("Compositor terminated after %d dispatches", c.dispatches)
}

// fail records the first device initialization error. Run stops after the
// current dispatch returns.
func (c *Context) fail(err error) {
	logger.Errorf("%v", err)
	if c.fatal == nil {
		c.fatal = err
	}
}

// RequestExit makes Run return after the current dispatch
func (c *Context) RequestExit() {
	c.exit.Store(true)
}

// ExitRequested reports whether an exit was requested
func (c *Context) ExitRequested() bool {
	return c.exit.Load()
}

// Terminate requests an exit and wakes the dispatch loop. Unlike the rest
// of the API it is safe to call from any goroutine once Init returned.
func (c *Context) Terminate() {
	c.exit.Store(true)
	if c.loop != nil {
		c.loop.Wake()
	}
}

// State returns the lifecycle stage
func (c *Context) State() State {
	return c.state
}

// Display returns the display, nil outside Init..Run
func (c *Context) Display() *display.Display {
	return c.display
}

// Backend returns the backend, nil before Init
func (c *Context) Backend() backend.Backend {
	return c.backend
}

// Session returns the seat session, nil before Init
func (c *Context) Session() *session.Session {
	return c.session
}

// Keyboards returns the registered keyboards in detection order
func (c *Context) Keyboards() []*KeyboardState {
	return c.keyboards.Values()
}

// Outputs returns the registered outputs in detection order
func (c *Context) Outputs() []*OutputState {
	return c.outputs.Values()
}

// LastFrame returns the timestamp of the most recent frame on any output,
// or of Init when none was delivered yet
func (c *Context) LastFrame() time.Duration {
	return c.lastFrame
}

// Dispatches returns the number of blocking dispatch calls made by Run
func (c *Context) Dispatches() int {
	return c.dispatches
}
