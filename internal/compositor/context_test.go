package compositor

import (
	"errors"
	"testing"
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/backend/headless"
	"github.com/bnema/waycomp/internal/display"
	"github.com/bnema/waycomp/internal/session"
	"github.com/bnema/waycomp/internal/xkb"
	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Duration
}

func (f *fakeClock) Now() time.Duration { return f.now }

// countingBackend counts Destroy calls made by the compositor. The headless
// backend's own display hook bypasses the count.
type countingBackend struct {
	*headless.Backend
	destroys int
}

func (b *countingBackend) Destroy() {
	b.destroys++
	b.Backend.Destroy()
}

type keyRecord struct {
	sym   xkb.Keysym
	state backend.KeyState
}

type harness struct {
	t       *testing.T
	ctx     *Context
	backend *countingBackend
	clock   *fakeClock
	keys    []keyRecord
}

func newHarness(t *testing.T, names xkb.RuleNames) *harness {
	t.Helper()
	compiler := xkb.NewContext(xkb.ContextNoEnvironmentNames)
	require.NoError(t, compiler.RegisterLayout(&xkb.Layout{
		Name: "multi",
		Keys: map[uint32]xkb.KeyDef{
			evdev.KEY_A: {Type: xkb.OneLevel, Levels: [][]xkb.Keysym{{xkb.Keya, xkb.Keyb}}},
		},
	}))

	h := &harness{t: t, clock: &fakeClock{now: time.Second}}
	h.ctx = New(Options{
		Backend: func(d *display.Display, _ *session.Session) (backend.Backend, error) {
			h.backend = &countingBackend{Backend: headless.New(d, headless.Options{})}
			return h.backend, nil
		},
		Compiler:  compiler,
		RuleNames: func() xkb.RuleNames { return names },
		Clock:     h.clock,
	})
	h.ctx.OnKey = func(_ *KeyboardState, sym xkb.Keysym, state backend.KeyState) {
		h.keys = append(h.keys, keyRecord{sym, state})
	}
	require.NoError(t, h.ctx.Init())
	return h
}

// then runs fn on the dispatch goroutine after every event posted so far
func (h *harness) then(fn func()) {
	require.True(h.t, h.ctx.Display().EventLoop().Post(fn))
}

// run dispatches everything posted so far and returns the Run result
func (h *harness) run() error {
	h.then(h.ctx.RequestExit)
	watchdog := time.AfterFunc(5*time.Second, h.ctx.Terminate)
	defer watchdog.Stop()
	return h.ctx.Run()
}

func TestEscapeDeliveredOnce(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	kb := h.backend.AddKeyboard("kbd")
	kb.Key(1, backend.KeyPressed)

	require.NoError(t, h.run())
	assert.Equal(t, []keyRecord{{xkb.KeyEscape, backend.KeyPressed}}, h.keys)
}

func TestMultiKeysymDelivery(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{Layout: "multi"})
	kb := h.backend.AddKeyboard("kbd")
	kb.Key(evdev.KEY_A, backend.KeyPressed)
	kb.Key(evdev.KEY_A, backend.KeyReleased)

	require.NoError(t, h.run())
	assert.Equal(t, []keyRecord{
		{xkb.Keya, backend.KeyPressed},
		{xkb.Keyb, backend.KeyPressed},
		{xkb.Keya, backend.KeyReleased},
		{xkb.Keyb, backend.KeyReleased},
	}, h.keys)
}

func TestKeysymsQueriedBeforeUpdate(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{Layout: "us"})
	kb := h.backend.AddKeyboard("kbd")
	kb.Key(evdev.KEY_LEFTSHIFT, backend.KeyPressed)
	kb.Key(evdev.KEY_A, backend.KeyPressed)
	kb.Key(evdev.KEY_LEFTSHIFT, backend.KeyReleased)
	kb.Key(evdev.KEY_A, backend.KeyReleased)
	kb.Tap(evdev.KEY_CAPSLOCK)
	kb.Tap(evdev.KEY_1)

	require.NoError(t, h.run())
	assert.Equal(t, []keyRecord{
		{xkb.KeyShiftL, backend.KeyPressed},
		{xkb.KeyA, backend.KeyPressed},
		{xkb.KeyShiftL, backend.KeyReleased},
		{xkb.Keya, backend.KeyReleased},
		{xkb.KeyCapsLock, backend.KeyPressed},
		{xkb.KeyCapsLock, backend.KeyReleased},
		{xkb.Latin1('1'), backend.KeyPressed},
		{xkb.Latin1('1'), backend.KeyReleased},
	}, h.keys)
}

func TestPressReleaseRoundTrip(t *testing.T) {
	codes := []uint32{evdev.KEY_A, evdev.KEY_LEFTSHIFT, evdev.KEY_RIGHTALT, evdev.KEY_LEFTCTRL, evdev.KEY_ESC}
	for _, code := range codes {
		h := newHarness(t, xkb.RuleNames{Layout: "de"})
		kb := h.backend.AddKeyboard("kbd")

		var before, after xkb.Snapshot
		h.then(func() {
			before = h.ctx.Keyboards()[0].State().Snapshot()
		})
		kb.Tap(code)
		h.then(func() {
			after = h.ctx.Keyboards()[0].State().Snapshot()
		})

		require.NoError(t, h.run())
		assert.Equal(t, before, after, "code %d", code)
	}
}

func TestKeyboardRemovalDropsHeldKeys(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	kb := h.backend.AddKeyboard("kbd")
	kb.Key(evdev.KEY_LEFTSHIFT, backend.KeyPressed)

	var held []xkb.Keycode
	h.then(func() {
		held = h.ctx.Keyboards()[0].State().HeldKeys()
	})
	h.backend.RemoveInput(kb)
	h.then(func() {
		assert.Empty(t, h.ctx.Keyboards())
	})
	kb.Key(evdev.KEY_A, backend.KeyPressed)

	require.NoError(t, h.run())
	assert.Equal(t, []xkb.Keycode{xkb.FromEvdev(evdev.KEY_LEFTSHIFT)}, held)
	assert.Len(t, h.keys, 1)
}

func TestNonKeyboardInputIgnored(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	h.backend.AddInputDevice(backend.DevicePointer, "mouse")
	h.backend.AddKeyboard("kbd")

	var names []string
	h.then(func() {
		for _, kb := range h.ctx.Keyboards() {
			names = append(names, kb.Device().Name())
		}
	})
	require.NoError(t, h.run())
	assert.Equal(t, []string{"kbd"}, names)
}

func TestKeymapFailureStopsRun(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{Layout: "zz"})
	h.backend.AddKeyboard("kbd")
	h.backend.AddKeyboard("second")

	err := h.ctx.Run()
	assert.ErrorIs(t, err, xkb.ErrUnknownLayout)
	assert.Contains(t, err.Error(), "kbd")
	assert.Equal(t, StateTerminated, h.ctx.State())
	assert.Equal(t, 1, h.backend.destroys)
	assert.Empty(t, h.ctx.Keyboards())
}

func TestFrameElapsed(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	out := h.backend.AddOutput("HEADLESS-1")

	var elapsed []time.Duration
	h.ctx.OnFrame = func(st *OutputState, d time.Duration) {
		assert.Equal(t, "HEADLESS-1", st.Output().Name())
		elapsed = append(elapsed, d)
	}

	h.then(func() { h.clock.now = 1016 * time.Millisecond })
	out.ScheduleFrame()
	h.then(func() { h.clock.now = 1050 * time.Millisecond })
	out.ScheduleFrame()
	h.then(func() { h.clock.now = 1040 * time.Millisecond })
	out.ScheduleFrame()

	var last, global time.Duration
	var frames uint64
	h.then(func() {
		st := h.ctx.Outputs()[0]
		last, global, frames = st.LastFrame(), h.ctx.LastFrame(), st.Frames()
	})

	require.NoError(t, h.run())
	assert.Equal(t, []time.Duration{16 * time.Millisecond, 34 * time.Millisecond, 0}, elapsed)
	assert.Equal(t, 1040*time.Millisecond, last)
	assert.Equal(t, 1040*time.Millisecond, global)
	assert.Equal(t, uint64(3), frames)
}

func TestGlobalFrameClockSeededAtInit(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	assert.Equal(t, time.Second, h.ctx.LastFrame())
}

func TestOutputOrder(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	o1 := h.backend.AddOutput("O1")
	h.backend.AddOutput("O2")
	h.backend.RemoveOutput(o1)

	names := func() []string {
		var out []string
		for _, st := range h.ctx.Outputs() {
			out = append(out, st.Output().Name())
		}
		return out
	}
	var afterRemove, afterAdd []string
	h.then(func() { afterRemove = names() })
	h.backend.AddOutput("O3")
	h.then(func() { afterAdd = names() })

	require.NoError(t, h.run())
	assert.Equal(t, []string{"O2"}, afterRemove)
	assert.Equal(t, []string{"O2", "O3"}, afterAdd)
}

func TestOutputCallbacksAndMode(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	var events []string
	h.ctx.OnOutputAdd = func(st *OutputState) {
		mode, ok := st.Output().CurrentMode()
		require.True(t, ok)
		events = append(events, "+"+st.Output().Name()+" "+mode.String())
	}
	h.ctx.OnOutputRemove = func(st *OutputState) {
		events = append(events, "-"+st.Output().Name())
	}

	h.backend.AddOutput("A",
		backend.Mode{Width: 1280, Height: 720, Refresh: 60000},
		backend.Mode{Width: 2560, Height: 1440, Refresh: 144000, Preferred: true},
	)
	h.backend.AddOutput("B", backend.Mode{Width: 800, Height: 600, Refresh: 60000})

	require.NoError(t, h.run())
	assert.Equal(t, []string{
		"+A 2560x1440@144.000Hz",
		"+B 800x600@60.000Hz",
		"-A",
		"-B",
	}, events)
	assert.Empty(t, h.ctx.Outputs())
}

func TestExitBeforeFirstDispatch(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	d := h.ctx.Display()
	destroyed := 0
	d.OnDestroy.Add(func(*display.Display) { destroyed++ })

	h.ctx.RequestExit()
	require.NoError(t, h.ctx.Run())

	assert.Equal(t, 0, h.ctx.Dispatches())
	assert.Equal(t, 1, h.backend.destroys)
	assert.Equal(t, 1, destroyed)
	assert.True(t, d.Destroyed())
	assert.False(t, h.ctx.Session().Active())
	assert.Equal(t, StateTerminated, h.ctx.State())

	assert.ErrorIs(t, h.ctx.Run(), ErrInvalidState)
	assert.ErrorIs(t, h.ctx.Init(), ErrInvalidState)
	assert.Equal(t, 1, h.backend.destroys)
}

func TestTerminateFromAnotherGoroutine(t *testing.T) {
	h := newHarness(t, xkb.RuleNames{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		h.ctx.Terminate()
	}()

	require.NoError(t, h.ctx.Run())
	assert.True(t, h.ctx.ExitRequested())
	assert.Equal(t, 1, h.backend.destroys)
}

func TestInitFailureReleasesResources(t *testing.T) {
	var created *display.Display
	var sess *session.Session
	boom := errors.New("boom")
	c := New(Options{
		Backend: func(d *display.Display, s *session.Session) (backend.Backend, error) {
			created, sess = d, s
			return nil, boom
		},
		Compiler: xkb.NewContext(xkb.ContextNoEnvironmentNames),
	})

	err := c.Init()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateUninitialized, c.State())
	require.NotNil(t, created)
	assert.True(t, created.Destroyed())
	assert.False(t, sess.Active())

	assert.ErrorIs(t, c.Run(), ErrInvalidState)
}

func TestBackendStartFailure(t *testing.T) {
	var b *headless.Backend
	c := New(Options{
		Backend: func(d *display.Display, _ *session.Session) (backend.Backend, error) {
			b = headless.New(d, headless.Options{})
			return b, b.Start()
		},
		Compiler: xkb.NewContext(xkb.ContextNoEnvironmentNames),
	})
	require.NoError(t, c.Init())

	err := c.Run()
	assert.ErrorIs(t, err, backend.ErrAlreadyStarted)
	assert.Equal(t, StateTerminated, c.State())
	assert.True(t, c.Display().Destroyed())
}

func TestApplicationDataUntouched(t *testing.T) {
	type appState struct{ color int }
	h := newHarness(t, xkb.RuleNames{})
	app := &appState{}
	h.ctx.Data = app

	h.backend.AddKeyboard("kbd").Key(1, backend.KeyPressed)
	h.ctx.OnKey = func(*KeyboardState, xkb.Keysym, backend.KeyState) {
		h.ctx.Data.(*appState).color++
	}

	require.NoError(t, h.run())
	assert.Same(t, app, h.ctx.Data)
	assert.Equal(t, 1, app.color)
}
