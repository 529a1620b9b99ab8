// Package headless implements a backend without hardware. Devices are
// created and driven programmatically, which makes it the backend of choice
// for tests and for running the compositor on a machine without seat access.
package headless

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/display"
	"github.com/bnema/waycomp/internal/logger"
)

// Options tunes the headless backend
type Options struct {
	// FrameTicks makes every output emit frames at its mode refresh rate
	FrameTicks bool
}

// Backend is an in-memory backend. The scripting methods (AddKeyboard,
// Key, ScheduleFrame, ...) are safe to call from any goroutine: they post
// their effect to the display event loop.
type Backend struct {
	loop      *display.EventLoop
	events    *backend.Events
	opts      Options
	inputs    []*InputDevice
	outputs   []*Output
	started   bool
	destroyed bool

	// serial numbers input devices in creation order
	serial atomic.Uint32
}

// New creates a headless backend bound to the display event loop
func New(d *display.Display, opts Options) *Backend {
	b := &Backend{
		loop:   d.EventLoop(),
		events: backend.NewEvents(),
		opts:   opts,
	}
	d.OnDestroy.Add(func(*display.Display) { b.Destroy() })
	return b
}

func (b *Backend) Name() string {
	return "headless"
}

func (b *Backend) Events() *backend.Events {
	return b.events
}

// Start announces the devices created so far and arms frame timers
func (b *Backend) Start() error {
	if b.destroyed {
		return backend.ErrDestroyed
	}
	if b.started {
		return backend.ErrAlreadyStarted
	}
	b.started = true
	logger.Debugf("Headless backend started with %d input(s), %d output(s)", len(b.inputs), len(b.outputs))

	for _, out := range b.outputs {
		b.announceOutput(out)
	}
	for _, dev := range b.inputs {
		b.events.InputAdd.Emit(dev)
	}
	return nil
}

// Destroy announces the removal of every attached device
func (b *Backend) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true

	inputs, outputs := b.inputs, b.outputs
	b.inputs, b.outputs = nil, nil
	for _, dev := range inputs {
		dev.attached = false
		if b.started {
			b.events.InputRemove.Emit(dev)
		}
	}
	for _, out := range outputs {
		out.detach()
		if b.started {
			b.events.OutputRemove.Emit(out)
		}
	}
	logger.Debug("Headless backend destroyed")
}

// Inputs returns the attached input devices in attach order
func (b *Backend) Inputs() []*InputDevice {
	return append([]*InputDevice(nil), b.inputs...)
}

// Outputs returns the attached outputs in attach order
func (b *Backend) Outputs() []*Output {
	return append([]*Output(nil), b.outputs...)
}

func (b *Backend) post(fn func()) {
	if !b.loop.Post(fn) {
		logger.Debug("Headless backend: event loop gone, dropping event")
	}
}

// AddKeyboard plugs a virtual keyboard
func (b *Backend) AddKeyboard(name string) *InputDevice {
	return b.AddInputDevice(backend.DeviceKeyboard, name)
}

// AddInputDevice plugs a virtual input device of the given type
func (b *Backend) AddInputDevice(typ backend.DeviceType, name string) *InputDevice {
	dev := &InputDevice{
		backend: b,
		typ:     typ,
		name:    name,
		vendor:  0x1d6b, // Linux Foundation, as used by virtual devices
		product: uint16(b.serial.Add(1)),
	}
	if typ == backend.DeviceKeyboard {
		dev.keyboard = backend.NewKeyboard()
	}

	b.post(func() {
		if b.destroyed {
			return
		}
		dev.attached = true
		b.inputs = append(b.inputs, dev)
		if b.started {
			b.events.InputAdd.Emit(dev)
		}
	})
	return dev
}

// RemoveInput unplugs an input device. Removing a device that is not
// attached does nothing.
func (b *Backend) RemoveInput(dev *InputDevice) {
	b.post(func() {
		if !dev.attached {
			return
		}
		for i, d := range b.inputs {
			if d == dev {
				b.inputs = append(b.inputs[:i], b.inputs[i+1:]...)
				break
			}
		}
		dev.attached = false
		if b.started {
			b.events.InputRemove.Emit(dev)
		}
	})
}

// AddOutput plugs a virtual output. Without modes it advertises a single
// preferred 1920x1080@60Hz mode.
func (b *Backend) AddOutput(name string, modes ...backend.Mode) *Output {
	if len(modes) == 0 {
		modes = []backend.Mode{{Width: 1920, Height: 1080, Refresh: backend.DefaultRefresh, Preferred: true}}
	}
	out := &Output{
		backend: b,
		name:    name,
		modes:   modes,
		events:  backend.NewOutputEvents(),
	}

	b.post(func() {
		if b.destroyed {
			return
		}
		out.attached = true
		b.outputs = append(b.outputs, out)
		if b.started {
			b.announceOutput(out)
		}
	})
	return out
}

// RemoveOutput unplugs an output. Removing an output that is not attached
// does nothing.
func (b *Backend) RemoveOutput(out *Output) {
	b.post(func() {
		if !out.attached {
			return
		}
		for i, o := range b.outputs {
			if o == out {
				b.outputs = append(b.outputs[:i], b.outputs[i+1:]...)
				break
			}
		}
		out.detach()
		if b.started {
			b.events.OutputRemove.Emit(out)
		}
	})
}

func (b *Backend) announceOutput(out *Output) {
	if b.opts.FrameTicks {
		out.timer = b.loop.AddTimer(out.tick)
		out.timer.Update(out.frameInterval())
	}
	b.events.OutputAdd.Emit(out)
}

// InputDevice is a virtual input device
type InputDevice struct {
	backend  *Backend
	typ      backend.DeviceType
	name     string
	vendor   uint16
	product  uint16
	keyboard *backend.Keyboard
	attached bool
}

func (d *InputDevice) Type() backend.DeviceType { return d.typ }
func (d *InputDevice) Name() string { return d.name }
func (d *InputDevice) Vendor() uint16 { return d.vendor }
func (d *InputDevice) Product() uint16 { return d.product }
func (d *InputDevice) Keyboard() *backend.Keyboard { return d.keyboard }

// Attached reports whether the device is currently plugged. Only meaningful
// on the dispatching goroutine.
func (d *InputDevice) Attached() bool {
	return d.attached
}

// Key emits a key edge on a keyboard device. Edges for detached devices are
// dropped, as real hardware cannot produce them.
func (d *InputDevice) Key(code uint32, state backend.KeyState) {
	if d.keyboard == nil {
		logger.Warnf("Headless device %s is not a keyboard, dropping key %d", d.name, code)
		return
	}
	d.backend.post(func() {
		if !d.attached || !d.backend.started {
			return
		}
		d.keyboard.Key.Emit(backend.KeyEvent{Keycode: code, State: state})
	})
}

// Tap emits a press followed by a release
func (d *InputDevice) Tap(code uint32) {
	d.Key(code, backend.KeyPressed)
	d.Key(code, backend.KeyReleased)
}

func (d *InputDevice) String() string {
	return fmt.Sprintf("headless %s %q", d.typ, d.name)
}

// Output is a virtual output
type Output struct {
	backend  *Backend
	name     string
	modes    []backend.Mode
	current  backend.Mode
	hasMode  bool
	events   *backend.OutputEvents
	timer    *display.Timer
	attached bool
}

func (o *Output) Name() string { return o.name }
func (o *Output) Make() string { return "headless" }
func (o *Output) Model() string { return "headless" }
func (o *Output) PhysicalSize() (int32, int32) { return 0, 0 }
func (o *Output) Modes() []backend.Mode { return o.modes }
func (o *Output) Events() *backend.OutputEvents { return o.events }
func (o *Output) CurrentMode() (backend.Mode, bool) { return o.current, o.hasMode }

// Attached reports whether the output is currently plugged
func (o *Output) Attached() bool {
	return o.attached
}

// SetMode switches to one of the advertised modes
func (o *Output) SetMode(mode backend.Mode) error {
	for _, m := range o.modes {
		if m.Width == mode.Width && m.Height == mode.Height && m.Refresh == mode.Refresh {
			o.current = m
			o.hasMode = true
			if o.timer != nil {
				o.timer.Update(o.frameInterval())
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", backend.ErrUnsupportedMode, mode, o.name)
}

// ScheduleFrame emits one frame notification on the next dispatch
func (o *Output) ScheduleFrame() {
	o.backend.post(func() {
		if !o.attached || !o.backend.started {
			return
		}
		o.events.Frame.Emit(struct{}{})
	})
}

func (o *Output) frameInterval() time.Duration {
	if o.hasMode {
		return o.current.FrameInterval()
	}
	mode, _ := backend.PreferredMode(o.modes)
	return mode.FrameInterval()
}

func (o *Output) tick() {
	if !o.attached {
		return
	}
	o.events.Frame.Emit(struct{}{})
	if o.timer != nil {
		o.timer.Update(o.frameInterval())
	}
}

func (o *Output) detach() {
	o.attached = false
	if o.timer != nil {
		o.timer.Remove()
		o.timer = nil
	}
}

func (o *Output) String() string {
	return fmt.Sprintf("headless output %q", o.name)
}
