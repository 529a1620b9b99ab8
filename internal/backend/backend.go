// Package backend defines the hardware collaborator consumed by the
// compositor: a source of input and output hotplug notifications, key events
// per keyboard and frame notifications per output.
//
// Implementations emit every signal on the goroutine that dispatches the
// display event loop. Hardware readers running on their own goroutines must
// hand their events over with EventLoop.Post.
package backend

import (
	"fmt"
	"time"

	"github.com/bnema/waycomp/internal/signal"
)

// DeviceType classifies input devices
type DeviceType int

const (
	DeviceKeyboard DeviceType = iota
	DevicePointer
	DeviceTouch
	DeviceTabletTool
	DeviceTabletPad
	DeviceSwitch
)

func (t DeviceType) String() string {
	switch t {
	case DeviceKeyboard:
		return "keyboard"
	case DevicePointer:
		return "pointer"
	case DeviceTouch:
		return "touch"
	case DeviceTabletTool:
		return "tablet-tool"
	case DeviceTabletPad:
		return "tablet-pad"
	case DeviceSwitch:
		return "switch"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// KeyState is the edge carried by a key event
type KeyState int

const (
	KeyReleased KeyState = iota
	KeyPressed
)

func (s KeyState) String() string {
	if s == KeyPressed {
		return "pressed"
	}
	return "released"
}

// KeyEvent is a raw key edge. Keycode is the kernel scan code, without the
// +8 offset applied by the keymap.
type KeyEvent struct {
	TimeMsec uint32
	Keycode  uint32
	State    KeyState
}

// Keyboard carries the key signal of a keyboard input device
type Keyboard struct {
	Key *signal.Signal[KeyEvent]
}

// NewKeyboard creates a keyboard with an empty key signal
func NewKeyboard() *Keyboard {
	return &Keyboard{Key: signal.New[KeyEvent]()}
}

// InputDevice is a weak handle to a backend input device. Implementations
// must be pointer types: the compositor keys its registries on handle
// identity.
type InputDevice interface {
	Type() DeviceType
	Name() string
	Vendor() uint16
	Product() uint16
	// Keyboard returns the key source, or nil for non-keyboard devices
	Keyboard() *Keyboard
}

// Mode is a display mode advertised by an output
type Mode struct {
	Width     int32
	Height    int32
	Refresh   int32 // mHz, zero when unknown
	Preferred bool
}

func (m Mode) String() string {
	if m.Refresh == 0 {
		return fmt.Sprintf("%dx%d", m.Width, m.Height)
	}
	return fmt.Sprintf("%dx%d@%.3fHz", m.Width, m.Height, float64(m.Refresh)/1000)
}

// FrameInterval returns the time between two vblanks at this mode's refresh
// rate, falling back to 60Hz when the rate is unknown
func (m Mode) FrameInterval() time.Duration {
	refresh := m.Refresh
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return time.Duration(int64(time.Second) * 1000 / int64(refresh))
}

// DefaultRefresh is the refresh rate in mHz assumed for modes without one
const DefaultRefresh = 60000

// PreferredMode picks the mode flagged as preferred, else the first one
func PreferredMode(modes []Mode) (Mode, bool) {
	for _, m := range modes {
		if m.Preferred {
			return m, true
		}
	}
	if len(modes) > 0 {
		return modes[0], true
	}
	return Mode{}, false
}

// OutputEvents are the per-output notification sources
type OutputEvents struct {
	// Frame fires when the output is ready for a new frame
	Frame *signal.Signal[struct{}]
}

// NewOutputEvents creates empty output signals
func NewOutputEvents() *OutputEvents {
	return &OutputEvents{Frame: signal.New[struct{}]()}
}

// Output is a weak handle to a backend output. Implementations must be
// pointer types.
type Output interface {
	Name() string
	Make() string
	Model() string
	// PhysicalSize returns the panel size in millimetres
	PhysicalSize() (width, height int32)
	Modes() []Mode
	CurrentMode() (Mode, bool)
	SetMode(mode Mode) error
	Events() *OutputEvents
}

// Events are the hotplug notification sources of a backend
type Events struct {
	InputAdd     *signal.Signal[InputDevice]
	InputRemove  *signal.Signal[InputDevice]
	OutputAdd    *signal.Signal[Output]
	OutputRemove *signal.Signal[Output]
}

// NewEvents creates empty hotplug signals
func NewEvents() *Events {
	return &Events{
		InputAdd:     signal.New[InputDevice](),
		InputRemove:  signal.New[InputDevice](),
		OutputAdd:    signal.New[Output](),
		OutputRemove: signal.New[Output](),
	}
}

// Backend is a hardware source. Start announces the devices already present
// and begins watching for hotplug; Destroy announces the removal of every
// device still attached and releases the backend.
type Backend interface {
	Name() string
	Events() *Events
	Start() error
	Destroy()
}
