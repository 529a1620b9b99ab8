package compositor

import (
	"fmt"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/logger"
	"github.com/bnema/waycomp/internal/signal"
	"github.com/bnema/waycomp/internal/xkb"
)

// KeyboardState is the symbol state machine of one keyboard
type KeyboardState struct {
	device   backend.InputDevice
	names    xkb.RuleNames
	keymap   *xkb.Keymap
	state    *xkb.State
	listener *signal.Listener[backend.KeyEvent]
}

func newKeyboardState(compiler *xkb.Context, dev backend.InputDevice, names xkb.RuleNames) (*KeyboardState, error) {
	keymap, err := compiler.NewKeymapFromNames(names)
	if err != nil {
		return nil, fmt.Errorf("failed to compile keymap for %s: %w", dev.Name(), err)
	}
	state, err := xkb.NewState(keymap)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyboard state for %s: %w", dev.Name(), err)
	}
	return &KeyboardState{
		device: dev,
		names:  keymap.Names(),
		keymap: keymap,
		state:  state,
	}, nil
}

// Device returns the backend device handle
func (k *KeyboardState) Device() backend.InputDevice {
	return k.device
}

// Keymap returns the keymap compiled at detection
func (k *KeyboardState) Keymap() *xkb.Keymap {
	return k.keymap
}

// State returns the translation state
func (k *KeyboardState) State() *xkb.State {
	return k.state
}

func (c *Context) inputAdded(dev backend.InputDevice) {
	if dev.Type() != backend.DeviceKeyboard || dev.Keyboard() == nil {
		logger.Debugf("Ignoring %s device %s", dev.Type(), dev.Name())
		return
	}
	if _, ok := c.keyboards.Get(dev); ok {
		logger.Warnf("Keyboard %s announced twice, ignoring", dev.Name())
		return
	}

	kb, err := newKeyboardState(c.opts.Compiler, dev, c.opts.RuleNames())
	if err != nil {
		c.fail(err)
		return
	}
	kb.listener = dev.Keyboard().Key.Add(func(ev backend.KeyEvent) {
		c.handleKey(kb, ev)
	})
	c.keyboards.Add(dev, kb)
	logger.Infof("Keyboard %s added (%s)", dev.Name(), kb.names)
}

func (c *Context) inputRemoved(dev backend.InputDevice) {
	kb, ok := c.keyboards.Remove(dev)
	if !ok {
		logger.Debugf("Input %s removed without a keyboard record", dev.Name())
		return
	}
	kb.listener.Remove()
	if held := kb.state.HeldKeys(); len(held) > 0 {
		logger.Debugf("Keyboard %s removed with %d key(s) still held: %v", dev.Name(), len(held), held)
	}
	logger.Infof("Keyboard %s removed", dev.Name())
}

// handleKey delivers the keysyms bound to the code as of before this edge,
// then feeds the edge to the state
func (c *Context) handleKey(kb *KeyboardState, ev backend.KeyEvent) {
	code := xkb.FromEvdev(ev.Keycode)
	for _, sym := range kb.state.KeyGetSyms(code) {
		logger.Debugf("Key %s %s", sym.Name(), ev.State)
		if c.OnKey != nil {
			c.OnKey(kb, sym, ev.State)
		}
	}

	dir := xkb.KeyDirUp
	if ev.State == backend.KeyPressed {
		dir = xkb.KeyDirDown
	}
	kb.state.UpdateKey(code, dir)
}
