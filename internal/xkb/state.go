package xkb

import (
	"fmt"
	"sort"
	"strings"
)

// KeyDirection is the edge passed to UpdateKey
type KeyDirection int

const (
	KeyDirUp KeyDirection = iota
	KeyDirDown
)

func (d KeyDirection) String() string {
	if d == KeyDirDown {
		return "down"
	}
	return "up"
}

// StateComponent flags which parts of the state changed
type StateComponent uint32

const (
	StateModsDepressed StateComponent = 1 << iota
	StateModsLatched
	StateModsLocked
	StateModsEffective
	StateLayoutDepressed
	StateLayoutLatched
	StateLayoutLocked
	StateLayoutEffective
)

// State is the keyboard state for one keymap: held keys, depressed and
// locked modifiers and the locked layout. It is not safe for concurrent
// use.
type State struct {
	keymap *Keymap
	held   []heldKey
	locked ModMask
	layout int
}

// heldKey remembers the action a key performed when it went down, so the
// release undoes the same thing even if the layout changed in between
type heldKey struct {
	code   Keycode
	action keyAction
	// the modifiers were already locked when the key went down
	wasLocked bool
}

// Snapshot is a comparable copy of a State
type Snapshot struct {
	Depressed ModMask
	Locked    ModMask
	Layout    int
	Held      []Keycode
}

// NewState creates a state with no keys held
func NewState(keymap *Keymap) (*State, error) {
	if keymap == nil {
		return nil, fmt.Errorf("state requires a keymap")
	}
	return &State{keymap: keymap}, nil
}

// Keymap returns the keymap the state was created for
func (s *State) Keymap() *Keymap {
	return s.keymap
}

func (s *State) isHeld(code Keycode) bool {
	for _, h := range s.held {
		if h.code == code {
			return true
		}
	}
	return false
}

func (s *State) depressed() ModMask {
	var mods ModMask
	for _, h := range s.held {
		if h.action.kind == actionSetMods || h.action.kind == actionLockMods {
			mods |= h.action.mods
		}
	}
	return mods
}

func (s *State) effective() ModMask {
	return s.depressed() | s.locked
}

// UpdateKey applies a key edge and returns the components that changed.
// Repeated presses and releases of keys that are not held are ignored.
func (s *State) UpdateKey(code Keycode, dir KeyDirection) StateComponent {
	k, ok := s.keymap.keys[code]
	if !ok {
		return 0
	}

	before := s.capture()
	switch dir {
	case KeyDirDown:
		if s.isHeld(code) {
			return 0
		}
		s.press(k)
	case KeyDirUp:
		if !s.isHeld(code) {
			return 0
		}
		s.release(k)
	}
	return before.diff(s.capture())
}

func (s *State) press(k *key) {
	depressed := s.depressed()
	h := heldKey{code: k.code, action: k.action(s.layout)}

	switch h.action.kind {
	case actionLockMods:
		h.wasLocked = s.locked&h.action.mods != 0
		s.locked |= h.action.mods
	case actionNextGroup:
		s.nextLayout()
	case actionSetMods:
		if s.keymap.altShiftToggle {
			if h.action.mods == ModShift && depressed&Mod1 != 0 ||
				h.action.mods == Mod1 && depressed&ModShift != 0 {
				s.nextLayout()
			}
		}
	}
	s.held = append(s.held, h)
}

func (s *State) release(k *key) {
	for i, h := range s.held {
		if h.code != k.code {
			continue
		}
		s.held = append(s.held[:i], s.held[i+1:]...)
		// a lock key unlocks on the release that follows a press made
		// while it was already locked
		if h.action.kind == actionLockMods && h.wasLocked {
			s.locked &^= h.action.mods
		}
		return
	}
}

func (s *State) nextLayout() {
	if n := s.keymap.NumLayouts(); n > 0 {
		s.layout = (s.layout + 1) % n
	}
}

type stateValues struct {
	depressed, locked ModMask
	layout            int
}

func (s *State) capture() stateValues {
	return stateValues{depressed: s.depressed(), locked: s.locked, layout: s.layout}
}

func (v stateValues) diff(o stateValues) StateComponent {
	var changed StateComponent
	if v.depressed != o.depressed {
		changed |= StateModsDepressed
	}
	if v.locked != o.locked {
		changed |= StateModsLocked
	}
	if v.depressed|v.locked != o.depressed|o.locked {
		changed |= StateModsEffective
	}
	if v.layout != o.layout {
		changed |= StateLayoutLocked | StateLayoutEffective
	}
	return changed
}

// KeyGetLayout returns the layout the key resolves in
func (s *State) KeyGetLayout(code Keycode) int {
	k, ok := s.keymap.keys[code]
	if !ok {
		return -1
	}
	if s.layout < len(k.groups) && k.groups[s.layout].defined() {
		return s.layout
	}
	return 0
}

// KeyGetLevel returns the shift level the key resolves to
func (s *State) KeyGetLevel(code Keycode) int {
	k, ok := s.keymap.keys[code]
	if !ok {
		return -1
	}
	return k.group(s.layout).Type.Level(s.effective())
}

// KeyGetSyms returns the keysyms the key produces in the current state. A
// key may produce none, one or several keysyms. The returned slice must not
// be modified.
func (s *State) KeyGetSyms(code Keycode) []Keysym {
	k, ok := s.keymap.keys[code]
	if !ok {
		return nil
	}
	def := k.group(s.layout)
	level := def.Type.Level(s.effective())
	if level >= len(def.Levels) {
		return nil
	}
	return def.Levels[level]
}

// KeyGetOneSym returns the keysym when the key produces exactly one
func (s *State) KeyGetOneSym(code Keycode) Keysym {
	syms := s.KeyGetSyms(code)
	if len(syms) != 1 {
		return KeyNoSymbol
	}
	return syms[0]
}

// KeyGetUTF8 returns the text produced by the key, Control combinations
// excluded
func (s *State) KeyGetUTF8(code Keycode) string {
	if s.effective()&ModControl != 0 {
		return ""
	}
	var sb strings.Builder
	for _, sym := range s.KeyGetSyms(code) {
		if r := sym.Rune(); r != 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SerializeMods returns the modifiers of the requested components
func (s *State) SerializeMods(components StateComponent) ModMask {
	var mods ModMask
	if components&StateModsEffective != 0 {
		return s.effective()
	}
	if components&StateModsDepressed != 0 {
		mods |= s.depressed()
	}
	if components&StateModsLocked != 0 {
		mods |= s.locked
	}
	return mods
}

// SerializeLayout returns the active layout index. Only the locked and
// effective components carry a layout.
func (s *State) SerializeLayout(components StateComponent) int {
	if components&(StateLayoutLocked|StateLayoutEffective) != 0 {
		return s.layout
	}
	return 0
}

// ModNameIsActive reports whether the named modifier is set in the
// requested components
func (s *State) ModNameIsActive(name string, components StateComponent) (bool, error) {
	idx := s.keymap.ModGetIndex(name)
	if idx == ModInvalid {
		return false, fmt.Errorf("unknown modifier %q", name)
	}
	return s.SerializeMods(components)&idx.Mask() != 0, nil
}

// HeldKeys returns the held keycodes in ascending order
func (s *State) HeldKeys() []Keycode {
	var held []Keycode
	for _, h := range s.held {
		held = append(held, h.code)
	}
	sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })
	return held
}

// Snapshot captures the state for comparison
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Depressed: s.depressed(),
		Locked:    s.locked,
		Layout:    s.layout,
		Held:      s.HeldKeys(),
	}
}
