package xkb

import (
	"sort"
)

// Keycode is an XKB keycode, the kernel code shifted by EvdevOffset
type Keycode uint32

// EvdevOffset converts kernel input codes to XKB keycodes
const EvdevOffset = 8

// FromEvdev converts a kernel key code
func FromEvdev(code uint32) Keycode {
	return Keycode(code + EvdevOffset)
}

// Evdev returns the kernel code for the keycode
func (k Keycode) Evdev() uint32 {
	return uint32(k) - EvdevOffset
}

// ModMask is a set of real modifiers
type ModMask uint32

const (
	ModShift ModMask = 1 << iota
	ModLock
	ModControl
	Mod1
	Mod2
	Mod3
	Mod4
	Mod5
)

// Conventional names for the real modifiers
const (
	ModNameShift = "Shift"
	ModNameCaps  = "Lock"
	ModNameCtrl  = "Control"
	ModNameAlt   = "Mod1"
	ModNameNum   = "Mod2"
	ModNameLogo  = "Mod4"
	ModNameLvl3  = "Mod5"
)

var modNames = []string{"Shift", "Lock", "Control", "Mod1", "Mod2", "Mod3", "Mod4", "Mod5"}

// virtual modifier names resolve to the real modifier they are bound to
var modAliases = map[string]string{
	"Alt":        ModNameAlt,
	"Meta":       ModNameAlt,
	"NumLock":    ModNameNum,
	"Super":      ModNameLogo,
	"LevelThree": ModNameLvl3,
}

// ModIndex is the bit position of a modifier in a ModMask
type ModIndex uint32

// ModInvalid is returned for unknown modifier names
const ModInvalid ModIndex = 0xffffffff

// Mask returns the mask of the single modifier
func (i ModIndex) Mask() ModMask {
	if i == ModInvalid {
		return 0
	}
	return 1 << i
}

func (m ModMask) String() string {
	if m == 0 {
		return "none"
	}
	out := ""
	for i, name := range modNames {
		if m&(1<<i) != 0 {
			if out != "" {
				out += "+"
			}
			out += name
		}
	}
	return out
}

// KeyType decides which shift level a modifier combination selects
type KeyType int

const (
	OneLevel KeyType = iota
	TwoLevel
	Alphabetic
	Keypad
	FourLevel
	FourLevelAlphabetic
)

var keyTypeNames = map[KeyType]string{
	OneLevel:            "ONE_LEVEL",
	TwoLevel:            "TWO_LEVEL",
	Alphabetic:          "ALPHABETIC",
	Keypad:              "KEYPAD",
	FourLevel:           "FOUR_LEVEL",
	FourLevelAlphabetic: "FOUR_LEVEL_SEMIALPHABETIC",
}

func (t KeyType) String() string {
	if name, ok := keyTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// NumLevels returns how many shift levels the type has
func (t KeyType) NumLevels() int {
	switch t {
	case OneLevel:
		return 1
	case FourLevel, FourLevelAlphabetic:
		return 4
	default:
		return 2
	}
}

// Level returns the zero based shift level selected by the modifiers
func (t KeyType) Level(mods ModMask) int {
	shift := mods&ModShift != 0
	switch t {
	case OneLevel:
		return 0
	case TwoLevel:
		return boolLevel(shift)
	case Alphabetic:
		return boolLevel(shift != (mods&ModLock != 0))
	case Keypad:
		return boolLevel(shift != (mods&Mod2 != 0))
	case FourLevel:
		return boolLevel(shift) + levelThree(mods)
	case FourLevelAlphabetic:
		if mods&Mod5 != 0 {
			return 2 + boolLevel(shift)
		}
		return boolLevel(shift != (mods&ModLock != 0))
	}
	return 0
}

func boolLevel(b bool) int {
	if b {
		return 1
	}
	return 0
}

func levelThree(mods ModMask) int {
	if mods&Mod5 != 0 {
		return 2
	}
	return 0
}

// KeyDef binds the symbols of one key in one layout
type KeyDef struct {
	Type   KeyType
	Levels [][]Keysym
}

func (d KeyDef) defined() bool {
	return len(d.Levels) > 0
}

func (d KeyDef) clone() KeyDef {
	levels := make([][]Keysym, len(d.Levels))
	for i, l := range d.Levels {
		levels[i] = append([]Keysym(nil), l...)
	}
	return KeyDef{Type: d.Type, Levels: levels}
}

type actionKind int

const (
	actionNone actionKind = iota
	actionSetMods
	actionLockMods
	actionNextGroup
)

type keyAction struct {
	kind actionKind
	mods ModMask
}

// actionFor derives the key behavior from its base symbol, the way the
// compat section of xkeyboard-config interprets modifier keysyms
func actionFor(sym Keysym) keyAction {
	switch sym {
	case KeyShiftL, KeyShiftR:
		return keyAction{actionSetMods, ModShift}
	case KeyControlL, KeyControlR:
		return keyAction{actionSetMods, ModControl}
	case KeyAltL, KeyAltR, KeyMetaL, KeyMetaR:
		return keyAction{actionSetMods, Mod1}
	case KeySuperL, KeySuperR:
		return keyAction{actionSetMods, Mod4}
	case KeyISOLevel3Shift:
		return keyAction{actionSetMods, Mod5}
	case KeyCapsLock:
		return keyAction{actionLockMods, ModLock}
	case KeyNumLock:
		return keyAction{actionLockMods, Mod2}
	case KeyISONextGroup:
		return keyAction{kind: actionNextGroup}
	}
	return keyAction{}
}

type key struct {
	code    Keycode
	groups  []KeyDef
	actions []keyAction
	repeats bool
}

// group returns the definition for the layout, falling back to the first
// layout when the key is not bound there
func (k *key) group(layout int) KeyDef {
	if layout >= 0 && layout < len(k.groups) && k.groups[layout].defined() {
		return k.groups[layout]
	}
	return k.groups[0]
}

func (k *key) action(layout int) keyAction {
	if layout >= 0 && layout < len(k.groups) && k.groups[layout].defined() {
		return k.actions[layout]
	}
	return k.actions[0]
}

// Keymap is a compiled, immutable keymap
type Keymap struct {
	names          RuleNames
	layouts        []string
	keys           map[Keycode]*key
	altShiftToggle bool
}

// Names returns the fully resolved rule names the keymap was built from
func (m *Keymap) Names() RuleNames {
	return m.names
}

// NumLayouts returns the number of layouts (groups) in the keymap
func (m *Keymap) NumLayouts() int {
	return len(m.layouts)
}

// LayoutName returns the layout name at idx, with its variant in
// parentheses
func (m *Keymap) LayoutName(idx int) string {
	if idx < 0 || idx >= len(m.layouts) {
		return ""
	}
	return m.layouts[idx]
}

// NumMods returns the number of real modifiers
func (m *Keymap) NumMods() int {
	return len(modNames)
}

// ModGetName returns the name of the modifier at idx
func (m *Keymap) ModGetName(idx ModIndex) string {
	if int(idx) >= len(modNames) {
		return ""
	}
	return modNames[idx]
}

// ModGetIndex resolves a real or virtual modifier name
func (m *Keymap) ModGetIndex(name string) ModIndex {
	if target, ok := modAliases[name]; ok {
		name = target
	}
	for i, n := range modNames {
		if n == name {
			return ModIndex(i)
		}
	}
	return ModInvalid
}

// Keycodes returns every bound keycode in ascending order
func (m *Keymap) Keycodes() []Keycode {
	codes := make([]Keycode, 0, len(m.keys))
	for code := range m.keys {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// KeyExists reports whether the keycode is bound
func (m *Keymap) KeyExists(code Keycode) bool {
	_, ok := m.keys[code]
	return ok
}

// KeyType returns the type of the key in the layout
func (m *Keymap) KeyType(code Keycode, layout int) (KeyType, bool) {
	k, ok := m.keys[code]
	if !ok {
		return OneLevel, false
	}
	return k.group(layout).Type, true
}

// NumLevelsForKey returns the number of shift levels of the key in the layout
func (m *Keymap) NumLevelsForKey(code Keycode, layout int) int {
	k, ok := m.keys[code]
	if !ok {
		return 0
	}
	return len(k.group(layout).Levels)
}

// KeyGetSymsByLevel returns the symbols bound at one level. The returned
// slice must not be modified.
func (m *Keymap) KeyGetSymsByLevel(code Keycode, layout, level int) []Keysym {
	k, ok := m.keys[code]
	if !ok {
		return nil
	}
	def := k.group(layout)
	if level < 0 || level >= len(def.Levels) {
		return nil
	}
	return def.Levels[level]
}

// KeyRepeats reports whether holding the key should autorepeat.
// Modifier keys do not repeat.
func (m *Keymap) KeyRepeats(code Keycode) bool {
	k, ok := m.keys[code]
	return ok && k.repeats
}
