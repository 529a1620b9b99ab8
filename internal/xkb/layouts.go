package xkb

import (
	evdev "github.com/gvalkov/golang-evdev"
)

// Layout is a set of key bindings keyed by kernel key code. Bindings are
// overlaid on the common pc keys (function keys, modifiers, navigation and
// keypad), so a layout only lists what it changes.
type Layout struct {
	Name        string
	Description string
	Keys        map[uint32]KeyDef
	Variants    map[string]Variant
}

// Variant overlays a layout with changed bindings
type Variant struct {
	Description string
	Keys        map[uint32]KeyDef
}

func sym1(s Keysym) KeyDef {
	return KeyDef{Type: OneLevel, Levels: [][]Keysym{{s}}}
}

func sym2(a, b Keysym) KeyDef {
	return KeyDef{Type: TwoLevel, Levels: [][]Keysym{{a}, {b}}}
}

// sym4 builds a four level key, KeyNoSymbol leaves a level empty
func sym4(a, b, c, d Keysym) KeyDef {
	levels := make([][]Keysym, 0, 4)
	for _, s := range []Keysym{a, b, c, d} {
		if s == KeyNoSymbol {
			levels = append(levels, nil)
			continue
		}
		levels = append(levels, []Keysym{s})
	}
	return KeyDef{Type: FourLevel, Levels: levels}
}

func keypad(nav, digit Keysym) KeyDef {
	return KeyDef{Type: Keypad, Levels: [][]Keysym{{nav}, {digit}}}
}

// letter binds a lowercase letter and its capital
func letter(r rune) KeyDef {
	lower := Latin1(r)
	upper := lower
	if r >= 'a' && r <= 'z' || r >= 0xe0 && r <= 0xfe && r != 0xf7 {
		upper = lower - 0x20
	}
	return KeyDef{Type: Alphabetic, Levels: [][]Keysym{{lower}, {upper}}}
}

// letter3 is a letter with a third level symbol reached with AltGr
func letter3(r rune, third Keysym) KeyDef {
	def := letter(r)
	def.Type = FourLevelAlphabetic
	def.Levels = append(def.Levels, []Keysym{third}, nil)
	return def
}

// letters binds a row of letter keys from a string
func letters(m map[uint32]KeyDef, codes []uint32, row string) {
	i := 0
	for _, r := range row {
		m[codes[i]] = letter(r)
		i++
	}
}

// pairs binds a row of two level keys from matching strings
func pairs(m map[uint32]KeyDef, codes []uint32, base, shifted string) {
	lower, upper := []rune(base), []rune(shifted)
	for i, code := range codes {
		m[code] = sym2(Latin1(lower[i]), Latin1(upper[i]))
	}
}

var (
	numberRow = []uint32{evdev.KEY_1, evdev.KEY_2, evdev.KEY_3, evdev.KEY_4, evdev.KEY_5,
		evdev.KEY_6, evdev.KEY_7, evdev.KEY_8, evdev.KEY_9, evdev.KEY_0}
	topRow = []uint32{evdev.KEY_Q, evdev.KEY_W, evdev.KEY_E, evdev.KEY_R, evdev.KEY_T,
		evdev.KEY_Y, evdev.KEY_U, evdev.KEY_I, evdev.KEY_O, evdev.KEY_P}
	homeRow = []uint32{evdev.KEY_A, evdev.KEY_S, evdev.KEY_D, evdev.KEY_F, evdev.KEY_G,
		evdev.KEY_H, evdev.KEY_J, evdev.KEY_K, evdev.KEY_L}
	bottomRow = []uint32{evdev.KEY_Z, evdev.KEY_X, evdev.KEY_C, evdev.KEY_V, evdev.KEY_B,
		evdev.KEY_N, evdev.KEY_M}
)

// pcKeys returns the bindings shared by every layout
func pcKeys() map[uint32]KeyDef {
	m := map[uint32]KeyDef{
		evdev.KEY_ESC:        sym1(KeyEscape),
		evdev.KEY_BACKSPACE:  sym1(KeyBackSpace),
		evdev.KEY_TAB:        sym2(KeyTab, KeyISOLeftTab),
		evdev.KEY_ENTER:      sym1(KeyReturn),
		evdev.KEY_SPACE:      sym1(KeySpace),
		evdev.KEY_LEFTCTRL:   sym1(KeyControlL),
		evdev.KEY_RIGHTCTRL:  sym1(KeyControlR),
		evdev.KEY_LEFTSHIFT:  sym1(KeyShiftL),
		evdev.KEY_RIGHTSHIFT: sym1(KeyShiftR),
		evdev.KEY_LEFTALT:    sym2(KeyAltL, KeyMetaL),
		evdev.KEY_RIGHTALT:   sym2(KeyAltR, KeyMetaR),
		evdev.KEY_LEFTMETA:   sym1(KeySuperL),
		evdev.KEY_RIGHTMETA:  sym1(KeySuperR),
		evdev.KEY_CAPSLOCK:   sym1(KeyCapsLock),
		evdev.KEY_NUMLOCK:    sym1(KeyNumLock),
		evdev.KEY_SCROLLLOCK: sym1(KeyScrollLock),
		evdev.KEY_SYSRQ:      sym2(KeyPrint, KeySysReq),
		evdev.KEY_PAUSE:      sym1(KeyPause),
		evdev.KEY_COMPOSE:    sym1(KeyMenu),
		evdev.KEY_INSERT:     sym1(KeyInsert),
		evdev.KEY_DELETE:     sym1(KeyDelete),
		evdev.KEY_HOME:       sym1(KeyHome),
		evdev.KEY_END:        sym1(KeyEnd),
		evdev.KEY_PAGEUP:     sym1(KeyPrior),
		evdev.KEY_PAGEDOWN:   sym1(KeyNext),
		evdev.KEY_UP:         sym1(KeyUp),
		evdev.KEY_DOWN:       sym1(KeyDown),
		evdev.KEY_LEFT:       sym1(KeyLeft),
		evdev.KEY_RIGHT:      sym1(KeyRight),

		evdev.KEY_KP7:        keypad(KeyKPHome, KeyKP(7)),
		evdev.KEY_KP8:        keypad(KeyKPUp, KeyKP(8)),
		evdev.KEY_KP9:        keypad(KeyKPPrior, KeyKP(9)),
		evdev.KEY_KP4:        keypad(KeyKPLeft, KeyKP(4)),
		evdev.KEY_KP5:        keypad(KeyKPBegin, KeyKP(5)),
		evdev.KEY_KP6:        keypad(KeyKPRight, KeyKP(6)),
		evdev.KEY_KP1:        keypad(KeyKPEnd, KeyKP(1)),
		evdev.KEY_KP2:        keypad(KeyKPDown, KeyKP(2)),
		evdev.KEY_KP3:        keypad(KeyKPNext, KeyKP(3)),
		evdev.KEY_KP0:        keypad(KeyKPInsert, KeyKP(0)),
		evdev.KEY_KPDOT:      keypad(KeyKPDelete, KeyKPDecimal),
		evdev.KEY_KPENTER:    sym1(KeyKPEnter),
		evdev.KEY_KPPLUS:     sym1(KeyKPAdd),
		evdev.KEY_KPMINUS:    sym1(KeyKPSubtract),
		evdev.KEY_KPASTERISK: sym1(KeyKPMultiply),
		evdev.KEY_KPSLASH:    sym1(KeyKPDivide),
	}

	fkeys := []uint32{evdev.KEY_F1, evdev.KEY_F2, evdev.KEY_F3, evdev.KEY_F4, evdev.KEY_F5, evdev.KEY_F6,
		evdev.KEY_F7, evdev.KEY_F8, evdev.KEY_F9, evdev.KEY_F10, evdev.KEY_F11, evdev.KEY_F12}
	for i, code := range fkeys {
		m[code] = sym1(KeyF(i + 1))
	}
	return m
}

func usLayout() *Layout {
	keys := make(map[uint32]KeyDef)
	pairs(keys, numberRow, "1234567890", "!@#$%^&*()")
	letters(keys, topRow, "qwertyuiop")
	letters(keys, homeRow, "asdfghjkl")
	letters(keys, bottomRow, "zxcvbnm")
	pairs(keys,
		[]uint32{evdev.KEY_GRAVE, evdev.KEY_MINUS, evdev.KEY_EQUAL, evdev.KEY_LEFTBRACE, evdev.KEY_RIGHTBRACE,
			evdev.KEY_BACKSLASH, evdev.KEY_SEMICOLON, evdev.KEY_APOSTROPHE, evdev.KEY_COMMA, evdev.KEY_DOT,
			evdev.KEY_SLASH, evdev.KEY_102ND},
		"`-=[]\\;',./<", "~_+{}|:\"<>?>")

	dvorak := make(map[uint32]KeyDef)
	pairs(dvorak,
		[]uint32{evdev.KEY_MINUS, evdev.KEY_EQUAL, evdev.KEY_Q, evdev.KEY_W, evdev.KEY_E,
			evdev.KEY_LEFTBRACE, evdev.KEY_RIGHTBRACE, evdev.KEY_APOSTROPHE, evdev.KEY_Z},
		"[]',./=-;", "{}\"<>?+_:")
	letters(dvorak, []uint32{evdev.KEY_R, evdev.KEY_T, evdev.KEY_Y, evdev.KEY_U, evdev.KEY_I,
		evdev.KEY_O, evdev.KEY_P}, "pyfgcrl")
	letters(dvorak, []uint32{evdev.KEY_A, evdev.KEY_S, evdev.KEY_D, evdev.KEY_F, evdev.KEY_G,
		evdev.KEY_H, evdev.KEY_J, evdev.KEY_K, evdev.KEY_L, evdev.KEY_SEMICOLON}, "aoeuidhtns")
	letters(dvorak, []uint32{evdev.KEY_X, evdev.KEY_C, evdev.KEY_V, evdev.KEY_B,
		evdev.KEY_N, evdev.KEY_M, evdev.KEY_COMMA, evdev.KEY_DOT, evdev.KEY_SLASH}, "qjkxbmwvz")

	return &Layout{
		Name:        "us",
		Description: "English (US)",
		Keys:        keys,
		Variants: map[string]Variant{
			"dvorak": {Description: "English (Dvorak)", Keys: dvorak},
		},
	}
}

func frLayout() *Layout {
	keys := map[uint32]KeyDef{
		evdev.KEY_GRAVE:      sym1(KeyTwosuperior),
		evdev.KEY_1:          sym2(KeyAmpersand, Keysym('1')),
		evdev.KEY_2:          sym4(0x00e9, Keysym('2'), KeyAsciitilde, KeyNoSymbol),
		evdev.KEY_3:          sym4(KeyQuotedbl, Keysym('3'), KeyNumbersign, KeyNoSymbol),
		evdev.KEY_4:          sym4(KeyApostrophe, Keysym('4'), KeyBraceleft, KeyNoSymbol),
		evdev.KEY_5:          sym4(KeyParenleft, Keysym('5'), KeyBracketleft, KeyNoSymbol),
		evdev.KEY_6:          sym4(KeyMinus, Keysym('6'), KeyBar, KeyNoSymbol),
		evdev.KEY_7:          sym4(0x00e8, Keysym('7'), KeyGrave, KeyNoSymbol),
		evdev.KEY_8:          sym4(KeyUnderscore, Keysym('8'), KeyBackslash, KeyNoSymbol),
		evdev.KEY_9:          sym4(0x00e7, Keysym('9'), KeyAsciicircum, KeyNoSymbol),
		evdev.KEY_0:          sym4(0x00e0, Keysym('0'), KeyAt, KeyNoSymbol),
		evdev.KEY_MINUS:      sym4(KeyParenright, KeyDegree, KeyBracketright, KeyNoSymbol),
		evdev.KEY_EQUAL:      sym4(KeyEqual, KeyPlus, KeyBraceright, KeyNoSymbol),
		evdev.KEY_LEFTBRACE:  sym2(KeyDeadCircumflex, KeyDeadDiaeresis),
		evdev.KEY_RIGHTBRACE: sym4(KeyDollar, KeySterling, KeyCurrency, KeyNoSymbol),
		evdev.KEY_APOSTROPHE: sym2(0x00f9, KeyPercent),
		evdev.KEY_BACKSLASH:  sym2(KeyAsterisk, KeyMu),
		evdev.KEY_102ND:      sym2(KeyLess, KeyGreater),
		evdev.KEY_M:          sym2(KeyComma, KeyQuestion),
		evdev.KEY_COMMA:      sym2(KeySemicolon, KeyPeriod),
		evdev.KEY_DOT:        sym2(KeyColon, KeySlash),
		evdev.KEY_SLASH:      sym2(KeyExclam, KeySection),
		evdev.KEY_RIGHTALT:   sym1(KeyISOLevel3Shift),
	}
	letters(keys, topRow, "azertyuiop")
	letters(keys, homeRow, "qsdfghjkl")
	keys[evdev.KEY_SEMICOLON] = letter('m')
	letters(keys, bottomRow[:6], "wxcvbn")
	keys[evdev.KEY_E] = letter3('e', KeyEuroSign)

	return &Layout{
		Name:        "fr",
		Description: "French",
		Keys:        keys,
		Variants: map[string]Variant{
			"nodeadkeys": {
				Description: "French (no dead keys)",
				Keys: map[uint32]KeyDef{
					evdev.KEY_LEFTBRACE: sym2(KeyAsciicircum, KeyDiaeresis),
				},
			},
		},
	}
}

func deLayout() *Layout {
	keys := map[uint32]KeyDef{
		evdev.KEY_GRAVE:      sym2(KeyDeadCircumflex, KeyDegree),
		evdev.KEY_1:          sym4(Keysym('1'), KeyExclam, KeyOnesuperior, KeyNoSymbol),
		evdev.KEY_2:          sym4(Keysym('2'), KeyQuotedbl, KeyTwosuperior, KeyNoSymbol),
		evdev.KEY_3:          sym4(Keysym('3'), KeySection, KeyThreesuperior, KeyNoSymbol),
		evdev.KEY_4:          sym2(Keysym('4'), KeyDollar),
		evdev.KEY_5:          sym2(Keysym('5'), KeyPercent),
		evdev.KEY_6:          sym2(Keysym('6'), KeyAmpersand),
		evdev.KEY_7:          sym4(Keysym('7'), KeySlash, KeyBraceleft, KeyNoSymbol),
		evdev.KEY_8:          sym4(Keysym('8'), KeyParenleft, KeyBracketleft, KeyNoSymbol),
		evdev.KEY_9:          sym4(Keysym('9'), KeyParenright, KeyBracketright, KeyNoSymbol),
		evdev.KEY_0:          sym4(Keysym('0'), KeyEqual, KeyBraceright, KeyNoSymbol),
		evdev.KEY_MINUS:      sym4(KeySsharp, KeyQuestion, KeyBackslash, KeyNoSymbol),
		evdev.KEY_EQUAL:      sym2(KeyDeadAcute, KeyDeadGrave),
		evdev.KEY_LEFTBRACE:  letter(0x00fc),
		evdev.KEY_RIGHTBRACE: sym4(KeyPlus, KeyAsterisk, KeyAsciitilde, KeyNoSymbol),
		evdev.KEY_SEMICOLON:  letter(0x00f6),
		evdev.KEY_APOSTROPHE: letter(0x00e4),
		evdev.KEY_BACKSLASH:  sym2(KeyNumbersign, KeyApostrophe),
		evdev.KEY_102ND:      sym4(KeyLess, KeyGreater, KeyBar, KeyNoSymbol),
		evdev.KEY_COMMA:      sym2(KeyComma, KeySemicolon),
		evdev.KEY_DOT:        sym2(KeyPeriod, KeyColon),
		evdev.KEY_SLASH:      sym2(KeyMinus, KeyUnderscore),
		evdev.KEY_RIGHTALT:   sym1(KeyISOLevel3Shift),
	}
	letters(keys, topRow, "qwertzuiop")
	letters(keys, homeRow, "asdfghjkl")
	letters(keys, bottomRow, "yxcvbnm")
	keys[evdev.KEY_Q] = letter3('q', KeyAt)
	keys[evdev.KEY_E] = letter3('e', KeyEuroSign)
	keys[evdev.KEY_M] = letter3('m', KeyMu)

	return &Layout{
		Name:        "de",
		Description: "German",
		Keys:        keys,
		Variants: map[string]Variant{
			"nodeadkeys": {
				Description: "German (no dead keys)",
				Keys: map[uint32]KeyDef{
					evdev.KEY_GRAVE: sym2(KeyAsciicircum, KeyDegree),
					evdev.KEY_EQUAL: sym2(KeyAcute, KeyGrave),
				},
			},
		},
	}
}

func builtinLayouts() []*Layout {
	return []*Layout{usLayout(), frLayout(), deLayout()}
}
