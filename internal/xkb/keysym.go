package xkb

import (
	"fmt"
	"strconv"
	"strings"
)

// Keysym is a symbolic key identifier using the X11 keysym encoding:
// Latin-1 characters map to their code point, function keys live in the
// 0xff00 page and other Unicode characters are 0x01000000 + code point.
type Keysym uint32

const unicodeOffset = 0x01000000

// Keysyms referenced by the built-in keymaps. Latin-1 characters without a
// constant here are built with Latin1.
const (
	KeyNoSymbol Keysym = 0

	KeySpace        Keysym = 0x0020
	KeyExclam       Keysym = 0x0021
	KeyQuotedbl     Keysym = 0x0022
	KeyNumbersign   Keysym = 0x0023
	KeyDollar       Keysym = 0x0024
	KeyPercent      Keysym = 0x0025
	KeyAmpersand    Keysym = 0x0026
	KeyApostrophe   Keysym = 0x0027
	KeyParenleft    Keysym = 0x0028
	KeyParenright   Keysym = 0x0029
	KeyAsterisk     Keysym = 0x002a
	KeyPlus         Keysym = 0x002b
	KeyComma        Keysym = 0x002c
	KeyMinus        Keysym = 0x002d
	KeyPeriod       Keysym = 0x002e
	KeySlash        Keysym = 0x002f
	KeyColon        Keysym = 0x003a
	KeySemicolon    Keysym = 0x003b
	KeyLess         Keysym = 0x003c
	KeyEqual        Keysym = 0x003d
	KeyGreater      Keysym = 0x003e
	KeyQuestion     Keysym = 0x003f
	KeyAt           Keysym = 0x0040
	KeyA            Keysym = 0x0041
	KeyZ            Keysym = 0x005a
	KeyBracketleft  Keysym = 0x005b
	KeyBackslash    Keysym = 0x005c
	KeyBracketright Keysym = 0x005d
	KeyAsciicircum  Keysym = 0x005e
	KeyUnderscore   Keysym = 0x005f
	KeyGrave        Keysym = 0x0060
	Keya            Keysym = 0x0061
	Keyb            Keysym = 0x0062
	Keyz            Keysym = 0x007a
	KeyBraceleft    Keysym = 0x007b
	KeyBar          Keysym = 0x007c
	KeyBraceright   Keysym = 0x007d
	KeyAsciitilde   Keysym = 0x007e

	KeyCurrency      Keysym = 0x00a4
	KeySterling      Keysym = 0x00a3
	KeySection       Keysym = 0x00a7
	KeyDiaeresis     Keysym = 0x00a8
	KeyDegree        Keysym = 0x00b0
	KeyTwosuperior   Keysym = 0x00b2
	KeyThreesuperior Keysym = 0x00b3
	KeyAcute         Keysym = 0x00b4
	KeyMu            Keysym = 0x00b5
	KeyOnesuperior   Keysym = 0x00b9
	KeySsharp        Keysym = 0x00df
	KeyEuroSign      Keysym = 0x20ac

	KeyISOLevel3Shift Keysym = 0xfe03
	KeyISONextGroup   Keysym = 0xfe08
	KeyISOLeftTab     Keysym = 0xfe20
	KeyDeadGrave      Keysym = 0xfe50
	KeyDeadAcute      Keysym = 0xfe51
	KeyDeadCircumflex Keysym = 0xfe52
	KeyDeadTilde      Keysym = 0xfe53
	KeyDeadDiaeresis  Keysym = 0xfe57

	KeyBackSpace  Keysym = 0xff08
	KeyTab        Keysym = 0xff09
	KeyReturn     Keysym = 0xff0d
	KeyPause      Keysym = 0xff13
	KeyScrollLock Keysym = 0xff14
	KeySysReq     Keysym = 0xff15
	KeyEscape     Keysym = 0xff1b
	KeyMultiKey   Keysym = 0xff20
	KeyHome       Keysym = 0xff50
	KeyLeft       Keysym = 0xff51
	KeyUp         Keysym = 0xff52
	KeyRight      Keysym = 0xff53
	KeyDown       Keysym = 0xff54
	KeyPrior      Keysym = 0xff55
	KeyNext       Keysym = 0xff56
	KeyEnd        Keysym = 0xff57
	KeyPrint      Keysym = 0xff61
	KeyInsert     Keysym = 0xff63
	KeyMenu       Keysym = 0xff67
	KeyNumLock    Keysym = 0xff7f

	KeyKPEnter    Keysym = 0xff8d
	KeyKPHome     Keysym = 0xff95
	KeyKPLeft     Keysym = 0xff96
	KeyKPUp       Keysym = 0xff97
	KeyKPRight    Keysym = 0xff98
	KeyKPDown     Keysym = 0xff99
	KeyKPPrior    Keysym = 0xff9a
	KeyKPNext     Keysym = 0xff9b
	KeyKPEnd      Keysym = 0xff9c
	KeyKPBegin    Keysym = 0xff9d
	KeyKPInsert   Keysym = 0xff9e
	KeyKPDelete   Keysym = 0xff9f
	KeyKPMultiply Keysym = 0xffaa
	KeyKPAdd      Keysym = 0xffab
	KeyKPSubtract Keysym = 0xffad
	KeyKPDecimal  Keysym = 0xffae
	KeyKPDivide   Keysym = 0xffaf
	KeyKP0        Keysym = 0xffb0

	KeyF1 Keysym = 0xffbe

	KeyShiftL   Keysym = 0xffe1
	KeyShiftR   Keysym = 0xffe2
	KeyControlL Keysym = 0xffe3
	KeyControlR Keysym = 0xffe4
	KeyCapsLock Keysym = 0xffe5
	KeyMetaL    Keysym = 0xffe7
	KeyMetaR    Keysym = 0xffe8
	KeyAltL     Keysym = 0xffe9
	KeyAltR     Keysym = 0xffea
	KeySuperL   Keysym = 0xffeb
	KeySuperR   Keysym = 0xffec
	KeyDelete   Keysym = 0xffff
)

// KeyF returns the keysym of function key n, 1 through 35
func KeyF(n int) Keysym {
	return KeyF1 + Keysym(n-1)
}

// KeyKP returns the keysym of keypad digit n
func KeyKP(n int) Keysym {
	return KeyKP0 + Keysym(n)
}

// Latin1 returns the keysym for a character. Latin-1 characters map
// directly, the euro sign has its legacy keysym and everything else uses
// the Unicode range.
func Latin1(r rune) Keysym {
	switch {
	case r == '€':
		return KeyEuroSign
	case r >= 0x20 && r <= 0x7e, r >= 0xa0 && r <= 0xff:
		return Keysym(r)
	default:
		return Keysym(unicodeOffset + r)
	}
}

var (
	symToName = make(map[Keysym]string)
	nameToSym = make(map[string]Keysym)
)

func init() {
	for _, e := range keysymNames {
		addName(e.sym, e.name)
	}
	for c := 'a'; c <= 'z'; c++ {
		addName(Keysym(c), string(c))
		addName(Keysym(c-'a'+'A'), string(c-'a'+'A'))
	}
	for d := 0; d <= 9; d++ {
		addName(Keysym('0'+d), strconv.Itoa(d))
		addName(KeyKP(d), "KP_"+strconv.Itoa(d))
	}
	for n := 1; n <= 35; n++ {
		addName(KeyF(n), "F"+strconv.Itoa(n))
	}
}

// addName keeps the first name registered for a keysym as canonical
func addName(sym Keysym, name string) {
	if _, ok := symToName[sym]; !ok {
		symToName[sym] = name
	}
	nameToSym[name] = sym
}

// Name returns the keysym name as used by xkeyboard-config, "U20AC" style
// for unnamed Unicode keysyms and hexadecimal otherwise
func (k Keysym) Name() string {
	if name, ok := symToName[k]; ok {
		return name
	}
	if k >= unicodeOffset && k <= unicodeOffset+0x10ffff {
		return fmt.Sprintf("U%04X", uint32(k-unicodeOffset))
	}
	return fmt.Sprintf("0x%08x", uint32(k))
}

func (k Keysym) String() string {
	return k.Name()
}

// KeysymFromName resolves a keysym name. Names are case sensitive except
// for the "U+hex" and "0xhex" notations.
func KeysymFromName(name string) (Keysym, bool) {
	if sym, ok := nameToSym[name]; ok {
		return sym, true
	}
	if len(name) > 1 && (name[0] == 'U' || name[0] == 'u') {
		if cp, err := strconv.ParseUint(name[1:], 16, 32); err == nil && cp <= 0x10ffff {
			return Latin1(rune(cp)), true
		}
	}
	if strings.HasPrefix(strings.ToLower(name), "0x") {
		if v, err := strconv.ParseUint(name[2:], 16, 32); err == nil {
			return Keysym(v), true
		}
	}
	return KeyNoSymbol, false
}

// Rune returns the character produced by the keysym, or zero for keysyms
// that do not produce text
func (k Keysym) Rune() rune {
	switch {
	case k >= 0x20 && k <= 0x7e, k >= 0xa0 && k <= 0xff:
		return rune(k)
	case k == KeyEuroSign:
		return '€'
	case k >= unicodeOffset+0x20 && k <= unicodeOffset+0x10ffff:
		return rune(k - unicodeOffset)
	case k >= KeyKP0 && k <= KeyKP(9):
		return rune('0' + (k - KeyKP0))
	}
	switch k {
	case KeyReturn, KeyKPEnter:
		return '\r'
	case KeyTab:
		return '\t'
	case KeyEscape:
		return 0x1b
	case KeyBackSpace:
		return '\b'
	case KeyKPAdd:
		return '+'
	case KeyKPSubtract:
		return '-'
	case KeyKPMultiply:
		return '*'
	case KeyKPDivide:
		return '/'
	case KeyKPDecimal:
		return '.'
	}
	return 0
}

// IsModifier reports whether the keysym names a modifier key
func (k Keysym) IsModifier() bool {
	switch k {
	case KeyShiftL, KeyShiftR, KeyControlL, KeyControlR, KeyCapsLock,
		KeyMetaL, KeyMetaR, KeyAltL, KeyAltR, KeySuperL, KeySuperR,
		KeyNumLock, KeyISOLevel3Shift, KeyISONextGroup:
		return true
	}
	return false
}

var keysymNames = []struct {
	sym  Keysym
	name string
}{
	{KeyNoSymbol, "NoSymbol"},
	{KeySpace, "space"},
	{KeyExclam, "exclam"},
	{KeyQuotedbl, "quotedbl"},
	{KeyNumbersign, "numbersign"},
	{KeyDollar, "dollar"},
	{KeyPercent, "percent"},
	{KeyAmpersand, "ampersand"},
	{KeyApostrophe, "apostrophe"},
	{KeyParenleft, "parenleft"},
	{KeyParenright, "parenright"},
	{KeyAsterisk, "asterisk"},
	{KeyPlus, "plus"},
	{KeyComma, "comma"},
	{KeyMinus, "minus"},
	{KeyPeriod, "period"},
	{KeySlash, "slash"},
	{KeyColon, "colon"},
	{KeySemicolon, "semicolon"},
	{KeyLess, "less"},
	{KeyEqual, "equal"},
	{KeyGreater, "greater"},
	{KeyQuestion, "question"},
	{KeyAt, "at"},
	{KeyBracketleft, "bracketleft"},
	{KeyBackslash, "backslash"},
	{KeyBracketright, "bracketright"},
	{KeyAsciicircum, "asciicircum"},
	{KeyUnderscore, "underscore"},
	{KeyGrave, "grave"},
	{KeyBraceleft, "braceleft"},
	{KeyBar, "bar"},
	{KeyBraceright, "braceright"},
	{KeyAsciitilde, "asciitilde"},

	{0x00a0, "nobreakspace"},
	{KeySterling, "sterling"},
	{KeyCurrency, "currency"},
	{KeySection, "section"},
	{KeyDiaeresis, "diaeresis"},
	{KeyDegree, "degree"},
	{KeyTwosuperior, "twosuperior"},
	{KeyThreesuperior, "threesuperior"},
	{KeyAcute, "acute"},
	{KeyMu, "mu"},
	{KeyOnesuperior, "onesuperior"},
	{0x00c4, "Adiaeresis"},
	{0x00c7, "Ccedilla"},
	{0x00c9, "Eacute"},
	{0x00d6, "Odiaeresis"},
	{0x00dc, "Udiaeresis"},
	{KeySsharp, "ssharp"},
	{0x00e0, "agrave"},
	{0x00e4, "adiaeresis"},
	{0x00e7, "ccedilla"},
	{0x00e8, "egrave"},
	{0x00e9, "eacute"},
	{0x00f6, "odiaeresis"},
	{0x00f9, "ugrave"},
	{0x00fc, "udiaeresis"},
	{KeyEuroSign, "EuroSign"},

	{KeyISOLevel3Shift, "ISO_Level3_Shift"},
	{KeyISONextGroup, "ISO_Next_Group"},
	{KeyISOLeftTab, "ISO_Left_Tab"},
	{KeyDeadGrave, "dead_grave"},
	{KeyDeadAcute, "dead_acute"},
	{KeyDeadCircumflex, "dead_circumflex"},
	{KeyDeadTilde, "dead_tilde"},
	{KeyDeadDiaeresis, "dead_diaeresis"},

	{KeyBackSpace, "BackSpace"},
	{KeyTab, "Tab"},
	{KeyReturn, "Return"},
	{KeyPause, "Pause"},
	{KeyScrollLock, "Scroll_Lock"},
	{KeySysReq, "Sys_Req"},
	{KeyEscape, "Escape"},
	{KeyMultiKey, "Multi_key"},
	{KeyHome, "Home"},
	{KeyLeft, "Left"},
	{KeyUp, "Up"},
	{KeyRight, "Right"},
	{KeyDown, "Down"},
	{KeyPrior, "Prior"},
	{KeyPrior, "Page_Up"},
	{KeyNext, "Next"},
	{KeyNext, "Page_Down"},
	{KeyEnd, "End"},
	{KeyPrint, "Print"},
	{KeyInsert, "Insert"},
	{KeyMenu, "Menu"},
	{KeyNumLock, "Num_Lock"},

	{KeyKPEnter, "KP_Enter"},
	{KeyKPHome, "KP_Home"},
	{KeyKPLeft, "KP_Left"},
	{KeyKPUp, "KP_Up"},
	{KeyKPRight, "KP_Right"},
	{KeyKPDown, "KP_Down"},
	{KeyKPPrior, "KP_Prior"},
	{KeyKPNext, "KP_Next"},
	{KeyKPEnd, "KP_End"},
	{KeyKPBegin, "KP_Begin"},
	{KeyKPInsert, "KP_Insert"},
	{KeyKPDelete, "KP_Delete"},
	{KeyKPMultiply, "KP_Multiply"},
	{KeyKPAdd, "KP_Add"},
	{KeyKPSubtract, "KP_Subtract"},
	{KeyKPDecimal, "KP_Decimal"},
	{KeyKPDivide, "KP_Divide"},

	{KeyShiftL, "Shift_L"},
	{KeyShiftR, "Shift_R"},
	{KeyControlL, "Control_L"},
	{KeyControlR, "Control_R"},
	{KeyCapsLock, "Caps_Lock"},
	{KeyMetaL, "Meta_L"},
	{KeyMetaR, "Meta_R"},
	{KeyAltL, "Alt_L"},
	{KeyAltR, "Alt_R"},
	{KeySuperL, "Super_L"},
	{KeySuperR, "Super_R"},
	{KeyDelete, "Delete"},
}
