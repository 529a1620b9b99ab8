package xkb

import (
	"sort"

	evdev "github.com/gvalkov/golang-evdev"
)

// option rewrites key bindings of the first layout or toggles a keymap
// behavior
type option struct {
	description string
	apply       func(b *builder)
}

var options = map[string]option{
	"caps:escape": {"Make Caps Lock an additional Esc", func(b *builder) {
		b.bindAll(evdev.KEY_CAPSLOCK, sym1(KeyEscape))
	}},
	"caps:swapescape": {"Swap Esc and Caps Lock", func(b *builder) {
		b.bindAll(evdev.KEY_CAPSLOCK, sym1(KeyEscape))
		b.bindAll(evdev.KEY_ESC, sym1(KeyCapsLock))
	}},
	"caps:none": {"Caps Lock is disabled", func(b *builder) {
		b.unbind(evdev.KEY_CAPSLOCK)
	}},
	"ctrl:nocaps": {"Make Caps Lock an additional Ctrl", func(b *builder) {
		b.bindAll(evdev.KEY_CAPSLOCK, sym1(KeyControlL))
	}},
	"ctrl:swapcaps": {"Swap Ctrl and Caps Lock", func(b *builder) {
		b.bindAll(evdev.KEY_CAPSLOCK, sym1(KeyControlL))
		b.bindAll(evdev.KEY_LEFTCTRL, sym1(KeyCapsLock))
	}},
	"altwin:swap_alt_win": {"Alt is swapped with Win", func(b *builder) {
		b.bindAll(evdev.KEY_LEFTALT, sym1(KeySuperL))
		b.bindAll(evdev.KEY_RIGHTALT, sym1(KeySuperR))
		b.bindAll(evdev.KEY_LEFTMETA, sym2(KeyAltL, KeyMetaL))
		b.bindAll(evdev.KEY_RIGHTMETA, sym2(KeyAltR, KeyMetaR))
	}},
	"lv3:ralt_switch": {"Right Alt chooses the third level", func(b *builder) {
		b.bindAll(evdev.KEY_RIGHTALT, sym1(KeyISOLevel3Shift))
	}},
	"compose:ralt": {"Right Alt is Compose", func(b *builder) {
		b.bindAll(evdev.KEY_RIGHTALT, sym1(KeyMultiKey))
	}},
	"grp:caps_toggle": {"Caps Lock switches to the next layout", func(b *builder) {
		b.bindAll(evdev.KEY_CAPSLOCK, sym1(KeyISONextGroup))
	}},
	"grp:alt_shift_toggle": {"Alt+Shift switches to the next layout", func(b *builder) {
		b.altShiftToggle = true
	}},
}

// Options lists the supported option names
func Options() []string {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OptionDescription returns the human readable description of an option
func OptionDescription(name string) (string, bool) {
	o, ok := options[name]
	return o.description, ok
}
