package xkb

import (
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T, names RuleNames) *State {
	t.Helper()
	state, err := NewState(compile(t, names))
	require.NoError(t, err)
	return state
}

func press(s *State, codes ...uint32) {
	for _, code := range codes {
		s.UpdateKey(FromEvdev(code), KeyDirDown)
	}
}

func release(s *State, codes ...uint32) {
	for _, code := range codes {
		s.UpdateKey(FromEvdev(code), KeyDirUp)
	}
}

func tap(s *State, codes ...uint32) {
	for _, code := range codes {
		press(s, code)
		release(s, code)
	}
}

func TestNewStateRequiresKeymap(t *testing.T) {
	_, err := NewState(nil)
	assert.Error(t, err)
}

func TestStateKeyGetSyms(t *testing.T) {
	tests := []struct {
		name  string
		names RuleNames
		setup func(s *State)
		key   uint32
		want  Keysym
	}{
		{
			name: "us plain letter",
			key:  evdev.KEY_A,
			want: Keya,
		},
		{
			name:  "us shifted letter",
			setup: func(s *State) { press(s, evdev.KEY_LEFTSHIFT) },
			key:   evdev.KEY_A,
			want:  KeyA,
		},
		{
			name:  "us shifted digit",
			setup: func(s *State) { press(s, evdev.KEY_RIGHTSHIFT) },
			key:   evdev.KEY_2,
			want:  KeyAt,
		},
		{
			name:  "caps lock capitalizes letters",
			setup: func(s *State) { tap(s, evdev.KEY_CAPSLOCK) },
			key:   evdev.KEY_A,
			want:  KeyA,
		},
		{
			name:  "caps lock leaves digits",
			setup: func(s *State) { tap(s, evdev.KEY_CAPSLOCK) },
			key:   evdev.KEY_1,
			want:  Keysym('1'),
		},
		{
			name:  "shift cancels caps lock",
			setup: func(s *State) { tap(s, evdev.KEY_CAPSLOCK); press(s, evdev.KEY_LEFTSHIFT) },
			key:   evdev.KEY_A,
			want:  Keya,
		},
		{
			name: "keypad without num lock",
			key:  evdev.KEY_KP8,
			want: KeyKPUp,
		},
		{
			name:  "keypad with num lock",
			setup: func(s *State) { tap(s, evdev.KEY_NUMLOCK) },
			key:   evdev.KEY_KP8,
			want:  KeyKP(8),
		},
		{
			name:  "control does not change level",
			setup: func(s *State) { press(s, evdev.KEY_LEFTCTRL) },
			key:   evdev.KEY_C,
			want:  Latin1('c'),
		},
		{
			name:  "fr azerty",
			names: RuleNames{Layout: "fr"},
			key:   evdev.KEY_Q,
			want:  Keya,
		},
		{
			name:  "fr number row",
			names: RuleNames{Layout: "fr"},
			key:   evdev.KEY_2,
			want:  Keysym(0xe9),
		},
		{
			name:  "fr altgr euro",
			names: RuleNames{Layout: "fr"},
			setup: func(s *State) { press(s, evdev.KEY_RIGHTALT) },
			key:   evdev.KEY_E,
			want:  KeyEuroSign,
		},
		{
			name:  "de qwertz",
			names: RuleNames{Layout: "de"},
			key:   evdev.KEY_Y,
			want:  Keyz,
		},
		{
			name:  "de altgr at",
			names: RuleNames{Layout: "de"},
			setup: func(s *State) { press(s, evdev.KEY_RIGHTALT) },
			key:   evdev.KEY_Q,
			want:  KeyAt,
		},
		{
			name:  "de caps lock umlaut",
			names: RuleNames{Layout: "de"},
			setup: func(s *State) { tap(s, evdev.KEY_CAPSLOCK) },
			key:   evdev.KEY_SEMICOLON,
			want:  Keysym(0xd6),
		},
		{
			name:  "us dvorak",
			names: RuleNames{Layout: "us", Variant: "dvorak"},
			key:   evdev.KEY_S,
			want:  Latin1('o'),
		},
		{
			name:  "caps escape option",
			names: RuleNames{Options: "caps:escape"},
			key:   evdev.KEY_CAPSLOCK,
			want:  KeyEscape,
		},
		{
			name:  "swapescape option",
			names: RuleNames{Options: "caps:swapescape"},
			key:   evdev.KEY_ESC,
			want:  KeyCapsLock,
		},
		{
			name:  "ctrl nocaps option",
			names: RuleNames{Options: "ctrl:nocaps"},
			key:   evdev.KEY_CAPSLOCK,
			want:  KeyControlL,
		},
		{
			name:  "swap alt win option",
			names: RuleNames{Options: "altwin:swap_alt_win"},
			key:   evdev.KEY_LEFTMETA,
			want:  KeyAltL,
		},
		{
			name:  "pc104 has no iso key",
			names: RuleNames{Model: "pc104"},
			key:   evdev.KEY_102ND,
			want:  KeyNoSymbol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t, tt.names)
			if tt.setup != nil {
				tt.setup(s)
			}
			assert.Equal(t, tt.want, s.KeyGetOneSym(FromEvdev(tt.key)))
		})
	}
}

func TestStatePressReleaseRoundTrip(t *testing.T) {
	s := newState(t, RuleNames{})
	initial := s.Snapshot()

	press(s, evdev.KEY_LEFTSHIFT, evdev.KEY_A)
	assert.NotEqual(t, initial, s.Snapshot())
	release(s, evdev.KEY_A, evdev.KEY_LEFTSHIFT)
	assert.Equal(t, initial, s.Snapshot())

	tap(s, evdev.KEY_ESC)
	assert.Equal(t, initial, s.Snapshot())
}

func TestStateCapsLockToggles(t *testing.T) {
	s := newState(t, RuleNames{})
	caps := FromEvdev(evdev.KEY_CAPSLOCK)

	changed := s.UpdateKey(caps, KeyDirDown)
	assert.NotZero(t, changed&StateModsLocked)
	assert.Equal(t, ModLock, s.SerializeMods(StateModsLocked))
	assert.Equal(t, ModLock, s.SerializeMods(StateModsDepressed))

	changed = s.UpdateKey(caps, KeyDirUp)
	assert.Equal(t, StateModsDepressed, changed)
	assert.Equal(t, ModLock, s.SerializeMods(StateModsLocked))

	tap(s, evdev.KEY_CAPSLOCK)
	assert.Equal(t, ModMask(0), s.SerializeMods(StateModsEffective))
}

func TestStateUpdateKeyComponents(t *testing.T) {
	s := newState(t, RuleNames{})
	shift := FromEvdev(evdev.KEY_LEFTSHIFT)
	a := FromEvdev(evdev.KEY_A)

	assert.Equal(t, StateModsDepressed|StateModsEffective, s.UpdateKey(shift, KeyDirDown))
	assert.Zero(t, s.UpdateKey(shift, KeyDirDown), "repeated press")
	assert.Zero(t, s.UpdateKey(a, KeyDirDown))
	assert.Zero(t, s.UpdateKey(a, KeyDirUp))
	assert.Zero(t, s.UpdateKey(a, KeyDirUp), "release of a key not held")
	assert.Zero(t, s.UpdateKey(Keycode(500), KeyDirDown), "unbound key")
	assert.Equal(t, StateModsDepressed|StateModsEffective, s.UpdateKey(shift, KeyDirUp))
}

func TestStateHeldKeys(t *testing.T) {
	s := newState(t, RuleNames{})
	press(s, evdev.KEY_S, evdev.KEY_A)
	assert.Equal(t, []Keycode{FromEvdev(evdev.KEY_A), FromEvdev(evdev.KEY_S)}, s.HeldKeys())
	release(s, evdev.KEY_A)
	assert.Equal(t, []Keycode{FromEvdev(evdev.KEY_S)}, s.HeldKeys())
}

func TestStateModNameIsActive(t *testing.T) {
	s := newState(t, RuleNames{})
	press(s, evdev.KEY_LEFTALT)

	active, err := s.ModNameIsActive("Alt", StateModsEffective)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = s.ModNameIsActive(ModNameShift, StateModsEffective)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = s.ModNameIsActive("Hyper", StateModsEffective)
	assert.Error(t, err)
}

func TestStateLayoutToggles(t *testing.T) {
	t.Run("caps toggle", func(t *testing.T) {
		s := newState(t, RuleNames{Layout: "us,de", Options: "grp:caps_toggle"})
		y := FromEvdev(evdev.KEY_Y)

		assert.Equal(t, Latin1('y'), s.KeyGetOneSym(y))
		tap(s, evdev.KEY_CAPSLOCK)
		assert.Equal(t, 1, s.SerializeLayout(StateLayoutEffective))
		assert.Equal(t, 1, s.KeyGetLayout(y))
		assert.Equal(t, Keyz, s.KeyGetOneSym(y))
		tap(s, evdev.KEY_CAPSLOCK)
		assert.Equal(t, 0, s.SerializeLayout(StateLayoutEffective))
	})

	t.Run("alt shift toggle", func(t *testing.T) {
		s := newState(t, RuleNames{Layout: "us,fr", Options: "grp:alt_shift_toggle"})

		press(s, evdev.KEY_LEFTALT)
		assert.Equal(t, 0, s.SerializeLayout(StateLayoutEffective))
		changed := s.UpdateKey(FromEvdev(evdev.KEY_LEFTSHIFT), KeyDirDown)
		assert.NotZero(t, changed&StateLayoutEffective)
		release(s, evdev.KEY_LEFTSHIFT, evdev.KEY_LEFTALT)

		assert.Equal(t, 1, s.SerializeLayout(StateLayoutEffective))
		assert.Equal(t, Keya, s.KeyGetOneSym(FromEvdev(evdev.KEY_Q)))
	})

	t.Run("keys missing from a layout fall back to the first", func(t *testing.T) {
		ctx := NewContext(ContextNoEnvironmentNames)
		require.NoError(t, ctx.RegisterLayout(&Layout{Name: "tiny"}))
		keymap, err := ctx.NewKeymapFromNames(RuleNames{Layout: "us,tiny", Options: "grp:caps_toggle"})
		require.NoError(t, err)
		s, err := NewState(keymap)
		require.NoError(t, err)

		tap(s, evdev.KEY_CAPSLOCK)
		assert.Equal(t, 0, s.KeyGetLayout(FromEvdev(evdev.KEY_A)))
		assert.Equal(t, Keya, s.KeyGetOneSym(FromEvdev(evdev.KEY_A)))
	})
}

func TestStateMultipleKeysyms(t *testing.T) {
	ctx := NewContext(ContextNoEnvironmentNames)
	require.NoError(t, ctx.RegisterLayout(&Layout{
		Name: "multi",
		Keys: map[uint32]KeyDef{
			evdev.KEY_A: {Type: OneLevel, Levels: [][]Keysym{{Keya, Keyb}}},
		},
	}))
	keymap, err := ctx.NewKeymapFromNames(RuleNames{Layout: "multi"})
	require.NoError(t, err)
	s, err := NewState(keymap)
	require.NoError(t, err)

	code := FromEvdev(evdev.KEY_A)
	assert.Equal(t, []Keysym{Keya, Keyb}, s.KeyGetSyms(code))
	assert.Equal(t, KeyNoSymbol, s.KeyGetOneSym(code))
	assert.Equal(t, "ab", s.KeyGetUTF8(code))
}

func TestStateKeyGetUTF8(t *testing.T) {
	s := newState(t, RuleNames{Layout: "fr"})
	assert.Equal(t, "é", s.KeyGetUTF8(FromEvdev(evdev.KEY_2)))
	assert.Equal(t, "", s.KeyGetUTF8(FromEvdev(evdev.KEY_LEFTSHIFT)))

	press(s, evdev.KEY_LEFTCTRL)
	assert.Equal(t, "", s.KeyGetUTF8(FromEvdev(evdev.KEY_2)))
}

func TestStateKeyGetLevel(t *testing.T) {
	s := newState(t, RuleNames{Layout: "de"})
	assert.Equal(t, 0, s.KeyGetLevel(FromEvdev(evdev.KEY_7)))
	press(s, evdev.KEY_RIGHTALT)
	assert.Equal(t, 2, s.KeyGetLevel(FromEvdev(evdev.KEY_7)))
	assert.Equal(t, KeyBraceleft, s.KeyGetOneSym(FromEvdev(evdev.KEY_7)))
	assert.Equal(t, -1, s.KeyGetLevel(Keycode(600)))
}

func TestKeyDirectionDistinctFromArrowKeysyms(t *testing.T) {
	assert.Equal(t, "down", KeyDirDown.String())
	assert.Equal(t, "up", KeyDirUp.String())

	s := newState(t, RuleNames{Layout: "us"})
	up := FromEvdev(evdev.KEY_UP)
	assert.Equal(t, []Keysym{KeyUp}, s.KeyGetSyms(up))
	assert.Equal(t, []Keysym{KeyDown}, s.KeyGetSyms(FromEvdev(evdev.KEY_DOWN)))

	s.UpdateKey(up, KeyDirDown)
	assert.Contains(t, s.HeldKeys(), up)
	s.UpdateKey(up, KeyDirUp)
	assert.NotContains(t, s.HeldKeys(), up)
}
