package xkb

import (
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, names RuleNames) *Keymap {
	t.Helper()
	ctx := NewContext(ContextNoEnvironmentNames)
	keymap, err := ctx.NewKeymapFromNames(names)
	require.NoError(t, err)
	return keymap
}

func TestNewKeymapDefaults(t *testing.T) {
	keymap := compile(t, RuleNames{})

	assert.Equal(t, RuleNames{Rules: "evdev", Model: "pc105", Layout: "us"}, keymap.Names())
	assert.Equal(t, 1, keymap.NumLayouts())
	assert.Equal(t, "us", keymap.LayoutName(0))
	assert.True(t, keymap.KeyExists(FromEvdev(evdev.KEY_102ND)))
	assert.Equal(t, []Keysym{KeyEscape}, keymap.KeyGetSymsByLevel(FromEvdev(evdev.KEY_ESC), 0, 0))
	assert.Equal(t, []Keysym{KeyA}, keymap.KeyGetSymsByLevel(FromEvdev(evdev.KEY_A), 0, 1))
	assert.Nil(t, keymap.KeyGetSymsByLevel(FromEvdev(evdev.KEY_A), 0, 5))
	assert.Nil(t, keymap.KeyGetSymsByLevel(Keycode(3), 0, 0))
}

func TestNewKeymapErrors(t *testing.T) {
	tests := []struct {
		name  string
		names RuleNames
		err   error
	}{
		{"unknown rules", RuleNames{Rules: "xfree86"}, ErrUnknownRules},
		{"unknown layout", RuleNames{Layout: "xx"}, ErrUnknownLayout},
		{"unknown variant", RuleNames{Layout: "us", Variant: "colemak_dh_wide"}, ErrUnknownVariant},
		{"more variants than layouts", RuleNames{Layout: "us", Variant: "dvorak,dvorak"}, ErrUnknownVariant},
		{"too many layouts", RuleNames{Layout: "us,fr,de,us,fr"}, ErrTooManyLayouts},
	}

	ctx := NewContext(ContextNoEnvironmentNames)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keymap, err := ctx.NewKeymapFromNames(tt.names)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, keymap)
		})
	}
}

func TestNewKeymapModelWithoutISOKey(t *testing.T) {
	keymap := compile(t, RuleNames{Model: "pc104"})
	assert.False(t, keymap.KeyExists(FromEvdev(evdev.KEY_102ND)))
}

func TestNewKeymapIgnoresUnknownOptions(t *testing.T) {
	keymap := compile(t, RuleNames{Options: "foo:bar,caps:escape"})
	assert.Equal(t, []Keysym{KeyEscape}, keymap.KeyGetSymsByLevel(FromEvdev(evdev.KEY_CAPSLOCK), 0, 0))
}

func TestNewKeymapMultipleLayouts(t *testing.T) {
	keymap := compile(t, RuleNames{Layout: "us,de", Variant: "dvorak,nodeadkeys"})

	assert.Equal(t, 2, keymap.NumLayouts())
	assert.Equal(t, "us(dvorak)", keymap.LayoutName(0))
	assert.Equal(t, "de(nodeadkeys)", keymap.LayoutName(1))
	assert.Equal(t, "", keymap.LayoutName(2))

	code := FromEvdev(evdev.KEY_Y)
	assert.Equal(t, []Keysym{Latin1('f')}, keymap.KeyGetSymsByLevel(code, 0, 0))
	assert.Equal(t, []Keysym{Keyz}, keymap.KeyGetSymsByLevel(code, 1, 0))
	assert.Equal(t, []Keysym{KeyAsciicircum}, keymap.KeyGetSymsByLevel(FromEvdev(evdev.KEY_GRAVE), 1, 0))
}

func TestContextEnvironmentNames(t *testing.T) {
	t.Setenv(EnvLayout, "de")
	t.Setenv(EnvVariant, "")
	t.Setenv(EnvOptions, "")

	keymap, err := NewContext(ContextNoFlags).NewKeymapFromNames(RuleNames{})
	require.NoError(t, err)
	assert.Equal(t, "de", keymap.LayoutName(0))

	keymap, err = NewContext(ContextNoEnvironmentNames).NewKeymapFromNames(RuleNames{})
	require.NoError(t, err)
	assert.Equal(t, "us", keymap.LayoutName(0))
}

func TestContextDefaults(t *testing.T) {
	ctx := NewContext(ContextNoEnvironmentNames)
	ctx.SetDefaults(RuleNames{Layout: "fr", Variant: "nodeadkeys"})
	assert.Equal(t, "fr", ctx.Defaults().Layout)

	keymap, err := ctx.NewKeymapFromNames(RuleNames{})
	require.NoError(t, err)
	assert.Equal(t, "fr(nodeadkeys)", keymap.LayoutName(0))

	keymap, err = ctx.NewKeymapFromNames(RuleNames{Layout: "us"})
	require.NoError(t, err)
	assert.Equal(t, "us", keymap.LayoutName(0))
}

func TestRegisterLayout(t *testing.T) {
	ctx := NewContext(ContextNoEnvironmentNames)
	assert.Equal(t, []string{"de", "fr", "us"}, ctx.Layouts())

	assert.Error(t, ctx.RegisterLayout(&Layout{}))
	require.NoError(t, ctx.RegisterLayout(&Layout{
		Name: "test",
		Keys: map[uint32]KeyDef{evdev.KEY_A: sym1(KeyEscape)},
	}))
	assert.Contains(t, ctx.Layouts(), "test")

	keymap, err := ctx.NewKeymapFromNames(RuleNames{Layout: "test"})
	require.NoError(t, err)
	assert.Equal(t, []Keysym{KeyEscape}, keymap.KeyGetSymsByLevel(FromEvdev(evdev.KEY_A), 0, 0))
	// common keys are always present
	assert.Equal(t, []Keysym{KeyReturn}, keymap.KeyGetSymsByLevel(FromEvdev(evdev.KEY_ENTER), 0, 0))
}

func TestKeymapModifiers(t *testing.T) {
	keymap := compile(t, RuleNames{})

	assert.Equal(t, 8, keymap.NumMods())
	assert.Equal(t, ModIndex(0), keymap.ModGetIndex(ModNameShift))
	assert.Equal(t, ModIndex(3), keymap.ModGetIndex("Alt"))
	assert.Equal(t, ModIndex(6), keymap.ModGetIndex("Super"))
	assert.Equal(t, ModInvalid, keymap.ModGetIndex("Hyper"))
	assert.Equal(t, "Control", keymap.ModGetName(2))
	assert.Equal(t, "", keymap.ModGetName(12))
	assert.Equal(t, "Shift+Mod1", (ModShift | Mod1).String())
	assert.Equal(t, "none", ModMask(0).String())
}

func TestKeymapKeyRepeats(t *testing.T) {
	keymap := compile(t, RuleNames{})
	assert.True(t, keymap.KeyRepeats(FromEvdev(evdev.KEY_A)))
	assert.False(t, keymap.KeyRepeats(FromEvdev(evdev.KEY_LEFTSHIFT)))
	assert.False(t, keymap.KeyRepeats(FromEvdev(evdev.KEY_CAPSLOCK)))
	assert.False(t, keymap.KeyRepeats(Keycode(400)))
}

func TestKeymapKeycodesSorted(t *testing.T) {
	codes := compile(t, RuleNames{}).Keycodes()
	require.NotEmpty(t, codes)
	assert.Equal(t, FromEvdev(evdev.KEY_ESC), codes[0])
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
}

func TestKeyTypeLevels(t *testing.T) {
	tests := []struct {
		typ  KeyType
		mods ModMask
		want int
	}{
		{OneLevel, ModShift, 0},
		{TwoLevel, 0, 0},
		{TwoLevel, ModShift, 1},
		{TwoLevel, ModLock, 0},
		{Alphabetic, ModLock, 1},
		{Alphabetic, ModShift | ModLock, 0},
		{Keypad, Mod2, 1},
		{Keypad, Mod2 | ModShift, 0},
		{FourLevel, Mod5, 2},
		{FourLevel, Mod5 | ModShift, 3},
		{FourLevelAlphabetic, ModLock, 1},
		{FourLevelAlphabetic, ModLock | Mod5, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.Level(tt.mods), "%s with %s", tt.typ, tt.mods)
	}
}

func TestOptionsListed(t *testing.T) {
	names := Options()
	assert.Contains(t, names, "caps:escape")
	assert.Contains(t, names, "grp:alt_shift_toggle")

	desc, ok := OptionDescription("ctrl:nocaps")
	assert.True(t, ok)
	assert.NotEmpty(t, desc)
	_, ok = OptionDescription("nope")
	assert.False(t, ok)
}

func TestContextFlagValues(t *testing.T) {
	assert.Equal(t, ContextFlags(0), ContextNoFlags)
	assert.Equal(t, ContextFlags(1), ContextNoEnvironmentNames)
}
