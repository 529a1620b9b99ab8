package xkb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleNamesFromEnv(t *testing.T) {
	t.Setenv(EnvRules, "evdev")
	t.Setenv(EnvModel, "pc104")
	t.Setenv(EnvLayout, "us,de")
	t.Setenv(EnvVariant, "dvorak,")
	t.Setenv(EnvOptions, "caps:escape")

	names := RuleNamesFromEnv()
	assert.Equal(t, RuleNames{
		Rules:   "evdev",
		Model:   "pc104",
		Layout:  "us,de",
		Variant: "dvorak,",
		Options: "caps:escape",
	}, names)
	assert.Equal(t, []string{"us", "de"}, names.Layouts())
	assert.Equal(t, []string{"dvorak", ""}, names.Variants())
	assert.Equal(t, []string{"caps:escape"}, names.OptionList())
}

func TestRuleNamesFromEnvUnset(t *testing.T) {
	for _, env := range []string{EnvRules, EnvModel, EnvLayout, EnvVariant, EnvOptions} {
		t.Setenv(env, "")
	}
	assert.Equal(t, RuleNames{}, RuleNamesFromEnv())
}

func TestRuleNamesWithDefaults(t *testing.T) {
	def := RuleNames{Rules: "evdev", Model: "pc105", Layout: "fr", Variant: "nodeadkeys", Options: "ctrl:nocaps"}

	tests := []struct {
		name  string
		names RuleNames
		want  RuleNames
	}{
		{
			name:  "empty takes everything",
			names: RuleNames{},
			want:  def,
		},
		{
			name:  "explicit layout does not inherit variant",
			names: RuleNames{Layout: "us"},
			want:  RuleNames{Rules: "evdev", Model: "pc105", Layout: "us", Options: "ctrl:nocaps"},
		},
		{
			name:  "explicit fields win",
			names: RuleNames{Model: "pc104", Layout: "de", Variant: "nodeadkeys", Options: "caps:escape"},
			want:  RuleNames{Rules: "evdev", Model: "pc104", Layout: "de", Variant: "nodeadkeys", Options: "caps:escape"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.names.WithDefaults(def))
		})
	}
}

func TestOptionListSkipsEmpty(t *testing.T) {
	names := RuleNames{Options: "caps:escape,, grp:alt_shift_toggle"}
	assert.Equal(t, []string{"caps:escape", "grp:alt_shift_toggle"}, names.OptionList())
}
