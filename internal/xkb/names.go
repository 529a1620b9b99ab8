package xkb

import (
	"os"
	"strings"
)

// Environment variables consulted for keymap rule names
const (
	EnvRules   = "XKB_DEFAULT_RULES"
	EnvModel   = "XKB_DEFAULT_MODEL"
	EnvLayout  = "XKB_DEFAULT_LAYOUT"
	EnvVariant = "XKB_DEFAULT_VARIANT"
	EnvOptions = "XKB_DEFAULT_OPTIONS"
)

// RuleNames selects a keymap by rules, model, layout, variant and options.
// Empty fields resolve to the compiler defaults.
type RuleNames struct {
	Rules   string `mapstructure:"rules"`
	Model   string `mapstructure:"model"`
	Layout  string `mapstructure:"layout"`
	Variant string `mapstructure:"variant"`
	Options string `mapstructure:"options"`
}

// RuleNamesFromEnv reads the XKB_DEFAULT_* variables. Unset variables leave
// the corresponding field empty.
func RuleNamesFromEnv() RuleNames {
	return RuleNames{
		Rules:   os.Getenv(EnvRules),
		Model:   os.Getenv(EnvModel),
		Layout:  os.Getenv(EnvLayout),
		Variant: os.Getenv(EnvVariant),
		Options: os.Getenv(EnvOptions),
	}
}

// WithDefaults fills empty fields from def. Variant and options only fall
// back when the layout also came from def, so an explicit layout never
// inherits a variant meant for another one.
func (r RuleNames) WithDefaults(def RuleNames) RuleNames {
	out := r
	if out.Rules == "" {
		out.Rules = def.Rules
	}
	if out.Model == "" {
		out.Model = def.Model
	}
	if out.Layout == "" {
		out.Layout = def.Layout
		if out.Variant == "" {
			out.Variant = def.Variant
		}
	}
	if out.Options == "" {
		out.Options = def.Options
	}
	return out
}

// Layouts splits the comma separated layout list
func (r RuleNames) Layouts() []string {
	return splitList(r.Layout)
}

// Variants splits the comma separated variant list, padded to the number of
// layouts
func (r RuleNames) Variants() []string {
	variants := splitList(r.Variant)
	for len(variants) < len(r.Layouts()) {
		variants = append(variants, "")
	}
	return variants
}

// OptionList splits the comma separated option list, dropping empty entries
func (r RuleNames) OptionList() []string {
	var out []string
	for _, o := range splitList(r.Options) {
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (r RuleNames) String() string {
	return strings.Join([]string{r.Rules, r.Model, r.Layout, r.Variant, r.Options}, ":")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
