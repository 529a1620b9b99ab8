// Package xkb compiles keymaps from rule names and tracks keyboard state,
// following the model of libxkbcommon: a Context resolves names into an
// immutable Keymap and a State translates key codes into keysyms while
// tracking modifiers, locks and the active layout.
package xkb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/waycomp/internal/logger"
	evdev "github.com/gvalkov/golang-evdev"
)

var (
	// ErrUnknownRules is returned for a rules set other than evdev or base
	ErrUnknownRules = errors.New("unknown keymap rules")
	// ErrUnknownLayout is returned when a layout is not registered
	ErrUnknownLayout = errors.New("unknown keyboard layout")
	// ErrUnknownVariant is returned when a layout has no such variant
	ErrUnknownVariant = errors.New("unknown layout variant")
	// ErrTooManyLayouts is returned when more than MaxLayouts are requested
	ErrTooManyLayouts = errors.New("too many layouts")
)

// Built-in defaults used when neither the names, the environment nor the
// context provide a value
const (
	DefaultRules  = "evdev"
	DefaultModel  = "pc105"
	DefaultLayout = "us"
	MaxLayouts    = 4
)

// ContextFlags alter how a Context resolves names
type ContextFlags int

const (
	ContextNoFlags ContextFlags = 0
	// ContextNoEnvironmentNames ignores the XKB_DEFAULT_* variables
	ContextNoEnvironmentNames ContextFlags = 1 << 0
)

var knownRules = map[string]bool{"evdev": true, "base": true}

// models without the extra key between left Shift and Z
var modelsWithoutISOKey = map[string]bool{"pc101": true, "pc104": true}

// Context holds the registered layouts and default names
type Context struct {
	mu       sync.RWMutex
	flags    ContextFlags
	defaults RuleNames
	layouts  map[string]*Layout
}

// NewContext creates a context with the built-in layouts registered
func NewContext(flags ContextFlags) *Context {
	c := &Context{
		flags:   flags,
		layouts: make(map[string]*Layout),
	}
	for _, l := range builtinLayouts() {
		c.layouts[l.Name] = l
	}
	return c
}

// SetDefaults sets the names used for fields left empty by both the caller
// and the environment
func (c *Context) SetDefaults(names RuleNames) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults = names
}

// Defaults returns the context defaults
func (c *Context) Defaults() RuleNames {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaults
}

// RegisterLayout adds or replaces a layout
func (c *Context) RegisterLayout(l *Layout) error {
	if l == nil || l.Name == "" {
		return fmt.Errorf("layout must have a name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layouts[l.Name] = l
	return nil
}

// Layouts returns the registered layout names in sorted order
func (c *Context) Layouts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.layouts))
	for name := range c.layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Layout returns a registered layout
func (c *Context) Layout(name string) (*Layout, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.layouts[name]
	return l, ok
}

// Resolve fills empty name fields from the environment, the context
// defaults and finally the built-in defaults
func (c *Context) Resolve(names RuleNames) RuleNames {
	if c.flags&ContextNoEnvironmentNames == 0 {
		names = names.WithDefaults(RuleNamesFromEnv())
	}
	names = names.WithDefaults(c.Defaults())
	return names.WithDefaults(RuleNames{
		Rules:  DefaultRules,
		Model:  DefaultModel,
		Layout: DefaultLayout,
	})
}

// NewKeymapFromNames compiles a keymap. Unknown options are logged and
// ignored, unknown rules, layouts or variants are errors.
func (c *Context) NewKeymapFromNames(names RuleNames) (*Keymap, error) {
	resolved := c.Resolve(names)

	if !knownRules[resolved.Rules] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRules, resolved.Rules)
	}

	layouts := resolved.Layouts()
	variants := resolved.Variants()
	if len(layouts) > MaxLayouts {
		return nil, fmt.Errorf("%w: %d requested, at most %d", ErrTooManyLayouts, len(layouts), MaxLayouts)
	}
	if len(variants) > len(layouts) {
		return nil, fmt.Errorf("%w: %d variants for %d layouts", ErrUnknownVariant, len(variants), len(layouts))
	}

	b := &builder{}
	for i, name := range layouts {
		if name == "" {
			name = DefaultLayout
		}
		l, ok := c.Layout(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
		}
		if err := b.addLayout(l, variants[i]); err != nil {
			return nil, err
		}
	}

	if modelsWithoutISOKey[resolved.Model] {
		b.unbind(evdev.KEY_102ND)
	}

	for _, name := range resolved.OptionList() {
		o, ok := options[name]
		if !ok {
			logger.Warnf("Ignoring unknown keymap option %q", name)
			continue
		}
		o.apply(b)
	}

	keymap := b.build(resolved)
	logger.Debugf("Compiled keymap %s with %d keys", resolved, len(keymap.keys))
	return keymap, nil
}

// builder accumulates per layout bindings keyed by kernel code
type builder struct {
	names          []string
	groups         []map[uint32]KeyDef
	altShiftToggle bool
}

func (b *builder) addLayout(l *Layout, variant string) error {
	keys := pcKeys()
	for code, def := range l.Keys {
		keys[code] = def.clone()
	}

	name := l.Name
	if variant != "" {
		v, ok := l.Variants[variant]
		if !ok {
			return fmt.Errorf("%w: %s(%s)", ErrUnknownVariant, l.Name, variant)
		}
		for code, def := range v.Keys {
			keys[code] = def.clone()
		}
		name = fmt.Sprintf("%s(%s)", l.Name, variant)
	}

	b.names = append(b.names, name)
	b.groups = append(b.groups, keys)
	return nil
}

func (b *builder) bindAll(code uint32, def KeyDef) {
	for _, g := range b.groups {
		g[code] = def.clone()
	}
}

func (b *builder) unbind(code uint32) {
	for _, g := range b.groups {
		delete(g, code)
	}
}

func (b *builder) build(names RuleNames) *Keymap {
	m := &Keymap{
		names:          names,
		layouts:        b.names,
		keys:           make(map[Keycode]*key),
		altShiftToggle: b.altShiftToggle,
	}

	for gi, g := range b.groups {
		for code, def := range g {
			if !def.defined() {
				continue
			}
			kc := FromEvdev(code)
			k, ok := m.keys[kc]
			if !ok {
				k = &key{code: kc, groups: make([]KeyDef, len(b.groups))}
				m.keys[kc] = k
			}
			k.groups[gi] = def
		}
	}

	for _, k := range m.keys {
		if !k.groups[0].defined() {
			for _, def := range k.groups {
				if def.defined() {
					k.groups[0] = def
					break
				}
			}
		}
		k.actions = make([]keyAction, len(k.groups))
		for gi, def := range k.groups {
			if def.defined() {
				k.actions[gi] = actionFor(baseSym(def))
			}
		}
		k.repeats = !baseSym(k.groups[0]).IsModifier()
	}
	return m
}

func baseSym(def KeyDef) Keysym {
	if len(def.Levels) == 0 || len(def.Levels[0]) == 0 {
		return KeyNoSymbol
	}
	return def.Levels[0][0]
}
