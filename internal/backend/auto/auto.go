// Package auto creates the backend described by the configuration, or picks
// one from what the machine offers when no type is configured.
package auto

import (
	"fmt"
	"os"
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/backend/drm"
	"github.com/bnema/waycomp/internal/backend/evdev"
	"github.com/bnema/waycomp/internal/backend/headless"
	"github.com/bnema/waycomp/internal/config"
	"github.com/bnema/waycomp/internal/display"
	"github.com/bnema/waycomp/internal/logger"
	"github.com/bnema/waycomp/internal/session"
)

// Backend type names accepted in backend.types and WAYCOMP_BACKENDS
const (
	TypeEvdev    = "evdev"
	TypeDRM      = "drm"
	TypeHeadless = "headless"
)

type factory func(d *display.Display, s *session.Session, cfg config.BackendConfig) (backend.Backend, error)

var factories = map[string]factory{
	TypeEvdev:    newEvdev,
	TypeDRM:      newDRM,
	TypeHeadless: newHeadless,
}

// Types returns the accepted backend type names
func Types() []string {
	return []string{TypeEvdev, TypeDRM, TypeHeadless}
}

// Create builds the configured backends. Several types are combined in a
// backend.Multi, in the order they are listed.
func Create(d *display.Display, s *session.Session, cfg config.BackendConfig) (backend.Backend, error) {
	if d == nil || d.Destroyed() {
		return nil, fmt.Errorf("%w: display is not available", backend.ErrNoBackend)
	}

	types := cfg.Types
	if len(types) == 0 {
		types = Detect(s, cfg)
		logger.Debugf("Autodetected backends: %v", types)
	}

	var children []backend.Backend
	for _, typ := range types {
		create, ok := factories[typ]
		if !ok {
			for _, c := range children {
				c.Destroy()
			}
			return nil, fmt.Errorf("%w: unknown backend type %q", backend.ErrNoBackend, typ)
		}
		b, err := create(d, s, cfg)
		if err != nil {
			for _, c := range children {
				c.Destroy()
			}
			return nil, fmt.Errorf("failed to create %s backend: %w", typ, err)
		}
		children = append(children, b)
	}

	switch len(children) {
	case 0:
		return nil, backend.ErrNoBackend
	case 1:
		return children[0], nil
	default:
		return backend.NewMulti(children...), nil
	}
}

// Detect lists the backend types usable on this machine: evdev when the
// input directory is readable, drm when connectors are exported, and
// headless outputs when there are none.
func Detect(s *session.Session, cfg config.BackendConfig) []string {
	var types []string
	if s != nil && s.CanAccess(cfg.InputDir) {
		types = append(types, TypeEvdev)
	} else {
		logger.Debugf("Input directory %s is not readable, skipping evdev", cfg.InputDir)
	}
	if info, err := os.Stat(cfg.DRMDir); err == nil && info.IsDir() {
		types = append(types, TypeDRM)
	} else {
		types = append(types, TypeHeadless)
	}
	return types
}

func pollInterval(cfg config.BackendConfig) time.Duration {
	return time.Duration(cfg.PollIntervalMs) * time.Millisecond
}

func newEvdev(d *display.Display, s *session.Session, cfg config.BackendConfig) (backend.Backend, error) {
	if s == nil {
		return nil, fmt.Errorf("evdev backend needs a session")
	}
	return evdev.New(d, s, evdev.Options{Dir: cfg.InputDir, PollInterval: pollInterval(cfg)}), nil
}

func newDRM(d *display.Display, _ *session.Session, cfg config.BackendConfig) (backend.Backend, error) {
	return drm.New(d, drm.Options{
		Dir:          cfg.DRMDir,
		PollInterval: pollInterval(cfg),
		RefreshRate:  int32(cfg.RefreshRate),
	}), nil
}

func newHeadless(d *display.Display, _ *session.Session, cfg config.BackendConfig) (backend.Backend, error) {
	b := headless.New(d, headless.Options{FrameTicks: true})
	refresh := int32(cfg.RefreshRate)
	if refresh <= 0 {
		refresh = backend.DefaultRefresh
	}
	for i := 1; i <= cfg.HeadlessOutputs; i++ {
		b.AddOutput(fmt.Sprintf("HEADLESS-%d", i), backend.Mode{
			Width:     1920,
			Height:    1080,
			Refresh:   refresh,
			Preferred: true,
		})
	}
	return b, nil
}
