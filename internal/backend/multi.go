package backend

import (
	"fmt"
	"strings"

	"github.com/bnema/waycomp/internal/logger"
)

// Multi aggregates several backends behind one set of hotplug signals
type Multi struct {
	children  []Backend
	events    *Events
	removers  []func()
	started   bool
	destroyed bool
}

// NewMulti combines children. Their hotplug signals are forwarded in the
// order the children emit them.
func NewMulti(children ...Backend) *Multi {
	m := &Multi{events: NewEvents()}
	for _, child := range children {
		m.Add(child)
	}
	return m
}

// Add attaches another child backend. A child added after Start is started
// immediately.
func (m *Multi) Add(child Backend) error {
	if m.destroyed {
		return ErrDestroyed
	}
	ev := child.Events()
	listeners := []interface{ Remove() }{
		ev.InputAdd.Add(m.events.InputAdd.Emit),
		ev.InputRemove.Add(m.events.InputRemove.Emit),
		ev.OutputAdd.Add(m.events.OutputAdd.Emit),
		ev.OutputRemove.Add(m.events.OutputRemove.Emit),
	}
	m.children = append(m.children, child)
	m.removers = append(m.removers, func() {
		for _, l := range listeners {
			l.Remove()
		}
	})

	if m.started {
		if err := child.Start(); err != nil {
			return fmt.Errorf("failed to start backend %s: %w", child.Name(), err)
		}
	}
	return nil
}

// Children returns the aggregated backends
func (m *Multi) Children() []Backend {
	return m.children
}

func (m *Multi) Name() string {
	names := make([]string, len(m.children))
	for i, c := range m.children {
		names[i] = c.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *Multi) Events() *Events {
	return m.events
}

// Start starts every child in order. The first failure aborts and is
// returned; children already started stay started until Destroy.
func (m *Multi) Start() error {
	if m.destroyed {
		return ErrDestroyed
	}
	if m.started {
		return ErrAlreadyStarted
	}
	if len(m.children) == 0 {
		return ErrNoBackend
	}
	m.started = true
	for _, child := range m.children {
		logger.Debugf("Starting backend %s", child.Name())
		if err := child.Start(); err != nil {
			return fmt.Errorf("failed to start backend %s: %w", child.Name(), err)
		}
	}
	return nil
}

// Destroy destroys children in reverse order, forwarding their final
// removal notifications before detaching from them
func (m *Multi) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	for i := len(m.children) - 1; i >= 0; i-- {
		m.children[i].Destroy()
		m.removers[i]()
	}
	m.children = nil
	m.removers = nil
}
