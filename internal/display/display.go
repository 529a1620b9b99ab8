// Package display owns the server display handle and its event loop
package display

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/bnema/waycomp/internal/logger"
	"github.com/bnema/waycomp/internal/signal"
)

// ErrDisplayDestroyed is returned when using a display after Destroy
var ErrDisplayDestroyed = errors.New("display destroyed")

var serial atomic.Uint32

// Display is the process-side handle for the display server. It owns the
// event loop that every backend posts its hardware events to.
type Display struct {
	name      string
	loop      *EventLoop
	destroyed bool

	// OnDestroy is emitted once, before the event loop is torn down
	OnDestroy *signal.Signal[*Display]
}

// Create allocates a display and its event loop. The display name follows
// WAYLAND_DISPLAY conventions and is only used for logging.
func Create() (*Display, error) {
	name := os.Getenv("WAYCOMP_DISPLAY")
	if name == "" {
		name = fmt.Sprintf("waycomp-%d", serial.Add(1)-1)
	}

	d := &Display{
		name:      name,
		loop:      NewEventLoop(),
		OnDestroy: signal.New[*Display](),
	}
	logger.Debugf("Display %s created", d.name)
	return d, nil
}

// Name returns the display name
func (d *Display) Name() string {
	return d.name
}

// EventLoop returns the event loop owned by the display
func (d *Display) EventLoop() *EventLoop {
	return d.loop
}

// Destroyed reports whether Destroy has been called
func (d *Display) Destroyed() bool {
	return d.destroyed
}

// Destroy notifies destroy listeners and then tears down the event loop.
// Calling it twice is a no-op.
func (d *Display) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true
	d.OnDestroy.Emit(d)
	d.loop.Destroy()
	logger.Debugf("Display %s destroyed", d.name)
}
