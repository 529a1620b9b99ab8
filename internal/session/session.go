// Package session mediates access to device files for the backends and
// closes whatever they left open when the session finishes.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/bnema/waycomp/internal/display"
	"github.com/bnema/waycomp/internal/logger"
	"golang.org/x/sys/unix"
)

var (
	// ErrNoDisplay is returned when starting a session without a live display
	ErrNoDisplay = errors.New("session requires a live display")
	// ErrFinished is returned when using a session after Finish
	ErrFinished = errors.New("session finished")
)

// DefaultSeat is used when XDG_SEAT is not set
const DefaultSeat = "seat0"

// Session tracks the seat and the device files granted to backends
type Session struct {
	seat     string
	vt       int
	display  *display.Display
	devices  map[string]io.Closer
	finished bool
}

// Start begins a session bound to the display. The session finishes itself
// if the display is destroyed first.
func Start(d *display.Display) (*Session, error) {
	if d == nil || d.Destroyed() {
		return nil, ErrNoDisplay
	}

	seat := os.Getenv("XDG_SEAT")
	if seat == "" {
		seat = DefaultSeat
	}

	vt := 0
	if v := os.Getenv("XDG_VTNR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid XDG_VTNR %q: %w", v, err)
		}
		vt = n
	}

	s := &Session{
		seat:    seat,
		vt:      vt,
		display: d,
		devices: make(map[string]io.Closer),
	}
	d.OnDestroy.Add(func(*display.Display) { s.Finish() })

	logger.Debugf("Session started on %s (vt %d)", seat, vt)
	return s, nil
}

// Seat returns the seat name
func (s *Session) Seat() string {
	return s.seat
}

// VT returns the virtual terminal number, zero when unknown
func (s *Session) VT() int {
	return s.vt
}

// Active reports whether the session can still grant devices
func (s *Session) Active() bool {
	return !s.finished
}

// CanAccess reports whether the current process may read the device node
func (s *Session) CanAccess(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}

// Register records a device opened by a backend. The session closes it on
// Release or Finish.
func (s *Session) Register(path string, dev io.Closer) error {
	if s.finished {
		return ErrFinished
	}
	if _, ok := s.devices[path]; ok {
		return fmt.Errorf("device %s already registered", path)
	}
	s.devices[path] = dev
	return nil
}

// Release closes and forgets a registered device. Releasing an unknown path
// is a no-op.
func (s *Session) Release(path string) error {
	dev, ok := s.devices[path]
	if !ok {
		return nil
	}
	delete(s.devices, path)
	if err := dev.Close(); err != nil {
		return fmt.Errorf("failed to close device %s: %w", path, err)
	}
	return nil
}

// Devices returns the registered device paths in lexical order
func (s *Session) Devices() []string {
	paths := make([]string, 0, len(s.devices))
	for p := range s.devices {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Finish closes every device still registered. Calling it twice is a no-op.
func (s *Session) Finish() {
	if s.finished {
		return
	}
	for _, path := range s.Devices() {
		if err := s.Release(path); err != nil {
			logger.Warnf("Session finish: %v", err)
		}
	}
	s.finished = true
	logger.Debugf("Session on %s finished", s.seat)
}
