package backend

import "errors"

var (
	// ErrNoBackend is returned when no backend could be created
	ErrNoBackend = errors.New("no backend available")
	// ErrAlreadyStarted is returned when starting a backend twice
	ErrAlreadyStarted = errors.New("backend already started")
	// ErrDestroyed is returned when using a destroyed backend
	ErrDestroyed = errors.New("backend destroyed")
	// ErrUnsupportedMode is returned by SetMode for modes the output does
	// not advertise
	ErrUnsupportedMode = errors.New("unsupported mode")
)
