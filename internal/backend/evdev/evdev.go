// Package evdev provides input devices read from kernel event nodes. Devices
// present at start are announced by Start, later ones are picked up through
// inotify on the input directory, or by polling when inotify is unavailable.
package evdev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/display"
	"github.com/bnema/waycomp/internal/logger"
	"github.com/bnema/waycomp/internal/session"
	"github.com/fsnotify/fsnotify"
	evdev "github.com/gvalkov/golang-evdev"
)

// DefaultInputDir is scanned when Options.Dir is empty
const DefaultInputDir = "/dev/input"

// Options configures the backend
type Options struct {
	Dir          string
	PollInterval time.Duration // used only when inotify cannot watch Dir
}

// Backend announces kernel input devices
type Backend struct {
	loop    *display.EventLoop
	session *session.Session
	events  *backend.Events
	opts    Options

	// open is replaced in tests
	open func(path string) (*evdev.InputDevice, error)

	devices map[string]*InputDevice
	order   []string
	ignored map[string]bool

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	started   bool
	destroyed bool
}

// New creates an evdev backend. Device files are registered with the
// session so they are closed when it finishes.
func New(d *display.Display, s *session.Session, opts Options) *Backend {
	if opts.Dir == "" {
		opts.Dir = DefaultInputDir
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	b := &Backend{
		loop:    d.EventLoop(),
		session: s,
		events:  backend.NewEvents(),
		opts:    opts,
		open:    evdev.Open,
		devices: make(map[string]*InputDevice),
		ignored: make(map[string]bool),
		done:    make(chan struct{}),
	}
	d.OnDestroy.Add(func(*display.Display) { b.Destroy() })
	return b
}

func (b *Backend) Name() string {
	return "evdev"
}

func (b *Backend) Events() *backend.Events {
	return b.events
}

// Start announces the devices present now and begins watching for hotplug
func (b *Backend) Start() error {
	if b.destroyed {
		return backend.ErrDestroyed
	}
	if b.started {
		return backend.ErrAlreadyStarted
	}

	entries, err := os.ReadDir(b.opts.Dir)
	if err != nil {
		return fmt.Errorf("failed to read input directory: %w", err)
	}
	b.started = true

	logger.Infof("Discovering input devices in %s", b.opts.Dir)
	for _, entry := range entries {
		if !entry.IsDir() && isEventNode(entry.Name()) {
			b.addPath(filepath.Join(b.opts.Dir, entry.Name()))
		}
	}

	if len(b.ignored) > 0 {
		logger.Infof("Found %d input devices (%d ignored)", len(b.devices), len(b.ignored))
	} else {
		logger.Infof("Found %d input devices", len(b.devices))
	}

	b.startMonitor()
	return nil
}

func (b *Backend) startMonitor() {
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err = watcher.Add(b.opts.Dir); err == nil {
			b.watcher = watcher
			b.wg.Add(1)
			go b.watch()
			logger.Debugf("Watching %s for input hotplug", b.opts.Dir)
			return
		}
		_ = watcher.Close()
	}

	logger.Warnf("Cannot watch %s (%v), polling every %s", b.opts.Dir, err, b.opts.PollInterval)
	b.wg.Add(1)
	go b.poll()
}

// watch forwards inotify events to the event loop
func (b *Backend) watch() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if !isEventNode(filepath.Base(ev.Name)) {
				continue
			}
			path := ev.Name
			switch {
			case ev.Has(fsnotify.Create):
				b.loop.Post(func() { b.addPath(path) })
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				b.loop.Post(func() { b.removePath(path) })
			case ev.Has(fsnotify.Chmod):
				// udev fixes permissions after creating the node
				b.loop.Post(func() { b.retryPath(path) })
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("Input watcher error: %v", err)
		}
	}
}

// poll rescans the input directory on a ticker
func (b *Backend) poll() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.loop.Post(b.rescan)
		}
	}
}

// rescan reconciles the known devices with the directory contents
func (b *Backend) rescan() {
	if b.destroyed {
		return
	}
	entries, err := os.ReadDir(b.opts.Dir)
	if err != nil {
		logger.Warnf("Failed to read input directory during device monitoring: %v", err)
		return
	}

	current := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !isEventNode(entry.Name()) {
			continue
		}
		path := filepath.Join(b.opts.Dir, entry.Name())
		current[path] = true
		if _, known := b.devices[path]; !known && !b.ignored[path] {
			b.addPath(path)
		}
	}

	for _, path := range append([]string(nil), b.order...) {
		if !current[path] {
			b.removePath(path)
		}
	}
	for path := range b.ignored {
		if !current[path] {
			delete(b.ignored, path)
		}
	}
}

func (b *Backend) retryPath(path string) {
	if b.ignored[path] {
		delete(b.ignored, path)
		b.addPath(path)
	}
}

// addPath opens and announces a device. Runs on the event loop.
func (b *Backend) addPath(path string) {
	if b.destroyed || !b.started {
		return
	}
	if _, exists := b.devices[path]; exists || b.ignored[path] {
		return
	}

	dev, err := b.open(path)
	if err != nil {
		b.ignored[path] = true
		logger.Debugf("Cannot open device %s: %v", path, err)
		return
	}

	typ, ok := classify(dev.CapabilitiesFlat)
	if !ok {
		b.ignored[path] = true
		if err := dev.File.Close(); err != nil {
			logger.Warnf("Failed to close device file %s: %v", path, err)
		}
		logger.Debugf("Device %s (%s) has no relevant input capabilities", path, dev.Name)
		return
	}

	if err := b.session.Register(path, dev.File); err != nil {
		b.ignored[path] = true
		_ = dev.File.Close()
		logger.Warnf("Failed to add device %s: %v", path, err)
		return
	}

	in := newInputDevice(path, dev, typ)
	b.devices[path] = in
	b.order = append(b.order, path)

	if in.keyboard != nil {
		b.wg.Add(1)
		go b.read(in)
	}

	logger.Infof("Added input device: %s (%s, %s)", in.name, typ, path)
	b.events.InputAdd.Emit(in)
}

// removePath announces and releases a device. Runs on the event loop.
func (b *Backend) removePath(path string) {
	delete(b.ignored, path)
	in, ok := b.devices[path]
	if !ok {
		return
	}

	in.detach()
	delete(b.devices, path)
	for i, p := range b.order {
		if p == path {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}

	b.events.InputRemove.Emit(in)
	if err := b.session.Release(path); err != nil {
		logger.Warnf("Failed to release %s: %v", path, err)
	}
	logger.Infof("Removed input device: %s (%s)", in.name, path)
}

// read forwards key events from a device until it is detached or fails
func (b *Backend) read(in *InputDevice) {
	defer b.wg.Done()
	logger.Debugf("Starting capture from device: %s (%s)", in.name, in.path)

	for {
		events, err := in.dev.Read()
		if in.isDetached() {
			return
		}
		for _, ev := range events {
			key, ok := keyEventFrom(ev)
			if !ok {
				continue
			}
			b.loop.Post(func() {
				if !in.isDetached() {
					in.keyboard.Key.Emit(key)
				}
			})
		}
		if err == nil {
			continue
		}
		if errors.Is(err, syscall.EAGAIN) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
			logger.Errorf("Error reading events from %s: %v", in.path, err)
		}
		path := in.path
		b.loop.Post(func() { b.removePath(path) })
		return
	}
}

// Destroy announces removal of every device and stops monitoring
func (b *Backend) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	close(b.done)
	if b.watcher != nil {
		if err := b.watcher.Close(); err != nil {
			logger.Debugf("Failed to close input watcher: %v", err)
		}
	}

	for _, path := range append([]string(nil), b.order...) {
		b.removePath(path)
	}
}

// Devices returns the announced devices in detection order
func (b *Backend) Devices() []*InputDevice {
	out := make([]*InputDevice, 0, len(b.order))
	for _, path := range b.order {
		out = append(out, b.devices[path])
	}
	return out
}

// Wait blocks until the monitor and reader goroutines exit. Readers only
// exit once their device file is closed.
func (b *Backend) Wait() {
	b.wg.Wait()
}

func isEventNode(name string) bool {
	return strings.HasPrefix(name, "event")
}

// keyEventFrom converts a kernel key event. Autorepeat (value 2) is left to
// the client side.
func keyEventFrom(ev evdev.InputEvent) (backend.KeyEvent, bool) {
	if ev.Type != evdev.EV_KEY || ev.Value == 2 {
		return backend.KeyEvent{}, false
	}
	state := backend.KeyReleased
	if ev.Value == 1 {
		state = backend.KeyPressed
	}
	return backend.KeyEvent{
		TimeMsec: uint32(int64(ev.Time.Sec)*1000 + int64(ev.Time.Usec)/1000),
		Keycode:  uint32(ev.Code),
		State:    state,
	}, true
}

// classify picks the primary capability of a device
func classify(caps map[int][]int) (backend.DeviceType, bool) {
	has := func(typ, code int) bool {
		for _, c := range caps[typ] {
			if c == code {
				return true
			}
		}
		return false
	}

	letters := 0
	anyKey := false
	for _, code := range caps[evdev.EV_KEY] {
		if code >= evdev.KEY_A && code <= evdev.KEY_Z {
			letters++
		}
		if code > 0 && code < evdev.BTN_MISC {
			anyKey = true
		}
	}

	switch {
	case letters >= 8:
		return backend.DeviceKeyboard, true
	case has(evdev.EV_KEY, evdev.BTN_TOOL_PEN):
		return backend.DeviceTabletTool, true
	case has(evdev.EV_REL, evdev.REL_X) && has(evdev.EV_REL, evdev.REL_Y),
		has(evdev.EV_KEY, evdev.BTN_TOOL_FINGER) && has(evdev.EV_KEY, evdev.BTN_LEFT):
		return backend.DevicePointer, true
	case has(evdev.EV_ABS, evdev.ABS_MT_POSITION_X):
		return backend.DeviceTouch, true
	case len(caps[evdev.EV_SW]) > 0:
		return backend.DeviceSwitch, true
	case has(evdev.EV_KEY, evdev.BTN_0) && len(caps[evdev.EV_ABS]) > 0:
		return backend.DeviceTabletPad, true
	case anyKey:
		// power buttons and media key panels
		return backend.DeviceKeyboard, true
	}
	return backend.DeviceKeyboard, false
}

// InputDevice is a kernel event node announced by the backend
type InputDevice struct {
	path     string
	name     string
	typ      backend.DeviceType
	vendor   uint16
	product  uint16
	dev      *evdev.InputDevice
	keyboard *backend.Keyboard

	mu       sync.Mutex
	detached bool
}

func newInputDevice(path string, dev *evdev.InputDevice, typ backend.DeviceType) *InputDevice {
	in := &InputDevice{
		path:    path,
		name:    dev.Name,
		typ:     typ,
		vendor:  dev.Vendor,
		product: dev.Product,
		dev:     dev,
	}
	if typ == backend.DeviceKeyboard {
		in.keyboard = backend.NewKeyboard()
	}
	return in
}

func (d *InputDevice) Type() backend.DeviceType { return d.typ }
func (d *InputDevice) Name() string { return d.name }
func (d *InputDevice) Vendor() uint16 { return d.vendor }
func (d *InputDevice) Product() uint16 { return d.product }
func (d *InputDevice) Keyboard() *backend.Keyboard { return d.keyboard }

// Path returns the event node path
func (d *InputDevice) Path() string {
	return d.path
}

func (d *InputDevice) detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detached = true
}

func (d *InputDevice) isDetached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detached
}

func (d *InputDevice) String() string {
	return fmt.Sprintf("%s (%04x:%04x %s)", d.name, d.vendor, d.product, d.path)
}

// ProbeResult describes one event node found by Probe
type ProbeResult struct {
	Path    string
	Name    string
	Type    backend.DeviceType
	Vendor  uint16
	Product uint16
	Usable  bool
	Err     error
}

// Probe opens every event node in dir, classifies it and closes it again
func Probe(dir string) ([]ProbeResult, error) {
	if dir == "" {
		dir = DefaultInputDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var results []ProbeResult
	for _, entry := range entries {
		if entry.IsDir() || !isEventNode(entry.Name()) {
			continue
		}
		r := ProbeResult{Path: filepath.Join(dir, entry.Name())}
		dev, err := evdev.Open(r.Path)
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}
		r.Name, r.Vendor, r.Product = dev.Name, dev.Vendor, dev.Product
		r.Type, r.Usable = classify(dev.CapabilitiesFlat)
		if err := dev.File.Close(); err != nil {
			logger.Debugf("Failed to close %s: %v", r.Path, err)
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}
