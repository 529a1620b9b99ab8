// Package drm provides outputs discovered from the DRM connectors exported
// in sysfs. Connector status is polled for hotplug and vertical blanking is
// emulated with an event loop timer running at the mode refresh rate.
package drm

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/display"
	"github.com/bnema/waycomp/internal/logger"
)

// DefaultDir is the sysfs DRM class directory
const DefaultDir = "/sys/class/drm"

var connectorName = regexp.MustCompile(`^card(\d+)-(.+)$`)

// Options configures the backend
type Options struct {
	Dir          string
	PollInterval time.Duration
	RefreshRate  int32 // mHz, for modes the EDID says nothing about
}

// Backend announces connected DRM connectors as outputs
type Backend struct {
	loop   *display.EventLoop
	events *backend.Events
	opts   Options

	outputs map[string]*Output
	order   []string

	done chan struct{}
	wg   sync.WaitGroup

	started   bool
	destroyed bool
}

// New creates a DRM backend bound to the display event loop
func New(d *display.Display, opts Options) *Backend {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = backend.DefaultRefresh
	}
	b := &Backend{
		loop:    d.EventLoop(),
		events:  backend.NewEvents(),
		opts:    opts,
		outputs: make(map[string]*Output),
		done:    make(chan struct{}),
	}
	d.OnDestroy.Add(func(*display.Display) { b.Destroy() })
	return b
}

func (b *Backend) Name() string {
	return "drm"
}

func (b *Backend) Events() *backend.Events {
	return b.events
}

// Start announces connected outputs and begins polling connector status
func (b *Backend) Start() error {
	if b.destroyed {
		return backend.ErrDestroyed
	}
	if b.started {
		return backend.ErrAlreadyStarted
	}
	if _, err := os.Stat(b.opts.Dir); err != nil {
		return fmt.Errorf("failed to read DRM directory: %w", err)
	}
	b.started = true

	b.Scan()
	logger.Infof("Found %d connected outputs in %s", len(b.order), b.opts.Dir)

	b.wg.Add(1)
	go b.poll()
	return nil
}

func (b *Backend) poll() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.loop.Post(b.Scan)
		}
	}
}

// Scan reconciles outputs with the connector status. It must run on the
// event loop goroutine.
func (b *Backend) Scan() {
	if b.destroyed || !b.started {
		return
	}
	connectors, err := readConnectors(b.opts.Dir, b.opts.RefreshRate)
	if err != nil {
		logger.Warnf("Failed to scan DRM connectors: %v", err)
		return
	}

	seen := make(map[string]bool)
	for _, c := range connectors {
		if !c.connected {
			continue
		}
		seen[c.name] = true
		if _, ok := b.outputs[c.name]; !ok {
			b.add(c)
		}
	}
	for _, name := range append([]string(nil), b.order...) {
		if !seen[name] {
			b.remove(name)
		}
	}
}

func (b *Backend) add(c connector) {
	out := &Output{
		loop:    b.loop,
		name:    c.name,
		make:    "Unknown",
		model:   "Unknown",
		modes:   c.modes,
		refresh: b.opts.RefreshRate,
		events:  backend.NewOutputEvents(),
	}
	if c.edid != nil {
		out.make, out.model, out.serial = c.edid.Make(), c.edid.Model(), c.edid.SerialString
		out.width, out.height = c.edid.WidthMM, c.edid.HeightMM
	}
	out.timer = b.loop.AddTimer(out.tick)
	out.attached = true

	b.outputs[c.name] = out
	b.order = append(b.order, c.name)
	logger.Infof("Output %s connected (%s %s, %d modes)", out.name, out.make, out.model, len(out.modes))

	b.events.OutputAdd.Emit(out)
	out.arm()
}

func (b *Backend) remove(name string) {
	out, ok := b.outputs[name]
	if !ok {
		return
	}
	out.detach()
	delete(b.outputs, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	logger.Infof("Output %s disconnected", name)
	b.events.OutputRemove.Emit(out)
}

// Destroy announces removal of every output and stops polling
func (b *Backend) Destroy() {
	if b.destroyed {
		return
	}
	for _, name := range append([]string(nil), b.order...) {
		b.remove(name)
	}
	b.destroyed = true
	close(b.done)
	b.wg.Wait()
}

// Outputs returns the connected outputs in detection order
func (b *Backend) Outputs() []*Output {
	out := make([]*Output, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.outputs[name])
	}
	return out
}

type connector struct {
	card      int
	name      string
	connected bool
	modes     []backend.Mode
	edid      *EDID
}

// readConnectors lists the connectors under dir, in directory order
func readConnectors(dir string, refresh int32) ([]connector, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []connector
	for _, entry := range entries {
		m := connectorName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		card, _ := strconv.Atoi(m[1])
		path := filepath.Join(dir, entry.Name())

		status, err := os.ReadFile(filepath.Join(path, "status"))
		if err != nil {
			logger.Debugf("Skipping connector %s: %v", entry.Name(), err)
			continue
		}
		c := connector{
			card:      card,
			name:      m[2],
			connected: strings.TrimSpace(string(status)) == "connected",
		}
		if !c.connected {
			out = append(out, c)
			continue
		}

		if data, err := os.ReadFile(filepath.Join(path, "edid")); err == nil && len(data) > 0 {
			if e, err := ParseEDID(data); err == nil {
				c.edid = e
			} else {
				logger.Debugf("Connector %s: %v", c.name, err)
			}
		}

		modes, err := os.ReadFile(filepath.Join(path, "modes"))
		if err == nil {
			c.modes = parseModes(string(modes), refresh, c.edid)
		}
		out = append(out, c)
	}
	return out, nil
}

// ConnectorInfo describes a connector without creating an output for it
type ConnectorInfo struct {
	Card      int
	Name      string
	Connected bool
	Make      string
	Model     string
	Serial    string
	WidthMM   int32
	HeightMM  int32
	Modes     []backend.Mode
}

// Probe lists every connector under dir, connected or not
func Probe(dir string) ([]ConnectorInfo, error) {
	if dir == "" {
		dir = DefaultDir
	}
	connectors, err := readConnectors(dir, backend.DefaultRefresh)
	if err != nil {
		return nil, fmt.Errorf("failed to read DRM directory: %w", err)
	}

	infos := make([]ConnectorInfo, 0, len(connectors))
	for _, c := range connectors {
		info := ConnectorInfo{
			Card:      c.card,
			Name:      c.name,
			Connected: c.connected,
			Modes:     c.modes,
		}
		if c.edid != nil {
			info.Make, info.Model, info.Serial = c.edid.Make(), c.edid.Model(), c.edid.SerialString
			info.WidthMM, info.HeightMM = c.edid.WidthMM, c.edid.HeightMM
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// parseModes reads the sysfs modes list. The kernel lists the preferred
// mode first. Refresh rates are not exported there, so the preferred
// timing of the EDID supplies it when the size matches.
func parseModes(text string, refresh int32, edid *EDID) []backend.Mode {
	var modes []backend.Mode
	seen := make(map[backend.Mode]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		w, h, ok := parseSize(line)
		if !ok {
			logger.Debugf("Ignoring mode %q", line)
			continue
		}
		mode := backend.Mode{Width: w, Height: h, Refresh: refresh}
		if edid != nil && edid.Preferred != nil && edid.Preferred.Width == w && edid.Preferred.Height == h {
			mode.Refresh = edid.Preferred.Refresh
		}
		if seen[mode] {
			continue
		}
		seen[mode] = true
		mode.Preferred = len(modes) == 0
		modes = append(modes, mode)
	}
	return modes
}

// parseSize accepts "1920x1080" with an optional interlace suffix
func parseSize(s string) (int32, int32, bool) {
	s = strings.TrimSuffix(s, "i")
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, false
	}
	w, err1 := strconv.ParseInt(ws, 10, 32)
	h, err2 := strconv.ParseInt(hs, 10, 32)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return int32(w), int32(h), true
}

// Output is a connected DRM connector
type Output struct {
	loop    *display.EventLoop
	name    string
	make    string
	model   string
	serial  string
	width   int32
	height  int32
	modes   []backend.Mode
	refresh int32
	events  *backend.OutputEvents

	current  backend.Mode
	hasMode  bool
	timer    *display.Timer
	attached bool
	frames   uint64
}

func (o *Output) Name() string { return o.name }
func (o *Output) Make() string { return o.make }
func (o *Output) Model() string { return o.model }
func (o *Output) Serial() string { return o.serial }
func (o *Output) PhysicalSize() (int32, int32) { return o.width, o.height }
func (o *Output) Modes() []backend.Mode { return o.modes }
func (o *Output) Events() *backend.OutputEvents { return o.events }
func (o *Output) CurrentMode() (backend.Mode, bool) { return o.current, o.hasMode }

// Frames returns the number of emulated vblanks delivered
func (o *Output) Frames() uint64 {
	return o.frames
}

// SetMode switches to one of the advertised modes
func (o *Output) SetMode(mode backend.Mode) error {
	for _, m := range o.modes {
		if m.Width == mode.Width && m.Height == mode.Height && m.Refresh == mode.Refresh {
			o.current, o.hasMode = m, true
			logger.Debugf("Output %s mode set to %s", o.name, m)
			o.arm()
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", backend.ErrUnsupportedMode, mode, o.name)
}

func (o *Output) interval() time.Duration {
	if o.hasMode {
		return o.current.FrameInterval()
	}
	return backend.Mode{Refresh: o.refresh}.FrameInterval()
}

func (o *Output) arm() {
	if o.attached {
		o.timer.Update(o.interval())
	}
}

func (o *Output) tick() {
	if !o.attached {
		return
	}
	o.frames++
	o.events.Frame.Emit(struct{}{})
	o.arm()
}

func (o *Output) detach() {
	o.attached = false
	o.timer.Remove()
}

func (o *Output) String() string {
	return fmt.Sprintf("%s (%s %s)", o.name, o.make, o.model)
}
