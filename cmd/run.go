package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/compositor"
	"github.com/bnema/waycomp/internal/logger"
	"github.com/bnema/waycomp/internal/ui"
	"github.com/bnema/waycomp/internal/xkb"
	"github.com/spf13/cobra"
)

var (
	runSwatch      bool
	runRenderEvery time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the compositor with the color cycling demo",
	Long: `Run the compositor. Every output frame advances a color that fades from
red to green to blue at a speed driven by the elapsed frame time, shown as a
swatch in the terminal. Press Escape on any keyboard, or Ctrl+C here, to exit.`,
	RunE: runCompositor,
}

func init() {
	runCmd.Flags().BoolVar(&runSwatch, "swatch", true, "Render the current color in the terminal")
	runCmd.Flags().DurationVar(&runRenderEvery, "render-every", 100*time.Millisecond, "Minimum time between two swatch redraws")
	rootCmd.AddCommand(runCmd)
}

// colorCycle fades one channel into the next, a full cycle taking six
// seconds of frame time
type colorCycle struct {
	color [3]float64
	dec   int
}

func newColorCycle() *colorCycle {
	return &colorCycle{color: [3]float64{1, 0, 0}}
}

func (c *colorCycle) advance(elapsed time.Duration) {
	step := float64(elapsed.Milliseconds()) / 2000
	inc := (c.dec + 1) % 3
	c.color[inc] += step
	c.color[c.dec] -= step
	if c.color[c.dec] < 0 {
		c.color[inc] = 1
		c.color[c.dec] = 0
		c.dec = inc
	}
}

func (c *colorCycle) rgb() (uint8, uint8, uint8) {
	channel := func(v float64) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		default:
			return uint8(v*255 + 0.5)
		}
	}
	return channel(c.color[0]), channel(c.color[1]), channel(c.color[2])
}

// demo is the application state threaded through the compositor context
type demo struct {
	cycle      *colorCycle
	out        io.Writer
	swatch     bool
	every      time.Duration
	lastRender time.Time
	frames     map[string]uint64
}

func newDemo(out io.Writer, swatch bool, every time.Duration) *demo {
	return &demo{
		cycle:  newColorCycle(),
		out:    out,
		swatch: swatch,
		every:  every,
		frames: make(map[string]uint64),
	}
}

// attach installs the demo callbacks on a compositor context
func (d *demo) attach(c *compositor.Context) {
	c.Data = d
	c.OnFrame = func(st *compositor.OutputState, elapsed time.Duration) {
		app := c.Data.(*demo)
		app.cycle.advance(elapsed)
		app.frames[st.Output().Name()]++
		app.render()
	}
	c.OnKey = func(kb *compositor.KeyboardState, sym xkb.Keysym, state backend.KeyState) {
		if sym == xkb.KeyEscape {
			logger.Infof("Escape on %s, exiting", kb.Device().Name())
			c.RequestExit()
		}
	}
	c.OnOutputAdd = func(st *compositor.OutputState) {
		mode, _ := st.Output().CurrentMode()
		logger.Infof("Rendering on %s (%s)", st.Output().Name(), mode)
	}
	c.OnOutputRemove = func(st *compositor.OutputState) {
		app := c.Data.(*demo)
		logger.Infof("Output %s gone after %d frames", st.Output().Name(), app.frames[st.Output().Name()])
	}
}

func (d *demo) render() {
	if !d.swatch {
		return
	}
	now := time.Now()
	if now.Sub(d.lastRender) < d.every {
		return
	}
	d.lastRender = now

	r, g, b := d.cycle.rgb()
	block := ui.Swatch(r, g, b, 24, 3)
	// Move back over the previous swatch before drawing the new one
	fmt.Fprint(d.out, "\x1b[s"+block+"\x1b[u")
}

func (d *demo) summary() string {
	names := make([]string, 0, len(d.frames))
	for name := range d.frames {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, d.frames[name])
	}
	return strings.Join(parts, " ")
}

func runCompositor(cmd *cobra.Command, args []string) error {
	c := compositor.New(compositor.Options{})
	app := newDemo(cmd.OutOrStdout(), runSwatch, runRenderEvery)
	app.attach(c)

	if err := c.Init(); err != nil {
		return fmt.Errorf("failed to initialize compositor: %w", err)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Interrupted, shutting down")
			c.Terminate()
		case <-done:
		}
	}()

	if err := c.Run(); err != nil {
		return err
	}
	if s := app.summary(); s != "" {
		logger.Infof("Frames delivered: %s", s)
	}
	return nil
}
