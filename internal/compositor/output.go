package compositor

import (
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/logger"
	"github.com/bnema/waycomp/internal/signal"
)

// OutputState is the frame scheduler of one output
type OutputState struct {
	output    backend.Output
	lastFrame time.Duration
	frames    uint64
	listener  *signal.Listener[struct{}]
}

// Output returns the backend output handle
func (o *OutputState) Output() backend.Output {
	return o.output
}

// LastFrame returns the timestamp of the last delivered frame, or of
// detection before the first one
func (o *OutputState) LastFrame() time.Duration {
	return o.lastFrame
}

// Frames returns the number of frames delivered
func (o *OutputState) Frames() uint64 {
	return o.frames
}

func (c *Context) outputAdded(out backend.Output) {
	if _, ok := c.outputs.Get(out); ok {
		logger.Warnf("Output %s announced twice, ignoring", out.Name())
		return
	}

	w, h := out.PhysicalSize()
	logger.Infof("Output %s added: %s %s, %dmm x %dmm", out.Name(), out.Make(), out.Model(), w, h)

	if mode, ok := backend.PreferredMode(out.Modes()); ok {
		if err := out.SetMode(mode); err != nil {
			logger.Warnf("Failed to set mode %s on %s: %v", mode, out.Name(), err)
		} else {
			logger.Infof("Output %s using mode %s", out.Name(), mode)
		}
	}

	st := &OutputState{
		output:    out,
		lastFrame: c.opts.Clock.Now(),
	}
	st.listener = out.Events().Frame.Add(func(struct{}) {
		c.frame(st)
	})
	c.outputs.Add(out, st)

	if c.OnOutputAdd != nil {
		c.OnOutputAdd(st)
	}
}

func (c *Context) outputRemoved(out backend.Output) {
	st, ok := c.outputs.Get(out)
	if !ok {
		logger.Debugf("Output %s removed without a record", out.Name())
		return
	}
	if c.OnOutputRemove != nil {
		c.OnOutputRemove(st)
	}
	c.outputs.Remove(out)
	st.listener.Remove()
	logger.Infof("Output %s removed", out.Name())
}

func (c *Context) frame(st *OutputState) {
	now := c.opts.Clock.Now()
	elapsed := now - st.lastFrame
	if elapsed < 0 {
		elapsed = 0
	}
	st.frames++
	if c.OnFrame != nil {
		c.OnFrame(st, elapsed)
	}
	st.lastFrame = now
	c.lastFrame = now
}
