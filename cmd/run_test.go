package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/backend/headless"
	"github.com/bnema/waycomp/internal/compositor"
	"github.com/bnema/waycomp/internal/display"
	"github.com/bnema/waycomp/internal/session"
	"github.com/bnema/waycomp/internal/xkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorCycleAdvance(t *testing.T) {
	c := newColorCycle()

	c.advance(1000 * time.Millisecond)
	assert.InDelta(t, 0.5, c.color[0], 1e-9)
	assert.InDelta(t, 0.5, c.color[1], 1e-9)
	assert.Equal(t, 0, c.dec)

	c.advance(1200 * time.Millisecond)
	assert.Equal(t, [3]float64{0, 1, 0}, c.color)
	assert.Equal(t, 1, c.dec)

	c.advance(2000 * time.Millisecond)
	c.advance(2000 * time.Millisecond)
	assert.Equal(t, [3]float64{0, 0, 1}, c.color)
	assert.Equal(t, 2, c.dec)

	c.advance(0)
	assert.Equal(t, 2, c.dec)
}

func TestColorCycleRGB(t *testing.T) {
	c := &colorCycle{color: [3]float64{1.2, 0.5, -0.1}}
	r, g, b := c.rgb()
	assert.Equal(t, uint8(255), r)
	assert.Equal(t, uint8(128), g)
	assert.Equal(t, uint8(0), b)
}

func TestDemoExitsOnEscape(t *testing.T) {
	var hb *headless.Backend
	c := compositor.New(compositor.Options{
		Backend: func(d *display.Display, _ *session.Session) (backend.Backend, error) {
			hb = headless.New(d, headless.Options{})
			return hb, nil
		},
		Compiler:  xkb.NewContext(xkb.ContextNoEnvironmentNames),
		RuleNames: func() xkb.RuleNames { return xkb.RuleNames{Layout: "us"} },
	})
	buf := new(bytes.Buffer)
	app := newDemo(buf, true, 0)
	app.attach(c)
	require.NoError(t, c.Init())

	out := hb.AddOutput("HEADLESS-1")
	kb := hb.AddKeyboard("kbd")
	out.ScheduleFrame()
	out.ScheduleFrame()
	kb.Tap(30) // a
	kb.Key(1, backend.KeyPressed)

	watchdog := time.AfterFunc(5*time.Second, c.Terminate)
	defer watchdog.Stop()
	require.NoError(t, c.Run())

	assert.True(t, c.ExitRequested())
	assert.Equal(t, "HEADLESS-1=2", app.summary())
	assert.Contains(t, buf.String(), "#")
	assert.Same(t, app, c.Data)
}
