package backend_test

import (
	"testing"

	"github.com/bnema/waycomp/internal/backend"
	"github.com/bnema/waycomp/internal/backend/headless"
	"github.com/bnema/waycomp/internal/display"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiForwardsChildSignals(t *testing.T) {
	d, err := display.Create()
	require.NoError(t, err)
	defer d.Destroy()

	first := headless.New(d, headless.Options{})
	second := headless.New(d, headless.Options{})
	first.AddKeyboard("kbd-a")
	second.AddOutput("OUT-B")
	_, err = d.EventLoop().Dispatch(0)
	require.NoError(t, err)

	m := backend.NewMulti(first, second)
	assert.Equal(t, "multi(headless,headless)", m.Name())

	var got []string
	m.Events().InputAdd.Add(func(dev backend.InputDevice) { got = append(got, "+"+dev.Name()) })
	m.Events().InputRemove.Add(func(dev backend.InputDevice) { got = append(got, "-"+dev.Name()) })
	m.Events().OutputAdd.Add(func(o backend.Output) { got = append(got, "+"+o.Name()) })
	m.Events().OutputRemove.Add(func(o backend.Output) { got = append(got, "-"+o.Name()) })

	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Start(), backend.ErrAlreadyStarted)

	m.Destroy()
	assert.Equal(t, []string{"+kbd-a", "+OUT-B", "-OUT-B", "-kbd-a"}, got)
	assert.Empty(t, m.Children())
}

func TestMultiWithoutChildren(t *testing.T) {
	m := backend.NewMulti()
	assert.ErrorIs(t, m.Start(), backend.ErrNoBackend)
}

func TestPreferredMode(t *testing.T) {
	_, ok := backend.PreferredMode(nil)
	assert.False(t, ok)

	modes := []backend.Mode{
		{Width: 1280, Height: 720},
		{Width: 2560, Height: 1440, Preferred: true},
	}
	m, ok := backend.PreferredMode(modes)
	assert.True(t, ok)
	assert.Equal(t, int32(2560), m.Width)

	m, ok = backend.PreferredMode(modes[:1])
	assert.True(t, ok)
	assert.Equal(t, int32(1280), m.Width)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "1920x1080@60.000Hz", backend.Mode{Width: 1920, Height: 1080, Refresh: 60000}.String())
	assert.Equal(t, "800x600", backend.Mode{Width: 800, Height: 600}.String())
}

func TestModeFrameInterval(t *testing.T) {
	assert.Equal(t, int64(16666666), int64(backend.Mode{Refresh: 60000}.FrameInterval()))
	assert.Equal(t, backend.Mode{Refresh: 60000}.FrameInterval(), backend.Mode{}.FrameInterval())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "keyboard", backend.DeviceKeyboard.String())
	assert.Equal(t, "pointer", backend.DevicePointer.String())
	assert.Equal(t, "pressed", backend.KeyPressed.String())
	assert.Equal(t, "released", backend.KeyReleased.String())
}
