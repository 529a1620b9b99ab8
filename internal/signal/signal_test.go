package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalEmitOrder(t *testing.T) {
	s := New[int]()
	var got []string

	s.Add(func(v int) { got = append(got, "first") })
	s.Add(func(v int) { got = append(got, "second") })
	s.Emit(1)

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestListenerRemove(t *testing.T) {
	s := New[string]()
	calls := 0
	l := s.Add(func(string) { calls++ })

	s.Emit("a")
	l.Remove()
	s.Emit("b")
	l.Remove()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Len())
	assert.False(t, l.Active())
}

func TestRemoveDuringEmit(t *testing.T) {
	s := New[int]()
	var second *Listener[int]
	secondCalls := 0

	s.Add(func(int) { second.Remove() })
	second = s.Add(func(int) { secondCalls++ })

	s.Emit(0)
	assert.Equal(t, 0, secondCalls, "listener removed mid-emit must not fire")
	assert.Equal(t, 1, s.Len())
}

func TestAddDuringEmit(t *testing.T) {
	s := New[int]()
	lateCalls := 0

	s.Add(func(int) {
		s.Add(func(int) { lateCalls++ })
	})

	s.Emit(0)
	assert.Equal(t, 0, lateCalls)

	s.Emit(0)
	assert.Equal(t, 1, lateCalls)
}

func TestNilListenerRemove(t *testing.T) {
	var l *Listener[int]
	assert.NotPanics(t, func() { l.Remove() })
	assert.False(t, l.Active())
}
