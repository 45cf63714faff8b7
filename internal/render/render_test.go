package render

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficsignal/trafficsignal/pkg/core"
)

type recordingSink struct {
	mu     sync.Mutex
	frames []core.Frame
	err    error
}

func (s *recordingSink) RecordFrame(f *core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, *f)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func source() core.Frame {
	return core.Frame{
		Vehicles: []core.VehicleState{{ID: 1, Axis: core.AxisHorizontal, Position: 800}},
		Signals:  []core.SignalState{{Axis: core.AxisHorizontal, Color: core.ColorGo}},
	}
}

func TestInvalidator_Coalesces(t *testing.T) {
	inv := NewInvalidator()
	assert.False(t, inv.Requested())

	for i := 0; i < 10; i++ {
		inv.Request()
	}
	assert.True(t, inv.Requested())
	assert.True(t, inv.take())
	assert.False(t, inv.take())
	assert.False(t, inv.Requested())
}

func TestLoop_CoalescedRequestsRenderOnce(t *testing.T) {
	inv := NewInvalidator()
	sink := &recordingSink{}
	l, err := NewLoop(inv, source, sink, nil)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		inv.Request()
	}
	l.Start()
	l.Stop()

	assert.Equal(t, 1, sink.count())
	assert.Equal(t, uint64(1), l.Frames())
}

func TestLoop_RendersEachRequest(t *testing.T) {
	inv := NewInvalidator()
	sink := &recordingSink{}
	l, err := NewLoop(inv, source, sink, nil)
	require.NoError(t, err)
	l.Start()

	for i := 1; i <= 3; i++ {
		inv.Request()
		want := i
		assert.Eventually(t, func() bool { return sink.count() == want }, time.Second, time.Millisecond)
	}
	l.Stop()
	l.Stop()

	require.Equal(t, 3, sink.count())
	for i, f := range sink.frames {
		assert.Equal(t, uint64(i+1), f.Seq)
		assert.False(t, f.Time.IsZero())
		assert.Equal(t, 800, f.Vehicles[0].Position)
	}
}

func TestLoop_StopFlushesPending(t *testing.T) {
	inv := NewInvalidator()
	sink := &recordingSink{}
	l, err := NewLoop(inv, source, sink, nil)
	require.NoError(t, err)
	l.Start()
	l.Stop()
	assert.Equal(t, 0, sink.count())

	inv2 := NewInvalidator()
	l2, err := NewLoop(inv2, source, sink, nil)
	require.NoError(t, err)
	inv2.Request()
	l2.Start()
	l2.Stop()
	assert.Equal(t, 1, sink.count())
}

func TestLoop_SinkErrorIsNotFatal(t *testing.T) {
	inv := NewInvalidator()
	sink := &recordingSink{err: errors.New("disk full")}
	l, err := NewLoop(inv, source, sink, nil)
	require.NoError(t, err)
	l.Start()

	inv.Request()
	assert.Eventually(t, func() bool { return l.Frames() == 1 }, time.Second, time.Millisecond)

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	inv.Request()
	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, time.Millisecond)
	l.Stop()
}
