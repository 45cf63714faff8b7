package signal

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/anggasct/fluo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficsignal/trafficsignal/pkg/core"
)

func TestToggle_StrictlyAlternates(t *testing.T) {
	s := New(core.AxisHorizontal, core.ColorGo)

	prev := s.Color()
	for i := 0; i < 10; i++ {
		next := s.Toggle()
		assert.NotEqual(t, prev, next, "toggle %d", i)
		assert.Equal(t, next, s.Color())
		prev = next
	}
	assert.Equal(t, core.ColorGo, s.Color())
}

func TestToggle_FromStop(t *testing.T) {
	s := New(core.AxisVertical, core.ColorStop)
	assert.Equal(t, core.ColorGo, s.Toggle())
	assert.Equal(t, core.ColorStop, s.Toggle())
}

func TestToggle_Concurrent(t *testing.T) {
	s := New(core.AxisVertical, core.ColorStop)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 125; j++ {
				s.Toggle()
				_ = s.State()
			}
		}()
	}
	wg.Wait()

	// 1000 toggles, even count
	assert.Equal(t, core.ColorStop, s.Color())
}

func TestState(t *testing.T) {
	s := New(core.AxisHorizontal, core.ColorGo)
	assert.Equal(t, core.SignalState{Axis: core.AxisHorizontal, Color: core.ColorGo}, s.State())
	assert.Equal(t, core.AxisHorizontal, s.Axis())
}

type transitionRecorder struct {
	fluo.BaseObserver
	seen []string
}

func (r *transitionRecorder) OnTransition(from, to string, _ fluo.Event, _ fluo.Context) {
	r.seen = append(r.seen, from+"->"+to)
}

func TestObserve_ReportsTransitions(t *testing.T) {
	s := New(core.AxisHorizontal, core.ColorStop)
	rec := &transitionRecorder{}
	s.Observe(rec)

	s.Toggle()
	s.Toggle()

	assert.Equal(t, []string{"stop->go", "go->stop"}, rec.seen)
}

func TestLogObserver_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := New(core.AxisVertical, core.ColorGo)
	s.Observe(NewLogObserver(logger, core.AxisVertical))
	require.Equal(t, core.ColorStop, s.Toggle())

	out := buf.String()
	assert.Contains(t, out, "Signal changed")
	assert.Contains(t, out, "axis=vertical")
	assert.Contains(t, out, "to=stop")
}

func TestNew_UnknownColorStartsGo(t *testing.T) {
	s := New(core.AxisHorizontal, core.Color(""))
	assert.Equal(t, core.ColorGo, s.Color())
	assert.Equal(t, core.ColorStop, s.Toggle())
}
