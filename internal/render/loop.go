package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// Sink receives rendered frames. Storage backends implement it.
type Sink interface {
	RecordFrame(f *core.Frame) error
}

// Source produces the current simulation state.
type Source func() core.Frame

// Loop renders a frame each time the Invalidator has a pending request.
type Loop struct {
	inv    *Invalidator
	source Source
	sink   Sink
	logger *slog.Logger

	rendered metric.Int64Counter
	failed   metric.Int64Counter

	seq      atomic.Uint64
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a render loop. It does nothing until Start.
func NewLoop(inv *Invalidator, source Source, sink Sink, logger *slog.Logger) (*Loop, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		inv:    inv,
		source: source,
		sink:   sink,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	m := meter()
	var err error

	l.rendered, err = m.Int64Counter(
		"render.frames.rendered",
		metric.WithDescription("Frames delivered to the sink"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rendered counter: %w", err)
	}

	l.failed, err = m.Int64Counter(
		"render.frames.failed",
		metric.WithDescription("Frames the sink rejected"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return l, nil
}

// Start runs the loop on its own goroutine.
func (l *Loop) Start() {
	go l.run()
}

// Stop renders any pending request one last time and waits for the loop to exit.
// Stop must only be called after Start.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

// Frames returns how many frames have been rendered.
func (l *Loop) Frames() uint64 {
	return l.seq.Load()
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			if l.inv.take() {
				l.render()
			}
			return
		case <-l.inv.ch:
			if l.inv.take() {
				l.render()
			}
		}
	}
}

func (l *Loop) render() {
	frame := l.source()
	frame.Seq = l.seq.Add(1)
	frame.Time = time.Now()

	if err := l.sink.RecordFrame(&frame); err != nil {
		l.failed.Add(context.Background(), 1)
		l.logger.Warn("Failed to record frame", "seq", frame.Seq, "error", err)
		return
	}
	l.rendered.Add(context.Background(), 1)
}
