// Package render turns redraw requests into frames delivered to a sink.
package render

import "sync/atomic"

// Invalidator collects redraw requests. Any number of requests made before the
// next render are equivalent to one.
type Invalidator struct {
	ch      chan struct{}
	pending atomic.Bool
}

// NewInvalidator creates an Invalidator with nothing pending.
func NewInvalidator() *Invalidator {
	return &Invalidator{ch: make(chan struct{}, 1)}
}

// Request marks the surface dirty. Never blocks.
func (i *Invalidator) Request() {
	i.pending.Store(true)
	select {
	case i.ch <- struct{}{}:
	default:
	}
}

// Requested reports whether a redraw is pending.
func (i *Invalidator) Requested() bool {
	return i.pending.Load()
}

// take clears the pending flag and reports whether it was set.
func (i *Invalidator) take() bool {
	return i.pending.Swap(false)
}
