// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trafficsignal/trafficsignal/internal/render"
	"github.com/trafficsignal/trafficsignal/internal/storage"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

type nopBackend struct{ frames int }

func (b *nopBackend) Init() error                   { return nil }
func (b *nopBackend) Close() error                  { return nil }
func (b *nopBackend) StartRun(*core.Run) error      { return nil }
func (b *nopBackend) EndRun() error                 { return nil }
func (b *nopBackend) RecordFrame(*core.Frame) error { b.frames++; return nil }

func TestBackendIsRenderSink(t *testing.T) {
	var b storage.Backend = &nopBackend{}
	var sink render.Sink = b

	assert.NoError(t, sink.RecordFrame(&core.Frame{}))
	assert.Equal(t, 1, b.(*nopBackend).frames)
}
