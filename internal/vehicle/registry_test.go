package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddGet(t *testing.T) {
	r := NewRegistry()
	b := testBounds()
	h, v := horizontalAt(b, 800), verticalAt(b, 600)

	assert.Equal(t, 0, r.Add(h))
	assert.Equal(t, 1, r.Add(v))
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(1)
	require.True(t, ok)
	assert.Same(t, v, got)

	_, ok = r.Get(2)
	assert.False(t, ok)
	_, ok = r.Get(-1)
	assert.False(t, ok)

	assert.Equal(t, []*Vehicle{h, v}, r.All())
}

func TestRegistry_Link(t *testing.T) {
	r := NewRegistry()
	b := testBounds()
	a := r.Add(horizontalAt(b, 800))
	c := r.Add(verticalAt(b, 600))

	require.NoError(t, r.Link(a, c))
	assert.Error(t, r.Link(a, a))
	assert.Error(t, r.Link(a, 5))
	assert.Error(t, r.Link(7, a))

	h, _ := r.Get(a)
	v, _ := r.Get(c)
	assert.Equal(t, []int{c}, h.cross)
	assert.Equal(t, []int{a}, v.cross)
}
