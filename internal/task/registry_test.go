package task

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopCall(_ context.Context, _ []string, _ io.Writer) error { return nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("greet", func(_ context.Context, args []string, out io.Writer) error {
		_, err := io.WriteString(out, "hello "+args[0])
		return err
	})

	fn, err := r.Get("greet")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, fn(context.Background(), []string{"world"}, &buf))
	assert.Equal(t, "hello world", buf.String())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrCallNotFound)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestRegistry_RegisterPanics(t *testing.T) {
	r := NewRegistry()
	r.Register("dup", noopCall)

	assert.Panics(t, func() { r.Register("dup", noopCall) })
	assert.Panics(t, func() { r.Register("", noopCall) })
	assert.Panics(t, func() { r.Register("nilfn", nil) })
}

func TestRegistry_HasAndList(t *testing.T) {
	r := NewRegistry()
	r.Register("b", noopCall)
	r.Register("a", noopCall)

	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
	assert.Equal(t, []string{"a", "b"}, r.List())
}
