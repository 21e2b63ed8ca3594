package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.Save(ctx, "a/b.txt", strings.NewReader("hello"), "text/plain"))
	assert.Equal(t, 1, s.Len())

	r, err := s.Open(ctx, "a/b.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, "a/b.txt"))
	_, err = s.Open(ctx, "a/b.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, 0, s.Len())
}
