package attach

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := NewKey(7, "Invoice.PDF")
	assert.True(t, strings.HasPrefix(key, "assets/7/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	require.NoError(t, s.Put(ctx, key, strings.NewReader("hello"), 5, "application/pdf"))

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting twice is fine")

	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside", "/etc/passwd", "..", "."} {
		err := s.Put(context.Background(), key, strings.NewReader("x"), 1, "")
		assert.Error(t, err, key)
	}
}

func TestNewKeyIsUnique(t *testing.T) {
	assert.NotEqual(t, NewKey(1, "a.png"), NewKey(1, "a.png"))
}
