package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutObjectRecordsCopy(t *testing.T) {
	t.Parallel()

	store := New()
	payload := []byte("<html></html>")

	uri, err := store.PutObject(context.Background(), "snapshots/x.co.jp/cafe.html", "text/html", payload)
	require.NoError(t, err)
	assert.Equal(t, "memory://snapshots/x.co.jp/cafe.html", uri)

	// Mutating the caller's slice must not change the stored object.
	payload[0] = 'X'

	data, ok := store.Object("snapshots/x.co.jp/cafe.html")
	require.True(t, ok)
	assert.Equal(t, "<html></html>", string(data))

	_, ok = store.Object("snapshots/missing.html")
	assert.False(t, ok)
}
