package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()

	id1, err := p.Publish(context.Background(), "lead.created", map[string]string{"id": "id-1"})
	require.NoError(t, err)
	id2, err := p.Publish(context.Background(), "lead.sent", map[string]string{"id": "id-1"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "lead.created", msgs[0].Event)
	assert.Equal(t, "lead.sent", msgs[1].Event)
}
