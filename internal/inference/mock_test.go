package inference

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockFeedbackIsValidJSON(t *testing.T) {
	out, err := NewMock().GenerateJSON(context.Background(), JSONRequest{SchemaName: "feedback"})
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Contains(t, v, "scores")
}

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMock()
	a, err := m.Embed(context.Background(), []string{"pricing plan", "pricing plan"})
	require.NoError(t, err)
	assert.Equal(t, a[0], a[1])
	assert.Len(t, a[0], mockDims)

	empty, _ := m.Embed(context.Background(), []string{"  "})
	for _, v := range empty[0] {
		assert.Zero(t, v)
	}
}
