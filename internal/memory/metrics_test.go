package memory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roleplay-insights-go/internal/types"
)

func TestDecodeMetrics(t *testing.T) {
	events := []json.RawMessage{
		raw(`{"eventTimestamp":"2026-01-01T00:00:05Z","payload":[{"blob":{"data":"{\"type\":\"METRICS_UPDATE\",\"angerLevel\":2,\"trustLevel\":7,\"progressLevel\":6,\"messageNumber\":4,\"goalStatuses\":[{\"goalId\":\"g1\",\"progress\":100,\"achieved\":true,\"achievedAt\":1767225600000}]}"}}]}`),
		raw(`{"eventTimestamp":"2026-01-01T00:00:01Z","payload":[{"blob":{"data":{"type":"METRICS_UPDATE","metrics":{"angerLevel":4,"messageNumber":2}}}}]}`),
		conversationalEvent("2026-01-01T00:00:03Z", "USER", "not a metric"),
	}

	got := DecodeMetrics(events)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].AngerLevel)
	assert.Equal(t, 5, got[0].TrustLevel, "missing levels use defaults")
	assert.Equal(t, 7, got[1].TrustLevel)
	require.Len(t, got[1].GoalStatuses, 1)
	assert.True(t, got[1].GoalStatuses[0].Achieved)
}

func TestDecodeMetricsSanitisesValues(t *testing.T) {
	events := []json.RawMessage{
		raw(`{"eventTimestamp":"2026-01-01T00:00:05Z","payload":[{"blob":{"data":{"type":"METRICS_UPDATE","angerLevel":15,"trustLevel":0,"progressLevel":-3,` +
			`"goalStatuses":[{"goalId":"g1","progress":100},{"goalId":"g2","progress":"half"}]}}}]}`),
	}

	got := DecodeMetrics(events)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].AngerLevel)
	assert.Equal(t, 1, got[0].TrustLevel)
	assert.Equal(t, 1, got[0].ProgressLevel)
	assert.Empty(t, got[0].GoalStatuses, "partially decoded goal statuses are dropped")
}

func TestLatestMetrics(t *testing.T) {
	_, ok := LatestMetrics(nil)
	assert.False(t, ok)

	history := []types.MetricSnapshot{
		{AngerLevel: 1, MessageNumber: 3, CreatedAt: "2026-01-01T00:00:09.000Z"},
		{AngerLevel: 2, MessageNumber: 5, CreatedAt: "2026-01-01T00:00:01.000Z"},
		{AngerLevel: 3, MessageNumber: 5, CreatedAt: "2026-01-01T00:00:02.000Z"},
	}
	best, ok := LatestMetrics(history)
	require.True(t, ok)
	assert.Equal(t, 3, best.AngerLevel)

	noNumbers := []types.MetricSnapshot{
		{AngerLevel: 7, CreatedAt: "2026-01-01T00:00:09.000Z"},
		{AngerLevel: 8, CreatedAt: "2026-01-01T00:00:01.000Z"},
	}
	best, _ = LatestMetrics(noNumbers)
	assert.Equal(t, 7, best.AngerLevel)
}
