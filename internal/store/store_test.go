package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roleplay-insights-go/internal/types"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLookup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, types.Session{SessionID: "s1", UserID: "u1", ScenarioID: "sc1", Language: "ja"}))

	got, err := s.GetSession(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "sc1", got.ScenarioID)
	assert.Equal(t, "ja", got.Language)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.GetSession(ctx, "s1", "someone-else")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)

	_, err = s.GetSession(ctx, "missing", "u1")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestMessagesOrdered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessage(ctx, "s1", types.ConversationMessage{Sender: types.SenderNPC, Content: "b", Timestamp: "2026-01-01T00:00:02.000Z"}))
	require.NoError(t, s.AppendMessage(ctx, "s1", types.ConversationMessage{Sender: types.SenderUser, Content: "a", Timestamp: "2026-01-01T00:00:01.000Z"}))
	require.NoError(t, s.AppendMessage(ctx, "s2", types.ConversationMessage{Sender: types.SenderUser, Content: "other", Timestamp: "2026-01-01T00:00:00.000Z"}))

	msgs, err := s.ListMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Content)
	assert.Equal(t, types.SenderUser, msgs[0].Sender)
}

func TestAppendRecordTimestampsStrictlyIncrease(t *testing.T) {
	s := createTestStore(t)
	fixed := time.Date(2026, 2, 10, 6, 49, 7, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	var keys []string
	for i := 0; i < 5; i++ {
		rec, err := s.AppendRecord(ctx, "s1", types.DataTypeFinalFeedback, map[string]int{"n": i}, time.Hour)
		require.NoError(t, err)
		keys = append(keys, rec.CreatedAt)
	}
	assert.True(t, sort.StringsAreSorted(keys))
	for i := 1; i < len(keys); i++ {
		assert.NotEqual(t, keys[i-1], keys[i])
	}

	recs, err := s.ListRecords(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, recs, 5)
}

func TestAppendRecordStampsPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := &types.AnalysisRecord{SessionID: "s1", DataType: types.DataTypeFinalFeedback}
	stored, err := s.AppendRecord(ctx, "s1", rec.DataType, rec, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, stored.CreatedAt, rec.CreatedAt)
	assert.NotZero(t, rec.ExpireAt)

	var decoded types.AnalysisRecord
	require.NoError(t, json.Unmarshal(stored.Payload, &decoded))
	assert.Equal(t, stored.CreatedAt, decoded.CreatedAt)
}

func TestPutRecordNeverOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := Record{SessionID: "s1", CreatedAt: "2026-02-10T06:49:07.346Z-feedback", DataType: types.DataTypeFinalFeedback, Payload: json.RawMessage(`{}`)}

	require.NoError(t, s.PutRecord(ctx, r))
	assert.Error(t, s.PutRecord(ctx, r))
}

func TestMetricsRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMetrics(ctx, "s1", types.MetricSnapshot{AngerLevel: 3, TrustLevel: 7, ProgressLevel: 6, MessageNumber: 2}, time.Hour))
	_, err := s.AppendRecord(ctx, "s1", types.DataTypeFinalFeedback, map[string]string{}, time.Hour)
	require.NoError(t, err)

	metrics, err := s.ListMetrics(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, 7, metrics[0].TrustLevel)
	assert.NotEmpty(t, metrics[0].CreatedAt)
}

func TestExpiry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	_, err := s.AppendRecord(ctx, "s1", types.DataTypeFinalFeedback, map[string]string{}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.PutStatus(ctx, types.PipelineStatus{SessionID: "s1", State: types.StateProcessing}, time.Hour))

	s.now = func() time.Time { return base.Add(2 * time.Hour) }

	recs, err := s.ListRecords(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, ok, err := s.GetStatus(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStatusUpsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetStatus(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutStatus(ctx, types.PipelineStatus{SessionID: "s1", State: types.StateProcessing, ExecutionRef: "e1"}, time.Hour))
	require.NoError(t, s.PutStatus(ctx, types.PipelineStatus{SessionID: "s1", State: types.StateFailed, ExecutionRef: "e1", ErrorMessage: "session not found"}, time.Hour))

	st, ok, err := s.GetStatus(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.StateFailed, st.State)
	assert.Equal(t, "session not found", st.ErrorMessage)
	assert.Equal(t, "e1", st.ExecutionRef)
	assert.NotEmpty(t, st.UpdatedAt)
}

func TestListSessionIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.AppendRecord(ctx, "b", types.DataTypeFinalFeedback, &types.AnalysisRecord{SessionID: "b"}, time.Hour)
	require.NoError(t, err)
	_, err = s.AppendRecord(ctx, "a", types.DataTypeFinalFeedback, &types.AnalysisRecord{SessionID: "a"}, 0)
	require.NoError(t, err)
	_, err = s.AppendRecord(ctx, "a", types.DataTypeFinalFeedback, &types.AnalysisRecord{SessionID: "a"}, 0)
	require.NoError(t, err)
	require.NoError(t, s.AppendMetrics(ctx, "c", types.MetricSnapshot{MessageNumber: 1}, 0))

	ids, err := s.ListSessionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
