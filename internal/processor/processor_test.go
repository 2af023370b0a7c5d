package processor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roleplay-insights-go/internal/status"
	"roleplay-insights-go/internal/store"
	"roleplay-insights-go/internal/types"
)

type fakeRunner struct {
	mu      sync.Mutex
	release chan struct{}
	tracker *status.Tracker
	refs    []string
}

func (f *fakeRunner) Run(ctx context.Context, req types.AnalysisRequest, ref string, _ time.Duration) (types.AnalysisRecord, error) {
	f.mu.Lock()
	f.refs = append(f.refs, ref)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return types.AnalysisRecord{SessionID: req.SessionID}, f.tracker.Complete(ctx, req.SessionID, ref)
}

type noResults struct{}

func (noResults) Latest(context.Context, string) (types.AnalysisRecord, bool, error) {
	return types.AnalysisRecord{}, false, nil
}

func newTracker(t *testing.T) *status.Tracker {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "processor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return status.NewTracker(st, status.DefaultTTL, nil)
}

func TestStartRunsInBackground(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t)
	runner := &fakeRunner{release: make(chan struct{}), tracker: tracker}
	p := New(runner, tracker, noResults{}, time.Hour, nil)
	req := types.AnalysisRequest{SessionID: "s1", UserID: "u1", Language: "en"}

	res, err := p.Start(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.AlreadyRunning)
	assert.Equal(t, types.StateProcessing, res.Status)
	assert.NotEmpty(t, res.ExecutionRef)

	again, err := p.Start(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.AlreadyRunning)
	assert.Equal(t, res.ExecutionRef, again.ExecutionRef)

	st, err := p.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.StateProcessing, st.State)

	close(runner.release)
	p.Wait()

	st, err = p.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.StateCompleted, st.State)
	assert.Len(t, runner.refs, 1)

	third, err := p.Start(ctx, req)
	require.NoError(t, err)
	assert.False(t, third.AlreadyRunning)
	assert.NotEqual(t, res.ExecutionRef, third.ExecutionRef)
	p.Wait()
}

func TestStartValidatesRequest(t *testing.T) {
	tracker := newTracker(t)
	p := New(&fakeRunner{tracker: tracker}, tracker, noResults{}, time.Hour, nil)
	_, err := p.Start(context.Background(), types.AnalysisRequest{SessionID: "s1"})
	assert.Error(t, err)
}

func TestStatusSettlesAbandonedRun(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t)
	p := New(&fakeRunner{tracker: tracker}, tracker, noResults{}, time.Minute, nil)

	require.NoError(t, tracker.Begin(ctx, "s1", "lost-exec"))

	st, err := p.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.StateProcessing, st.State)

	p.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	st, err = p.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.StateTimeout, st.State)
	assert.Contains(t, st.ErrorMessage, "lost-exec")
}

func TestStatusNotStarted(t *testing.T) {
	tracker := newTracker(t)
	p := New(&fakeRunner{tracker: tracker}, tracker, noResults{}, time.Hour, nil)
	st, err := p.Status(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, types.StateNotStarted, st.State)
}
