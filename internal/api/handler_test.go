package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roleplay-insights-go/internal/processor"
	"roleplay-insights-go/internal/types"
)

type fakeService struct {
	started  []types.AnalysisRequest
	running  bool
	status   types.PipelineStatus
	record   *types.AnalysisRecord
	startErr error
}

func (f *fakeService) Start(_ context.Context, req types.AnalysisRequest) (processor.StartResult, error) {
	if f.startErr != nil {
		return processor.StartResult{}, f.startErr
	}
	f.started = append(f.started, req)
	return processor.StartResult{SessionID: req.SessionID, ExecutionRef: "exec-1", Status: types.StateProcessing, AlreadyRunning: f.running}, nil
}

func (f *fakeService) Status(_ context.Context, sessionID string) (types.PipelineStatus, error) {
	st := f.status
	st.SessionID = sessionID
	return st, nil
}

func (f *fakeService) Results(context.Context, string) (types.AnalysisRecord, bool, error) {
	if f.record == nil {
		return types.AnalysisRecord{}, false, nil
	}
	return *f.record, true, nil
}

type sessions map[string]string

func (s sessions) GetSession(_ context.Context, sessionID, userID string) (types.Session, error) {
	if s[sessionID] != userID {
		return types.Session{}, types.ErrSessionNotFound
	}
	return types.Session{SessionID: sessionID, UserID: userID}, nil
}

func do(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, sessions{"s1": "u1"}, nil)

	rec := do(t, h, http.MethodPost, "/sessions/s1/analyze", "u1", `{"language":"en"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var res processor.StartResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "exec-1", res.ExecutionRef)
	assert.Equal(t, []types.AnalysisRequest{{SessionID: "s1", UserID: "u1", Language: "en"}}, svc.started)

	svc.running = true
	rec = do(t, h, http.MethodPost, "/sessions/s1/analyze", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alreadyRunning": true`)
}

func TestAnalyzeRejects(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, sessions{"s1": "u1"}, nil)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/sessions/s1/analyze", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/sessions/s1/analyze", "intruder", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/sessions/s1/analyze", "u1", "{").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/sessions/s1/analyze", "u1", "").Code)
	assert.Empty(t, svc.started)

	svc.startErr = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodPost, "/sessions/s1/analyze", "u1", "").Code)
}

func TestStatusAndResults(t *testing.T) {
	svc := &fakeService{status: types.PipelineStatus{State: types.StateCompleted}}
	h := NewHandler(svc, sessions{"s9": "u1"}, nil)

	rec := do(t, h, http.MethodGet, "/sessions/s9/analysis-status", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st types.PipelineStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "s9", st.SessionID)
	assert.Equal(t, types.StateCompleted, st.State)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/sessions/s9/analysis-results", "u1", "").Code)

	svc.record = &types.AnalysisRecord{SessionID: "s9", OverallScore: 81}
	rec = do(t, h, http.MethodGet, "/sessions/s9/analysis-results", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"overallScore": 81`)

	assert.Equal(t, "ok", do(t, h, http.MethodGet, "/healthz", "", "").Body.String())
}

func TestStatusAndResultsRequireOwner(t *testing.T) {
	svc := &fakeService{
		status: types.PipelineStatus{State: types.StateCompleted},
		record: &types.AnalysisRecord{SessionID: "s9", OverallScore: 81},
	}
	h := NewHandler(svc, sessions{"s9": "u1"}, nil)

	for _, path := range []string{"/sessions/s9/analysis-status", "/sessions/s9/analysis-results"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, path, "", "").Code)

			rec := do(t, h, http.MethodGet, path, "intruder", "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.NotContains(t, rec.Body.String(), "overallScore")
		})
	}
}
