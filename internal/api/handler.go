// Package api exposes the analysis trigger, status polling and results
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/processor"
	"roleplay-insights-go/internal/types"
)

type Service interface {
	Start(ctx context.Context, req types.AnalysisRequest) (processor.StartResult, error)
	Status(ctx context.Context, sessionID string) (types.PipelineStatus, error)
	Results(ctx context.Context, sessionID string) (types.AnalysisRecord, bool, error)
}

// SessionChecker confirms the caller owns the session before a run starts.
type SessionChecker interface {
	GetSession(ctx context.Context, sessionID, userID string) (types.Session, error)
}

type analyzeBody struct {
	Language string `json:"language"`
}

type errorBody struct {
	Error string `json:"error"`
}

func NewHandler(svc Service, sessions SessionChecker, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		log.WithRequest(r).Debug("health check")
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("POST /sessions/{sessionId}/analyze", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "analyze")
		sessionID := r.PathValue("sessionId")
		userID, ok := authorize(w, r, reqLog, sessions, sessionID)
		if !ok {
			return
		}

		var body analyzeBody
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSON(w, reqLog, http.StatusBadRequest, errorBody{"invalid request body"})
				return
			}
		}

		res, err := svc.Start(r.Context(), types.AnalysisRequest{SessionID: sessionID, UserID: userID, Language: body.Language})
		if err != nil {
			reqLog.WithError(err).Error("start analysis failed")
			writeJSON(w, reqLog, http.StatusInternalServerError, errorBody{"could not start analysis"})
			return
		}
		code := http.StatusAccepted
		if res.AlreadyRunning {
			code = http.StatusOK
		}
		writeJSON(w, reqLog, code, res)
	})

	mux.HandleFunc("GET /sessions/{sessionId}/analysis-status", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "analysis-status")
		sessionID := r.PathValue("sessionId")
		if _, ok := authorize(w, r, reqLog, sessions, sessionID); !ok {
			return
		}
		st, err := svc.Status(r.Context(), sessionID)
		if err != nil {
			reqLog.WithError(err).Error("status lookup failed")
			writeJSON(w, reqLog, http.StatusInternalServerError, errorBody{"status lookup failed"})
			return
		}
		writeJSON(w, reqLog, http.StatusOK, st)
	})

	mux.HandleFunc("GET /sessions/{sessionId}/analysis-results", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "analysis-results")
		sessionID := r.PathValue("sessionId")
		if _, ok := authorize(w, r, reqLog, sessions, sessionID); !ok {
			return
		}
		rec, ok, err := svc.Results(r.Context(), sessionID)
		if err != nil {
			reqLog.WithError(err).Error("results lookup failed")
			writeJSON(w, reqLog, http.StatusInternalServerError, errorBody{"results lookup failed"})
			return
		}
		if !ok {
			writeJSON(w, reqLog, http.StatusNotFound, errorBody{"no analysis results"})
			return
		}
		writeJSON(w, reqLog, http.StatusOK, rec)
	})

	return mux
}

// authorize requires X-User-ID and checks that the user owns the session.
// It writes the error response itself when the check fails.
func authorize(w http.ResponseWriter, r *http.Request, reqLog *logrus.Entry, sessions SessionChecker, sessionID string) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, reqLog, http.StatusUnauthorized, errorBody{"missing X-User-ID"})
		return "", false
	}
	if _, err := sessions.GetSession(r.Context(), sessionID, userID); err != nil {
		if errors.Is(err, types.ErrSessionNotFound) {
			writeJSON(w, reqLog, http.StatusNotFound, errorBody{"session not found"})
			return "", false
		}
		reqLog.WithError(err).Error("session lookup failed")
		writeJSON(w, reqLog, http.StatusInternalServerError, errorBody{"session lookup failed"})
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, reqLog *logrus.Entry, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		reqLog.WithError(err).Error("failed to write response")
	}
}

// Server returns an http.Server with the timeouts used in production.
func Server(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
