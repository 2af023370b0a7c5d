package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"roleplay-insights-go/internal/types"
)

// GetStatus returns ok=false when no unexpired status exists.
func (s *Store) GetStatus(ctx context.Context, sessionID string) (types.PipelineStatus, bool, error) {
	var (
		st      types.PipelineStatus
		state   string
		execRef sql.NullString
		errMsg  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, state, updated_at, execution_ref, error_message, expire_at
		FROM analysis_status
		WHERE session_id = ? AND (expire_at = 0 OR expire_at > ?)
	`, sessionID, s.now().Unix()).Scan(&st.SessionID, &state, &st.UpdatedAt, &execRef, &errMsg, &st.ExpireAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PipelineStatus{}, false, nil
	}
	if err != nil {
		return types.PipelineStatus{}, false, err
	}
	st.State = types.PipelineState(state)
	st.ExecutionRef = execRef.String
	st.ErrorMessage = errMsg.String
	return st, true, nil
}

// PutStatus replaces the session's status row and applies ttl.
func (s *Store) PutStatus(ctx context.Context, st types.PipelineStatus, ttl time.Duration) error {
	if st.UpdatedAt == "" {
		st.UpdatedAt = s.now().UTC().Format(CreatedAtLayout)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_status (session_id, state, updated_at, execution_ref, error_message, expire_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state=excluded.state, updated_at=excluded.updated_at,
			execution_ref=excluded.execution_ref, error_message=excluded.error_message,
			expire_at=excluded.expire_at
	`, st.SessionID, string(st.State), st.UpdatedAt, st.ExecutionRef, st.ErrorMessage, s.expiry(ttl))
	return err
}
