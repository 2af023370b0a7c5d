package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roleplay-insights-go/internal/types"
)

func (s *Store) SaveSession(ctx context.Context, sess types.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, scenario_id, language, title, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id=excluded.user_id, scenario_id=excluded.scenario_id,
			language=excluded.language, title=excluded.title
	`, sess.SessionID, sess.UserID, sess.ScenarioID, sess.Language, sess.Title, sess.CreatedAt.UTC())
	return err
}

// GetSession returns types.ErrSessionNotFound unless the session exists and
// belongs to userID.
func (s *Store) GetSession(ctx context.Context, sessionID, userID string) (types.Session, error) {
	var (
		sess      types.Session
		scenario  sql.NullString
		language  sql.NullString
		title     sql.NullString
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, scenario_id, language, title, created_at
		FROM sessions WHERE session_id = ? AND user_id = ?
	`, sessionID, userID).Scan(&sess.SessionID, &sess.UserID, &scenario, &language, &title, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Session{}, fmt.Errorf("session %s: %w", sessionID, types.ErrSessionNotFound)
	}
	if err != nil {
		return types.Session{}, err
	}
	sess.ScenarioID = scenario.String
	sess.Language = language.String
	sess.Title = title.String
	sess.CreatedAt = createdAt
	return sess, nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionID string, m types.ConversationMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, sender, content, timestamp) VALUES (?, ?, ?, ?)
	`, sessionID, string(m.Sender), m.Content, m.Timestamp)
	return err
}

// ListMessages returns stored turns ordered by timestamp, ties by insertion.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]types.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sender, content, timestamp FROM messages
		WHERE session_id = ? ORDER BY timestamp ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ConversationMessage
	for rows.Next() {
		var m types.ConversationMessage
		var sender string
		if err := rows.Scan(&sender, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Sender = types.Sender(sender)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListSessionIDs returns every session that has at least one final
// analysis record, in id order.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT session_id FROM session_feedback
		WHERE data_type = ? AND (expire_at = 0 OR expire_at > ?)
		ORDER BY session_id
	`, types.DataTypeFinalFeedback, s.now().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
