package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bancoq/bancoq/internal/model"
)

// SetPendingQuestion stores the session's pending question candidate,
// replacing any previous one wholesale.
func (s *Store) SetPendingQuestion(sessionID string, pq *model.PendingQuestion) error {
	data, err := json.Marshal(pq)
	if err != nil {
		return fmt.Errorf("marshal pending question: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO chat_state (session_id, pending, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET pending = excluded.pending, updated_at = excluded.updated_at`,
		sessionID, string(data), time.Now(),
	)
	return err
}

// GetPendingQuestion returns the session's pending question, or nil when
// none is held.
func (s *Store) GetPendingQuestion(sessionID string) (*model.PendingQuestion, error) {
	var raw string
	err := s.db.QueryRow(`SELECT pending FROM chat_state WHERE session_id = ?`, sessionID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pq model.PendingQuestion
	if err := json.Unmarshal([]byte(raw), &pq); err != nil {
		return nil, fmt.Errorf("unmarshal pending question: %w", err)
	}
	return &pq, nil
}

// ClearPendingQuestion deletes the session's pending question, if any.
func (s *Store) ClearPendingQuestion(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM chat_state WHERE session_id = ?`, sessionID)
	return err
}
