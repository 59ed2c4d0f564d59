package storage

import (
	"database/sql"
	"time"
)

// Message represents a conversation message persisted for a session,
// grounding the Conversation History Manager's save/load contract.
type Message struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"sessionId"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	ContentJSON string    `json:"contentJson,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Reasoning   string    `json:"reasoning,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Tokens      int       `json:"tokens"`
	IsSummary   bool      `json:"isSummary"`
	IsTruncated bool      `json:"isTruncated"`
}

// SaveMessage appends a message to a session's history.
func (s *Store) SaveMessage(msg *Message) error {
	stmt, err := s.getStmt(`INSERT INTO messages
		(session_id, role, content, content_json, content_type, reasoning, timestamp, tokens, is_summary, is_truncated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := stmt.Exec(msg.SessionID, msg.Role, msg.Content, msg.ContentJSON, msg.ContentType,
		msg.Reasoning, ts, msg.Tokens, boolToInt(msg.IsSummary), boolToInt(msg.IsTruncated))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err == nil {
		msg.ID = id
	}
	return nil
}

// GetAllMessages returns every message for a session, oldest first.
func (s *Store) GetAllMessages(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(`SELECT id, session_id, role, content, content_json, content_type,
		reasoning, timestamp, tokens, is_summary, is_truncated
		FROM messages WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var contentJSON, contentType, reasoning sql.NullString
		var isSummary, isTruncated int
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &contentJSON, &contentType,
			&reasoning, &m.Timestamp, &m.Tokens, &isSummary, &isTruncated); err != nil {
			return nil, err
		}
		m.ContentJSON = contentJSON.String
		m.ContentType = contentType.String
		m.Reasoning = reasoning.String
		m.IsSummary = isSummary != 0
		m.IsTruncated = isTruncated != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReplaceMessages atomically replaces every stored message for a session,
// used after compaction or a full conversation save.
func (s *Store) ReplaceMessages(sessionID string, messages []Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	for i := range messages {
		m := messages[i]
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := tx.Exec(`INSERT INTO messages
			(session_id, role, content, content_json, content_type, reasoning, timestamp, tokens, is_summary, is_truncated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, m.Role, m.Content, m.ContentJSON, m.ContentType, m.Reasoning, ts, m.Tokens,
			boolToInt(m.IsSummary), boolToInt(m.IsTruncated)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
