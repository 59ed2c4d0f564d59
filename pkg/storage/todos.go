package storage

import (
	"database/sql"
	"time"
)

// Todo is one step in a session's task plan, tracked by the planning
// coordinator's TODO tool.
type Todo struct {
	ID           int64      `json:"id"`
	SessionID    string     `json:"sessionId"`
	Content      string     `json:"content"`
	ActiveForm   string     `json:"activeForm"`
	Status       string     `json:"status"`
	OrderIndex   int        `json:"orderIndex"`
	ParentID     *int64     `json:"parentId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Metadata     string     `json:"metadata,omitempty"`
}

// TodoCheckpoint is a point-in-time snapshot of a session's TODO list,
// used to recover plan state across compaction boundaries.
type TodoCheckpoint struct {
	ID                  int64     `json:"id"`
	SessionID           string    `json:"sessionId"`
	CheckpointType      string    `json:"checkpointType"`
	TodoCount           int       `json:"todoCount"`
	CompletedCount      int       `json:"completedCount"`
	ConversationSummary string    `json:"conversationSummary"`
	ConversationTokens  int       `json:"conversationTokens"`
	CreatedAt           time.Time `json:"createdAt"`
	Metadata            string    `json:"metadata"`
}

// CreateTodo inserts a new TODO item, assigning its ID.
func (s *Store) CreateTodo(todo *Todo) error {
	query := `
		INSERT INTO todos (session_id, content, active_form, status, order_index, parent_id, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query,
		todo.SessionID,
		todo.Content,
		todo.ActiveForm,
		todo.Status,
		todo.OrderIndex,
		todo.ParentID,
		todo.CreatedAt,
		todo.UpdatedAt,
		todo.Metadata,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	todo.ID = id
	return nil
}

// UpdateTodoStatus transitions a TODO's status, stamping completed_at when it
// finishes (successfully or not).
func (s *Store) UpdateTodoStatus(id int64, status string, errorMessage string) error {
	now := time.Now()
	var completedAt *time.Time
	if status == "completed" || status == "failed" {
		completedAt = &now
	}
	_, err := s.db.Exec(`
		UPDATE todos
		SET status = ?, updated_at = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, status, now, errorMessage, completedAt, id)
	return err
}

// GetTodos returns all TODOs for a session, ordered for display.
func (s *Store) GetTodos(sessionID string) ([]Todo, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, content, active_form, status, order_index, parent_id,
		       created_at, updated_at, completed_at, COALESCE(error_message, ''), COALESCE(metadata, '')
		FROM todos
		WHERE session_id = ?
		ORDER BY order_index ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]Todo, 0)
	for rows.Next() {
		var todo Todo
		if err := rows.Scan(
			&todo.ID, &todo.SessionID, &todo.Content, &todo.ActiveForm, &todo.Status,
			&todo.OrderIndex, &todo.ParentID, &todo.CreatedAt, &todo.UpdatedAt,
			&todo.CompletedAt, &todo.ErrorMessage, &todo.Metadata,
		); err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// GetActiveTodo returns the currently in_progress TODO for a session, or nil
// if none is active.
func (s *Store) GetActiveTodo(sessionID string) (*Todo, error) {
	var todo Todo
	err := s.db.QueryRow(`
		SELECT id, session_id, content, active_form, status, order_index, parent_id,
		       created_at, updated_at, completed_at, COALESCE(error_message, ''), COALESCE(metadata, '')
		FROM todos
		WHERE session_id = ? AND status = 'in_progress'
		ORDER BY order_index ASC
		LIMIT 1
	`, sessionID).Scan(
		&todo.ID, &todo.SessionID, &todo.Content, &todo.ActiveForm, &todo.Status,
		&todo.OrderIndex, &todo.ParentID, &todo.CreatedAt, &todo.UpdatedAt,
		&todo.CompletedAt, &todo.ErrorMessage, &todo.Metadata,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodos removes every TODO for a session, e.g. when a plan is
// abandoned or restarted.
func (s *Store) DeleteTodos(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM todos WHERE session_id = ?`, sessionID)
	return err
}

// CreateCheckpoint records a snapshot of a session's TODO progress.
func (s *Store) CreateCheckpoint(checkpoint *TodoCheckpoint) error {
	result, err := s.db.Exec(`
		INSERT INTO todo_checkpoints (session_id, checkpoint_type, todo_count, completed_count,
		                              conversation_summary, conversation_tokens, created_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		checkpoint.SessionID,
		checkpoint.CheckpointType,
		checkpoint.TodoCount,
		checkpoint.CompletedCount,
		checkpoint.ConversationSummary,
		checkpoint.ConversationTokens,
		checkpoint.CreatedAt,
		checkpoint.Metadata,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	checkpoint.ID = id
	return nil
}

// GetLatestCheckpoint returns the most recent TODO checkpoint for a session,
// or nil if none exists.
func (s *Store) GetLatestCheckpoint(sessionID string) (*TodoCheckpoint, error) {
	var checkpoint TodoCheckpoint
	err := s.db.QueryRow(`
		SELECT id, session_id, checkpoint_type, todo_count, completed_count,
		       COALESCE(conversation_summary, ''), conversation_tokens, created_at, COALESCE(metadata, '')
		FROM todo_checkpoints
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionID).Scan(
		&checkpoint.ID, &checkpoint.SessionID, &checkpoint.CheckpointType,
		&checkpoint.TodoCount, &checkpoint.CompletedCount, &checkpoint.ConversationSummary,
		&checkpoint.ConversationTokens, &checkpoint.CreatedAt, &checkpoint.Metadata,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

// TodoSummary holds aggregate TODO counts for a session.
type TodoSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
}

// GetTodoSummary aggregates TODO counts for a session, used by the TODO tool
// to report plan progress without returning every item.
func (s *Store) GetTodoSummary(sessionID string) (*TodoSummary, error) {
	var summary TodoSummary
	err := s.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) as completed,
			COALESCE(SUM(CASE WHEN status = 'pending' OR status = 'in_progress' THEN 1 ELSE 0 END), 0) as pending,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed
		FROM todos
		WHERE session_id = ?
	`, sessionID).Scan(&summary.Total, &summary.Completed, &summary.Pending, &summary.Failed)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
