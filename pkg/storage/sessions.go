package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Session status constants.
const (
	SessionStatusActive    = "active"
	SessionStatusPaused    = "paused"
	SessionStatusCompleted = "completed"
)

// ErrSessionNotFound indicates no session row exists for the given id.
var ErrSessionNotFound = errors.New("storage: session not found")

// Session represents a conversation session persisted in SQLite, grounding
// ConversationState ownership in durable storage.
type Session struct {
	ID           string     `json:"id"`
	Principal    string     `json:"principal,omitempty"`
	ProjectPath  string     `json:"projectPath,omitempty"`
	GitRepo      string     `json:"gitRepo,omitempty"`
	GitBranch    string     `json:"gitBranch,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActive   time.Time  `json:"lastActive"`
	MessageCount int        `json:"messageCount"`
	TotalTokens  int        `json:"totalTokens"`
	TotalCost    float64    `json:"totalCost"`
	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	PlanID       string     `json:"planId,omitempty"`

	PauseReason   string     `json:"pauseReason,omitempty"`
	PauseQuestion string     `json:"pauseQuestion,omitempty"`
	PausedAt      *time.Time `json:"pausedAt,omitempty"`

	// ModelColour is the conversation's current model colour selection,
	// restored on load so a resumed session keeps talking to the same
	// logical model.
	ModelColour string `json:"modelColour,omitempty"`
}

// CreateSession inserts a new session row, defaulting Status to active and
// timestamps to now when unset.
func (s *Store) CreateSession(session *Session) error {
	status := strings.ToLower(strings.TrimSpace(session.Status))
	if status == "" {
		status = SessionStatusActive
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastActive.IsZero() {
		session.LastActive = now
	}
	_, err := s.db.Exec(`INSERT INTO sessions
		(id, principal, project_path, git_repo, git_branch, created_at, last_active,
		 message_count, total_tokens, total_cost, status, plan_id, model_colour)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_active = excluded.last_active`,
		session.ID, session.Principal, session.ProjectPath, session.GitRepo, session.GitBranch,
		session.CreatedAt, session.LastActive, session.MessageCount, session.TotalTokens,
		session.TotalCost, status, session.PlanID, session.ModelColour)
	if err == nil {
		session.Status = status
	}
	return err
}

// GetSession loads a session by id.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	row := s.db.QueryRow(`SELECT id, principal, project_path, git_repo, git_branch, created_at,
		last_active, message_count, total_tokens, total_cost, status, completed_at, plan_id,
		pause_reason, pause_question, paused_at, model_colour
		FROM sessions WHERE id = ?`, sessionID)

	var sess Session
	var principal, projectPath, gitRepo, gitBranch, planID, pauseReason, pauseQuestion, modelColour sql.NullString
	var completedAt, pausedAt sql.NullTime
	if err := row.Scan(&sess.ID, &principal, &projectPath, &gitRepo, &gitBranch, &sess.CreatedAt,
		&sess.LastActive, &sess.MessageCount, &sess.TotalTokens, &sess.TotalCost, &sess.Status,
		&completedAt, &planID, &pauseReason, &pauseQuestion, &pausedAt, &modelColour); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	sess.Principal = principal.String
	sess.ProjectPath = projectPath.String
	sess.GitRepo = gitRepo.String
	sess.GitBranch = gitBranch.String
	sess.PlanID = planID.String
	sess.PauseReason = pauseReason.String
	sess.PauseQuestion = pauseQuestion.String
	sess.ModelColour = modelColour.String
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	if pausedAt.Valid {
		t := pausedAt.Time
		sess.PausedAt = &t
	}
	return &sess, nil
}

// UpdateSessionColour records the conversation's current model colour.
func (s *Store) UpdateSessionColour(sessionID, colour string) error {
	_, err := s.db.Exec(`UPDATE sessions SET model_colour = ? WHERE id = ?`, colour, sessionID)
	return err
}

// LinkSessionToPlan records which plan a session is currently executing.
func (s *Store) LinkSessionToPlan(sessionID, planID string) error {
	_, err := s.db.Exec(`UPDATE sessions SET plan_id = ? WHERE id = ?`, planID, sessionID)
	return err
}

// UpdateSessionPauseState records (or clears, when reason and question are
// both empty) the Planning Coordinator's pause state for a session, used
// when a workflow suspends for user input.
func (s *Store) UpdateSessionPauseState(sessionID, reason, question string, pausedAt *time.Time) error {
	status := SessionStatusActive
	if reason != "" || question != "" {
		status = SessionStatusPaused
	}
	_, err := s.db.Exec(`UPDATE sessions SET pause_reason = ?, pause_question = ?, paused_at = ?, status = ?
		WHERE id = ?`, reason, question, pausedAt, status, sessionID)
	return err
}

// EnsureSession creates a session row for sessionID if one doesn't exist.
func (s *Store) EnsureSession(sessionID string) error {
	_, err := s.GetSession(sessionID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return s.CreateSession(&Session{ID: sessionID})
}

// FileRecord, SearchFiles, and symbol search live in index.go.
