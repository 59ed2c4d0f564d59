// Package storage persists conversation state, session metadata, and agent
// settings in a local SQLite database, grounding the Conversation History
// Manager's save/load contract and the Planning Coordinator's
// session/pause-state tracking in real on-disk state rather than an
// in-memory map.
package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Store manages SQLite-backed persistence for conversations, sessions, and
// agent settings.
type Store struct {
	db        *sql.DB
	stmtCache stmtCache
}

type stmtCache struct {
	mu    sync.RWMutex
	stmts map[string]*sql.Stmt
}

// New opens (creating if necessary) a SQLite database at dbPath and applies
// schema migrations. dbPath may be a filesystem path or ":memory:".
func New(dbPath string) (*Store, error) {
	filePath, onDisk := sqliteFilePathFromDSN(dbPath)
	if onDisk {
		if dir := filepath.Dir(filePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		if err := ensurePrivateSQLiteFile(filePath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func sqliteFilePathFromDSN(dsn string) (string, bool) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" || dsn == ":memory:" {
		return "", false
	}
	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil || !strings.EqualFold(strings.TrimSpace(u.Scheme), "file") {
			return "", false
		}
		path := strings.TrimSpace(u.Path)
		if path == "" {
			path = strings.TrimSpace(u.Opaque)
		}
		if path == "" || path == ":memory:" {
			return "", false
		}
		return path, true
	}
	if strings.Contains(dsn, "://") {
		return "", false
	}
	return dsn, true
}

func ensurePrivateSQLiteFile(path string) error {
	if path == "" {
		return fmt.Errorf("db path cannot be empty")
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat db path: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("create db file: %w", err)
	}
	return f.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	principal TEXT,
	project_path TEXT,
	git_repo TEXT,
	git_branch TEXT,
	created_at DATETIME NOT NULL,
	last_active DATETIME NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	total_cost REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'active',
	completed_at DATETIME,
	plan_id TEXT,
	pause_reason TEXT,
	pause_question TEXT,
	paused_at DATETIME,
	model_colour TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT,
	content_json TEXT,
	content_type TEXT,
	reasoning TEXT,
	timestamp DATETIME NOT NULL,
	tokens INTEGER NOT NULL DEFAULT 0,
	is_summary INTEGER NOT NULL DEFAULT 0,
	is_truncated INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_index (
	path TEXT PRIMARY KEY,
	checksum TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	size_bytes INTEGER NOT NULL DEFAULT 0,
	summary TEXT,
	updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS file_symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	signature TEXT,
	start_line INTEGER NOT NULL DEFAULT 0,
	end_line INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_file_symbols_path ON file_symbols(file_path);
CREATE INDEX IF NOT EXISTS idx_file_symbols_name ON file_symbols(name);

CREATE TABLE IF NOT EXISTS file_imports (
	file_path TEXT NOT NULL,
	import_path TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_file_imports_path ON file_imports(file_path);

CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	content TEXT NOT NULL,
	active_form TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	order_index INTEGER NOT NULL DEFAULT 0,
	parent_id INTEGER,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	completed_at DATETIME,
	error_message TEXT,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_todos_session ON todos(session_id, order_index);

CREATE TABLE IF NOT EXISTS todo_checkpoints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	checkpoint_type TEXT NOT NULL,
	todo_count INTEGER NOT NULL DEFAULT 0,
	completed_count INTEGER NOT NULL DEFAULT 0,
	conversation_summary TEXT,
	conversation_tokens INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_todo_checkpoints_session ON todo_checkpoints(session_id, created_at);

CREATE TABLE IF NOT EXISTS memories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	project_path TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding BLOB,
	metadata TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id);
CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_path);
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.clearStmtCache()
	return s.db.Close()
}

// DB returns the underlying connection for components (e.g. the orchestrator's
// decision and execution logs) that need raw SQL access beyond this package's
// typed helpers.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) getStmt(query string) (*sql.Stmt, error) {
	s.stmtCache.mu.RLock()
	if stmt, ok := s.stmtCache.stmts[query]; ok {
		s.stmtCache.mu.RUnlock()
		return stmt, nil
	}
	s.stmtCache.mu.RUnlock()

	s.stmtCache.mu.Lock()
	defer s.stmtCache.mu.Unlock()
	if stmt, ok := s.stmtCache.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	if s.stmtCache.stmts == nil {
		s.stmtCache.stmts = make(map[string]*sql.Stmt)
	}
	s.stmtCache.stmts[query] = stmt
	return stmt, nil
}

func (s *Store) clearStmtCache() {
	s.stmtCache.mu.Lock()
	defer s.stmtCache.mu.Unlock()
	for _, stmt := range s.stmtCache.stmts {
		_ = stmt.Close()
	}
	s.stmtCache.stmts = nil
}
