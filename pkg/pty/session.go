// Package pty owns the bounded set of interactive child processes the agent
// loop can drive through a tool call: spawning them, feeding their output
// through a VT100 parser into a live screen buffer with bounded scrollback,
// and exposing screen snapshots, input injection, and lifecycle control.
package pty

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	ptypkg "github.com/creack/pty"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	bkerrors "github.com/relaycode/loom/pkg/errors"
	"github.com/relaycode/loom/pkg/pool"
)

// Status is the lifecycle state of a PTYSession.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusExited  Status = "exited"
)

const (
	// DefaultMaxSessions is the default ceiling on concurrent sessions.
	DefaultMaxSessions = 15
	// DefaultScrollback is the default bounded scrollback depth.
	DefaultScrollback = 1000
	// DefaultUserInputTimeout is the default request_user_input timeout.
	DefaultUserInputTimeout = 300 * time.Second
	// killGracePeriod is how long a SIGTERM'd session is given before SIGKILL.
	killGracePeriod = 5 * time.Second
)

// Metadata describes a session's static launch parameters.
type Metadata struct {
	Command   string
	Cwd       string
	CreatedAt time.Time
}

// Session is one long-lived interactive child process wrapped in a VT100
// parser with a fixed-size screen and bounded scrollback.
type Session struct {
	ID       string
	Metadata Metadata

	mu         sync.Mutex // serializes send_keys/get_screen/resize on this id
	cmd        *exec.Cmd
	ptmx       *os.File
	grid       *Grid
	scrollback *Scrollback
	parser     *VT100Parser

	capture   *captureWriter
	status    Status
	exitCode  int
	doneCh    chan struct{}
	userInput chan struct{} // closed by request_user_input completion signal
}

// Snapshot is a rendered view of a session's screen for get_screen.
type Snapshot struct {
	Text          string
	ANSI          string
	CursorX       int
	CursorY       int
	IncludeCursor bool
}

// Manager owns the session table.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	nextID      int
	idGen       func() string
}

// NewManager creates a Manager with the given capacity (0 -> DefaultMaxSessions).
func NewManager(maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		idGen: func() string {
			return "pty-" + ulid.Make().String()
		},
	}
}

// LaunchOptions configures a new session.
type LaunchOptions struct {
	Command    string
	Cwd        string
	Cols, Rows int
	Scrollback int
}

// Launch spawns a child process and begins pumping its output through a
// VT100 parser. Fails with ErrCodeSessionCapacity at the configured ceiling.
func (m *Manager) Launch(ctx context.Context, opts LaunchOptions) (*Session, error) {
	m.mu.Lock()
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, bkerrors.New(bkerrors.ErrCodeSessionCapacity, "pty session capacity reached").
			WithContext("limit", m.maxSessions)
	}
	id := m.allocateIDLocked()
	m.mu.Unlock()

	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	scrollbackLines := opts.Scrollback
	if scrollbackLines <= 0 {
		scrollbackLines = DefaultScrollback
	}

	cmd := buildCommand(opts.Command, opts.Cwd)
	ptmx, err := ptypkg.StartWithSize(cmd, &ptypkg.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, bkerrors.Wrap(err, bkerrors.ErrCodeFatal, "failed to start pty")
	}

	grid := NewGrid(cols, rows)
	scrollback := NewScrollback(scrollbackLines)
	sess := &Session{
		ID: id,
		Metadata: Metadata{
			Command:   opts.Command,
			Cwd:       opts.Cwd,
			CreatedAt: time.Now(),
		},
		cmd:        cmd,
		ptmx:       ptmx,
		grid:       grid,
		scrollback: scrollback,
		parser:     NewVT100Parser(grid, scrollback),
		status:     StatusRunning,
		doneCh:     make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	go sess.pump()

	return sess, nil
}

// allocateIDLocked returns a fresh session id: a ulid under the production
// generator, or a sequential fallback when a test zeroes idGen for
// deterministic ids.
func (m *Manager) allocateIDLocked() string {
	m.nextID++
	if m.idGen != nil {
		return m.idGen()
	}
	return fmt.Sprintf("pty-%d", m.nextID)
}

func buildCommand(command, cwd string) *exec.Cmd {
	var cmd *exec.Cmd
	if command == "" {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		cmd = exec.Command(shell, "-l")
	} else {
		cmd = exec.Command("/bin/sh", "-c", command)
	}
	if cwd != "" {
		cmd.Dir = cwd
	}
	cmd.Env = os.Environ()
	return cmd
}

// pump reads the child's output in a dedicated goroutine, feeding every
// chunk to the VT100 parser (and the capture sink, if active) in arrival
// order, independent of the agent loop.
func (s *Session) pump() {
	defer close(s.doneCh)
	buf := pool.GetSizedBuffer(4096)
	buf = buf[:cap(buf)]
	defer pool.PutSizedBuffer(buf)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			s.mu.Lock()
			s.parser.Feed(chunk)
			s.mu.Unlock()

			if cw := s.captureSink(); cw != nil {
				cw.Write(chunk)
			}
		}
		if err != nil {
			s.mu.Lock()
			s.status = StatusExited
			s.exitCode = exitCodeFromErr(s.cmd, err)
			s.mu.Unlock()
			return
		}
	}
}

func (s *Session) captureSink() *captureWriter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture
}

func exitCodeFromErr(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

// SendKeys writes bytes to the child's stdin, translating special-key
// notation first when interpretation is enabled.
func (s *Session) SendKeys(keys string, interpretSpecials bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return bkerrors.New(bkerrors.ErrCodeSessionNotFound, "session is not running").WithContext("id", s.ID)
	}
	payload := keys
	if interpretSpecials {
		payload = translateSpecialKeys(keys)
	}
	_, err := s.ptmx.WriteString(payload)
	if err != nil {
		return bkerrors.Wrap(err, bkerrors.ErrCodeToolFailure, "pty write failed")
	}
	return nil
}

// GetScreen renders the current grid to text, optionally ANSI-coloured and
// with cursor position.
func (s *Session) GetScreen(includeColors, includeCursor bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, height := s.grid.Size()
	snap := Snapshot{IncludeCursor: includeCursor}
	var plain, ansi strings.Builder
	for y := 0; y < height; y++ {
		row := s.grid.Row(y)
		for _, cell := range row {
			if cell.Width == 0 {
				continue
			}
			if cell.Rune == 0 {
				plain.WriteRune(' ')
			} else {
				plain.WriteRune(cell.Rune)
			}
			if includeColors {
				ansi.WriteString(compositorStyleToANSI(cell))
			}
		}
		if y < height-1 {
			plain.WriteByte('\n')
			if includeColors {
				ansi.WriteByte('\n')
			}
		}
	}
	snap.Text = plain.String()
	if includeColors {
		snap.ANSI = ansi.String()
	}
	if includeCursor {
		snap.CursorX, snap.CursorY = s.grid.Cursor()
	}
	return snap
}

// GetCursor returns the current cursor position.
func (s *Session) GetCursor() (x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Cursor()
}

// Resize changes the screen dimensions and informs the kernel pty.
func (s *Session) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid.Resize(cols, rows)
	return ptypkg.Setsize(s.ptmx, &ptypkg.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// SetScrollback changes the retained scrollback depth.
func (s *Session) SetScrollback(lines int) {
	s.scrollback.SetLimit(lines)
}

// StartCapture begins writing a timestamped JSONL record per output chunk.
func (s *Session) StartCapture(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture != nil {
		return nil
	}
	cw, err := newCaptureWriter(path)
	if err != nil {
		return bkerrors.Wrap(err, bkerrors.ErrCodeToolFailure, "failed to open capture file")
	}
	s.capture = cw
	return nil
}

// StopCapture stops writing and returns the capture file path.
func (s *Session) StopCapture() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return "", bkerrors.New(bkerrors.ErrCodeToolFailure, "capture was not active")
	}
	path := s.capture.path
	err := s.capture.Close()
	s.capture = nil
	return path, err
}

// Status returns the session's current lifecycle status and, if exited,
// its exit code.
func (s *Session) GetStatus() (Status, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.exitCode
}

// RequestUserInput suspends the caller for up to timeout while signalling
// that the user has direct control of the session; returns when the user
// signals completion (EOF on the returned channel close) or the timeout
// elapses.
func (s *Session) RequestUserInput(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultUserInputTimeout
	}
	s.mu.Lock()
	done := make(chan struct{})
	s.userInput = done
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return bkerrors.New(bkerrors.ErrCodeToolFailure, "request_user_input timed out")
	case <-ctx.Done():
		return bkerrors.Wrap(ctx.Err(), bkerrors.ErrCodeCancelled, "request_user_input cancelled")
	}
}

// CompleteUserInput signals that the user has finished their direct session
// and control should return to the agent.
func (s *Session) CompleteUserInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userInput != nil {
		close(s.userInput)
		s.userInput = nil
	}
}

// Kill sends the named signal to the child; escalation to SIGKILL is the
// caller's responsibility (see Manager.Kill).
func (s *Session) Kill(sig syscall.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd.Process == nil {
		return nil
	}
	return s.cmd.Process.Signal(sig)
}

// List returns a snapshot of every session's id, metadata, and status.
// Pure: successive calls with no intervening mutation return equal results
//.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	ids := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		ids = append(ids, s)
	}
	m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(ids))
	for _, s := range ids {
		status, code := s.GetStatus()
		infos = append(infos, SessionInfo{
			ID:       s.ID,
			Metadata: s.Metadata,
			Status:   status,
			ExitCode: code,
		})
	}
	return infos
}

// SessionInfo is the read-only view of a session returned by List.
type SessionInfo struct {
	ID       string
	Metadata Metadata
	Status   Status
	ExitCode int
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, bkerrors.New(bkerrors.ErrCodeSessionNotFound, "pty session not found").WithContext("id", id)
	}
	return s, nil
}

// Kill sends sig to the session, escalating to SIGKILL after a grace period
// if it has not exited, then removes it from the table once it's gone.
func (m *Manager) Kill(id string, sig syscall.Signal) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	if sig == 0 {
		sig = syscall.SIGTERM
	}
	if err := sess.Kill(sig); err != nil {
		return bkerrors.Wrap(err, bkerrors.ErrCodeToolFailure, "failed to signal pty session")
	}

	go func() {
		select {
		case <-sess.doneCh:
		case <-time.After(killGracePeriod):
			_ = sess.Kill(syscall.SIGKILL)
			<-sess.doneCh
		}
		m.remove(id)
	}()
	return nil
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Shutdown sends SIGTERM to every session, escalating to SIGKILL after a
// grace period, and waits for all of them to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var eg errgroup.Group
	for _, s := range sessions {
		s := s
		eg.Go(func() error {
			_ = s.Kill(syscall.SIGTERM)
			select {
			case <-s.doneCh:
			case <-time.After(killGracePeriod):
				_ = s.Kill(syscall.SIGKILL)
				<-s.doneCh
			}
			return nil
		})
	}
	_ = eg.Wait()

	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
}
