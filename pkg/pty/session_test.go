package pty

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestManager_LaunchAndScreen(t *testing.T) {
	mgr := NewManager(DefaultMaxSessions)
	sess, err := mgr.Launch(context.Background(), LaunchOptions{
		Command: "printf hello",
		Cols:    20,
		Rows:    5,
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap := sess.GetScreen(false, false)
		return len(snap.Text) > 0
	})

	snap := sess.GetScreen(false, false)
	if got := snap.Text; got == "" {
		t.Errorf("expected non-empty screen, got empty")
	}
}

func TestManager_CapacityLimit(t *testing.T) {
	mgr := NewManager(1)
	_, err := mgr.Launch(context.Background(), LaunchOptions{Command: "sleep 1"})
	if err != nil {
		t.Fatalf("first launch should succeed: %v", err)
	}
	_, err = mgr.Launch(context.Background(), LaunchOptions{Command: "sleep 1"})
	if err == nil {
		t.Fatalf("expected second launch to fail at capacity")
	}
}

func TestManager_ListIsIdempotent(t *testing.T) {
	mgr := NewManager(DefaultMaxSessions)
	_, err := mgr.Launch(context.Background(), LaunchOptions{Command: "sleep 1"})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	a := mgr.List()
	b := mgr.List()
	if len(a) != len(b) || len(a) != 1 {
		t.Fatalf("expected stable single-session list, got %d then %d", len(a), len(b))
	}
	if a[0].ID != b[0].ID {
		t.Errorf("list id changed between calls: %q vs %q", a[0].ID, b[0].ID)
	}
}

func TestManager_KillRemovesFromTable(t *testing.T) {
	mgr := NewManager(DefaultMaxSessions)
	sess, err := mgr.Launch(context.Background(), LaunchOptions{Command: "sleep 30"})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	if err := mgr.Kill(sess.ID, syscall.SIGTERM); err != nil {
		t.Fatalf("Kill failed: %v", err)
	}

	waitFor(t, 6*time.Second, func() bool {
		return len(mgr.List()) == 0
	})
}

func TestSession_Capture(t *testing.T) {
	mgr := NewManager(DefaultMaxSessions)
	sess, err := mgr.Launch(context.Background(), LaunchOptions{Command: "printf abc"})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "capture.jsonl")
	if err := sess.StartCapture(path); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		info, err := os.Stat(path)
		return err == nil && info.Size() > 0
	})

	if _, err := sess.StopCapture(); err != nil {
		t.Fatalf("StopCapture failed: %v", err)
	}
}
