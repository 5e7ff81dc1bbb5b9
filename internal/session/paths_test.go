package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir(t *testing.T) {
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".pmschat", "sessions", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestOutboxPath(t *testing.T) {
	got := OutboxPath("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "outbox.json")) {
		t.Errorf("OutboxPath(test) = %q, want suffix sessions/test/outbox.json", got)
	}
}

func TestCacheDBPath(t *testing.T) {
	got := CacheDBPath("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "chat.db")) {
		t.Errorf("CacheDBPath(test) = %q, want suffix sessions/test/chat.db", got)
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "LOCK")) {
		t.Errorf("LockPath(test) = %q, want suffix sessions/test/LOCK", got)
	}
}
