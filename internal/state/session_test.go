package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hughe/shiori-share/internal/shiori"
)

func TestSessionCache_SetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.toml")
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := NewSessionCache(path)
	if _, ok := c.Session(); ok {
		t.Fatalf("new cache should be empty")
	}
	if err := c.SetSession(shiori.Session{Token: "abc", IssuedAt: issued}); err != nil {
		t.Fatalf("SetSession returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	reloaded := NewSessionCache(path)
	s, ok := reloaded.Session()
	if !ok {
		t.Fatalf("reloaded cache is empty")
	}
	if s.Token != "abc" || !s.IssuedAt.Equal(issued) {
		t.Fatalf("reloaded session = %#v, want token abc issued %v", s, issued)
	}
}

func TestSessionCache_ClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	c := NewSessionCache(path)
	if err := c.SetSession(shiori.Session{Token: "abc", IssuedAt: time.Now()}); err != nil {
		t.Fatalf("SetSession returned error: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, ok := c.Session(); ok {
		t.Fatalf("session still cached after Clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("session file still exists: %v", err)
	}
	// Clearing twice is fine.
	if err := c.Clear(); err != nil {
		t.Fatalf("second Clear returned error: %v", err)
	}
}

func TestSessionCache_IsValidBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewSessionCache("")

	if c.IsValid(now) {
		t.Fatalf("empty cache reported valid")
	}

	_ = c.SetSession(shiori.Session{Token: "abc", IssuedAt: now.Add(-3599 * time.Second)})
	if !c.IsValid(now) {
		t.Fatalf("session issued 3599s ago should be valid")
	}

	_ = c.SetSession(shiori.Session{Token: "abc", IssuedAt: now.Add(-3601 * time.Second)})
	if c.IsValid(now) {
		t.Fatalf("session issued 3601s ago should be expired")
	}

	_ = c.SetSession(shiori.Session{Token: "abc", IssuedAt: now.Add(-3600 * time.Second)})
	if c.IsValid(now) {
		t.Fatalf("session issued exactly 3600s ago should be expired")
	}
}

func TestSessionCache_CorruptFileLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	if err := os.WriteFile(path, []byte("token = [\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c := NewSessionCache(path)
	if _, ok := c.Session(); ok {
		t.Fatalf("corrupt file should load as empty cache")
	}
}

func TestSessionCache_ConcurrentWritesStayConsistent(t *testing.T) {
	c := NewSessionCache("")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				// Token and timestamp are derived from the same value so a
				// torn read would show a mismatch.
				_ = c.SetSession(shiori.Session{Token: string(rune('a' + i)), IssuedAt: base.Add(time.Duration(i) * time.Minute)})
			}
		}(i)
	}
	for i := 0; i < 100; i++ {
		if s, ok := c.Session(); ok {
			want := base.Add(time.Duration(s.Token[0]-'a') * time.Minute)
			if !s.IssuedAt.Equal(want) {
				t.Fatalf("torn session: %#v", s)
			}
		}
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
