package instance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func alwaysAlive(int) bool { return true }

func TestAcquireAndReleaseLock(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(context.Background(), dir, LockName(42), time.Second, alwaysAlive)
	if err != nil {
		t.Fatalf("AcquireLock error: %v", err)
	}
	if filepath.Base(lock.Path()) != "pid-42.lock" {
		t.Fatalf("lock path = %q", lock.Path())
	}

	h, err := ReadHolder(lock.Path())
	if err != nil {
		t.Fatalf("ReadHolder error: %v", err)
	}
	if h.PID != os.Getpid() || h.Created.IsZero() {
		t.Fatalf("unexpected holder: %+v", h)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release error: %v", err)
	}
}

func TestAcquireLockTimeout(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireLock(context.Background(), dir, "demo", time.Second, alwaysAlive)
	if err != nil {
		t.Fatalf("AcquireLock first error: %v", err)
	}
	defer func() { _ = first.Release() }()

	_, err = AcquireLock(context.Background(), dir, "demo", 200*time.Millisecond, alwaysAlive)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestAcquireLockHonoursContext(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireLock(context.Background(), dir, "demo", time.Second, alwaysAlive)
	if err != nil {
		t.Fatalf("AcquireLock first error: %v", err)
	}
	defer func() { _ = first.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := AcquireLock(ctx, dir, "demo", time.Minute, alwaysAlive); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestAcquireLockTakesOverDeadHolder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.lock")
	if err := os.WriteFile(path, []byte("pid=999999\ncreated_unix=1\n"), 0o644); err != nil {
		t.Fatalf("write lock error: %v", err)
	}

	dead := func(pid int) bool { return pid != 999999 }
	lock, err := AcquireLock(context.Background(), dir, "demo", 200*time.Millisecond, dead)
	if err != nil {
		t.Fatalf("AcquireLock error: %v", err)
	}
	defer func() { _ = lock.Release() }()
}

func TestPruneLocksRemovesOnlyStale(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s error: %v", name, err)
		}
	}
	write("pid-1.lock", "pid=10\n")
	write("pid-2.lock", "pid=20\n")
	write("notes.txt", "pid=10\n")

	removed, err := PruneLocks(dir, func(pid int) bool { return pid == 20 })
	if err != nil {
		t.Fatalf("PruneLocks error: %v", err)
	}
	if len(removed) != 1 || filepath.Base(removed[0]) != "pid-1.lock" {
		t.Fatalf("removed = %v", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "pid-2.lock")); err != nil {
		t.Fatalf("live lock removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Fatalf("non-lock file removed: %v", err)
	}

	removed, err = PruneLocks(filepath.Join(dir, "missing"), nil)
	if err != nil || len(removed) != 0 {
		t.Fatalf("missing dir: removed=%v err=%v", removed, err)
	}
}

func TestSanitizeLockName(t *testing.T) {
	if got := sanitizeLockName("a/b c"); got != "a_b_c" {
		t.Fatalf("sanitizeLockName = %q", got)
	}
	if got := sanitizeLockName(""); got != "default" {
		t.Fatalf("sanitizeLockName empty = %q", got)
	}
}
