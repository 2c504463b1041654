package instance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	lockSuffix   = ".lock"
	lockMaxAge   = 10 * time.Minute
	lockInterval = 120 * time.Millisecond
)

// Lock serializes terminations of one target across procterm invocations.
type Lock struct {
	path string
}

// Holder is what a lock file says about the invocation that owns it.
type Holder struct {
	PID     int
	Created time.Time
}

// AliveFunc reports whether a pid still runs.
type AliveFunc func(pid int) bool

// LockName maps a target pid to its lock file name.
func LockName(pid int) string {
	return "pid-" + strconv.Itoa(pid)
}

func AcquireLock(ctx context.Context, dir, name string, timeout time.Duration, alive AliveFunc) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	lockPath := filepath.Join(dir, sanitizeLockName(name)+lockSuffix)
	deadline := time.Now().Add(timeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, "pid=%d\ncreated_unix=%d\n", os.Getpid(), time.Now().Unix())
			_ = f.Close()
			return &Lock{path: lockPath}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}

		if stale, staleErr := isStale(lockPath, lockMaxAge, alive); staleErr == nil && stale {
			_ = os.Remove(lockPath)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting lock %s", lockPath)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockInterval):
		}
	}
}

func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func ReadHolder(path string) (Holder, error) {
	f, err := os.Open(path)
	if err != nil {
		return Holder{}, err
	}
	defer f.Close()

	var h Holder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "pid":
			h.PID = int(n)
		case "created_unix":
			h.Created = time.Unix(n, 0)
		}
	}
	if err := sc.Err(); err != nil {
		return Holder{}, err
	}
	return h, nil
}

// PruneLocks removes stale lock files under dir and returns their paths.
func PruneLocks(dir string, alive AliveFunc) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var removed []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), lockSuffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		stale, err := isStale(path, lockMaxAge, alive)
		if err != nil || !stale {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func sanitizeLockName(name string) string {
	if name == "" {
		return "default"
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r)
		case r >= '0' && r <= '9':
			out = append(out, r)
		case r == '-' || r == '_' || r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "default"
	}
	return string(out)
}

// isStale reports a lock as stale when it is older than age or its holder
// no longer runs.
func isStale(path string, age time.Duration, alive AliveFunc) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if time.Since(info.ModTime()) > age {
		return true, nil
	}
	if alive == nil {
		return false, nil
	}
	h, err := ReadHolder(path)
	if err != nil || h.PID <= 0 {
		return false, nil
	}
	return !alive(h.PID), nil
}
