package process

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Locker hands out one mutex per workspace id. When Dir is set each lock
// is also backed by an flock(2) on <Dir>/<id>.lock so separate clawspace
// processes serialize as well. Entries are dropped once no caller holds or
// waits on them.
type Locker struct {
	Dir string

	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates a locker. dir may be empty for in-process locking only.
func NewLocker(dir string) *Locker {
	return &Locker{
		Dir:   dir,
		locks: make(map[string]*lockEntry),
	}
}

var defaultLocker = NewLocker("")

// Lock blocks until the lock for key is held and returns its release func.
func (l *Locker) Lock(key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	release := func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}

	if l.Dir == "" {
		return release, nil
	}

	f, err := l.lockFile(key)
	if err != nil {
		release()
		return nil, err
	}

	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
		release()
	}, nil
}

// size reports how many keys are currently tracked
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) lockFile(key string) (*os.File, error) {
	if err := os.MkdirAll(l.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := filepath.Join(l.Dir, filepath.Base(key)+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return f, nil
}
