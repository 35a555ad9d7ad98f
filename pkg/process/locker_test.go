package process

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSerialized(t *testing.T, l *Locker, key string) {
	t.Helper()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(key)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestLocker_SerializesSameKey(t *testing.T) {
	assertSerialized(t, NewLocker(""), "ws-1")
}

func TestLocker_DropsReleasedKeys(t *testing.T) {
	l := NewLocker(t.TempDir())

	for i := 0; i < 50; i++ {
		unlock, err := l.Lock(fmt.Sprintf("ws-%d", i))
		require.NoError(t, err)
		unlock()
	}
	assert.Equal(t, 0, l.size())

	assertSerialized(t, l, "ws-1")
	assert.Equal(t, 0, l.size())

	unlock, err := l.Lock("held")
	require.NoError(t, err)
	assert.Equal(t, 1, l.size())
	unlock()
	assert.Equal(t, 0, l.size())
}

func TestLocker_FileBacked(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	l := NewLocker(dir)

	assertSerialized(t, l, "ws-1")
	assert.FileExists(t, filepath.Join(dir, "ws-1.lock"))
}

func TestLocker_IndependentKeys(t *testing.T) {
	l := NewLocker("")

	unlockA, err := l.Lock("a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := l.Lock("b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestLocker_FileLockAcrossLockers(t *testing.T) {
	dir := t.TempDir()
	first := NewLocker(dir)
	second := NewLocker(dir)

	unlock, err := first.Lock("ws")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		unlock2, err := second.Lock("ws")
		if err == nil {
			close(acquired)
			unlock2()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second locker acquired a held file lock")
	case <-time.After(100 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second locker never acquired the lock")
	}
}
