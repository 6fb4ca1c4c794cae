package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
)

// runLock keeps cycles from overlapping, within the process and across
// processes sharing the data directory.
type runLock struct {
	path    string
	running atomic.Bool
}

// acquire returns ErrCycleInProgress when a cycle is already running.
func (l *runLock) acquire() (func(), error) {
	if !l.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	if l.path == "" {
		return func() { l.running.Store(false) }, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.running.Store(false)
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(l.path)
	ok, err := fl.TryLock()
	if err != nil {
		l.running.Store(false)
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		l.running.Store(false)
		return nil, ErrCycleInProgress
	}

	return func() {
		_ = fl.Unlock()
		l.running.Store(false)
	}, nil
}
