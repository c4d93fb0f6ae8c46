package lease

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"shuttle/internal/logging"
	"shuttle/internal/services"
)

// ErrLockTimeout reports that a lease could not be acquired before the
// caller's deadline. It carries the contention marker so dispatch logic can
// treat it as a skip rather than a failure.
var ErrLockTimeout = services.Wrap(services.ErrContention, "lease", "acquire",
	"timed out waiting for lease", nil)

const (
	acquireBackoffBase = 50 * time.Millisecond
	acquireBackoffMax  = time.Second
)

// Manager hands out leases backed by lock files in a single directory.
type Manager struct {
	dir    string
	logger *slog.Logger
}

func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{dir: dir, logger: logger}
}

// Lease is a held named lock. Release it exactly once.
type Lease struct {
	Name       string
	Path       string
	PID        int
	AcquiredAt time.Time

	lock   *flock.Flock
	logger *slog.Logger
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name+".lock")
}

// Acquire polls for the named lease until it is held or timeout elapses.
// A zero timeout makes a single attempt.
func (m *Manager) Acquire(ctx context.Context, name string, timeout time.Duration) (*Lease, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "lease", "acquire",
			"create lock directory", err)
	}
	path := m.path(name)
	lock := flock.New(path)
	deadline := time.Now().Add(timeout)
	backoff := acquireBackoffBase
	for {
		locked, err := lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "lease", "acquire",
				fmt.Sprintf("lock %s", name), err)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		sleep := backoff + rand.N(backoff/2+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		if backoff *= 2; backoff > acquireBackoffMax {
			backoff = acquireBackoffMax
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		lock.Unlock()
		return nil, services.Wrap(services.ErrTransient, "lease", "acquire",
			"record lease holder", err)
	}
	m.logger.Debug("lease acquired",
		logging.String("lease", name), logging.Int("pid", pid))
	return &Lease{
		Name:       name,
		Path:       path,
		PID:        pid,
		AcquiredAt: time.Now(),
		lock:       lock,
		logger:     m.logger,
	}, nil
}

// Release unlocks the lease and removes its file. Failures are logged but not
// returned; a leftover file will be treated as stale by the next holder.
func (l *Lease) Release() {
	if l == nil || l.lock == nil {
		return
	}
	if err := l.lock.Unlock(); err != nil {
		l.logger.Warn("lease unlock failed",
			logging.String("lease", l.Name), logging.Error(err))
	}
	if err := os.Remove(l.Path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("lease file removal failed",
			logging.String("lease", l.Name), logging.Error(err))
	}
	l.lock = nil
}

// HolderPID reads the PID recorded in the named lease file. It returns zero
// when the file is missing or holds no PID.
func (m *Manager) HolderPID(name string) (int, error) {
	data, err := os.ReadFile(m.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// IsHeldByLiveProcess reports whether the named lease file names a process
// that still exists. Stale files naming dead processes are removed.
func (m *Manager) IsHeldByLiveProcess(name string) (bool, error) {
	pid, err := m.HolderPID(name)
	if err != nil {
		return false, err
	}
	if pid == 0 {
		return false, nil
	}
	if processAlive(pid) {
		return true, nil
	}
	m.logger.Info("removing stale lease",
		logging.String("lease", name), logging.Int("pid", pid))
	if err := os.Remove(m.path(name)); err != nil && !os.IsNotExist(err) {
		return false, err
	}
	return false, nil
}

// processAlive probes pid with a null signal. EPERM means the process exists
// but belongs to another user.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == unix.EPERM
}
