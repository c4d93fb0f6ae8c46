package coordinator

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const workerCacheTTL = 5 * time.Second

// workerCache memoizes the worker process scan. Spawning invalidates it so a
// burst of finish events sees its own workers immediately.
type workerCache struct {
	mu        sync.Mutex
	pids      []int
	fetchedAt time.Time
	scan      func() ([]int, error)
}

func (c *workerCache) Pids() ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < workerCacheTTL {
		return c.pids, nil
	}
	pids, err := c.scan()
	if err != nil {
		return nil, err
	}
	c.pids = pids
	c.fetchedAt = time.Now()
	return pids, nil
}

func (c *workerCache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// scanWorkerPids walks /proc for other processes running this executable with
// a worker argument. The calling process never counts itself.
func scanWorkerPids() ([]int, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}
	selfBase := filepath.Base(self)
	ownPid := os.Getpid()

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == ownPid {
			continue
		}
		cmdline, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "cmdline"))
		if err != nil {
			continue
		}
		args := strings.Split(string(cmdline), "\x00")
		if len(args) < 2 {
			continue
		}
		if filepath.Base(args[0]) != selfBase {
			continue
		}
		for _, arg := range args[1:] {
			if arg == "worker" {
				pids = append(pids, pid)
				break
			}
		}
	}
	return pids, nil
}
