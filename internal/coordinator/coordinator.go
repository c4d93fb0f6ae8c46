package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"shuttle/internal/config"
	"shuttle/internal/controller"
	"shuttle/internal/lease"
	"shuttle/internal/logging"
	"shuttle/internal/queue"
	"shuttle/internal/services"
)

// Outcome reports how a relocation request was handled.
type Outcome int

const (
	// OutcomeSpawned means a detached worker is now processing the item.
	OutcomeSpawned Outcome = iota
	// OutcomeQueued means all worker slots were busy and the item waits in
	// the persistent queue.
	OutcomeQueued
)

func (o Outcome) String() string {
	if o == OutcomeSpawned {
		return "spawned"
	}
	return "queued"
}

const reclamationLease = "space-reclamation"

// Coordinator gates worker concurrency and reclamation exclusivity.
type Coordinator struct {
	cfg        *config.Config
	store      *queue.Store
	leases     *lease.Manager
	logger     *slog.Logger
	maxWorkers int
	configPath string
	dryRun     bool

	cache *workerCache
	spawn func(id controller.ID) error
}

func New(cfg *config.Config, store *queue.Store, leases *lease.Manager,
	configPath string, dryRun bool, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	max := cfg.Workers.MaxConcurrent
	if max < 1 {
		max = 1
	}
	c := &Coordinator{
		cfg:        cfg,
		store:      store,
		leases:     leases,
		logger:     logger,
		maxWorkers: max,
		configPath: configPath,
		dryRun:     dryRun,
		cache:      &workerCache{scan: scanWorkerPids},
	}
	c.spawn = c.spawnWorker
	return c
}

// WorkerCount returns the number of live relocation workers on this host.
func (c *Coordinator) WorkerCount() (int, error) {
	pids, err := c.cache.Pids()
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "coordinator", "count",
			"scan worker processes", err)
	}
	return len(pids), nil
}

// Dispatch hands a finished item to a detached worker when a slot is free and
// queues it otherwise.
func (c *Coordinator) Dispatch(ctx context.Context, id controller.ID) (Outcome, error) {
	count, err := c.WorkerCount()
	if err != nil {
		return OutcomeQueued, err
	}
	if count >= c.maxWorkers {
		c.logger.Info("worker slots busy, queueing item",
			logging.String(logging.FieldItemHash, string(id)),
			logging.Int("workers", count))
		if err := c.store.Enqueue(ctx, id); err != nil {
			return OutcomeQueued, err
		}
		return OutcomeQueued, nil
	}
	if err := c.spawn(id); err != nil {
		return OutcomeQueued, services.Wrap(services.ErrTransient, "coordinator", "dispatch",
			fmt.Sprintf("spawn worker for %s", id.Short()), err)
	}
	c.cache.Invalidate()
	c.logger.Info("worker spawned",
		logging.String(logging.FieldItemHash, string(id)))
	return OutcomeSpawned, nil
}

// DrainQueue spawns workers for queued items while slots remain. A queue
// entry is removed only after its worker has been handed off.
func (c *Coordinator) DrainQueue(ctx context.Context) (int, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return 0, err
	}
	drained := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return drained, err
		}
		count, err := c.WorkerCount()
		if err != nil {
			return drained, err
		}
		if count >= c.maxWorkers {
			break
		}
		if err := c.spawn(entry.Hash); err != nil {
			return drained, services.Wrap(services.ErrTransient, "coordinator", "drain",
				fmt.Sprintf("spawn worker for %s", entry.Hash.Short()), err)
		}
		c.cache.Invalidate()
		if err := c.store.Remove(ctx, entry.Hash); err != nil {
			return drained, err
		}
		drained++
		c.logger.Info("queued item dispatched",
			logging.String(logging.FieldItemHash, string(entry.Hash)))
	}
	return drained, nil
}

// WithReclamationLease runs fn while holding the host-wide reclamation lease.
// When another process holds it the call is skipped, not failed.
func (c *Coordinator) WithReclamationLease(ctx context.Context, fn func(context.Context) error) (bool, error) {
	held, err := c.leases.Acquire(ctx, reclamationLease, 2*time.Second)
	if err != nil {
		if errors.Is(err, lease.ErrLockTimeout) {
			c.logger.Info("reclamation already running elsewhere, skipping")
			return false, nil
		}
		return false, err
	}
	defer held.Release()
	return true, fn(ctx)
}

// spawnWorker starts a detached worker process for one item. The worker gets
// its own session so it outlives the dispatching process, and its output goes
// to a per-item log file.
func (c *Coordinator) spawnWorker(id controller.ID) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	args := []string{"worker", string(id)}
	if c.configPath != "" {
		args = append(args, "--config", c.configPath)
	}
	if c.dryRun {
		args = append(args, "--dry-run")
	}

	logPath := filepath.Join(c.cfg.WorkerLogDir(), fmt.Sprintf("worker-%s.log", id.Short()))
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open worker log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(executable, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	return cmd.Process.Release()
}
