package relocation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shuttle/internal/controller"
	"shuttle/internal/copyverify"
	"shuttle/internal/logging"
	"shuttle/internal/notify"
	"shuttle/internal/services"
)

// Result reports how far a relocation got.
type Result struct {
	State           State
	Deleted         bool
	ResumeAttempted bool
}

// Relocator executes the copy, repoint, and delete pipeline for one item at a
// time.
type Relocator struct {
	client   controller.Client
	engine   *copyverify.Engine
	notifier notify.Service

	fastDir     string
	capacityDir string
	dryRun      bool
	logger      *slog.Logger

	// Settle delays give the controller time to close file handles after a
	// stop and to apply a directory change before the source disappears.
	stopSettle    time.Duration
	repointSettle time.Duration

	remove func(path string) error
}

func NewRelocator(client controller.Client, engine *copyverify.Engine, notifier notify.Service,
	fastDir, capacityDir string, dryRun bool, logger *slog.Logger) *Relocator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewNop()
	}
	return &Relocator{
		client:        client,
		engine:        engine,
		notifier:      notifier,
		fastDir:       fastDir,
		capacityDir:   capacityDir,
		dryRun:        dryRun,
		logger:        logger,
		stopSettle:    time.Second,
		repointSettle: 500 * time.Millisecond,
		remove:        os.RemoveAll,
	}
}

// DestinationDir returns the capacity-tier directory an item is routed into.
// Labeled items get a per-label subdirectory; unlabeled items land in the
// capacity root.
func (r *Relocator) DestinationDir(item *controller.Item) string {
	label := strings.TrimSpace(item.Label)
	if label == "" {
		return r.capacityDir
	}
	return filepath.Join(r.capacityDir, label)
}

// DestinationPath returns the full capacity-tier path for an item's payload.
func (r *Relocator) DestinationPath(item *controller.Item) string {
	return filepath.Join(r.DestinationDir(item), filepath.Base(item.Path))
}

// ProcessFinished copies a freshly finished item to the capacity tier,
// verifies the copy, and requests a library rescan. The fast-tier source is
// left in place; reclamation removes it later when space runs low. A failed
// copy leaves no partial destination behind.
func (r *Relocator) ProcessFinished(ctx context.Context, id controller.ID) error {
	item, err := r.client.Item(ctx, id, controller.InfoFields...)
	if err != nil {
		return err
	}
	log := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldItemHash, string(id)),
		logging.String("name", item.Name))

	if !item.Complete {
		log.Warn("item is not complete, refusing to process")
		return services.Wrap(services.ErrSafety, "relocation", "process",
			"item reported incomplete", nil)
	}

	dst := r.DestinationPath(item)
	log.Info("processing finished item",
		logging.String("source", item.Path),
		logging.String(logging.FieldPath, dst))

	if err := r.engine.CopyAndVerify(ctx, item.Path, dst, item.IsMultiFile); err != nil {
		if cleanupErr := r.engine.CleanupDestination(dst); cleanupErr != nil {
			log.Warn("destination cleanup failed", logging.Error(cleanupErr))
		}
		return err
	}

	if err := r.notifier.RescanCompleted(ctx, item.Label, id, dst); err != nil {
		log.Warn("rescan notification failed", logging.Error(err))
	}
	log.Info("finished item processed", logging.String(logging.FieldPath, dst))
	return nil
}

// Relocate moves an item off the fast tier: copy and verify to the capacity
// tier, repoint the controller, safety-check the source, delete it, and
// resume the item if it was active. The source survives any failure before
// the delete stage.
func (r *Relocator) Relocate(ctx context.Context, item *controller.Item) (result Result, err error) {
	log := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldItemHash, string(item.ID)),
		logging.String("name", item.Name))
	result.State = StateIdle

	wasActive := false
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("relocation panicked",
				logging.String(logging.FieldState, result.State.String()),
				logging.Any("panic", rec))
			err = services.Wrap(services.ErrTransient, "relocation", "relocate",
				fmt.Sprintf("panic in state %s", result.State), nil)
		}
		if wasActive {
			result.ResumeAttempted = true
			if r.dryRun {
				log.Info("dry run: would resume item")
			} else if startErr := r.client.Start(ctx, item.ID); startErr != nil {
				log.Warn("failed to resume item", logging.Error(startErr))
			}
		}
		if err != nil {
			// State keeps the stage that failed.
			log.Error("relocation failed",
				logging.String(logging.FieldState, result.State.String()),
				logging.Error(err))
		} else {
			result.State = StateDone
		}
	}()

	active, err := r.client.IsActive(ctx, item.ID)
	if err != nil {
		return result, err
	}
	if active {
		log.Info("stopping active item before relocation")
		if r.dryRun {
			log.Info("dry run: would stop item")
		} else {
			if err = r.client.Stop(ctx, item.ID); err != nil {
				return result, err
			}
			wasActive = true
			sleepCtx(ctx, r.stopSettle)
		}
	}

	dst := r.DestinationPath(item)
	result.State = StateDestinationCheck
	log.Info("relocating item",
		logging.String("source", item.Path),
		logging.String(logging.FieldPath, dst))

	// A crash after a prior delete can leave the destination in place with
	// no source. That run still needs the repoint re-issued.
	_, srcStatErr := os.Lstat(item.Path)
	srcMissing := os.IsNotExist(srcStatErr)
	if srcMissing {
		if _, dstErr := os.Lstat(dst); dstErr != nil {
			return result, services.Wrap(services.ErrSafety, "relocation", "relocate",
				"source and destination both missing", nil)
		}
		log.Info("source absent with destination present, skipping copy")
	} else {
		result.State = StateCopying
		if err = r.engine.CopyAndVerify(ctx, item.Path, dst, item.IsMultiFile); err != nil {
			return result, err
		}
		result.State = StateVerifying
	}

	// The repoint is issued even when the copy was skipped because an
	// earlier run may have verified the destination without ever updating
	// the controller.
	result.State = StateControllerRepoint
	newDir := r.DestinationDir(item)
	if r.dryRun {
		log.Info("dry run: would repoint controller", logging.String("directory", newDir))
	} else {
		if err = r.client.SetDirectory(ctx, item.ID, newDir); err != nil {
			return result, err
		}
		sleepCtx(ctx, r.repointSettle)
	}

	result.State = StateSourceSafetyCheck
	contained, gone, safetyErr := r.sourceContained(item.Path)
	if safetyErr != nil {
		return result, safetyErr
	}
	if gone {
		log.Info("source already absent, nothing to delete")
		return result, nil
	}
	if !contained {
		return result, services.Wrap(services.ErrSafety, "relocation", "delete",
			fmt.Sprintf("source %s resolves outside fast tier %s", item.Path, r.fastDir), nil)
	}

	result.State = StateSourceDelete
	if r.dryRun {
		log.Info("dry run: would delete source", logging.String("source", item.Path))
		return result, nil
	}
	if err = r.remove(item.Path); err != nil {
		return result, services.Wrap(services.ErrTransient, "relocation", "delete",
			"remove fast-tier source", err)
	}
	result.Deleted = true
	log.Info("source deleted", logging.String("source", item.Path))
	return result, nil
}

// sourceContained resolves symlinks and reports whether path lives inside the
// fast tier. gone is true when the path no longer exists.
func (r *Relocator) sourceContained(path string) (contained, gone bool, err error) {
	realSrc, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, true, nil
		}
		return false, false, services.Wrap(services.ErrSafety, "relocation", "safety-check",
			"resolve source path", err)
	}
	realFast, err := filepath.EvalSymlinks(r.fastDir)
	if err != nil {
		return false, false, services.Wrap(services.ErrSafety, "relocation", "safety-check",
			"resolve fast tier root", err)
	}
	if realSrc == realFast {
		// Deleting the tier root is never acceptable.
		return false, false, nil
	}
	rel, err := filepath.Rel(realFast, realSrc)
	if err != nil {
		return false, false, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, false, nil
	}
	return true, false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
