package copyverify

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"shuttle/internal/logging"
	"shuttle/internal/services"
)

// Engine copies payloads between tiers and verifies the result.
type Engine struct {
	maxAttempts int
	verify      bool
	dryRun      bool
	logger      *slog.Logger

	copyFile func(src, dst string) error
	copyTree func(src, dst string) error
	remove   func(path string) error
}

// NewEngine returns an engine that tries each copy up to maxAttempts times.
// Values below one are clamped to a single attempt.
func NewEngine(maxAttempts int, verify, dryRun bool, logger *slog.Logger) *Engine {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Engine{
		maxAttempts: maxAttempts,
		verify:      verify,
		dryRun:      dryRun,
		logger:      logger,
	}
	e.copyFile = copyFile
	e.copyTree = e.copyTreeReal
	e.remove = os.RemoveAll
	return e
}

// CopyAndVerify copies src to dst and confirms the copy. A destination that
// already verifies against the source is accepted as-is; a destination that
// exists but does not verify is removed before the first attempt. The source
// is never modified.
func (e *Engine) CopyAndVerify(ctx context.Context, src, dst string, multi bool) error {
	if _, err := os.Lstat(dst); err == nil {
		ok, verr := e.VerifyCopy(src, dst, multi)
		if verr == nil && ok {
			e.logger.Info("destination already verified, skipping copy",
				logging.String(logging.FieldPath, dst))
			return nil
		}
		e.logger.Warn("removing unverified destination before copy",
			logging.String(logging.FieldPath, dst))
		if e.dryRun {
			e.logger.Info("dry run: would remove destination", logging.String(logging.FieldPath, dst))
		} else if err := e.remove(dst); err != nil {
			return services.Wrap(services.ErrTransient, "copyverify", "cleanup",
				"remove stale destination", err)
		}
	}

	if e.dryRun {
		e.logger.Info("dry run: would copy payload",
			logging.String("source", src), logging.String(logging.FieldPath, dst))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "copyverify", "copy",
			"create destination parent", err)
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 1 {
			if _, err := os.Lstat(dst); err == nil {
				if err := e.remove(dst); err != nil {
					lastErr = err
					continue
				}
			}
		}
		e.logger.Info("copying payload",
			logging.String("source", src),
			logging.String(logging.FieldPath, dst),
			logging.Int(logging.FieldAttempt, attempt))

		if err := e.runCopy(src, dst, multi); err != nil {
			lastErr = err
			e.logger.Warn("copy attempt failed",
				logging.Int(logging.FieldAttempt, attempt), logging.Error(err))
			continue
		}
		ok, err := e.VerifyCopy(src, dst, multi)
		if err != nil {
			lastErr = err
			e.logger.Warn("verification errored",
				logging.Int(logging.FieldAttempt, attempt), logging.Error(err))
			continue
		}
		if !ok {
			lastErr = fmt.Errorf("verification mismatch between %s and %s", src, dst)
			e.logger.Warn("verification mismatch", logging.Int(logging.FieldAttempt, attempt))
			continue
		}
		return nil
	}
	return services.Wrap(services.ErrTransient, "copyverify", "copy",
		fmt.Sprintf("copy failed after %d attempts", e.maxAttempts), lastErr)
}

func (e *Engine) runCopy(src, dst string, multi bool) error {
	if multi {
		return e.copyTree(src, dst)
	}
	return e.copyFile(src, dst)
}

// VerifyCopy reports whether dst is a faithful copy of src. Verification can
// be disabled in configuration, in which case existence of dst is enough.
func (e *Engine) VerifyCopy(src, dst string, multi bool) (bool, error) {
	if !e.verify {
		_, err := os.Lstat(dst)
		if err != nil {
			return false, nil
		}
		return true, nil
	}
	if multi {
		return e.verifyTree(src, dst)
	}
	return verifyFile(src, dst)
}

func verifyFile(src, dst string) (bool, error) {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return false, fmt.Errorf("stat source: %w", err)
	}
	dstInfo, err := os.Lstat(dst)
	if err != nil {
		return false, nil
	}
	if srcInfo.Size() < 0 {
		return false, nil
	}
	return srcInfo.Size() == dstInfo.Size(), nil
}

func (e *Engine) verifyTree(src, dst string) (bool, error) {
	srcStats, err := e.DirStats(src)
	if err != nil {
		return false, fmt.Errorf("walk source: %w", err)
	}
	dstStats, err := e.DirStats(dst)
	if err != nil {
		return false, nil
	}
	if srcStats.Size == 0 && dstStats.Size == 0 {
		return srcStats.Entries == dstStats.Entries, nil
	}
	return srcStats.Size == dstStats.Size &&
		srcStats.Entries == dstStats.Entries &&
		srcStats.Entries > 0, nil
}

// Stats summarizes a directory tree for verification.
type Stats struct {
	// Size is the total byte count of regular files; symlinks contribute
	// nothing.
	Size int64
	// Entries counts every filesystem object in the tree, the root
	// directory included.
	Entries int64
}

// DirStats walks path and totals file sizes and entry counts. Entries that
// cannot be read are skipped with a warning so one bad file does not abort the
// whole accounting.
func (e *Engine) DirStats(path string) (Stats, error) {
	root, err := os.Lstat(path)
	if err != nil {
		return Stats{}, err
	}
	if !root.IsDir() {
		return Stats{}, fmt.Errorf("%s is not a directory", path)
	}
	stats := Stats{Entries: 1}
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if p == path {
			return nil
		}
		if err != nil {
			e.logger.Warn("skipping unreadable entry",
				logging.String(logging.FieldPath, p), logging.Error(err))
			return nil
		}
		stats.Entries++
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				e.logger.Warn("skipping unreadable entry",
					logging.String(logging.FieldPath, p), logging.Error(err))
				stats.Entries--
				return nil
			}
			stats.Size += info.Size()
		}
		return nil
	})
	if walkErr != nil {
		return Stats{}, walkErr
	}
	return stats, nil
}

// CleanupDestination removes a partial or stale destination copy. Missing
// paths are not an error.
func (e *Engine) CleanupDestination(dst string) error {
	if _, err := os.Lstat(dst); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if e.dryRun {
		e.logger.Info("dry run: would remove destination", logging.String(logging.FieldPath, dst))
		return nil
	}
	e.logger.Info("removing destination copy", logging.String(logging.FieldPath, dst))
	return e.remove(dst)
}

const copyBufferSize = 1 << 20

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func (e *Engine) copyTreeReal(src, dst string) error {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			if err := os.RemoveAll(target); err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(p, target)
		}
	})
}
