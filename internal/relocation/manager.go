package relocation

import (
	"context"
	"log/slog"

	"shuttle/internal/logging"
	"shuttle/internal/services"
	"shuttle/internal/space"
)

// Summary reports one reclamation pass.
type Summary struct {
	AvailableGiB float64
	NeededGiB    float64
	FreedGiB     float64
	Relocated    int
	Examined     int
}

// Manager runs space reclamation over the fast tier.
type Manager struct {
	relocator    *Relocator
	selector     *space.Selector
	fastDir      string
	thresholdGiB float64
	logger       *slog.Logger

	availableGiB func(path string) (float64, bool)
}

func NewManager(relocator *Relocator, selector *space.Selector, fastDir string,
	thresholdGiB int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		relocator:    relocator,
		selector:     selector,
		fastDir:      fastDir,
		thresholdGiB: float64(thresholdGiB),
		logger:       logger,
		availableGiB: space.AvailableGiB,
	}
}

// Reclaim relocates the oldest completed items until fast-tier free space is
// back above the configured floor. It stops at the first relocation failure
// so a persistent fault does not churn through the whole tier.
func (m *Manager) Reclaim(ctx context.Context) (Summary, error) {
	available, ok := m.availableGiB(m.fastDir)
	if !ok {
		return Summary{}, services.Wrap(services.ErrConfiguration, "relocation", "reclaim",
			"fast tier free space unavailable", nil)
	}
	summary := Summary{AvailableGiB: available}
	if available >= m.thresholdGiB {
		m.logger.Debug("free space above floor, nothing to reclaim",
			logging.Float64("available_gib", available),
			logging.Float64("threshold_gib", m.thresholdGiB))
		return summary, nil
	}
	summary.NeededGiB = m.thresholdGiB - available
	m.logger.Info("free space below floor, reclaiming",
		logging.Float64("available_gib", available),
		logging.Float64("needed_gib", summary.NeededGiB))

	candidates, err := m.selector.Candidates(ctx)
	if err != nil {
		return summary, err
	}
	if len(candidates) == 0 {
		m.logger.Warn("no relocation candidates while below free space floor")
		return summary, nil
	}

	for _, candidate := range candidates {
		if summary.FreedGiB >= summary.NeededGiB {
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Examined++
		item := candidate.Item
		result, err := m.relocator.Relocate(ctx, &item)
		if err != nil {
			m.logger.Error("reclamation halted on relocation failure",
				logging.String(logging.FieldItemHash, string(item.ID)),
				logging.String(logging.FieldState, result.State.String()),
				logging.Error(err))
			return summary, err
		}
		summary.Relocated++
		if result.Deleted {
			summary.FreedGiB += candidate.SizeGiB
		}
	}

	m.logger.Info("reclamation pass complete",
		logging.Int("relocated", summary.Relocated),
		logging.Float64("freed_gib", summary.FreedGiB))
	return summary, nil
}
