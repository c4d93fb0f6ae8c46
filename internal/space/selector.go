package space

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"shuttle/internal/controller"
	"shuttle/internal/logging"
)

// Candidate is a completed fast-tier item eligible for relocation.
type Candidate struct {
	Item        controller.Item
	SizeGiB     float64
	CompletedAt int64
}

// Selector ranks relocation candidates by completion age.
type Selector struct {
	client  controller.Client
	fastDir string
	logger  *slog.Logger
}

func NewSelector(client controller.Client, fastDir string, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Selector{client: client, fastDir: fastDir, logger: logger}
}

// Candidates lists completed items whose payload still lives under the fast
// tier, oldest finish first. Items with no recorded finish time are skipped
// with a warning; relocating something the controller has not finished
// accounting for risks data loss.
func (s *Selector) Candidates(ctx context.Context) ([]Candidate, error) {
	items, err := s.client.Items(ctx, controller.CandidateFields...)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(items))
	for _, item := range items {
		if !item.Complete {
			continue
		}
		if !strings.HasPrefix(item.Directory, s.fastDir) {
			continue
		}
		if item.CompletedAt <= 0 {
			s.logger.Warn("skipping candidate with no finish timestamp",
				logging.String(logging.FieldItemHash, string(item.ID)),
				logging.String("name", item.Name))
			continue
		}
		candidates = append(candidates, Candidate{
			Item:        item,
			SizeGiB:     BytesToGiB(item.SizeBytes),
			CompletedAt: item.CompletedAt,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CompletedAt < candidates[j].CompletedAt
	})
	return candidates, nil
}
