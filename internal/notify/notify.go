package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shuttle/internal/config"
	"shuttle/internal/controller"
	"shuttle/internal/logging"
	"shuttle/internal/services"
	"shuttle/internal/textutil"
)

// Service notifies downstream consumers about completed relocations.
type Service interface {
	// RescanCompleted asks the service responsible for label to import the
	// item now living at completedPath.
	RescanCompleted(ctx context.Context, label string, id controller.ID, completedPath string) error
}

type target struct {
	name   string
	url    string
	apiKey string
}

type arrService struct {
	targets map[string]target
	client  *http.Client
	dryRun  bool
	logger  *slog.Logger
}

type noopService struct{}

func (noopService) RescanCompleted(context.Context, string, controller.ID, string) error {
	return nil
}

// NewNop returns a notifier that does nothing.
func NewNop() Service {
	return noopService{}
}

// NewService builds a notifier from configuration. Disabled notifications
// yield a no-op service.
func NewService(cfg *config.Config, dryRun bool, logger *slog.Logger) Service {
	if !cfg.Notifications.Enabled {
		return noopService{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	targets := make(map[string]target)
	for name, arr := range map[string]config.Arr{"sonarr": cfg.Sonarr, "radarr": cfg.Radarr} {
		if arr.URL == "" || arr.Label == "" {
			continue
		}
		targets[strings.ToLower(arr.Label)] = target{
			name:   name,
			url:    strings.TrimRight(arr.URL, "/"),
			apiKey: arr.APIKey,
		}
	}
	return &arrService{
		targets: targets,
		client:  &http.Client{Timeout: timeout},
		dryRun:  dryRun,
		logger:  logger,
	}
}

func (s *arrService) RescanCompleted(ctx context.Context, label string, id controller.ID, completedPath string) error {
	tgt, ok := s.targets[strings.ToLower(label)]
	if !ok {
		s.logger.Info("no notification target for label",
			logging.String("label", label),
			logging.String(logging.FieldItemHash, string(id)))
		return nil
	}
	display := textutil.DisplayName(tgt.name)
	if s.dryRun {
		s.logger.Info("dry run: would request rescan",
			logging.String("service", display),
			logging.String(logging.FieldItemHash, string(id)))
		return nil
	}

	endpoint := fmt.Sprintf("%s/api/v3/manualimport?downloadId=%s",
		tgt.url, url.QueryEscape(string(id)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "rescan",
			fmt.Sprintf("build %s request", display), err)
	}
	req.Header.Set("X-Api-Key", tgt.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "rescan",
			fmt.Sprintf("reach %s", display), err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrTransient, "notify", "rescan",
			fmt.Sprintf("%s returned status %d", display, resp.StatusCode), nil)
	}
	s.logger.Info("rescan requested",
		logging.String("service", display),
		logging.String(logging.FieldItemHash, string(id)),
		logging.String(logging.FieldPath, completedPath))
	return nil
}
