package health

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shuttle/internal/config"
	"shuttle/internal/logging"
	"shuttle/internal/space"
	"shuttle/internal/textutil"
)

// Check is one probe result.
type Check struct {
	Name    string
	Healthy bool
	// Critical checks fail the whole report; informational ones only warn.
	Critical bool
	Detail   string
}

// Report aggregates a health run.
type Report struct {
	Checks  []Check
	Healthy bool
	// InGrace is set while the startup grace window is open; failures do
	// not count against the report during it.
	InGrace bool
}

// Pinger probes the download controller.
type Pinger interface {
	Version(ctx context.Context) (string, error)
}

const startupGrace = 180 * time.Second

// Runner executes health probes against a configuration.
type Runner struct {
	cfg    *config.Config
	pinger Pinger
	client *http.Client
	logger *slog.Logger

	now func() time.Time
}

func NewRunner(cfg *config.Config, pinger Pinger, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		pinger: pinger,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		now:    time.Now,
	}
}

func (r *Runner) graceFilePath() string {
	return filepath.Join(r.cfg.Paths.StateDir, "started_at")
}

// MarkStarted records process start for the grace window. Best effort.
func (r *Runner) MarkStarted() {
	path := r.graceFilePath()
	if err := os.WriteFile(path, []byte(r.now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		r.logger.Warn("failed to record startup time", logging.Error(err))
	}
}

func (r *Runner) inGraceWindow() bool {
	data, err := os.ReadFile(r.graceFilePath())
	if err != nil {
		return false
	}
	started, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	return r.now().Sub(started) < startupGrace
}

// Run executes all probes. The report is healthy when every critical check
// passes, or unconditionally during the startup grace window.
func (r *Runner) Run(ctx context.Context) Report {
	report := Report{InGrace: r.inGraceWindow()}

	report.Checks = append(report.Checks, r.checkStorage()...)
	report.Checks = append(report.Checks, r.checkSpace()...)
	report.Checks = append(report.Checks, r.checkController(ctx))
	report.Checks = append(report.Checks, r.checkArrs(ctx)...)

	report.Healthy = true
	for _, check := range report.Checks {
		if check.Critical && !check.Healthy {
			report.Healthy = false
			break
		}
	}
	if !report.Healthy && report.InGrace {
		report.Healthy = true
	}
	return report
}

func (r *Runner) checkStorage() []Check {
	checks := make([]Check, 0, 2)
	for _, probe := range []struct {
		name string
		path string
	}{
		{"fast tier writable", r.cfg.Paths.FastDir},
		{"capacity tier writable", r.cfg.Paths.CapacityDir},
	} {
		check := Check{Name: probe.name, Critical: true}
		switch err := unix.Access(probe.path, unix.W_OK); err {
		case nil:
			check.Healthy = true
			check.Detail = probe.path
		default:
			check.Detail = fmt.Sprintf("%s: %v", probe.path, err)
		}
		checks = append(checks, check)
	}
	return checks
}

func (r *Runner) checkSpace() []Check {
	checks := make([]Check, 0, 2)
	for _, probe := range []struct {
		name     string
		path     string
		critical bool
	}{
		{"fast tier free space", r.cfg.Paths.FastDir, true},
		{"capacity tier free space", r.cfg.Paths.CapacityDir, false},
	} {
		check := Check{Name: probe.name, Critical: probe.critical}
		if free, ok := space.AvailableGiB(probe.path); ok {
			check.Healthy = true
			check.Detail = fmt.Sprintf("%.1f GiB free", free)
		} else {
			check.Detail = fmt.Sprintf("statfs failed for %s", probe.path)
		}
		checks = append(checks, check)
	}
	return checks
}

func (r *Runner) checkController(ctx context.Context) Check {
	check := Check{Name: "controller", Critical: true}
	if r.pinger == nil {
		check.Detail = "no controller client configured"
		return check
	}
	version, err := r.pinger.Version(ctx)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	check.Healthy = true
	check.Detail = "version " + version
	return check
}

func (r *Runner) checkArrs(ctx context.Context) []Check {
	var checks []Check
	for _, svc := range []struct {
		name string
		arr  config.Arr
	}{
		{"sonarr", r.cfg.Sonarr},
		{"radarr", r.cfg.Radarr},
	} {
		arr := svc.arr
		if arr.URL == "" {
			continue
		}
		display := textutil.DisplayName(svc.name)
		check := Check{Name: display, Critical: false}
		status, err := r.probeArr(ctx, arr)
		if err != nil {
			check.Detail = err.Error()
		} else if status < 200 || status >= 300 {
			check.Detail = fmt.Sprintf("status %d", status)
		} else {
			check.Healthy = true
			check.Detail = "reachable"
		}
		checks = append(checks, check)
	}
	return checks
}

func (r *Runner) probeArr(ctx context.Context, arr config.Arr) (int, error) {
	endpoint := strings.TrimRight(arr.URL, "/") + "/api/v3/system/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Api-Key", arr.APIKey)
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	return resp.StatusCode, nil
}
