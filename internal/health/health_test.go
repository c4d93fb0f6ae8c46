package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shuttle/internal/testsupport"
)

type stubPinger struct {
	version string
	err     error
}

func (p *stubPinger) Version(ctx context.Context) (string, error) {
	return p.version, p.err
}

func checkByName(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("no check named %q in %+v", name, report.Checks)
	return Check{}
}

func TestRunHealthyStack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/system/status" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArr("sonarr", server.URL, "secret", "sonarr"))
	runner := NewRunner(cfg, &stubPinger{version: "0.9.8"}, nil)

	report := runner.Run(context.Background())
	if !report.Healthy {
		t.Fatalf("report unhealthy: %+v", report.Checks)
	}
	controller := checkByName(t, report, "controller")
	if !controller.Healthy || controller.Detail != "version 0.9.8" {
		t.Fatalf("controller check = %+v", controller)
	}
	sonarr := checkByName(t, report, "Sonarr")
	if !sonarr.Healthy {
		t.Fatalf("sonarr check = %+v", sonarr)
	}
}

func TestRunControllerDownIsCritical(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := NewRunner(cfg, &stubPinger{err: errors.New("connection refused")}, nil)

	report := runner.Run(context.Background())
	if report.Healthy {
		t.Fatal("controller failure must fail the report")
	}
	controller := checkByName(t, report, "controller")
	if controller.Healthy || !controller.Critical {
		t.Fatalf("controller check = %+v", controller)
	}
}

func TestRunArrFailureIsNotCritical(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArr("radarr", server.URL, "bad", "radarr"))
	runner := NewRunner(cfg, &stubPinger{version: "0.9.8"}, nil)

	report := runner.Run(context.Background())
	if !report.Healthy {
		t.Fatal("library service trouble alone must not fail the report")
	}
	radarr := checkByName(t, report, "Radarr")
	if radarr.Healthy || radarr.Critical {
		t.Fatalf("radarr check = %+v", radarr)
	}
}

func TestStartupGraceMasksFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := NewRunner(cfg, &stubPinger{err: errors.New("still booting")}, nil)
	runner.MarkStarted()

	report := runner.Run(context.Background())
	if !report.InGrace {
		t.Fatal("grace window must be open right after MarkStarted")
	}
	if !report.Healthy {
		t.Fatal("failures during the grace window must not fail the report")
	}
}

func TestStartupGraceExpires(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := NewRunner(cfg, &stubPinger{err: errors.New("down")}, nil)
	runner.MarkStarted()
	runner.now = func() time.Time {
		return time.Now().Add(startupGrace + time.Minute)
	}

	report := runner.Run(context.Background())
	if report.InGrace {
		t.Fatal("grace window must close after the deadline")
	}
	if report.Healthy {
		t.Fatal("expired grace must expose the failure")
	}
}
