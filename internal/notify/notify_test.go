package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shuttle/internal/controller"
	"shuttle/internal/services"
	"shuttle/internal/testsupport"
)

func TestRescanCompletedHitsManualImport(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("downloadId")
		gotKey = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArr("sonarr", server.URL, "secret", "sonarr"))
	cfg.Notifications.Enabled = true
	svc := NewService(cfg, false, nil)

	id := controller.ID(strings.Repeat("a", 40))
	if err := svc.RescanCompleted(context.Background(), "sonarr", id, "/capacity/sonarr/show"); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if gotPath != "/api/v3/manualimport" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery != string(id) {
		t.Fatalf("downloadId = %q, want %q", gotQuery, id)
	}
	if gotKey != "secret" {
		t.Fatalf("api key = %q", gotKey)
	}
}

func TestRescanCompletedLabelMatchIsCaseInsensitive(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArr("radarr", server.URL, "secret", "Radarr"))
	cfg.Notifications.Enabled = true
	svc := NewService(cfg, false, nil)

	id := controller.ID(strings.Repeat("b", 40))
	if err := svc.RescanCompleted(context.Background(), "radarr", id, "/capacity/radarr/film"); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
}

func TestRescanCompletedUnknownLabelIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unknown label must not reach any service")
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArr("sonarr", server.URL, "secret", "sonarr"))
	cfg.Notifications.Enabled = true
	svc := NewService(cfg, false, nil)

	id := controller.ID(strings.Repeat("c", 40))
	if err := svc.RescanCompleted(context.Background(), "misc", id, "/capacity/misc/thing"); err != nil {
		t.Fatalf("rescan: %v", err)
	}
}

func TestRescanCompletedErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArr("sonarr", server.URL, "secret", "sonarr"))
	cfg.Notifications.Enabled = true
	svc := NewService(cfg, false, nil)

	id := controller.ID(strings.Repeat("d", 40))
	err := svc.RescanCompleted(context.Background(), "sonarr", id, "/capacity/sonarr/show")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestDisabledNotificationsAreNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.Enabled = false
	svc := NewService(cfg, false, nil)

	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
}

func TestDryRunSkipsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry run must not issue requests")
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithArr("sonarr", server.URL, "secret", "sonarr"))
	cfg.Notifications.Enabled = true
	svc := NewService(cfg, true, nil)

	id := controller.ID(strings.Repeat("e", 40))
	if err := svc.RescanCompleted(context.Background(), "sonarr", id, "/capacity/sonarr/show"); err != nil {
		t.Fatalf("rescan: %v", err)
	}
}
