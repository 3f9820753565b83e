package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/remedystack/remedy-engine/internal/config"
	"github.com/remedystack/remedy-engine/internal/history"
	"github.com/remedystack/remedy-engine/internal/models"
)

func startTestServer(t *testing.T, store *history.Store) *Server {
	t.Helper()
	server, err := NewServer(config.OpsConfig{Address: "127.0.0.1:0", GracefulTimeout: time.Second}, store, prometheus.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go server.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})
	return server
}

func TestHealthz(t *testing.T) {
	server := startTestServer(t, nil)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", server.Address()))
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := startTestServer(t, nil)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", server.Address()))
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRunsEndpoints(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	report := models.RunReport{
		RunID:    "run-1",
		Mode:     models.ModeAutomatic,
		Status:   models.RunCompleted,
		Started:  time.Now().UTC(),
		Finished: time.Now().UTC(),
	}
	if err := store.SaveReport(context.Background(), report); err != nil {
		t.Fatalf("save report: %v", err)
	}

	server := startTestServer(t, store)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/runs", server.Address()))
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	defer resp.Body.Close()
	var listing struct {
		Runs []history.RunSummary `json:"runs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Runs) != 1 || listing.Runs[0].RunID != "run-1" {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	detail, err := http.Get(fmt.Sprintf("http://%s/api/v1/runs/run-1", server.Address()))
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	defer detail.Body.Close()
	var loaded models.RunReport
	if err := json.NewDecoder(detail.Body).Decode(&loaded); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if loaded.RunID != "run-1" {
		t.Fatalf("unexpected run: %+v", loaded)
	}

	missing, err := http.Get(fmt.Sprintf("http://%s/api/v1/runs/absent", server.Address()))
	if err != nil {
		t.Fatalf("get missing run: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", missing.StatusCode)
	}
}

func TestRunsDisabledWithoutStore(t *testing.T) {
	server := startTestServer(t, nil)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/runs", server.Address()))
	if err != nil {
		t.Fatalf("get runs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
