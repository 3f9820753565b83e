package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/collab"
	"github.com/remedystack/remedy-engine/internal/engine"
	"github.com/remedystack/remedy-engine/internal/history"
	"github.com/remedystack/remedy-engine/internal/models"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		IssuePatterns: []models.PatternRule{{
			ID:              "ServiceCrashUnexpected",
			Severity:        models.SeverityHigh,
			SuggestedAction: "REM_Restart",
			Signatures: []models.Signature{
				{Field: "EventId", Operator: models.OperatorEquals, Value: 7034},
			},
		}},
		RCARules: []models.RootCauseRule{{
			ID:               "RCA_Crash",
			AppliesToPattern: "ServiceCrashUnexpected",
			Confidence:       0.7,
		}},
		RemediationRules: []models.RemediationRule{{
			AppliesTo: "REM_Restart",
			ActionID:  "REM_Restart",
			Title:     "Restart",
			Kind:      models.KindManual,
		}},
	}
}

func testService(t *testing.T, withStore bool) (*RemedyService, *history.Store) {
	t.Helper()
	var store *history.Store
	if withStore {
		var err error
		store, err = history.Open(filepath.Join(t.TempDir(), "history.db"), nil)
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { store.Close() })
	}

	orchestrator := engine.NewOrchestrator(nil,
		engine.NewMatcher(nil), engine.NewCorrelator(nil), engine.NewAnalyzer(nil),
		engine.NewResolver(nil), nil,
		engine.NewExecutor(nil, nil, nil), engine.NewValidator(nil, nil, nil), engine.NewPlanner(nil))
	return NewRemedyService(nil, testCatalog(), orchestrator, store, nil, "test-host"), store
}

func crashEvents() []models.Event {
	return []models.Event{{
		"EventId":     7034,
		"TimeCreated": time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}
}

func TestMatchPatterns(t *testing.T) {
	service, _ := testService(t, false)
	issues := service.MatchPatterns(crashEvents(), 0)
	if len(issues) != 1 || issues[0].PatternID != "ServiceCrashUnexpected" {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestResolveActionsStopsBeforeExecution(t *testing.T) {
	service, _ := testService(t, false)
	items := service.ResolveActions(crashEvents(), 0, 0, 0)
	if len(items) != 1 || len(items[0].Actions) != 1 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].Actions[0].ActionID != "REM_Restart" {
		t.Fatalf("unexpected action: %+v", items[0].Actions[0])
	}
}

func TestRunPersistsReport(t *testing.T) {
	service, store := testService(t, true)

	report := service.Run(context.Background(), crashEvents(), engine.RunOptions{Mode: models.ModeAutomatic})
	if report.RunID == "" {
		t.Fatal("run id missing")
	}

	stored, err := store.GetReport(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("report not persisted: %v", err)
	}
	if stored.Status != report.Status {
		t.Fatalf("stored status %q != %q", stored.Status, report.Status)
	}
}

func TestRecommendationsQueriesHub(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"recommendations": []collab.Recommendation{{
				PatternID: "ServiceCrashUnexpected",
				ActionID:  "REM_Restart",
			}},
		})
	}))
	defer server.Close()

	hub := collab.NewHubClient(server.URL, "/v1/recommendations", "/v1/reports", time.Second)
	service := NewRemedyService(nil, testCatalog(), nil, nil, hub, "test-host")

	events := crashEvents()
	issues := service.MatchPatterns(events, 0)
	recs, err := service.Recommendations(context.Background(), events, issues)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].ActionID != "REM_Restart" {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}
}

func TestRecommendationsWithoutHub(t *testing.T) {
	service, _ := testService(t, false)
	recs, err := service.Recommendations(context.Background(), crashEvents(), nil)
	if err != nil || recs != nil {
		t.Fatalf("expected quiet no-op without a hub, got %v / %v", recs, err)
	}
}

func TestRunWithoutCollaborators(t *testing.T) {
	service, _ := testService(t, false)
	report := service.Run(context.Background(), crashEvents(), engine.RunOptions{Mode: models.ModeAutomatic})
	if report.Status == "" {
		t.Fatalf("report missing terminal status: %+v", report)
	}
}
