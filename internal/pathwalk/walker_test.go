package pathwalk

import (
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

func TestIsPathExpression(t *testing.T) {
	cases := []struct {
		template string
		want     bool
	}{
		{"MatchedItem.Event.ServiceName", true},
		{"Issue.Causes[0].RuleID", true},
		{"A_1.B2", true},
		{"ServiceName", false},
		{"restart the spooler", false},
		{"Spooler", false},
		{"MatchedItem..Event", false},
		{"MatchedItem.Event[abc]", false},
		{"", false},
		{"1Field.Other", false},
	}
	for _, tc := range cases {
		if got := IsPathExpression(tc.template); got != tc.want {
			t.Errorf("IsPathExpression(%q)=%v, want %v", tc.template, got, tc.want)
		}
	}
}

type walkIssue struct {
	PatternID string
	Causes    []walkCause
}

type walkCause struct {
	RuleID     string
	Confidence float64
}

type walkContext struct {
	Issue  walkIssue
	Event  models.Event
	Params map[string]string
}

func walkRoot() walkContext {
	return walkContext{
		Issue: walkIssue{
			PatternID: "ServiceCrashUnexpected",
			Causes: []walkCause{
				{RuleID: "RCA_ServiceCrash_DependencyFailure", Confidence: 0.7},
				{RuleID: "RCA_ServiceCrash_FaultingModule", Confidence: 0.4},
			},
		},
		Event: models.Event{
			"ServiceName": "Spooler",
			"EventId":     7034,
			"Healthy":     false,
			"TimeCreated": time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		Params: map[string]string{"serviceName": "Spooler"},
	}
}

func TestResolve(t *testing.T) {
	root := walkRoot()
	cases := []struct {
		path string
		want string
	}{
		{"Issue.PatternID", "ServiceCrashUnexpected"},
		{"Issue.Causes[0].RuleID", "RCA_ServiceCrash_DependencyFailure"},
		{"Issue.Causes[1].Confidence", "0.4"},
		{"Event.ServiceName", "Spooler"},
		{"Event.EventId", "7034"},
		{"Event.Healthy", "false"},
		{"Event.TimeCreated", "2026-03-01T10:00:00Z"},
		{"Params.serviceName", "Spooler"},
	}
	for _, tc := range cases {
		got, err := Resolve(root, tc.path)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tc.path, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Resolve(%q)=%q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	root := walkRoot()
	paths := []string{
		"Issue.NoSuchField",
		"Event.Missing",
		"Issue.Causes[9].RuleID",
		"Issue.PatternID.Deeper",
		"Issue.Causes",
	}
	for _, path := range paths {
		if got, err := Resolve(root, path); err == nil {
			t.Errorf("Resolve(%q)=%q, want error", path, got)
		}
	}
}

func TestResolvePointerRoot(t *testing.T) {
	root := walkRoot()
	got, err := Resolve(&root, "Issue.PatternID")
	if err != nil {
		t.Fatalf("Resolve through pointer: %v", err)
	}
	if got != "ServiceCrashUnexpected" {
		t.Fatalf("got %q", got)
	}
}
