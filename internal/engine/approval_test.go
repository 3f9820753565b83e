package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/remedystack/remedy-engine/internal/models"
)

func manualAction() models.ResolvedAction {
	return models.ResolvedAction{
		ActionID:        "REM_Test",
		Title:           "Test action",
		Kind:            models.KindManual,
		Description:     "does things",
		SuccessCriteria: "things done",
		Parameters:      map[string]string{"ServiceName": "Spooler"},
	}
}

type erroringChannel struct{}

func (erroringChannel) RequestDecision(models.ResolvedAction) (models.ApprovalDecision, error) {
	return models.ApprovalDecision{}, errors.New("terminal unavailable")
}

// promptCountingChannel fails the test if it is ever consulted.
type promptCountingChannel struct {
	t *testing.T
}

func (p promptCountingChannel) RequestDecision(models.ResolvedAction) (models.ApprovalDecision, error) {
	p.t.Fatal("malformed action must not reach the decision channel")
	return models.ApprovalDecision{}, nil
}

func TestGateRejectsMalformedWithoutPrompting(t *testing.T) {
	gate := NewGate(promptCountingChannel{t: t}, 0, nil)

	cases := []models.ResolvedAction{
		{ActionID: "", Kind: models.KindManual},
		{ActionID: "REM_Test", Kind: "Telepathy"},
	}
	for _, action := range cases {
		decision := gate.Decide(action)
		if decision.Status != models.ApprovalErrInvalidInput {
			t.Fatalf("status = %q, want %q", decision.Status, models.ApprovalErrInvalidInput)
		}
	}
}

func TestGateChannelErrorBecomesPromptFailed(t *testing.T) {
	gate := NewGate(erroringChannel{}, 0, nil)
	decision := gate.Decide(manualAction())
	if decision.Status != models.ApprovalErrPromptFailed {
		t.Fatalf("status = %q, want %q", decision.Status, models.ApprovalErrPromptFailed)
	}
}

func TestGateNilChannelBecomesPromptFailed(t *testing.T) {
	gate := NewGate(nil, 0, nil)
	if got := gate.Decide(manualAction()).Status; got != models.ApprovalErrPromptFailed {
		t.Fatalf("status = %q, want %q", got, models.ApprovalErrPromptFailed)
	}
}

func TestAutoChannelAlwaysApproves(t *testing.T) {
	gate := NewGate(AutoChannel{}, 0, nil)
	decision := gate.Decide(manualAction())
	if decision.Status != models.ApprovalApproved {
		t.Fatalf("status = %q, want approved", decision.Status)
	}
	if decision.Approver != "automatic" {
		t.Fatalf("approver = %q, want automatic", decision.Approver)
	}
}

func TestConsoleChannelAnswers(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  models.ApprovalStatus
	}{
		{"approve short", "a\n", models.ApprovalApproved},
		{"approve yes", "yes\n", models.ApprovalApproved},
		{"deny", "n\n", models.ApprovalDenied},
		{"empty input denies", "\n", models.ApprovalDenied},
		{"quit", "q\n", models.ApprovalUserQuit},
		{"invalid then approve", "maybe\na\n", models.ApprovalApproved},
		{"details then deny", "d\nn\n", models.ApprovalDenied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			channel := &ConsoleChannel{In: strings.NewReader(tc.input), Out: &out}
			decision, err := channel.RequestDecision(manualAction())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decision.Status != tc.want {
				t.Fatalf("status = %q, want %q", decision.Status, tc.want)
			}
			if decision.Approver != "console" {
				t.Fatalf("approver = %q, want console", decision.Approver)
			}
		})
	}
}

func TestConsoleChannelSequentialDecisionsShareReader(t *testing.T) {
	var out bytes.Buffer
	channel := &ConsoleChannel{In: strings.NewReader("a\nn\nq\n"), Out: &out}

	want := []models.ApprovalStatus{
		models.ApprovalApproved,
		models.ApprovalDenied,
		models.ApprovalUserQuit,
	}
	for i, status := range want {
		decision, err := channel.RequestDecision(manualAction())
		if err != nil {
			t.Fatalf("decision %d: unexpected error: %v", i+1, err)
		}
		if decision.Status != status {
			t.Fatalf("decision %d: status = %q, want %q", i+1, decision.Status, status)
		}
	}
}

func TestConsoleChannelDetailsPrintsParameters(t *testing.T) {
	var out bytes.Buffer
	channel := &ConsoleChannel{In: strings.NewReader("d\nn\n"), Out: &out}
	if _, err := channel.RequestDecision(manualAction()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "ServiceName = Spooler") {
		t.Fatalf("details output missing parameters:\n%s", out.String())
	}
}

func TestConsoleChannelExhaustedReaderErrors(t *testing.T) {
	var out bytes.Buffer
	channel := &ConsoleChannel{In: strings.NewReader(""), Out: &out}
	if _, err := channel.RequestDecision(manualAction()); err == nil {
		t.Fatal("expected an error on exhausted input")
	}
}
