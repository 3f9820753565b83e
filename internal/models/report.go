package models

import "time"

// RunMode controls how the orchestrator treats the approval gate.
type RunMode string

const (
	// ModeInteractive routes every confirmation-worthy action through the
	// decision channel.
	ModeInteractive RunMode = "Interactive"
	// ModeAutomatic treats every resolved action as pre-approved.
	ModeAutomatic RunMode = "Automatic"
)

// QuitScope decides how far an approval UserQuit reaches.
type QuitScope string

const (
	// QuitScopeItem abandons the remaining actions of the current item only.
	QuitScopeItem QuitScope = "item"
	// QuitScopeBatch stops the whole run; untouched items are reported as
	// skipped.
	QuitScopeBatch QuitScope = "batch"
)

// RunStatus enumerates overall run outcomes.
type RunStatus string

const (
	RunCompleted             RunStatus = "Completed"
	RunCompletedWithFailures RunStatus = "CompletedWithFailures"
	RunValidationFailures    RunStatus = "CompletedWithValidationFailures"
)

// ActionOutcome ties together everything that happened to one resolved
// action within an item.
type ActionOutcome struct {
	Action       ResolvedAction
	Approval     *ApprovalDecision
	Execution    *ExecutionResult
	Validation   *ValidationReport
	RollbackPlan []RollbackStep
}

// ItemResult is the per-input-item slice of the run report, rooted at the
// originating event.
type ItemResult struct {
	Index    int
	Issue    *MatchedIssue
	LookupID string
	Actions  []ActionOutcome
	Skipped  bool
	Note     string
}

// RunReport is the orchestrator's aggregated output for one invocation.
type RunReport struct {
	RunID        string
	Mode         RunMode
	QuitScope    QuitScope
	Started      time.Time
	Finished     time.Time
	Status       RunStatus
	Items        []ItemResult
	Correlations []CorrelationPair
}
