package models

import "time"

// ImplementationKind enumerates how a remediation action is carried out.
type ImplementationKind string

const (
	KindScript     ImplementationKind = "Script"
	KindFunction   ImplementationKind = "Function"
	KindExecutable ImplementationKind = "Executable"
	KindManual     ImplementationKind = "Manual"
)

// KnownKind reports whether k is part of the closed kind set.
func KnownKind(k ImplementationKind) bool {
	switch k {
	case KindScript, KindFunction, KindExecutable, KindManual:
		return true
	}
	return false
}

// RemediationRule maps an issue or action id to a concrete remediation.
// Parameter template values are either literals or dotted path expressions
// into the triggering context.
type RemediationRule struct {
	AppliesTo            string             `yaml:"appliesTo"`
	ActionID             string             `yaml:"actionId"`
	Title                string             `yaml:"title"`
	Description          string             `yaml:"description"`
	Kind                 ImplementationKind `yaml:"kind"`
	Target               string             `yaml:"target"`
	Parameters           map[string]string  `yaml:"parameters"`
	RequiresConfirmation bool               `yaml:"requiresConfirmation"`
	Impact               string             `yaml:"impact"`
	SuccessCriteria      string             `yaml:"successCriteria"`
	RollbackScript       string             `yaml:"rollbackScript"`
}

// ResolvedAction is a remediation rule with its parameters resolved against
// the triggering context. Built once per (input item, rule) pair; immutable.
type ResolvedAction struct {
	ActionID             string
	Title                string
	Description          string
	Kind                 ImplementationKind
	Target               string
	Parameters           map[string]string
	RequiresConfirmation bool
	Impact               string
	SuccessCriteria      string
	RollbackScript       string
}

// ResolvedItem groups all actions resolved for a single input item.
type ResolvedItem struct {
	LookupID string
	Issue    *MatchedIssue
	Actions  []ResolvedAction
}

// ApprovalStatus enumerates approval gate outcomes.
type ApprovalStatus string

const (
	ApprovalApproved        ApprovalStatus = "Approved"
	ApprovalDenied          ApprovalStatus = "Denied"
	ApprovalUserQuit        ApprovalStatus = "UserQuit"
	ApprovalErrInvalidInput ApprovalStatus = "ErrorInvalidInput"
	ApprovalErrPromptFailed ApprovalStatus = "ErrorPromptFailed"
)

// ApprovalDecision records the gate outcome for one resolved action.
type ApprovalDecision struct {
	ActionID  string
	Status    ApprovalStatus
	Timestamp time.Time
	Approver  string
}

// ExecutionStatus enumerates executor outcomes.
type ExecutionStatus string

const (
	ExecSuccess           ExecutionStatus = "Success"
	ExecSuccessWithErrors ExecutionStatus = "SuccessWithErrors"
	ExecFailed            ExecutionStatus = "Failed"
	ExecManualRequired    ExecutionStatus = "ManualActionRequired"
	ExecSkippedDryRun     ExecutionStatus = "SkippedDryRun"
	ExecFailedBadInput    ExecutionStatus = "FailedInvalidInput"
)

// ExecutionResult captures one execution attempt against the managed host.
// ExitCode is set for executables only.
type ExecutionResult struct {
	ActionID        string
	Status          ExecutionStatus
	Output          string
	Errors          string
	ExitCode        *int
	Start           time.Time
	End             time.Time
	BackupPerformed bool
	BackupLocation  string
}
