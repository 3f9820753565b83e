package models

// ValidationType enumerates the supported validation step mechanisms.
type ValidationType string

const (
	ValidateServiceState  ValidationType = "ServiceStateCheck"
	ValidateEventLogQuery ValidationType = "EventLogQuery"
	ValidateScript        ValidationType = "ScriptExecutionCheck"
	ValidateFunction      ValidationType = "FunctionCall"
	ValidateManual        ValidationType = "ManualCheck"
)

// KnownValidationType reports whether t is part of the closed set.
func KnownValidationType(t ValidationType) bool {
	switch t {
	case ValidateServiceState, ValidateEventLogQuery, ValidateScript,
		ValidateFunction, ValidateManual:
		return true
	}
	return false
}

// StepStatus enumerates per-step validation outcomes.
type StepStatus string

const (
	StepNotRun            StepStatus = "NotRun"
	StepSuccess           StepStatus = "Success"
	StepFailed            StepStatus = "Failed"
	StepNotFound          StepStatus = "NotFound"
	StepRequiresManual    StepStatus = "RequiresManualConfirmation"
	StepRequiresManualChk StepStatus = "RequiresManualCheck"
	StepExecutionError    StepStatus = "ExecutionError"
)

// MergeMode controls how explicit override steps combine with derived ones.
type MergeMode string

const (
	MergeReplace       MergeMode = "Replace"
	MergeAppendDerived MergeMode = "AppendDerived"
)

// ValidationRule is an explicit per-action override supplying validation
// steps from a catalog.
type ValidationRule struct {
	ActionID  string               `yaml:"actionId"`
	MergeMode MergeMode            `yaml:"mergeMode"`
	Steps     []ValidationStepSpec `yaml:"steps"`
}

// ValidationStepSpec is the catalog form of a validation step.
type ValidationStepSpec struct {
	ID       string         `yaml:"id"`
	Type     ValidationType `yaml:"type"`
	Target   string         `yaml:"target"`
	Expected string         `yaml:"expected"`
}

// ValidationStep is one executed (or pending) check confirming an action.
type ValidationStep struct {
	ID       string
	ActionID string
	Type     ValidationType
	Target   string
	Expected string
	Actual   string
	Status   StepStatus
	Notes    string
}

// ReportStatus enumerates aggregate validation outcomes.
type ReportStatus string

const (
	ReportSuccess          ReportStatus = "Success"
	ReportFailed           ReportStatus = "Failed"
	ReportRequiresManual   ReportStatus = "RequiresManualActionOrNotImplemented"
	ReportPartialExecution ReportStatus = "PartialExecution"
	ReportPartialAttention ReportStatus = "PartialSuccessRequiresAttention"
	ReportSkippedNoSteps   ReportStatus = "SkippedNoSteps"
)

// ValidationReport aggregates the ordered step results for one action.
type ValidationReport struct {
	ActionID string
	Status   ReportStatus
	Steps    []ValidationStep
}

// RollbackRule is an explicit per-action undo plan from a catalog.
type RollbackRule struct {
	ActionID string             `yaml:"actionId"`
	Steps    []RollbackStepSpec `yaml:"steps"`
}

// RollbackStepSpec is the catalog form of a rollback step.
type RollbackStepSpec struct {
	ID          string             `yaml:"id"`
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Kind        ImplementationKind `yaml:"kind"`
	Target      string             `yaml:"target"`
	Parameters  map[string]string  `yaml:"parameters"`
}

// RollbackStep is one derived undo operation for an executed action.
type RollbackStep struct {
	ID          string
	ActionID    string
	Title       string
	Description string
	Kind        ImplementationKind
	Target      string
	Parameters  map[string]string
}
