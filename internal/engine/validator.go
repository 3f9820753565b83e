package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/remedystack/remedy-engine/internal/models"
)

// ServiceStateProber reports the current state of a host service. Absent
// services return ErrServiceNotFound.
type ServiceStateProber interface {
	State(ctx context.Context, service string) (string, error)
}

// ErrServiceNotFound marks a probe for a service that does not exist.
var ErrServiceNotFound = errors.New("service not found")

// Best-effort classifiers over free-text success criteria. Deliberately a
// small fixed grammar, not a natural-language parser.
var (
	criteriaServiceState = regexp.MustCompile(`(?i)service\s+'([^']+)'\s+should\s+be\s+'([^']+)'`)
	criteriaEventLog     = regexp.MustCompile(`(?i)event\s+id\s+(\d+).*source\s+'([^']+)'`)
	expectedContains     = regexp.MustCompile(`(?i)^contains\s+"([^"]*)"$`)
)

// Validator derives and runs the checks confirming an action succeeded.
type Validator struct {
	logger   *slog.Logger
	registry *FunctionRegistry
	prober   ServiceStateProber
	shell    string
}

// NewValidator constructs a Validator. registry and prober may be nil;
// steps needing them then fail with NotFound.
func NewValidator(logger *slog.Logger, registry *FunctionRegistry, prober ServiceStateProber) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger, registry: registry, prober: prober, shell: "/bin/sh"}
}

// Validate derives the steps for action, runs them in order and aggregates
// the overall status.
func (v *Validator) Validate(ctx context.Context, action models.ResolvedAction, overrides []models.ValidationRule) models.ValidationReport {
	steps := v.DeriveSteps(action, overrides)
	report := models.ValidationReport{ActionID: action.ActionID}
	if len(steps) == 0 {
		report.Status = models.ReportSkippedNoSteps
		return report
	}

	for i := range steps {
		v.runStep(ctx, &steps[i])
	}
	report.Steps = steps
	report.Status = Aggregate(steps)
	return report
}

// DeriveSteps applies the derivation precedence: explicit override rules
// for the action id (Replace or AppendDerived), then steps parsed from the
// free-text success criteria, then a single manual check.
func (v *Validator) DeriveSteps(action models.ResolvedAction, overrides []models.ValidationRule) []models.ValidationStep {
	derived := v.parseCriteria(action)

	for _, rule := range overrides {
		if rule.ActionID != action.ActionID {
			continue
		}
		explicit := make([]models.ValidationStep, 0, len(rule.Steps))
		for _, spec := range rule.Steps {
			explicit = append(explicit, models.ValidationStep{
				ID:       spec.ID,
				ActionID: action.ActionID,
				Type:     spec.Type,
				Target:   spec.Target,
				Expected: spec.Expected,
				Status:   models.StepNotRun,
			})
		}
		if rule.MergeMode == models.MergeAppendDerived {
			return append(explicit, derived...)
		}
		return explicit
	}

	if len(derived) > 0 {
		return derived
	}

	return []models.ValidationStep{{
		ID:       action.ActionID + "-manual",
		ActionID: action.ActionID,
		Type:     models.ValidateManual,
		Target:   action.Title,
		Expected: action.SuccessCriteria,
		Status:   models.StepNotRun,
		Notes:    "no classifiable success criteria",
	}}
}

// parseCriteria classifies the success-criteria text against the fixed
// grammar. Unclassifiable text yields no steps.
func (v *Validator) parseCriteria(action models.ResolvedAction) []models.ValidationStep {
	criteria := strings.TrimSpace(action.SuccessCriteria)
	if criteria == "" {
		return nil
	}

	var steps []models.ValidationStep
	if m := criteriaServiceState.FindStringSubmatch(criteria); m != nil {
		steps = append(steps, models.ValidationStep{
			ID:       action.ActionID + "-service-state",
			ActionID: action.ActionID,
			Type:     models.ValidateServiceState,
			Target:   m[1],
			Expected: m[2],
			Status:   models.StepNotRun,
		})
	}
	if m := criteriaEventLog.FindStringSubmatch(criteria); m != nil {
		steps = append(steps, models.ValidationStep{
			ID:       action.ActionID + "-eventlog",
			ActionID: action.ActionID,
			Type:     models.ValidateEventLogQuery,
			Target:   m[2],
			Expected: "event id " + m[1],
			Status:   models.StepNotRun,
		})
	}
	return steps
}

func (v *Validator) runStep(ctx context.Context, step *models.ValidationStep) {
	switch step.Type {
	case models.ValidateServiceState:
		v.runServiceState(ctx, step)
	case models.ValidateEventLogQuery:
		// Requires external telemetry access the engine does not model.
		step.Status = models.StepRequiresManualChk
		step.Notes = "event log queries are not implemented"
	case models.ValidateScript:
		v.runScriptStep(ctx, step)
	case models.ValidateFunction:
		v.runFunctionStep(ctx, step)
	case models.ValidateManual:
		step.Status = models.StepRequiresManual
	default:
		step.Status = models.StepExecutionError
		step.Notes = fmt.Sprintf("unknown validation type %q", step.Type)
	}
}

func (v *Validator) runServiceState(ctx context.Context, step *models.ValidationStep) {
	if v.prober == nil {
		step.Status = models.StepNotFound
		step.Notes = "no service prober configured"
		return
	}
	state, err := v.prober.State(ctx, step.Target)
	if err != nil {
		step.Status = models.StepNotFound
		step.Notes = err.Error()
		return
	}
	step.Actual = state
	if strings.EqualFold(state, step.Expected) {
		step.Status = models.StepSuccess
		return
	}
	step.Status = models.StepFailed
	step.Notes = fmt.Sprintf("service state %q, expected %q", state, step.Expected)
}

func (v *Validator) runScriptStep(ctx context.Context, step *models.ValidationStep) {
	if _, err := os.Stat(step.Target); err != nil {
		step.Status = models.StepNotFound
		step.Notes = fmt.Sprintf("script %q not found", step.Target)
		return
	}

	cmd := exec.CommandContext(ctx, v.shell, step.Target)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			step.Status = models.StepExecutionError
			step.Notes = err.Error()
			return
		}
	}

	step.Actual = strings.TrimSpace(stdout.String())
	v.evaluateExpected(step, exitCode, stderr.String())
}

func (v *Validator) runFunctionStep(ctx context.Context, step *models.ValidationStep) {
	fn, ok := v.registry.Lookup(step.Target)
	if !ok {
		step.Status = models.StepNotFound
		step.Notes = fmt.Sprintf("function %q not registered", step.Target)
		return
	}
	output, err := fn(ctx, nil)
	step.Actual = strings.TrimSpace(output)
	errText := ""
	exitCode := 0
	if err != nil {
		errText = err.Error()
		exitCode = 1
	}
	v.evaluateExpected(step, exitCode, errText)
}

// evaluateExpected applies the expected-result grammar: $true/$false
// literals, exit-code-zero, Contains "<substr>", Regex:<pattern>, or
// default success when no errors were produced.
func (v *Validator) evaluateExpected(step *models.ValidationStep, exitCode int, errText string) {
	expected := strings.TrimSpace(step.Expected)
	switch {
	case strings.EqualFold(expected, "$true"):
		step.Status = boolStatus(strings.EqualFold(step.Actual, "true"))
	case strings.EqualFold(expected, "$false"):
		step.Status = boolStatus(strings.EqualFold(step.Actual, "false"))
	case strings.EqualFold(expected, "exit-code-zero"):
		step.Status = boolStatus(exitCode == 0)
		if exitCode != 0 {
			step.Notes = fmt.Sprintf("exit code %d", exitCode)
		}
	case expectedContains.MatchString(expected):
		substr := expectedContains.FindStringSubmatch(expected)[1]
		step.Status = boolStatus(strings.Contains(step.Actual, substr))
	case strings.HasPrefix(expected, "Regex:"):
		re, err := regexp.Compile(strings.TrimPrefix(expected, "Regex:"))
		if err != nil {
			step.Status = models.StepExecutionError
			step.Notes = fmt.Sprintf("bad expected regex: %v", err)
			return
		}
		step.Status = boolStatus(re.MatchString(step.Actual))
	default:
		step.Status = boolStatus(exitCode == 0 && errText == "")
		if errText != "" {
			step.Notes = errText
		}
	}
}

func boolStatus(ok bool) models.StepStatus {
	if ok {
		return models.StepSuccess
	}
	return models.StepFailed
}

// Aggregate folds step statuses into the overall report status.
func Aggregate(steps []models.ValidationStep) models.ReportStatus {
	if len(steps) == 0 {
		return models.ReportSkippedNoSteps
	}

	var manual, notRun, success int
	for _, step := range steps {
		switch step.Status {
		case models.StepFailed, models.StepNotFound, models.StepExecutionError:
			return models.ReportFailed
		case models.StepRequiresManual, models.StepRequiresManualChk:
			manual++
		case models.StepNotRun:
			notRun++
		case models.StepSuccess:
			success++
		}
	}

	switch {
	case manual > 0:
		return models.ReportRequiresManual
	case notRun > 0:
		return models.ReportPartialExecution
	case success == len(steps):
		return models.ReportSuccess
	default:
		return models.ReportPartialAttention
	}
}
