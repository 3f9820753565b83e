package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/models"
)

// RunOptions configures one orchestrated diagnose-and-remediate pass.
type RunOptions struct {
	Mode      models.RunMode
	QuitScope models.QuitScope

	DryRun      bool
	BackupFirst bool

	// MaxIssues caps matcher output for the whole batch; zero means
	// unlimited.
	MaxIssues int
	// MaxActionsPerItem caps resolver output per item; zero resolves all
	// applicable rules.
	MaxActionsPerItem int
	// MaxCausesPerIssue caps analyzer output per issue; zero keeps the
	// analyzer default of one.
	MaxCausesPerIssue int

	// Correlate enables the co-occurrence pass over the raw event batch.
	Correlate  bool
	Correlator CorrelatorOptions
}

// Orchestrator drives the full pipeline: match, correlate, analyze,
// resolve, then per action approve, execute, validate and plan rollback.
// A failure inside one item never aborts the others; only a batch-scoped
// user quit does.
type Orchestrator struct {
	logger    *slog.Logger
	matcher   *Matcher
	correl    *Correlator
	analyzer  *Analyzer
	resolver  *Resolver
	gate      *Gate
	executor  *Executor
	validator *Validator
	planner   *Planner
}

// NewOrchestrator wires the pipeline components. All components must be
// non-nil except gate, which may be nil when opts.Mode is always automatic.
func NewOrchestrator(logger *slog.Logger, matcher *Matcher, correl *Correlator, analyzer *Analyzer,
	resolver *Resolver, gate *Gate, executor *Executor, validator *Validator, planner *Planner) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:    logger,
		matcher:   matcher,
		correl:    correl,
		analyzer:  analyzer,
		resolver:  resolver,
		gate:      gate,
		executor:  executor,
		validator: validator,
		planner:   planner,
	}
}

// Run executes one full pass over events against cat and returns the
// aggregated report. The returned report always carries a terminal status;
// Run never returns early on per-item failures.
func (o *Orchestrator) Run(ctx context.Context, events []models.Event, cat *catalog.Catalog, opts RunOptions) models.RunReport {
	if opts.Mode == "" {
		opts.Mode = models.ModeInteractive
	}
	if opts.QuitScope == "" {
		opts.QuitScope = models.QuitScopeItem
	}

	report := models.RunReport{
		RunID:     uuid.NewString(),
		Mode:      opts.Mode,
		QuitScope: opts.QuitScope,
		Started:   time.Now().UTC(),
	}

	issues := o.matcher.Match(events, cat.IssuePatterns, opts.MaxIssues)
	o.logger.Info("pattern matching complete",
		"run_id", report.RunID, "events", len(events), "issues", len(issues))

	if opts.Correlate {
		report.Correlations = o.correl.Correlate(events, opts.Correlator)
	}

	causes := o.analyzer.Analyze(issues, cat.RCARules, opts.MaxCausesPerIssue)

	inputs := make([]any, 0, len(causes))
	for i := range causes {
		inputs = append(inputs, causes[i])
	}
	items := o.resolver.Resolve(inputs, cat.RemediationRules, opts.MaxActionsPerItem)

	batchQuit := false
	for i, item := range items {
		result := models.ItemResult{
			Index:    i,
			Issue:    item.Issue,
			LookupID: item.LookupID,
		}
		if batchQuit {
			result.Skipped = true
			result.Note = "run stopped by user"
			report.Items = append(report.Items, result)
			continue
		}
		if len(item.Actions) == 0 {
			result.Note = "no applicable remediation"
			report.Items = append(report.Items, result)
			continue
		}

		itemQuit := false
		for _, action := range item.Actions {
			if itemQuit {
				break
			}
			outcome := o.runAction(ctx, action, cat, opts)
			result.Actions = append(result.Actions, outcome)

			if outcome.Approval != nil && outcome.Approval.Status == models.ApprovalUserQuit {
				if opts.QuitScope == models.QuitScopeBatch {
					batchQuit = true
					result.Note = "run stopped by user"
				} else {
					result.Note = "remaining actions skipped by user"
				}
				itemQuit = true
			}
		}
		report.Items = append(report.Items, result)
	}

	report.Finished = time.Now().UTC()
	report.Status = deriveRunStatus(report.Items)
	o.logger.Info("run complete",
		"run_id", report.RunID, "status", string(report.Status), "items", len(report.Items))
	return report
}

// runAction takes one resolved action through approval, execution,
// validation and rollback planning.
func (o *Orchestrator) runAction(ctx context.Context, action models.ResolvedAction, cat *catalog.Catalog, opts RunOptions) models.ActionOutcome {
	outcome := models.ActionOutcome{Action: action}

	decision := o.decide(action, opts)
	outcome.Approval = &decision
	if decision.Status != models.ApprovalApproved {
		o.logger.Info("action not approved",
			"action_id", action.ActionID, "status", string(decision.Status))
		return outcome
	}

	execResult := o.executor.Execute(ctx, action, ExecuteOptions{
		DryRun:      opts.DryRun,
		BackupFirst: opts.BackupFirst,
	})
	outcome.Execution = &execResult

	switch execResult.Status {
	case models.ExecSuccess, models.ExecSuccessWithErrors:
		validation := o.validator.Validate(ctx, action, cat.ValidationRules)
		outcome.Validation = &validation
		outcome.RollbackPlan = o.planner.Plan(action, execResult, cat.RollbackRules)
	case models.ExecFailed:
		// A failed execution may still have mutated state part-way.
		outcome.RollbackPlan = o.planner.Plan(action, execResult, cat.RollbackRules)
	}
	return outcome
}

// decide routes an action through the approval gate. Automatic mode and
// actions not requiring confirmation are pre-approved without prompting.
func (o *Orchestrator) decide(action models.ResolvedAction, opts RunOptions) models.ApprovalDecision {
	if opts.Mode == models.ModeAutomatic || !action.RequiresConfirmation {
		return models.ApprovalDecision{
			ActionID:  action.ActionID,
			Status:    models.ApprovalApproved,
			Timestamp: time.Now().UTC(),
			Approver:  "automatic",
		}
	}
	if o.gate == nil {
		return models.ApprovalDecision{
			ActionID:  action.ActionID,
			Status:    models.ApprovalErrPromptFailed,
			Timestamp: time.Now().UTC(),
		}
	}
	return o.gate.Decide(action)
}

func deriveRunStatus(items []models.ItemResult) models.RunStatus {
	validationFailed := false
	for _, item := range items {
		for _, outcome := range item.Actions {
			if outcome.Execution != nil {
				switch outcome.Execution.Status {
				case models.ExecFailed, models.ExecFailedBadInput:
					return models.RunCompletedWithFailures
				}
			}
			// Only an outright Failed report demotes the run. Reports that
			// merely require manual confirmation or ran partially leave
			// the run Completed; their status stays visible on the item.
			if outcome.Validation != nil && outcome.Validation.Status == models.ReportFailed {
				validationFailed = true
			}
		}
	}
	if validationFailed {
		return models.RunValidationFailures
	}
	return models.RunCompleted
}
