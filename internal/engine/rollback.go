package engine

import (
	"fmt"
	"log/slog"

	"github.com/remedystack/remedy-engine/internal/models"
)

// Planner derives the rollback steps for an executed action. Plans are
// advisory: the engine records them but never runs them automatically.
type Planner struct {
	logger *slog.Logger
}

// NewPlanner constructs a Planner. logger may be nil.
func NewPlanner(logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{logger: logger}
}

// Plan resolves the undo steps for action with a three-way precedence:
// an explicit catalog rule for the action id, then the action's own
// rollback script, then a generated manual step.
func (p *Planner) Plan(action models.ResolvedAction, result models.ExecutionResult, rules []models.RollbackRule) []models.RollbackStep {
	for _, rule := range rules {
		if rule.ActionID != action.ActionID {
			continue
		}
		steps := make([]models.RollbackStep, 0, len(rule.Steps))
		for _, spec := range rule.Steps {
			step := models.RollbackStep{
				ID:          spec.ID,
				ActionID:    action.ActionID,
				Title:       spec.Title,
				Description: spec.Description,
				Kind:        spec.Kind,
				Target:      spec.Target,
				Parameters:  cloneParams(spec.Parameters),
			}
			if result.BackupPerformed && result.BackupLocation != "" {
				if step.Parameters == nil {
					step.Parameters = map[string]string{}
				}
				step.Parameters["BackupLocation"] = result.BackupLocation
			}
			steps = append(steps, step)
		}
		p.logger.Debug("rollback plan from catalog rule",
			"action_id", action.ActionID, "steps", len(steps))
		return steps
	}

	if action.RollbackScript != "" {
		step := models.RollbackStep{
			ID:          action.ActionID + "-rollback-script",
			ActionID:    action.ActionID,
			Title:       "Run rollback script",
			Description: fmt.Sprintf("Execute %s to undo %s.", action.RollbackScript, action.ActionID),
			Kind:        models.KindScript,
			Target:      action.RollbackScript,
		}
		if result.BackupPerformed && result.BackupLocation != "" {
			step.Parameters = map[string]string{"BackupLocation": result.BackupLocation}
		}
		return []models.RollbackStep{step}
	}

	description := fmt.Sprintf("Manually revert the changes made by %q.", action.Title)
	if result.BackupPerformed && result.BackupLocation != "" {
		description += fmt.Sprintf(" A pre-action backup is available at %s.", result.BackupLocation)
	}
	return []models.RollbackStep{{
		ID:          action.ActionID + "-rollback-manual",
		ActionID:    action.ActionID,
		Title:       "Manual rollback",
		Description: description,
		Kind:        models.KindManual,
	}}
}

func cloneParams(params map[string]string) map[string]string {
	if params == nil {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
