package engine

import (
	"log/slog"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/pathwalk"
)

// Resolver maps issues and causes to concrete remediation actions with
// resolved parameters.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve accepts heterogeneous inputs: bare identifier strings, matched
// issues, issue-cause containers, or event/map records exposing a
// suggested or matched id. Items without a usable lookup id are skipped
// with a warning. All actions resolved for one input are grouped together.
func (r *Resolver) Resolve(inputs []any, rules []models.RemediationRule, maxPerInput int) []models.ResolvedItem {
	items := make([]models.ResolvedItem, 0, len(inputs))
	for i, input := range inputs {
		lookupID, issue, ok := r.lookupID(input)
		if !ok {
			r.logger.Warn("input yields no lookup id, skipping", slog.Int("index", i))
			continue
		}

		context := buildContext(input, issue)
		item := models.ResolvedItem{LookupID: lookupID, Issue: issue}

		for _, rule := range rules {
			if rule.AppliesTo != lookupID && rule.ActionID != lookupID {
				continue
			}
			item.Actions = append(item.Actions, r.resolveAction(rule, context))
			if maxPerInput > 0 && len(item.Actions) >= maxPerInput {
				break
			}
		}

		items = append(items, item)
	}
	return items
}

// lookupID applies the precedence: literal string, explicit suggested
// action, top-ranked root-cause rule, matched-issue pattern id, generic
// issue id field.
func (r *Resolver) lookupID(input any) (string, *models.MatchedIssue, bool) {
	switch v := input.(type) {
	case string:
		if v == "" {
			return "", nil, false
		}
		return v, nil, true
	case models.MatchedIssue:
		return r.lookupID(&v)
	case *models.MatchedIssue:
		if v == nil {
			return "", nil, false
		}
		if v.SuggestedAction != "" {
			return v.SuggestedAction, v, true
		}
		if v.PatternID != "" {
			return v.PatternID, v, true
		}
		return "", nil, false
	case models.IssueCauses:
		issue := v.Issue
		if issue.SuggestedAction != "" {
			return issue.SuggestedAction, &issue, true
		}
		if len(v.Candidates) > 0 && v.Candidates[0].RuleID != "" {
			return v.Candidates[0].RuleID, &issue, true
		}
		if issue.PatternID != "" {
			return issue.PatternID, &issue, true
		}
		return "", nil, false
	case models.Event:
		return lookupFromFields(v)
	case map[string]any:
		return lookupFromFields(models.Event(v))
	default:
		return "", nil, false
	}
}

func lookupFromFields(e models.Event) (string, *models.MatchedIssue, bool) {
	for _, field := range []string{"SuggestedAction", "MatchedIssueId", "IssueId"} {
		if id, ok := e.String(field); ok && id != "" {
			return id, nil, true
		}
	}
	return "", nil, false
}

// buildContext is the root the path walker navigates. The triggering input
// is exposed as MatchedItem; the issue's event additionally as Event.
func buildContext(input any, issue *models.MatchedIssue) map[string]any {
	context := map[string]any{"MatchedItem": input}
	if issue != nil {
		context["MatchedItem"] = *issue
		context["Issue"] = *issue
		context["Event"] = issue.Event
	}
	return context
}

func (r *Resolver) resolveAction(rule models.RemediationRule, context map[string]any) models.ResolvedAction {
	resolved := make(map[string]string, len(rule.Parameters))
	for key, template := range rule.Parameters {
		resolved[key] = r.resolveParameter(rule.ActionID, key, template, context)
	}
	return models.ResolvedAction{
		ActionID:             rule.ActionID,
		Title:                rule.Title,
		Description:          rule.Description,
		Kind:                 rule.Kind,
		Target:               rule.Target,
		Parameters:           resolved,
		RequiresConfirmation: rule.RequiresConfirmation,
		Impact:               rule.Impact,
		SuccessCriteria:      rule.SuccessCriteria,
		RollbackScript:       rule.RollbackScript,
	}
}

// resolveParameter evaluates path-expression templates through the
// restricted walker; any navigation failure falls back to the literal
// template string verbatim.
func (r *Resolver) resolveParameter(actionID, key, template string, context map[string]any) string {
	if !pathwalk.IsPathExpression(template) {
		return template
	}
	value, err := pathwalk.Resolve(context, template)
	if err != nil {
		r.logger.Warn("parameter path resolution failed, using literal",
			slog.String("action", actionID), slog.String("parameter", key), slog.Any("error", err))
		return template
	}
	return value
}
