// Package engine implements the diagnose-and-remediate pipeline stages.
package engine

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

// Matcher classifies events against declarative issue patterns.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher constructs a Matcher.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger}
}

// keywordState tracks cumulative keyword-rule hits across the batch so the
// pattern is only reported once minOccurrences is reached.
type keywordState struct {
	count   int
	pending []models.Event
}

// Match evaluates every rule against every event. maxIssues caps the total
// emitted issues; 0 means unlimited. Reaching the cap stops processing
// immediately, skipping the remaining rules of the current event and all
// remaining events.
func (m *Matcher) Match(events []models.Event, rules []models.PatternRule, maxIssues int) []models.MatchedIssue {
	issues := make([]models.MatchedIssue, 0)
	keywordStates := make(map[string]*keywordState)

	capped := func() bool { return maxIssues > 0 && len(issues) >= maxIssues }

	for _, event := range events {
		if capped() {
			break
		}
		for i := range rules {
			if capped() {
				break
			}
			rule := &rules[i]

			if rule.Keyword != nil {
				issues = m.matchKeyword(rule, event, keywordStates, issues, maxIssues)
				continue
			}

			if len(rule.Signatures) == 0 {
				m.logger.Warn("pattern rule has no signatures, skipping", slog.String("pattern", rule.ID))
				continue
			}

			if signaturesHold(rule.Signatures, event) {
				issues = append(issues, newIssue(rule, event))
			}
		}
	}

	return issues
}

func (m *Matcher) matchKeyword(rule *models.PatternRule, event models.Event, states map[string]*keywordState, issues []models.MatchedIssue, maxIssues int) []models.MatchedIssue {
	kw := rule.Keyword
	value, ok := event.Field(kw.Field)
	if !ok {
		return issues
	}
	text, isString := value.(string)
	if !isString {
		return issues
	}
	lowered := strings.ToLower(text)
	for _, keyword := range kw.Keywords {
		if !strings.Contains(lowered, strings.ToLower(keyword)) {
			return issues
		}
	}

	state, ok := states[rule.ID]
	if !ok {
		state = &keywordState{}
		states[rule.ID] = state
	}
	state.count++

	if state.count < kw.MinOccurrences {
		state.pending = append(state.pending, event)
		return issues
	}

	// Threshold reached: flush events recorded before the crossing, then
	// report each further satisfying event directly.
	for _, pending := range state.pending {
		if maxIssues > 0 && len(issues) >= maxIssues {
			return issues
		}
		issues = append(issues, newIssue(rule, pending))
	}
	state.pending = nil
	if maxIssues > 0 && len(issues) >= maxIssues {
		return issues
	}
	return append(issues, newIssue(rule, event))
}

func newIssue(rule *models.PatternRule, event models.Event) models.MatchedIssue {
	ts, ok := event.Time("TimeCreated")
	if !ok {
		ts = time.Now().UTC()
	}
	return models.MatchedIssue{
		PatternID:       rule.ID,
		Description:     rule.Description,
		Event:           event,
		Severity:        rule.Severity,
		SuggestedAction: rule.SuggestedAction,
		Timestamp:       ts,
	}
}

func signaturesHold(signatures []models.Signature, event models.Event) bool {
	for i := range signatures {
		if !signatureHolds(&signatures[i], event) {
			return false
		}
	}
	return true
}

func signatureHolds(sig *models.Signature, event models.Event) bool {
	switch sig.Operator {
	case models.OperatorEquals:
		return valuesEqual(event, sig)
	case models.OperatorNotEquals:
		return !valuesEqual(event, sig)
	case models.OperatorContains:
		actual, ok := event.String(sig.Field)
		if !ok {
			return false
		}
		expected := renderValue(sig.Value)
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case models.OperatorGreaterThan:
		actual, expected, ok := numericOperands(event, sig)
		return ok && actual > expected
	case models.OperatorLessThan:
		actual, expected, ok := numericOperands(event, sig)
		return ok && actual < expected
	case models.OperatorMatchesRegex:
		actual, ok := event.String(sig.Field)
		if !ok {
			return false
		}
		re := sig.Compiled
		if re == nil {
			compiled, err := regexp.Compile(renderValue(sig.Value))
			if err != nil {
				return false
			}
			re = compiled
		}
		return re.MatchString(actual)
	default:
		return false
	}
}

// valuesEqual compares numerically when both sides are numeric, otherwise
// against the rendered string forms.
func valuesEqual(event models.Event, sig *models.Signature) bool {
	if actual, expected, ok := numericOperands(event, sig); ok {
		return actual == expected
	}
	actual, ok := event.String(sig.Field)
	if !ok {
		return false
	}
	return actual == renderValue(sig.Value)
}

// numericOperands coerces both sides to float64. Non-numeric operands on
// either side report ok=false; comparison signatures then simply fail.
func numericOperands(event models.Event, sig *models.Signature) (float64, float64, bool) {
	actual, ok := event.Float(sig.Field)
	if !ok {
		return 0, 0, false
	}
	expected, ok := ruleValueFloat(sig.Value)
	if !ok {
		return 0, 0, false
	}
	return actual, expected, true
}

func ruleValueFloat(v any) (float64, bool) {
	return models.CoerceFloat(v)
}

func renderValue(v any) string {
	s, _ := models.RenderScalar(v)
	return s
}
