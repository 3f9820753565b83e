package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/remedystack/remedy-engine/internal/models"
)

// Analyzer maps matched issues to ranked root-cause candidates.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze selects the root-cause rules applying to each issue's pattern and
// ranks the candidates by confidence descending, keeping the top maxPerIssue
// (default 1). Evidence keywords only annotate: a candidate without evidence
// stays in the list at the rule's static confidence. Product owners flagged
// this for review; keep it until they decide otherwise.
func (a *Analyzer) Analyze(issues []models.MatchedIssue, rules []models.RootCauseRule, maxPerIssue int) []models.IssueCauses {
	if maxPerIssue < 1 {
		maxPerIssue = 1
	}

	results := make([]models.IssueCauses, 0, len(issues))
	for _, issue := range issues {
		candidates := make([]models.RootCauseCandidate, 0)
		for _, rule := range rules {
			if rule.AppliesToPattern != issue.PatternID {
				continue
			}
			found, summary := inspectEvidence(rule, issue.Event)
			candidates = append(candidates, models.RootCauseCandidate{
				RuleID:           rule.ID,
				Description:      rule.Description,
				Confidence:       rule.Confidence,
				EvidenceFound:    found,
				EvidenceSummary:  summary,
				NeedsDiagnostics: !found,
			})
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Confidence > candidates[j].Confidence
		})
		if len(candidates) > maxPerIssue {
			candidates = candidates[:maxPerIssue]
		}

		results = append(results, models.IssueCauses{Issue: issue, Candidates: candidates})
	}
	return results
}

// inspectEvidence checks every listed field for at least one keyword hit.
// All listed fields satisfied means evidence found; anything less is an
// annotation, never an exclusion.
func inspectEvidence(rule models.RootCauseRule, event models.Event) (bool, string) {
	if len(rule.EvidenceKeywords) == 0 {
		return false, "no evidence keywords defined"
	}

	fields := make([]string, 0, len(rule.EvidenceKeywords))
	for field := range rule.EvidenceKeywords {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var hits, misses []string
	for _, field := range fields {
		value, ok := event.Field(field)
		text, isString := "", false
		if ok {
			text, isString = value.(string)
		}
		if !ok || !isString {
			misses = append(misses, field)
			continue
		}
		lowered := strings.ToLower(text)
		matched := false
		for _, keyword := range rule.EvidenceKeywords[field] {
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				matched = true
				break
			}
		}
		if matched {
			hits = append(hits, field)
		} else {
			misses = append(misses, field)
		}
	}

	if len(misses) == 0 {
		return true, fmt.Sprintf("evidence found in %s", strings.Join(hits, ", "))
	}
	return false, fmt.Sprintf("no supporting evidence in %s", strings.Join(misses, ", "))
}
