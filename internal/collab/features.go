// Package collab holds the engine's host and fleet collaborators: the
// advisory hub client, the service prober, the backup runner and the
// event feature summarizer they share.
package collab

import (
	"sort"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

// EventWindowSummary condenses a raw event batch into the features the
// advisory hub scores against.
type EventWindowSummary struct {
	Total        int            `json:"total"`
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	TopSources   []FieldCount   `json:"top_sources"`
	SeverityHist map[string]int `json:"severity_histogram"`
}

// FieldCount is one (value, occurrences) pair of a summarized field.
type FieldCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

const topSourceLimit = 5

// Summarize builds the feature summary for a batch. Events without a
// parsable timestamp still count toward totals and histograms.
func Summarize(events []models.Event) EventWindowSummary {
	summary := EventWindowSummary{
		Total:        len(events),
		SeverityHist: make(map[string]int),
	}

	sources := make(map[string]int)
	for _, event := range events {
		if at, ok := event.Time("TimeCreated"); ok {
			if summary.From.IsZero() || at.Before(summary.From) {
				summary.From = at
			}
			if at.After(summary.To) {
				summary.To = at
			}
		}
		if source, ok := event.String("Source"); ok && source != "" {
			sources[source]++
		}
		if severity, ok := event.String("Severity"); ok && severity != "" {
			summary.SeverityHist[severity]++
		}
	}

	summary.TopSources = topCounts(sources, topSourceLimit)
	return summary
}

// IssueDigest condenses matched issues for publication alongside a run
// report.
type IssueDigest struct {
	PatternCounts []FieldCount `json:"pattern_counts"`
	Severities    []FieldCount `json:"severities"`
}

// Digest aggregates issues by pattern and severity.
func Digest(issues []models.MatchedIssue) IssueDigest {
	patterns := make(map[string]int)
	severities := make(map[string]int)
	for _, issue := range issues {
		patterns[issue.PatternID]++
		severities[string(issue.Severity)]++
	}
	return IssueDigest{
		PatternCounts: topCounts(patterns, 0),
		Severities:    topCounts(severities, 0),
	}
}

// topCounts orders by count descending, value ascending for ties. limit 0
// keeps everything.
func topCounts(counts map[string]int, limit int) []FieldCount {
	out := make([]FieldCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, FieldCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
