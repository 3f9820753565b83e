// Package services wires the pipeline stages behind a single facade the
// CLI and operational surfaces call into.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/collab"
	"github.com/remedystack/remedy-engine/internal/engine"
	"github.com/remedystack/remedy-engine/internal/history"
	"github.com/remedystack/remedy-engine/internal/metrics"
	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// RemedyService is the facade over the diagnose-and-remediate pipeline.
// History and hub collaborators are optional; a nil store or client
// disables that concern.
type RemedyService struct {
	logger       *slog.Logger
	catalog      *catalog.Catalog
	matcher      *engine.Matcher
	correlator   *engine.Correlator
	analyzer     *engine.Analyzer
	resolver     *engine.Resolver
	orchestrator *engine.Orchestrator
	store        *history.Store
	hub          *collab.HubClient
	host         string
	latencies    *utils.LatencyTracker
}

// NewRemedyService constructs the service facade.
func NewRemedyService(logger *slog.Logger, cat *catalog.Catalog, orchestrator *engine.Orchestrator,
	store *history.Store, hub *collab.HubClient, host string) *RemedyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemedyService{
		logger:       logger,
		catalog:      cat,
		matcher:      engine.NewMatcher(logger),
		correlator:   engine.NewCorrelator(logger),
		analyzer:     engine.NewAnalyzer(logger),
		resolver:     engine.NewResolver(logger),
		orchestrator: orchestrator,
		store:        store,
		hub:          hub,
		host:         host,
		latencies:    utils.NewLatencyTracker(1024),
	}
}

// MatchPatterns runs only the pattern-matching stage.
func (s *RemedyService) MatchPatterns(events []models.Event, maxIssues int) []models.MatchedIssue {
	start := time.Now()
	issues := s.matcher.Match(events, s.catalog.IssuePatterns, maxIssues)
	metrics.ObserveStage("match", time.Since(start))
	metrics.AddIssuesMatched(len(issues))
	return issues
}

// Correlate runs only the co-occurrence stage.
func (s *RemedyService) Correlate(events []models.Event, opts engine.CorrelatorOptions) []models.CorrelationPair {
	start := time.Now()
	pairs := s.correlator.Correlate(events, opts)
	metrics.ObserveStage("correlate", time.Since(start))
	return pairs
}

// AnalyzeRootCauses runs matching plus root-cause analysis.
func (s *RemedyService) AnalyzeRootCauses(events []models.Event, maxIssues, maxPerIssue int) []models.IssueCauses {
	issues := s.MatchPatterns(events, maxIssues)
	start := time.Now()
	causes := s.analyzer.Analyze(issues, s.catalog.RCARules, maxPerIssue)
	metrics.ObserveStage("analyze", time.Since(start))
	return causes
}

// ResolveActions runs the pipeline up to action resolution without
// executing anything.
func (s *RemedyService) ResolveActions(events []models.Event, maxIssues, maxPerIssue, maxPerInput int) []models.ResolvedItem {
	causes := s.AnalyzeRootCauses(events, maxIssues, maxPerIssue)
	inputs := make([]any, 0, len(causes))
	for i := range causes {
		inputs = append(inputs, causes[i])
	}
	start := time.Now()
	items := s.resolver.Resolve(inputs, s.catalog.RemediationRules, maxPerInput)
	metrics.ObserveStage("resolve", time.Since(start))
	return items
}

// Run executes the full pipeline, then persists and publishes the report.
// Persistence and publication failures are logged, never fatal.
func (s *RemedyService) Run(ctx context.Context, events []models.Event, opts engine.RunOptions) models.RunReport {
	start := time.Now()
	report := s.orchestrator.Run(ctx, events, s.catalog, opts)
	duration := time.Since(start)

	s.latencies.Observe(duration)
	metrics.ObserveRun(duration, string(report.Status))
	for _, item := range report.Items {
		for _, outcome := range item.Actions {
			if outcome.Execution != nil {
				metrics.ObserveAction(string(outcome.Execution.Status))
			}
		}
	}
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("run latency", slog.Int("samples", count), slog.Duration("p95", p95))
	}

	if s.store != nil {
		if err := s.store.SaveReport(ctx, report); err != nil {
			s.logger.Error("persisting run report failed", slog.String("run_id", report.RunID), slog.Any("error", err))
		}
	}
	if s.hub != nil {
		if err := s.hub.PublishRunReport(ctx, s.host, report); err != nil {
			s.logger.Warn("publishing run report failed", slog.Any("error", err))
		}
	}
	return report
}

// Recommendations asks the advisory hub for hints on the current batch.
func (s *RemedyService) Recommendations(ctx context.Context, events []models.Event, issues []models.MatchedIssue) ([]collab.Recommendation, error) {
	if s.hub == nil {
		return nil, nil
	}
	return s.hub.FetchRecommendations(ctx, s.host, collab.Summarize(events), collab.Digest(issues))
}
