package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/collab"
	"github.com/remedystack/remedy-engine/internal/config"
	"github.com/remedystack/remedy-engine/internal/deploy"
	"github.com/remedystack/remedy-engine/internal/engine"
	"github.com/remedystack/remedy-engine/internal/history"
	"github.com/remedystack/remedy-engine/internal/metrics"
	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/ops"
	"github.com/remedystack/remedy-engine/internal/services"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// Populated at build time via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *catalog.Catalog
	store   *history.Store
	hub     *collab.HubClient
	service *services.RemedyService
}

func main() {
	var configPath string
	var eventsPath string
	var a app

	root := &cobra.Command{
		Use:           "remedy-engine",
		Short:         "Declarative diagnose-and-remediate engine for managed hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.boot(configPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.store != nil {
				a.store.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	root.PersistentFlags().StringVar(&eventsPath, "events", "-", "events JSON file ('-' for stdin)")

	root.AddCommand(
		a.runCommand(&eventsPath),
		a.matchCommand(&eventsPath),
		a.correlateCommand(&eventsPath),
		a.resolveCommand(&eventsPath),
		a.recommendCommand(&eventsPath),
		a.historyCommand(),
		versionCommand(),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// boot loads configuration, logging, catalogs and collaborators. It is
// shared by every data-bearing subcommand.
func (a *app) boot(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	if cfg.Logging.File != "" {
		a.logger = utils.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		a.logger = utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	}
	slog.SetDefault(a.logger)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	a.catalog = catalog.Load(catalog.Paths{
		IssuePatterns:    cfg.Catalogs.Patterns,
		RCARules:         cfg.Catalogs.RootCauses,
		RemediationRules: cfg.Catalogs.Remediation,
		ValidationRules:  cfg.Catalogs.Validation,
		RollbackRules:    cfg.Catalogs.Rollback,
	}, a.logger)

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path, a.logger)
		if err != nil {
			a.logger.Warn("run history unavailable", slog.Any("error", err))
		} else {
			a.store = store
			if cfg.History.Retention > 0 {
				cutoff := time.Now().Add(-cfg.History.Retention)
				if _, err := store.Prune(context.Background(), cutoff); err != nil {
					a.logger.Warn("history pruning failed", slog.Any("error", err))
				}
			}
		}
	}

	if cfg.Hub.Enabled && cfg.Hub.BaseURL != "" {
		a.hub = collab.NewHubClient(cfg.Hub.BaseURL, cfg.Hub.RecommendationsPath, cfg.Hub.ReportsPath, cfg.Hub.Timeout)
	}

	host, _ := os.Hostname()
	a.service = services.NewRemedyService(a.logger, a.catalog, nil, a.store, a.hub, host)
	return nil
}

func (a *app) runCommand(eventsPath *string) *cobra.Command {
	var (
		automatic bool
		dryRun    bool
		backup    bool
		quitScope string
		correlate bool
		serveOps  bool
		parallel  int
	)

	cmd := &cobra.Command{
		Use:   "run [events.json ...]",
		Short: "Run the full diagnose-and-remediate pipeline over one or more event batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			batches, err := loadBatches(*eventsPath, args)
			if err != nil {
				return err
			}

			cfg := a.cfg
			registry := collab.BuiltinFunctions()
			prober := &collab.SystemctlProber{}
			var backupRunner engine.BackupRunner
			if cfg.Executor.BackupDir != "" {
				backupRunner = &collab.FileBackupRunner{Dir: cfg.Executor.BackupDir}
			}

			mode := models.ModeInteractive
			var channel engine.DecisionChannel
			if automatic {
				mode = models.ModeAutomatic
				channel = engine.AutoChannel{Approver: cfg.Approval.Approver}
			} else {
				channel = &engine.ConsoleChannel{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr(), Approver: cfg.Approval.Approver}
			}
			gate := engine.NewGate(channel, cfg.Approval.Timeout, a.logger)

			orchestrator := engine.NewOrchestrator(a.logger,
				engine.NewMatcher(a.logger),
				engine.NewCorrelator(a.logger),
				engine.NewAnalyzer(a.logger),
				engine.NewResolver(a.logger),
				gate,
				engine.NewExecutor(a.logger, registry, backupRunner),
				engine.NewValidator(a.logger, registry, prober),
				engine.NewPlanner(a.logger),
			)
			host, _ := os.Hostname()
			service := services.NewRemedyService(a.logger, a.catalog, orchestrator, a.store, a.hub, host)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var opsServer *ops.Server
			if serveOps || cfg.Ops.Enabled {
				opsServer, err = ops.NewServer(cfg.Ops, a.store, nil, a.logger)
				if err != nil {
					return fmt.Errorf("start ops server: %w", err)
				}
				go func() {
					a.logger.Info("ops server listening", slog.String("address", opsServer.Address()))
					if serveErr := opsServer.Start(); serveErr != nil {
						a.logger.Error("ops server exited", slog.Any("error", serveErr))
					}
				}()
			}

			scope := models.QuitScope(quitScope)
			if scope == "" {
				scope = models.QuitScope(cfg.Engine.QuitScope)
			}

			opts := engine.RunOptions{
				Mode:              mode,
				QuitScope:         scope,
				DryRun:            dryRun || cfg.Executor.DryRun,
				BackupFirst:       backup || cfg.Executor.BackupFirst,
				MaxIssues:         cfg.Engine.MaxIssues,
				MaxActionsPerItem: cfg.Engine.MaxActionsPerItem,
				MaxCausesPerIssue: cfg.Engine.MaxCausesPerIssue,
				Correlate:         correlate || cfg.Engine.Correlation.Enabled,
				Correlator: engine.CorrelatorOptions{
					WindowSeconds: cfg.Engine.Correlation.WindowSeconds,
					PrimaryID:     cfg.Engine.Correlation.PrimaryID,
					MinCount:      cfg.Engine.Correlation.MinCount,
					IDField:       cfg.Engine.Correlation.IDField,
					TimeField:     cfg.Engine.Correlation.TimeField,
				},
			}

			var writeErr error
			if len(batches) == 1 {
				report := service.Run(ctx, batches[0].Events, opts)
				writeErr = writeJSON(cmd.OutOrStdout(), report)
			} else {
				if mode == models.ModeInteractive {
					// Concurrent console prompts interleave.
					parallel = 1
				}
				pool := deploy.NewPool(service, parallel, a.logger)
				results, err := pool.RunAll(ctx, batches, opts)
				if err != nil {
					return err
				}
				writeErr = writeJSON(cmd.OutOrStdout(), results)
			}

			if opsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ops.GracefulTimeout)
				opsServer.Shutdown(shutdownCtx)
				cancel()
			}

			return writeErr
		},
	}

	cmd.Flags().BoolVar(&automatic, "automatic", false, "pre-approve every action (no prompts)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and approve but do not execute")
	cmd.Flags().BoolVar(&backup, "backup", false, "take a best-effort backup before each action")
	cmd.Flags().StringVar(&quitScope, "quit-scope", "", "reach of an operator quit: item or batch")
	cmd.Flags().BoolVar(&correlate, "correlate", false, "include event co-occurrence analysis")
	cmd.Flags().BoolVar(&serveOps, "serve-ops", false, "expose health and metrics over HTTP during the run")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "batches processed concurrently (automatic mode only)")
	return cmd
}

func (a *app) matchCommand(eventsPath *string) *cobra.Command {
	var maxIssues int
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Classify events against the issue pattern catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadEvents(*eventsPath)
			if err != nil {
				return err
			}
			issues := a.service.MatchPatterns(events, maxIssues)
			return writeJSON(cmd.OutOrStdout(), issues)
		},
	}
	cmd.Flags().IntVar(&maxIssues, "max-issues", 0, "cap on reported issues (0 = unlimited)")
	return cmd
}

func (a *app) correlateCommand(eventsPath *string) *cobra.Command {
	var opts engine.CorrelatorOptions
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Find time-windowed co-occurrence between event identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadEvents(*eventsPath)
			if err != nil {
				return err
			}
			pairs := a.service.Correlate(events, opts)
			return writeJSON(cmd.OutOrStdout(), pairs)
		},
	}
	cmd.Flags().Float64Var(&opts.WindowSeconds, "window", 300, "full correlation window in seconds")
	cmd.Flags().StringVar(&opts.PrimaryID, "primary-id", "", "anchor identifier (default: most frequent)")
	cmd.Flags().IntVar(&opts.MinCount, "min-count", 1, "minimum co-occurrence count to report")
	cmd.Flags().StringVar(&opts.IDField, "id-field", "EventId", "event field carrying identity")
	cmd.Flags().StringVar(&opts.TimeField, "time-field", "TimeCreated", "event field carrying the timestamp")
	return cmd
}

func (a *app) resolveCommand(eventsPath *string) *cobra.Command {
	var maxPerInput int
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve remediation actions without executing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadEvents(*eventsPath)
			if err != nil {
				return err
			}
			items := a.service.ResolveActions(events, a.cfg.Engine.MaxIssues, a.cfg.Engine.MaxCausesPerIssue, maxPerInput)
			return writeJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVar(&maxPerInput, "max-actions", 0, "cap on actions per item (0 = all applicable)")
	return cmd
}

func (a *app) recommendCommand(eventsPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Ask the advisory hub for remediation hints on an event batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.hub == nil {
				return fmt.Errorf("advisory hub is not configured (set hub.baseURL or REMEDY_HUB_BASE_URL)")
			}
			events, err := loadEvents(*eventsPath)
			if err != nil {
				return err
			}
			issues := a.service.MatchPatterns(events, a.cfg.Engine.MaxIssues)
			recs, err := a.service.Recommendations(cmd.Context(), events, issues)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), recs)
		},
	}
}

func (a *app) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored run reports",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return fmt.Errorf("run history is disabled")
			}
			summaries, err := a.store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summaries)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one stored run report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return fmt.Errorf("run history is disabled")
			}
			report, err := a.store.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "remedy-engine %s (%s)\n", version, commit)
		},
	}
}

// loadEvents reads a JSON array of event objects from path, or stdin when
// path is "-".
func loadEvents(path string) ([]models.Event, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open events: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var events []models.Event
	if err := json.NewDecoder(reader).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// loadBatches builds one batch per named file, or a single batch from the
// --events flag when no files are given.
func loadBatches(eventsPath string, files []string) ([]deploy.Batch, error) {
	if len(files) == 0 {
		events, err := loadEvents(eventsPath)
		if err != nil {
			return nil, err
		}
		return []deploy.Batch{{Name: eventsPath, Events: events}}, nil
	}
	batches := make([]deploy.Batch, 0, len(files))
	for _, file := range files {
		events, err := loadEvents(file)
		if err != nil {
			return nil, err
		}
		batches = append(batches, deploy.Batch{Name: file, Events: events})
	}
	return batches, nil
}

func writeJSON(out io.Writer, payload any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
