package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the remediation engine.
type Config struct {
	Ops      OpsConfig      `yaml:"ops"`
	Engine   EngineConfig   `yaml:"engine"`
	Catalogs CatalogsConfig `yaml:"catalogs"`
	Approval ApprovalConfig `yaml:"approval"`
	Executor ExecutorConfig `yaml:"executor"`
	Hub      HubConfig      `yaml:"hub"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// OpsConfig controls the operational HTTP listener (health and metrics).
type OpsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// EngineConfig tunes the pipeline stages.
type EngineConfig struct {
	MaxIssues         int               `yaml:"maxIssues"`
	MaxActionsPerItem int               `yaml:"maxActionsPerItem"`
	MaxCausesPerIssue int               `yaml:"maxCausesPerIssue"`
	QuitScope         string            `yaml:"quitScope"`
	Correlation       CorrelationConfig `yaml:"correlation"`
}

// CorrelationConfig tunes the co-occurrence pass.
type CorrelationConfig struct {
	Enabled       bool    `yaml:"enabled"`
	WindowSeconds float64 `yaml:"windowSeconds"`
	PrimaryID     string  `yaml:"primaryId"`
	MinCount      int     `yaml:"minCount"`
	IDField       string  `yaml:"idField"`
	TimeField     string  `yaml:"timeField"`
}

// CatalogsConfig points at the five rule catalog files.
type CatalogsConfig struct {
	Patterns    string `yaml:"patterns"`
	RootCauses  string `yaml:"rootCauses"`
	Remediation string `yaml:"remediation"`
	Validation  string `yaml:"validation"`
	Rollback    string `yaml:"rollback"`
}

// ApprovalConfig controls the interactive gate.
type ApprovalConfig struct {
	// Timeout is advisory only; it is logged, never enforced.
	Timeout  time.Duration `yaml:"timeout"`
	Approver string        `yaml:"approver"`
}

// ExecutorConfig controls action execution.
type ExecutorConfig struct {
	DryRun      bool   `yaml:"dryRun"`
	BackupFirst bool   `yaml:"backupFirst"`
	BackupDir   string `yaml:"backupDir"`
}

// HubConfig configures the fleet advisory hub integration.
type HubConfig struct {
	Enabled             bool          `yaml:"enabled"`
	BaseURL             string        `yaml:"baseURL"`
	RecommendationsPath string        `yaml:"recommendationsPath"`
	ReportsPath         string        `yaml:"reportsPath"`
	Timeout             time.Duration `yaml:"timeout"`
}

// HistoryConfig controls run-report persistence.
type HistoryConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	// File appends logs to the named file; empty keeps stderr.
	File string `yaml:"file"`
}

// Load initialises Config from a YAML file and optional environment
// overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REMEDY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Ops: OpsConfig{
			Enabled:         false,
			Address:         ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			MaxCausesPerIssue: 1,
			QuitScope:         "item",
			Correlation: CorrelationConfig{
				WindowSeconds: 300,
				MinCount:      2,
				IDField:       "EventId",
				TimeField:     "TimeCreated",
			},
		},
		Catalogs: CatalogsConfig{
			Patterns:    "configs/catalogs/patterns.yaml",
			RootCauses:  "configs/catalogs/root-causes.yaml",
			Remediation: "configs/catalogs/remediation.yaml",
			Validation:  "configs/catalogs/validation.yaml",
			Rollback:    "configs/catalogs/rollback.yaml",
		},
		Approval: ApprovalConfig{
			Timeout: 0,
		},
		Executor: ExecutorConfig{
			BackupDir: "/var/lib/remedy-engine/backups",
		},
		Hub: HubConfig{
			RecommendationsPath: "/api/v1/recommendations",
			ReportsPath:         "/api/v1/reports",
			Timeout:             5 * time.Second,
		},
		History: HistoryConfig{
			Enabled:   true,
			Path:      "/var/lib/remedy-engine/history.db",
			Retention: 90 * 24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REMEDY_OPS_ADDRESS"); v != "" {
		cfg.Ops.Address = v
	}
	if v := os.Getenv("REMEDY_OPS_ENABLED"); v != "" {
		cfg.Ops.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("REMEDY_MAX_ISSUES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxIssues = n
		}
	}
	if v := os.Getenv("REMEDY_QUIT_SCOPE"); v != "" {
		cfg.Engine.QuitScope = v
	}
	if v := os.Getenv("REMEDY_CATALOG_PATTERNS"); v != "" {
		cfg.Catalogs.Patterns = v
	}
	if v := os.Getenv("REMEDY_CATALOG_ROOT_CAUSES"); v != "" {
		cfg.Catalogs.RootCauses = v
	}
	if v := os.Getenv("REMEDY_CATALOG_REMEDIATION"); v != "" {
		cfg.Catalogs.Remediation = v
	}
	if v := os.Getenv("REMEDY_CATALOG_VALIDATION"); v != "" {
		cfg.Catalogs.Validation = v
	}
	if v := os.Getenv("REMEDY_CATALOG_ROLLBACK"); v != "" {
		cfg.Catalogs.Rollback = v
	}
	if v := os.Getenv("REMEDY_APPROVAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Approval.Timeout = d
		}
	}
	if v := os.Getenv("REMEDY_DRY_RUN"); v != "" {
		cfg.Executor.DryRun = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("REMEDY_BACKUP_FIRST"); v != "" {
		cfg.Executor.BackupFirst = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("REMEDY_BACKUP_DIR"); v != "" {
		cfg.Executor.BackupDir = v
	}
	if v := os.Getenv("REMEDY_HUB_BASE_URL"); v != "" {
		cfg.Hub.BaseURL = v
		cfg.Hub.Enabled = true
	}
	if v := os.Getenv("REMEDY_HUB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Hub.Timeout = d
		}
	}
	if v := os.Getenv("REMEDY_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("REMEDY_HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("REMEDY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REMEDY_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("REMEDY_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}
