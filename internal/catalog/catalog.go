// Package catalog loads the declarative rule catalogs driving the engine.
// Catalogs are read once per run and immutable afterwards.
package catalog

import (
	"errors"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/remedystack/remedy-engine/internal/models"
)

// Paths names the YAML source for each catalog. Empty entries fall back to
// the built-in defaults alone.
type Paths struct {
	IssuePatterns    string `yaml:"issuePatterns"`
	RCARules         string `yaml:"rcaRules"`
	RemediationRules string `yaml:"remediationRules"`
	ValidationRules  string `yaml:"validationRules"`
	RollbackRules    string `yaml:"rollbackRules"`
}

// Catalog is the typed, validated in-memory rule set for one engine run.
type Catalog struct {
	IssuePatterns    []models.PatternRule
	RCARules         []models.RootCauseRule
	RemediationRules []models.RemediationRule
	ValidationRules  []models.ValidationRule
	RollbackRules    []models.RollbackRule

	// Quarantined counts entries rejected during load, per catalog name.
	Quarantined map[string]int
}

type issuePatternFile struct {
	IssuePatterns []models.PatternRule `yaml:"issuePatterns"`
}

type rcaRuleFile struct {
	RCARules []models.RootCauseRule `yaml:"rcaRules"`
}

type remediationRuleFile struct {
	RemediationRules []models.RemediationRule `yaml:"remediationRules"`
}

type validationRuleFile struct {
	ValidationRules []models.ValidationRule `yaml:"validationRules"`
}

type rollbackRuleFile struct {
	RollbackRules []models.RollbackRule `yaml:"rollbackRules"`
}

// Load builds the run catalog from the configured files merged over the
// compiled-in defaults. A missing or unparsable file is logged and its
// built-in set used alone; malformed entries are quarantined individually.
func Load(paths Paths, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	cat := &Catalog{Quarantined: make(map[string]int)}

	var patterns issuePatternFile
	if readCatalog(paths.IssuePatterns, "issuePatterns", &patterns, logger) {
		cat.IssuePatterns = patterns.IssuePatterns
	}
	cat.IssuePatterns = mergePatterns(cat.IssuePatterns, defaultIssuePatterns())
	cat.IssuePatterns = cat.validatePatterns(cat.IssuePatterns, logger)

	var rca rcaRuleFile
	if readCatalog(paths.RCARules, "rcaRules", &rca, logger) {
		cat.RCARules = rca.RCARules
	}
	cat.RCARules = mergeRCA(cat.RCARules, defaultRCARules())
	cat.RCARules = cat.validateRCA(cat.RCARules, logger)

	var rem remediationRuleFile
	if readCatalog(paths.RemediationRules, "remediationRules", &rem, logger) {
		cat.RemediationRules = rem.RemediationRules
	}
	cat.RemediationRules = mergeRemediation(cat.RemediationRules, defaultRemediationRules())
	cat.RemediationRules = cat.validateRemediation(cat.RemediationRules, logger)

	var val validationRuleFile
	if readCatalog(paths.ValidationRules, "validationRules", &val, logger) {
		cat.ValidationRules = val.ValidationRules
	}
	cat.ValidationRules = mergeValidation(cat.ValidationRules, defaultValidationRules())
	cat.ValidationRules = cat.validateValidation(cat.ValidationRules, logger)

	var rb rollbackRuleFile
	if readCatalog(paths.RollbackRules, "rollbackRules", &rb, logger) {
		cat.RollbackRules = rb.RollbackRules
	}
	cat.RollbackRules = mergeRollback(cat.RollbackRules, defaultRollbackRules())
	cat.RollbackRules = cat.validateRollback(cat.RollbackRules, logger)

	return cat
}

// readCatalog reports true when the file was read and parsed. Failures are
// warnings; the caller continues with defaults.
func readCatalog(path, name string, out any, logger *slog.Logger) bool {
	if path == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("catalog file missing, using built-in defaults", slog.String("catalog", name), slog.String("path", path))
		} else {
			logger.Warn("catalog file unreadable, using built-in defaults", slog.String("catalog", name), slog.Any("error", err))
		}
		return false
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		logger.Warn("catalog file malformed, using built-in defaults", slog.String("catalog", name), slog.Any("error", err))
		return false
	}
	return true
}

func (c *Catalog) validatePatterns(rules []models.PatternRule, logger *slog.Logger) []models.PatternRule {
	kept := make([]models.PatternRule, 0, len(rules))
	for _, rule := range rules {
		if rule.ID == "" {
			c.quarantine("issuePatterns", "pattern rule without id", logger)
			continue
		}
		ok := true
		for i := range rule.Signatures {
			sig := &rule.Signatures[i]
			if !models.KnownOperator(sig.Operator) {
				c.quarantine("issuePatterns", "unknown operator in "+rule.ID, logger)
				ok = false
				break
			}
			if sig.Operator == models.OperatorMatchesRegex {
				pattern, _ := sig.Value.(string)
				compiled, err := regexp.Compile(pattern)
				if err != nil {
					c.quarantine("issuePatterns", "bad regex in "+rule.ID, logger)
					ok = false
					break
				}
				sig.Compiled = compiled
			}
			switch sig.Operator {
			case models.OperatorEquals, models.OperatorNotEquals, models.OperatorContains:
				// A non-scalar value would render empty and match every
				// string field.
				if _, scalar := models.RenderScalar(sig.Value); !scalar {
					c.quarantine("issuePatterns", "non-scalar value in "+rule.ID, logger)
					ok = false
				}
			}
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		if rule.Keyword != nil {
			if rule.Keyword.Field == "" || len(rule.Keyword.Keywords) == 0 {
				c.quarantine("issuePatterns", "incomplete keyword rule "+rule.ID, logger)
				continue
			}
			if rule.Keyword.MinOccurrences < 1 {
				rule.Keyword.MinOccurrences = 1
			}
		}
		kept = append(kept, rule)
	}
	return kept
}

func (c *Catalog) validateRCA(rules []models.RootCauseRule, logger *slog.Logger) []models.RootCauseRule {
	kept := make([]models.RootCauseRule, 0, len(rules))
	for _, rule := range rules {
		if rule.ID == "" || rule.AppliesToPattern == "" {
			c.quarantine("rcaRules", "root-cause rule without id or pattern", logger)
			continue
		}
		if rule.Confidence < 0 {
			rule.Confidence = 0
		}
		if rule.Confidence > 1 {
			rule.Confidence = 1
		}
		kept = append(kept, rule)
	}
	return kept
}

func (c *Catalog) validateRemediation(rules []models.RemediationRule, logger *slog.Logger) []models.RemediationRule {
	kept := make([]models.RemediationRule, 0, len(rules))
	for _, rule := range rules {
		if rule.ActionID == "" {
			c.quarantine("remediationRules", "remediation rule without action id", logger)
			continue
		}
		if !models.KnownKind(rule.Kind) {
			c.quarantine("remediationRules", "unknown kind on "+rule.ActionID, logger)
			continue
		}
		kept = append(kept, rule)
	}
	return kept
}

func (c *Catalog) validateValidation(rules []models.ValidationRule, logger *slog.Logger) []models.ValidationRule {
	kept := make([]models.ValidationRule, 0, len(rules))
	for _, rule := range rules {
		if rule.ActionID == "" {
			c.quarantine("validationRules", "validation rule without action id", logger)
			continue
		}
		if rule.MergeMode == "" {
			rule.MergeMode = models.MergeReplace
		}
		if rule.MergeMode != models.MergeReplace && rule.MergeMode != models.MergeAppendDerived {
			c.quarantine("validationRules", "unknown merge mode on "+rule.ActionID, logger)
			continue
		}
		ok := true
		for _, step := range rule.Steps {
			if !models.KnownValidationType(step.Type) {
				c.quarantine("validationRules", "unknown step type on "+rule.ActionID, logger)
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, rule)
		}
	}
	return kept
}

func (c *Catalog) validateRollback(rules []models.RollbackRule, logger *slog.Logger) []models.RollbackRule {
	kept := make([]models.RollbackRule, 0, len(rules))
	for _, rule := range rules {
		if rule.ActionID == "" {
			c.quarantine("rollbackRules", "rollback rule without action id", logger)
			continue
		}
		ok := true
		for _, step := range rule.Steps {
			if !models.KnownKind(step.Kind) {
				c.quarantine("rollbackRules", "unknown kind on "+rule.ActionID, logger)
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, rule)
		}
	}
	return kept
}

func (c *Catalog) quarantine(catalog, reason string, logger *slog.Logger) {
	c.Quarantined[catalog]++
	logger.Warn("catalog entry quarantined", slog.String("catalog", catalog), slog.String("reason", reason))
}

// Loaded entries take precedence over defaults with the same id; defaults
// not shadowed are appended so a usable rule always exists.

func mergePatterns(loaded, defaults []models.PatternRule) []models.PatternRule {
	seen := make(map[string]struct{}, len(loaded))
	for _, r := range loaded {
		seen[r.ID] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := seen[d.ID]; !ok {
			loaded = append(loaded, d)
		}
	}
	return loaded
}

func mergeRCA(loaded, defaults []models.RootCauseRule) []models.RootCauseRule {
	seen := make(map[string]struct{}, len(loaded))
	for _, r := range loaded {
		seen[r.ID] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := seen[d.ID]; !ok {
			loaded = append(loaded, d)
		}
	}
	return loaded
}

func mergeRemediation(loaded, defaults []models.RemediationRule) []models.RemediationRule {
	seen := make(map[string]struct{}, len(loaded))
	for _, r := range loaded {
		seen[r.ActionID] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := seen[d.ActionID]; !ok {
			loaded = append(loaded, d)
		}
	}
	return loaded
}

func mergeValidation(loaded, defaults []models.ValidationRule) []models.ValidationRule {
	seen := make(map[string]struct{}, len(loaded))
	for _, r := range loaded {
		seen[r.ActionID] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := seen[d.ActionID]; !ok {
			loaded = append(loaded, d)
		}
	}
	return loaded
}

func mergeRollback(loaded, defaults []models.RollbackRule) []models.RollbackRule {
	seen := make(map[string]struct{}, len(loaded))
	for _, r := range loaded {
		seen[r.ActionID] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := seen[d.ActionID]; !ok {
			loaded = append(loaded, d)
		}
	}
	return loaded
}
