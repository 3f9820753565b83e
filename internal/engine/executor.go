package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

// RemediationFunc is a registered in-process remediation implementation.
// A non-nil error marks the run as completed with errors, not failed;
// failure is reserved for targets that cannot run at all.
type RemediationFunc func(ctx context.Context, params map[string]string) (output string, err error)

// FunctionRegistry resolves Function-kind targets to implementations.
type FunctionRegistry struct {
	funcs map[string]RemediationFunc
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: make(map[string]RemediationFunc)}
}

// Register binds name to fn, replacing any previous binding.
func (r *FunctionRegistry) Register(name string, fn RemediationFunc) {
	r.funcs[name] = fn
}

// Lookup returns the implementation bound to name.
func (r *FunctionRegistry) Lookup(name string) (RemediationFunc, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.funcs[name]
	return fn, ok
}

// BackupRunner captures host state before a mutating action. The artifact
// path is opaque to the engine.
type BackupRunner interface {
	Backup(ctx context.Context, action models.ResolvedAction) (string, error)
}

// ExecuteOptions controls one execution attempt.
type ExecuteOptions struct {
	// DryRun short-circuits before backup and dispatch.
	DryRun bool
	// BackupFirst requests a best-effort state backup before dispatch.
	BackupFirst bool
}

// Executor runs approved actions against the managed host. Execution is
// at-most-one-attempt per approved action.
type Executor struct {
	logger   *slog.Logger
	registry *FunctionRegistry
	backup   BackupRunner
	shell    string
}

// NewExecutor constructs an Executor. registry and backup may be nil.
func NewExecutor(logger *slog.Logger, registry *FunctionRegistry, backup BackupRunner) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger, registry: registry, backup: backup, shell: "/bin/sh"}
}

// Execute dispatches the action by implementation kind and captures the
// outcome. Failures become statuses, never returned errors.
func (e *Executor) Execute(ctx context.Context, action models.ResolvedAction, opts ExecuteOptions) models.ExecutionResult {
	result := models.ExecutionResult{ActionID: action.ActionID, Start: time.Now().UTC()}
	finish := func() models.ExecutionResult {
		result.End = time.Now().UTC()
		return result
	}

	if action.ActionID == "" {
		result.Status = models.ExecFailedBadInput
		result.Errors = "action has no id"
		return finish()
	}

	if opts.DryRun {
		result.Status = models.ExecSkippedDryRun
		return finish()
	}

	if opts.BackupFirst {
		e.runBackup(ctx, action, &result)
	}

	switch action.Kind {
	case models.KindScript:
		e.runScript(ctx, action, &result)
	case models.KindFunction:
		e.runFunction(ctx, action, &result)
	case models.KindExecutable:
		e.runExecutable(ctx, action, &result)
	case models.KindManual:
		result.Status = models.ExecManualRequired
		result.Output = action.Description
	default:
		result.Status = models.ExecFailed
		result.Errors = fmt.Sprintf("unknown implementation kind %q", action.Kind)
	}

	return finish()
}

// runBackup is best-effort: a failing backup collaborator is logged and
// execution proceeds.
func (e *Executor) runBackup(ctx context.Context, action models.ResolvedAction, result *models.ExecutionResult) {
	if e.backup == nil {
		e.logger.Warn("backup requested but no backup collaborator configured", slog.String("action", action.ActionID))
		return
	}
	location, err := e.backup.Backup(ctx, action)
	if err != nil {
		e.logger.Warn("pre-action backup failed, continuing", slog.String("action", action.ActionID), slog.Any("error", err))
		return
	}
	result.BackupPerformed = true
	result.BackupLocation = location
}

func (e *Executor) runFunction(ctx context.Context, action models.ResolvedAction, result *models.ExecutionResult) {
	fn, ok := e.registry.Lookup(action.Target)
	if !ok {
		result.Status = models.ExecFailed
		result.Errors = fmt.Sprintf("function %q not registered", action.Target)
		return
	}
	output, err := fn(ctx, action.Parameters)
	result.Output = output
	if err != nil {
		result.Errors = err.Error()
		result.Status = models.ExecSuccessWithErrors
		return
	}
	result.Status = models.ExecSuccess
}

func (e *Executor) runScript(ctx context.Context, action models.ResolvedAction, result *models.ExecutionResult) {
	if _, err := os.Stat(action.Target); err != nil {
		result.Status = models.ExecFailed
		result.Errors = fmt.Sprintf("script %q not found: %v", action.Target, err)
		return
	}

	args := append([]string{action.Target}, flattenParameters(action.Parameters)...)
	cmd := exec.CommandContext(ctx, e.shell, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	// Normal and error streams are merged into the captured output; the
	// error stream is additionally kept for classification.
	result.Output = stdout.String() + stderr.String()
	result.Errors = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil && stderr.Len() == 0:
		result.Status = models.ExecSuccess
	case errors.As(err, &exitErr), stderr.Len() > 0:
		if err != nil && result.Errors == "" {
			result.Errors = err.Error()
		}
		result.Status = models.ExecSuccessWithErrors
	default:
		result.Status = models.ExecFailed
		result.Errors = err.Error()
	}
}

func (e *Executor) runExecutable(ctx context.Context, action models.ResolvedAction, result *models.ExecutionResult) {
	cmd := exec.CommandContext(ctx, action.Target, flattenParameters(action.Parameters)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	result.Output = stdout.String()
	result.Errors = stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			result.ExitCode = &code
			result.Status = models.ExecFailed
			return
		}
		result.Status = models.ExecFailed
		result.Errors = err.Error()
		return
	}

	code := 0
	result.ExitCode = &code
	result.Status = models.ExecSuccess
}

// flattenParameters renders the parameter map as -key value pairs sorted by
// key so repeated runs produce identical command lines.
func flattenParameters(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(params)*2)
	for _, k := range keys {
		args = append(args, "-"+k, params[k])
	}
	return args
}
