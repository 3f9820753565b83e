package collab

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/remedystack/remedy-engine/internal/engine"
)

// BuiltinFunctions returns the registry of remediation functions shipped
// with the engine. Callers register site-specific functions on top.
func BuiltinFunctions() *engine.FunctionRegistry {
	registry := engine.NewFunctionRegistry()
	registry.Register("RestartManagedService", restartManagedService)
	registry.Register("FlushDNSCache", flushDNSCache)
	return registry
}

func restartManagedService(ctx context.Context, params map[string]string) (string, error) {
	service := params["ServiceName"]
	if service == "" {
		return "", fmt.Errorf("ServiceName parameter required")
	}

	out, err := exec.CommandContext(ctx, "systemctl", "restart", service).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("restart %s: %w", service, err)
	}

	state, err := exec.CommandContext(ctx, "systemctl", "is-active", service).CombinedOutput()
	status := strings.TrimSpace(string(state))
	if err != nil || status != "active" {
		return status, fmt.Errorf("%s not active after restart (state %q)", service, status)
	}
	return fmt.Sprintf("service %s restarted, state active", service), nil
}

func flushDNSCache(ctx context.Context, params map[string]string) (string, error) {
	out, err := exec.CommandContext(ctx, "resolvectl", "flush-caches").CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("flush dns caches: %w", err)
	}
	return "dns caches flushed", nil
}
