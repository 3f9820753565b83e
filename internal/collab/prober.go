package collab

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/remedystack/remedy-engine/internal/engine"
)

// SystemctlProber reports service state through systemctl is-active. The
// Command field overrides the binary for tests.
type SystemctlProber struct {
	Command string
}

// State returns the normalized service state. Exit status 3 (inactive) is
// still a valid answer; an unknown unit maps to engine.ErrServiceNotFound.
func (p *SystemctlProber) State(ctx context.Context, service string) (string, error) {
	if service == "" {
		return "", fmt.Errorf("empty service name")
	}
	command := "systemctl"
	if p != nil && p.Command != "" {
		command = p.Command
	}

	out, err := exec.CommandContext(ctx, command, "is-active", service).CombinedOutput()
	state := strings.TrimSpace(string(out))
	if state == "" && err != nil {
		return "", fmt.Errorf("probe %s: %w", service, err)
	}

	switch state {
	case "active":
		return "Running", nil
	case "inactive", "failed":
		return "Stopped", nil
	case "activating", "deactivating":
		return "Pending", nil
	default:
		return "", fmt.Errorf("%w: %s", engine.ErrServiceNotFound, service)
	}
}
