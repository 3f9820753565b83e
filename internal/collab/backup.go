package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/remedystack/remedy-engine/internal/models"
)

// FileBackupRunner snapshots the action context into a manifest under a
// backup directory before execution. The manifest records what was about
// to change; restoring actual host state stays with rollback steps.
type FileBackupRunner struct {
	Dir string
}

type backupManifest struct {
	ActionID   string            `json:"action_id"`
	Title      string            `json:"title"`
	Kind       string            `json:"kind"`
	Target     string            `json:"target"`
	Parameters map[string]string `json:"parameters"`
	TakenAt    time.Time         `json:"taken_at"`
}

// Backup writes the manifest and returns its location.
func (f *FileBackupRunner) Backup(ctx context.Context, action models.ResolvedAction) (string, error) {
	if f == nil || f.Dir == "" {
		return "", fmt.Errorf("backup directory not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	manifest := backupManifest{
		ActionID:   action.ActionID,
		Title:      action.Title,
		Kind:       string(action.Kind),
		Target:     action.Target,
		Parameters: action.Parameters,
		TakenAt:    time.Now().UTC(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal backup manifest: %w", err)
	}

	location := filepath.Join(f.Dir, fmt.Sprintf("%s-%s.json", action.ActionID, uuid.NewString()))
	if err := os.WriteFile(location, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup manifest: %w", err)
	}
	return location, nil
}
