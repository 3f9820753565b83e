package collab

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/remedystack/remedy-engine/internal/models"
)

func TestFileBackupRunnerWritesManifest(t *testing.T) {
	runner := &FileBackupRunner{Dir: t.TempDir()}
	action := models.ResolvedAction{
		ActionID:   "REM_CleanupDiskSpace",
		Title:      "Clean up disk space",
		Kind:       models.KindScript,
		Target:     "scripts/cleanup-disk.sh",
		Parameters: map[string]string{"Path": "/var/tmp"},
	}

	location, err := runner.Backup(context.Background(), action)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest map[string]any
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	if manifest["action_id"] != "REM_CleanupDiskSpace" {
		t.Fatalf("unexpected manifest: %v", manifest)
	}
}

func TestFileBackupRunnerUnconfigured(t *testing.T) {
	runner := &FileBackupRunner{}
	if _, err := runner.Backup(context.Background(), models.ResolvedAction{ActionID: "A"}); err == nil {
		t.Fatal("expected error without a backup directory")
	}
}
