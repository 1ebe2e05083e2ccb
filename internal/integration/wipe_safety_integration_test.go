package integration

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"disk-janitor/internal/batch"
	"disk-janitor/internal/config"
	"disk-janitor/internal/database"
	"disk-janitor/internal/metrics"
	"disk-janitor/internal/safety"
	"disk-janitor/internal/scheduler"
	"disk-janitor/internal/wipe"
)

func init() {
	// Initialize metrics once for all integration tests
	metrics.Init()
}

func mustWrite(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// TestWipeSafetyIntegration runs a full batch against a real filesystem and
// checks that only the allowed tree is emptied
func TestWipeSafetyIntegration(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	// 1. Create temporary filesystem structure
	tmpRoot := t.TempDir()
	allowedDir := filepath.Join(tmpRoot, "allowed")
	protectedDir := filepath.Join(tmpRoot, "protected")

	mustWrite(t, filepath.Join(allowedDir, "junk.log"), "deletable content")
	mustWrite(t, filepath.Join(allowedDir, "old_backups", "old.tar.gz"), "old backup")
	mustWrite(t, filepath.Join(allowedDir, "old_backups", "deeper", "x.bin"), "x")
	protectedFile := filepath.Join(protectedDir, "keep.txt")
	mustWrite(t, protectedFile, "MUST KEEP")

	// Symlinks inside the allowed tree pointing at protected content
	if err := os.Symlink(protectedFile, filepath.Join(allowedDir, "link_to_file")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	if err := os.Symlink(protectedDir, filepath.Join(allowedDir, "link_to_dir")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	// 2. Configure both trees; the protected one is refused by the validator
	cfg := config.Default()
	cfg.Safety.ExtraProtected = []string{protectedDir}
	if err := cfg.AddTarget("Allowed", allowedDir); err != nil {
		t.Fatalf("AddTarget failed: %v", err)
	}
	if err := cfg.AddTarget("Protected", protectedDir); err != nil {
		t.Fatalf("AddTarget failed: %v", err)
	}
	// duplicate entry is ignored
	if err := cfg.AddTarget("Again", allowedDir+string(os.PathSeparator)); err != nil {
		t.Fatalf("AddTarget failed: %v", err)
	}

	db, err := database.NewHistoryDB(filepath.Join(tmpRoot, "state", "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	defer db.Close()

	filesBefore := testutil.ToFloat64(metrics.FilesDeletedTotal)

	s, err := scheduler.New(scheduler.Options{
		Config: cfg,
		Logger: log.New(io.Discard, "", 0),
		DB:     db,
	})
	if err != nil {
		t.Fatalf("scheduler.New failed: %v", err)
	}

	// 3. Execute
	report, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	t.Run("AllowedTreeEmptied", func(t *testing.T) {
		entries, err := os.ReadDir(allowedDir)
		if err != nil {
			t.Fatalf("Allowed root must survive: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected allowed root to be empty, found %d entries", len(entries))
		}
		// 3 regular files + 2 symlinks; old_backups and deeper
		if report.Summary.TotalFilesDeleted != 5 || report.Summary.TotalFoldersDeleted != 2 {
			t.Errorf("Unexpected totals %+v", report.Summary)
		}
	})

	t.Run("SymlinksNotFollowed", func(t *testing.T) {
		if _, err := os.Stat(protectedFile); err != nil {
			t.Errorf("CRITICAL SAFETY VIOLATION: protected file removed through a symlink: %v", err)
		}
	})

	t.Run("ProtectedTargetRefused", func(t *testing.T) {
		if report.Blocked != 1 || report.Summary.Failed != 1 {
			t.Errorf("Expected exactly one refused target, got blocked=%d failed=%d", report.Blocked, report.Summary.Failed)
		}
		if report.Summary.Targets != 2 {
			t.Errorf("Expected duplicates to be dropped, got %d targets", report.Summary.Targets)
		}
	})

	t.Run("MetricsRecorded", func(t *testing.T) {
		if got := testutil.ToFloat64(metrics.FilesDeletedTotal) - filesBefore; got != 5 {
			t.Errorf("Expected 5 files counted, got %v", got)
		}
	})

	t.Run("HistoryRecorded", func(t *testing.T) {
		results, err := db.GetTargetsByPath(protectedDir)
		if err != nil {
			t.Fatalf("GetTargetsByPath failed: %v", err)
		}
		if len(results) != 1 || results[0].Status != batch.StatusBlocked {
			t.Errorf("Expected one blocked result, got %+v", results)
		}
	})

	// 4. Second run finds nothing left
	t.Run("Idempotent", func(t *testing.T) {
		again, err := s.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("Second RunOnce failed: %v", err)
		}
		if again.Summary.TotalFilesDeleted != 0 || again.Summary.TotalFoldersDeleted != 0 {
			t.Errorf("Expected nothing to delete, got %+v", again.Summary)
		}
	})
}

// TestProtectedSystemPaths verifies system trees are refused before any wipe
func TestProtectedSystemPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix path layout")
	}

	validator := safety.NewValidator(nil)
	engine := wipe.NewEngine(wipe.WithLogger(log.New(io.Discard, "", 0)))

	var attempted []string
	runner := batch.NewRunner(engine, batch.Funcs{
		OnTargetDone: func(t batch.Target, _ wipe.Result, err error) {
			if err == nil {
				attempted = append(attempted, t.Path)
			}
		},
	}, validator.ValidateTarget)

	targets := []batch.Target{{Path: "/"}, {Path: "/etc"}, {Path: "/usr/bin"}, {Path: "/boot"}}
	summary, err := runner.Run(context.Background(), targets)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(attempted) != 0 {
		t.Errorf("SAFETY VIOLATION: protected paths wiped: %v", attempted)
	}
	if summary.Failed != len(targets) || summary.TotalFilesDeleted != 0 {
		t.Errorf("Expected every target refused, got %+v", summary)
	}

	if err := validator.ValidateTarget("/etc"); !errors.Is(err, safety.ErrProtectedPath) {
		t.Errorf("Expected ErrProtectedPath, got %v", err)
	}
}
