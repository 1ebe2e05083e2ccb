package batch

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"

	"disk-janitor/internal/wipe"
)

// Target is one top-level directory selected for cleanup
type Target struct {
	Label string
	Path  string
}

func (t Target) String() string {
	if t.Label == "" {
		return t.Path
	}
	return t.Label + ": " + t.Path
}

// Dedupe drops targets whose cleaned path was already seen, keeping the first.
// Paths compare case-insensitively on Windows.
func Dedupe(targets []Target) []Target {
	seen := make(map[string]struct{}, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		key := dedupeKey(runtime.GOOS, t.Path)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func dedupeKey(goos, path string) string {
	key := filepath.Clean(path)
	if goos == "windows" {
		key = strings.ToLower(key)
	}
	return key
}

// Target outcome statuses shared by logs, metrics and history
const (
	StatusCleaned      = "cleaned"
	StatusNotFound     = "not_found"
	StatusNotDirectory = "not_directory"
	StatusUnreadable   = "unreadable"
	StatusBlocked      = "blocked"
	StatusCancelled    = "cancelled"
)

// StatusOf classifies the error reported for a target
func StatusOf(err error) string {
	switch {
	case err == nil:
		return StatusCleaned
	case errors.Is(err, wipe.ErrRootNotFound):
		return StatusNotFound
	case errors.Is(err, wipe.ErrNotDirectory):
		return StatusNotDirectory
	case errors.Is(err, wipe.ErrRootUnreadable):
		return StatusUnreadable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusBlocked
	}
}
