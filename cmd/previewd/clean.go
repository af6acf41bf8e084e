package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/previewd/internal/config"
)

// runClean reclaims session workspaces without a running daemon. Directory
// modification time stands in for the in-memory last-access record, so a
// workspace untouched for longer than the session lifetime is removed. With
// all set, every workspace goes.
func runClean(cfg *config.Config, all bool) error {
	entries, err := os.ReadDir(cfg.WorkspacesRoot)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Workspaces root does not exist, nothing to clean")
			return nil
		}
		return err
	}

	now := time.Now()
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(cfg.WorkspacesRoot, entry.Name())
		if !all {
			info, err := entry.Info()
			if err != nil {
				slog.Warn("Skipping unreadable workspace", "path", path, "error", err)
				continue
			}
			if now.Sub(info.ModTime()) <= cfg.SessionLifetime {
				continue
			}
		}
		if err := os.RemoveAll(path); err != nil {
			slog.Error("Failed to remove workspace", "path", path, "error", err)
			continue
		}
		removed++
	}

	slog.Info("Clean complete", "removed", removed, "scanned", len(entries))
	return nil
}
