package main

import (
	"log/slog"
	"time"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/lexandro/blastindex-mcp/ignore"
)

// SyncResult holds the outcome of a single sync verification run.
type SyncResult struct {
	NewReports     int // reports on disk but not served
	MissingReports int // served reports no longer on disk
	StaleReports   int // reports modified after their index was written
	Rebuilt        int
	Duration       time.Duration
}

// runPeriodicSync checks the served reports against the disk at the given
// interval, catching changes the watcher missed. It runs until stop is closed.
func runPeriodicSync(
	intervalSeconds int,
	lib *engine.Library,
	matcher *ignore.Matcher,
	rebuild bool,
	logger *slog.Logger,
	stop <-chan struct{},
) {
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	logger.Info("periodic sync started", "intervalSeconds", intervalSeconds)

	for {
		select {
		case <-stop:
			logger.Info("periodic sync stopped")
			return
		case <-ticker.C:
			result := performSyncVerification(lib, matcher, rebuild, logger)
			if result.NewReports+result.MissingReports+result.StaleReports > 0 {
				logger.Info("sync verification complete",
					"new", result.NewReports,
					"missing", result.MissingReports,
					"stale", result.StaleReports,
					"rebuilt", result.Rebuilt,
					"duration", result.Duration,
				)
			} else {
				logger.Debug("sync verification complete, indexes are current", "duration", result.Duration)
			}
		}
	}
}

// performSyncVerification compares the served reports with the disk. Stale
// indexes are rebuilt when rebuild is set. In root mode (matcher != nil)
// vanished reports stop being served and new ones are opened.
func performSyncVerification(lib *engine.Library, matcher *ignore.Matcher, rebuild bool, logger *slog.Logger) SyncResult {
	start := time.Now()
	var result SyncResult

	for _, name := range lib.Names() {
		e, err := lib.Get(name)
		if err != nil {
			continue
		}
		stale, err := e.Stale()
		if err != nil {
			result.MissingReports++
			if matcher != nil {
				lib.Remove(e.ReportPath())
				logger.Info("sync: removed missing report", "report", name)
			} else {
				logger.Warn("sync: served report is missing", "report", name, "error", err)
			}
			continue
		}
		if !stale {
			continue
		}
		result.StaleReports++
		if !rebuild {
			logger.Warn("sync: index is stale", "report", name)
			continue
		}
		if _, err := e.Reindex(); err != nil {
			logger.Error("sync: rebuild failed", "report", name, "error", err)
			continue
		}
		logger.Info("sync: rebuilt stale index", "report", name)
		result.Rebuilt++
	}

	if matcher != nil {
		err := engine.WalkReports(lib.RootDir(), matcher, func(path string) {
			if _, served := lib.Lookup(path); served {
				return
			}
			if _, err := lib.Open(path); err != nil {
				logger.Debug("sync: skipped new report", "path", path, "error", err)
				return
			}
			logger.Info("sync: opened new report", "report", lib.Name(path))
			result.NewReports++
		})
		if err != nil {
			logger.Warn("sync: failed to scan for new reports", "root", lib.RootDir(), "error", err)
		}
	}

	result.Duration = time.Since(start)
	return result
}
