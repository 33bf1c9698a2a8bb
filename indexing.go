package main

import (
	"log/slog"
	"path/filepath"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/lexandro/blastindex-mcp/ignore"
	"github.com/lexandro/blastindex-mcp/report"
	"github.com/lexandro/blastindex-mcp/watcher"
)

// serveOptions holds the parsed serve flags.
type serveOptions struct {
	reportPath          string
	indexPath           string
	rootDir             string
	indexDir            string
	pattern             string
	excludes            []string
	rebuildOnChange     bool
	syncIntervalSeconds int
}

// openLibrary opens the single report or discovers the reports under the
// root. The matcher is nil in single-report mode.
func openLibrary(options serveOptions, logger *slog.Logger) (*engine.Library, *ignore.Matcher, error) {
	engineOptions := engine.Options{Logger: logger, Catalog: true}

	if options.reportPath != "" {
		lib, err := engine.SingleReport(options.reportPath, defaultIndexPath(options.reportPath, options.indexPath), engineOptions)
		return lib, nil, err
	}

	indexDir := options.indexDir
	if indexDir != "" {
		indexDir, _ = filepath.Abs(indexDir)
	}
	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:        options.rootDir,
		ReportPattern:  options.pattern,
		CustomPatterns: options.excludes,
	})
	lib, count, err := engine.Discover(engine.LibraryOptions{
		RootDir:  options.rootDir,
		IndexDir: indexDir,
		Matcher:  matcher,
		Engine:   engineOptions,
		Workers:  8,
	})
	if err != nil {
		return nil, nil, err
	}
	if count == 0 {
		logger.Warn("no reports found", "root", options.rootDir, "pattern", options.pattern)
	}
	return lib, matcher, nil
}

// reportFilter selects the paths the watcher reports: served reports, and in
// root mode new reports and the ignore files.
type reportFilter struct {
	lib     *engine.Library
	matcher *ignore.Matcher
}

func (f reportFilter) ShouldIgnoreDir(absolutePath string) bool {
	if f.matcher == nil {
		return true
	}
	return f.matcher.ShouldIgnoreDir(absolutePath)
}

func (f reportFilter) Wants(absolutePath string) bool {
	if _, ok := f.lib.Lookup(absolutePath); ok {
		return true
	}
	if f.matcher == nil {
		return false
	}
	return isIgnoreFile(absolutePath) || f.matcher.IsReport(absolutePath)
}

func isIgnoreFile(path string) bool {
	baseName := filepath.Base(path)
	return baseName == ".gitignore" || baseName == ignore.IgnoreFileName
}

// startWatching starts the report watcher and returns its stop function. A
// watcher that cannot start is logged and serving continues without it.
func startWatching(options serveOptions, lib *engine.Library, matcher *ignore.Matcher, logger *slog.Logger) func() {
	watchOptions := watcher.Options{Dirs: []string{lib.RootDir()}, Recursive: matcher != nil}
	reportWatcher, err := watcher.NewWatcher(watchOptions, reportFilter{lib: lib, matcher: matcher}, logger)
	if err != nil {
		logger.Warn("failed to start report watcher, continuing without change detection", "error", err)
		return func() {}
	}
	logger.Info("watching for report changes", "dirs", len(reportWatcher.WatchedDirs()), "rebuildOnChange", options.rebuildOnChange)
	go reportWatcher.Start()
	go handleWatcherEvents(reportWatcher, lib, matcher, options.rebuildOnChange, logger)
	return func() { reportWatcher.Close() }
}

// handleWatcherEvents applies debounced report events until the watcher closes.
func handleWatcherEvents(reportWatcher *watcher.Watcher, lib *engine.Library, matcher *ignore.Matcher, rebuild bool, logger *slog.Logger) {
	for events := range reportWatcher.Events() {
		for _, event := range events {
			applyEvent(event, lib, matcher, rebuild, logger)
		}
	}
}

// eventAction names what applyEvent did, for logs and tests.
type eventAction string

const (
	actionNone          eventAction = "none"
	actionReloadIgnore  eventAction = "reload-ignore"
	actionRebuilt       eventAction = "rebuilt"
	actionStale         eventAction = "stale"
	actionOpened        eventAction = "opened"
	actionRemoved       eventAction = "removed"
	actionReportMissing eventAction = "report-missing"
	actionFailed        eventAction = "failed"
)

// applyEvent reacts to one change. Indexes are only ever rebuilt in full.
func applyEvent(event watcher.ReportEvent, lib *engine.Library, matcher *ignore.Matcher, rebuild bool, logger *slog.Logger) eventAction {
	name := lib.Name(event.Path)

	if matcher != nil && isIgnoreFile(event.Path) {
		matcher.Reload()
		logger.Info("reloaded ignore rules", "trigger", name)
		return actionReloadIgnore
	}

	e, served := lib.Lookup(event.Path)

	if event.Kind == watcher.Removed {
		if !served {
			return actionNone
		}
		if matcher == nil {
			logger.Warn("served report was removed, fetches will fail until it is restored", "report", name)
			return actionReportMissing
		}
		lib.Remove(event.Path)
		logger.Warn("report removed, no longer served", "report", name)
		return actionRemoved
	}

	if served {
		if !rebuild {
			logger.Warn("report changed, index is stale (use blastindex_reindex or -rebuild-on-change)", "report", name)
			return actionStale
		}
		stats, err := e.Reindex()
		if err != nil {
			logger.Error("rebuild after change failed", "report", name, "error", err)
			return actionFailed
		}
		logger.Info("rebuilt index after change", "report", name, "records", stats.Records)
		return actionRebuilt
	}

	if matcher == nil || !matcher.IsReport(event.Path) || report.IsBinaryFile(event.Path) {
		return actionNone
	}
	opened, err := lib.Open(event.Path)
	if err != nil {
		logger.Warn("failed to open new report", "report", name, "error", err)
		return actionFailed
	}
	logger.Info("serving new report", "report", name, "records", opened.Index().Len())
	return actionOpened
}
