package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lexandro/blastindex-mcp/ignore"
	"github.com/lexandro/blastindex-mcp/report"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownReport is returned when a report name is not served.
var ErrUnknownReport = errors.New("unknown report")

// ErrAmbiguousReport is returned when no report name is given and more than
// one report is served.
var ErrAmbiguousReport = errors.New("report name required")

// Library is the set of reports served by one process, addressed by their
// slash-separated path relative to the root directory.
type Library struct {
	mu       sync.RWMutex
	engines  map[string]*Engine
	rootDir  string
	indexDir string
	opts     Options
	logger   *slog.Logger
}

// LibraryOptions configures report discovery.
type LibraryOptions struct {
	RootDir  string
	IndexDir string // empty stores each index next to its report
	Matcher  *ignore.Matcher
	Engine   Options
	Workers  int
}

// NewLibrary returns an empty library.
func NewLibrary(rootDir, indexDir string, opts Options) *Library {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Library{
		engines:  make(map[string]*Engine),
		rootDir:  rootDir,
		indexDir: indexDir,
		opts:     opts,
		logger:   logger,
	}
}

// SingleReport returns a library serving one report under its base name.
func SingleReport(reportPath, indexPath string, opts Options) (*Library, error) {
	e, err := Open(reportPath, indexPath, opts)
	if err != nil {
		return nil, err
	}
	lib := NewLibrary(filepath.Dir(reportPath), "", opts)
	lib.engines[filepath.Base(reportPath)] = e
	return lib, nil
}

// Discover walks the root and opens every report the matcher selects, using
// a bounded worker pool. Reports that fail to open are logged and skipped;
// the returned count is the number of reports opened.
func Discover(options LibraryOptions) (*Library, int, error) {
	if options.Matcher == nil {
		options.Matcher = ignore.NewMatcher(ignore.MatcherOptions{RootDir: options.RootDir})
	}
	if !options.Matcher.ValidPattern() {
		return nil, 0, fmt.Errorf("invalid report pattern")
	}
	workerCount := options.Workers
	if workerCount <= 0 {
		workerCount = 4
	}

	lib := NewLibrary(options.RootDir, options.IndexDir, options.Engine)
	jobs := make(chan string, 100)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if _, err := lib.Open(path); err != nil {
					lib.logger.Warn("skipped report", "path", path, "error", err)
				}
			}
		}()
	}

	walkErr := WalkReports(options.RootDir, options.Matcher, func(path string) {
		jobs <- path
	})

	close(jobs)
	wg.Wait()
	if walkErr != nil {
		return nil, 0, fmt.Errorf("walking %s: %w", options.RootDir, walkErr)
	}
	return lib, lib.Len(), nil
}

// WalkReports calls fn for every non-binary file under rootDir that the
// matcher selects as a report, skipping ignored directories. Unreadable
// entries below the root are skipped; an unreadable root is an error.
func WalkReports(rootDir string, matcher *ignore.Matcher, fn func(absolutePath string)) error {
	return filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == rootDir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != rootDir && matcher.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !matcher.IsReport(path) || report.IsBinaryFile(path) {
			return nil
		}
		fn(path)
		return nil
	})
}

// Name returns the library name of the report at absolutePath.
func (l *Library) Name(absolutePath string) string {
	rel, err := filepath.Rel(l.rootDir, absolutePath)
	if err != nil {
		return filepath.ToSlash(absolutePath)
	}
	return filepath.ToSlash(rel)
}

// IndexPath returns where the index of the report at absolutePath lives.
func (l *Library) IndexPath(absolutePath string) string {
	if l.indexDir == "" {
		return absolutePath + ".idx"
	}
	return filepath.Join(l.indexDir, filepath.FromSlash(l.Name(absolutePath))+".idx")
}

// Open opens (building if needed) the report at absolutePath and adds it,
// replacing any engine already serving that name.
func (l *Library) Open(absolutePath string) (*Engine, error) {
	indexPath := l.IndexPath(absolutePath)
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	start := time.Now()
	e, err := Open(absolutePath, indexPath, l.opts)
	if err != nil {
		return nil, err
	}

	name := l.Name(absolutePath)
	l.mu.Lock()
	old := l.engines[name]
	l.engines[name] = e
	l.mu.Unlock()

	if old != nil {
		old.Close()
	}
	l.logger.Debug("report opened", "name", name, "records", e.Index().Len(), "duration", time.Since(start))
	return e, nil
}

// Remove stops serving the report at absolutePath. Its index file is kept.
func (l *Library) Remove(absolutePath string) bool {
	name := l.Name(absolutePath)
	l.mu.Lock()
	e, ok := l.engines[name]
	delete(l.engines, name)
	l.mu.Unlock()

	if ok {
		e.Close()
	}
	return ok
}

// Get returns the engine for name. An empty name selects the only report
// when exactly one is served.
func (l *Library) Get(name string) (*Engine, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if name == "" {
		if len(l.engines) == 1 {
			for _, e := range l.engines {
				return e, nil
			}
		}
		if len(l.engines) == 0 {
			return nil, fmt.Errorf("%w: no reports are served", ErrUnknownReport)
		}
		return nil, fmt.Errorf("%w: %d reports are served", ErrAmbiguousReport, len(l.engines))
	}
	e, ok := l.engines[filepath.ToSlash(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	return e, nil
}

// ReindexAll rebuilds every served report, at most workers at a time. The
// first failure cancels the rebuilds not yet started.
func (l *Library) ReindexAll(ctx context.Context, workers int) (map[string]Stats, error) {
	if workers <= 0 {
		workers = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	results := make(map[string]Stats)
	for _, name := range l.Names() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := l.Get(name)
			if err != nil {
				return err
			}
			stats, err := e.Reindex()
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			mu.Lock()
			results[name] = stats
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Lookup returns the engine serving absolutePath, if any.
func (l *Library) Lookup(absolutePath string) (*Engine, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.engines[l.Name(absolutePath)]
	return e, ok
}

// Names returns the served report names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.engines))
	for name := range l.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReportPaths returns the absolute paths of the served reports.
func (l *Library) ReportPaths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	paths := make([]string, 0, len(l.engines))
	for _, e := range l.engines {
		paths = append(paths, e.ReportPath())
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of served reports.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.engines)
}

// RootDir returns the library root.
func (l *Library) RootDir() string { return l.rootDir }

// Close closes every engine.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, e := range l.engines {
		e.Close()
		delete(l.engines, name)
	}
}
