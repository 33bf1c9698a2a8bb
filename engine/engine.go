// Package engine ties the indexer, the index store and the retriever together
// behind the operations callers use: open a report, fetch records, rebuild.
package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lexandro/blastindex-mcp/index"
	"github.com/lexandro/blastindex-mcp/report"
	"github.com/lexandro/blastindex-mcp/retrieve"
	"golang.org/x/sync/singleflight"
)

// Options configures an Engine.
type Options struct {
	Dialect report.Dialect // nil means report.Blast
	Logger  *slog.Logger   // nil discards
	// RejectDuplicates makes building fail with index.ErrDuplicateKey.
	RejectDuplicates bool
	// Catalog builds the metadata search catalog after opening.
	Catalog bool
	// Rebuild scans the report and overwrites the index file even when one
	// exists, so an unreadable index can be replaced.
	Rebuild bool
}

// Engine serves records of one report through its index.
type Engine struct {
	reportPath string
	indexPath  string
	opts       Options
	logger     *slog.Logger
	rebuilds   singleflight.Group

	mu      sync.RWMutex
	idx     *index.Index
	catalog *index.Catalog
	builtAt time.Time
	loaded  bool // true when the index came from disk
}

// Stats summarizes an engine's index.
type Stats struct {
	ReportPath  string
	IndexPath   string
	Records     int
	Aligned     int
	SearchTypes map[string]int
	Loaded      bool
	BuiltAt     time.Time
	Searchable  uint64 // records in the search catalog, 0 without one
}

// Open returns an engine for reportPath. When indexPath does not exist (or
// opts.Rebuild is set) the report is scanned and the index persisted there;
// otherwise the index is loaded as-is, without checking it against the report.
func Open(reportPath, indexPath string, opts Options) (*Engine, error) {
	opts.Dialect = report.Default(opts.Dialect)
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		reportPath: reportPath,
		indexPath:  indexPath,
		opts:       opts,
		logger:     logger.With("report", reportPath),
	}

	start := time.Now()
	var idx *index.Index
	var err error
	if !opts.Rebuild && index.Exists(indexPath) {
		idx, err = index.Load(indexPath)
		if err != nil {
			return nil, err
		}
		e.loaded = true
		e.logger.Info("index loaded", "index", indexPath, "records", idx.Len(), "duration", time.Since(start))
	} else {
		idx, err = e.buildAndPersist()
		if err != nil {
			return nil, err
		}
		e.logger.Info("index built", "index", indexPath, "records", idx.Len(), "duration", time.Since(start))
	}

	var catalog *index.Catalog
	if opts.Catalog {
		catalog, err = index.NewCatalog(reportPath, idx, opts.Dialect)
		if err != nil {
			return nil, fmt.Errorf("building catalog: %w", err)
		}
	}

	e.idx = idx
	e.catalog = catalog
	e.builtAt = time.Now()
	return e, nil
}

func (e *Engine) build() (*index.Index, error) {
	return index.Build(e.reportPath, index.BuildOptions{
		Dialect:          e.opts.Dialect,
		RejectDuplicates: e.opts.RejectDuplicates,
	})
}

func (e *Engine) buildAndPersist() (*index.Index, error) {
	idx, err := e.build()
	if err != nil {
		return nil, err
	}
	if err := index.Persist(idx, e.indexPath); err != nil {
		return nil, err
	}
	return idx, nil
}

// Reindex rescans the report, persists the new index and swaps it in.
// On error the current index stays in place, both on disk and in memory.
// Concurrent calls share one rebuild.
func (e *Engine) Reindex() (Stats, error) {
	v, err, _ := e.rebuilds.Do(e.indexPath, func() (any, error) {
		return e.reindex()
	})
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

func (e *Engine) reindex() (Stats, error) {
	start := time.Now()
	idx, err := e.build()
	if err != nil {
		e.logger.Error("reindex failed", "error", err)
		return Stats{}, err
	}

	var catalog *index.Catalog
	if e.opts.Catalog {
		catalog, err = index.NewCatalog(e.reportPath, idx, e.opts.Dialect)
		if err != nil {
			e.logger.Error("reindex failed", "error", err)
			return Stats{}, fmt.Errorf("building catalog: %w", err)
		}
	}

	if err := index.Persist(idx, e.indexPath); err != nil {
		if catalog != nil {
			catalog.Close()
		}
		e.logger.Error("reindex failed", "error", err)
		return Stats{}, err
	}

	e.mu.Lock()
	previous := e.idx
	old := e.catalog
	e.idx = idx
	e.catalog = catalog
	e.builtAt = time.Now()
	e.loaded = false
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
	e.logger.Info("index rebuilt", "records", idx.Len(), "changed", !idx.Equal(previous), "duration", time.Since(start))
	return e.Stats(), nil
}

func (e *Engine) snapshot() (*index.Index, *index.Catalog) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx, e.catalog
}

func (e *Engine) retriever() *retrieve.Retriever {
	return &retrieve.Retriever{ReportPath: e.reportPath, Dialect: e.opts.Dialect}
}

// Index returns the current index.
func (e *Engine) Index() *index.Index {
	idx, _ := e.snapshot()
	return idx
}

// ReportPath returns the path of the served report.
func (e *Engine) ReportPath() string { return e.reportPath }

// FetchOne returns the text of the record with key.
func (e *Engine) FetchOne(key string) (string, error) {
	idx, _ := e.snapshot()
	return e.retriever().Fetch(idx, key)
}

// FetchMany returns the records for keys in order, aborting on the first
// missing key.
func (e *Engine) FetchMany(keys []string) ([]string, error) {
	idx, _ := e.snapshot()
	return e.retriever().FetchMany(idx, keys)
}

// WriteMany streams the records for keys to w in order, aborting before
// anything is written when a key is missing.
func (e *Engine) WriteMany(w io.Writer, keys []string) (int64, error) {
	idx, _ := e.snapshot()
	return e.retriever().WriteMany(w, idx, keys)
}

// Keys returns entries whose key matches a glob pattern.
func (e *Engine) Keys(pattern string, maxResults int) ([]index.Entry, error) {
	idx, _ := e.snapshot()
	return idx.MatchKeys(pattern, maxResults)
}

// ErrNoCatalog is returned by Search when the engine was opened without a catalog.
var ErrNoCatalog = errors.New("search catalog not enabled")

// Search queries the metadata catalog.
func (e *Engine) Search(options index.SearchOptions) ([]index.CatalogHit, int, error) {
	_, catalog := e.snapshot()
	if catalog == nil {
		return nil, 0, ErrNoCatalog
	}
	return catalog.Search(options)
}

// Stats summarizes the current index.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var searchable uint64
	if e.catalog != nil {
		searchable = e.catalog.DocumentCount()
	}
	return Stats{
		ReportPath:  e.reportPath,
		IndexPath:   e.indexPath,
		Records:     e.idx.Len(),
		Aligned:     e.idx.AlignedCount(),
		SearchTypes: e.idx.SearchTypeCounts(),
		Loaded:      e.loaded,
		BuiltAt:     e.builtAt,
		Searchable:  searchable,
	}
}

// Stale reports whether the report was modified after its index file was
// written. A missing index file counts as stale.
func (e *Engine) Stale() (bool, error) {
	reportInfo, err := os.Stat(e.reportPath)
	if err != nil {
		return false, fmt.Errorf("%w: %w", index.ErrReportUnreadable, err)
	}
	indexInfo, err := os.Stat(e.indexPath)
	if err != nil {
		return true, nil
	}
	return reportInfo.ModTime().After(indexInfo.ModTime()), nil
}

// Close releases the catalog.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.catalog == nil {
		return nil
	}
	err := e.catalog.Close()
	e.catalog = nil
	return err
}

// ReadKeys reads a list of keys, one per line. Lines are trimmed and blank
// lines are skipped.
func ReadKeys(r io.Reader) ([]string, error) {
	var keys []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keys: %w", err)
	}
	return keys, nil
}
