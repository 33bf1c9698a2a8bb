// Package ignore decides which files under a root directory are BLAST reports
// to serve, honoring .gitignore and .blastignore files.
package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreFileName is the project-specific ignore file read from the root.
const IgnoreFileName = ".blastignore"

// Matcher determines whether a path under the root should be skipped during
// report discovery. Reload() takes the write lock, the checks take the read lock.
type Matcher struct {
	mu             sync.RWMutex
	rootDir        string
	reportPattern  string
	gitIgnore      gitignore.GitIgnore
	blastIgnore    gitignore.GitIgnore
	customPatterns []string
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir        string
	ReportPattern  string // doublestar pattern on the root-relative path
	CustomPatterns []string
}

// NewMatcher creates a matcher from the root's ignore files and the options.
func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:        options.RootDir,
		reportPattern:  options.ReportPattern,
		customPatterns: options.CustomPatterns,
	}
	if matcher.reportPattern == "" {
		matcher.reportPattern = DefaultReportPattern
	}
	matcher.gitIgnore = loadIgnoreFile(filepath.Join(options.RootDir, ".gitignore"), options.RootDir)
	matcher.blastIgnore = loadIgnoreFile(filepath.Join(options.RootDir, IgnoreFileName), options.RootDir)
	return matcher
}

// ValidPattern reports whether the report pattern is a valid glob.
func (m *Matcher) ValidPattern() bool {
	return doublestar.ValidatePattern(m.reportPattern)
}

// IsReport reports whether absolutePath names a report to serve: it matches
// the report pattern and is not ignored.
func (m *Matcher) IsReport(absolutePath string) bool {
	relativePath := m.relative(absolutePath)
	matched, err := doublestar.Match(m.reportPattern, relativePath)
	if err != nil || !matched {
		return false
	}
	return !m.ShouldIgnore(absolutePath)
}

// ShouldIgnore returns true if the given path should be excluded.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	relativePath := m.relative(absolutePath)
	if m.matchesDefaultPatterns(relativePath) {
		return true
	}

	isDir := false
	if info, err := os.Stat(absolutePath); err == nil {
		isDir = info.IsDir()
	}

	// Relative() does not require the path to exist on disk.
	for _, gi := range []gitignore.GitIgnore{m.gitIgnore, m.blastIgnore} {
		if gi == nil {
			continue
		}
		if match := gi.Relative(relativePath, isDir); match != nil && match.Ignore() {
			return true
		}
	}

	return m.matchesCustomPatterns(relativePath)
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if skippedDirs[filepath.Base(absolutePath)] {
		return true
	}
	return m.ShouldIgnore(absolutePath)
}

// relative returns the slash-separated path of absolutePath under the root.
func (m *Matcher) relative(absolutePath string) string {
	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	return filepath.ToSlash(relativePath)
}

// matchesDefaultPatterns checks path components and basenames against the defaults.
func (m *Matcher) matchesDefaultPatterns(relativePath string) bool {
	parts := strings.Split(relativePath, "/")
	baseName := strings.ToLower(parts[len(parts)-1])

	for _, pattern := range DefaultIgnorePatterns {
		pattern = strings.ToLower(pattern)
		if !strings.ContainsAny(pattern, "*?[") {
			for _, part := range parts {
				if strings.ToLower(part) == pattern {
					return true
				}
			}
			continue
		}
		if matched, err := filepath.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// matchesCustomPatterns checks user-provided exclude patterns against the
// relative path and the basename.
func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	baseName := filepath.Base(relativePath)
	for _, pattern := range m.customPatterns {
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// Reload re-reads .gitignore and .blastignore from disk.
func (m *Matcher) Reload() {
	newGitIgnore := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)
	newBlastIgnore := loadIgnoreFile(filepath.Join(m.rootDir, IgnoreFileName), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = newGitIgnore
	m.blastIgnore = newBlastIgnore
}

// loadIgnoreFile reads an ignore file through an io.Reader so the handle is
// closed promptly (Windows keeps open files locked).
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()
	return gitignore.New(f, baseDir, nil)
}
