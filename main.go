package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/lexandro/blastindex-mcp/ignore"
	"github.com/lexandro/blastindex-mcp/register"
	"github.com/lexandro/blastindex-mcp/server"
	"github.com/lexandro/blastindex-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// excludePatterns is a repeatable CLI flag for custom ignore patterns.
type excludePatterns []string

func (e *excludePatterns) String() string { return strings.Join(*e, ", ") }
func (e *excludePatterns) Set(value string) error {
	*e = append(*e, value)
	return nil
}

// logFlags are shared by every subcommand.
type logFlags struct {
	level string
	file  string
}

func (l *logFlags) register(fs *flag.FlagSet, defaultLevel string) {
	fs.StringVar(&l.level, "log-level", defaultLevel, "Log level: debug|info|warn|error")
	fs.StringVar(&l.file, "log-file", "", "Log file path (default: stderr)")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "index":
		return runIndex(args[1:], stdout, stderr)
	case "fetch":
		return runFetch(args[1:], stdin, stdout, stderr)
	case "shell":
		return runShell(args[1:], stdin, stdout, stderr)
	case "serve":
		return runServe(args[1:], stderr)
	case "register":
		if err := register.Run(register.DeriveServerName(os.Args[0]), args[1:], stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			if errors.Is(err, register.ErrUsage) {
				register.PrintUsage(stderr)
				return exitUsage
			}
			return exitError
		}
		return exitOK
	case "help", "-h", "-help", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	binaryName := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\n", binaryName)
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  index [-index FILE] [-force] [-reject-duplicates] REPORT\n")
	fmt.Fprintf(w, "                                             build and persist the index of a report\n")
	fmt.Fprintf(w, "  fetch [-index FILE] [-keys FILE] REPORT [KEY...]\n")
	fmt.Fprintf(w, "                                             write records to stdout, in key order\n")
	fmt.Fprintf(w, "  shell [-index FILE] REPORT                 interactive lookups\n")
	fmt.Fprintf(w, "  serve (-report FILE | -root DIR) [flags]   MCP server on stdio\n")
	fmt.Fprintf(w, "  register project|user [dir] [-- flags]     add the server to an MCP client config\n")
	fmt.Fprintf(w, "\nExit status: 0 ok, 1 error, 2 usage, 3 key not found.\n")
}

// defaultIndexPath places the index next to the report.
func defaultIndexPath(reportPath, indexPath string) string {
	if indexPath != "" {
		return indexPath
	}
	return reportPath + ".idx"
}

func runIndex(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var logs logFlags
	logs.register(fs, "warn")
	indexPath := fs.String("index", "", "Index file (default: REPORT.idx)")
	force := fs.Bool("force", false, "Rebuild even if the index file exists")
	rejectDuplicates := fs.Bool("reject-duplicates", false, "Fail when a key occurs twice")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: index takes exactly one report path")
		return exitUsage
	}

	logger := setupLogger(logs.level, logs.file)
	reportPath := fs.Arg(0)

	e, err := engine.Open(reportPath, defaultIndexPath(reportPath, *indexPath), engine.Options{
		Logger:           logger,
		RejectDuplicates: *rejectDuplicates,
		Rebuild:          *force,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitCode(err)
	}
	defer e.Close()

	stats := e.Stats()

	verb := "indexed"
	if stats.Loaded {
		verb = "index exists for"
	}
	fmt.Fprintf(stdout, "%s %s: %d records (%d with hits) -> %s\n",
		verb, reportPath, stats.Records, stats.Aligned, stats.IndexPath)
	return exitOK
}

func runFetch(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var logs logFlags
	logs.register(fs, "warn")
	indexPath := fs.String("index", "", "Index file (default: REPORT.idx)")
	keysFile := fs.String("keys", "", "File with one key per line, - for stdin")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: fetch needs a report path")
		return exitUsage
	}

	reportPath := fs.Arg(0)
	keys := append([]string(nil), fs.Args()[1:]...)
	if *keysFile != "" {
		fileKeys, err := readKeysFile(*keysFile, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		keys = append(keys, fileKeys...)
	}
	if len(keys) == 0 {
		fmt.Fprintln(stderr, "Error: no keys given")
		return exitUsage
	}

	logger := setupLogger(logs.level, logs.file)
	e, err := engine.Open(reportPath, defaultIndexPath(reportPath, *indexPath), engine.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitCode(err)
	}
	defer e.Close()

	out := bufio.NewWriter(stdout)
	_, err = e.WriteMany(out, keys)
	if flushErr := out.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitCode(err)
	}
	return exitOK
}

func readKeysFile(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		return engine.ReadKeys(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening key list: %w", err)
	}
	defer f.Close()
	return engine.ReadKeys(f)
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var logs logFlags
	logs.register(fs, "info")
	var excludes excludePatterns
	var options serveOptions
	fs.StringVar(&options.reportPath, "report", "", "Serve a single report")
	fs.StringVar(&options.indexPath, "index", "", "Index file for -report (default: REPORT.idx)")
	fs.StringVar(&options.rootDir, "root", "", "Serve every report under this directory (default: current directory)")
	fs.StringVar(&options.indexDir, "index-dir", "", "Directory for the indexes of -root reports (default: next to each report)")
	fs.StringVar(&options.pattern, "pattern", "", "Report glob under -root (default: "+ignore.DefaultReportPattern+")")
	fs.Var(&excludes, "exclude", "Extra ignore pattern (repeatable)")
	fs.BoolVar(&options.rebuildOnChange, "rebuild-on-change", false, "Rebuild an index when its report changes")
	fs.IntVar(&options.syncIntervalSeconds, "sync-interval", 0, "Seconds between staleness checks (0 disables)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if options.reportPath != "" && options.rootDir != "" {
		fmt.Fprintln(stderr, "Error: -report and -root are mutually exclusive")
		return exitUsage
	}
	options.excludes = excludes

	if options.reportPath == "" {
		if options.rootDir == "" {
			wd, err := os.Getwd()
			if err != nil {
				fmt.Fprintf(stderr, "Error getting working directory: %v\n", err)
				return exitError
			}
			options.rootDir = wd
		}
		options.rootDir, _ = filepath.Abs(options.rootDir)
		if logs.file == "" {
			logs.file = filepath.Join(options.rootDir, "blastindex-mcp.log")
		}
	} else {
		options.reportPath, _ = filepath.Abs(options.reportPath)
	}

	// Logs never go to stdout, which carries the MCP stdio stream.
	logger := setupLogger(logs.level, logs.file).With("session", uuid.NewString())
	logger.Info("starting blastindex-mcp",
		"report", options.reportPath,
		"root", options.rootDir,
		"indexDir", options.indexDir,
		"rebuildOnChange", options.rebuildOnChange,
	)

	startTime := time.Now()
	lib, matcher, err := openLibrary(options, logger)
	if err != nil {
		logger.Error("failed to open reports", "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitCode(err)
	}
	defer lib.Close()
	logger.Info("reports ready", "reports", lib.Len(), "duration", time.Since(startTime))

	stopWatching := startWatching(options, lib, matcher, logger)
	defer stopWatching()

	stopSync := make(chan struct{})
	defer close(stopSync)
	if options.syncIntervalSeconds > 0 {
		go runPeriodicSync(options.syncIntervalSeconds, lib, matcher, options.rebuildOnChange, logger, stopSync)
	}

	mcpServer := server.Setup(
		&tools.FetchHandler{Library: lib, Logger: logger},
		&tools.KeysHandler{Library: lib, Logger: logger},
		&tools.SearchHandler{Library: lib, Logger: logger},
		&tools.StatusHandler{Library: lib, StartTime: startTime, Logger: logger},
		&tools.ReindexHandler{Library: lib, Logger: logger},
	)

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Error("MCP server error", "error", err)
		return exitError
	}
	return exitOK
}

// setupLogger creates an slog.Logger writing to stderr or a file.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	var writer *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
			writer = os.Stderr
		} else {
			writer = f
		}
	} else {
		writer = os.Stderr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
