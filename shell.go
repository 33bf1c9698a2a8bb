package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/lexandro/blastindex-mcp/index"
)

const shellHelp = `Commands:
  fetch KEY...                      print records in the given order
  keys PATTERN [MAX]                list keys matching a glob
  search [-type T] [-aligned] [-max N] QUERY
                                    search descriptions and keys
  count                             number of records
  status                            index summary
  reindex                           rebuild the index from the report
  help                              this text
  exit                              leave the shell
Arguments are split like a POSIX shell, so quote keys containing spaces.`

func runShell(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var logs logFlags
	logs.register(fs, "warn")
	indexPath := fs.String("index", "", "Index file (default: REPORT.idx)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: shell takes exactly one report path")
		return exitUsage
	}

	reportPath := fs.Arg(0)
	logger := setupLogger(logs.level, logs.file).With("session", uuid.NewString())
	e, err := engine.Open(reportPath, defaultIndexPath(reportPath, *indexPath), engine.Options{Logger: logger, Catalog: true})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitCode(err)
	}
	defer e.Close()

	fmt.Fprintf(stdout, "Opened %s (%d records)\n", reportPath, e.Index().Len())
	fmt.Fprintln(stdout, "Type commands. 'help' for information or 'exit' to quit.")

	reader := bufio.NewReader(stdin)
	for {
		fmt.Fprint(stdout, "> ")

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if err != io.EOF {
				fmt.Fprintln(stderr, "input error:", err)
				return exitError
			}
			fmt.Fprintln(stdout)
			return exitOK
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		words, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintln(stdout, "parse error:", err)
			continue
		}
		if words[0] == "exit" || words[0] == "quit" {
			return exitOK
		}
		if err := execShellCommand(e, words, stdout); err != nil {
			fmt.Fprintln(stdout, "error:", err)
		}
	}
}

// execShellCommand runs one parsed shell line against the engine.
func execShellCommand(e *engine.Engine, words []string, out io.Writer) error {
	command, args := words[0], words[1:]

	switch command {
	case "help":
		fmt.Fprintln(out, shellHelp)

	case "fetch":
		if len(args) == 0 {
			return fmt.Errorf("usage: fetch KEY...")
		}
		_, err := e.WriteMany(out, args)
		return err

	case "keys":
		if len(args) == 0 || len(args) > 2 {
			return fmt.Errorf("usage: keys PATTERN [MAX]")
		}
		maxResults := 0
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid MAX %q", args[1])
			}
			maxResults = n
		}
		entries, err := e.Keys(args[0], maxResults)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			fmt.Fprintf(out, "%s\t%d\t%s\n", entry.Key, entry.Offset, describeEntry(entry))
		}
		fmt.Fprintf(out, "(%d keys)\n", len(entries))

	case "search":
		fs := flag.NewFlagSet("search", flag.ContinueOnError)
		fs.SetOutput(out)
		searchType := fs.String("type", "", "Only records of this program")
		aligned := fs.Bool("aligned", false, "Only records with hits")
		maxResults := fs.Int("max", 20, "Maximum records to list")
		if err := fs.Parse(args); err != nil {
			return nil
		}
		if fs.NArg() == 0 {
			return fmt.Errorf("usage: search [-type T] [-aligned] [-max N] QUERY")
		}
		hits, total, err := e.Search(index.SearchOptions{
			Query:       strings.Join(fs.Args(), " "),
			SearchType:  *searchType,
			AlignedOnly: *aligned,
			MaxResults:  *maxResults,
		})
		if err != nil {
			return err
		}
		for _, hit := range hits {
			fmt.Fprintf(out, "%s\t%s\t%s\n", hit.Entry.Key, describeEntry(hit.Entry), hit.Description)
		}
		fmt.Fprintf(out, "(%d of %d records)\n", len(hits), total)

	case "count":
		fmt.Fprintln(out, e.Index().Len())

	case "status":
		printStats(out, e.Stats())

	case "reindex":
		stats, err := e.Reindex()
		if err != nil {
			return err
		}
		printStats(out, stats)

	default:
		return fmt.Errorf("unknown command %q (try help)", command)
	}
	return nil
}

func describeEntry(entry index.Entry) string {
	searchType := entry.SearchType
	if searchType == "" {
		searchType = "-"
	}
	if entry.HasAlignments {
		return searchType + "\thits"
	}
	return searchType + "\tno hits"
}

func printStats(out io.Writer, stats engine.Stats) {
	fmt.Fprintf(out, "report:  %s\n", stats.ReportPath)
	fmt.Fprintf(out, "index:   %s\n", stats.IndexPath)
	fmt.Fprintf(out, "records: %d (%d with hits)\n", stats.Records, stats.Aligned)
	searchTypes := make([]string, 0, len(stats.SearchTypes))
	for searchType := range stats.SearchTypes {
		searchTypes = append(searchTypes, searchType)
	}
	sort.Strings(searchTypes)
	for _, searchType := range searchTypes {
		label := searchType
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(out, "  %-8s %d\n", label, stats.SearchTypes[searchType])
	}
}
