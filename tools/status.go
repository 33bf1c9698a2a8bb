package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the blastindex_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Library   *engine.Library
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a blastindex_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	names := h.Library.Names()
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	builder.WriteString("=== blastindex-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Root directory: %s\n", h.Library.RootDir()))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Reports: %d\n", len(names)))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	totalRecords := 0
	for _, name := range names {
		e, err := h.Library.Get(name)
		if err != nil {
			continue
		}
		stats := e.Stats()
		totalRecords += stats.Records

		builder.WriteString(fmt.Sprintf("\n── %s ──\n", name))
		if info, err := os.Stat(stats.ReportPath); err == nil {
			builder.WriteString(fmt.Sprintf("  Size: %s\n", formatFileSize(info.Size())))
		}
		builder.WriteString(fmt.Sprintf("  Records: %d (%d with hits)\n", stats.Records, stats.Aligned))
		builder.WriteString(fmt.Sprintf("  Index: %s\n", stats.IndexPath))
		builder.WriteString(fmt.Sprintf("  Searchable: %d records\n", stats.Searchable))
		if stale, err := e.Stale(); err != nil {
			builder.WriteString(fmt.Sprintf("  Report unreadable: %v\n", err))
		} else if stale {
			builder.WriteString("  Index is stale: report changed after indexing (run blastindex_reindex)\n")
		}

		idx := e.Index()
		for _, searchType := range idx.SortedSearchTypes() {
			label := searchType
			if label == "" {
				label = "(unknown)"
			}
			builder.WriteString(fmt.Sprintf("    %-12s %d records\n", label, stats.SearchTypes[searchType]))
		}
	}

	h.Logger.Info("blastindex_status",
		"reports", len(names),
		"records", totalRecords,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	return textResult(builder.String()), nil, nil
}
