package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReindexArgs defines the input parameters for the blastindex_reindex tool.
type ReindexArgs struct {
	Report string `json:"report,omitempty" jsonschema:"Report to rebuild. Omit to rebuild every served report"`
}

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	Library *engine.Library
	Workers int // parallel rebuilds when no report is named (default 4)
	Logger  *slog.Logger
}

// Handle processes a blastindex_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	h.Logger.Info("blastindex_reindex started", "report", args.Report)

	results, err := h.reindex(ctx, args.Report)
	if err != nil {
		h.Logger.Error("blastindex_reindex failed", "report", args.Report, "error", err)
		return errorResult("Reindex failed: %s", describeError(err)), nil, nil
	}
	if len(results) == 0 {
		return errorResult("Error: no reports are served"), nil, nil
	}

	names := make([]string, 0, len(results))
	records := 0
	for name, stats := range results {
		names = append(names, name)
		records += stats.Records
	}
	sort.Strings(names)

	elapsed := time.Since(start).Round(time.Millisecond)
	h.Logger.Info("blastindex_reindex complete",
		"reports", len(names),
		"records", records,
		"elapsed", elapsed,
	)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Reindex complete: %d reports, %d records in %s\n", len(names), records, elapsed))
	for _, name := range names {
		builder.WriteString(fmt.Sprintf("  %s: %d records\n", name, results[name].Records))
	}
	return textResult(builder.String()), nil, nil
}

func (h *ReindexHandler) reindex(ctx context.Context, report string) (map[string]engine.Stats, error) {
	if report == "" {
		return h.Library.ReindexAll(ctx, h.Workers)
	}
	e, err := h.Library.Get(report)
	if err != nil {
		return nil, err
	}
	stats, err := e.Reindex()
	if err != nil {
		return nil, err
	}
	return map[string]engine.Stats{report: stats}, nil
}
