package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// KeysArgs defines the input parameters for the blastindex_keys tool.
type KeysArgs struct {
	Report     string `json:"report,omitempty" jsonschema:"Report name as listed by blastindex_status. May be omitted when one report is served"`
	Pattern    string `json:"pattern" jsonschema:"Glob pattern over query keys (e.g. contig_* or sample?_read*)"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of keys to return (default 50)"`
}

// KeysHandler holds the dependencies for the keys tool.
type KeysHandler struct {
	Library *engine.Library
	Logger  *slog.Logger
}

// Handle processes a blastindex_keys request.
func (h *KeysHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args KeysArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Pattern == "" {
		h.Logger.Warn("blastindex_keys called with empty pattern")
		return errorResult("Error: pattern parameter is required"), nil, nil
	}

	e, err := h.Library.Get(args.Report)
	if err != nil {
		return errorResult("%s", describeError(err)), nil, nil
	}

	entries, err := e.Keys(args.Pattern, args.MaxResults)
	if err != nil {
		h.Logger.Error("blastindex_keys failed", "pattern", args.Pattern, "error", err)
		return errorResult("Pattern error: %v", err), nil, nil
	}

	h.Logger.Info("blastindex_keys",
		"report", args.Report,
		"pattern", args.Pattern,
		"results", len(entries),
		"elapsed", time.Since(start),
	)
	return textResult(FormatKeyResults(h.Library.Name(e.ReportPath()), entries)), nil, nil
}
