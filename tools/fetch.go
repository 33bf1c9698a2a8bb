package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FetchArgs defines the input parameters for the blastindex_fetch tool.
type FetchArgs struct {
	Report string   `json:"report,omitempty" jsonschema:"Report name as listed by blastindex_status. May be omitted when one report is served"`
	Keys   []string `json:"keys" jsonschema:"Query keys to fetch, in output order"`
}

// FetchHandler holds the dependencies for the fetch tool.
type FetchHandler struct {
	Library *engine.Library
	Logger  *slog.Logger
}

// Handle processes a blastindex_fetch request. Either every record is
// returned or none is.
func (h *FetchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FetchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if len(args.Keys) == 0 {
		h.Logger.Warn("blastindex_fetch called without keys")
		return errorResult("Error: keys parameter is required"), nil, nil
	}

	e, err := h.Library.Get(args.Report)
	if err != nil {
		return errorResult("%s", describeError(err)), nil, nil
	}

	records, err := e.FetchMany(args.Keys)
	if err != nil {
		h.Logger.Info("blastindex_fetch failed", "report", args.Report, "keys", len(args.Keys), "error", err)
		return errorResult("%s", describeError(err)), nil, nil
	}

	h.Logger.Info("blastindex_fetch",
		"report", args.Report,
		"keys", len(args.Keys),
		"elapsed", time.Since(start),
	)
	return textResult(FormatRecords(records)), nil, nil
}
