package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/lexandro/blastindex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the blastindex_search tool.
type SearchArgs struct {
	Report      string `json:"report,omitempty" jsonschema:"Report name as listed by blastindex_status. May be omitted when one report is served"`
	Query       string `json:"query" jsonschema:"Search over query keys and descriptions. Plain text for word match, quoted for exact phrase, /regex/ for a regular expression on the key"`
	SearchType  string `json:"searchType,omitempty" jsonschema:"Only records of this program, e.g. BLASTN or TBLASTX"`
	AlignedOnly bool   `json:"alignedOnly,omitempty" jsonschema:"Only records that have significant alignments"`
	MaxResults  int    `json:"maxResults,omitempty" jsonschema:"Maximum number of records to return (default 50)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Library *engine.Library
	Logger  *slog.Logger
}

// Handle processes a blastindex_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("blastindex_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	e, err := h.Library.Get(args.Report)
	if err != nil {
		return errorResult("%s", describeError(err)), nil, nil
	}

	hits, total, err := e.Search(index.SearchOptions{
		Query:       args.Query,
		SearchType:  args.SearchType,
		AlignedOnly: args.AlignedOnly,
		MaxResults:  args.MaxResults,
	})
	if err != nil {
		h.Logger.Error("blastindex_search failed", "query", args.Query, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("blastindex_search",
		"report", args.Report,
		"query", args.Query,
		"searchType", args.SearchType,
		"results", len(hits),
		"total", total,
		"elapsed", time.Since(start),
	)
	return textResult(FormatSearchResults(h.Library.Name(e.ReportPath()), hits, total)), nil, nil
}
