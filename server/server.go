package server

import (
	"github.com/lexandro/blastindex-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Setup creates and configures the MCP server with all tool registrations.
func Setup(
	fetchHandler *tools.FetchHandler,
	keysHandler *tools.KeysHandler,
	searchHandler *tools.SearchHandler,
	statusHandler *tools.StatusHandler,
	reindexHandler *tools.ReindexHandler,
) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "blastindex-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server serves records of large BLAST text reports through a persisted byte-offset index. A record is everything from one "Query=" line up to the next.

Use these tools instead of reading or grepping the report files:
- blastindex_fetch returns the exact record text for one or more query keys without scanning the report
- blastindex_keys lists query keys matching a glob pattern
- blastindex_search finds records by words in the query description, by key substring, by program or by whether they have hits
- blastindex_status lists the served reports and warns when an index is older than its report`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "blastindex_fetch",
		Description: `Fetch records by query key. Returns the record text byte-for-byte as it appears in the report, concatenated in the order the keys are given.

If any key is missing nothing is returned and the error names the missing key.`,
	}, fetchHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "blastindex_keys",
		Description: `List query keys matching a glob pattern, with record number, byte offset, program and whether the record has hits.

Pattern examples:
  - "contig_*" - keys starting with contig_
  - "*_R1" - keys ending in _R1
  - "sample?" - sample1, sampleA, ...`,
	}, keysHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "blastindex_search",
		Description: `Search records by metadata.

Query formats:
  - Plain text: words in the query description, or a substring of the key
  - "quoted text": exact phrase in the description
  - /regex/: regular expression over the whole key

Filtering:
  - searchType: BLASTN, BLASTP, BLASTX, TBLASTN or TBLASTX
  - alignedOnly: only records with significant alignments`,
	}, searchHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "blastindex_status",
		Description: "Show served reports: record counts, programs, index location and staleness, memory usage, and uptime.",
	}, statusHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "blastindex_reindex",
		Description: "Rebuild the index of one report, or of every served report when none is named, by rescanning it from the start.",
	}, reindexHandler.Handle)

	return mcpServer
}
