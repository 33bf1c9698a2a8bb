package tools

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const testReport = `BLASTN 2.2.26 [Sep-21-2011]

Query= contig_1 Escherichia coli chromosome fragment
         (120 letters)

Sequences producing significant alignments:                      (bits) Value

gi|123|ref|NC_000913.3|  Escherichia coli K-12                     220   1e-57

BLASTN 2.2.26 [Sep-21-2011]

Query= contig_2 unplaced scaffold
         (80 letters)

 ***** No hits found *****

BLASTX 2.2.26 [Sep-21-2011]

Query= read_7 Escherichia coli plasmid
         (300 letters)

Sequences producing significant alignments:                      (bits) Value

sp|P0A7|  Plasmid protein                                          90   2e-19
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestLibrary serves testReport as "run.blast" with the search catalog enabled.
func newTestLibrary(t *testing.T) (*engine.Library, string) {
	t.Helper()
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "run.blast")
	if err := os.WriteFile(reportPath, []byte(testReport), 0644); err != nil {
		t.Fatal(err)
	}
	lib, err := engine.SingleReport(reportPath, reportPath+".idx", engine.Options{
		Logger:  testLogger(),
		Catalog: true,
	})
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}
	t.Cleanup(lib.Close)
	return lib, reportPath
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	return result.Content[0].(*mcp.TextContent).Text
}
