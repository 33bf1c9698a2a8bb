package tools

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/lexandro/blastindex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FormatKeyResults lists matched entries with their index metadata.
func FormatKeyResults(reportName string, entries []index.Entry) string {
	if len(entries) == 0 {
		return "No keys matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d keys in %s:\n\n", len(entries), reportName))
	for _, entry := range entries {
		builder.WriteString(fmt.Sprintf("  %s  (#%d, offset %d%s)\n",
			entry.Key, entry.ID, entry.Offset, entryAnnotations(entry)))
	}
	return builder.String()
}

// FormatSearchResults lists catalog hits with the query line description.
func FormatSearchResults(reportName string, hits []index.CatalogHit, total int) string {
	if len(hits) == 0 {
		return "No records matched."
	}

	var builder strings.Builder
	if total > len(hits) {
		builder.WriteString(fmt.Sprintf("Found %d records in %s (showing %d):\n\n", total, reportName, len(hits)))
	} else {
		builder.WriteString(fmt.Sprintf("Found %d records in %s:\n\n", total, reportName))
	}
	for _, hit := range hits {
		builder.WriteString(fmt.Sprintf("── %s ──  #%d%s\n", hit.Entry.Key, hit.Entry.ID, entryAnnotations(hit.Entry)))
		if hit.Description != "" {
			builder.WriteString(fmt.Sprintf("  %s\n", hit.Description))
		}
	}
	return builder.String()
}

func entryAnnotations(entry index.Entry) string {
	var notes string
	if entry.SearchType != "" {
		notes += ", " + entry.SearchType
	}
	if entry.HasAlignments {
		notes += ", hits"
	} else {
		notes += ", no hits"
	}
	return notes
}

// FormatRecords joins fetched records. Records are emitted verbatim, each
// already ending where the next record starts.
func FormatRecords(records []string) string {
	return strings.Join(records, "")
}

// errorResult wraps an error message as a tool result the client can read.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// describeError turns engine errors into short messages for tool output.
func describeError(err error) string {
	var keyErr *index.KeyError
	switch {
	case errors.As(err, &keyErr) && errors.Is(err, index.ErrKeyNotFound):
		return fmt.Sprintf("Key not found: %s", keyErr.Key)
	case errors.Is(err, engine.ErrAmbiguousReport):
		return fmt.Sprintf("Error: %v; pass the report parameter (see blastindex_status)", err)
	case errors.Is(err, engine.ErrUnknownReport):
		return fmt.Sprintf("Error: %v", err)
	default:
		return fmt.Sprintf("Error [%s]: %v", engine.Classify(err), err)
	}
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
