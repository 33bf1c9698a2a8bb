package engine

import (
	"errors"

	"github.com/lexandro/blastindex-mcp/index"
)

// Code is a coarse error category used for logs and process exit status.
type Code string

const (
	CodeOK           Code = "ok"
	CodeUnknown      Code = "unknown"
	CodeReport       Code = "report_unreadable"
	CodeIndexRead    Code = "index_read"
	CodeIndexWrite   Code = "index_write"
	CodeKeyNotFound  Code = "key_not_found"
	CodeDuplicateKey Code = "duplicate_key"
)

// Classify maps an error to its category using the sentinel errors only.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, index.ErrKeyNotFound):
		return CodeKeyNotFound
	case errors.Is(err, index.ErrDuplicateKey):
		return CodeDuplicateKey
	case errors.Is(err, index.ErrReportUnreadable):
		return CodeReport
	case errors.Is(err, index.ErrIndexRead):
		return CodeIndexRead
	case errors.Is(err, index.ErrIndexWrite):
		return CodeIndexWrite
	default:
		return CodeUnknown
	}
}

// ExitCode returns the process exit status for err: 0 on success, 3 for a
// missing key, 1 otherwise. Usage errors (2) are decided by the caller.
func ExitCode(err error) int {
	switch Classify(err) {
	case CodeOK:
		return 0
	case CodeKeyNotFound:
		return 3
	default:
		return 1
	}
}
