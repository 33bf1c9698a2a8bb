package ignore

// DefaultIgnorePatterns are never treated as reports during discovery.
var DefaultIgnorePatterns = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Our own output
	"*.idx",
	".blastindex-*.tmp",
	"*.log",

	// Sequence inputs and BLAST databases that sit next to reports
	"*.fa",
	"*.fasta",
	"*.fna",
	"*.faa",
	"*.nhr",
	"*.nin",
	"*.nsq",
	"*.phr",
	"*.pin",
	"*.psq",

	// Archives (compressed reports are not indexed)
	"*.gz",
	"*.bz2",
	"*.zip",
	"*.tar",
	"*.tgz",

	// Editor and OS files
	"*.swp",
	"*~",
	".DS_Store",
	"Thumbs.db",
}

// DefaultReportPattern selects report files by extension.
const DefaultReportPattern = "**/*.{blast,blastn,blastp,blastx,out,txt}"

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	".cache": true, ".venv": true, "venv": true, "node_modules": true,
}
