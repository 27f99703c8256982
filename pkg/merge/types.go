// Package merge implements the unifile core: directory traversal with
// exclusion rules, encoding-fallback reading, and rendering of the combined
// output document.
package merge

import (
	"fmt"
	"strings"
	"time"
)

// Arguments holds the per-invocation options for a merge run.
type Arguments struct {
	SourceDir     string   // Directory whose tree is merged.
	Output        string   // Destination path for the merge document.
	Tree          string   // Optional destination for the directory tree rendering.
	ExtraPatterns []string // Additional filename exclusion globs from the command line.
}

// FileRecord is one successfully read file, in the form the formatter consumes.
// Records are created during the walk and never mutated afterwards.
type FileRecord struct {
	AbsPath  string    // Absolute path on disk.
	RelPath  string    // Slash-separated path relative to the source root.
	Content  string    // Decoded text content.
	Size     int64     // Size in bytes on disk.
	ModTime  time.Time // Last-modified timestamp.
	Encoding string    // Name of the encoding that decoded the file.
}

// RunSummary accumulates the outcome counters of one run.
type RunSummary struct {
	FilesIncluded  int   // Files whose content made it into the document.
	FilesExcluded  int   // Entries skipped by rules or by the size cap.
	DecodeFailures int   // Files no configured encoding could decode.
	BytesWritten   int64 // Total content bytes accepted.
	Truncated      bool  // True once the size cap stopped further files.
}

// DecodeError reports that none of the attempted encodings decoded a file.
// It is a per-file outcome, never fatal to the run.
type DecodeError struct {
	Path      string
	Attempted []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s with encodings [%s]", e.Path, strings.Join(e.Attempted, ", "))
}
