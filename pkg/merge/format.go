package merge

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"unifile/pkg/config"
)

// documentTitle is the fixed first line of every merge document.
const documentTitle = "MERGED SOURCE CODE FILES"

// Format renders the merge document from the ordered file records and the run
// summary. It is pure given its inputs: the orchestrator supplies all data,
// including the start and end timestamps, and performs the write itself.
func Format(records []FileRecord, summary RunSummary, cfg *config.Config, sourceDir string, start, end time.Time) (string, error) {
	sep := strings.Repeat(cfg.OutputFormat.SeparatorLine, cfg.OutputFormat.SeparatorLength)
	trailer := strings.Repeat("-", cfg.OutputFormat.SeparatorLength)

	var b strings.Builder

	b.WriteString(documentTitle + "\n")
	b.WriteString(sep + "\n")
	b.WriteString("Project Directory: " + sourceDir + "\n")
	if cfg.Output.AddTimestamp {
		ts, err := formatTimestamp(cfg.Output.TimestampFormat, start)
		if err != nil {
			return "", err
		}
		b.WriteString("Merge Started: " + ts + "\n")
	}
	b.WriteString(sep + "\n\n")

	for _, rec := range records {
		b.WriteString("### FILE: " + rec.RelPath + "\n")
		b.WriteString(sep + "\n")
		if cfg.OutputFormat.ShowFileCount {
			modified, err := formatTimestamp(cfg.Output.TimestampFormat, rec.ModTime)
			if err != nil {
				return "", err
			}
			b.WriteString("METADATA:\n")
			b.WriteString("  Modified: " + modified + "\n")
			fmt.Fprintf(&b, "  Size: %d bytes\n", rec.Size)
			b.WriteString("  Full path: " + rec.AbsPath + "\n")
			b.WriteString(sep + "\n")
		}
		b.WriteString("\n")
		b.WriteString(renderContent(rec.Content, cfg.OutputFormat.AddLineNumbers, cfg.Output.LineEnding))
		b.WriteString(trailer + "\n\n")
	}

	if cfg.OutputFormat.ShowSummary {
		b.WriteString(sep + "\n")
		b.WriteString("SUMMARY\n")
		b.WriteString(sep + "\n")
		fmt.Fprintf(&b, "Files processed: %d\n", summary.FilesIncluded)
		fmt.Fprintf(&b, "Files excluded: %d\n", summary.FilesExcluded)
		fmt.Fprintf(&b, "Decode failures: %d\n", summary.DecodeFailures)
		fmt.Fprintf(&b, "Bytes written: %d\n", summary.BytesWritten)
		if summary.Truncated {
			b.WriteString("Truncated: size cap reached, remaining files excluded\n")
		}
		fmt.Fprintf(&b, "Duration: %.2f seconds\n", end.Sub(start).Seconds())
		if cfg.Output.AddTimestamp {
			completed, err := formatTimestamp(cfg.Output.TimestampFormat, end)
			if err != nil {
				return "", err
			}
			b.WriteString("Completed: " + completed + "\n")
		}
		b.WriteString(sep + "\n")
	}

	return b.String(), nil
}

// formatTimestamp renders t using a strftime pattern, keeping the config file
// compatible with patterns like "%Y-%m-%d %H:%M:%S".
func formatTimestamp(pattern string, t time.Time) (string, error) {
	out, err := strftime.Format(pattern, t)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp_format %q: %w", pattern, err)
	}
	return out, nil
}

// rawLine is one content line with its original terminator. The terminator is
// empty for a final line that did not end with a newline.
type rawLine struct {
	text   string
	ending string
}

// splitLines splits s into lines, preserving each line's terminator so that
// the "auto" line-ending mode can reproduce the input byte-for-byte.
func splitLines(s string) []rawLine {
	var lines []rawLine
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, rawLine{text: s[start:i], ending: "\n"})
			start = i + 1
		case '\r':
			ending := "\r"
			if i+1 < len(s) && s[i+1] == '\n' {
				ending = "\r\n"
			}
			lines = append(lines, rawLine{text: s[start:i], ending: ending})
			start = i + len(ending)
			i += len(ending) - 1
		}
	}
	if start < len(s) {
		lines = append(lines, rawLine{text: s[start:], ending: ""})
	}
	return lines
}

// renderContent produces a file's content block. Line numbers restart at 1 for
// every file and are right-aligned before a " | " delimiter. The lf and crlf
// modes normalize every terminator; auto keeps each line's original one. The
// block always ends with a line terminator.
func renderContent(text string, addLineNumbers bool, lineEnding string) string {
	var forced string
	switch lineEnding {
	case config.LineEndingLF:
		forced = "\n"
	case config.LineEndingCRLF:
		forced = "\r\n"
	}

	var b strings.Builder
	for i, line := range splitLines(text) {
		if addLineNumbers {
			fmt.Fprintf(&b, "%4d | %s", i+1, line.text)
		} else {
			b.WriteString(line.text)
		}
		switch {
		case forced != "":
			b.WriteString(forced)
		case line.ending != "":
			b.WriteString(line.ending)
		default:
			b.WriteString("\n")
		}
	}
	return b.String()
}
