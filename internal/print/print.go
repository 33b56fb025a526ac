// Package print renders STRQL errors the way a terminal user expects: a
// line gutter, the offending source line, and a caret pointing at the
// exact column.
package print

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/strqllang/strql/internal/capture"
	"github.com/strqllang/strql/internal/matcher"
	"github.com/strqllang/strql/internal/parser"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	gutterStyle  = color.New(color.FgBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
)

// FormatError renders any error Run/Compile can return. For a ParseError it
// points at the offending line/column of query; for a match or projection
// failure it just prints the message, since those carry no source
// position in the query text.
func FormatError(query string, err error) string {
	if perr, ok := err.(*parser.Error); ok {
		return formatParseError(query, perr)
	}
	return errorStyle.Sprint("error: ") + err.Error() + "\n"
}

func formatParseError(query string, perr *parser.Error) string {
	var b strings.Builder
	b.WriteString(errorStyle.Sprint("error: ") + perr.Kind.String() + ": " + perr.Msg + "\n")

	lines := strings.Split(query, "\n")
	if perr.Line < 1 || perr.Line > len(lines) {
		return b.String()
	}
	line := lines[perr.Line-1]
	lineNumStr := fmt.Sprintf("%d", perr.Line)
	padding := strings.Repeat(" ", len(lineNumStr))

	b.WriteString(gutterStyle.Sprintf("  %s|\n", padding))
	b.WriteString(gutterStyle.Sprintf("%s | ", lineNumStr))
	b.WriteString(line + "\n")
	b.WriteString(gutterStyle.Sprintf("  %s| ", padding))
	col := perr.Col - 1
	if col < 0 {
		col = 0
	}
	b.WriteString(strings.Repeat(" ", col))
	b.WriteString(messageStyle.Sprint("^\n"))
	return b.String()
}

// FormatMatchSummary describes a NoMatch/Ambiguous/CaptureConflict result
// against input, pointing at the offset where the best attempt gave up.
func FormatMatchSummary(input string, err error) string {
	switch e := err.(type) {
	case *matcher.NoMatchError:
		return formatOffset(input, e.Matched, errorStyle.Sprint("no match")+fmt.Sprintf(" (stopped after %d of %d bytes)", e.Matched, e.Total))
	case *matcher.AmbiguousError:
		if e.Span >= 0 {
			return formatOffset(input, e.Span, errorStyle.Sprint("ambiguous: ")+e.Reason)
		}
		return errorStyle.Sprint("ambiguous: ") + e.Reason + "\n"
	case *capture.ConflictError:
		return errorStyle.Sprint("capture conflict: ") + e.Error() + "\n"
	default:
		return errorStyle.Sprint("error: ") + err.Error() + "\n"
	}
}

func formatOffset(input string, offset int, message string) string {
	if offset < 0 || offset > len(input) {
		return message + "\n"
	}
	var b strings.Builder
	b.WriteString(message + "\n")
	b.WriteString(input + "\n")
	col := offset
	if col > len(input) {
		col = len(input)
	}
	b.WriteString(strings.Repeat(" ", col))
	b.WriteString(messageStyle.Sprint("^\n"))
	return b.String()
}
