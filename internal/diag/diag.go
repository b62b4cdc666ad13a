// Package diag prints compiler diagnostics in the teacher's format:
// "file:line:col: error: message", with a caret under the offending source
// column when the source text is available. Colors follow the teacher's
// ANSI scheme but are suppressed on non-terminals (detected with
// github.com/mattn/go-isatty), since this compiler is as often driven from
// test harnesses and CI pipes as from an interactive shell.
package diag

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/al-romanov/lama-compiler-2022/pkg/token"
)

// Exit is called to abort the process after a fatal error. Tests substitute
// it with a function that panics a sentinel instead of calling os.Exit, so
// the fatal path is still exercised without killing the test binary.
var Exit = os.Exit

var colorEnabled = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

const (
	red    = "\033[31m"
	yellow = "\033[33m"
	green  = "\033[32m"
	reset  = "\033[0m"
)

func colorize(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + reset
}

// SourceRecord pairs a file name with its full text, used to render the
// caret-annotated source line under a diagnostic.
type SourceRecord struct {
	Name    string
	Content string
}

var sources = map[string]string{}

// SetSources registers source text for later diagnostics; the caret line
// is printed only for files registered here. cmd/lamac does not call it.
func SetSources(records []SourceRecord) {
	sources = make(map[string]string, len(records))
	for _, r := range records {
		sources[r.Name] = r.Content
	}
}

func sourceLine(pos token.Pos) (string, bool) {
	content, ok := sources[pos.File]
	if !ok || pos.Line <= 0 {
		return "", false
	}
	lines := strings.Split(content, "\n")
	if pos.Line > len(lines) {
		return "", false
	}
	return lines[pos.Line-1], true
}

func printCaret(w *os.File, pos token.Pos) {
	line, ok := sourceLine(pos)
	if !ok {
		return
	}
	fmt.Fprintf(w, "  %s\n", line)
	col := pos.Col
	if col < 1 {
		col = 1
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", col-1), colorize(green, "^"))
}

// Error prints a fatal diagnostic and aborts the process. Per spec §7 there
// is no error recovery: the first semantic error found during AST→SM
// compilation stops everything.
func Error(pos token.Pos, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s ", pos.String(), colorize(red, "error:"))
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	printCaret(os.Stderr, pos)
	Exit(1)
}

// Warn prints a non-fatal diagnostic.
func Warn(pos token.Pos, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s ", pos.String(), colorize(yellow, "warning:"))
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	printCaret(os.Stderr, pos)
}

// NameError reports a semantic name-resolution failure (spec §7): an
// unresolved name, or a name resolving to the wrong kind of binding (e.g.
// taking a reference to a `val`, or calling something that isn't a
// function). Message format is fixed by spec §7:
// `the name "<n>" does not designate a <kind> at <line>:<col>`.
func NameError(pos token.Pos, name, kind string) {
	fmt.Fprintf(os.Stderr, "the name %q does not designate a %s at %d:%d\n", name, kind, pos.Line, pos.Col)
	Exit(1)
}

// Bug reports an internal compiler invariant violation — never a user
// error. Per spec §7, any exhaustive-match failure or impossible state
// during SM→x86 lowering lands here.
func Bug(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "lamac: internal error: %s\n", fmt.Sprintf(format, args...))
	Exit(2)
}
