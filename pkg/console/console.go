package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Console renders user-facing messages.
// Highlighted messages are part of the CLI contract (callers assert on
// them), so formatting stays line-oriented and colors degrade to plain
// text when the output is not a terminal.
type Console struct {
	out io.Writer
	err io.Writer
}

func New(options ...func(*Console)) *Console {
	result := &Console{
		out: os.Stdout,
		err: os.Stderr,
	}
	for _, option := range options {
		option(result)
	}
	return result
}

func ToWriter(w io.Writer) func(*Console) {
	return func(c *Console) {
		c.out = w
		c.err = w
	}
}

func ToWriters(out, err io.Writer) func(*Console) {
	return func(c *Console) {
		c.out = out
		c.err = err
	}
}

// Write copies raw text to stdout, preserving the original line breaks.
func (c *Console) Write(s string) {
	fmt.Fprint(c.out, s)
}

// WriteError copies raw text to stderr, preserving the original line breaks.
func (c *Console) WriteError(s string) {
	fmt.Fprint(c.err, s)
}

// Print writes a plain line on stdout.
func (c *Console) Print(message string) {
	fmt.Fprintln(c.out, message)
}

// Printf writes a formatted plain line on stdout.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Error writes a plain line on stderr.
func (c *Console) Error(message string) {
	fmt.Fprintln(c.err, message)
}

// Errorf writes a formatted plain line on stderr.
func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintf(c.err, format+"\n", args...)
}

// Attention writes a bold line on stderr.
func (c *Console) Attention(format string, args ...any) {
	bold := color.New(color.Bold)
	fmt.Fprintln(c.err, bold.Sprintf(format, args...))
}

// Progress creates a progress line bound to the console's stderr, so
// it never interleaves with the stdout the caller may be piping.
func (c *Console) Progress(maxSteps int) *ProgressLog {
	return NewProgressLog(maxSteps, ProgressToWriter(c.err))
}

// Diff writes a unified diff on stdout, colorizing added and removed lines.
func (c *Console) Diff(patch string) {
	for _, line := range strings.Split(strings.TrimSuffix(patch, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			fmt.Fprintln(c.out, color.RedString("%s", line))
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			fmt.Fprintln(c.out, color.GreenString("%s", line))
		default:
			fmt.Fprintln(c.out, line)
		}
	}
}

// ProgressLog displays the progression when processing many notebooks.
type ProgressLog struct {
	output        io.Writer
	maxSteps      int
	maxCharacters int
}

func NewProgressLog(maxSteps int, options ...func(*ProgressLog)) *ProgressLog {
	result := &ProgressLog{
		output:        os.Stdout,
		maxSteps:      maxSteps,
		maxCharacters: 80,
	}
	for _, option := range options {
		option(result)
	}
	return result
}

func ProgressToWriter(w io.Writer) func(*ProgressLog) {
	return func(l *ProgressLog) {
		l.output = w
	}
}

func LineLength(characters int) func(*ProgressLog) {
	return func(l *ProgressLog) {
		l.maxCharacters = characters
	}
}

// Log overwrites the current line with the progression.
func (l *ProgressLog) Log(currentStep int, message string) {
	line := fmt.Sprintf("(%d/%d) %s", currentStep, l.maxSteps, message)
	if len(line) > l.maxCharacters {
		line = line[0:l.maxCharacters]
	}
	line += strings.Repeat(" ", l.maxCharacters-len(line))
	fmt.Fprint(l.output, line, "\r")
}

// Clear rewrites the last line with a final message.
func (l *ProgressLog) Clear(newMessage string) {
	line := newMessage
	if len(line) > l.maxCharacters {
		line = line[0:l.maxCharacters]
	}
	line += strings.Repeat(" ", l.maxCharacters-len(line))
	fmt.Fprint(l.output, line)
	if newMessage == "" {
		fmt.Fprint(l.output, "\r")
	} else {
		fmt.Fprint(l.output, "\n")
	}
}
