package log

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gur-shatz/go-cgi/internal/color"
)

// Logger is an instance-based logger with its own prefix and verbosity.
type Logger struct {
	prefix  string
	verbose bool
	out     io.Writer
	errOut  io.Writer
}

// New creates a Logger writing to stdout and stderr.
func New(prefix string, verbose bool) *Logger {
	return &Logger{prefix: prefix, verbose: verbose, out: os.Stdout, errOut: os.Stderr}
}

// NewWithWriters creates a Logger writing to the given writers (for testing).
func NewWithWriters(prefix string, verbose bool, out, errOut io.Writer) *Logger {
	return &Logger{prefix: prefix, verbose: verbose, out: out, errOut: errOut}
}

// Error prints a red error message to stderr.
func (this *Logger) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(this.errOut, "%s %s %s\n", this.prefix, color.Red("Error:"), msg)
}

// Warn prints a yellow warning message.
func (this *Logger) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(this.out, this.prefix+" "+color.Yellow(msg))
}

// Success prints a green success message.
func (this *Logger) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(this.out, this.prefix+" "+color.Green(msg))
}

// Status prints a bold status message.
func (this *Logger) Status(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(this.out, color.Bold(this.prefix+" "+msg))
}

// Verbose prints a dim message, only if verbose mode is enabled.
func (this *Logger) Verbose(format string, args ...any) {
	if !this.verbose {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(this.out, color.Dim(this.prefix+" "+msg))
}

// Request prints one access line: method, path, colored status and duration.
func (this *Logger) Request(method, path string, status int, elapsed time.Duration) {
	fmt.Fprintf(this.out, "%s %s %s %s %s\n",
		this.prefix, method, path,
		color.ForStatus(status, strconv.Itoa(status)),
		color.Dim(elapsed.Round(time.Microsecond).String()))
}

// Script prints a line of script stderr, attributed to the script.
func (this *Logger) Script(script, line string) {
	fmt.Fprintf(this.errOut, "%s %s %s\n", this.prefix, color.Cyan(script+":"), line)
}

// --- Global convenience functions for the single-shot CGI binaries ---

var defaultLogger = New("[go-cgi]", false)

// Init initializes the global logger.
func Init(v bool) {
	defaultLogger.verbose = v
	color.Init()
}

// SetPrefix changes the global log prefix (default "[go-cgi]").
func SetPrefix(p string) {
	defaultLogger.prefix = p
}

// Default returns the global logger.
func Default() *Logger {
	return defaultLogger
}

func Error(format string, args ...any)   { defaultLogger.Error(format, args...) }
func Warn(format string, args ...any)    { defaultLogger.Warn(format, args...) }
func Success(format string, args ...any) { defaultLogger.Success(format, args...) }
func Status(format string, args ...any)  { defaultLogger.Status(format, args...) }
func Verbose(format string, args ...any) { defaultLogger.Verbose(format, args...) }
