// Package logger provides lightweight leveled logging for the AskTube core.
// Warnings are always printed; debug output is gated behind verbose mode so
// the chat TUI stays quiet by default.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr

	warnTag  = color.New(color.FgYellow).Sprint("[WARN]")
	debugTag = color.New(color.FgCyan).Sprint("[DEBUG]")
	infoTag  = color.New(color.FgGreen).Sprint("[INFO]")
)

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput sets the output writer. Defaults to os.Stderr; useful for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Warn prints a warning. Query-path degradations are reported here rather
// than failing the request.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, warnTag+" "+format+"\n", args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, infoTag+" "+format+"\n", args...)
	}
}

// Debug prints a debug message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, debugTag+" "+format+"\n", args...)
	}
}
