package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// --- 1. Process Safety & Command Wrapping ---

// maxStderr caps how much worker stderr we keep around for crash reports.
const maxStderr = 64 * 1024

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (Python logs)
// This ensures we don't lose critical crash information if a worker dies.
type SafeCommand struct {
	*exec.Cmd
	Stderr *TailBuffer
}

// NewSafeCommand initializes a command and attaches a buffer to its Stderr pipe
// It prepares the command for execution but does not start it.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &TailBuffer{Max: maxStderr}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// TailBuffer keeps only the last Max bytes written to it. exec copies stderr
// from its own goroutine, so reads and writes are serialized.
type TailBuffer struct {
	Max int
	mu  sync.Mutex
	buf bytes.Buffer
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.Max; t.Max > 0 && over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *TailBuffer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Len()
}

func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// --- 2. User-facing error reporting ---

// Output is where reports are written. Tests swap it out.
var Output io.Writer = os.Stderr

// Verbose enables Debugf output.
var Verbose bool

// ShowError is the console counterpart of an error dialog: it prints a framed,
// human-readable description and dumps Python logs if a SafeCommand is provided.
// The caller is expected to abort the current operation afterwards.
func ShowError(context string, err error, s *SafeCommand, hints ...string) {
	fmt.Fprintf(Output, "\n---------------------------------------------------------\n")
	fmt.Fprintf(Output, "🚨 EMOLENS ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(Output, "DETAILS: %v\n", err)
	}
	if len(hints) > 0 {
		fmt.Fprintf(Output, "\nPlease check:\n")
		for _, h := range hints {
			fmt.Fprintf(Output, "  - %s\n", h)
		}
	}

	// If we have a SafeCommand and it captured logs, print them.
	if s != nil && s.Stderr.Len() > 0 {
		fmt.Fprintf(Output, "\nPYTHON CRASH LOGS:\n%s\n", strings.TrimRight(s.Stderr.String(), "\n"))
	}
	fmt.Fprintf(Output, "---------------------------------------------------------\n")
}

// Debugf prints only when --verbose is set.
func Debugf(format string, args ...interface{}) {
	if Verbose {
		fmt.Fprintf(Output, format, args...)
	}
}

// FmtDuration renders a duration as HH:MM:SS.
func FmtDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
