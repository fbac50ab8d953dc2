package output

import (
	"fmt"
	"io"
)

// Notifier surfaces transient, human-readable notifications.
type Notifier interface {
	// Error reports a failure. It is never suppressed.
	Error(msg string)

	// Info reports progress or success. Quiet mode may drop it.
	Info(msg string)
}

// WriterNotifier writes "error: ..." lines to Err and info lines to Out.
type WriterNotifier struct {
	Out   io.Writer
	Err   io.Writer
	Quiet bool
}

// NewWriterNotifier creates a WriterNotifier.
func NewWriterNotifier(out, errOut io.Writer, quiet bool) *WriterNotifier {
	return &WriterNotifier{Out: out, Err: errOut, Quiet: quiet}
}

// Error implements Notifier.
func (n *WriterNotifier) Error(msg string) {
	fmt.Fprintf(n.Err, "error: %s\n", msg)
}

// Info implements Notifier.
func (n *WriterNotifier) Info(msg string) {
	if n.Quiet {
		return
	}
	fmt.Fprintln(n.Out, msg)
}

// Discard is a Notifier that drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Error(string) {}
func (discard) Info(string)  {}

// Recorder is a Notifier that keeps messages (for testing).
type Recorder struct {
	Errors []string
	Infos  []string
}

// Error implements Notifier.
func (r *Recorder) Error(msg string) { r.Errors = append(r.Errors, msg) }

// Info implements Notifier.
func (r *Recorder) Info(msg string) { r.Infos = append(r.Infos, msg) }
