package desktop

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEvent carries one log line to the frontend.
const LogEvent = "log:line"

// LogWriter tees the standard logger into stdout and the log file, and
// forwards each line to the frontend once an emitter is attached.
type LogWriter struct {
	out  io.Writer
	file *os.File

	mu   sync.Mutex
	emit func(line string)
}

// NewLogWriter appends to logPath in addition to out.
func NewLogWriter(out io.Writer, logPath string) (*LogWriter, error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &LogWriter{out: out, file: f}, nil
}

// SetEmitter attaches fn. A nil fn detaches.
func (w *LogWriter) SetEmitter(fn func(line string)) {
	w.mu.Lock()
	w.emit = fn
	w.mu.Unlock()
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	emit := w.emit
	w.mu.Unlock()

	n, err := io.MultiWriter(w.out, w.file).Write(p)
	if emit != nil {
		for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
			emit(string(line))
		}
	}
	return n, err
}

// Close closes the log file.
func (w *LogWriter) Close() error {
	return w.file.Close()
}
