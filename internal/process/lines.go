package process

import (
	"bytes"
	"strings"
	"sync"
)

// LineWriter is an io.Writer that hands each complete line to emit.
// Call Flush after the producer is done to emit a trailing partial line.
type LineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(line string)
}

// NewLineWriter creates a LineWriter calling emit once per line, without the newline.
func NewLineWriter(emit func(line string)) *LineWriter {
	return &LineWriter{emit: emit}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(strings.TrimRight(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emit(strings.TrimRight(string(w.buf), "\r"))
		w.buf = nil
	}
}
