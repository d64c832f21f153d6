package output

import (
	"io"
	"os"
	"sync"
)

// OpenFile opens path for appending, so that re-running against the same
// hash file never discards material already harvested.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// NewFileWriter writes results to path in the given format.
func NewFileWriter(path string, f Format) (*ClosingWriter, error) {
	file, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return NewClosingWriter(NewFormatter(f, file), file), nil
}

// ClosingWriter wraps a Formatter with a mutex and an io.Closer (typically a file).
type ClosingWriter struct {
	fmt    Formatter
	closer io.Closer
	mu     sync.Mutex
}

// NewClosingWriter creates a ResultWriter that closes the underlying resource on Close.
func NewClosingWriter(f Formatter, c io.Closer) *ClosingWriter {
	return &ClosingWriter{fmt: f, closer: c}
}

func (w *ClosingWriter) Write(res *Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fmt.Write(res)
}

func (w *ClosingWriter) Close() error {
	w.mu.Lock()
	w.fmt.Flush()
	w.mu.Unlock()
	return w.closer.Close()
}

// OutputSink fans out results to multiple writers.
type OutputSink struct {
	writers []ResultWriter
}

// ResultWriter is the interface for anything that accepts results.
type ResultWriter interface {
	Write(res *Result) error
}

func NewOutputSink() *OutputSink {
	return &OutputSink{}
}

func (s *OutputSink) Add(w ResultWriter) {
	s.writers = append(s.writers, w)
}

// Len reports how many writers are attached.
func (s *OutputSink) Len() int { return len(s.writers) }

func (s *OutputSink) Write(res *Result) error {
	for _, w := range s.writers {
		if err := w.Write(res); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all writers that implement io.Closer.
func (s *OutputSink) Close() error {
	var firstErr error
	for _, w := range s.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
