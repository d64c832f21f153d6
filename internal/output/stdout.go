package output

import (
	"bufio"
	"os"
)

// StdoutWriter streams results to stdout, batchSize hashes per flush.
type StdoutWriter struct {
	batch *batcher
	out   *bufio.Writer
}

// NewStdoutWriter creates a writer that encodes results in format f. A
// batchSize of 1 prints every hash as soon as it is harvested.
func NewStdoutWriter(batchSize int, f Format) *StdoutWriter {
	w := &StdoutWriter{
		out: bufio.NewWriterSize(os.Stdout, 32768),
	}
	w.batch = newBatcher(batchSize, defaultLinger, f, func(data []byte) error {
		if _, err := w.out.Write(data); err != nil {
			return err
		}
		return w.out.Flush()
	})
	return w
}

func (w *StdoutWriter) Write(res *Result) error {
	return w.batch.add(res)
}

func (w *StdoutWriter) Close() error {
	batchErr := w.batch.close()
	flushErr := w.out.Flush()
	if batchErr != nil {
		return batchErr
	}
	return flushErr
}
