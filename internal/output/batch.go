package output

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by writes to a sink that has been closed.
var ErrClosed = errors.New("output: writer closed")

const (
	defaultBatchHashes = 64
	defaultLinger      = 250 * time.Millisecond
)

// batcher groups results into flushes of at most size hashes. A partial
// batch goes out linger after its first hash, and on close. Encoding and
// flushing happen on one goroutine, so flush is never called concurrently.
type batcher struct {
	format Format
	size   int
	linger time.Duration
	flush  func(data []byte) error

	mu     sync.Mutex // guards closed and sends on in
	closed bool
	in     chan *Result
	done   chan struct{}

	errMu sync.Mutex
	err   error // first encode or flush error
}

func newBatcher(size int, linger time.Duration, f Format, flush func([]byte) error) *batcher {
	if size <= 0 {
		size = defaultBatchHashes
	}
	if linger <= 0 {
		linger = defaultLinger
	}
	b := &batcher{
		format: f,
		size:   size,
		linger: linger,
		flush:  flush,
		in:     make(chan *Result, 256),
		done:   make(chan struct{}),
	}
	go b.loop()
	return b
}

// add queues res. It reports the first error any earlier flush hit.
func (b *batcher) add(res *Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.firstErr(); err != nil {
		return err
	}
	b.in <- res
	return nil
}

// close flushes whatever is pending and stops the loop. Safe to call twice.
func (b *batcher) close() error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.in)
	}
	b.mu.Unlock()
	<-b.done
	return b.firstErr()
}

func (b *batcher) loop() {
	defer close(b.done)

	var buf bytes.Buffer
	enc := NewFormatter(b.format, &buf)
	pending := 0
	linger := time.NewTimer(b.linger)
	linger.Stop()

	emit := func() {
		if pending == 0 {
			return
		}
		// flush may retain data, so hand it a private copy.
		data := bytes.Clone(buf.Bytes())
		buf.Reset()
		pending = 0
		if err := b.flush(data); err != nil {
			b.setErr(err)
		}
	}

	for {
		select {
		case res, ok := <-b.in:
			if !ok {
				linger.Stop()
				emit()
				return
			}
			if err := enc.Write(res); err != nil {
				b.setErr(err)
				continue
			}
			pending++
			switch {
			case pending >= b.size:
				linger.Stop()
				emit()
			case pending == 1:
				linger.Reset(b.linger)
			}
		case <-linger.C:
			emit()
		}
	}
}

func (b *batcher) setErr(err error) {
	b.errMu.Lock()
	if b.err == nil {
		b.err = err
	}
	b.errMu.Unlock()
}

func (b *batcher) firstErr() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}
