package output

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// HashCountHeader carries the number of NDJSON lines in a webhook POST.
const HashCountHeader = "X-Hash-Count"

// WebhookConfig holds settings for the webhook output sink.
type WebhookConfig struct {
	URL        string
	BatchSize  int // hashes per POST; default 64
	Timeout    time.Duration
	MaxRetries int           // attempts per POST, including the first
	Backoff    time.Duration // initial retry delay, doubled per attempt
	Headers    map[string]string
}

// WebhookWriter posts harvested hashes as NDJSON, so they reach a cracking
// rig while the harvest is still running. Batches that cannot be delivered
// after MaxRetries attempts are logged and dropped.
type WebhookWriter struct {
	cfg    WebhookConfig
	client *http.Client
	batch  *batcher
	posts  chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewWebhookWriter starts the batching and delivery goroutines.
func NewWebhookWriter(cfg WebhookConfig) *WebhookWriter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchHashes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}

	w := &WebhookWriter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		posts:  make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	w.batch = newBatcher(cfg.BatchSize, defaultLinger, FormatJSONL, w.enqueue)
	go w.deliver()
	return w
}

// enqueue runs on the batcher goroutine. A slow endpoint must never stall
// the harvest, so a full queue drops the batch.
func (w *WebhookWriter) enqueue(body []byte) error {
	select {
	case w.posts <- body:
	default:
		log.Warnf("webhook: queue full, dropping %d hashes", bytes.Count(body, []byte{'\n'}))
	}
	return nil
}

func (w *WebhookWriter) deliver() {
	defer close(w.done)
	for body := range w.posts {
		if err := w.post(body); err != nil {
			log.Errorf("webhook: dropping %d hashes: %v", bytes.Count(body, []byte{'\n'}), err)
		}
	}
}

// post sends one batch, retrying transport errors and non-2xx replies.
func (w *WebhookWriter) post(body []byte) error {
	backoff := w.cfg.Backoff
	count := strconv.Itoa(bytes.Count(body, []byte{'\n'}))
	var last error
	for attempt := 1; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
			backoff *= 2
		}
		req, err := http.NewRequest(http.MethodPost, w.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-ndjson")
		req.Header.Set(HashCountHeader, count)
		for k, v := range w.cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			last = err
			log.Warnf("webhook: POST failed (attempt %d/%d): %v", attempt, w.cfg.MaxRetries, err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		last = fmt.Errorf("status %d", resp.StatusCode)
		log.Warnf("webhook: POST returned %d (attempt %d/%d)", resp.StatusCode, attempt, w.cfg.MaxRetries)
	}
	return fmt.Errorf("%d attempts failed, last: %w", w.cfg.MaxRetries, last)
}

func (w *WebhookWriter) Write(res *Result) error {
	return w.batch.add(res)
}

// Close flushes the last batch and waits for delivery to finish.
func (w *WebhookWriter) Close() error {
	var err error
	w.once.Do(func() {
		// The batcher has stopped calling enqueue once close returns.
		err = w.batch.close()
		close(w.posts)
	})

	select {
	case <-w.done:
	case <-time.After(30 * time.Second):
		return fmt.Errorf("webhook: close timed out waiting for delivery")
	}
	return err
}
