package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"barangay/internal/platform/kafka/producer"
	"barangay/pkg/platform/outbox"
	"barangay/pkg/platform/outbox/metrics"
	txcontext "barangay/pkg/platform/tx"
)

//go:generate mockgen -source=worker.go -destination=mocks/mocks.go -package=mocks Publisher

// Publisher sends one message to the broker.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the outbox and publishes pending entries to Kafka.
type Worker struct {
	store        outbox.Store
	tx           txcontext.Runner
	publisher    Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Worker.
type Option func(*Worker)

// WithTopic sets the Kafka topic for publishing.
func WithTopic(topic string) Option {
	return func(w *Worker) {
		w.topic = topic
	}
}

// WithBatchSize sets the maximum number of entries to fetch per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		w.batchSize = size
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		w.pollInterval = interval
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// New creates a new outbox worker.
func New(store outbox.Store, tx txcontext.Runner, publisher Publisher, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		store:        store,
		tx:           tx,
		publisher:    publisher,
		topic:        "barangay.verification.events",
		batchSize:    100,
		pollInterval: 500 * time.Millisecond,
		logger:       slog.Default(),
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins the polling loop in a background goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case <-ticker.C:
			if _, err := w.PollOnce(w.ctx); err != nil {
				w.logger.Error("outbox poll failed", "error", err)
			}
			if err := w.UpdateMetrics(w.ctx); err != nil {
				w.logger.Warn("outbox depth refresh failed", "error", err)
			}
		}
	}
}

// lockKey names the worker's units of work so the in-memory runner does not
// fall back to the shared empty-key shard.
const lockKey = "outbox-worker"

// PollOnce publishes one batch and returns how many entries were published.
// Entries that fail to publish stay pending and are retried on the next poll.
//
// Fetching and marking each run in a short unit of work; publishing runs
// between them, outside any transaction, so a slow broker never holds a lock
// that transitions wait on. Delivery is at least once: an entry published but
// not yet marked can be published again, and consumers dedupe on the entry id.
func (w *Worker) PollOnce(ctx context.Context) (int, error) {
	start := w.now()
	defer func() {
		if w.metrics != nil {
			w.metrics.ObservePollDuration(w.now().Sub(start).Seconds())
		}
	}()
	ctx = txcontext.WithLockKey(ctx, lockKey)

	var entries []*outbox.Entry
	err := w.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		entries, err = w.store.FetchUnprocessed(ctx, w.batchSize)
		return err
	})
	if err != nil {
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if w.metrics != nil {
		w.metrics.ObserveBatchSize(len(entries))
	}

	sent := make([]*outbox.Entry, 0, len(entries))
	for _, entry := range entries {
		if err := w.publishEntry(ctx, entry); err != nil {
			w.logger.Error("failed to publish outbox entry",
				"id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			if w.metrics != nil {
				w.metrics.IncPublishFailures()
			}
			continue
		}
		sent = append(sent, entry)
	}
	if len(sent) == 0 {
		return 0, nil
	}

	published := 0
	err = w.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, entry := range sent {
			// a failed mark re-publishes later
			if err := w.store.MarkProcessed(ctx, entry.ID, w.now()); err != nil {
				w.logger.Error("failed to mark entry as processed", "id", entry.ID, "error", err)
				continue
			}
			published++
			if w.metrics != nil {
				w.metrics.IncPublished()
			}
		}
		return nil
	})
	return published, err
}

func (w *Worker) publishEntry(ctx context.Context, entry *outbox.Entry) error {
	start := w.now()
	msg := &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.ID.String()),
		Value: entry.Payload,
		Headers: map[string]string{
			"aggregate_type": entry.AggregateType,
			"aggregate_id":   entry.AggregateID,
			"event_type":     entry.EventType,
		},
	}
	if err := w.publisher.Produce(ctx, msg); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.ObservePublishDuration(w.now().Sub(start).Seconds())
	}
	return nil
}

// drain publishes what is left during shutdown, bounded by a short deadline.
func (w *Worker) drain() {
	w.logger.Info("draining outbox worker")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for ctx.Err() == nil {
		n, err := w.PollOnce(ctx)
		if err != nil {
			w.logger.Error("outbox drain failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateMetrics refreshes the pending depth gauge.
func (w *Worker) UpdateMetrics(ctx context.Context) error {
	if w.metrics == nil {
		return nil
	}
	count, err := w.store.CountPending(ctx)
	if err != nil {
		return err
	}
	w.metrics.SetPendingDepth(count)
	return nil
}
