// Package outbox implements the transactional outbox worker (C10): a
// background loop that drains durably-persisted envelopes and republishes
// them through the event bus with exponential backoff and a poison sink on
// exhaustion. Grounded on the teacher's pkg/queue/worker.go (ticking poll
// loop, jittered interval, graceful Stop) and pkg/events/publisher.go's
// same-transaction persist-then-notify discipline, generalized from a
// session-execution queue to a generic event envelope outbox.
package outbox

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/eventbus"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/metrics"
)

// RecordStatus is the outbox record lifecycle.
type RecordStatus string

const (
	StatusPending   RecordStatus = "pending"
	StatusPublished RecordStatus = "published"
	StatusPoisoned  RecordStatus = "poisoned"
)

// Record is the concrete outbox row shape (SPEC_FULL.md §3).
type Record struct {
	EventID       ids.EventID
	Envelope      domainevent.Envelope
	EnqueuedAt    ids.Timestamp
	PublishedAt   *ids.Timestamp
	Attempts      int
	NextAttemptAt ids.Timestamp
	LastError     string
	Status        RecordStatus
}

// Port is the capability contract a persistence adapter must implement.
// Enqueue MUST be called in the same transaction that persists the
// aggregate mutation producing envelopes, so the worker is the only path
// events leave the process by — guaranteeing at-least-once delivery.
type Port interface {
	Enqueue(ctx context.Context, envelopes []domainevent.Envelope) error
	DequeueBatch(ctx context.Context, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, eventIDs []ids.EventID) error
	MarkFailed(ctx context.Context, eventID ids.EventID, failErr error) error
}

// BackoffConfig parameterizes the retry schedule.
type BackoffConfig struct {
	Base           time.Duration
	Factor         float64
	Cap            time.Duration
	JitterFraction float64
	MaxAttempts    int
}

// DefaultBackoffConfig matches spec.md §4.10's defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Base:           1 * time.Second,
		Factor:         2,
		Cap:            5 * time.Minute,
		JitterFraction: 0.10,
		MaxAttempts:    10,
	}
}

// NextDelay computes the backoff delay for the given attempt count (1-based:
// the delay before retrying after the attempt-th failure), with +/-
// JitterFraction jitter applied.
func (c BackoffConfig) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(c.Base)
	for i := 1; i < attempt; i++ {
		delay *= c.Factor
	}
	capped := float64(c.Cap)
	if delay > capped {
		delay = capped
	}

	jitter := delay * c.JitterFraction
	offset := (rand.Float64()*2 - 1) * jitter
	final := delay + offset
	if final < 0 {
		final = 0
	}
	return time.Duration(final)
}

// Worker drains the outbox on a ticking loop and republishes through bus.
type Worker struct {
	Port         Port
	Bus          *eventbus.Bus
	Backoff      BackoffConfig
	PollInterval time.Duration
	BatchSize    int
	stopCh       chan struct{}
	stoppedCh    chan struct{}

	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
}

// NewWorker constructs a Worker with the given dependencies.
func NewWorker(port Port, bus *eventbus.Bus, backoff BackoffConfig, pollInterval time.Duration, batchSize int) *Worker {
	return &Worker{
		Port:         port,
		Bus:          bus,
		Backoff:      backoff,
		PollInterval: pollInterval,
		BatchSize:    batchSize,
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

// Start runs the poll loop until ctx is done or Stop is called. It returns
// once the in-flight batch (if any) has finished processing, mirroring the
// teacher's WorkerPool graceful-drain pattern.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.stoppedCh)

	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.pollAndProcess(ctx)
		}
	}
}

// Stop signals the worker to exit after its current batch and blocks until
// it does.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) pollInterval() time.Duration {
	if w.PollInterval <= 0 {
		return 5 * time.Second
	}
	return w.PollInterval
}

func (w *Worker) pollAndProcess(ctx context.Context) {
	batch, err := w.Port.DequeueBatch(ctx, w.batchSize())
	if err != nil {
		return
	}
	w.Metrics.SetOutboxDepth(len(batch))

	for _, record := range batch {
		if pubErr := w.Bus.Publish(ctx, record.Envelope); pubErr != nil {
			w.handleFailure(ctx, record, pubErr)
			continue
		}
		_ = w.Port.MarkPublished(ctx, []ids.EventID{record.EventID})
	}
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 50
	}
	return w.BatchSize
}

func (w *Worker) handleFailure(ctx context.Context, record Record, failErr error) {
	_ = w.Port.MarkFailed(ctx, record.EventID, failErr)
}
