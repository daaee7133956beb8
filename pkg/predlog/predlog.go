// Package predlog keeps an audit trail of served predictions.
//
// Recording is fire-and-forget: records go into a bounded queue drained
// by a single writer goroutine, and are dropped (and counted) when the
// queue is full. The request path never waits for the store.
package predlog

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	"github.com/YounessBoumeshouli/MLOps/pkg/metrics"
)

// Outcome values of a Record.
const (
	OutcomeOK             = "ok"
	OutcomeInferenceError = "inference_error"
)

// Record is one served prediction.
type Record struct {
	ID           uuid.UUID
	RecordedAt   time.Time
	ModelVersion string
	Features     []float64
	Prediction   float64

	// Scores is the class probability distribution. nil when the model
	// family does not expose one.
	Scores []float64

	LatencyMS float64
	Outcome   string
}

// Store persists records.
type Store interface {
	Append(ctx context.Context, r Record) error
}

// per-record write deadline of the drain goroutine.
const appendTimeout = 10 * time.Second

// Recorder feeds a Store from a bounded queue.
type Recorder struct {
	store  Store
	queue  chan Record
	logger *log.Logger
	done   chan struct{}
}

// NewRecorder starts the drain goroutine over store. queueSize <= 0
// falls back to 256.
func NewRecorder(store Store, queueSize int, logger *log.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = log.Default()
	}

	r := &Recorder{
		store:  store,
		queue:  make(chan Record, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go r.drain()
	return r
}

// Put queues rec and returns at once. When the queue is full the record
// is dropped and counted on prediction_log_dropped_total.
//
// Put must not be called after Close.
func (r *Recorder) Put(rec Record) {
	select {
	case r.queue <- rec:
	default:
		metrics.PredictionLogDropped.Inc()
	}
}

func (r *Recorder) drain() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		if err := r.store.Append(ctx, rec); err != nil {
			r.logger.Printf("prediction log: dropped record %s: %s", rec.ID, err)
		}
		cancel()
	}
}

// Close stops accepting records and waits until the queued ones are
// written, at most for timeout.
func (r *Recorder) Close(timeout time.Duration) error {
	close(r.queue)
	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		return xe.New("prediction log: timed out draining the queue")
	}
}
