package usecase

import (
	"context"
	"log/slog"
	"time"

	"copywatch/internal/domain"
	"copywatch/internal/ports"
)

// AutoReviewWriter applies bot reviews asynchronously so the enrichment
// response never waits on, or fails because of, the write. Errors are
// logged, not propagated.
type AutoReviewWriter struct {
	store  ports.RecordStore
	bot    string
	logger *slog.Logger
	now    func() time.Time

	jobs chan int64
	stop chan struct{}
}

var _ AutoReviewSink = (*AutoReviewWriter)(nil)

// NewAutoReviewWriter builds a writer recording reviews under the given bot
// actor name.
func NewAutoReviewWriter(store ports.RecordStore, bot string, logger *slog.Logger) *AutoReviewWriter {
	return &AutoReviewWriter{
		store:  store,
		bot:    bot,
		logger: logger,
		now:    time.Now,
		jobs:   make(chan int64, 256),
	}
}

// Enqueue hands a record id to the writer without blocking. When the queue
// is full the job is dropped; the record simply resurfaces on a later load.
func (w *AutoReviewWriter) Enqueue(id int64) {
	select {
	case w.jobs <- id:
	default:
		if w.logger != nil {
			w.logger.Warn("auto-review queue full, dropping", "id", id)
		}
	}
}

// Start launches the background writer goroutine.
func (w *AutoReviewWriter) Start(ctx context.Context) error {
	if w.stop != nil {
		return nil
	}

	w.stop = make(chan struct{})
	go func() {
		for {
			select {
			case id := <-w.jobs:
				w.review(ctx, id)
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the writer goroutine.
func (w *AutoReviewWriter) Stop(ctx context.Context) error {
	if w.stop == nil {
		return nil
	}
	close(w.stop)
	w.stop = nil
	return nil
}

func (w *AutoReviewWriter) review(ctx context.Context, id int64) {
	err := w.store.UpdateReview(ctx, id, domain.StatusNoAction, w.bot, w.now())
	if err != nil && w.logger != nil {
		w.logger.Error("auto-review failed", "id", id, "error", err)
	}
}
