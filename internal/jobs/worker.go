package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobProcessor runs at most one job per call and reports whether it found one.
type JobProcessor interface {
	ProcessNext(ctx context.Context) (bool, error)
}

// Worker runs a fixed pool of goroutines, each processing one job at a time.
// An idle goroutine sleeps for the poll interval before asking again.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	concurrency  int
	stopOnce     sync.Once
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		concurrency:  concurrency,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called, and every
// goroutine has finished its current job.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	slog.Info("worker pool started", "concurrency", w.concurrency, "poll_interval", w.pollInterval)

	var wg sync.WaitGroup
	for i := 1; i <= w.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, slog.With("worker_id", id))
		}(i)
	}
	wg.Wait()

	slog.Info("worker pool stopped")
}

func (w *Worker) loop(ctx context.Context, logger *slog.Logger) {
	for {
		if w.stopping(ctx) {
			return
		}

		processed, err := w.processor.ProcessNext(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "error processing jobs", "error", err)
		}
		if processed && err == nil {
			continue
		}

		timer := time.NewTimer(w.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.stopChan:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (w *Worker) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

// Stop signals the pool and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}
