package worker

import (
	"context"
	"sync"
	"time"

	"sensorgrid/internal/models"
	"sensorgrid/internal/service"

	"go.uber.org/zap"
)

// BatchGenerator runs one generate-and-store pass.
type BatchGenerator interface {
	GenerateAndStore(ctx context.Context, trigger service.Trigger) (*models.ReadingBatch, error)
}

const tickTimeout = 30 * time.Second

// GenerationWorker runs the pipeline on a fixed cadence. Ticks fire on
// interval boundaries of the wall clock, so a one-minute interval runs at
// second zero of every minute. A failed tick is logged and dropped; the
// next tick is the retry.
type GenerationWorker struct {
	generator BatchGenerator
	interval  time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

func NewGenerationWorker(generator BatchGenerator, interval time.Duration, log *zap.Logger) *GenerationWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GenerationWorker{
		generator: generator,
		interval:  interval,
		log:       log.Named("generation_worker"),
	}
}

func (w *GenerationWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})

	w.log.Info("generation worker started", zap.Duration("interval", w.interval))
	go w.run(w.stopChan, w.done)
}

// Stop blocks until an in-flight tick has finished.
func (w *GenerationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
	w.log.Info("generation worker stopped")
}

func (w *GenerationWorker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	first := time.NewTimer(untilNextBoundary(time.Now(), w.interval))
	defer first.Stop()

	select {
	case <-first.C:
		w.tick()
	case <-stop:
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-stop:
			return
		}
	}
}

func (w *GenerationWorker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	batch, err := w.generator.GenerateAndStore(ctx, service.TriggerScheduled)
	if err != nil {
		w.log.Error("scheduled generation failed", zap.Error(err))
		return
	}
	w.log.Debug("scheduled generation stored batch", zap.String("batch_id", batch.ID))
}

// untilNextBoundary returns the wait from now to the next multiple of
// interval since the zero time.
func untilNextBoundary(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}
