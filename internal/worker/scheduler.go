package worker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Worker interface {
	Start()
	Stop()
}

const stopTimeout = 10 * time.Second

type Scheduler struct {
	workers []Worker
	log     *zap.Logger
	wg      sync.WaitGroup
	started bool
	stopped bool
	mu      sync.RWMutex
}

func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		workers: make([]Worker, 0),
		log:     log.Named("scheduler"),
	}
}

func (s *Scheduler) AddWorker(worker Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.started {
		return
	}
	s.started = true

	s.log.Info("starting scheduler", zap.Int("workers", len(s.workers)))

	for _, worker := range s.workers {
		s.wg.Add(1)
		go func(w Worker) {
			defer s.wg.Done()
			w.Start()
		}(worker)
	}
}

// Stop stops every worker and waits up to stopTimeout for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	workers := s.workers
	s.mu.Unlock()

	s.log.Info("stopping scheduler")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		for _, worker := range workers {
			worker.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("scheduler stopped gracefully")
	case <-time.After(stopTimeout):
		s.log.Warn("scheduler stop timeout", zap.Duration("timeout", stopTimeout))
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}
