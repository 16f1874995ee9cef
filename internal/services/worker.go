package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueRun(runID uuid.UUID)
}

type WorkerOptions struct {
	Concurrency  int
	PollInterval time.Duration
	// Defaults apply to runs that do not name a strategy or top-k.
	Defaults BatchOptions
}

type worker struct {
	runRepo  repositories.MatchRunRepository
	matcher  MatcherService
	opts     WorkerOptions
	runQueue chan uuid.UUID
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func NewWorker(
	runRepo repositories.MatchRunRepository,
	matcher MatcherService,
	opts WorkerOptions,
	logger *zap.Logger,
) Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	return &worker{
		runRepo:  runRepo,
		matcher:  matcher,
		opts:     opts,
		runQueue: make(chan uuid.UUID, 100),
		stopChan: make(chan struct{}),
		logger:   logger,
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.logger.Info("starting match run worker", zap.Int("concurrency", w.opts.Concurrency))

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processRuns(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingRuns(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("stopping match run worker")
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("match run worker stopped")
}

// EnqueueRun implements Worker.
func (w *worker) EnqueueRun(runID uuid.UUID) {
	select {
	case w.runQueue <- runID:
		w.logger.Debug("match run enqueued", zap.String("run_id", runID.String()))
	case <-w.stopChan:
		w.logger.Warn("worker stopped, cannot enqueue run", zap.String("run_id", runID.String()))
	}
}

func (w *worker) processRuns(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case runID := <-w.runQueue:
			log := w.logger.With(zap.Int("worker", workerID), zap.String("run_id", runID.String()))
			if err := w.runOnce(ctx, runID); err != nil {
				log.Error("match run failed", zap.Error(err))
			} else {
				log.Info("match run completed")
			}
		}
	}
}

// runOnce executes one queued run and records its outcome. A run that is
// no longer queued was picked up elsewhere and is skipped.
func (w *worker) runOnce(ctx context.Context, runID uuid.UUID) error {
	claimed, err := w.runRepo.Claim(runID)
	if err != nil || !claimed {
		return err
	}
	run, err := w.runRepo.FindByID(runID)
	if err != nil {
		return err
	}

	opts := w.opts.Defaults
	if run.Strategy != "" {
		strategy, err := matching.ParseStrategy(run.Strategy)
		if err != nil {
			_ = w.runRepo.Fail(runID, err.Error())
			return err
		}
		opts.Strategy = strategy
	}
	if run.TopK > 0 {
		opts.TopK = run.TopK
	}

	result, err := w.matcher.MatchAllPairs(ctx, opts)
	if err != nil {
		if failErr := w.runRepo.Fail(runID, err.Error()); failErr != nil {
			w.logger.Error("failed to record run failure", zap.Error(failErr))
		}
		return err
	}

	return w.runRepo.Complete(runID, result.Report())
}

func (w *worker) pollPendingRuns(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.runRepo.FindPendingRuns(10)
			if err != nil {
				w.logger.Warn("failed to fetch pending runs", zap.Error(err))
				continue
			}

			if len(pending) > 0 {
				w.logger.Info("found pending runs", zap.Int("count", len(pending)))
			}

			for _, run := range pending {
				w.EnqueueRun(run.ID)
			}
		}
	}
}
