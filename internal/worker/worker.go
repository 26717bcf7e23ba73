package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/wnt/empyreal/client"
	"github.com/wnt/empyreal/internal/logger"
	"github.com/wnt/empyreal/internal/metrics"
	"github.com/wnt/empyreal/types"
)

// PairQueue is the part of the queue a worker consumes
type PairQueue interface {
	PopPair(ctx context.Context) (string, error)
	PushPair(ctx context.Context, pair string, priority float64) error
	SetInFlight(ctx context.Context, pair, worker string) error
	RemoveInFlight(ctx context.Context, pair string) error
	GetProgress(ctx context.Context, pair string) (time.Time, bool, error)
	SetProgress(ctx context.Context, pair string, last time.Time) error
}

// HistoryStore persists what a worker fetched
type HistoryStore interface {
	SavePair(ctx context.Context, pair *types.DexPair) (uint, error)
	SaveIntervals(ctx context.Context, pairID uint, intervals []types.SwapInterval) (int, error)
	LatestIntervalStart(ctx context.Context, pairID uint) (time.Time, bool, error)
	MarkSynced(ctx context.Context, pairID uint, at time.Time) error
}

// Worker syncs the swap history of one pair at a time
type Worker struct {
	id       string
	queue    PairQueue
	store    HistoryStore
	protocol types.ExchangeProtocol
	logger   zerolog.Logger
	stopped  atomic.Bool

	idleWait  time.Duration
	errorWait time.Duration
	newPolicy func() backoff.BackOff
	maxTries  uint
}

// NewWorker creates a new worker instance
func NewWorker(id string, queue PairQueue, store HistoryStore, protocol types.ExchangeProtocol, baseLogger zerolog.Logger) *Worker {
	return &Worker{
		id:        id,
		queue:     queue,
		store:     store,
		protocol:  protocol,
		logger:    logger.WithWorker(baseLogger, id),
		idleWait:  10 * time.Second,
		errorWait: 5 * time.Second,
		newPolicy: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		maxTries:  5,
	}
}

// Start runs the processing loop until ctx is cancelled or Stop is called.
// ctx must carry the API client.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Worker received shutdown signal")
			return ctx.Err()
		default:
		}

		if w.stopped.Load() {
			w.logger.Info().Msg("Worker stopped")
			return nil
		}

		if err := w.processPair(ctx); err != nil {
			w.logger.Error().Err(err).Msg("Failed to process pair")
			if !sleep(ctx, w.errorWait) {
				return ctx.Err()
			}
		}
	}
}

// Stop signals the worker to stop after the current pair
func (w *Worker) Stop() {
	w.stopped.Store(true)
	w.logger.Info().Msg("Worker stop signal received")
}

// processPair pops one pair and syncs it; an empty queue is not an error
func (w *Worker) processPair(ctx context.Context) error {
	pair, err := w.queue.PopPair(ctx)
	if err != nil {
		return fmt.Errorf("failed to pop pair from queue: %w", err)
	}

	if pair == "" {
		sleep(ctx, w.idleWait)
		return nil
	}

	if err := w.queue.SetInFlight(ctx, pair, w.id); err != nil {
		w.logger.Error().Err(err).Str("pair", pair).Msg("Failed to mark pair as in-flight")
		if requeueErr := w.queue.PushPair(ctx, pair, 0); requeueErr != nil {
			w.logger.Error().Err(requeueErr).Str("pair", pair).Msg("Failed to requeue pair after in-flight error")
		}
		return err
	}

	pairLogger := logger.WithPair(w.logger, pair)
	startTime := time.Now()
	pairLogger.Info().Msg("Starting pair sync")

	stored, err := w.syncPair(ctx, pair, pairLogger)
	duration := time.Since(startTime)

	metrics.RecordPairSync(duration.Seconds())
	metrics.RecordWorkerTaskDuration("pair_sync", w.id, duration.Seconds())

	if removeErr := w.queue.RemoveInFlight(ctx, pair); removeErr != nil {
		pairLogger.Error().Err(removeErr).Msg("Failed to remove pair from in-flight tracking")
	}

	if err != nil {
		pairLogger.Error().Err(err).Dur("duration", duration).Msg("Failed to sync pair")

		// Unknown pairs are dropped, everything else goes to the back of the queue
		if !errors.Is(err, client.ErrNotFound) {
			if requeueErr := w.queue.PushPair(ctx, pair, float64(time.Now().Unix())); requeueErr != nil {
				pairLogger.Error().Err(requeueErr).Msg("Failed to requeue failed pair")
			}
		}
		return fmt.Errorf("pair sync failed: %w", err)
	}

	pairLogger.Info().
		Int("intervals", stored).
		Dur("duration", duration).
		Msg("Pair sync completed successfully")
	return nil
}

// syncPair loads the pair, fetches the feed after the last stored interval and saves it
func (w *Worker) syncPair(ctx context.Context, pair string, log zerolog.Logger) (int, error) {
	if !common.IsHexAddress(pair) {
		return 0, fmt.Errorf("%w: %q is not a pair address", client.ErrNotFound, pair)
	}
	address := common.HexToAddress(pair)

	info, err := retry(ctx, w, log, func() (*types.DexPair, error) {
		return w.protocol.PairInfo(ctx, address)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load pair info: %w", err)
	}

	pairID, err := w.store.SavePair(ctx, info)
	if err != nil {
		return 0, err
	}

	since, found, err := w.queue.GetProgress(ctx, pair)
	if err != nil {
		return 0, err
	}
	if !found {
		since, found, err = w.store.LatestIntervalStart(ctx, pairID)
		if err != nil {
			return 0, err
		}
	}

	var opts []types.HistoryOption
	if found {
		log.Debug().Time("since", since).Msg("Resuming from last stored interval")
		opts = append(opts, types.Since(since))
	} else {
		log.Debug().Msg("Starting fresh pair sync")
	}

	history, err := retry(ctx, w, log, func() (*types.SwapHistory, error) {
		return info.SwapHistory(ctx, opts...)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load swap history: %w", err)
	}

	stored, err := w.store.SaveIntervals(ctx, pairID, history.Intervals)
	if err != nil {
		return 0, err
	}
	metrics.RecordIntervalsStored(stored)

	if last, ok := history.Last(); ok {
		if err := w.queue.SetProgress(ctx, pair, last.Start); err != nil {
			log.Warn().Err(err).Time("last_interval", last.Start).Msg("Failed to update progress")
		}
	}

	if err := w.store.MarkSynced(ctx, pairID, time.Now()); err != nil {
		log.Warn().Err(err).Msg("Failed to mark pair as synced")
	}

	return stored, nil
}

// retry repeats a read while the API answers RateLimited; any other error stops it
func retry[T any](ctx context.Context, w *Worker, log zerolog.Logger, op func() (T, error)) (T, error) {
	operation := func() (T, error) {
		res, err := op()
		if err != nil && !errors.Is(err, client.ErrRateLimited) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("backoff", wait).Msg("Rate limited, retrying")
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(w.newPolicy()),
		backoff.WithMaxTries(w.maxTries),
		backoff.WithNotify(notify))
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
