package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/empyreal/internal/config"
	"github.com/wnt/empyreal/internal/metrics"
	"github.com/wnt/empyreal/types"
	"golang.org/x/sync/errgroup"
)

// Queue is everything the manager needs from the pair queue
type Queue interface {
	PairQueue
	GetQueueLength(ctx context.Context) (int64, error)
	GetInFlightPairs(ctx context.Context) (map[string]string, error)
	RequeueStuckPairs(ctx context.Context, timeout time.Duration) (int, error)
}

// Manager manages a dynamic pool of workers
type Manager struct {
	config   config.Config
	queue    Queue
	store    HistoryStore
	protocol types.ExchangeProtocol
	workers  []*Worker
	nextID   int
	logger   zerolog.Logger
	mutex    sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	eg       *errgroup.Group
	stopped  bool

	scaleEvery   time.Duration
	recoverEvery time.Duration
	monitorEvery time.Duration
	stuckAfter   time.Duration
}

// NewManager creates a new worker manager. ctx must carry the API client;
// every worker inherits it.
func NewManager(ctx context.Context, cfg config.Config, queue Queue, store HistoryStore, protocol types.ExchangeProtocol, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(ctx)

	return &Manager{
		config:       cfg,
		queue:        queue,
		store:        store,
		protocol:     protocol,
		workers:      make([]*Worker, 0),
		logger:       logger.With().Str("component", "worker_manager").Logger(),
		ctx:          egCtx,
		cancel:       cancel,
		eg:           eg,
		scaleEvery:   30 * time.Second,
		recoverEvery: 5 * time.Minute,
		monitorEvery: time.Minute,
		stuckAfter:   15 * time.Minute,
	}
}

// Start begins the worker manager lifecycle
func (m *Manager) Start() error {
	m.logger.Info().
		Int("min_workers", m.config.MinWorkers).
		Int("max_workers", m.config.MaxWorkers).
		Str("protocol", m.protocol.Name()).
		Msg("Starting worker manager")

	if err := m.adjustWorkerCount(); err != nil {
		return fmt.Errorf("failed to start initial workers: %w", err)
	}

	m.eg.Go(m.runScalingLoop)
	m.eg.Go(m.runStuckPairRecovery)
	m.eg.Go(m.runQueueMonitoring)

	m.logger.Info().Msg("Worker manager started successfully")
	return nil
}

// Stop gracefully shuts down the worker manager
func (m *Manager) Stop() error {
	m.mutex.Lock()
	if m.stopped {
		m.mutex.Unlock()
		return nil
	}
	m.stopped = true
	m.mutex.Unlock()

	m.logger.Info().Msg("Stopping worker manager...")
	m.cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.eg.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error().Err(err).Msg("Error during worker shutdown")
		}
	case <-time.After(30 * time.Second):
		m.logger.Warn().Msg("Worker shutdown timed out")
	}

	m.mutex.Lock()
	m.workers = nil
	m.mutex.Unlock()

	metrics.WorkersActive.Set(0)
	m.logger.Info().Msg("Worker manager stopped")
	return nil
}

func (m *Manager) runScalingLoop() error {
	return m.every(m.scaleEvery, func() {
		if err := m.adjustWorkerCount(); err != nil {
			m.logger.Error().Err(err).Msg("Failed to adjust worker count")
		}
	})
}

func (m *Manager) runStuckPairRecovery() error {
	return m.every(m.recoverEvery, func() {
		if _, err := m.queue.RequeueStuckPairs(m.ctx, m.stuckAfter); err != nil {
			m.logger.Error().Err(err).Msg("Failed to requeue stuck pairs")
		}
	})
}

func (m *Manager) runQueueMonitoring() error {
	return m.every(m.monitorEvery, func() {
		stats, err := m.Stats(m.ctx)
		if err != nil {
			m.logger.Error().Err(err).Msg("Failed to collect queue stats")
			return
		}
		m.logger.Info().
			Int64("queue_length", stats.QueueLength).
			Int("in_flight_pairs", stats.InFlight).
			Int("active_workers", stats.ActiveWorkers).
			Msg("Queue monitoring stats")
	})
}

// every runs fn on each tick until the manager context ends
func (m *Manager) every(interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			fn()
		}
	}
}

// adjustWorkerCount scales workers based on queue length
func (m *Manager) adjustWorkerCount() error {
	queueLength, err := m.queue.GetQueueLength(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue length: %w", err)
	}

	metrics.PairQueueLength.Set(float64(queueLength))

	desired := m.calculateDesiredWorkers(int(queueLength))

	m.mutex.Lock()
	defer m.mutex.Unlock()

	current := len(m.workers)
	if desired == current || m.stopped {
		return nil
	}

	m.logger.Info().
		Int("current_workers", current).
		Int("desired_workers", desired).
		Int64("queue_length", queueLength).
		Msg("Adjusting worker count")

	if desired > current {
		m.addWorkers(desired - current)
	} else {
		m.removeWorkers(current - desired)
	}
	metrics.WorkersActive.Set(float64(len(m.workers)))
	return nil
}

// calculateDesiredWorkers allows one worker per 10 queued pairs within the configured bounds
func (m *Manager) calculateDesiredWorkers(queueLength int) int {
	desired := queueLength / 10
	if desired < m.config.MinWorkers {
		desired = m.config.MinWorkers
	}
	if desired > m.config.MaxWorkers {
		desired = m.config.MaxWorkers
	}
	return desired
}

// addWorkers starts count new workers; callers hold the mutex
func (m *Manager) addWorkers(count int) {
	for i := 0; i < count; i++ {
		m.nextID++
		w := NewWorker(fmt.Sprintf("worker-%d", m.nextID), m.queue, m.store, m.protocol, m.logger)

		m.eg.Go(func() error {
			return w.Start(m.ctx)
		})
		m.workers = append(m.workers, w)
	}

	m.logger.Info().
		Int("added", count).
		Int("total_workers", len(m.workers)).
		Msg("Workers added")
}

// removeWorkers signals the newest workers to stop after their current pair; callers hold the mutex
func (m *Manager) removeWorkers(count int) {
	if count > len(m.workers) {
		count = len(m.workers)
	}

	for _, w := range m.workers[len(m.workers)-count:] {
		w.Stop()
	}
	m.workers = m.workers[:len(m.workers)-count]

	m.logger.Info().
		Int("removed", count).
		Int("remaining_workers", len(m.workers)).
		Msg("Workers removed")
}

// Stats is a snapshot of the sync pool
type Stats struct {
	ActiveWorkers int
	QueueLength   int64
	InFlight      int
	MinWorkers    int
	MaxWorkers    int
}

// Stats returns current manager statistics
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	queueLength, err := m.queue.GetQueueLength(ctx)
	if err != nil {
		return Stats{}, err
	}
	inFlight, err := m.queue.GetInFlightPairs(ctx)
	if err != nil {
		return Stats{}, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return Stats{
		ActiveWorkers: len(m.workers),
		QueueLength:   queueLength,
		InFlight:      len(inFlight),
		MinWorkers:    m.config.MinWorkers,
		MaxWorkers:    m.config.MaxWorkers,
	}, nil
}
