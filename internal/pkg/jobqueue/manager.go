package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue           *Queue
	reconcileTicker *time.Ticker
	statsTicker     *time.Ticker
	stopCh          chan struct{}
	wg              sync.WaitGroup
	mu              sync.Mutex
	running         bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := envInt("JOB_QUEUE_WORKERS", 5)

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	// Reconciliation sweep - picks up organizations flagged needs_reconcile
	reconcileInterval := time.Duration(envInt("RECONCILE_SWEEP_INTERVAL_MINUTES", 15)) * time.Minute
	m.reconcileTicker = time.NewTicker(reconcileInterval)
	m.wg.Add(1)
	go m.reconcileSweepWorker(reconcileInterval)

	// Periodic engine counter report
	m.statsTicker = time.NewTicker(time.Minute)
	m.wg.Add(1)
	go m.statsWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.reconcileTicker != nil {
		m.reconcileTicker.Stop()
	}
	if m.statsTicker != nil {
		m.statsTicker.Stop()
	}

	// Leave the closed channel in place: workers re-read the field on every
	// select iteration and would block forever on a nil channel. Start
	// recreates it for the next cycle.
	close(m.stopCh)
	m.running = false

	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// reconcileSweepWorker periodically enqueues reconcile jobs for flagged organizations
func (m *Manager) reconcileSweepWorker(interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started reconcile sweep worker (interval: %s)", interval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Reconcile sweep worker stopping")
			return
		case <-m.reconcileTicker.C:
			if err := m.runReconcileSweepOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Reconcile sweep error: %v", err)
			}
		}
	}
}

func (m *Manager) runReconcileSweepOnce() error {
	svc := getBillingService()
	if svc == nil {
		return nil
	}
	ids, err := svc.ListNeedingReconcile(100)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := m.queue.EnqueueReconcile(id); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue reconcile for organization %d: %v", id, err)
		}
	}
	if len(ids) > 0 {
		log.Infof("[JobQueue Manager] Reconcile sweep enqueued %d organizations", len(ids))
	}
	return nil
}

// statsWorker periodically reports engine counters and queue depth
func (m *Manager) statsWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Stats worker stopping")
			return
		case <-m.statsTicker.C:
			m.reportStatsOnce()
		}
	}
}

func (m *Manager) reportStatsOnce() {
	reg := getCounters()
	if reg != nil {
		log.Debugf("[JobQueue Manager] Engine counters: %v", reg.Snapshot())
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunReconcileSweepOnce exposes a manual trigger for a single sweep (admin use).
func (m *Manager) RunReconcileSweepOnce() error {
	return m.runReconcileSweepOnce()
}

func envInt(key string, fallback int) int {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
