// Package lease assigns each worker process a small-integer identity without
// a coordinator. Identities are rows in a shared collection with a unique key
// on worker_id; whoever inserts first owns the id. A background heartbeat
// keeps the claim fresh, and ids whose heartbeat goes stale are reclaimed by
// later arrivals.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"streaming-catalog/internal/models"
	"streaming-catalog/internal/telemetry"
)

// ErrIDTaken is returned by Store.Insert when another process already holds
// the worker id.
var ErrIDTaken = errors.New("worker id already claimed")

// Store is the durable lease table. Insert must be atomic with respect to the
// worker_id key, and RemoveStale must hand a given stale lease to at most one
// caller.
type Store interface {
	FindByInstance(ctx context.Context, instanceID string) (*models.Lease, error)
	TakenIDs(ctx context.Context) (map[int]bool, error)
	Insert(ctx context.Context, l models.Lease) error
	RemoveStale(ctx context.Context, cutoff time.Time) (*models.Lease, error)
	Heartbeat(ctx context.Context, workerID int, instanceID string, at time.Time) error
	Delete(ctx context.Context, workerID int, instanceID string) error
}

// Options tunes acquisition and renewal behavior.
type Options struct {
	TotalWorkers      int
	InstanceID        string
	StaleAfter        time.Duration
	HeartbeatInterval time.Duration
}

// Manager acquires and renews one worker identity for the lifetime of the
// process.
type Manager struct {
	store Store
	opts  Options

	workerID int
	fallback bool
	stop     chan struct{}
	done     chan struct{}
}

// NewManager creates a manager; call Acquire before reading WorkerID.
func NewManager(store Store, opts Options) *Manager {
	if opts.TotalWorkers <= 0 {
		opts.TotalWorkers = 1
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 5 * time.Minute
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = time.Minute
	}
	return &Manager{
		store:    store,
		opts:     opts,
		workerID: -1,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WorkerID returns the acquired identity, or -1 before Acquire succeeds.
func (m *Manager) WorkerID() int { return m.workerID }

// IsFallback reports whether the identity sits outside the regular
// 0..TotalWorkers-1 range.
func (m *Manager) IsFallback() bool { return m.fallback }

// Acquire claims a worker identity and starts the background heartbeat. The
// returned id is held exclusively by this process until Close or lease
// expiry. Acquire never fails outright on contention: when every id is taken
// and none is stale it registers a fallback id above the regular range so the
// worker stays live.
func (m *Manager) Acquire(ctx context.Context) (int, error) {
	// Re-attach after a restart: an unexpired lease for this instance means
	// the previous run's id is still ours.
	existing, err := m.store.FindByInstance(ctx, m.opts.InstanceID)
	if err != nil {
		return 0, fmt.Errorf("look up existing lease: %w", err)
	}
	if existing != nil && !existing.Expired(time.Now(), m.opts.StaleAfter) {
		log.Printf("reusing worker id %d for instance %s", existing.WorkerID, m.opts.InstanceID)
		m.adopt(existing.WorkerID, existing.IsFallback)
		return m.workerID, nil
	}

	taken, err := m.store.TakenIDs(ctx)
	if err != nil {
		// Degrade to probing every candidate; the unique index still
		// arbitrates.
		log.Printf("list taken worker ids: %v", err)
		taken = map[int]bool{}
	}

	now := time.Now()
	for id := 0; id < m.opts.TotalWorkers; id++ {
		if taken[id] {
			continue
		}
		err := m.store.Insert(ctx, models.Lease{
			WorkerID:      id,
			InstanceID:    m.opts.InstanceID,
			CreatedAt:     now,
			LastHeartbeat: now,
		})
		if err == nil {
			log.Printf("acquired worker id %d", id)
			m.adopt(id, false)
			return id, nil
		}
		if !errors.Is(err, ErrIDTaken) {
			log.Printf("claim worker id %d: %v", id, err)
		}
		// Jitter between candidates so simultaneously starting workers fan
		// out instead of racing the same ids in lockstep.
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(claimJitter()):
		}
	}

	// Every id is taken: reclaim the oldest lease whose heartbeat exceeded
	// the staleness window. The store's find-and-delete resolves races so
	// exactly one contender wins a given stale lease.
	cutoff := time.Now().Add(-m.opts.StaleAfter)
	stale, err := m.store.RemoveStale(ctx, cutoff)
	if err != nil {
		log.Printf("scan for stale leases: %v", err)
	}
	if stale != nil {
		now = time.Now()
		err := m.store.Insert(ctx, models.Lease{
			WorkerID:      stale.WorkerID,
			InstanceID:    m.opts.InstanceID,
			CreatedAt:     now,
			LastHeartbeat: now,
		})
		if err == nil {
			log.Printf("reclaimed stale worker id %d from instance %s", stale.WorkerID, stale.InstanceID)
			telemetry.LeaseReclaims.Inc()
			m.adopt(stale.WorkerID, false)
			return stale.WorkerID, nil
		}
		log.Printf("re-insert reclaimed worker id %d: %v", stale.WorkerID, err)
	}

	// Pathological contention: synthesize an id above the regular range.
	// Sharding folds it back modulo TotalWorkers, so the worker overlaps one
	// peer instead of sitting idle.
	fallbackID := m.opts.TotalWorkers + rand.Intn(101)
	now = time.Now()
	err = m.store.Insert(ctx, models.Lease{
		WorkerID:      fallbackID,
		InstanceID:    m.opts.InstanceID,
		CreatedAt:     now,
		LastHeartbeat: now,
		IsFallback:    true,
	})
	if err != nil {
		log.Printf("register fallback worker id %d: %v", fallbackID, err)
	}
	log.Printf("all worker ids taken, using fallback id %d", fallbackID)
	m.adopt(fallbackID, true)
	return fallbackID, nil
}

// Close stops the heartbeat and releases the lease so another worker can
// claim the id immediately instead of waiting out the staleness window.
func (m *Manager) Close(ctx context.Context) error {
	if m.workerID < 0 {
		return nil
	}
	close(m.stop)
	<-m.done
	if err := m.store.Delete(ctx, m.workerID, m.opts.InstanceID); err != nil {
		return fmt.Errorf("release lease for worker %d: %w", m.workerID, err)
	}
	return nil
}

func (m *Manager) adopt(id int, fallback bool) {
	m.workerID = id
	m.fallback = fallback
	go m.heartbeatLoop()
}

// heartbeatLoop renews last_heartbeat until Close. Failures are logged and
// retried sooner; a missed renewal risks reclamation by a peer, which the
// at-least-once processing model tolerates.
func (m *Manager) heartbeatLoop() {
	defer close(m.done)
	interval := m.opts.HeartbeatInterval
	for {
		select {
		case <-m.stop:
			return
		case <-time.After(interval):
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := m.store.Heartbeat(ctx, m.workerID, m.opts.InstanceID, time.Now())
		cancel()
		if err != nil {
			log.Printf("heartbeat for worker %d failed: %v", m.workerID, err)
			telemetry.HeartbeatFailures.Inc()
			interval = 5 * time.Second
			continue
		}
		interval = m.opts.HeartbeatInterval
	}
}

func claimJitter() time.Duration {
	return 100*time.Millisecond + time.Duration(rand.Int63n(int64(400*time.Millisecond)))
}
