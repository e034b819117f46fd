package lease

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"streaming-catalog/internal/models"
)

// memStore is an in-memory Store with the same atomicity guarantees the
// Mongo implementation gets from its unique index.
type memStore struct {
	mu     sync.Mutex
	leases map[int]models.Lease
}

func newMemStore() *memStore {
	return &memStore{leases: make(map[int]models.Lease)}
}

func (s *memStore) FindByInstance(_ context.Context, instanceID string) (*models.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leases {
		if l.InstanceID == instanceID {
			out := l
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memStore) TakenIDs(_ context.Context) (map[int]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := make(map[int]bool, len(s.leases))
	for id := range s.leases {
		taken[id] = true
	}
	return taken, nil
}

func (s *memStore) Insert(_ context.Context, l models.Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leases[l.WorkerID]; exists {
		return ErrIDTaken
	}
	s.leases[l.WorkerID] = l
	return nil
}

func (s *memStore) RemoveStale(_ context.Context, cutoff time.Time) (*models.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *models.Lease
	for _, l := range s.leases {
		if !l.LastHeartbeat.Before(cutoff) {
			continue
		}
		if oldest == nil || l.LastHeartbeat.Before(oldest.LastHeartbeat) {
			out := l
			oldest = &out
		}
	}
	if oldest == nil {
		return nil, nil
	}
	delete(s.leases, oldest.WorkerID)
	return oldest, nil
}

func (s *memStore) Heartbeat(_ context.Context, workerID int, instanceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leases[workerID]
	if !ok || l.InstanceID != instanceID {
		return nil
	}
	l.LastHeartbeat = at
	s.leases[workerID] = l
	return nil
}

func (s *memStore) Delete(_ context.Context, workerID int, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.leases[workerID]; ok && l.InstanceID == instanceID {
		delete(s.leases, workerID)
	}
	return nil
}

func (s *memStore) put(l models.Lease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases[l.WorkerID] = l
}

func newTestManager(store Store, total int, instance string) *Manager {
	return NewManager(store, Options{
		TotalWorkers:      total,
		InstanceID:        instance,
		StaleAfter:        5 * time.Minute,
		HeartbeatInterval: time.Hour,
	})
}

func TestAcquireRacersGetDistinctIDs(t *testing.T) {
	const total = 8
	store := newMemStore()

	ids := make(chan int, total)
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m := newTestManager(store, total, string(rune('a'+n)))
			id, err := m.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)

	var got []int
	for id := range ids {
		got = append(got, id)
	}
	sort.Ints(got)
	for i, id := range got {
		if id != i {
			t.Fatalf("expected distinct ids 0..%d, got %v", total-1, got)
		}
	}
}

func TestAcquireReattachesAfterRestart(t *testing.T) {
	store := newMemStore()
	store.put(models.Lease{
		WorkerID:      5,
		InstanceID:    "host-a",
		CreatedAt:     time.Now(),
		LastHeartbeat: time.Now(),
	})

	m := newTestManager(store, 8, "host-a")
	id, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if id != 5 {
		t.Fatalf("expected re-attached id 5, got %d", id)
	}
}

func TestStaleLeaseReclaimedByExactlyOne(t *testing.T) {
	const total = 4
	store := newMemStore()
	now := time.Now()
	for id := 0; id < total; id++ {
		hb := now
		if id == 2 {
			hb = now.Add(-10 * time.Minute) // past the staleness window
		}
		store.put(models.Lease{WorkerID: id, InstanceID: "old", CreatedAt: hb, LastHeartbeat: hb})
	}

	ids := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m := newTestManager(store, total, string(rune('x'+n)))
			id, err := m.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)

	reclaimed := 0
	for id := range ids {
		if id == 2 {
			reclaimed++
		} else if id < total {
			t.Fatalf("unexpectedly claimed live id %d", id)
		}
	}
	if reclaimed != 1 {
		t.Fatalf("stale id reclaimed by %d workers, want exactly 1", reclaimed)
	}
}

func TestFallbackWhenAllLeasesLive(t *testing.T) {
	const total = 3
	store := newMemStore()
	now := time.Now()
	for id := 0; id < total; id++ {
		store.put(models.Lease{WorkerID: id, InstanceID: "other", CreatedAt: now, LastHeartbeat: now})
	}

	m := newTestManager(store, total, "late-arrival")
	id, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if id < total {
		t.Fatalf("expected fallback id >= %d, got %d", total, id)
	}
	if !m.IsFallback() {
		t.Fatal("expected fallback flag")
	}
	if l, _ := store.FindByInstance(context.Background(), "late-arrival"); l == nil || !l.IsFallback {
		t.Fatal("fallback lease not registered with is_fallback")
	}
}

func TestCloseReleasesLease(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store, 4, "host-a")
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if l, _ := store.FindByInstance(context.Background(), "host-a"); l != nil {
		t.Fatal("lease still present after Close")
	}
}
