package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Snapshot
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Snapshot)
	}
	s.data[sessionID] = snap.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap, ok := s.data[sessionID]; ok {
		return snap.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestManager_UpdateIsSerialized(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Save(ctx, id, &domain.Snapshot{SessionID: id}))

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(s *domain.Snapshot) (*domain.Snapshot, error) {
				s.Step++
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, snap.Step, "no update may be lost")
}

func TestManager_UpdateAbort(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	require.NoError(t, manager.Save(ctx, "s", &domain.Snapshot{Step: 1}))

	boom := errors.New("boom")
	_, err := manager.Update(ctx, "s", func(s *domain.Snapshot) (*domain.Snapshot, error) {
		s.Step = 99
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	snap, err := manager.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Step)

	_, err = manager.Update(ctx, "missing", func(s *domain.Snapshot) (*domain.Snapshot, error) { return s, nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_Create(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(step int) {
			defer wg.Done()
			snap, created, err := manager.Create(ctx, id, &domain.Snapshot{SessionID: id, CurrentNodeID: "start", Step: step})
			assert.NoError(t, err)
			assert.NotNil(t, snap)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	snap, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "start", snap.CurrentNodeID)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	ttl      time.Duration
	unlocked int
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(time.Minute))

	require.NoError(t, manager.Save(context.Background(), "s1", &domain.Snapshot{}))

	assert.Equal(t, []string{"s1"}, locker.locked)
	assert.Equal(t, time.Minute, locker.ttl)
	assert.Equal(t, 1, locker.unlocked)
}
