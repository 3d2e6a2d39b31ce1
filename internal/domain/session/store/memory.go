package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agentdeck-server/internal/domain/session/model"
)

type memoryStore struct {
	items       map[uint]model.LoginRecord
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory login record store. When cfg.TTL is set a
// background loop drops records older than the TTL until Close.
func NewMemory(cfg Config) Store {
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[uint]model.LoginRecord),
		ttl:         cfg.TTL,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	if s.ttl > 0 {
		go s.gcLoop()
	}
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) cleanupExpired(now time.Time) {
	s.mutex.Lock()
	for id, rec := range s.items {
		if expired(rec, s.ttl, now) {
			delete(s.items, id)
		}
	}
	s.mutex.Unlock()
}

func (s *memoryStore) Put(_ context.Context, rec model.LoginRecord) error {
	if rec.UserID == 0 {
		return fmt.Errorf("user id required")
	}
	s.mutex.Lock()
	s.items[rec.UserID] = rec
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, userID uint) (model.LoginRecord, error) {
	s.mutex.RLock()
	rec, ok := s.items[userID]
	s.mutex.RUnlock()
	if !ok || expired(rec, s.ttl, time.Now()) {
		return model.LoginRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) Delete(_ context.Context, userID uint) error {
	s.mutex.Lock()
	delete(s.items, userID)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) DeleteIfCurrent(_ context.Context, userID uint, sessionToken string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	rec, ok := s.items[userID]
	if !ok || rec.SessionToken != sessionToken {
		return false, nil
	}
	delete(s.items, userID)
	return true, nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return map[string]any{
		"type":        "memory",
		"total":       len(s.items),
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
