// Package memory is an in-process remote store: the test double for the
// sync processor and the offline fallback for terminals with no remote
// configured yet.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/remote"
)

type Store struct {
	mu          sync.Mutex
	entities    map[string]json.RawMessage
	versions    map[string]int64
	failing     map[int64]bool
	unavailable bool
	applied     []int64
}

func New() *Store {
	return &Store{
		entities: make(map[string]json.RawMessage),
		versions: make(map[string]int64),
		failing:  make(map[int64]bool),
	}
}

func key(entityType string, id int64) string {
	return fmt.Sprintf("%s/%d", entityType, id)
}

// SetUnavailable makes Ping fail, simulating a terminal with no
// connectivity.
func (s *Store) SetUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

// FailItems makes Apply reject the given queue item ids with a transport
// error until cleared.
func (s *Store) FailItems(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.failing[id] = true
	}
}

func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = make(map[int64]bool)
}

// SetVersion pins the remote version of an entity, so a later Apply with an
// older local version reports a conflict.
func (s *Store) SetVersion(entityType string, id int64, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[key(entityType, id)] = version
}

// Entity returns the payload the remote currently holds.
func (s *Store) Entity(entityType string, id int64) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.entities[key(entityType, id)]
	return blob, ok
}

// AppliedOrder lists queue item ids in the order they were written.
func (s *Store) AppliedOrder() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.applied))
	copy(out, s.applied)
	return out
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return remote.ErrUnavailable
	}
	return nil
}

func (s *Store) Apply(_ context.Context, item domain.SyncQueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return remote.ErrUnavailable
	}
	if s.failing[item.ID] {
		return fmt.Errorf("simulated delivery failure for item %d", item.ID)
	}

	entityID := remote.EntityID(item)
	k := key(item.EntityType, entityID)
	version := item.CreatedAt.UnixMilli()
	if existing, ok := s.versions[k]; ok && existing > version {
		return &remote.ConflictError{EntityType: item.EntityType, EntityID: entityID, RemoteVersion: existing}
	}

	s.write(k, item, version)
	return nil
}

func (s *Store) Overwrite(_ context.Context, item domain.SyncQueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return remote.ErrUnavailable
	}
	s.write(key(item.EntityType, remote.EntityID(item)), item, item.CreatedAt.UnixMilli())
	return nil
}

// write stores the payload. Caller holds the lock.
func (s *Store) write(k string, item domain.SyncQueueItem, version int64) {
	s.entities[k] = append(json.RawMessage(nil), item.Payload...)
	s.versions[k] = version
	s.applied = append(s.applied, item.ID)
}
