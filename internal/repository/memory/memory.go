// Package memory provides in-memory implementations of the repository
// interfaces for the simulation harness and tests. Semantics mirror the
// postgres and redis implementations, including optimistic locking.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/skagen/thronehex/internal/model"
)

// ErrVersionConflict mirrors the postgres optimistic lock failure.
var ErrVersionConflict = errors.New("memory: snapshot version conflict")

// SnapshotStore is an in-memory SnapshotRepository.
type SnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]model.Snapshot
}

// NewSnapshotStore creates an empty SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]model.Snapshot)}
}

func (s *SnapshotStore) SaveSnapshot(_ context.Context, gameID string, state json.RawMessage, version int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	existing, ok := s.snapshots[gameID]
	if version == 1 {
		if ok {
			return ErrVersionConflict
		}
		s.snapshots[gameID] = model.Snapshot{
			GameID: gameID, State: append(json.RawMessage(nil), state...),
			Version: version, Status: status, CreatedAt: now, UpdatedAt: now,
		}
		return nil
	}
	if !ok || existing.Version != version-1 {
		return ErrVersionConflict
	}
	existing.State = append(json.RawMessage(nil), state...)
	existing.Version = version
	existing.Status = status
	existing.UpdatedAt = now
	s.snapshots[gameID] = existing
	return nil
}

func (s *SnapshotStore) LoadSnapshot(_ context.Context, gameID string) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[gameID]
	if !ok {
		return nil, nil
	}
	cp := snap
	cp.State = append(json.RawMessage(nil), snap.State...)
	return &cp, nil
}

func (s *SnapshotStore) LoadActiveSnapshots(_ context.Context) ([]model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Snapshot
	for _, snap := range s.snapshots {
		if snap.Status == "ended" {
			continue
		}
		cp := snap
		cp.State = append(json.RawMessage(nil), snap.State...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *SnapshotStore) DeleteSnapshot(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, gameID)
	return nil
}

// EventStore is an in-memory EventRepository.
type EventStore struct {
	mu     sync.Mutex
	nextID int64
	events map[string][]model.EventRecord
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string][]model.EventRecord)}
}

func (s *EventStore) SaveEvent(_ context.Context, gameID, eventType string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.events[gameID] = append(s.events[gameID], model.EventRecord{
		EventID:   s.nextID,
		GameID:    gameID,
		EventType: eventType,
		Data:      append(json.RawMessage(nil), data...),
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *EventStore) LoadEvents(_ context.Context, gameID string) ([]model.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EventRecord, len(s.events[gameID]))
	copy(out, s.events[gameID])
	return out, nil
}

// Cache is an in-memory GameCache.
type Cache struct {
	mu        sync.Mutex
	states    map[string]json.RawMessage
	deadlines map[string]time.Time
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		states:    make(map[string]json.RawMessage),
		deadlines: make(map[string]time.Time),
	}
}

func (c *Cache) SetGameState(_ context.Context, gameID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[gameID] = append(json.RawMessage(nil), state...)
	return nil
}

func (c *Cache) GetGameState(_ context.Context, gameID string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[gameID]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), state...), nil
}

func (c *Cache) SetTurnDeadline(_ context.Context, gameID string, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadlines[gameID] = deadline
	return nil
}

func (c *Cache) GetTurnDeadline(_ context.Context, gameID string) (*time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.deadlines[gameID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (c *Cache) ClearTurnDeadline(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.deadlines, gameID)
	return nil
}

func (c *Cache) DeleteGameData(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, gameID)
	delete(c.deadlines, gameID)
	return nil
}
