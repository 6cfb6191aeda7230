package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"monthcal/internal/model"
)

// ErrNoData is returned by Storage.Load when nothing has been persisted yet.
var ErrNoData = errors.New("store: no persisted events")

//go:generate mockgen -destination=storagemock/storage.go -package=storagemock monthcal/internal/store Storage

// Storage is the persistence port of the event store. Save always receives the
// whole collection and replaces whatever was stored before.
type Storage interface {
	Load(ctx context.Context) ([]model.Event, error)
	Save(ctx context.Context, events []model.Event) error
}

// MemoryStorage keeps the last saved collection in memory.
type MemoryStorage struct {
	mu     sync.Mutex
	events []model.Event
	saved  bool
	saves  int
}

// NewMemoryStorage returns a storage that starts empty, or pre-filled with
// events when any are given.
func NewMemoryStorage(events ...model.Event) *MemoryStorage {
	m := &MemoryStorage{}
	if len(events) > 0 {
		m.events = slices.Clone(events)
		m.saved = true
	}
	return m
}

func (m *MemoryStorage) Load(_ context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return nil, ErrNoData
	}
	return slices.Clone(m.events), nil
}

func (m *MemoryStorage) Save(_ context.Context, events []model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = slices.Clone(events)
	m.saved = true
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
