package redirect

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps entries in a map.  Used by package tests across
// the module in place of MySQL.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID uint64
	rows   map[uint64]Entry
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[uint64]Entry)}
}

func (m *MemoryRepository) Get(_ context.Context, id uint64) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.rows[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryRepository) List(_ context.Context, f Filter) ([]Entry, error) {
	var sources map[string]struct{}
	if len(f.Sources) > 0 {
		sources = make(map[string]struct{}, len(f.Sources))
		for _, s := range f.Sources {
			sources[s] = struct{}{}
		}
	}

	m.mu.RLock()
	out := make([]Entry, 0, len(m.rows))
	for _, e := range m.rows {
		if f.SiteID != 0 && e.SiteID != f.SiteID {
			continue
		}
		if f.Active != nil && e.Active != *f.Active {
			continue
		}
		if f.IsRegex != nil && e.IsRegex != *f.IsRegex {
			continue
		}
		if f.Builtin != nil && e.Builtin != *f.Builtin {
			continue
		}
		if sources != nil {
			if _, ok := sources[e.Source]; !ok {
				continue
			}
		}
		if !f.UpdatedBefore.IsZero() && !e.UpdatedAt.Before(f.UpdatedBefore) {
			continue
		}
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) Insert(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.rows[e.ID] = *e
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[e.ID]; !ok {
		return ErrNotFound
	}
	m.rows[e.ID] = *e
	return nil
}

func (m *MemoryRepository) SetActive(_ context.Context, id uint64, active bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	e.Active = active
	e.UpdatedAt = at
	m.rows[id] = e
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}
