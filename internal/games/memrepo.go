package games

import (
	"context"
	"sort"
	"sync"
)

// memrepo is used when no database is configured. Contents are lost on exit.
type memrepo struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*Game
	byUUID  map[string]*Game
	byOwner map[string][]*Game
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:    make(map[int64]*Game),
		byUUID:  make(map[string]*Game),
		byOwner: make(map[string][]*Game),
	}
}

func (m *memrepo) Insert(ctx context.Context, g *Game) (int64, error) {
	if g == nil {
		return 0, ErrDuplicate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byUUID[g.UUID]; exists {
		return 0, ErrDuplicate
	}
	m.nextID++
	stored := *g
	stored.ID = m.nextID
	m.byID[stored.ID] = &stored
	m.byUUID[stored.UUID] = &stored
	m.byOwner[stored.OwnerID] = append(m.byOwner[stored.OwnerID], &stored)
	return stored.ID, nil
}

func (m *memrepo) List(ctx context.Context, ownerID string, limit int) ([]*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*Game, 0, len(m.byOwner[ownerID]))
	for _, g := range m.byOwner[ownerID] {
		c := *g
		items = append(items, &c)
	}
	// newest first, ID breaks ties
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit = clampLimit(limit); len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) Get(ctx context.Context, id int64, ownerID string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.byID[id]
	if !ok || g.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	c := *g
	return &c, nil
}

func (m *memrepo) Close() error { return nil }
