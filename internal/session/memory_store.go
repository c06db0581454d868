package session

import (
	"context"
	"sort"
	"sync"

	"github.com/Conversly/widget-engine/internal/core"
)

// MemoryStore keeps sessions in process. It backs tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
	locks    map[string]*sessionLock
}

// sessionLock lives only while some Mutate holds or waits on it.
type sessionLock struct {
	sync.Mutex
	refs int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*core.Session),
		locks:    make(map[string]*sessionLock),
	}
}

func key(tenantID, sessionID string) string {
	return tenantID + "\x00" + sessionID
}

func (m *MemoryStore) acquire(k string) {
	m.mu.Lock()
	l, ok := m.locks[k]
	if !ok {
		l = &sessionLock{}
		m.locks[k] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
}

func (m *MemoryStore) release(k string) {
	m.mu.Lock()
	l := m.locks[k]
	l.refs--
	if l.refs == 0 {
		delete(m.locks, k)
	}
	m.mu.Unlock()

	l.Unlock()
}

func (m *MemoryStore) Get(_ context.Context, tenantID, sessionID string) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key(tenantID, sessionID)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Create(_ context.Context, s *core.Session) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(s.TenantID, s.SessionID)
	if existing, ok := m.sessions[k]; ok {
		return existing.Clone(), nil
	}
	m.sessions[k] = s.Clone()
	return s.Clone(), nil
}

func (m *MemoryStore) Mutate(ctx context.Context, tenantID, sessionID string, fn MutateFunc) (*core.Session, error) {
	k := key(tenantID, sessionID)
	m.acquire(k)
	defer m.release(k)

	current, err := m.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := checkAppendOnly(current, next); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[k] = next.Clone()
	m.mu.Unlock()
	return next, nil
}

func (m *MemoryStore) CountSessions(_ context.Context, tenantID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) RecentSessions(_ context.Context, tenantID, excludeSessionID string, limit, turnsEach int) ([]*core.Session, error) {
	m.mu.Lock()
	var candidates []*core.Session
	for _, s := range m.sessions {
		if s.TenantID == tenantID && s.SessionID != excludeSessionID {
			candidates = append(candidates, s.Clone())
		}
	}
	m.mu.Unlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for _, s := range candidates {
		s.Turns = append([]core.Turn(nil), s.LastTurns(turnsEach)...)
	}
	return candidates, nil
}
