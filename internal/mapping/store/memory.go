package store

import (
	"context"
	"sync"

	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgerror"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
}

type sessionRecord struct {
	mu      sync.RWMutex
	meta    entity.Session
	mapping *entity.Mapping
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*sessionRecord),
	}
}

func (s *InMemoryStore) CreateSession(ctx context.Context, meta entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[meta.ID]; exists {
		return pkgerror.NewBusiness("session already exists", pkgerror.CodeConflict)
	}

	s.sessions[meta.ID] = &sessionRecord{
		meta:    meta,
		mapping: entity.NewMapping(),
	}

	return nil
}

func (s *InMemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return pkgerror.ErrNotFound
	}
	delete(s.sessions, sessionID)

	return nil
}

// TouchSession records activity on a session and returns its metadata.
func (s *InMemoryStore) TouchSession(ctx context.Context, sessionID string, seenAt int64) (entity.Session, error) {
	rec, err := s.get(sessionID)
	if err != nil {
		return entity.Session{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if seenAt > rec.meta.LastSeenAt {
		rec.meta.LastSeenAt = seenAt
	}

	return rec.meta, nil
}

// Mapping returns the current snapshot of the session mapping.
//
// The snapshot is immutable and stays valid after later updates.
func (s *InMemoryStore) Mapping(ctx context.Context, sessionID string) (*entity.Mapping, error) {
	rec, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return rec.mapping, nil
}

// UpdateMapping replaces the session mapping with the value returned by fn.
//
// fn runs under the session write lock, so concurrent updates are applied one
// after another against the latest snapshot. When fn fails the mapping is
// left as it was.
func (s *InMemoryStore) UpdateMapping(ctx context.Context, sessionID string, fn func(current *entity.Mapping) (*entity.Mapping, error)) (*entity.Mapping, error) {
	rec, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next, err := fn(rec.mapping)
	if err != nil {
		return rec.mapping, err
	}
	if next != nil {
		rec.mapping = next
	}

	return rec.mapping, nil
}

// EvictIdle drops sessions whose last activity is older than before and
// returns how many were removed.
func (s *InMemoryStore) EvictIdle(ctx context.Context, before int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, rec := range s.sessions {
		rec.mu.RLock()
		idle := rec.meta.LastSeenAt < before
		rec.mu.RUnlock()

		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}

	return evicted, nil
}

func (s *InMemoryStore) get(sessionID string) (*sessionRecord, error) {
	s.mu.RLock()
	rec, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerror.ErrNotFound
	}

	return rec, nil
}
