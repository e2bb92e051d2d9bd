package conversation

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a Store backed by a process-local map.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// MemoryStoreOption customizes a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the time source, mainly for expiry tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// live returns the stored session or nil when absent or expired. Callers hold mu.
func (s *MemoryStore) live(userID string) *Session {
	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	if sess.Expired(s.now(), s.ttl) {
		delete(s.sessions, userID)
		return nil
	}
	return sess
}

func (s *MemoryStore) GetState(_ context.Context, userID string) (State, error) {
	if strings.TrimSpace(userID) == "" {
		return StateIdle, ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.live(userID); sess != nil {
		return sess.State, nil
	}
	return StateIdle, nil
}

func (s *MemoryStore) GetData(_ context.Context, userID string) (map[string]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.live(userID); sess != nil {
		return copyData(sess.Data), nil
	}
	return map[string]string{}, nil
}

func (s *MemoryStore) SetState(_ context.Context, userID string, state State, patch map[string]string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var base map[string]string
	if sess := s.live(userID); sess != nil {
		base = sess.Data
	}
	s.sessions[userID] = &Session{
		UserID:    userID,
		State:     state,
		Data:      mergeData(base, patch),
		UpdatedAt: s.now(),
	}
	return nil
}

func (s *MemoryStore) UpdateData(_ context.Context, userID string, patch map[string]string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.live(userID)
	if sess == nil {
		return nil
	}
	sess.Data = mergeData(sess.Data, patch)
	sess.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ClearState(_ context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// Load returns a copy of the live session, or nil.
func (s *MemoryStore) Load(_ context.Context, userID string) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(userID).clone(), nil
}

// Len reports the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.Expired(now, s.ttl) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval tick until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
