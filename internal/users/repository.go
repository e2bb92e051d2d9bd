package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository reads and writes users keyed by LINE user id.
type Repository interface {
	GetByLineID(ctx context.Context, lineUserID string) (*User, error)
	// Upsert creates the user or refreshes its profile, marking it active.
	Upsert(ctx context.Context, req *UpsertRequest) (*User, error)
	// Register stores contact details. A nil email keeps the current one.
	Register(ctx context.Context, lineUserID, phone string, email *string) (*User, error)
	SetActive(ctx context.Context, lineUserID string, active bool) error
	Touch(ctx context.Context, lineUserID string) error
}

// InMemoryRepository is a Repository for development and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
	now   func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users: make(map[string]*User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) GetByLineID(_ context.Context, lineUserID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[lineUserID]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *InMemoryRepository) Upsert(_ context.Context, req *UpsertRequest) (*User, error) {
	if req == nil {
		return nil, ErrMissingLineID
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	user := r.getOrCreate(req.LineUserID, now)
	user.DisplayName = req.DisplayName
	user.PictureURL = req.PictureURL
	user.IsActive = true
	user.LastActiveAt = &now
	user.UpdatedAt = now
	out := *user
	return &out, nil
}

func (r *InMemoryRepository) Register(_ context.Context, lineUserID, phone string, email *string) (*User, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		return nil, ErrMissingLineID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	user := r.getOrCreate(lineUserID, now)
	p := phone
	user.Phone = &p
	if email != nil {
		e := *email
		user.Email = &e
	}
	user.IsActive = true
	user.LastActiveAt = &now
	user.UpdatedAt = now
	out := *user
	return &out, nil
}

func (r *InMemoryRepository) SetActive(_ context.Context, lineUserID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[lineUserID]
	if !ok {
		return ErrUserNotFound
	}
	user.IsActive = active
	user.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) Touch(_ context.Context, lineUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[lineUserID]
	if !ok {
		return ErrUserNotFound
	}
	now := r.now()
	user.LastActiveAt = &now
	return nil
}

// getOrCreate expects r.mu to be held.
func (r *InMemoryRepository) getOrCreate(lineUserID string, now time.Time) *User {
	if user, ok := r.users[lineUserID]; ok {
		return user
	}
	user := &User{
		ID:              uuid.NewString(),
		LineUserID:      lineUserID,
		DisplayName:     DefaultDisplayName,
		IsActive:        true,
		MembershipLevel: "STANDARD",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.users[lineUserID] = user
	return user
}
