package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Repository reads the service catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Service, error)
	ListActive(ctx context.Context) ([]Service, error)
}

// InMemoryRepository is a Repository for development and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewInMemoryRepository returns a repository holding the given services.
func NewInMemoryRepository(services ...Service) *InMemoryRepository {
	repo := &InMemoryRepository{services: make(map[string]Service, len(services))}
	for _, svc := range services {
		repo.Put(svc)
	}
	return repo
}

// Put inserts or replaces a service. A missing id is generated.
func (r *InMemoryRepository) Put(svc Service) Service {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	r.mu.Lock()
	r.services[svc.ID] = svc
	r.mu.Unlock()
	return svc
}

// Remove deletes a service, simulating one withdrawn mid-flow.
func (r *InMemoryRepository) Remove(id string) {
	r.mu.Lock()
	delete(r.services, id)
	r.mu.Unlock()
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[id]
	if !ok || !svc.IsActive {
		return nil, ErrServiceNotFound
	}
	return &svc, nil
}

func (r *InMemoryRepository) ListActive(_ context.Context) ([]Service, error) {
	r.mu.RLock()
	out := make([]Service, 0, len(r.services))
	for _, svc := range r.services {
		if svc.IsActive {
			out = append(out, svc)
		}
	}
	r.mu.RUnlock()
	SortForDisplay(out)
	return out, nil
}

// SeedServices returns the default menu used in development.
func SeedServices() []Service {
	return []Service{
		{Code: "FACIAL-001", Name: "Deep Cleansing Facial", Description: "Deep pore cleansing facial treatment", Category: "Facial", Price: 1500, DurationMinutes: 60, IsActive: true, IsFeatured: true, SortOrder: 1, RequiredSpecialties: []string{"FACIAL"}},
		{Code: "MASSAGE-001", Name: "Thai Traditional Massage", Description: "Authentic Thai massage", Category: "Massage", Price: 800, DurationMinutes: 60, IsActive: true, IsFeatured: true, SortOrder: 2, RequiredSpecialties: []string{"THAI_MASSAGE"}},
		{Code: "MASSAGE-002", Name: "Aromatherapy Massage", Description: "Relaxing massage with essential oils", Category: "Massage", Price: 1200, DurationMinutes: 90, IsActive: true, IsFeatured: true, SortOrder: 3, RequiredSpecialties: []string{"AROMATHERAPY"}},
		{Code: "BODY-001", Name: "Body Scrub Treatment", Description: "Exfoliating body scrub", Category: "Body", Price: 1800, DurationMinutes: 75, IsActive: true, SortOrder: 4, RequiredSpecialties: []string{"BODY_TREATMENT"}},
		{Code: "PKG-001", Name: "Relaxation Package", Description: "Massage and facial combination", Category: "Package", Price: 2000, DurationMinutes: 120, IsActive: true, IsFeatured: true, SortOrder: 5},
	}
}
