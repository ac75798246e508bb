package department

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

const listKey = "departments:all"

// Service resolves departments through a TTL cache. Departments change rarely
// and are read on every booking.
type Service struct {
	repo  repository.DepartmentRepository
	cache *cache.Cache
}

func NewService(repo repository.DepartmentRepository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Get returns a NotFound error for unknown ids. Misses are not cached.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	key := id.String()
	if v, ok := s.cache.Get(key); ok {
		d := *v.(*model.Department)
		return &d, nil
	}

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, d)
	cp := *d
	return &cp, nil
}

// List returns copies of the cached departments, so callers may modify them.
func (s *Service) List(ctx context.Context) ([]*model.Department, error) {
	if v, ok := s.cache.Get(listKey); ok {
		return copyDepartments(v.([]*model.Department)), nil
	}

	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(listKey, departments)
	return copyDepartments(departments), nil
}

func copyDepartments(in []*model.Department) []*model.Department {
	out := make([]*model.Department, len(in))
	for i, d := range in {
		cp := *d
		out[i] = &cp
	}
	return out
}

// Invalidate drops every cached entry.
func (s *Service) Invalidate() {
	s.cache.Flush()
}
