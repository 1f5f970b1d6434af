package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

type CourierRepository struct {
	mu   sync.RWMutex
	byID map[string]domain.Courier
}

func NewCourierRepository() *CourierRepository {
	return &CourierRepository{byID: make(map[string]domain.Courier)}
}

func (r *CourierRepository) Create(_ context.Context, c *domain.Courier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; ok {
		return domain.ErrCourierExists
	}
	r.byID[c.ID] = *c
	return nil
}

// List returns couriers ordered by id.
func (r *CourierRepository) List(_ context.Context) ([]domain.Courier, error) {
	r.mu.RLock()
	out := make([]domain.Courier, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CourierRepository) FindByID(_ context.Context, id string) (*domain.Courier, error) {
	r.mu.RLock()
	c, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrCourierNotFound
	}
	return &c, nil
}

func (r *CourierRepository) Update(_ context.Context, id string, u domain.CourierUpdate) (*domain.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrCourierNotFound
	}
	c = u.Apply(c)
	r.byID[id] = c
	return &c, nil
}
