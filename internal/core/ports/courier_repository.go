package ports

import (
	"context"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

// CourierRepository defines persistence operations for couriers.
type CourierRepository interface {
	Create(ctx context.Context, c *domain.Courier) error
	List(ctx context.Context) ([]domain.Courier, error)
	FindByID(ctx context.Context, id string) (*domain.Courier, error)
	// Update applies the non-nil fields and returns the updated courier.
	Update(ctx context.Context, id string, update domain.CourierUpdate) (*domain.Courier, error)
}
