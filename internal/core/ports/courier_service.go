package ports

import (
	"context"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

// CreateCourierInput carries the data needed to register a courier.
type CreateCourierInput struct {
	ID     string
	Name   string
	Phone  string
	Active *bool // nil defaults to true
}

// CourierService defines use-case operations for couriers.
type CourierService interface {
	Create(ctx context.Context, in CreateCourierInput) (*domain.Courier, error)
	List(ctx context.Context) ([]domain.Courier, error)
	Get(ctx context.Context, id string) (*domain.Courier, error)
	Update(ctx context.Context, id string, update domain.CourierUpdate) (*domain.Courier, error)
}
