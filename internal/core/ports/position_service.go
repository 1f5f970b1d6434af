package ports

import (
	"context"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

// SubmitPositionInput is the DTO passed from the transport layer to PositionService.
type SubmitPositionInput struct {
	CourierID string
	Latitude  float64
	Longitude float64
	// IdempotencyKey is optional; a repeated key replays the first result.
	IdempotencyKey string
}

// SubmitResult wraps the stored report.
type SubmitResult struct {
	Report *domain.PositionReport
	// Replayed is true when the idempotency key matched an earlier submission.
	Replayed bool
}

// Publisher hands position events to the live fan-out layer. It must not block
// and never reports delivery failures back to the caller.
type Publisher interface {
	Publish(event domain.PositionEvent)
}

// PositionService is the single entry point for courier position updates.
type PositionService interface {
	Submit(ctx context.Context, in SubmitPositionInput) (*SubmitResult, error)
	Latest(ctx context.Context) ([]domain.PositionReport, error)
	History(ctx context.Context, courierID string, limit int) ([]domain.PositionReport, error)
}
