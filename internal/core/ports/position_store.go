package ports

import (
	"context"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

// DefaultHistoryLimit is the number of reports History returns when no limit is given.
const DefaultHistoryLimit = 100

// PositionStore is durable append-only storage of position reports.
type PositionStore interface {
	// Append validates the coordinates, assigns a fresh report id and the
	// current timestamp, persists the report and returns the stored record.
	Append(ctx context.Context, courierID string, lat, lng float64) (*domain.PositionReport, error)

	// LatestPerCourier returns one report per known courier: the one with the
	// greatest timestamp, ties going to the most recent write.
	LatestPerCourier(ctx context.Context) ([]domain.PositionReport, error)

	// History returns the most recent limit reports of a courier, newest first.
	// Unknown couriers yield an empty slice, not an error.
	History(ctx context.Context, courierID string, limit int) ([]domain.PositionReport, error)
}
