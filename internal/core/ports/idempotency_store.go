package ports

import (
	"context"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

// IdempotencyStore guards position submissions carrying a client-supplied key.
type IdempotencyStore interface {
	// Claim reserves key for a new submission and returns nil, nil. If the key
	// already maps to a stored report, that report is returned. If another
	// submission still holds the key, the error is domain.ErrSubmissionInProgress.
	Claim(ctx context.Context, key string) (*domain.PositionReport, error)
	// Remember replaces the claim with the stored report.
	Remember(ctx context.Context, key string, report *domain.PositionReport) error
	// Release drops the claim of a submission that was not persisted.
	Release(ctx context.Context, key string) error
}
