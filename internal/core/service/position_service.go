package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/livraison/courier-tracking/internal/core/domain"
	"github.com/livraison/courier-tracking/internal/core/ports"
	"github.com/livraison/courier-tracking/internal/metrics"
)

type positionService struct {
	store     ports.PositionStore
	publisher ports.Publisher
	idem      ports.IdempotencyStore
	log       zerolog.Logger
}

// NewPositionService returns a PositionService implementation. idem may be nil,
// in which case idempotency keys are ignored.
func NewPositionService(
	store ports.PositionStore,
	publisher ports.Publisher,
	idem ports.IdempotencyStore,
	log zerolog.Logger,
) ports.PositionService {
	return &positionService{
		store:     store,
		publisher: publisher,
		idem:      idem,
		log:       log,
	}
}

// Submit persists a report and then publishes it. The event is published only
// after the store has accepted the report, so a live subscriber never sees a
// position that History would not return.
func (s *positionService) Submit(ctx context.Context, in ports.SubmitPositionInput) (*ports.SubmitResult, error) {
	start := time.Now()
	defer func() { metrics.SubmitDuration.Observe(time.Since(start).Seconds()) }()

	// 1. Claim the key: a replay gets the first report and no event.
	claimed := false
	if in.IdempotencyKey != "" && s.idem != nil {
		prev, err := s.idem.Claim(ctx, in.IdempotencyKey)
		switch {
		case errors.Is(err, domain.ErrSubmissionInProgress):
			metrics.PositionsRejectedTotal.WithLabelValues("in_progress").Inc()
			return nil, fmt.Errorf("submit position: %w", err)
		case err != nil:
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency claim failed, processing anyway")
		case prev != nil:
			metrics.PositionsReplayedTotal.Inc()
			s.log.Debug().Str("idempotency_key", in.IdempotencyKey).Str("position_id", prev.ReportID).Msg("idempotent replay")
			return &ports.SubmitResult{Report: prev, Replayed: true}, nil
		default:
			claimed = true
		}
	}

	// 2. Persist.
	report, err := s.store.Append(ctx, in.CourierID, in.Latitude, in.Longitude)
	if err != nil {
		if claimed {
			s.release(ctx, in.IdempotencyKey)
		}
		reason := rejectReason(err)
		metrics.PositionsRejectedTotal.WithLabelValues(reason).Inc()
		if reason == "store" {
			s.log.Error().Err(err).Str("livreur_id", in.CourierID).Msg("failed to store position")
		}
		return nil, fmt.Errorf("submit position: %w", err)
	}

	// 3. Fan out.
	s.publisher.Publish(report.Event())
	metrics.PositionsSubmittedTotal.Inc()

	// 4. Remember the key; the report is already durable, so a failure here
	// only weakens replay protection.
	if claimed {
		if err := s.idem.Remember(ctx, in.IdempotencyKey, report); err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}

	s.log.Debug().
		Str("livreur_id", report.CourierID).
		Str("position_id", report.ReportID).
		Float64("latitude", report.Latitude).
		Float64("longitude", report.Longitude).
		Msg("position submitted")

	return &ports.SubmitResult{Report: report}, nil
}

// Latest returns the most recent report of every known courier.
func (s *positionService) Latest(ctx context.Context) ([]domain.PositionReport, error) {
	reports, err := s.store.LatestPerCourier(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest positions: %w", err)
	}
	return reports, nil
}

// History returns up to limit reports for a courier, newest first. A
// non-positive limit means the default; larger values are capped at it.
func (s *positionService) History(ctx context.Context, courierID string, limit int) ([]domain.PositionReport, error) {
	if limit <= 0 || limit > ports.DefaultHistoryLimit {
		limit = ports.DefaultHistoryLimit
	}
	reports, err := s.store.History(ctx, courierID, limit)
	if err != nil {
		return nil, fmt.Errorf("position history: %w", err)
	}
	return reports, nil
}

func (s *positionService) release(ctx context.Context, key string) {
	if err := s.idem.Release(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to release idempotency key")
	}
}

func rejectReason(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return "validation"
	}
	return "store"
}
