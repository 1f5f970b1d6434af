package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/livraison/courier-tracking/internal/core/domain"
	"github.com/livraison/courier-tracking/internal/core/ports"
)

type CourierService struct {
	repo   ports.CourierRepository
	logger zerolog.Logger
}

func NewCourierService(repo ports.CourierRepository, logger zerolog.Logger) *CourierService {
	return &CourierService{repo: repo, logger: logger}
}

// Create registers a courier. Couriers are active unless stated otherwise.
func (s *CourierService) Create(ctx context.Context, in ports.CreateCourierInput) (*domain.Courier, error) {
	courier := &domain.Courier{
		ID:        strings.TrimSpace(in.ID),
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Active:    true,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if in.Active != nil {
		courier.Active = *in.Active
	}
	if err := courier.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, courier); err != nil {
		if errors.Is(err, domain.ErrCourierExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("livreur_id", courier.ID).Msg("failed to create courier")
		return nil, err
	}

	s.logger.Info().Str("livreur_id", courier.ID).Msg("courier created")
	return courier, nil
}

func (s *CourierService) List(ctx context.Context) ([]domain.Courier, error) {
	couriers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list couriers: %w", err)
	}
	return couriers, nil
}

func (s *CourierService) Get(ctx context.Context, id string) (*domain.Courier, error) {
	return s.repo.FindByID(ctx, id)
}

// Update applies a partial update. An empty update returns the courier unchanged.
func (s *CourierService) Update(ctx context.Context, id string, update domain.CourierUpdate) (*domain.Courier, error) {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, &domain.ValidationError{Field: "nom", Reason: "must not be empty"}
	}
	if update.IsEmpty() {
		return s.repo.FindByID(ctx, id)
	}

	courier, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("livreur_id", id).Msg("courier updated")
	return courier, nil
}
