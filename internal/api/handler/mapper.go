package handler

import (
	"github.com/livraison/courier-tracking/internal/core/domain"
	"github.com/livraison/courier-tracking/internal/core/ports"
)

// --- Request → Service input ---

func toCreateCourierInput(req createCourierRequest) ports.CreateCourierInput {
	return ports.CreateCourierInput{
		ID:     req.ID,
		Name:   req.Name,
		Phone:  req.Phone,
		Active: req.Active,
	}
}

func toCourierUpdate(req updateCourierRequest) domain.CourierUpdate {
	return domain.CourierUpdate{
		Name:   req.Name,
		Phone:  req.Phone,
		Active: req.Active,
	}
}

func toSubmitInput(req submitPositionRequest, idempotencyKey string) ports.SubmitPositionInput {
	return ports.SubmitPositionInput{
		CourierID:      req.Courier,
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		IdempotencyKey: idempotencyKey,
	}
}

// --- Domain → Response ---

func toCourierResponse(c domain.Courier) courierResponse {
	return courierResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

func toCourierResponses(cs []domain.Courier) []courierResponse {
	out := make([]courierResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCourierResponse(c))
	}
	return out
}

func toPositionResponse(r domain.PositionReport) positionResponse {
	return positionResponse{
		ReportID:  r.ReportID,
		CourierID: r.CourierID,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timestamp: r.Timestamp,
	}
}

func toPositionResponses(rs []domain.PositionReport) []positionResponse {
	out := make([]positionResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toPositionResponse(r))
	}
	return out
}
