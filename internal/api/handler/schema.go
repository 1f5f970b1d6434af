package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type createCourierRequest struct {
	ID     string `json:"livreur_id" validate:"required"`
	Name   string `json:"nom"        validate:"required"`
	Phone  string `json:"telephone"`
	Active *bool  `json:"actif"`
}

// updateCourierRequest is a partial update; absent fields are left unchanged.
type updateCourierRequest struct {
	Name   *string `json:"nom"`
	Phone  *string `json:"telephone"`
	Active *bool   `json:"actif"`
}

// Coordinates are pointers so that 0 is accepted and a missing field is not.
type submitPositionRequest struct {
	Courier   string   `json:"livreur"   validate:"required"`
	Latitude  *float64 `json:"latitude"  validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// --- Response types ---
// Owned by the transport layer so the JSON contract is not coupled to
// domain changes.

type courierResponse struct {
	ID        string    `json:"livreur_id"`
	Name      string    `json:"nom"`
	Phone     string    `json:"telephone"`
	Active    bool      `json:"actif"`
	CreatedAt time.Time `json:"created_at"`
}

type positionResponse struct {
	ReportID  string    `json:"position_id"`
	CourierID string    `json:"livreur_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}
