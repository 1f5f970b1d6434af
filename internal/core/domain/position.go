package domain

import (
	"math"
	"strings"
	"time"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// PositionReport is one durable, timestamped location sample for a courier.
// It is never mutated after the store returns it.
type PositionReport struct {
	ReportID  string    `json:"position_id" bson:"position_id"`
	CourierID string    `json:"livreur_id"  bson:"courier_id"`
	Latitude  float64   `json:"latitude"    bson:"latitude"`
	Longitude float64   `json:"longitude"   bson:"longitude"`
	Timestamp time.Time `json:"timestamp"   bson:"timestamp"`
}

// PositionEvent is the transient fan-out message derived from a PositionReport.
// Seq is assigned by the hub at publish time.
type PositionEvent struct {
	Seq       uint64    `json:"-" msgpack:"-"`
	ReportID  string    `json:"-" msgpack:"-"`
	CourierID string    `json:"livreur_id" msgpack:"livreur_id"`
	Latitude  float64   `json:"latitude"   msgpack:"latitude"`
	Longitude float64   `json:"longitude"  msgpack:"longitude"`
	Timestamp time.Time `json:"timestamp"  msgpack:"timestamp"`
}

// Event builds the fan-out message for r.
func (r PositionReport) Event() PositionEvent {
	return PositionEvent{
		ReportID:  r.ReportID,
		CourierID: r.CourierID,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timestamp: r.Timestamp,
	}
}

// ValidatePosition checks the fields every store requires before appending.
func ValidatePosition(courierID string, lat, lng float64) error {
	if strings.TrimSpace(courierID) == "" {
		return &ValidationError{Field: "livreur", Reason: "must not be empty"}
	}
	if math.IsNaN(lat) || lat < MinLatitude || lat > MaxLatitude {
		return &ValidationError{Field: "latitude", Reason: "must be within [-90, 90]"}
	}
	if math.IsNaN(lng) || lng < MinLongitude || lng > MaxLongitude {
		return &ValidationError{Field: "longitude", Reason: "must be within [-180, 180]"}
	}
	return nil
}

// ReportTime returns the wall clock truncated to the precision every backend
// can round-trip (BSON datetimes keep milliseconds).
func ReportTime(now time.Time) time.Time {
	return now.UTC().Truncate(time.Millisecond)
}
