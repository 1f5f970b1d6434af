package domain

import (
	"strings"
	"time"
)

// Courier is a delivery agent whose position is tracked.
type Courier struct {
	ID        string    `json:"livreur_id" bson:"courier_id"`
	Name      string    `json:"nom"        bson:"name"`
	Phone     string    `json:"telephone"  bson:"phone"`
	Active    bool      `json:"actif"      bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// CourierUpdate carries optional fields to update a courier.
// A nil field means "do not change" that attribute.
type CourierUpdate struct {
	Name   *string
	Phone  *string
	Active *bool
}

// IsEmpty reports whether the update changes nothing.
func (u CourierUpdate) IsEmpty() bool {
	return u.Name == nil && u.Phone == nil && u.Active == nil
}

// Apply returns c with the non-nil fields of u applied.
func (u CourierUpdate) Apply(c Courier) Courier {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Active != nil {
		c.Active = *u.Active
	}
	return c
}

// Validate checks the fields required to register a courier.
func (c Courier) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return &ValidationError{Field: "livreur_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "nom", Reason: "must not be empty"}
	}
	return nil
}
