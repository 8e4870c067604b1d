package models

import (
	"time"

	"github.com/google/uuid"
)

// Iceberg status values. A record is complete exactly when it carries both a
// display mask and a computed area.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
)

// Placeholder coordinates used until a geolocation pipeline exists. Every
// record created by an upload carries these; they mean "location pending",
// not an actual fix.
const (
	PendingLatitude  = -73.5
	PendingLongitude = -40.0
)

// Iceberg represents one tracked iceberg and its imagery in the database.
type Iceberg struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	ImagePath string    `json:"image_path"`
	MaskPath  string    `json:"mask_path"`
	Area      *float64  `json:"area"` // square nautical miles, nil until a mask is processed
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsComplete reports whether the record satisfies the completeness invariant.
func (i *Iceberg) IsComplete() bool {
	return i.Area != nil && i.MaskPath != ""
}

// Serialize returns the wire representation used by list responses and the
// outbound webhook payload.
func (i *Iceberg) Serialize() map[string]interface{} {
	var area interface{}
	if i.Area != nil {
		area = *i.Area
	}
	return map[string]interface{}{
		"id":         i.ID,
		"name":       i.Name,
		"latitude":   i.Latitude,
		"longitude":  i.Longitude,
		"image_path": i.ImagePath,
		"mask_path":  i.MaskPath,
		"area":       area,
		"status":     i.Status,
	}
}
