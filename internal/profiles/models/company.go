package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the tenant boundary. Scoping and isolation guarantees are
// expressed relative to company membership; the record itself is owned
// by a separate subsystem and mirrored here for joins.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
