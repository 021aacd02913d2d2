package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSpeciality is assigned to manager profiles created without an
// explicit speciality.
const DefaultSpeciality = "Системный администратор"

// ManagerProfile extends a User of role manager. A manager may
// administer several companies; the company set defines the manager's
// tenant scope.
type ManagerProfile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User       User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Speciality string    `gorm:"size:100" json:"speciality"`
	Companies  []Company `gorm:"many2many:manager_companies" json:"companies"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SubManagerProfile extends a User of role sub-manager. Mirrors
// ManagerProfile without the speciality attribute.
type SubManagerProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Companies []Company `gorm:"many2many:sub_manager_companies" json:"companies"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerProfile extends a User of role customer. It keeps a
// protected reference to the manager who created it: a manager with
// customers cannot be removed.
type CustomerProfile struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User      User           `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	CreatorID uuid.UUID      `gorm:"type:uuid;not null;index" json:"creator_id"`
	Creator   ManagerProfile `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	CompanyID uuid.UUID      `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   Company        `json:"-"`
	Address   string         `gorm:"size:255" json:"address"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
