// Package models defines the domain entities for the staff-management
// service: principals, role-specific profiles, categories, schedules,
// salaries and service events. All entities are mapped with GORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the principal type. It determines which dependent profile a
// user carries and is immutable once that profile exists.
type Role int

const (
	RoleManager Role = iota + 1
	RoleSubManager
	RoleEmployee
	RoleCustomer
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r >= RoleManager && r <= RoleCustomer
}

func (r Role) String() string {
	switch r {
	case RoleManager:
		return "manager"
	case RoleSubManager:
		return "sub_manager"
	case RoleEmployee:
		return "employee"
	case RoleCustomer:
		return "customer"
	default:
		return "unknown"
	}
}

// Gender of a user.
type Gender int

const (
	GenderMale Gender = iota + 1
	GenderFemale
)

// User is the root identity record. Profile entities hang off it one
// to one and are removed together with it.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"size:128" json:"-"`
	Email        string     `gorm:"size:254" json:"email"`
	FirstName    string     `gorm:"size:150" json:"first_name"`
	LastName     string     `gorm:"size:150" json:"last_name"`
	MiddleName   string     `gorm:"size:150" json:"middle_name"`
	Role         Role       `gorm:"index" json:"user_type"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`
	Gender       Gender     `json:"gender,omitempty"`
	Phone        string     `gorm:"size:20" json:"phone"`
	Avatar       string     `gorm:"size:255" json:"avatar"`
	// IsStaff marks site administrators. Distinct from Role: a staff
	// account may administer manager accounts regardless of its role.
	IsStaff   bool      `json:"is_staff"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	IsOnline  bool      `gorm:"default:false" json:"is_online"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserUpdate carries the mutable user fields. Pointer types allow
// partial updates. Role is deliberately absent: it never changes after
// profile creation.
type UserUpdate struct {
	ID         uuid.UUID
	Email      *string
	FirstName  *string
	LastName   *string
	MiddleName *string
	Birthdate  *time.Time
	Gender     *Gender
	Phone      *string
	Avatar     *string
	IsActive   *bool
}
