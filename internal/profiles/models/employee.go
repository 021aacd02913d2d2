package models

import (
	"time"

	"github.com/google/uuid"
)

// SalaryType selects the pay period of a salary policy.
type SalaryType int

const (
	SalaryPerDay SalaryType = iota + 1
	SalaryPerMonth
)

// DefaultCategoryName is the category name used when none is given.
const DefaultCategoryName = "Врач"

// EmployeeProfile extends a User of role employee. An employee belongs
// to exactly one company and one category and carries a shared weekly
// schedule. The salary policy is optional.
type EmployeeProfile struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID        `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User       User             `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	CategoryID uuid.UUID        `gorm:"type:uuid;not null" json:"category_id"`
	Category   EmployeeCategory `json:"category"`
	CompanyID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"company_id"`
	Company    Company          `json:"company"`
	Schedule   []WorkDay        `gorm:"many2many:employee_schedules" json:"work_schedule"`
	Salary     *EmployeeSalary  `gorm:"foreignKey:EmployeeID" json:"salary,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// EmployeeUpdate carries the mutable employee fields for partial
// updates.
type EmployeeUpdate struct {
	ID         uuid.UUID
	CategoryID *uuid.UUID
	CompanyID  *uuid.UUID
}

// EmployeeCategory is a named grouping of employees scoped to one
// company. The slug derives from name and company id at save time, so
// its uniqueness holds globally across companies.
type EmployeeCategory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Slug      string    `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   Company   `json:"-"`
}

// EmployeeSalary is the pay policy of one employee: an optional fixed
// base plus an optional percentage of serviced revenue.
type EmployeeSalary struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"employee_id"`
	Type       SalaryType `gorm:"default:2" json:"type"`
	Salary     *int       `gorm:"check:salary >= 0" json:"salary,omitempty"`
	// PercentageOfIncome is an integer proportion in [0,100].
	PercentageOfIncome *int `gorm:"check:percentage_of_income >= 0 AND percentage_of_income <= 100" json:"percentage_of_income,omitempty"`
}
