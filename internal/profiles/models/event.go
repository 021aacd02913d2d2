package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a serviced appointment attached to an employee and a
// company. The service price is denormalized onto the row; the salary
// computation reads it to derive the employee's revenue share.
type Event struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID   uuid.UUID `gorm:"type:uuid;not null;index" json:"employee_id"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	ServiceName  string    `gorm:"size:150" json:"service_name"`
	ServicePrice int       `gorm:"check:service_price >= 0" json:"service_price"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	CreatedAt    time.Time `json:"created_at"`
}
