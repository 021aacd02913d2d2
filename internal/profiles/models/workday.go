package models

import "github.com/google/uuid"

// DayType distinguishes regular weekdays from holidays in a schedule.
type DayType int

const (
	DayTypeWeekday DayType = iota + 1
	DayTypeHoliday
)

// WorkDay is one weekly schedule entry: a (day of week, hours, day
// type) tuple. Rows are shared between employees; provisioning reuses
// an existing identical tuple before creating a new one.
type WorkDay struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DayOfWeek    int       `gorm:"check:day_of_week >= 1 AND day_of_week <= 7" json:"day_of_the_week"`
	WorkingHours int       `gorm:"check:working_hours >= 0 AND working_hours <= 24" json:"working_hours"`
	DayType      DayType   `json:"day_type"`
}

var dayNames = [...]string{"ПН", "ВТ", "СР", "ЧТ", "ПТ", "СБ", "ВС"}

// DayName returns the short Russian day label for the entry.
func (w WorkDay) DayName() string {
	if w.DayOfWeek < 1 || w.DayOfWeek > 7 {
		return ""
	}
	return dayNames[w.DayOfWeek-1]
}
