package controller

import (
	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/models"
)

const minPasswordLength = 8

func validateUserInput(in *UserInput) error {
	if in.Username == "" {
		return e.Field("username", "required")
	}
	if len(in.Username) > 150 {
		return e.Field("username", "must be at most 150 characters")
	}
	if len(in.Password) < minPasswordLength {
		return e.Field("password", "must be at least 8 characters")
	}
	if in.Gender != 0 && in.Gender != models.GenderMale && in.Gender != models.GenderFemale {
		return e.Field("gender", "unknown value")
	}
	return nil
}

func validateScheduleEntry(entry *ScheduleEntry) error {
	if entry.DayOfWeek < 1 || entry.DayOfWeek > 7 {
		return e.Field("day_of_the_week", "must be between 1 and 7")
	}
	if entry.WorkingHours < 0 || entry.WorkingHours > 24 {
		return e.Field("working_hours", "must be between 0 and 24")
	}
	if entry.DayType != models.DayTypeWeekday && entry.DayType != models.DayTypeHoliday {
		return e.Field("day_type", "unknown value")
	}
	return nil
}

func validateSalaryInput(in *SalaryInput) error {
	if in.Type != 0 && in.Type != models.SalaryPerDay && in.Type != models.SalaryPerMonth {
		return e.Field("type", "unknown value")
	}
	if in.Salary != nil && *in.Salary < 0 {
		return e.Field("salary", "must not be negative")
	}
	if in.PercentageOfIncome != nil && (*in.PercentageOfIncome < 0 || *in.PercentageOfIncome > 100) {
		return e.Field("percentage_of_income", "must be between 0 and 100")
	}
	return nil
}
