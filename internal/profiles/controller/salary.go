package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"staffbase/internal/profiles/models"
)

// ComputeIncome derives an employee's income from its salary policy
// and a transaction set: the policy's percentage of each matching
// event's service price plus the fixed base. An employee without a
// policy earns zero from it; that is a valid outcome, not an error.
func ComputeIncome(employee *models.EmployeeProfile, events []models.Event) float64 {
	percentage := 0
	if employee.Salary != nil && employee.Salary.PercentageOfIncome != nil {
		percentage = *employee.Salary.PercentageOfIncome
	}

	income := 0.0
	for _, event := range events {
		if event.EmployeeID != employee.ID || event.CompanyID != employee.CompanyID {
			continue
		}
		income += float64(event.ServicePrice) / 100 * float64(percentage)
	}

	if employee.Salary != nil && employee.Salary.Salary != nil {
		income += float64(*employee.Salary.Salary)
	}
	return income
}

// EmployeeIncome computes the income of one scoped employee over its
// company's events.
func (s *ProfileService) EmployeeIncome(ctx context.Context, caller *models.User, id uuid.UUID) (float64, error) {
	employee, err := s.scope.Employee(ctx, caller, id)
	if err != nil {
		return 0, err
	}
	events, err := s.repo.EventsForEmployee(ctx, employee.ID, employee.CompanyID)
	if err != nil {
		return 0, fmt.Errorf("failed to load employee events: %w", err)
	}
	return ComputeIncome(employee, events), nil
}
