// Package scope implements the tenant scoping engine: it resolves the
// set of companies a principal administers and narrows entity queries
// to that set. A principal with no administered companies always gets
// empty results, never an unfiltered table.
package scope

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/models"
)

// Repository is the storage surface the engine needs.
type Repository interface {
	CompanyIDsForManagerUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CompanyIDsForSubManagerUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	EmployeesByCategoryCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]models.EmployeeProfile, error)
	EmployeesByCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]models.EmployeeProfile, error)
	EmployeeInCategoryCompanies(ctx context.Context, id uuid.UUID, companyIDs []uuid.UUID) (*models.EmployeeProfile, error)
	CustomersByCreatorCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]models.CustomerProfile, error)
	CategoriesByCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]models.EmployeeCategory, error)
	UsersByCompanies(ctx context.Context, companyIDs []uuid.UUID, selfID uuid.UUID) ([]models.User, error)
}

// Engine narrows entity sets to a principal's administered companies.
type Engine struct {
	repo   Repository
	logger *zap.Logger
}

func NewEngine(repo Repository, logger *zap.Logger) *Engine {
	return &Engine{
		repo:   repo,
		logger: logger.Named("scope_engine"),
	}
}

// Companies returns the company ids the principal administers.
// Managers and sub-managers resolve through their profile membership;
// every other role administers nothing.
func (eng *Engine) Companies(ctx context.Context, user *models.User) ([]uuid.UUID, error) {
	if user == nil {
		return nil, nil
	}
	switch user.Role {
	case models.RoleManager:
		return eng.repo.CompanyIDsForManagerUser(ctx, user.ID)
	case models.RoleSubManager:
		return eng.repo.CompanyIDsForSubManagerUser(ctx, user.ID)
	case models.RoleEmployee, models.RoleCustomer:
		return nil, nil
	default:
		return nil, nil
	}
}

// ContainsCompany reports whether the given company is inside the
// principal's administered set.
func (eng *Engine) ContainsCompany(ctx context.Context, user *models.User, companyID uuid.UUID) (bool, error) {
	ids, err := eng.Companies(ctx, user)
	if err != nil {
		return false, fmt.Errorf("failed to resolve administered companies: %w", err)
	}
	for _, id := range ids {
		if id == companyID {
			return true, nil
		}
	}
	return false, nil
}

// Employees returns the employees visible to the principal, scoped
// through the category's company.
func (eng *Engine) Employees(ctx context.Context, user *models.User) ([]models.EmployeeProfile, error) {
	ids, err := eng.Companies(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve administered companies: %w", err)
	}
	if len(ids) == 0 {
		return []models.EmployeeProfile{}, nil
	}
	return eng.repo.EmployeesByCategoryCompanies(ctx, ids)
}

// Employee fetches one scoped employee. Records outside the scope are
// reported as not found, indistinguishable from missing ones.
func (eng *Engine) Employee(ctx context.Context, user *models.User, id uuid.UUID) (*models.EmployeeProfile, error) {
	ids, err := eng.Companies(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve administered companies: %w", err)
	}
	if len(ids) == 0 {
		return nil, e.ErrNotFound
	}
	return eng.repo.EmployeeInCategoryCompanies(ctx, id, ids)
}

// EmployeesByCompany returns employees attached directly to the
// principal's companies (the events listing scopes this way).
func (eng *Engine) EmployeesByCompany(ctx context.Context, user *models.User) ([]models.EmployeeProfile, error) {
	ids, err := eng.Companies(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve administered companies: %w", err)
	}
	if len(ids) == 0 {
		return []models.EmployeeProfile{}, nil
	}
	return eng.repo.EmployeesByCompanies(ctx, ids)
}

// Customers returns customers created by managers of the principal's
// companies.
func (eng *Engine) Customers(ctx context.Context, user *models.User) ([]models.CustomerProfile, error) {
	ids, err := eng.Companies(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve administered companies: %w", err)
	}
	if len(ids) == 0 {
		return []models.CustomerProfile{}, nil
	}
	return eng.repo.CustomersByCreatorCompanies(ctx, ids)
}

// Categories returns the employee categories of the principal's
// companies.
func (eng *Engine) Categories(ctx context.Context, user *models.User) ([]models.EmployeeCategory, error) {
	ids, err := eng.Companies(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve administered companies: %w", err)
	}
	if len(ids) == 0 {
		return []models.EmployeeCategory{}, nil
	}
	return eng.repo.CategoriesByCompanies(ctx, ids)
}

// Users returns the principals visible to the caller: itself plus the
// users behind its scoped employees and customers.
func (eng *Engine) Users(ctx context.Context, user *models.User) ([]models.User, error) {
	ids, err := eng.Companies(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve administered companies: %w", err)
	}
	if len(ids) == 0 {
		if user == nil {
			return []models.User{}, nil
		}
		return []models.User{*user}, nil
	}
	return eng.repo.UsersByCompanies(ctx, ids, user.ID)
}
