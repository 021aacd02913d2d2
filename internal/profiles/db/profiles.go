package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/models"
)

// --- manager / sub-manager profiles ---

func (r *Repository) CreateManagerProfile(ctx context.Context, profile *models.ManagerProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *Repository) GetManagerProfile(ctx context.Context, id uuid.UUID) (*models.ManagerProfile, error) {
	var profile models.ManagerProfile
	result := r.db.WithContext(ctx).
		Preload("User").
		Preload("Companies").
		First(&profile, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}

func (r *Repository) GetManagerProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.ManagerProfile, error) {
	var profile models.ManagerProfile
	result := r.db.WithContext(ctx).
		Preload("User").
		Preload("Companies").
		First(&profile, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}

// AssignManagerCompanies replaces the manager's administered company
// set.
func (r *Repository) AssignManagerCompanies(ctx context.Context, profile *models.ManagerProfile, companies []models.Company) error {
	return r.db.WithContext(ctx).Model(profile).Association("Companies").Replace(companies)
}

// ManagerHasCustomers reports whether the manager profile is the
// creator of at least one customer. Such managers are delete-protected.
func (r *Repository) ManagerHasCustomers(ctx context.Context, managerID uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.CustomerProfile{}).
		Where("creator_id = ?", managerID).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) CreateSubManagerProfile(ctx context.Context, profile *models.SubManagerProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *Repository) GetSubManagerProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.SubManagerProfile, error) {
	var profile models.SubManagerProfile
	result := r.db.WithContext(ctx).
		Preload("User").
		Preload("Companies").
		First(&profile, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}

func (r *Repository) AssignSubManagerCompanies(ctx context.Context, profile *models.SubManagerProfile, companies []models.Company) error {
	return r.db.WithContext(ctx).Model(profile).Association("Companies").Replace(companies)
}

// --- employee profiles ---

func (r *Repository) CreateEmployeeProfile(ctx context.Context, profile *models.EmployeeProfile) error {
	return r.db.WithContext(ctx).Omit("User", "Category", "Company", "Schedule", "Salary").Create(profile).Error
}

func (r *Repository) GetEmployeeProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.EmployeeProfile, error) {
	var profile models.EmployeeProfile
	result := r.db.WithContext(ctx).
		Preload("Company").
		First(&profile, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}

// EmployeeInCategoryCompanies fetches one employee, visible only when
// its category belongs to one of the given companies. An empty company
// set never matches.
func (r *Repository) EmployeeInCategoryCompanies(ctx context.Context, id uuid.UUID, companyIDs []uuid.UUID) (*models.EmployeeProfile, error) {
	var profile models.EmployeeProfile
	result := r.db.WithContext(ctx).
		Joins("JOIN employee_categories ec ON ec.id = employee_profiles.category_id").
		Where("employee_profiles.id = ? AND ec.company_id IN ?", id, companyIDs).
		Preload("User").
		Preload("Category").
		Preload("Company").
		Preload("Schedule").
		Preload("Salary").
		First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}

// EmployeesByCategoryCompanies lists employees whose category belongs
// to one of the given companies.
func (r *Repository) EmployeesByCategoryCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]models.EmployeeProfile, error) {
	var employees []models.EmployeeProfile
	result := r.db.WithContext(ctx).
		Joins("JOIN employee_categories ec ON ec.id = employee_profiles.category_id").
		Where("ec.company_id IN ?", companyIDs).
		Preload("User").
		Preload("Category").
		Preload("Company").
		Preload("Schedule").
		Preload("Salary").
		Find(&employees)
	return employees, result.Error
}

// EmployeesByCompanies lists employees attached directly to the given
// companies (the events listing scopes this way).
func (r *Repository) EmployeesByCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]models.EmployeeProfile, error) {
	var employees []models.EmployeeProfile
	result := r.db.WithContext(ctx).
		Where("company_id IN ?", companyIDs).
		Preload("User").
		Preload("Category").
		Preload("Company").
		Find(&employees)
	return employees, result.Error
}

func (r *Repository) UpdateEmployeeProfile(ctx context.Context, update *models.EmployeeUpdate) error {
	values := map[string]interface{}{}
	if update.CategoryID != nil {
		values["category_id"] = *update.CategoryID
	}
	if update.CompanyID != nil {
		values["company_id"] = *update.CompanyID
	}
	if len(values) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.EmployeeProfile{}).
		Where("id = ?", update.ID).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteEmployeeProfile(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.EmployeeProfile{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// --- customer profiles ---

func (r *Repository) CreateCustomerProfile(ctx context.Context, profile *models.CustomerProfile) error {
	return r.db.WithContext(ctx).Omit("User", "Creator", "Company").Create(profile).Error
}

// CustomersByCreatorCompanies lists customers created by managers who
// administer one of the given companies.
func (r *Repository) CustomersByCreatorCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]models.CustomerProfile, error) {
	var customers []models.CustomerProfile
	result := r.db.WithContext(ctx).
		Distinct("customer_profiles.*").
		Joins("JOIN manager_companies mc ON mc.manager_profile_id = customer_profiles.creator_id").
		Where("mc.company_id IN ?", companyIDs).
		Preload("User").
		Find(&customers)
	return customers, result.Error
}

// --- categories ---

func (r *Repository) CreateCategory(ctx context.Context, category *models.EmployeeCategory) error {
	result := r.db.WithContext(ctx).Omit("Company").Create(category)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateSlug
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (*models.EmployeeCategory, error) {
	var category models.EmployeeCategory
	result := r.db.WithContext(ctx).First(&category, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &category, nil
}

func (r *Repository) CategoriesByCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]models.EmployeeCategory, error) {
	var categories []models.EmployeeCategory
	result := r.db.WithContext(ctx).
		Where("company_id IN ?", companyIDs).
		Order("name").
		Find(&categories)
	return categories, result.Error
}

func (r *Repository) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.EmployeeCategory{}).
		Where("slug = ?", slug).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// --- work days ---

// FindOrCreateWorkDay reuses an existing schedule tuple when an
// identical one exists, otherwise inserts a new row.
func (r *Repository) FindOrCreateWorkDay(ctx context.Context, day *models.WorkDay) (*models.WorkDay, error) {
	var existing models.WorkDay
	result := r.db.WithContext(ctx).
		Where("day_of_week = ? AND working_hours = ? AND day_type = ?",
			day.DayOfWeek, day.WorkingHours, day.DayType).
		First(&existing)
	if result.Error == nil {
		return &existing, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	if day.ID == uuid.Nil {
		day.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(day).Error; err != nil {
		return nil, err
	}
	return day, nil
}

// AttachWorkDay appends a schedule entry to the employee's shared
// schedule set.
func (r *Repository) AttachWorkDay(ctx context.Context, profile *models.EmployeeProfile, day *models.WorkDay) error {
	return r.db.WithContext(ctx).Model(profile).Association("Schedule").Append(day)
}

// --- salaries ---

func (r *Repository) CreateSalary(ctx context.Context, salary *models.EmployeeSalary) error {
	return r.db.WithContext(ctx).Create(salary).Error
}

// --- events ---

func (r *Repository) CreateEvent(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// EventsForEmployee lists the events of one employee inside one
// company, the transaction set the salary computation runs over.
func (r *Repository) EventsForEmployee(ctx context.Context, employeeID, companyID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND company_id = ?", employeeID, companyID).
		Find(&events)
	return events, result.Error
}

// EventsByEmployeeIDs fetches events for a batch of employees.
func (r *Repository) EventsByEmployeeIDs(ctx context.Context, employeeIDs []uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	result := r.db.WithContext(ctx).
		Where("employee_id IN ?", employeeIDs).
		Order("scheduled_at").
		Find(&events)
	return events, result.Error
}
