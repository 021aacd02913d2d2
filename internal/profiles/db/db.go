// Package db implements the GORM-backed repository for the profiles
// service: principals, role profiles, categories, schedules, salaries
// and service events, plus the transactional scope the provisioning
// workflows run in.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/models"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewRepository connects to Postgres, retrying with exponential
// backoff while the database comes up, and runs migrations.
func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var db *gorm.DB
	err := backoff.Retry(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return open(db)
}

// Open wraps an already established GORM connection and runs
// migrations. Tests use it with an in-memory SQLite dialector.
func Open(dialector gorm.Dialector) (*Repository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(db)
}

func open(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.ManagerProfile{},
		&models.SubManagerProfile{},
		&models.EmployeeCategory{},
		&models.WorkDay{},
		&models.EmployeeProfile{},
		&models.EmployeeSalary{},
		&models.CustomerProfile{},
		&models.Event{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

// WithTransaction runs fn inside a single transaction; any error rolls
// every write back. Provisioning workflows rely on this boundary.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateUsername
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (r *Repository) UserExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) UpdateUser(ctx context.Context, update *models.UserUpdate) error {
	values := map[string]interface{}{}
	if update.Email != nil {
		values["email"] = *update.Email
	}
	if update.FirstName != nil {
		values["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		values["last_name"] = *update.LastName
	}
	if update.MiddleName != nil {
		values["middle_name"] = *update.MiddleName
	}
	if update.Birthdate != nil {
		values["birthdate"] = *update.Birthdate
	}
	if update.Gender != nil {
		values["gender"] = *update.Gender
	}
	if update.Phone != nil {
		values["phone"] = *update.Phone
	}
	if update.Avatar != nil {
		values["avatar"] = *update.Avatar
	}
	if update.IsActive != nil {
		values["is_active"] = *update.IsActive
	}
	if len(values) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.User{}).
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

// SetUserOnline flips the online flag. Single column, last write wins;
// concurrent session events from the same user are tolerated.
func (r *Repository) SetUserOnline(ctx context.Context, id uuid.UUID, online bool) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("is_online", online)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user together with its dependent profile. The
// cascade is explicit so it holds on engines without enforced foreign
// keys (the in-memory test database among them).
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		for _, profile := range []interface{}{
			&models.ManagerProfile{},
			&models.SubManagerProfile{},
			&models.EmployeeProfile{},
			&models.CustomerProfile{},
		} {
			if err := tx.db.WithContext(ctx).Where("user_id = ?", id).Delete(profile).Error; err != nil {
				return err
			}
		}
		result := tx.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		return nil
	})
}

// UsersByCompanies returns the principals visible inside the given
// companies: the caller itself plus every user behind a scoped
// employee or customer profile.
func (r *Repository) UsersByCompanies(ctx context.Context, companyIDs []uuid.UUID, selfID uuid.UUID) ([]models.User, error) {
	var users []models.User
	employeeUsers := r.db.Model(&models.EmployeeProfile{}).
		Select("user_id").
		Where("company_id IN ?", companyIDs)
	customerUsers := r.db.Model(&models.CustomerProfile{}).
		Select("user_id").
		Where("company_id IN ?", companyIDs)

	result := r.db.WithContext(ctx).
		Where("id = ?", selfID).
		Or("id IN (?)", employeeUsers).
		Or("id IN (?)", customerUsers).
		Order("username").
		Find(&users)
	return users, result.Error
}

// --- companies ---

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	result := r.db.WithContext(ctx).First(&company, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &company, nil
}

// CompanyIDsForManagerUser resolves the companies administered by the
// manager behind the given user id.
func (r *Repository) CompanyIDsForManagerUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Joins("JOIN manager_companies mc ON mc.company_id = companies.id").
		Joins("JOIN manager_profiles mp ON mp.id = mc.manager_profile_id").
		Where("mp.user_id = ?", userID).
		Pluck("companies.id", &ids)
	return ids, result.Error
}

// CompanyIDsForSubManagerUser is the sub-manager analogue of
// CompanyIDsForManagerUser.
func (r *Repository) CompanyIDsForSubManagerUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Joins("JOIN sub_manager_companies smc ON smc.company_id = companies.id").
		Joins("JOIN sub_manager_profiles smp ON smp.id = smc.sub_manager_profile_id").
		Where("smp.user_id = ?", userID).
		Pluck("companies.id", &ids)
	return ids, result.Error
}
