// Package controller implements the core business logic (service
// layer) for the profiles service: transactional account provisioning,
// category management, tenant-scoped listings and the salary view.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"staffbase/internal/profiles/db"
	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/events"
	"staffbase/internal/profiles/models"
)

type EventProducer interface {
	Produce(eventType events.EventType, user *models.User)
}

// Repository defines the storage interface the service needs outside
// the scoping engine.
type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	UserExistsByUsername(ctx context.Context, username string) (bool, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, update *models.UserUpdate) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	SetUserOnline(ctx context.Context, id uuid.UUID, online bool) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.EmployeeCategory, error)
	CategorySlugExists(ctx context.Context, slug string) (bool, error)
	CreateCategory(ctx context.Context, category *models.EmployeeCategory) error
	GetManagerProfile(ctx context.Context, id uuid.UUID) (*models.ManagerProfile, error)
	GetManagerProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.ManagerProfile, error)
	ManagerHasCustomers(ctx context.Context, managerID uuid.UUID) (bool, error)
	UpdateEmployeeProfile(ctx context.Context, update *models.EmployeeUpdate) error
	EventsForEmployee(ctx context.Context, employeeID, companyID uuid.UUID) ([]models.Event, error)
	EventsByEmployeeIDs(ctx context.Context, employeeIDs []uuid.UUID) ([]models.Event, error)
}

// Scope is the tenant scoping engine surface.
type Scope interface {
	Companies(ctx context.Context, user *models.User) ([]uuid.UUID, error)
	ContainsCompany(ctx context.Context, user *models.User, companyID uuid.UUID) (bool, error)
	Employees(ctx context.Context, user *models.User) ([]models.EmployeeProfile, error)
	Employee(ctx context.Context, user *models.User, id uuid.UUID) (*models.EmployeeProfile, error)
	EmployeesByCompany(ctx context.Context, user *models.User) ([]models.EmployeeProfile, error)
	Customers(ctx context.Context, user *models.User) ([]models.CustomerProfile, error)
	Categories(ctx context.Context, user *models.User) ([]models.EmployeeCategory, error)
	Users(ctx context.Context, user *models.User) ([]models.User, error)
}

// ProfileService provides the provisioning workflows and the scoped
// read surfaces over staff data.
type ProfileService struct {
	repo     Repository
	scope    Scope
	producer EventProducer
	logger   *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo Repository, scope Scope, producer EventProducer, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:     repo,
		scope:    scope,
		producer: producer,
		logger:   logger.Named("profile_service"),
	}
}

// UserInput carries the identity attributes shared by all provisioning
// workflows. The role is never part of it: workflows set the role
// server-side.
type UserInput struct {
	Username   string        `json:"username"`
	Password   string        `json:"password"`
	Email      string        `json:"email"`
	FirstName  string        `json:"first_name"`
	LastName   string        `json:"last_name"`
	MiddleName string        `json:"middle_name"`
	Birthdate  *time.Time    `json:"birthdate"`
	Gender     models.Gender `json:"gender"`
	Phone      string        `json:"phone"`
	Avatar     string        `json:"avatar"`
}

type CreateManagerInput struct {
	User       UserInput   `json:"user"`
	Speciality string      `json:"speciality"`
	CompanyIDs []uuid.UUID `json:"companies"`
}

// ScheduleEntry is one weekly schedule tuple of an employee request.
type ScheduleEntry struct {
	DayOfWeek    int            `json:"day_of_the_week"`
	WorkingHours int            `json:"working_hours"`
	DayType      models.DayType `json:"day_type"`
}

type SalaryInput struct {
	Type               models.SalaryType `json:"type"`
	Salary             *int              `json:"salary"`
	PercentageOfIncome *int              `json:"percentage_of_income"`
}

type CreateEmployeeInput struct {
	User       UserInput       `json:"user"`
	CategoryID uuid.UUID       `json:"category"`
	CompanyID  uuid.UUID       `json:"company"`
	Schedule   []ScheduleEntry `json:"work_schedule"`
	Salary     *SalaryInput    `json:"salary"`
}

type CreateCustomerInput struct {
	User      UserInput `json:"user"`
	CreatorID uuid.UUID `json:"creator"`
	CompanyID uuid.UUID `json:"company"`
	Address   string    `json:"address"`
}

type CreateCategoryInput struct {
	Name      string    `json:"name"`
	CompanyID uuid.UUID `json:"company"`
}

// EmployeeEvents pairs an employee with its service events.
type EmployeeEvents struct {
	Employee models.EmployeeProfile `json:"employee"`
	Events   []models.Event         `json:"events"`
}

// provisionProfile creates the dependent profile a freshly created
// principal requires, inside the caller's transaction. Every role has
// an explicit arm: managers and sub-managers get a trivial profile,
// employees and customers get none here because their profiles carry
// required references and are built by the dedicated workflows.
func provisionProfile(ctx context.Context, repo *db.Repository, user *models.User, speciality string, companies []models.Company) error {
	switch user.Role {
	case models.RoleManager:
		if speciality == "" {
			speciality = models.DefaultSpeciality
		}
		profile := &models.ManagerProfile{
			ID:         uuid.New(),
			UserID:     user.ID,
			Speciality: speciality,
		}
		if err := repo.CreateManagerProfile(ctx, profile); err != nil {
			return err
		}
		if len(companies) > 0 {
			return repo.AssignManagerCompanies(ctx, profile, companies)
		}
		return nil
	case models.RoleSubManager:
		profile := &models.SubManagerProfile{
			ID:     uuid.New(),
			UserID: user.ID,
		}
		if err := repo.CreateSubManagerProfile(ctx, profile); err != nil {
			return err
		}
		if len(companies) > 0 {
			return repo.AssignSubManagerCompanies(ctx, profile, companies)
		}
		return nil
	case models.RoleEmployee, models.RoleCustomer:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %d", e.ErrInvalidInput, user.Role)
	}
}

func (s *ProfileService) newUser(in *UserInput, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash credential: %w", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		MiddleName:   in.MiddleName,
		Role:         role,
		Birthdate:    in.Birthdate,
		Gender:       in.Gender,
		Phone:        in.Phone,
		Avatar:       in.Avatar,
		IsActive:     true,
	}, nil
}

func (s *ProfileService) checkUsernameFree(ctx context.Context, username string) error {
	exists, err := s.repo.UserExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username existence: %w", err)
	}
	if exists {
		return e.ErrDuplicateUsername
	}
	return nil
}

// CreateManager provisions a manager principal together with its
// profile and administered companies, all inside one transaction.
func (s *ProfileService) CreateManager(ctx context.Context, in *CreateManagerInput) (*models.ManagerProfile, error) {
	if err := validateUserInput(&in.User); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, in.User.Username); err != nil {
		return nil, err
	}

	user, err := s.newUser(&in.User, models.RoleManager)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		companies := make([]models.Company, 0, len(in.CompanyIDs))
		for _, id := range in.CompanyIDs {
			company, err := tx.GetCompany(ctx, id)
			if err != nil {
				return fmt.Errorf("company %s: %w", id, err)
			}
			companies = append(companies, *company)
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return provisionProfile(ctx, tx, user, in.Speciality, companies)
	})
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.GetManagerProfileByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created manager profile: %w", err)
	}
	go func() {
		s.producer.Produce(events.ManagerCreated, user)
	}()
	return profile, nil
}

// CreateEmployee provisions an employee principal, profile, schedule
// and optional salary policy as one atomic unit. A failure at any step
// leaves no partial entity graph behind.
func (s *ProfileService) CreateEmployee(ctx context.Context, caller *models.User, in *CreateEmployeeInput) (*models.EmployeeProfile, error) {
	if err := validateUserInput(&in.User); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, in.User.Username); err != nil {
		return nil, err
	}
	if in.Salary != nil {
		if err := validateSalaryInput(in.Salary); err != nil {
			return nil, err
		}
	}

	category, err := s.repo.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", in.CategoryID, err)
	}
	// Out-of-scope references read as missing so existence never leaks
	// across tenants.
	for _, companyID := range []uuid.UUID{in.CompanyID, category.CompanyID} {
		ok, err := s.scope.ContainsCompany(ctx, caller, companyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("company %s: %w", companyID, e.ErrNotFound)
		}
	}

	user, err := s.newUser(&in.User, models.RoleEmployee)
	if err != nil {
		return nil, err
	}

	profile := &models.EmployeeProfile{
		ID:         uuid.New(),
		UserID:     user.ID,
		CategoryID: in.CategoryID,
		CompanyID:  in.CompanyID,
	}
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := provisionProfile(ctx, tx, user, "", nil); err != nil {
			return err
		}
		if err := tx.CreateEmployeeProfile(ctx, profile); err != nil {
			return err
		}
		for _, entry := range in.Schedule {
			if err := validateScheduleEntry(&entry); err != nil {
				return err
			}
			day, err := tx.FindOrCreateWorkDay(ctx, &models.WorkDay{
				DayOfWeek:    entry.DayOfWeek,
				WorkingHours: entry.WorkingHours,
				DayType:      entry.DayType,
			})
			if err != nil {
				return err
			}
			if err := tx.AttachWorkDay(ctx, profile, day); err != nil {
				return err
			}
		}
		if in.Salary != nil {
			return tx.CreateSalary(ctx, &models.EmployeeSalary{
				ID:                 uuid.New(),
				EmployeeID:         profile.ID,
				Type:               in.Salary.Type,
				Salary:             in.Salary.Salary,
				PercentageOfIncome: in.Salary.PercentageOfIncome,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.scope.Employee(ctx, caller, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created employee: %w", err)
	}
	go func() {
		s.producer.Produce(events.EmployeeCreated, user)
	}()
	return created, nil
}

// CreateCustomer provisions a customer principal and profile with a
// protected reference to the creating manager.
func (s *ProfileService) CreateCustomer(ctx context.Context, caller *models.User, in *CreateCustomerInput) (*models.CustomerProfile, error) {
	if err := validateUserInput(&in.User); err != nil {
		return nil, err
	}
	if in.Address == "" {
		return nil, e.Field("address", "required")
	}
	if err := s.checkUsernameFree(ctx, in.User.Username); err != nil {
		return nil, err
	}

	creator, err := s.repo.GetManagerProfile(ctx, in.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("creator %s: %w", in.CreatorID, err)
	}
	ok, err := s.scope.ContainsCompany(ctx, caller, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("company %s: %w", in.CompanyID, e.ErrNotFound)
	}

	user, err := s.newUser(&in.User, models.RoleCustomer)
	if err != nil {
		return nil, err
	}

	profile := &models.CustomerProfile{
		ID:        uuid.New(),
		UserID:    user.ID,
		CreatorID: creator.ID,
		CompanyID: in.CompanyID,
		Address:   in.Address,
	}
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := provisionProfile(ctx, tx, user, "", nil); err != nil {
			return err
		}
		return tx.CreateCustomerProfile(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	profile.User = *user
	go func() {
		s.producer.Produce(events.CustomerCreated, user)
	}()
	return profile, nil
}

// ListEmployees returns the employees inside the caller's scope.
func (s *ProfileService) ListEmployees(ctx context.Context, caller *models.User) ([]models.EmployeeProfile, error) {
	return s.scope.Employees(ctx, caller)
}

// GetEmployee fetches one scoped employee.
func (s *ProfileService) GetEmployee(ctx context.Context, caller *models.User, id uuid.UUID) (*models.EmployeeProfile, error) {
	return s.scope.Employee(ctx, caller, id)
}

// UpdateEmployee applies a partial update to a scoped employee. Moved
// references must themselves be inside the caller's scope.
func (s *ProfileService) UpdateEmployee(ctx context.Context, caller *models.User, update *models.EmployeeUpdate) (*models.EmployeeProfile, error) {
	if update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid employee ID", e.ErrInvalidInput)
	}
	if _, err := s.scope.Employee(ctx, caller, update.ID); err != nil {
		return nil, err
	}
	if update.CategoryID != nil {
		category, err := s.repo.GetCategory(ctx, *update.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", *update.CategoryID, err)
		}
		ok, err := s.scope.ContainsCompany(ctx, caller, category.CompanyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("category %s: %w", *update.CategoryID, e.ErrNotFound)
		}
	}
	if update.CompanyID != nil {
		ok, err := s.scope.ContainsCompany(ctx, caller, *update.CompanyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("company %s: %w", *update.CompanyID, e.ErrNotFound)
		}
	}

	if err := s.repo.UpdateEmployeeProfile(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	return s.scope.Employee(ctx, caller, update.ID)
}

// DeleteEmployee removes a scoped employee together with its
// principal.
func (s *ProfileService) DeleteEmployee(ctx context.Context, caller *models.User, id uuid.UUID) error {
	employee, err := s.scope.Employee(ctx, caller, id)
	if err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, employee.UserID)
}

// EmployeeEvents lists the caller's employees together with their
// service events.
func (s *ProfileService) EmployeeEvents(ctx context.Context, caller *models.User) ([]EmployeeEvents, error) {
	employees, err := s.scope.EmployeesByCompany(ctx, caller)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return []EmployeeEvents{}, nil
	}

	ids := make([]uuid.UUID, len(employees))
	for i, emp := range employees {
		ids[i] = emp.ID
	}
	all, err := s.repo.EventsByEmployeeIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee events: %w", err)
	}
	byEmployee := make(map[uuid.UUID][]models.Event, len(employees))
	for _, event := range all {
		byEmployee[event.EmployeeID] = append(byEmployee[event.EmployeeID], event)
	}

	result := make([]EmployeeEvents, len(employees))
	for i, emp := range employees {
		result[i] = EmployeeEvents{
			Employee: emp,
			Events:   byEmployee[emp.ID],
		}
	}
	return result, nil
}

// CreateCategory creates an employee category inside one of the
// caller's companies. The slug derives from name and company id, so
// equal names may coexist across companies but not within one.
func (s *ProfileService) CreateCategory(ctx context.Context, caller *models.User, in *CreateCategoryInput) (*models.EmployeeCategory, error) {
	name := in.Name
	if name == "" {
		name = models.DefaultCategoryName
	}
	if len(name) > 100 {
		return nil, e.Field("name", "must be at most 100 characters")
	}

	ok, err := s.scope.ContainsCompany(ctx, caller, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("company %s: %w", in.CompanyID, e.ErrNotFound)
	}

	slugValue := slug.Make(name + in.CompanyID.String())
	exists, err := s.repo.CategorySlugExists(ctx, slugValue)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug existence: %w", err)
	}
	if exists {
		return nil, e.ErrDuplicateSlug
	}

	category := &models.EmployeeCategory{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slugValue,
		CompanyID: in.CompanyID,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// ListCategories returns the categories of the caller's companies.
func (s *ProfileService) ListCategories(ctx context.Context, caller *models.User) ([]models.EmployeeCategory, error) {
	return s.scope.Categories(ctx, caller)
}

// ListCustomers returns the customers created inside the caller's
// scope.
func (s *ProfileService) ListCustomers(ctx context.Context, caller *models.User) ([]models.CustomerProfile, error) {
	return s.scope.Customers(ctx, caller)
}

// ListManagers returns the manager profiles visible to the caller: a
// manager sees only its own profile, everyone else sees none.
func (s *ProfileService) ListManagers(ctx context.Context, caller *models.User) ([]models.ManagerProfile, error) {
	if caller == nil || caller.Role != models.RoleManager {
		return []models.ManagerProfile{}, nil
	}
	profile, err := s.repo.GetManagerProfileByUserID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return []models.ManagerProfile{}, nil
		}
		return nil, err
	}
	return []models.ManagerProfile{*profile}, nil
}

// GetManager fetches one manager profile.
func (s *ProfileService) GetManager(ctx context.Context, id uuid.UUID) (*models.ManagerProfile, error) {
	return s.repo.GetManagerProfile(ctx, id)
}

// DeleteManager removes a manager account unless it has created
// customers, in which case the protected relation refuses the delete.
func (s *ProfileService) DeleteManager(ctx context.Context, id uuid.UUID) error {
	profile, err := s.repo.GetManagerProfile(ctx, id)
	if err != nil {
		return err
	}
	has, err := s.repo.ManagerHasCustomers(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("failed to check created customers: %w", err)
	}
	if has {
		return fmt.Errorf("%w: manager has created customers", e.ErrProtected)
	}
	return s.repo.DeleteUser(ctx, profile.UserID)
}

// ListUsers returns the principals inside the caller's scope.
func (s *ProfileService) ListUsers(ctx context.Context, caller *models.User) ([]models.User, error) {
	return s.scope.Users(ctx, caller)
}

// GetUser fetches one scoped principal.
func (s *ProfileService) GetUser(ctx context.Context, caller *models.User, id uuid.UUID) (*models.User, error) {
	visible, err := s.userVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, e.ErrNotFound
	}
	return s.repo.GetUser(ctx, id)
}

// UpdateUser applies a partial update to a scoped principal. The role
// is immutable and not part of the update shape.
func (s *ProfileService) UpdateUser(ctx context.Context, caller *models.User, update *models.UserUpdate) (*models.User, error) {
	visible, err := s.userVisible(ctx, caller, update.ID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, e.ErrNotFound
	}
	if err := s.repo.UpdateUser(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.repo.GetUser(ctx, update.ID)
}

// DeleteUser removes a scoped principal; the dependent profile goes
// with it.
func (s *ProfileService) DeleteUser(ctx context.Context, caller *models.User, id uuid.UUID) error {
	visible, err := s.userVisible(ctx, caller, id)
	if err != nil {
		return err
	}
	if !visible {
		return e.ErrNotFound
	}
	return s.repo.DeleteUser(ctx, id)
}

func (s *ProfileService) userVisible(ctx context.Context, caller *models.User, id uuid.UUID) (bool, error) {
	users, err := s.scope.Users(ctx, caller)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// SetOnline updates the online flag of a principal. Last write wins.
func (s *ProfileService) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	return s.repo.SetUserOnline(ctx, userID, online)
}
