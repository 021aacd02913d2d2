package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"staffbase/internal/profiles/auth"
	"staffbase/internal/profiles/controller"
	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/models"
	"staffbase/internal/profiles/policy"
)

// Controller defines the business logic interface the HTTP handlers
// invoke.
type Controller interface {
	CreateManager(ctx context.Context, in *controller.CreateManagerInput) (*models.ManagerProfile, error)
	CreateEmployee(ctx context.Context, caller *models.User, in *controller.CreateEmployeeInput) (*models.EmployeeProfile, error)
	CreateCustomer(ctx context.Context, caller *models.User, in *controller.CreateCustomerInput) (*models.CustomerProfile, error)
	ListEmployees(ctx context.Context, caller *models.User) ([]models.EmployeeProfile, error)
	GetEmployee(ctx context.Context, caller *models.User, id uuid.UUID) (*models.EmployeeProfile, error)
	UpdateEmployee(ctx context.Context, caller *models.User, update *models.EmployeeUpdate) (*models.EmployeeProfile, error)
	DeleteEmployee(ctx context.Context, caller *models.User, id uuid.UUID) error
	EmployeeIncome(ctx context.Context, caller *models.User, id uuid.UUID) (float64, error)
	EmployeeEvents(ctx context.Context, caller *models.User) ([]controller.EmployeeEvents, error)
	CreateCategory(ctx context.Context, caller *models.User, in *controller.CreateCategoryInput) (*models.EmployeeCategory, error)
	ListCategories(ctx context.Context, caller *models.User) ([]models.EmployeeCategory, error)
	ListCustomers(ctx context.Context, caller *models.User) ([]models.CustomerProfile, error)
	ListManagers(ctx context.Context, caller *models.User) ([]models.ManagerProfile, error)
	GetManager(ctx context.Context, id uuid.UUID) (*models.ManagerProfile, error)
	DeleteManager(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, caller *models.User) ([]models.User, error)
	GetUser(ctx context.Context, caller *models.User, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, caller *models.User, update *models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, caller *models.User, id uuid.UUID) error
}

// TokenIssuer is the authentication surface of the token endpoints.
type TokenIssuer interface {
	Login(ctx context.Context, username, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.RefreshResult, error)
}

// ProfileHandler maps HTTP requests onto the Controller.
type ProfileHandler struct {
	service Controller
	tokens  TokenIssuer
	logger  *zap.Logger
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(service Controller, tokens TokenIssuer, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		tokens:  tokens,
		logger:  logger.Named("http_handler"),
	}
}

// Routes builds the router. authMiddleware resolves the principal for
// every request; policy checks gate each surface.
func (h *ProfileHandler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/api/token/", h.obtainToken)
	r.Post("/api/token/refresh/", h.refreshToken)

	r.Route("/api/employees", func(r chi.Router) {
		r.With(h.require(policy.ManagerOnly)).Get("/", h.listEmployees)
		r.With(h.require(policy.ManagerOnly)).Post("/add/", h.createEmployee)
		r.With(h.require(policy.ManagerOnly)).Get("/events/", h.listEmployeeEvents)

		r.Route("/category", func(r chi.Router) {
			r.Use(h.require(policy.ManagerOrReadOnly))
			r.Get("/", h.listCategories)
			r.Post("/", h.createCategory)
		})

		r.Route("/{id}", func(r chi.Router) {
			r.With(h.require(policy.ManagerOnly)).Get("/salary/", h.employeeSalary)
			r.With(h.require(policy.ManagerOrReadOnly)).Get("/", h.getEmployee)
			r.With(h.require(policy.ManagerOrReadOnly)).Put("/", h.updateEmployee)
			r.With(h.require(policy.ManagerOrReadOnly)).Patch("/", h.updateEmployee)
			r.With(h.require(policy.ManagerOrReadOnly)).Delete("/", h.deleteEmployee)
		})
	})

	r.Route("/api/customers", func(r chi.Router) {
		r.Use(h.require(policy.ManagerOnly))
		r.Get("/", h.listCustomers)
		r.Post("/add/", h.createCustomer)
	})

	r.Route("/api/managers", func(r chi.Router) {
		r.Use(h.require(policy.AdminOnly))
		r.Get("/", h.listManagers)
		r.Post("/", h.createManager)
		r.Get("/{id}/", h.getManager)
		r.Delete("/{id}/", h.deleteManager)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(h.require(policy.ManagerOnly))
		r.Get("/", h.listUsers)
		r.Get("/{id}/", h.getUser)
		r.Patch("/{id}/", h.updateUser)
		r.Delete("/{id}/", h.deleteUser)
	})

	return r
}

func (h *ProfileHandler) require(p policy.Predicate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if err := policy.Check(p, principal, r.Method); err != nil {
				h.writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- token endpoints ---

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *ProfileHandler) obtainToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.Field("body", "malformed JSON"))
		return
	}
	pair, err := h.tokens.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *ProfileHandler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.Field("body", "malformed JSON"))
		return
	}
	result, err := h.tokens.Refresh(r.Context(), req.Refresh)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// --- employees ---

func (h *ProfileHandler) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, employees)
}

func (h *ProfileHandler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in controller.CreateEmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, e.Field("body", "malformed JSON"))
		return
	}
	employee, err := h.service.CreateEmployee(r.Context(), auth.PrincipalFromContext(r.Context()), &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, employee)
}

func (h *ProfileHandler) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	employee, err := h.service.GetEmployee(r.Context(), auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, employee)
}

type employeeUpdateRequest struct {
	CategoryID *uuid.UUID `json:"category"`
	CompanyID  *uuid.UUID `json:"company"`
}

func (h *ProfileHandler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req employeeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.Field("body", "malformed JSON"))
		return
	}
	employee, err := h.service.UpdateEmployee(r.Context(), auth.PrincipalFromContext(r.Context()), &models.EmployeeUpdate{
		ID:         id,
		CategoryID: req.CategoryID,
		CompanyID:  req.CompanyID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, employee)
}

func (h *ProfileHandler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.DeleteEmployee(r.Context(), auth.PrincipalFromContext(r.Context()), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) employeeSalary(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	income, err := h.service.EmployeeIncome(r.Context(), auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]float64{"employee_salary": income})
}

func (h *ProfileHandler) listEmployeeEvents(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.EmployeeEvents(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// --- categories ---

func (h *ProfileHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, categories)
}

func (h *ProfileHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in controller.CreateCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, e.Field("body", "malformed JSON"))
		return
	}
	category, err := h.service.CreateCategory(r.Context(), auth.PrincipalFromContext(r.Context()), &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, category)
}

// --- customers ---

func (h *ProfileHandler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customers)
}

func (h *ProfileHandler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in controller.CreateCustomerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, e.Field("body", "malformed JSON"))
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), auth.PrincipalFromContext(r.Context()), &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, customer)
}

// --- managers ---

func (h *ProfileHandler) listManagers(w http.ResponseWriter, r *http.Request) {
	managers, err := h.service.ListManagers(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, managers)
}

func (h *ProfileHandler) createManager(w http.ResponseWriter, r *http.Request) {
	var in controller.CreateManagerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, e.Field("body", "malformed JSON"))
		return
	}
	manager, err := h.service.CreateManager(r.Context(), &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, manager)
}

func (h *ProfileHandler) getManager(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	manager, err := h.service.GetManager(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, manager)
}

func (h *ProfileHandler) deleteManager(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.DeleteManager(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- users ---

func (h *ProfileHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *ProfileHandler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

type userUpdateRequest struct {
	Email      *string        `json:"email"`
	FirstName  *string        `json:"first_name"`
	LastName   *string        `json:"last_name"`
	MiddleName *string        `json:"middle_name"`
	Gender     *models.Gender `json:"gender"`
	Phone      *string        `json:"phone"`
	Avatar     *string        `json:"avatar"`
	IsActive   *bool          `json:"is_active"`
}

func (h *ProfileHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.Field("body", "malformed JSON"))
		return
	}
	user, err := h.service.UpdateUser(r.Context(), auth.PrincipalFromContext(r.Context()), &models.UserUpdate{
		ID:         id,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		Gender:     req.Gender,
		Phone:      req.Phone,
		Avatar:     req.Avatar,
		IsActive:   req.IsActive,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.urlID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.DeleteUser(r.Context(), auth.PrincipalFromContext(r.Context()), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func (h *ProfileHandler) urlID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, e.Field("id", "must be a valid UUID")
	}
	return id, nil
}

func (h *ProfileHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError translates the error taxonomy into HTTP statuses. A
// FieldError carries its field name into the response body.
func (h *ProfileHandler) writeError(w http.ResponseWriter, err error) {
	var fieldErr *e.FieldError
	if errors.As(err, &fieldErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{fieldErr.Field: fieldErr.Reason})
		return
	}

	var status int
	switch {
	case errors.Is(err, e.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, e.ErrUnauthenticated), errors.Is(err, e.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, e.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, e.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, e.ErrProtected), errors.Is(err, e.ErrDuplicateSlug), errors.Is(err, e.ErrDuplicateUsername):
		status = http.StatusConflict
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal server error"})
		return
	}
	h.writeJSON(w, status, map[string]string{"detail": err.Error()})
}
