package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"

	"staffbase/internal/profiles/db"
	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/events"
	"staffbase/internal/profiles/models"
)

type mockNotifier struct {
	mu       sync.Mutex
	produced []events.EventType
}

func (m *mockNotifier) Produce(eventType events.EventType, _ *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.produced = append(m.produced, eventType)
}

func (m *mockNotifier) last() events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.produced) == 0 {
		return ""
	}
	return m.produced[len(m.produced)-1]
}

func setupIssuer(t *testing.T) (*db.Repository, *Issuer, *mockNotifier) {
	repo, err := db.Open(sqlite.Open(":memory:"))
	require.NoError(t, err, "failed to open test database")

	notifier := &mockNotifier{}
	issuer := NewIssuer(repo, notifier, "test-secret", time.Hour, 24*time.Hour, zaptest.NewLogger(t))
	return repo, issuer, notifier
}

func createUser(t *testing.T, repo *db.Repository, username, password string, role models.Role) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// TestLoginManagerCompanyClaim verifies the token pair carries the
// manager's first administered company.
func TestLoginManagerCompanyClaim(t *testing.T) {
	repo, issuer, notifier := setupIssuer(t)
	ctx := context.Background()

	company := models.Company{ID: uuid.New(), Name: "Клиника"}
	require.NoError(t, repo.CreateCompany(ctx, &company))

	user := createUser(t, repo, "manager", "secret-password", models.RoleManager)
	profile := &models.ManagerProfile{ID: uuid.New(), UserID: user.ID}
	require.NoError(t, repo.CreateManagerProfile(ctx, profile))
	require.NoError(t, repo.AssignManagerCompanies(ctx, profile, []models.Company{company}))

	pair, err := issuer.Login(ctx, "manager", "secret-password")
	require.NoError(t, err, "Login should succeed")
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.Equal(t, int64(3600), pair.Lifetime)
	assert.Equal(t, user.ID, pair.UserID)
	assert.Equal(t, models.RoleManager, pair.UserType)
	require.NotNil(t, pair.CompanyID, "manager should resolve a company")
	assert.Equal(t, company.ID, *pair.CompanyID)
	assert.Equal(t, "Клиника", pair.CompanyName)

	assert.Equal(t, events.UserLoggedIn, notifier.last(), "login should publish a session event")
}

// TestLoginEmployeeCompanyClaim verifies the employee fallback in the
// company lookup.
func TestLoginEmployeeCompanyClaim(t *testing.T) {
	repo, issuer, _ := setupIssuer(t)
	ctx := context.Background()

	company := models.Company{ID: uuid.New(), Name: "Магазин"}
	require.NoError(t, repo.CreateCompany(ctx, &company))
	category := &models.EmployeeCategory{
		ID:        uuid.New(),
		Name:      "Продавцы",
		Slug:      "sellers",
		CompanyID: company.ID,
	}
	require.NoError(t, repo.CreateCategory(ctx, category))

	user := createUser(t, repo, "employee", "secret-password", models.RoleEmployee)
	require.NoError(t, repo.CreateEmployeeProfile(ctx, &models.EmployeeProfile{
		ID:         uuid.New(),
		UserID:     user.ID,
		CategoryID: category.ID,
		CompanyID:  company.ID,
	}))

	pair, err := issuer.Login(ctx, "employee", "secret-password")
	require.NoError(t, err)
	require.NotNil(t, pair.CompanyID, "employee should resolve its company")
	assert.Equal(t, company.ID, *pair.CompanyID)
	assert.Equal(t, "Магазин", pair.CompanyName)
}

// TestLoginPlaceholderCompany verifies principals without a resolvable
// company get the placeholder name and no company id.
func TestLoginPlaceholderCompany(t *testing.T) {
	repo, issuer, _ := setupIssuer(t)
	ctx := context.Background()

	createUser(t, repo, "customer", "secret-password", models.RoleCustomer)

	pair, err := issuer.Login(ctx, "customer", "secret-password")
	require.NoError(t, err)
	assert.Nil(t, pair.CompanyID, "no company should be resolved")
	assert.Equal(t, PlaceholderCompanyName, pair.CompanyName)
}

// TestLoginInvalidCredentials verifies wrong passwords, unknown
// usernames and inactive accounts are indistinguishable.
func TestLoginInvalidCredentials(t *testing.T) {
	repo, issuer, notifier := setupIssuer(t)
	ctx := context.Background()

	user := createUser(t, repo, "known", "secret-password", models.RoleManager)

	_, err := issuer.Login(ctx, "known", "wrong-password")
	assert.ErrorIs(t, err, e.ErrInvalidCredentials)

	_, err = issuer.Login(ctx, "unknown", "secret-password")
	assert.ErrorIs(t, err, e.ErrInvalidCredentials)

	inactive := false
	require.NoError(t, repo.UpdateUser(ctx, &models.UserUpdate{ID: user.ID, IsActive: &inactive}))
	_, err = issuer.Login(ctx, "known", "secret-password")
	assert.ErrorIs(t, err, e.ErrInvalidCredentials)

	assert.Empty(t, notifier.produced, "failed logins should publish nothing")
}

// TestRefresh verifies only refresh tokens renew the access token.
func TestRefresh(t *testing.T) {
	repo, issuer, _ := setupIssuer(t)
	ctx := context.Background()

	createUser(t, repo, "refresher", "secret-password", models.RoleManager)
	pair, err := issuer.Login(ctx, "refresher", "secret-password")
	require.NoError(t, err)

	result, err := issuer.Refresh(ctx, pair.Refresh)
	require.NoError(t, err, "Refresh with a refresh token should succeed")
	assert.NotEmpty(t, result.Access)
	assert.Equal(t, int64(3600), result.Lifetime)

	_, err = issuer.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, e.ErrUnauthenticated, "an access token must not refresh")

	_, err = issuer.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
}

// TestMiddleware verifies principal resolution for incoming requests.
func TestMiddleware(t *testing.T) {
	repo, issuer, _ := setupIssuer(t)
	ctx := context.Background()

	user := createUser(t, repo, "bearer", "secret-password", models.RoleManager)
	pair, err := issuer.Login(ctx, "bearer", "secret-password")
	require.NoError(t, err)

	var principal *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := issuer.Middleware(next)

	t.Run("valid access token", func(t *testing.T) {
		principal = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Access)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, principal, "principal should be resolved")
		assert.Equal(t, user.ID, principal.ID)
	})

	t.Run("no header passes through anonymously", func(t *testing.T) {
		principal = &models.User{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, principal, "request should proceed without a principal")
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Refresh)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
