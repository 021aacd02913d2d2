package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"

	"staffbase/internal/profiles/auth"
	"staffbase/internal/profiles/controller"
	"staffbase/internal/profiles/db"
	"staffbase/internal/profiles/events"
	"staffbase/internal/profiles/models"
	"staffbase/internal/profiles/scope"
)

type noopProducer struct{}

func (noopProducer) Produce(events.EventType, *models.User) {}

type testEnv struct {
	repo   *db.Repository
	server *httptest.Server
}

func setupEnv(t *testing.T) *testEnv {
	repo, err := db.Open(sqlite.Open(":memory:"))
	require.NoError(t, err, "failed to open test database")

	logger := zaptest.NewLogger(t)
	service := controller.NewProfileService(repo, scope.NewEngine(repo, logger), noopProducer{}, logger)
	issuer := auth.NewIssuer(repo, nil, "test-secret", time.Hour, 24*time.Hour, logger)

	handler := NewProfileHandler(service, issuer, logger)
	server := httptest.NewServer(handler.Routes(issuer.Middleware))
	t.Cleanup(server.Close)

	return &testEnv{repo: repo, server: server}
}

// seedUser stores a principal with a hashed credential.
func (env *testEnv) seedUser(t *testing.T, username string, role models.Role, staff bool) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsStaff:      staff,
		IsActive:     true,
	}
	require.NoError(t, env.repo.CreateUser(context.Background(), user))
	return user
}

func (env *testEnv) seedCompany(t *testing.T, name string) models.Company {
	company := models.Company{ID: uuid.New(), Name: name}
	require.NoError(t, env.repo.CreateCompany(context.Background(), &company))
	return company
}

// login obtains an access token through the token endpoint.
func (env *testEnv) login(t *testing.T, username string) string {
	status, body := env.request(t, http.MethodPost, "/api/token/", "", map[string]string{
		"username": username,
		"password": "secret-password",
	})
	require.Equal(t, http.StatusOK, status, "login should succeed: %s", body)

	var pair struct {
		Access string `json:"access"`
	}
	require.NoError(t, json.Unmarshal(body, &pair))
	require.NotEmpty(t, pair.Access)
	return pair.Access
}

func (env *testEnv) request(t *testing.T, method, path, token string, payload interface{}) (int, []byte) {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, env.server.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

// TestRouteAuthorization verifies policy enforcement per surface.
func TestRouteAuthorization(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "employee", models.RoleEmployee, false)
	env.seedUser(t, "manager", models.RoleManager, false)
	employeeToken := env.login(t, "employee")
	managerToken := env.login(t, "manager")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous listing denied", http.MethodGet, "/api/employees/", "", http.StatusUnauthorized},
		{"employee denied on manager-only listing", http.MethodGet, "/api/employees/", employeeToken, http.StatusForbidden},
		{"employee may read categories", http.MethodGet, "/api/employees/category/", employeeToken, http.StatusOK},
		{"employee may not create categories", http.MethodPost, "/api/employees/category/", employeeToken, http.StatusForbidden},
		{"manager may list employees", http.MethodGet, "/api/employees/", managerToken, http.StatusOK},
		{"manager denied on admin surface", http.MethodGet, "/api/managers/", managerToken, http.StatusForbidden},
		{"anonymous denied on customers", http.MethodGet, "/api/customers/", "", http.StatusUnauthorized},
		{"employee denied on users", http.MethodGet, "/api/users/", employeeToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.request(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, status)
		})
	}
}

// TestTokenEndpoints verifies the login and refresh flows.
func TestTokenEndpoints(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "manager", models.RoleManager, false)

	status, _ := env.request(t, http.MethodPost, "/api/token/", "", map[string]string{
		"username": "manager",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status, "wrong password should be rejected")

	status, body := env.request(t, http.MethodPost, "/api/token/", "", map[string]string{
		"username": "manager",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusOK, status)

	var pair struct {
		Refresh     string `json:"refresh"`
		CompanyName string `json:"company_name"`
	}
	require.NoError(t, json.Unmarshal(body, &pair))
	assert.Equal(t, auth.PlaceholderCompanyName, pair.CompanyName,
		"manager without profile should get the placeholder company")

	status, body = env.request(t, http.MethodPost, "/api/token/refresh/", "", map[string]string{
		"refresh": pair.Refresh,
	})
	require.Equal(t, http.StatusOK, status)

	var refreshed struct {
		Access   string `json:"access"`
		Lifetime int64  `json:"lifetime"`
	}
	require.NoError(t, json.Unmarshal(body, &refreshed))
	assert.NotEmpty(t, refreshed.Access)
	assert.Equal(t, int64(3600), refreshed.Lifetime)
}

// TestProvisioningScenario walks the whole surface: an administrator
// creates a manager, the manager builds a category and an employee and
// reads the salary view; a foreign manager sees none of it.
func TestProvisioningScenario(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "admin", models.RoleManager, true)
	company := env.seedCompany(t, "Клиника")
	adminToken := env.login(t, "admin")

	// Administrator provisions the manager.
	status, body := env.request(t, http.MethodPost, "/api/managers/", adminToken, map[string]interface{}{
		"user": map[string]interface{}{
			"username": "chief",
			"password": "secret-password",
		},
		"companies": []string{company.ID.String()},
	})
	require.Equal(t, http.StatusCreated, status, "manager creation should succeed: %s", body)

	var manager struct {
		ID        uuid.UUID        `json:"id"`
		Companies []models.Company `json:"companies"`
	}
	require.NoError(t, json.Unmarshal(body, &manager))
	require.Len(t, manager.Companies, 1)

	managerToken := env.login(t, "chief")

	// Manager creates a category in its company.
	status, body = env.request(t, http.MethodPost, "/api/employees/category/", managerToken, map[string]interface{}{
		"name":    "Врачи",
		"company": company.ID.String(),
	})
	require.Equal(t, http.StatusCreated, status, "category creation should succeed: %s", body)

	var category struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &category))

	// Duplicate category name in the same company collides.
	status, _ = env.request(t, http.MethodPost, "/api/employees/category/", managerToken, map[string]interface{}{
		"name":    "Врачи",
		"company": company.ID.String(),
	})
	assert.Equal(t, http.StatusConflict, status, "duplicate slug should map to conflict")

	// Manager provisions an employee with schedule and salary.
	status, body = env.request(t, http.MethodPost, "/api/employees/add/", managerToken, map[string]interface{}{
		"user": map[string]interface{}{
			"username": "doctor",
			"password": "secret-password",
		},
		"category": category.ID.String(),
		"company":  company.ID.String(),
		"work_schedule": []map[string]interface{}{
			{"day_of_the_week": 1, "working_hours": 8, "day_type": 1},
		},
		"salary": map[string]interface{}{
			"salary":               1000,
			"percentage_of_income": 10,
		},
	})
	require.Equal(t, http.StatusCreated, status, "employee creation should succeed: %s", body)

	var employee struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &employee))

	// The scoped listing contains the new employee.
	status, body = env.request(t, http.MethodGet, "/api/employees/", managerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var employees []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &employees))
	assert.Len(t, employees, 1)

	// Salary view over stored events.
	require.NoError(t, env.repo.CreateEvent(context.Background(), &models.Event{
		ID:           uuid.New(),
		EmployeeID:   employee.ID,
		CompanyID:    company.ID,
		ServiceName:  "Приём",
		ServicePrice: 3000,
		ScheduledAt:  time.Now(),
	}))

	status, body = env.request(t, http.MethodGet, fmt.Sprintf("/api/employees/%s/salary/", employee.ID), managerToken, nil)
	require.Equal(t, http.StatusOK, status, "salary view should succeed: %s", body)
	var salary map[string]float64
	require.NoError(t, json.Unmarshal(body, &salary))
	assert.Equal(t, 1300.0, salary["employee_salary"], "10% of 3000 plus base 1000")

	// A manager of another tenant sees nothing.
	env.seedUser(t, "foreign", models.RoleManager, false)
	foreignToken := env.login(t, "foreign")

	status, body = env.request(t, http.MethodGet, "/api/employees/", foreignToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &employees))
	assert.Empty(t, employees, "foreign manager should see no employees")

	status, _ = env.request(t, http.MethodGet, fmt.Sprintf("/api/employees/%s/", employee.ID), foreignToken, nil)
	assert.Equal(t, http.StatusNotFound, status, "foreign employee should read as missing")
}

// TestValidationErrorShape verifies field errors surface as bad
// requests naming the field.
func TestValidationErrorShape(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "manager", models.RoleManager, false)
	token := env.login(t, "manager")

	status, body := env.request(t, http.MethodPost, "/api/customers/add/", token, map[string]interface{}{
		"user": map[string]interface{}{
			"username": "client",
			"password": "short",
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Contains(t, fields, "password", "response should name the offending field")
}
