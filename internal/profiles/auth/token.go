// Package auth issues and validates the service's JWT tokens and
// resolves the authenticated principal for incoming requests. Token
// cryptography stays inside golang-jwt; this package only builds and
// enriches claims.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/events"
	"staffbase/internal/profiles/models"
)

// PlaceholderCompanyName is attached to tokens of principals without a
// resolvable company.
const PlaceholderCompanyName = "Компания"

// Repository is the storage surface token issuance needs.
type Repository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetManagerProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.ManagerProfile, error)
	GetEmployeeProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.EmployeeProfile, error)
}

// SessionNotifier receives session lifecycle events. Notification is
// fire and forget; a lost event costs only a stale online flag.
type SessionNotifier interface {
	Produce(eventType events.EventType, user *models.User)
}

// TokenPair is the enriched login response: the token pair plus the
// principal and tenant context resolved at issuance time.
type TokenPair struct {
	Access      string      `json:"access"`
	Refresh     string      `json:"refresh"`
	Lifetime    int64       `json:"lifetime"`
	UserID      uuid.UUID   `json:"user_id"`
	Username    string      `json:"username"`
	UserType    models.Role `json:"user_type"`
	CompanyID   *uuid.UUID  `json:"company_id"`
	CompanyName string      `json:"company_name"`
}

// RefreshResult carries the renewed access token. Company context is
// not re-resolved on refresh.
type RefreshResult struct {
	Access   string `json:"access"`
	Lifetime int64  `json:"lifetime"`
}

// Issuer verifies credentials and issues signed token pairs.
type Issuer struct {
	repo       Repository
	notifier   SessionNotifier
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewIssuer constructs an Issuer. notifier may be nil when no session
// event sink is configured.
func NewIssuer(repo Repository, notifier SessionNotifier, secret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *Issuer {
	return &Issuer{
		repo:       repo,
		notifier:   notifier,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger.Named("token_issuer"),
	}
}

// Login verifies the credential and returns an enriched token pair.
// Unknown usernames and wrong passwords are indistinguishable to the
// caller.
func (i *Issuer) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := i.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, e.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, e.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, e.ErrInvalidCredentials
	}

	access, err := i.signToken(user, "access", i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := i.signToken(user, "refresh", i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	pair := &TokenPair{
		Access:      access,
		Refresh:     refresh,
		Lifetime:    int64(i.accessTTL.Seconds()),
		UserID:      user.ID,
		Username:    user.Username,
		UserType:    user.Role,
		CompanyName: PlaceholderCompanyName,
	}
	if company, ok := i.resolveCompany(ctx, user); ok {
		pair.CompanyID = &company.ID
		pair.CompanyName = company.Name
	}

	if i.notifier != nil {
		i.notifier.Produce(events.UserLoggedIn, user)
	}
	return pair, nil
}

// Refresh validates a refresh token and issues a new access token.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := i.parseToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrUnauthenticated, err)
	}
	if tokenType, _ := claims["token_type"].(string); tokenType != "refresh" {
		return nil, fmt.Errorf("%w: not a refresh token", e.ErrUnauthenticated)
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", e.ErrUnauthenticated)
	}

	user, err := i.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, e.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, e.ErrUnauthenticated
	}

	access, err := i.signToken(user, "access", i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return &RefreshResult{
		Access:   access,
		Lifetime: int64(i.accessTTL.Seconds()),
	}, nil
}

// resolveCompany looks up the principal's company context in priority
// order: first company of a manager profile, then the single company
// of an employee profile. The missing-company fallback is the caller's
// explicit final branch, not a swallowed error.
func (i *Issuer) resolveCompany(ctx context.Context, user *models.User) (*models.Company, bool) {
	manager, err := i.repo.GetManagerProfileByUserID(ctx, user.ID)
	if err == nil && len(manager.Companies) > 0 {
		return &manager.Companies[0], true
	}
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		i.logger.Warn("failed to resolve manager profile for token claims",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
		)
	}

	employee, err := i.repo.GetEmployeeProfileByUserID(ctx, user.ID)
	if err == nil {
		return &employee.Company, true
	}
	if !errors.Is(err, e.ErrNotFound) {
		i.logger.Warn("failed to resolve employee profile for token claims",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
		)
	}
	return nil, false
}

func (i *Issuer) signToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        user.ID.String(),
		"username":   user.Username,
		"user_type":  int(user.Role),
		"token_type": tokenType,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// parseToken checks the token signature and returns its claims.
func (i *Issuer) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token claims")
}
