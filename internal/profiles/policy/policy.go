// Package policy defines composable authorization predicates over a
// principal and a requested HTTP verb. Policies run before handler
// logic; a denial is an explicit error, never a silent filter.
package policy

import (
	"net/http"

	e "staffbase/internal/profiles/errors"
	"staffbase/internal/profiles/models"
)

// Predicate decides whether a principal may perform a verb. A nil
// principal means the request is unauthenticated.
type Predicate func(u *models.User, verb string) bool

// And requires every predicate to hold.
func And(preds ...Predicate) Predicate {
	return func(u *models.User, verb string) bool {
		for _, p := range preds {
			if !p(u, verb) {
				return false
			}
		}
		return true
	}
}

// Or requires at least one predicate to hold.
func Or(preds ...Predicate) Predicate {
	return func(u *models.User, verb string) bool {
		for _, p := range preds {
			if p(u, verb) {
				return true
			}
		}
		return false
	}
}

// IsAuthenticatedAndActive holds for active, authenticated principals.
func IsAuthenticatedAndActive(u *models.User, _ string) bool {
	return u != nil && u.IsActive
}

// HasRole holds for principals of the given role.
func HasRole(r models.Role) Predicate {
	return func(u *models.User, _ string) bool {
		return u != nil && u.Role == r
	}
}

// IsAdmin holds for site administrators.
func IsAdmin(u *models.User, _ string) bool {
	return u != nil && u.IsStaff
}

// IsSafeVerb holds for read-only verbs.
func IsSafeVerb(_ *models.User, verb string) bool {
	switch verb {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

var (
	// ManagerOnly gates manager-scoped CRUD surfaces.
	ManagerOnly = And(IsAuthenticatedAndActive, HasRole(models.RoleManager))
	// ManagerOrReadOnly lets managers write and everyone else read.
	ManagerOrReadOnly = And(IsAuthenticatedAndActive, Or(HasRole(models.RoleManager), IsSafeVerb))
	// AdminOnly gates site-administration surfaces.
	AdminOnly = And(IsAuthenticatedAndActive, IsAdmin)
	// AdminOrReadOnly lets administrators write and everyone else read.
	AdminOrReadOnly = And(IsAuthenticatedAndActive, Or(IsAdmin, IsSafeVerb))
)

// Check evaluates a predicate and translates a denial into the error
// taxonomy: unauthenticated principals get ErrUnauthenticated,
// authenticated ones ErrForbidden.
func Check(p Predicate, u *models.User, verb string) error {
	if p(u, verb) {
		return nil
	}
	if u == nil {
		return e.ErrUnauthenticated
	}
	return e.ErrForbidden
}
