package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	RoleSenior    = "senior"
	RoleCaregiver = "caregiver"
	RoleAdmin     = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleSenior, RoleCaregiver, RoleAdmin:
		return true
	}
	return false
}

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

func HasRole(ctx context.Context, role string) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

func IsAdmin(ctx context.Context) bool {
	return HasRole(ctx, RoleAdmin)
}

func isSelf(ctx context.Context, userID uuid.UUID) bool {
	return UserIDFromContext(ctx) == userID.String()
}

// CanReadUser allows the user themselves, any caregiver and admins.
func CanReadUser(ctx context.Context, userID uuid.UUID) bool {
	return isSelf(ctx, userID) || HasRole(ctx, RoleCaregiver) || IsAdmin(ctx)
}

// CanWriteUser allows only the user themselves and admins.
func CanWriteUser(ctx context.Context, userID uuid.UUID) bool {
	return isSelf(ctx, userID) || IsAdmin(ctx)
}

// RequireRead returns a 403 HTTP error when the caller may not read userID's data.
func RequireRead(ctx context.Context, userID uuid.UUID) error {
	if !CanReadUser(ctx, userID) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to access this user's data")
	}
	return nil
}

// RequireWrite returns a 403 HTTP error when the caller may not modify userID's data.
func RequireWrite(ctx context.Context, userID uuid.UUID) error {
	if !CanWriteUser(ctx, userID) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to modify this user's data")
	}
	return nil
}
