package middleware

import (
	"net/http"

	"hospital-booking/pkg/jwt"
	"hospital-booking/pkg/response"
)

// RequireRole admits callers whose token role is one of allowedRoles.
// It must run after AuthMiddleware.Authenticate.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok || role == "" {
				response.Unauthorized(w, "Role information not found")
				return
			}
			if _, ok := allowed[role]; !ok {
				response.Forbidden(w, "Your role cannot access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards schedule and audit administration.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(jwt.RoleAdmin)(next)
}

// RequireStaff guards front desk operations; admins pass too.
func RequireStaff(next http.Handler) http.Handler {
	return RequireRole(jwt.RoleAdmin, jwt.RoleStaff)(next)
}
