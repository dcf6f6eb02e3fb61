package rbac

import (
	"log/slog"
	"net/http"

	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Middleware wires permission checks for HTTP handlers. It runs after the
// tenant middleware, which installs the RequestContext with the member's
// role for the selected organization.
type Middleware struct {
	Logger *slog.Logger
}

// Require ensures the current member's role grants the permission.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc, ok := shared.RequestContextFromContext(r.Context())
			if !ok {
				shared.RespondError(w, shared.ErrTenantScope)
				return
			}
			if !Can(Role(rc.Role), perm) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.String("user", rc.UserID.String()),
						slog.String("org", rc.OrgID.String()),
						slog.String("role", rc.Role),
						slog.String("permission", string(perm)))
				}
				shared.RespondError(w, shared.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
