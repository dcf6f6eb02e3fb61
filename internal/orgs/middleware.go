package orgs

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/vecino-erp/vecino-erp/internal/shared"
)

// Middleware resolves the tenant for each request. It runs after the
// session middleware and before any data access: the selected organization
// comes from the session, is cross-checked against the mirrored org cookie,
// and the membership is re-validated against the store on every request
// rather than trusted from earlier requests.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireOrg installs the RequestContext or blocks the request. A missing
// selection blocks access outright; it never widens scope to all tenants.
func (m Middleware) RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			shared.RespondError(w, shared.ErrInvalidCredentials)
			return
		}
		userID, err := uuid.Parse(sess.User())
		if err != nil {
			shared.RespondError(w, shared.ErrInvalidCredentials)
			return
		}

		rawOrg := sess.Org()
		if rawOrg == "" {
			// Fall back to the mirrored cookie after e.g. a session rebuild.
			if cookie, err := r.Cookie(shared.OrgCookieName); err == nil {
				rawOrg = cookie.Value
			}
		}
		if rawOrg == "" {
			shared.RespondError(w, shared.ErrTenantScope)
			return
		}
		orgID, err := uuid.Parse(rawOrg)
		if err != nil {
			sess.SetOrg("")
			shared.RespondError(w, shared.ErrTenantScope)
			return
		}

		member, err := m.Service.Membership(r.Context(), orgID, userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("tenant check failed",
					slog.String("user", userID.String()),
					slog.String("org", orgID.String()),
					slog.Any("error", err))
			}
			sess.SetOrg("")
			shared.RespondError(w, shared.ErrTenantScope)
			return
		}

		rc := shared.RequestContext{
			UserID: userID,
			OrgID:  orgID,
			Role:   string(member.Role),
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithRequestContext(r.Context(), rc)))
	})
}
