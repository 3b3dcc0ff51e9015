package middlewares

import (
	"context"
	"net/http"

	domain_tenant "github.com/seatvault/reservation-engine/src/internal/domain/tenant"
	"github.com/seatvault/reservation-engine/src/internal/identity"
)

type contextKey string

const tenantContextKey contextKey = "tenant"

// Tenant wraps the tenant half of the Identity Gate into the HTTP
// pipeline: it authenticates x-tenant-id/x-tenant-secret/origin and
// stores the resulting tenant on the request context. User
// authentication happens per-controller (via AuthenticateUser below)
// rather than here, because the external-user fallback's third mode
// (spec.md §4.3) is declared in the request body, whose shape only the
// controller knows how to decode.
func Tenant(gate *identity.Gate, writeError func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := r.Header.Get(identity.HeaderTenantID)
			tenantSecret := r.Header.Get(identity.HeaderTenantSecret)
			origin := r.Header.Get("Origin")

			tenant, err := gate.AuthenticateTenant(r.Context(), tenantID, tenantSecret, origin)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext retrieves the tenant the Tenant middleware
// authenticated, or nil if it never ran.
func TenantFromContext(ctx context.Context) *domain_tenant.Tenant {
	tenant, _ := ctx.Value(tenantContextKey).(*domain_tenant.Tenant)
	return tenant
}

// AuthenticateUser runs the Identity Gate's user-authentication modes
// for the already-tenant-authenticated request, trying the bearer
// token and header-declared external user before falling back to
// body, which the caller supplies already decoded (or nil if the
// route has no request body to declare one in).
func AuthenticateUser(gate *identity.Gate, r *http.Request, body *identity.ExternalUserFields) (*identity.RequestContext, error) {
	tenant := TenantFromContext(r.Context())
	user, err := gate.AuthenticateUser(r.Context(), tenant, r.Header.Get("Authorization"), r, body)
	if err != nil {
		return nil, err
	}
	return &identity.RequestContext{Tenant: tenant, User: user}, nil
}
