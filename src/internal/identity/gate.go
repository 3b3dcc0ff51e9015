// Package identity implements the Identity Gate: tenant authentication
// (credentials + origin) and user authentication (bearer token or
// declared external identity), the two orthogonal facts every
// tenant-scoped engine operation requires before it runs. Grounded on
// iliyamo-cinema-seat-reservation's internal/middleware/jwt.go (bearer
// parsing, HMAC method assertion) and internal/utils/password.go
// (bcrypt verification), generalized from echo middleware into a
// framework-agnostic gate the delivery layer's middleware wraps.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	domain_tenant "github.com/seatvault/reservation-engine/src/internal/domain/tenant"
	domain_user "github.com/seatvault/reservation-engine/src/internal/domain/user"

	"github.com/seatvault/reservation-engine/src/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	HeaderTenantID      = "x-tenant-id"
	HeaderTenantSecret  = "x-tenant-secret"
	HeaderExternalID    = "x-external-user-id"
	HeaderExternalEmail = "x-external-user-email"
	HeaderExternalName  = "x-external-user-name"
)

// ExternalUserFields is the shape of a body-declared external user,
// accepted as a third authentication mode identical in effect to the
// header-declared form.
type ExternalUserFields struct {
	ExternalID string `json:"externalUserId"`
	Email      string `json:"externalUserEmail"`
	Name       string `json:"externalUserName"`
}

// RequestContext carries the two facts the gate establishes, for the
// engine and delivery layer to consume downstream.
type RequestContext struct {
	Tenant *domain_tenant.Tenant
	User   *domain_user.User
}

// Gate authenticates tenants and users ahead of every engine operation.
type Gate struct {
	tenants         domain_tenant.Repository
	users           domain_user.Repository
	cache           *TenantCache
	userTokenSecret []byte
}

func New(tenants domain_tenant.Repository, users domain_user.Repository, cache *TenantCache, userTokenSecret string) *Gate {
	return &Gate{tenants: tenants, users: users, cache: cache, userTokenSecret: []byte(userTokenSecret)}
}

// AuthenticateTenant looks up the tenant by id, rejects missing/inactive
// tenants, verifies the secret against its stored hash, and checks the
// request origin against the tenant's allowed-origins set.
func (g *Gate) AuthenticateTenant(ctx context.Context, tenantID, secret, origin string) (*domain_tenant.Tenant, error) {
	if tenantID == "" || secret == "" {
		return nil, domain.NewAuthenticationError("missing tenant credentials")
	}

	tenant, err := g.cache.Get(ctx, tenantID, g.tenants.GetByID)
	if err != nil {
		if domain.Is(err, domain.CodeNotFound) {
			return nil, domain.NewAuthenticationError("unknown or inactive tenant")
		}
		return nil, err
	}
	if tenant == nil || !tenant.Active {
		return nil, domain.NewAuthenticationError("unknown or inactive tenant")
	}

	if bcrypt.CompareHashAndPassword([]byte(tenant.SecretHash), []byte(secret)) != nil {
		return nil, domain.NewAuthenticationError("invalid tenant secret")
	}

	if err := checkOrigin(tenant, origin); err != nil {
		return nil, err
	}

	return tenant, nil
}

func checkOrigin(tenant *domain_tenant.Tenant, origin string) error {
	if len(tenant.AllowedOrigins) == 0 {
		return nil
	}
	if origin == "" {
		return nil
	}

	host := originHost(origin)
	for _, allowed := range tenant.AllowedOrigins {
		if allowed == "*" {
			return nil
		}
		if allowed == host || strings.HasSuffix(host, "."+strings.TrimPrefix(allowed, "*.")) {
			return nil
		}
	}
	return domain.NewAuthorizationError("origin not permitted")
}

func originHost(origin string) string {
	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.IndexAny(host, "/:"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// AuthenticateUser tries, in order: a bearer token, header-declared
// external fields, and body-declared external fields. A malformed
// Authorization header is a hard AuthenticationError; it never falls
// through to the external-user paths.
func (g *Gate) AuthenticateUser(ctx context.Context, tenant *domain_tenant.Tenant, authHeader string, r *http.Request, body *ExternalUserFields) (*domain_user.User, error) {
	if authHeader != "" {
		return g.authenticateBearer(ctx, authHeader)
	}

	if externalID := r.Header.Get(HeaderExternalID); externalID != "" {
		return g.ensureExternalUser(ctx, tenant.ID, externalID, r.Header.Get(HeaderExternalEmail), r.Header.Get(HeaderExternalName))
	}

	if body != nil && body.ExternalID != "" {
		return g.ensureExternalUser(ctx, tenant.ID, body.ExternalID, body.Email, body.Name)
	}

	return nil, domain.NewAuthenticationError("no user credentials supplied")
}

func (g *Gate) authenticateBearer(ctx context.Context, authHeader string) (*domain_user.User, error) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, domain.NewAuthenticationError("malformed authorization header")
	}
	raw := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.userTokenSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.NewAuthenticationError("invalid or expired user token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.NewAuthenticationError("invalid token claims")
	}
	if claims["type"] != "user" {
		return nil, domain.NewAuthenticationError("invalid token type")
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return nil, domain.NewAuthenticationError("token missing userId claim")
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.NewAuthenticationError("user not found")
	}
	if !user.Active {
		return nil, domain.NewAuthenticationError("user is not active")
	}
	return user, nil
}

func (g *Gate) ensureExternalUser(ctx context.Context, tenantID, externalID, email, name string) (*domain_user.User, error) {
	id := domain_user.ExternalID(tenantID, externalID)
	user, err := g.users.EnsureExternal(ctx, id, email, name)
	if err != nil {
		return nil, domain.Wrap(err)
	}
	return user, nil
}
