// Package domain_tenant defines the Tenant entity: a first-class caller
// (frontend application) with its own credentials and isolated data scope.
package domain_tenant

import (
	"context"
	"time"
)

// Tenant is identified by an opaque TenantID. A disabled Tenant causes
// every tenant-scoped operation to fail with an authentication error.
type Tenant struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	DomainTag      string    `json:"domain_tag" db:"domain_tag"`
	SecretHash     string    `json:"-" db:"secret_hash"`
	AllowedOrigins []string  `json:"allowed_origins" db:"-"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Repository provides indexed reads for tenants. Tenant lifecycle
// (create/update/delete) is owned by the admin app, an external
// collaborator this module only consumes as a reader.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
}
