// Package domain_user defines the User entity, scoped to a shared
// identity pool but attributed per reservation to exactly one tenant.
package domain_user

import (
	"context"
	"fmt"
	"time"
)

// User is identified by an opaque UserID, which for externally declared
// users is the namespaced form "ext:{tenantId}:{externalId}" so that
// two tenants' external ids can never collide in Reservation/Booking rows.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	External  bool      `json:"external" db:"external"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ExternalID synthesizes the namespaced identity for an external user
// declared via headers or request body, per the Design Notes'
// "shared external-user identity" re-architecture.
func ExternalID(tenantID, externalID string) string {
	return fmt.Sprintf("ext:%s:%s", tenantID, externalID)
}

// Repository provides reads for internally registered users and an
// upsert path so synthesized external identities leave an audit trail.
// Signup/login issuance itself is an external collaborator.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	EnsureExternal(ctx context.Context, id, email, name string) (*User, error)
}
