package repository_tenant

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seatvault/reservation-engine/src/internal/domain"
	domain_tenant "github.com/seatvault/reservation-engine/src/internal/domain/tenant"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresTenantRepository struct {
	db *sqlx.DB
}

// NewPostgresTenantRepository creates a new PostgreSQL tenant repository.
func NewPostgresTenantRepository(db *sqlx.DB) *postgresTenantRepository {
	return &postgresTenantRepository{db: db}
}

type tenantRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	DomainTag      string         `db:"domain_tag"`
	SecretHash     string         `db:"secret_hash"`
	AllowedOrigins pq.StringArray `db:"allowed_origins"`
	Active         bool           `db:"active"`
	CreatedAt      sql.NullTime   `db:"created_at"`
	UpdatedAt      sql.NullTime   `db:"updated_at"`
}

func (row tenantRow) toDomain() *domain_tenant.Tenant {
	return &domain_tenant.Tenant{
		ID:             row.ID,
		Name:           row.Name,
		DomainTag:      row.DomainTag,
		SecretHash:     row.SecretHash,
		AllowedOrigins: []string(row.AllowedOrigins),
		Active:         row.Active,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}

// GetByID retrieves a tenant by id.
func (r *postgresTenantRepository) GetByID(ctx context.Context, id string) (*domain_tenant.Tenant, error) {
	query := `
		SELECT id, name, domain_tag, secret_hash, allowed_origins, active, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	var row tenantRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("tenant not found")
		}
		return nil, err
	}
	return row.toDomain(), nil
}
