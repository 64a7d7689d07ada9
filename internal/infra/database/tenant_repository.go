package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type TenantRepository struct {
	DB *sql.DB
}

func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{DB: db}
}

const tenantColumns = `id, COALESCE(owner_name, ''), slug, COALESCE(subscription_plan, ''), subscription_status, COALESCE(email_signature, ''), created_at`

func (r *TenantRepository) FindByID(ctx context.Context, id string) (*entity.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tribes WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

func (r *TenantRepository) FindBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tribes WHERE slug = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, strings.ToLower(slug)))
}

func (r *TenantRepository) scanOne(row *sql.Row) (*entity.Tenant, error) {
	var t entity.Tenant
	err := row.Scan(
		&t.ID,
		&t.OwnerName,
		&t.Slug,
		&t.SubscriptionPlan,
		&t.SubscriptionStatus,
		&t.EmailSignature,
		&t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tribe: %w", err)
	}
	return &t, nil
}
