package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
)

// DealRepository implements crm.DealStore with PostgreSQL.
type DealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a DealRepository.
func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// Create persists a new deal.
func (r *DealRepository) Create(ctx context.Context, d *domain.Deal) error {
	model := toDealModel(d)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating deal: %w", err)
	}
	d.CreatedAt = model.CreatedAt
	d.UpdatedAt = model.UpdatedAt
	return nil
}

// Get retrieves a deal by ID within the org.
func (r *DealRepository) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Deal, error) {
	var model DealModel
	err := r.db.WithContext(ctx).Scopes(TenantScope(orgID)).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrNotFound
		}
		return nil, fmt.Errorf("getting deal: %w", err)
	}
	return toDealDomain(&model), nil
}

// Update saves the mutable fields of an existing deal.
func (r *DealRepository) Update(ctx context.Context, d *domain.Deal) error {
	model := toDealModel(d)
	result := r.db.WithContext(ctx).Scopes(TenantScope(d.OrgID)).
		Where("id = ?", d.ID).
		Select("contact_id", "title", "stage", "amount_usd", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return fmt.Errorf("updating deal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return crm.ErrNotFound
	}
	return nil
}

// Delete removes a deal by ID within the org.
func (r *DealRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Scopes(TenantScope(orgID)).Delete(&DealModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting deal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return crm.ErrNotFound
	}
	return nil
}

// FindByTitle resolves a deal by case-insensitive substring match on title,
// most recently updated first.
func (r *DealRepository) FindByTitle(ctx context.Context, orgID uuid.UUID, query string) (*domain.Deal, error) {
	var model DealModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(orgID), fuzzyMatch("title", query)).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrNotFound
		}
		return nil, fmt.Errorf("finding deal by title: %w", err)
	}
	return toDealDomain(&model), nil
}

// Search returns deals matching the query, most recently updated first.
func (r *DealRepository) Search(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]domain.Deal, error) {
	if limit <= 0 {
		limit = crm.DefaultSearchLimit
	}
	var models []DealModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(orgID), fuzzyMatch("title", query)).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("searching deals: %w", err)
	}
	out := make([]domain.Deal, 0, len(models))
	for i := range models {
		out = append(out, *toDealDomain(&models[i]))
	}
	return out, nil
}
