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

// ContactRepository implements crm.ContactStore with PostgreSQL.
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a ContactRepository.
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create persists a new contact.
func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	model := toContactModel(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating contact: %w", err)
	}
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

// Get retrieves a contact by ID within the org.
func (r *ContactRepository) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Contact, error) {
	var model ContactModel
	err := r.db.WithContext(ctx).Scopes(TenantScope(orgID)).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrNotFound
		}
		return nil, fmt.Errorf("getting contact: %w", err)
	}
	return toContactDomain(&model), nil
}

// Update saves all fields of an existing contact.
func (r *ContactRepository) Update(ctx context.Context, c *domain.Contact) error {
	model := toContactModel(c)
	result := r.db.WithContext(ctx).Scopes(TenantScope(c.OrgID)).
		Where("id = ?", c.ID).
		Select("name", "email", "phone", "company", "notes", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return fmt.Errorf("updating contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return crm.ErrNotFound
	}
	return nil
}

// Delete removes a contact by ID within the org.
func (r *ContactRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Scopes(TenantScope(orgID)).Delete(&ContactModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return crm.ErrNotFound
	}
	return nil
}

// FindByName resolves a contact by case-insensitive substring match on name,
// most recently updated first.
func (r *ContactRepository) FindByName(ctx context.Context, orgID uuid.UUID, query string) (*domain.Contact, error) {
	var model ContactModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(orgID), fuzzyMatch("name", query)).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrNotFound
		}
		return nil, fmt.Errorf("finding contact by name: %w", err)
	}
	return toContactDomain(&model), nil
}

// Search returns contacts matching the query, most recently updated first.
func (r *ContactRepository) Search(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]domain.Contact, error) {
	if limit <= 0 {
		limit = crm.DefaultSearchLimit
	}
	var models []ContactModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(orgID), fuzzyMatch("name", query)).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("searching contacts: %w", err)
	}
	out := make([]domain.Contact, 0, len(models))
	for i := range models {
		out = append(out, *toContactDomain(&models[i]))
	}
	return out, nil
}
