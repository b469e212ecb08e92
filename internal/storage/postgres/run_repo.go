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

// RunRepository implements engine.RunStore with PostgreSQL.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a RunRepository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create persists a run together with its action rows.
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	model, err := toRunModel(run)
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	run.CreatedAt = model.CreatedAt
	run.UpdatedAt = model.UpdatedAt
	return nil
}

// Get retrieves a run with its actions in proposal order.
func (r *RunRepository) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Run, error) {
	var model RunModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(orgID)).
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("run_actions.seq ASC")
		}).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrNotFound
		}
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return toRunDomain(&model)
}

// Update writes the run status, counters, and every action outcome in one
// transaction.
func (r *RunRepository) Update(ctx context.Context, run *domain.Run) error {
	model, err := toRunModel(run)
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&RunModel{}).
			Scopes(TenantScope(run.OrgID)).
			Where("id = ?", run.ID).
			Updates(map[string]any{
				"status":            model.Status,
				"actions_succeeded": model.ActionsSucceeded,
				"actions_failed":    model.ActionsFailed,
			})
		if result.Error != nil {
			return fmt.Errorf("updating run: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return crm.ErrNotFound
		}
		for i := range model.Actions {
			a := &model.Actions[i]
			err := tx.Model(&RunActionModel{}).
				Where("id = ? AND run_id = ?", a.ID, a.RunID).
				Updates(map[string]any{
					"status":  a.Status,
					"message": a.Message,
				}).Error
			if err != nil {
				return fmt.Errorf("updating run action %d: %w", a.Seq, err)
			}
		}
		return nil
	})
}
