package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
)

// TaskRepository implements crm.TaskStore with PostgreSQL.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create persists a new task.
func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	model := toTaskModel(t)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	t.CreatedAt = model.CreatedAt
	t.UpdatedAt = model.UpdatedAt
	return nil
}

// Get retrieves a task by ID within the org.
func (r *TaskRepository) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Task, error) {
	var model TaskModel
	err := r.db.WithContext(ctx).Scopes(TenantScope(orgID)).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrNotFound
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return toTaskDomain(&model), nil
}

// Update saves the mutable fields of an existing task. Done, CompletedAt and
// RemindedAt are included so completion can be reverted.
func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	model := toTaskModel(t)
	result := r.db.WithContext(ctx).Scopes(TenantScope(t.OrgID)).
		Where("id = ?", t.ID).
		Select("contact_id", "title", "notes", "due_at", "done", "completed_at", "reminded_at", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return fmt.Errorf("updating task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return crm.ErrNotFound
	}
	return nil
}

// Delete removes a task by ID within the org.
func (r *TaskRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Scopes(TenantScope(orgID)).Delete(&TaskModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return crm.ErrNotFound
	}
	return nil
}

// FindOpenByTitle resolves an open task by case-insensitive substring match
// on title, most recently updated first.
func (r *TaskRepository) FindOpenByTitle(ctx context.Context, orgID uuid.UUID, query string) (*domain.Task, error) {
	var model TaskModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(orgID), fuzzyMatch("title", query)).
		Where("done = ?", false).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrNotFound
		}
		return nil, fmt.Errorf("finding open task by title: %w", err)
	}
	return toTaskDomain(&model), nil
}

// Search returns tasks matching the query, most recently updated first.
// Completed tasks are excluded unless includeDone is set.
func (r *TaskRepository) Search(ctx context.Context, orgID uuid.UUID, query string, includeDone bool, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = crm.DefaultSearchLimit
	}
	q := r.db.WithContext(ctx).
		Scopes(TenantScope(orgID), fuzzyMatch("title", query))
	if !includeDone {
		q = q.Where("done = ?", false)
	}
	var models []TaskModel
	if err := q.Order("updated_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("searching tasks: %w", err)
	}
	out := make([]domain.Task, 0, len(models))
	for i := range models {
		out = append(out, *toTaskDomain(&models[i]))
	}
	return out, nil
}

// ListDueUnreminded returns open tasks across all orgs that are due at or
// before the given time and have no reminder stamp yet.
func (r *TaskRepository) ListDueUnreminded(ctx context.Context, before time.Time) ([]domain.Task, error) {
	var models []TaskModel
	err := r.db.WithContext(ctx).
		Where("done = ?", false).
		Where("due_at IS NOT NULL AND due_at <= ?", before).
		Where("reminded_at IS NULL").
		Order("due_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing due tasks: %w", err)
	}
	out := make([]domain.Task, 0, len(models))
	for i := range models {
		out = append(out, *toTaskDomain(&models[i]))
	}
	return out, nil
}

// MarkReminded stamps RemindedAt on the given tasks.
func (r *TaskRepository) MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&TaskModel{}).
		Where("id IN ?", ids).
		Update("reminded_at", at).Error
	if err != nil {
		return fmt.Errorf("marking tasks reminded: %w", err)
	}
	return nil
}
