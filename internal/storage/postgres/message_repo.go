package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
)

// MessageRepository implements crm.MessageStore with PostgreSQL.
// The outbound message log is append-only.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a MessageRepository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends an outbound message record.
func (r *MessageRepository) Create(ctx context.Context, m *domain.OutboundMessage) error {
	model := toMessageModel(m)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("recording outbound message: %w", err)
	}
	m.CreatedAt = model.CreatedAt
	return nil
}

// List returns the most recent outbound messages for the org.
func (r *MessageRepository) List(ctx context.Context, orgID uuid.UUID, limit int) ([]domain.OutboundMessage, error) {
	if limit <= 0 {
		limit = crm.DefaultSearchLimit
	}
	var models []OutboundMessageModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(orgID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing outbound messages: %w", err)
	}
	out := make([]domain.OutboundMessage, 0, len(models))
	for i := range models {
		out = append(out, *toMessageDomain(&models[i]))
	}
	return out, nil
}
