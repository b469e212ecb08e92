package postgres

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrgModel maps to the "organizations" table.
type OrgModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null;uniqueIndex"`
	Slug      string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (OrgModel) TableName() string { return "organizations" }

// ContactModel maps to the "contacts" table.
type ContactModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null;index"`
	Email     string
	Phone     string
	Company   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (ContactModel) TableName() string { return "contacts" }

// DealModel maps to the "deals" table.
type DealModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ContactID *uuid.UUID `gorm:"type:uuid"`
	Title     string     `gorm:"not null;index"`
	Stage     string     `gorm:"not null;default:'lead'"`
	AmountUSD float64    `gorm:"type:numeric(14,2)"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (DealModel) TableName() string { return "deals" }

// TaskModel maps to the "tasks" table.
type TaskModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrgID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	ContactID   *uuid.UUID `gorm:"type:uuid"`
	Title       string     `gorm:"not null;index"`
	Notes       string
	DueAt       *time.Time `gorm:"index"`
	Done        bool       `gorm:"not null;default:false"`
	CompletedAt *time.Time
	RemindedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time `gorm:"index"`
}

func (TaskModel) TableName() string { return "tasks" }

// OutboundMessageModel maps to the "outbound_messages" table.
// No UpdatedAt or DeletedAt — the delivery audit log is append-only and immutable.
type OutboundMessageModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ContactID *uuid.UUID `gorm:"type:uuid"`
	Channel   string     `gorm:"not null"`
	Recipient string     `gorm:"not null"`
	Subject   string
	Body      string    `gorm:"not null"`
	Status    string    `gorm:"not null"`
	SentAt    *time.Time
	CreatedAt time.Time `gorm:"index"`
}

func (OutboundMessageModel) TableName() string { return "outbound_messages" }

// RunModel maps to the "runs" table.
type RunModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrgID            uuid.UUID `gorm:"type:uuid;not null;index"`
	Status           string    `gorm:"not null;index"`
	ActionsSucceeded int       `gorm:"not null;default:0"`
	ActionsFailed    int       `gorm:"not null;default:0"`
	Actions          []RunActionModel `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

func (RunModel) TableName() string { return "runs" }

// RunActionModel maps to the "run_actions" table. Params are kept verbatim
// so pending calls can be re-executed after approval.
type RunActionModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Seq      int       `gorm:"not null"`
	Name     string    `gorm:"not null"`
	Params   JSONB     `gorm:"type:jsonb;not null;default:'{}'"`
	RiskTier int       `gorm:"not null"`
	Status   string    `gorm:"not null"`
	Message  string
}

func (RunActionModel) TableName() string { return "run_actions" }

// JSONB is a json.RawMessage stored in a JSONB column (TEXT under SQLite).
type JSONB json.RawMessage
