package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionActive         SessionStatus = "active"
	SessionPaymentPending SessionStatus = "payment_pending"
	SessionCompleted      SessionStatus = "completed"
	SessionCancelled      SessionStatus = "cancelled"
)

// TableSession is one customer visit at a table.
type TableSession struct {
	ID            string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	TableID       string          `gorm:"type:varchar(36);not null;index" json:"table_id"`
	Table         *Table          `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table,omitempty"`
	CustomerName  string          `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerPhone *string         `gorm:"type:varchar(20)" json:"customer_phone,omitempty"`
	GuestCount    int             `gorm:"not null;default:1" json:"guest_count"`
	StartedAt     time.Time       `gorm:"not null;index" json:"started_at"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"total_amount"`
	Status        SessionStatus   `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

func (s *TableSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	return nil
}

func (s *TableSession) IsClosed() bool {
	return s.Status == SessionCompleted || s.Status == SessionCancelled
}
