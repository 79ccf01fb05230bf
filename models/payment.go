package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentCash         = "cash"
	PaymentCard         = "card"
	PaymentMobileMoney  = "mobile_money"
	PaymentBankTransfer = "bank_transfer"
)

// Payment records a settlement captured when a session ends. No gateway is
// involved.
type Payment struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID string          `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Session   *TableSession   `gorm:"foreignKey:SessionID;references:ID" json:"-"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(20);not null" json:"method"`
	Status    string          `gorm:"type:varchar(20);not null;default:'completed'" json:"status"`
	Reference string          `gorm:"type:varchar(100)" json:"reference,omitempty"`
	PaidAt    time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentBankTransfer:
		return true
	}
	return false
}
