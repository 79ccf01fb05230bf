package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderPreparing,
	OrderReady,
	OrderServed,
	OrderCompleted,
	OrderCancelled,
}

func (s OrderStatus) IsValid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Order struct {
	ID                  string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderNumber         string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	TableID             string          `gorm:"type:varchar(36);not null;index" json:"table_id"`
	Table               *Table          `gorm:"foreignKey:TableID;references:ID" json:"table,omitempty"`
	SessionID           string          `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Session             *TableSession   `gorm:"foreignKey:SessionID;references:ID" json:"session,omitempty"`
	WaiterID            *string         `gorm:"type:varchar(36);index" json:"waiter_id"`
	Waiter              *User           `gorm:"foreignKey:WaiterID;references:ID" json:"waiter,omitempty"`
	Status              OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"subtotal"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"tax_amount"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"discount_amount"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"total_amount"`
	EstimatedTime       int             `json:"estimated_time"`
	SpecialInstructions string          `gorm:"type:text" json:"special_instructions,omitempty"`
	OrderedAt           time.Time       `gorm:"not null;index" json:"ordered_at"`
	ConfirmedAt         *time.Time      `json:"confirmed_at,omitempty"`
	ReadyAt             *time.Time      `json:"ready_at,omitempty"`
	ServedAt            *time.Time      `json:"served_at,omitempty"`
	Items               []OrderItem     `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = GenerateOrderNumber(time.Now())
	}
	if o.OrderedAt.IsZero() {
		o.OrderedAt = time.Now()
	}
	return nil
}

// GenerateOrderNumber returns the short human facing code printed on tickets,
// e.g. ORD-250612-3FA2C1.
func GenerateOrderNumber(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("ORD-%s-%s", at.Format("060102"), strings.ToUpper(suffix))
}

// TableNumber returns the joined table number, or 0 when the table was not
// preloaded.
func (o *Order) TableNumber() int {
	if o.Table == nil {
		return 0
	}
	return o.Table.Number
}
