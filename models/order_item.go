package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderItemStatus string

const (
	ItemPending   OrderItemStatus = "pending"
	ItemPreparing OrderItemStatus = "preparing"
	ItemReady     OrderItemStatus = "ready"
	ItemServed    OrderItemStatus = "served"
)

type OrderItem struct {
	ID                  string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID             string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	DishID              string          `gorm:"type:varchar(36);not null;index" json:"dish_id"`
	Dish                *Dish           `gorm:"foreignKey:DishID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"dish,omitempty"`
	Quantity            int             `gorm:"not null" json:"quantity"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"unit_price"`
	TotalPrice          decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"total_price"`
	SpecialInstructions string          `gorm:"type:text" json:"special_instructions,omitempty"`
	Status              OrderItemStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = ItemPending
	}
	return nil
}

// BeforeSave keeps TotalPrice in step with Quantity and UnitPrice.
func (i *OrderItem) BeforeSave(tx *gorm.DB) error {
	i.TotalPrice = i.LineTotal()
	return nil
}

func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
