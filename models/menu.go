package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Dish is a catalog entry. Orders copy Price into OrderItem.UnitPrice, so
// later catalog edits never reach existing orders.
type Dish struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	CategoryID      string          `gorm:"type:varchar(36);not null;index" json:"category_id"`
	Category        *Category       `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category,omitempty"`
	Name            string          `gorm:"type:varchar(100);not null;index" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	Price           decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"price"`
	PreparationTime int             `gorm:"not null" json:"preparation_time"`
	IsAvailable     bool            `gorm:"not null;index" json:"is_available"`
	ImageURL        *string         `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func (d *Dish) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
