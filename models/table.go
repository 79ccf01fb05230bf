package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TableStatus string

const (
	TableFree         TableStatus = "free"
	TableOccupied     TableStatus = "occupied"
	TableReserved     TableStatus = "reserved"
	TableCleaning     TableStatus = "cleaning"
	TableOutOfService TableStatus = "out_of_service"
)

func (s TableStatus) IsValid() bool {
	switch s {
	case TableFree, TableOccupied, TableReserved, TableCleaning, TableOutOfService:
		return true
	}
	return false
}

// Table is a physical seating unit. CurrentSessionID is set only while a
// session occupies the table.
type Table struct {
	ID               string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Number           int         `gorm:"not null;uniqueIndex" json:"number"`
	Capacity         int         `gorm:"not null;default:4" json:"capacity"`
	Status           TableStatus `gorm:"type:varchar(20);not null;default:'free';index" json:"status"`
	CurrentSessionID *string     `gorm:"type:varchar(36);index" json:"current_session_id"`
	LastCleaned      *time.Time  `json:"last_cleaned,omitempty"`
	Notes            string      `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt        time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"not null" json:"updated_at"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TableFree
	}
	return nil
}
