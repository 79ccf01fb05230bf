package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

type recordedStatus struct {
	OrderID  string
	Status   models.OrderStatus
	Previous models.OrderStatus
}

// recordingPublisher captures events for assertions.
type recordingPublisher struct {
	mu       sync.Mutex
	newOrder []*models.Order
	statuses []recordedStatus
	tables   []models.Table
}

func (p *recordingPublisher) NewOrder(order *models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.newOrder = append(p.newOrder, order)
}

func (p *recordingPublisher) OrderStatusChanged(order *models.Order, previous models.OrderStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, recordedStatus{OrderID: order.ID, Status: order.Status, Previous: previous})
}

func (p *recordingPublisher) TableStatusChanged(table *models.Table) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables = append(p.tables, *table)
}

func createTable(t *testing.T, db *gorm.DB, number int) *models.Table {
	t.Helper()
	table := &models.Table{Number: number, Capacity: 4, Status: models.TableFree}
	require.NoError(t, db.Create(table).Error)
	return table
}

func createDish(t *testing.T, db *gorm.DB, name string, price int64, prep int, available bool) *models.Dish {
	t.Helper()
	var category models.Category
	require.NoError(t, db.FirstOrCreate(&category, models.Category{Name: "Mains"}).Error)
	dish := &models.Dish{
		CategoryID:      category.ID,
		Name:            name,
		Price:           decimal.NewFromInt(price),
		PreparationTime: prep,
		IsAvailable:     available,
	}
	require.NoError(t, db.Create(dish).Error)
	return dish
}
