package database

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password given to every seeded staff account.
const DemoPassword = "Restaurant123"

type demoDish struct {
	name     string
	category string
	price    int64
	prep     int
}

var demoDishes = []demoDish{
	{"Garden Salad", "Starters", 1800, 8},
	{"Onion Soup", "Starters", 2200, 12},
	{"Grilled Chicken", "Mains", 4500, 25},
	{"Beef Burger", "Mains", 3800, 18},
	{"Vegetable Curry", "Mains", 3500, 20},
	{"Chocolate Cake", "Desserts", 2500, 5},
	{"Fresh Juice", "Drinks", 1200, 3},
}

// SeedDemoData fills an empty database with staff accounts, tables and a
// small menu. It does nothing when users already exist.
func SeedDemoData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, role := range []string{models.RoleAdmin, models.RoleWaiter, models.RoleKitchen, models.RoleCustomer} {
			user := models.User{Username: role, PasswordHash: string(hash), Role: role, IsActive: true}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		}

		for n := 1; n <= 10; n++ {
			table := models.Table{Number: n, Capacity: 4, Status: models.TableFree}
			if err := tx.Create(&table).Error; err != nil {
				return err
			}
		}

		categories := map[string]*models.Category{}
		for _, d := range demoDishes {
			cat, ok := categories[d.category]
			if !ok {
				cat = &models.Category{Name: d.category}
				if err := tx.Create(cat).Error; err != nil {
					return err
				}
				categories[d.category] = cat
			}
			dish := models.Dish{
				CategoryID:      cat.ID,
				Name:            d.name,
				Price:           decimal.NewFromInt(d.price),
				PreparationTime: d.prep,
				IsAvailable:     true,
			}
			if err := tx.Create(&dish).Error; err != nil {
				return err
			}
		}

		utils.InfoLogger.WithField("dishes", len(demoDishes)).Info("demo data seeded")
		return nil
	})
}
