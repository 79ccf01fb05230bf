package services

import "github.com/yeremiapane/restaurant-ordering/models"

// Publisher receives domain events after the write that caused them has
// committed. Implementations must not block and must not fail the caller.
type Publisher interface {
	NewOrder(order *models.Order)
	OrderStatusChanged(order *models.Order, previous models.OrderStatus)
	TableStatusChanged(table *models.Table)
}

type nopPublisher struct{}

func (nopPublisher) NewOrder(*models.Order)                               {}
func (nopPublisher) OrderStatusChanged(*models.Order, models.OrderStatus) {}
func (nopPublisher) TableStatusChanged(*models.Table)                     {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
