package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderItemInput struct {
	DishID              string
	Quantity            int
	SpecialInstructions string
}

type CreateOrderInput struct {
	TableID             string
	SessionID           string
	Items               []OrderItemInput
	SpecialInstructions string
	WaiterID            *string
}

// DashboardStats is the admin overview. Status counts cover all orders,
// TodayOrders and TodayRevenue only those placed since local midnight.
type DashboardStats struct {
	TodayOrders     int64           `json:"total_orders_today"`
	PendingOrders   int64           `json:"pending_orders"`
	ConfirmedOrders int64           `json:"confirmed_orders"`
	PreparingOrders int64           `json:"preparing_orders"`
	ReadyOrders     int64           `json:"ready_orders"`
	TodayRevenue    decimal.Decimal `json:"today_revenue"`
}

// OrderService owns order persistence and every order status change.
type OrderService struct {
	db        *gorm.DB
	tables    *TableService
	pricing   PricingPolicy
	publisher Publisher
	now       func() time.Time
}

func NewOrderService(db *gorm.DB, tables *TableService, pricing PricingPolicy, publisher Publisher) *OrderService {
	return &OrderService{
		db:        db,
		tables:    tables,
		pricing:   pricing,
		publisher: publisherOrNop(publisher),
		now:       time.Now,
	}
}

// CreateOrder validates the session, prices the items against the current
// catalog and stores the order with its items in one transaction. The new
// order is then confirmed as a separate step; a failed confirmation leaves
// it pending and is only logged.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.TableID == "" || in.SessionID == "" {
		return nil, utils.NewValidationError("table_id and session_id are required")
	}
	if len(in.Items) == 0 {
		return nil, utils.NewValidationError("order must contain at least one item")
	}

	session, err := s.tables.ValidateOrderContext(ctx, in.TableID, in.SessionID)
	if err != nil {
		return nil, err
	}

	lines := make([]LineRequest, 0, len(in.Items))
	for _, item := range in.Items {
		if item.DishID == "" {
			return nil, utils.NewValidationError("dish_id is required")
		}
		var dish models.Dish
		if err := s.db.WithContext(ctx).First(&dish, "id = ?", item.DishID).Error; err != nil {
			return nil, lookupError(utils.CodeDishNotFound, "dish "+item.DishID+" not found", err)
		}
		lines = append(lines, LineRequest{
			Dish:                dish,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	quote, err := s.pricing.Price(lines)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		OrderNumber:         models.GenerateOrderNumber(now),
		TableID:             session.TableID,
		SessionID:           session.ID,
		WaiterID:            in.WaiterID,
		Status:              models.OrderPending,
		Subtotal:            quote.Subtotal,
		TaxAmount:           quote.TaxAmount,
		DiscountAmount:      decimal.Zero,
		TotalAmount:         quote.TotalAmount,
		EstimatedTime:       quote.EstimatedTime,
		SpecialInstructions: in.SpecialInstructions,
		OrderedAt:           now,
	}

	err = s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		items := make([]models.OrderItem, 0, len(quote.Lines))
		for _, line := range quote.Lines {
			items = append(items, models.OrderItem{
				OrderID:             order.ID,
				DishID:              line.DishID,
				Quantity:            line.Quantity,
				UnitPrice:           line.UnitPrice,
				TotalPrice:          line.LineTotal,
				SpecialInstructions: line.SpecialInstructions,
				Status:              models.ItemPending,
			})
		}
		return tx.Omit(clause.Associations).Create(&items).Error
	})
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("order creation failed")
		return nil, wrapDBError("failed to create order", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order":   order.OrderNumber,
		"table":   order.TableID,
		"session": order.SessionID,
		"total":   order.TotalAmount.StringFixed(2),
	}).Info("order created")

	s.confirmNewOrder(ctx, order.ID)

	created, err := s.GetOrderByID(context.WithoutCancel(ctx), order.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.NewOrder(created)
	return created, nil
}

// confirmNewOrder runs the pending -> confirmed step for a freshly stored
// order. Failure leaves the order pending.
func (s *OrderService) confirmNewOrder(ctx context.Context, orderID string) {
	if _, err := s.UpdateOrderStatus(context.WithoutCancel(ctx), orderID, models.OrderConfirmed, ""); err != nil {
		utils.ErrorLogger.WithError(err).WithField("order", orderID).Error("auto-confirm failed")
	}
}

// UpdateOrderStatus moves an order along its lifecycle. The write only
// applies if the order still has the status it was read with, so
// concurrent updates cannot both win.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, to models.OrderStatus, actingUserID string) (*models.Order, error) {
	if !to.IsValid() {
		return nil, utils.NewValidationError("unknown order status: " + string(to))
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, lookupError(utils.CodeOrderNotFound, "order not found", err)
	}
	previous := order.Status
	if err := ValidateTransition(previous, to); err != nil {
		return nil, err
	}

	now := s.now()
	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, previous).
			Updates(transitionUpdates(&order, to, now, actingUserID))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current models.Order
			if err := tx.Select("status").First(&current, "id = ?", order.ID).Error; err != nil {
				return err
			}
			return utils.ErrInvalidTransition(string(current.Status), string(to))
		}

		if itemStatus, ok := itemStatusFor(to); ok {
			return tx.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).
				UpdateColumns(map[string]interface{}{"status": itemStatus, "updated_at": now}).Error
		}
		return nil
	})
	if err != nil {
		return nil, wrapDBError("failed to update order status", err)
	}

	updated, err := s.GetOrderByID(context.WithoutCancel(ctx), order.ID)
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order": updated.OrderNumber,
		"from":  previous,
		"to":    to,
	}).Info("order status changed")
	s.publisher.OrderStatusChanged(updated, previous)
	return updated, nil
}

func (s *OrderService) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.joined(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, lookupError(utils.CodeOrderNotFound, "order not found", err)
	}
	return &order, nil
}

// GetOrdersByTable returns the table's orders, newest first.
func (s *OrderService) GetOrdersByTable(ctx context.Context, tableID string, status string) ([]models.Order, error) {
	query := s.joined(ctx).Where("table_id = ?", tableID)
	if status != "" {
		if !models.OrderStatus(status).IsValid() {
			return nil, utils.NewValidationError("unknown order status: " + status)
		}
		query = query.Where("status = ?", status)
	}
	return s.find(query.Order("ordered_at DESC"))
}

// GetOrdersByStatus returns orders in status, oldest first.
func (s *OrderService) GetOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	if !status.IsValid() {
		return nil, utils.NewValidationError("unknown order status: " + string(status))
	}
	return s.find(s.joined(ctx).Where("status = ?", status).Order("ordered_at ASC"))
}

func (s *OrderService) GetOrdersBySession(ctx context.Context, sessionID string) ([]models.Order, error) {
	return s.find(s.joined(ctx).Where("session_id = ?", sessionID).Order("ordered_at ASC"))
}

func (s *OrderService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{TodayRevenue: decimal.Zero}

	if err := db.Model(&models.Order{}).Where("ordered_at >= ?", midnight).Count(&stats.TodayOrders).Error; err != nil {
		return nil, utils.NewInternalError("failed to count orders", err)
	}

	var counts []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("status IN ?", []models.OrderStatus{models.OrderPending, models.OrderConfirmed, models.OrderPreparing, models.OrderReady}).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, utils.NewInternalError("failed to count orders by status", err)
	}
	for _, c := range counts {
		switch c.Status {
		case models.OrderPending:
			stats.PendingOrders = c.Count
		case models.OrderConfirmed:
			stats.ConfirmedOrders = c.Count
		case models.OrderPreparing:
			stats.PreparingOrders = c.Count
		case models.OrderReady:
			stats.ReadyOrders = c.Count
		}
	}

	var totals []decimal.Decimal
	if err := db.Model(&models.Order{}).
		Where("ordered_at >= ? AND status IN ?", midnight, []models.OrderStatus{models.OrderServed, models.OrderCompleted}).
		Pluck("total_amount", &totals).Error; err != nil {
		return nil, utils.NewInternalError("failed to compute revenue", err)
	}
	if len(totals) > 0 {
		stats.TodayRevenue = decimal.Sum(decimal.Zero, totals...)
	}
	return stats, nil
}

func (s *OrderService) joined(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Table").
		Preload("Session").
		Preload("Waiter").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Dish")
}

func (s *OrderService) find(query *gorm.DB) ([]models.Order, error) {
	orders := []models.Order{}
	if err := query.Find(&orders).Error; err != nil {
		return nil, utils.NewInternalError("failed to load orders", err)
	}
	return orders, nil
}
