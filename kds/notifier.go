package kds

import (
	"time"

	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
)

// Notification types carried in the payload "type" field.
const (
	TypeNewOrder         = "NEW_ORDER"
	TypeNewOrderAdmin    = "NEW_ORDER_ADMIN"
	TypeOrderConfirmed   = "ORDER_CONFIRMED"
	TypeStatusUpdate     = "STATUS_UPDATE"
	TypeOrderReady       = "ORDER_READY"
	TypeOrderStatusAdmin = "ORDER_STATUS_ADMIN"
	TypeTableStatus      = "TABLE_STATUS_UPDATE"
	TypeTableStatusAdmin = "TABLE_STATUS_ADMIN"
)

// StatusMessages is the customer facing text for each order status.
var StatusMessages = map[models.OrderStatus]string{
	models.OrderConfirmed: "Your order has been confirmed",
	models.OrderPreparing: "Your order is being prepared",
	models.OrderReady:     "Your order is ready!",
	models.OrderServed:    "Enjoy your meal!",
	models.OrderCancelled: "Your order has been cancelled",
	models.OrderCompleted: "Thank you for your visit",
}

type OrderNotification struct {
	Type      string        `json:"type"`
	Order     *models.Order `json:"order"`
	Timestamp time.Time     `json:"timestamp"`
}

type OrderCreatedNotification struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	EstimatedTime int       `json:"estimatedTime"`
	Timestamp     time.Time `json:"timestamp"`
}

type StatusUpdateNotification struct {
	Type      string             `json:"type"`
	OrderID   string             `json:"orderId"`
	Status    models.OrderStatus `json:"status"`
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
}

type OrderReadyNotification struct {
	Type        string        `json:"type"`
	Order       *models.Order `json:"order"`
	TableNumber int           `json:"tableNumber"`
	Timestamp   time.Time     `json:"timestamp"`
}

type AdminStatusNotification struct {
	Type           string             `json:"type"`
	Order          *models.Order      `json:"order"`
	PreviousStatus models.OrderStatus `json:"previousStatus"`
	Timestamp      time.Time          `json:"timestamp"`
}

type TableNotification struct {
	Type      string        `json:"type"`
	Table     *models.Table `json:"table"`
	Timestamp time.Time     `json:"timestamp"`
}

// Notifier turns domain events into channel messages on a Hub.
type Notifier struct {
	hub *Hub
	now func() time.Time
}

var _ services.Publisher = (*Notifier)(nil)

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub, now: time.Now}
}

func (n *Notifier) NewOrder(order *models.Order) {
	now := n.now()
	n.hub.Publish(ChannelKitchen, Message{
		Event: EventNewOrder,
		Data:  OrderNotification{Type: TypeNewOrder, Order: order, Timestamp: now},
	})
	n.hub.Publish(ChannelAdmin, Message{
		Event: EventNewOrder,
		Data:  OrderNotification{Type: TypeNewOrderAdmin, Order: order, Timestamp: now},
	})
	if order.TableID != "" {
		n.hub.Publish(TableChannel(order.TableID), Message{
			Event: EventOrderCreated,
			Data: OrderCreatedNotification{
				Type:          TypeOrderConfirmed,
				OrderID:       order.ID,
				EstimatedTime: order.EstimatedTime,
				Timestamp:     now,
			},
		})
	}
}

func (n *Notifier) OrderStatusChanged(order *models.Order, previous models.OrderStatus) {
	now := n.now()
	if order.TableID != "" {
		n.hub.Publish(TableChannel(order.TableID), Message{
			Event: EventOrderStatusUpdate,
			Data: StatusUpdateNotification{
				Type:      TypeStatusUpdate,
				OrderID:   order.ID,
				Status:    order.Status,
				Message:   StatusMessages[order.Status],
				Timestamp: now,
			},
		})
	}
	if order.Status == models.OrderReady {
		n.hub.Publish(ChannelWaiters, Message{
			Event: EventOrderReady,
			Data: OrderReadyNotification{
				Type:        TypeOrderReady,
				Order:       order,
				TableNumber: order.TableNumber(),
				Timestamp:   now,
			},
		})
	}
	n.hub.Publish(ChannelAdmin, Message{
		Event: EventOrderStatusUpdate,
		Data: AdminStatusNotification{
			Type:           TypeOrderStatusAdmin,
			Order:          order,
			PreviousStatus: previous,
			Timestamp:      now,
		},
	})
}

func (n *Notifier) TableStatusChanged(table *models.Table) {
	now := n.now()
	n.hub.Publish(ChannelWaiters, Message{
		Event: EventTableStatusUpdate,
		Data:  TableNotification{Type: TypeTableStatus, Table: table, Timestamp: now},
	})
	n.hub.Publish(ChannelAdmin, Message{
		Event: EventTableStatusUpdate,
		Data:  TableNotification{Type: TypeTableStatusAdmin, Table: table, Timestamp: now},
	})
}
