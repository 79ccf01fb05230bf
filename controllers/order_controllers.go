package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/middlewares"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

const (
	codeOrderCreation = "ORDER_CREATION_ERROR"
	codeStatusUpdate  = "STATUS_UPDATE_ERROR"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

type orderItemRequest struct {
	DishID              string `json:"dish_id" binding:"required,uuid"`
	Quantity            int    `json:"quantity" binding:"required,min=1,max=20"`
	SpecialInstructions string `json:"special_instructions" binding:"max=500"`
}

type createOrderRequest struct {
	TableID             string             `json:"table_id" binding:"required,uuid"`
	SessionID           string             `json:"session_id" binding:"required,uuid"`
	Items               []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	SpecialInstructions string             `json:"special_instructions" binding:"max=1000"`
	WaiterID            *string            `json:"waiter_id" binding:"omitempty,uuid"`
}

// CreateOrder -> places an order for an active table session
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	input := services.CreateOrderInput{
		TableID:             req.TableID,
		SessionID:           req.SessionID,
		SpecialInstructions: req.SpecialInstructions,
		WaiterID:            req.WaiterID,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, services.OrderItemInput{
			DishID:              item.DishID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	if input.WaiterID == nil && c.GetString(middlewares.ContextRole) == models.RoleWaiter {
		waiterID := c.GetString(middlewares.ContextUserID)
		input.WaiterID = &waiterID
	}

	order, err := oc.Orders.CreateOrder(c.Request.Context(), input)
	if err != nil {
		if utils.IsKind(err, utils.KindNotFound) {
			respondServiceErrorAs(c, utils.NewConflictError(utils.CodeDishNotFound, err.Error()), "", codeOrderCreation)
			return
		}
		respondServiceErrorAs(c, err, "", codeOrderCreation)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created successfully", gin.H{"order": order})
}

// GetOrderByID -> single order with table, session, waiter and items
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID, ok := uuidParam(c, "orderId")
	if !ok {
		return
	}

	order, err := oc.Orders.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order details", gin.H{"order": order})
}

// UpdateOrderStatus -> moves an order along its lifecycle
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := uuidParam(c, "orderId")
	if !ok {
		return
	}

	var body struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := oc.Orders.UpdateOrderStatus(c.Request.Context(), orderID, body.Status, c.GetString(middlewares.ContextUserID))
	if err != nil {
		respondServiceErrorAs(c, err, codeStatusUpdate, "")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", gin.H{"order": order})
}

// GetOrdersByStatus -> queue view for kitchen and floor staff, oldest first
func (oc *OrderController) GetOrdersByStatus(c *gin.Context) {
	orders, err := oc.Orders.GetOrdersByStatus(c.Request.Context(), models.OrderStatus(c.Param("status")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{"orders": orders})
}

// GetOrdersByTable -> a table's orders, newest first
func (oc *OrderController) GetOrdersByTable(c *gin.Context) {
	tableID, ok := uuidParam(c, "tableId")
	if !ok {
		return
	}

	orders, err := oc.Orders.GetOrdersByTable(c.Request.Context(), tableID, c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{"orders": orders})
}

// GetOrdersBySession -> every order placed during one visit
func (oc *OrderController) GetOrdersBySession(c *gin.Context) {
	sessionID, ok := uuidParam(c, "sessionId")
	if !ok {
		return
	}

	orders, err := oc.Orders.GetOrdersBySession(c.Request.Context(), sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{"orders": orders})
}

func (oc *OrderController) GetDashboardStats(c *gin.Context) {
	stats, err := oc.Orders.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard statistics", gin.H{"stats": stats})
}
