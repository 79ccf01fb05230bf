package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

const (
	codeTableCreation = "TABLE_CREATION_ERROR"
	codeSessionStart  = "SESSION_START_ERROR"
	codeSessionEnd    = "SESSION_END_ERROR"
)

type TableController struct {
	Tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{Tables: tables}
}

// GetAllTables -> every table ordered by number, optionally by status
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.GetTables(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", gin.H{"tables": tables})
}

// CreateTable -> admin adds a table to the floor plan
func (tc *TableController) CreateTable(c *gin.Context) {
	var body struct {
		Number   int    `json:"number" binding:"required,min=1"`
		Capacity int    `json:"capacity" binding:"omitempty,min=1,max=20"`
		Notes    string `json:"notes" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindingError(c, err)
		return
	}

	table, err := tc.Tables.CreateTable(c.Request.Context(), services.TableInput{
		Number:   body.Number,
		Capacity: body.Capacity,
		Notes:    body.Notes,
	})
	if err != nil {
		respondServiceErrorAs(c, err, codeTableCreation, "")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created", gin.H{"table": table})
}

// GetTable -> looks a table up by number or id
func (tc *TableController) GetTable(c *gin.Context) {
	table, err := tc.Tables.GetTable(c.Request.Context(), c.Param("tableId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table details", gin.H{"table": table})
}

// GetActiveSession -> the session currently seated at a table
func (tc *TableController) GetActiveSession(c *gin.Context) {
	tableID, ok := uuidParam(c, "tableId")
	if !ok {
		return
	}
	session, err := tc.Tables.GetActiveSession(c.Request.Context(), tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active session", gin.H{"session": session})
}

// UpdateTableStatus -> staff override of a table's status
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	tableID, ok := uuidParam(c, "tableId")
	if !ok {
		return
	}

	var body struct {
		Status models.TableStatus `json:"status" binding:"required"`
		Notes  *string            `json:"notes" binding:"omitempty,max=1000"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindingError(c, err)
		return
	}

	table, err := tc.Tables.UpdateTableStatus(c.Request.Context(), tableID, body.Status, body.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table status updated", gin.H{"table": table})
}

// StartSession -> seats customers at a free table
func (tc *TableController) StartSession(c *gin.Context) {
	tableID, ok := uuidParam(c, "tableId")
	if !ok {
		return
	}

	var body struct {
		CustomerName  string  `json:"customer_name" binding:"max=100"`
		CustomerPhone *string `json:"customer_phone" binding:"omitempty,max=20"`
		GuestCount    int     `json:"guest_count" binding:"omitempty,min=1,max=20"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindingError(c, err)
			return
		}
	}

	session, err := tc.Tables.StartSession(c.Request.Context(), tableID, services.SessionInput{
		CustomerName:  body.CustomerName,
		CustomerPhone: body.CustomerPhone,
		GuestCount:    body.GuestCount,
	})
	if err != nil {
		respondServiceErrorAs(c, err, codeSessionStart, "")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Session started", gin.H{"session": session})
}

// EndSession -> closes the bill and sends the table to cleaning
func (tc *TableController) EndSession(c *gin.Context) {
	sessionID, ok := uuidParam(c, "sessionId")
	if !ok {
		return
	}

	var body struct {
		TotalAmount   *decimal.Decimal `json:"total_amount"`
		PaymentMethod string           `json:"payment_method"`
		Reference     string           `json:"reference" binding:"max=100"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindingError(c, err)
			return
		}
	}

	session, err := tc.Tables.EndSession(c.Request.Context(), sessionID, services.EndSessionInput{
		TotalAmount:   body.TotalAmount,
		PaymentMethod: body.PaymentMethod,
		Reference:     body.Reference,
	})
	if err != nil {
		respondServiceErrorAs(c, err, codeSessionEnd, "")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session ended", gin.H{"session": session})
}
