package Controllers_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

func TestGetTablesController(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/tables", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tables := decode(t, w)["tables"].([]interface{})
	require.Len(t, tables, 10)
	assert.EqualValues(t, 1, tables[0].(map[string]interface{})["number"])

	app.startSession(t, 2)
	w = app.do(t, http.MethodGet, "/api/tables?status=occupied", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["tables"], 1)

	w = app.do(t, http.MethodGet, "/api/tables/3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, app.tables[2].ID, decode(t, w)["table"].(map[string]interface{})["id"])

	w = app.do(t, http.MethodGet, "/api/tables/"+app.tables[3].ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, decode(t, w)["table"].(map[string]interface{})["number"])

	w = app.do(t, http.MethodGet, "/api/tables/"+strconv.Itoa(99), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, utils.CodeTableNotFound, decode(t, w)["code"])

	w = app.do(t, http.MethodGet, "/api/tables/window-seat", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartSessionController(t *testing.T) {
	app := newTestApp(t)
	table := app.tables[0]

	w := app.do(t, http.MethodPost, "/api/tables/"+table.ID+"/session", "", map[string]interface{}{
		"customer_name": "Rivera",
		"guest_count":   3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode(t, w)["session"].(map[string]interface{})
	assert.Equal(t, "active", session["status"])
	assert.EqualValues(t, 3, session["guest_count"])

	w = app.do(t, http.MethodPost, "/api/tables/"+table.ID+"/session", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SESSION_START_ERROR", body["code"])
	assert.Equal(t, utils.CodeTableNotAvailable, body["details"].(map[string]interface{})["reason"])

	w = app.do(t, http.MethodPost, "/api/tables/7f1c2b44-0d6e-4b9a-8f55-2a1f4c3d9e10/session", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPost, "/api/tables/"+app.tables[1].ID+"/session", "", map[string]interface{}{"guest_count": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeValidation, decode(t, w)["code"])

	w = app.do(t, http.MethodGet, "/api/tables/"+table.ID+"/session", app.token(t, models.RoleWaiter), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session["id"], decode(t, w)["session"].(map[string]interface{})["id"])
}

func TestEndSessionController(t *testing.T) {
	app := newTestApp(t)
	tableID, sessionID := app.startSession(t, 8)
	curry := app.dish(t, "Vegetable Curry")

	w := app.do(t, http.MethodPost, "/api/orders", app.token(t, models.RoleCustomer), orderBody(tableID, sessionID, item(curry.ID, 2)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	path := "/api/tables/session/" + sessionID + "/end"
	w = app.do(t, http.MethodPatch, path, app.token(t, models.RoleKitchen), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	waiter := app.token(t, models.RoleWaiter)
	w = app.do(t, http.MethodPatch, path, waiter, map[string]interface{}{"payment_method": "cash"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode(t, w)["session"].(map[string]interface{})
	assert.Equal(t, "completed", session["status"])
	requireAmount(t, "8260", session["total_amount"])

	var table models.Table
	require.NoError(t, app.db.First(&table, "id = ?", tableID).Error)
	assert.Equal(t, models.TableCleaning, table.Status)
	assert.Nil(t, table.CurrentSessionID)

	var payments int64
	require.NoError(t, app.db.Model(&models.Payment{}).Where("session_id = ?", sessionID).Count(&payments).Error)
	assert.EqualValues(t, 1, payments)

	w = app.do(t, http.MethodPatch, path, waiter, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SESSION_END_ERROR", decode(t, w)["code"])
}

func TestUpdateTableStatusController(t *testing.T) {
	app := newTestApp(t)
	waiter := app.token(t, models.RoleWaiter)
	table := app.tables[4]
	path := "/api/tables/" + table.ID + "/status"

	w := app.do(t, http.MethodPatch, path, "", map[string]string{"status": "cleaning"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPatch, path, waiter, map[string]interface{}{"status": "cleaning", "notes": "spill"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)["table"].(map[string]interface{})
	assert.Equal(t, "cleaning", updated["status"])
	assert.NotNil(t, updated["last_cleaned"])
	assert.Equal(t, "spill", updated["notes"])

	w = app.do(t, http.MethodPatch, path, waiter, map[string]string{"status": "occupied"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, path, waiter, map[string]string{"status": "free"})
	require.Equal(t, http.StatusOK, w.Code)

	app.startSession(t, 5)
	w = app.do(t, http.MethodPatch, path, waiter, map[string]string{"status": "reserved"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeTableHasSession, decode(t, w)["code"])
}

func TestCreateTableController(t *testing.T) {
	app := newTestApp(t)
	admin := app.token(t, models.RoleAdmin)

	w := app.do(t, http.MethodPost, "/api/tables", app.token(t, models.RoleWaiter), map[string]interface{}{"number": 11})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, "/api/tables", admin, map[string]interface{}{"number": 11})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	table := decode(t, w)["table"].(map[string]interface{})
	assert.EqualValues(t, 11, table["number"])
	assert.EqualValues(t, 4, table["capacity"])
	assert.Equal(t, "free", table["status"])

	w = app.do(t, http.MethodPost, "/api/tables", admin, map[string]interface{}{"number": 3, "capacity": 6})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "TABLE_CREATION_ERROR", body["code"])
	assert.Equal(t, utils.CodeTableNumberTaken, body["details"].(map[string]interface{})["reason"])

	w = app.do(t, http.MethodPost, "/api/tables", admin, map[string]interface{}{"number": 12, "capacity": 30})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeValidation, decode(t, w)["code"])

	w = app.do(t, http.MethodGet, "/api/tables/11", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
