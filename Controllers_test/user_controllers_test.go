package Controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

func TestLoginController(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "waiter",
		"password": database.DemoPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	token, ok := body["token"].(string)
	require.True(t, ok)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, models.RoleWaiter, user["role"])
	assert.NotContains(t, user, "password_hash")

	claims, err := app.tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, app.users[models.RoleWaiter].ID, claims.UserID)

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "waiter", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, utils.CodeInvalidCredentials, decode(t, w)["code"])

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "nobody", "password": database.DemoPassword})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "waiter"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginInactiveUser(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.db.Model(&models.User{}).Where("username = ?", "kitchen").Update("is_active", false).Error)

	w := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "kitchen",
		"password": database.DemoPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// tokens issued before deactivation stop working as well
	w = app.do(t, http.MethodGet, "/api/auth/me", app.token(t, models.RoleKitchen), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, utils.CodeUserInvalid, decode(t, w)["code"])
}

func TestProfileController(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/auth/me", app.token(t, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode(t, w)["user"].(map[string]interface{})["username"])

	w = app.do(t, http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, utils.CodeTokenInvalid, decode(t, w)["code"])

	expired := utils.NewJWTManager("controller-test-secret", time.Nanosecond)
	user := app.users[models.RoleAdmin]
	token, err := expired.GenerateToken(user.ID, user.Username, user.Role)
	require.NoError(t, err)
	time.Sleep(time.Second)

	w = app.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, utils.CodeTokenExpired, decode(t, w)["code"])
}
