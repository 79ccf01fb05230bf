package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/router"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *utils.JWTManager
	hub    *kds.Hub
	users  map[string]models.User
	tables []models.Table
	dishes []models.Dish
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedDemoData(db))

	tokens := utils.NewJWTManager("controller-test-secret", time.Hour)
	hub := kds.NewHub(kds.AuthenticatorFunc(func(token string) (*kds.Identity, error) {
		claims, err := tokens.ParseToken(token)
		if err != nil {
			return nil, err
		}
		return &kds.Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
	}), 32)
	notifier := kds.NewNotifier(hub)
	tables := services.NewTableService(db, notifier)
	orders := services.NewOrderService(db, tables, services.DefaultPricingPolicy(), notifier)

	r := router.SetupRouter(router.Deps{
		DB:             db,
		Tokens:         tokens,
		Hub:            hub,
		Tables:         tables,
		Orders:         orders,
		FrontendURL:    "http://localhost:3000",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		IdempotencyTTL: time.Hour,
	})

	app := &testApp{db: db, router: r, tokens: tokens, hub: hub, users: map[string]models.User{}}

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		app.users[u.Role] = u
	}
	require.NoError(t, db.Order("number ASC").Find(&app.tables).Error)
	require.NoError(t, db.Order("name ASC").Find(&app.dishes).Error)
	return app
}

func (a *testApp) token(t *testing.T, role string) string {
	t.Helper()
	user, ok := a.users[role]
	require.True(t, ok, "no seeded user for role %s", role)
	token, err := a.tokens.GenerateToken(user.ID, user.Username, user.Role)
	require.NoError(t, err)
	return token
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) dish(t *testing.T, name string) models.Dish {
	t.Helper()
	for _, d := range a.dishes {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("dish %q not seeded", name)
	return models.Dish{}
}

// startSession opens a session on the table with the given number and
// returns its id.
func (a *testApp) startSession(t *testing.T, number int) (tableID, sessionID string) {
	t.Helper()
	table := a.tables[number-1]
	w := a.do(t, http.MethodPost, "/api/tables/"+table.ID+"/session", "", map[string]interface{}{"guest_count": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	return table.ID, body["session"].(map[string]interface{})["id"].(string)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
