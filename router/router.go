package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-ordering/controllers"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/middlewares"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps is everything the HTTP surface needs. Redis may be nil.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Tokens *utils.JWTManager
	Hub    *kds.Hub
	Tables *services.TableService
	Orders *services.OrderService

	FrontendURL    string
	RateLimitRPS   float64
	RateLimitBurst int
	IdempotencyTTL time.Duration
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.FrontendURL))

	orderController := controllers.NewOrderController(d.Orders)
	tableController := controllers.NewTableController(d.Tables)
	menuController := controllers.NewMenuController(d.DB)
	userController := controllers.NewUserController(d.DB, d.Tokens)
	kdsController := controllers.NewKDSController(d.Hub, d.FrontendURL)

	auth := middlewares.AuthMiddleware(d.Tokens, d.DB)
	optionalAuth := middlewares.OptionalAuth(d.Tokens)
	staff := middlewares.RequireRoles(models.RoleWaiter, models.RoleKitchen, models.RoleAdmin)
	floor := middlewares.RequireRoles(models.RoleWaiter, models.RoleAdmin)
	admin := middlewares.RequireRoles(models.RoleAdmin)

	apiLimiter := middlewares.NewRateLimiter(rate.Limit(d.RateLimitRPS), d.RateLimitBurst)
	orderLimiter := middlewares.NewRateLimiter(rate.Every(time.Minute/10), 10).WithCode("ORDER_" + utils.CodeRateLimited)
	idempotency := middlewares.Idempotency(middlewares.NewIdempotencyStore(d.Redis, d.IdempotencyTTL))

	r.GET("/health", healthHandler(d))
	r.GET("/ws", kdsController.ServeWS)

	api := r.Group("/api")
	api.Use(apiLimiter.RateLimit())
	{
		api.GET("/health", healthHandler(d))
		api.GET("/stats/realtime", kdsController.RealtimeStats)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", middlewares.NewStrictRateLimiter().RateLimit(), userController.Login)
			authGroup.GET("/me", auth, userController.GetProfile)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", orderLimiter.RateLimit(), auth, middlewares.RequireRoles(models.RoleCustomer, models.RoleWaiter, models.RoleAdmin), idempotency, orderController.CreateOrder)
			orders.GET("/status/:status", auth, staff, orderController.GetOrdersByStatus)
			orders.GET("/table/:tableId", auth, orderController.GetOrdersByTable)
			orders.GET("/session/:sessionId", auth, orderController.GetOrdersBySession)
			orders.GET("/admin/dashboard", auth, admin, orderController.GetDashboardStats)
			orders.GET("/:orderId", auth, orderController.GetOrderByID)
			orders.PATCH("/:orderId/status", auth, staff, orderController.UpdateOrderStatus)
		}

		tables := api.Group("/tables")
		{
			tables.GET("", tableController.GetAllTables)
			tables.POST("", auth, admin, tableController.CreateTable)
			tables.GET("/:tableId", tableController.GetTable)
			tables.GET("/:tableId/session", auth, tableController.GetActiveSession)
			tables.PATCH("/:tableId/status", auth, floor, tableController.UpdateTableStatus)
			tables.POST("/:tableId/session", optionalAuth, tableController.StartSession)
			tables.PATCH("/session/:sessionId/end", auth, floor, tableController.EndSession)
		}

		menu := api.Group("")
		{
			menu.GET("/dishes", menuController.GetAllDishes)
			menu.GET("/dishes/:dishId", menuController.GetDish)
			menu.GET("/categories", menuController.GetAllCategories)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, utils.ErrorResponse{Error: "route not found", Code: "ROUTE_NOT_FOUND"})
	})

	return r
}

func healthHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		database := "ok"
		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			database = "unavailable"
		}

		cache := "disabled"
		if d.Redis != nil {
			cache = "ok"
			if err := d.Redis.Ping(ctx).Err(); err != nil {
				cache = "unavailable"
			}
		}

		c.JSON(status, gin.H{
			"status":      http.StatusText(status),
			"timestamp":   time.Now(),
			"database":    database,
			"redis":       cache,
			"connections": d.Hub.Stats().Connections,
		})
	}
}
