package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/config"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/router"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if cfg.SeedDemo {
		if err := database.SeedDemoData(db); err != nil {
			utils.ErrorLogger.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	redisClient := config.NewRedisClient(cfg)
	if redisClient == nil {
		utils.InfoLogger.Warn("redis unavailable, Idempotency-Key replay disabled")
	} else {
		defer redisClient.Close()
	}

	tokens := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	hub := kds.NewHub(tokenAuthenticator(tokens), cfg.WSSendBuffer)
	notifier := kds.NewNotifier(hub)

	pricing := services.PricingPolicy{
		TaxRate:             cfg.TaxRate,
		MaxEstimatedMinutes: cfg.MaxEstimatedMinutes,
		MinEstimatedMinutes: cfg.MinEstimatedMinutes,
	}
	tables := services.NewTableService(db, notifier)
	orders := services.NewOrderService(db, tables, pricing, notifier)

	r := router.SetupRouter(router.Deps{
		DB:             db,
		Redis:          redisClient,
		Tokens:         tokens,
		Hub:            hub,
		Tables:         tables,
		Orders:         orders,
		FrontendURL:    cfg.FrontendURL,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// tokenAuthenticator lets websocket clients identify with the same JWT the
// HTTP API accepts.
func tokenAuthenticator(tokens *utils.JWTManager) kds.Authenticator {
	return kds.AuthenticatorFunc(func(token string) (*kds.Identity, error) {
		claims, err := tokens.ParseToken(token)
		if err != nil {
			return nil, err
		}
		return &kds.Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
	})
}
