package main

import (
	"context"
	"net/http"
	"os"

	webAdapter "warehouse-engine/internal/adapters/web"
	"warehouse-engine/internal/app"
	"warehouse-engine/internal/core"
	"warehouse-engine/internal/db"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	itemService := core.NewItemService(pool)
	locationService := core.NewLocationService(pool)
	partnerService := core.NewPartnerService(pool)
	stockService := core.NewStockService(pool)
	numberingService := core.NewNumberingService(pool)
	poService := core.NewPurchaseOrderService(pool, numberingService)
	asnService := core.NewASNService(pool, stockService, numberingService)
	soService := core.NewSalesOrderService(pool, stockService, numberingService)
	pickingService := core.NewPickingService(pool, stockService, numberingService)

	svc := app.NewAppService(pool,
		itemService, locationService, partnerService, stockService,
		poService, asnService, soService, pickingService,
	)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, logger, allowedOrigins)

	logger.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

// newLogger builds a production zap logger, or a development one when
// LOG_MODE=dev is set.
func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_MODE") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
