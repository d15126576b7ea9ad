package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/bodega-ledger/internal/application/inventory"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
	"github.com/jhoicas/bodega-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/bodega-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/bodega-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/bodega-ledger/internal/interfaces/http"
	"github.com/jhoicas/bodega-ledger/pkg/config"
	"github.com/jhoicas/bodega-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	txRunner := postgres.NewTxRunner(pool, cfg.DB.LockTimeout())
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	inventoryRepo := postgres.NewInventoryQueryRepository(pool)
	historyRepo := postgres.NewInventoryMovementRepository(pool)

	var productRepo repository.ProductRepository = postgres.NewProductRepository(pool)
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, catálogo sin caché")
		} else {
			defer rdb.Close()
			ttl := time.Duration(cfg.Redis.ProductTTLSeconds) * time.Second
			productRepo = cache.NewProductCache(productRepo, rdb, ttl, log)
		}
	}

	stockMetrics := metrics.NewStockMetrics()

	stockUC := inventory.NewStockUseCase(txRunner, productRepo, warehouseRepo, inventory.Options{
		AutoCreateBins: cfg.Stock.AutoCreateBins,
		Observer:       stockMetrics,
	})
	queryUC := inventory.NewQueryUseCase(productRepo, warehouseRepo, inventoryRepo, historyRepo)
	consolidationUC := inventory.NewConsolidationUseCase(txRunner, inventoryRepo, log, inventory.RepairOptions{
		PurgeZero: cfg.Stock.PurgeZero,
		Batch:     cfg.Stock.RepairBatch,
		Observer:  stockMetrics,
	})

	rateLimiter, err := httpRouter.NewRateLimiter(cfg.Stock.RateLimit)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.Stock.RateLimit).Msg("STOCK_RATE_LIMIT inválido")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Bodega Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Stock:         stockUC,
		Query:         queryUC,
		Consolidation: consolidationUC,
		Metrics:       stockMetrics.Registry(),
		RateLimiter:   rateLimiter,
		Logger:        log,
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
