package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/jhoicas/bodega-ledger/internal/application/inventory"
	"github.com/jhoicas/bodega-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stock         *inventory.StockUseCase
	Query         *inventory.QueryUseCase
	Consolidation *inventory.ConsolidationUseCase
	Metrics       *prometheus.Registry // nil = sin /metrics
	RateLimiter   *limiter.Limiter     // nil = mutaciones sin límite
	Logger        *logger.Logger
	JWTSecret     string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Stock (protegido): lecturas para los tres roles, mutaciones para admin y bodeguero.
	stock := api.Group("/stock", AuthMiddleware(deps.JWTSecret))
	reader := RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor)
	h := NewInventoryHandler(deps.Stock, deps.Query, deps.Consolidation, deps.Logger)
	writer := func(handler fiber.Handler) []fiber.Handler {
		chain := []fiber.Handler{RequireRole(RoleAdmin, RoleBodeguero)}
		if deps.RateLimiter != nil {
			chain = append(chain, RateLimit(deps.RateLimiter))
		}
		return append(chain, handler)
	}

	stock.Get("/on-hand", reader, h.OnHand)
	stock.Get("/movements", reader, h.History)
	stock.Get("/transactions/:id", reader, h.Transaction)

	stock.Post("/receive", writer(h.Receive)...)
	stock.Post("/transfer", writer(h.Transfer)...)
	stock.Post("/allocate", writer(h.Allocate)...)
	stock.Post("/adjustments", writer(h.Adjust)...)
	stock.Post("/consolidate", RequireRole(RoleAdmin), h.Consolidate)
}
