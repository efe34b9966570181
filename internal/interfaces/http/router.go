package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/Muestras-api/internal/application/auth"
	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC         *auth.AuthUseCase
	ScopeResolver  *auth.ScopeResolver
	Recorder       *inventory.MovementRecorder
	Query          *inventory.MovementQuery
	Kardex         *inventory.KardexReconstructor
	ProductUC      *inventory.ProductUseCase
	PDF            KardexPDFGenerator
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Location       *time.Location
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(deps.Gatherer)))
	}

	api := app.Group("/api/v1")
	if deps.Metrics != nil {
		api.Use(Metrics(deps.Metrics))
	}
	api.Use(RateLimit(deps.RateLimitRPS, deps.RateLimitBurst))

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token y alcance resuelto)
	authn := AuthMiddleware(deps.JWTSecret)
	scope := ResolveScope(deps.ScopeResolver)

	// Movements: las rutas estáticas van antes de /:id.
	movementHandler := NewMovementHandler(deps.Recorder, deps.Query, deps.Kardex, deps.ProductUC, deps.PDF, deps.Location)
	movements := api.Group("/movements", authn, scope)
	canWrite := RequireCapability(entity.ModuleMovements)
	canRead := RequireCapability(entity.ModuleReports)
	movements.Post("/entrada", canWrite, movementHandler.Entrada)
	movements.Post("/salida", canWrite, movementHandler.Salida)
	movements.Post("/ajuste", canWrite, movementHandler.Ajuste)
	movements.Get("/", canRead, movementHandler.List)
	movements.Get("/stats", canRead, movementHandler.Stats)
	movements.Get("/kardex/:product_id", canRead, movementHandler.Kardex)
	movements.Get("/audit/:product_id", RequireRole(entity.RoleAdmin), movementHandler.Audit)
	movements.Get("/:id", canRead, movementHandler.Get)

	// Products
	productHandler := NewProductHandler(deps.ProductUC, deps.Location)
	products := api.Group("/products", authn, scope, RequireCapability(entity.ModuleProducts))
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Post("/bulk-import", productHandler.BulkImport)
	products.Get("/next-code", RequireRole(entity.RoleAdmin), productHandler.NextCode)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)
}
