package router

import (
	"time"

	"restopos/internal/config"
	"restopos/internal/handler"
	"restopos/internal/infra"
	"restopos/internal/middleware"
	"restopos/internal/repository"
	"restopos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, autoridad infra.ClienteAutoridad, cb *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	if cfg.OtelEnabled {
		r.Use(otelgin.Middleware(cfg.OtelServiceName))
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.ErrorHandler())

	// ── Infrastructure ───────────────────────────────────────────────────────
	idempotency := infra.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
	limiter := middleware.RateLimiter(infra.NewContadorVentana(rdb), cfg.RateLimitPerMinute, time.Minute)
	reglas := service.ReglasDesdeConfig(cfg)

	// ── Repositories ─────────────────────────────────────────────────────────
	ordenRepo := repository.NewOrdenRepository(db)
	catalogoRepo := repository.NewCatalogoRepository(db)
	correlativoRepo := repository.NewCorrelativoRepository(db)
	pagoRepo := repository.NewPagoRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	ventaRepo := repository.NewVentaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	ordenSvc := service.NewOrdenService(ordenRepo, catalogoRepo, correlativoRepo, reglas)
	cajaSvc := service.NewCajaService(cajaRepo, reglas)
	facturacionSvc := service.NewFacturacionService(ventaRepo, catalogoRepo, correlativoRepo, autoridad, reglas)
	pagoSvc := service.NewPagoService(pagoRepo, ordenRepo, ordenSvc, cajaSvc, facturacionSvc, reglas)

	// ── Handlers ─────────────────────────────────────────────────────────────
	ordenesH := handler.NewOrdenesHandler(ordenSvc, pagoSvc, facturacionSvc)
	pagosH := handler.NewPagosHandler(pagoSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	ventasH := handler.NewVentasHandler(facturacionSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, cb))

	salon := middleware.RequireRole(service.RolesSalon...)
	caja := middleware.RequireRole(service.RolesCaja...)
	admin := middleware.RequireRole(service.RolAdministrador)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), limiter)
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", salon, ordenesH.Abrir)
			orders.GET("", ordenesH.Listar)
			orders.GET("/:id", ordenesH.Obtener)
			orders.POST("/:id/items", salon, ordenesH.AgregarItem)
			orders.DELETE("/:id/items/:item_id", salon, ordenesH.EliminarItem)
			orders.POST("/:id/send", salon, ordenesH.EnviarACocina)
			orders.POST("/:id/close", salon, ordenesH.Cerrar)
			orders.POST("/:id/cancel", salon, ordenesH.Cancelar)
			orders.POST("/:id/recalculate", admin, ordenesH.Recalcular)
			orders.GET("/:id/balances", ordenesH.Saldos)
			orders.GET("/:id/payments", caja, ordenesH.Pagos)
			orders.GET("/:id/sales", caja, ordenesH.Ventas)
		}

		// Status changes are open to every role; the item state machine
		// decides per transition.
		items := v1.Group("/order-items")
		{
			items.PATCH("/:id/status", ordenesH.CambiarEstadoItem)
			items.POST("/:id/cancel", salon, ordenesH.CancelarItem)
		}

		payments := v1.Group("/payments", caja, middleware.Idempotency(idempotency))
		{
			payments.POST("", pagosH.Registrar)
			payments.POST("/split", pagosH.RegistrarDividido)
			payments.POST("/incremental", pagosH.RegistrarIncremental)
		}

		registers := v1.Group("/cash-registers", caja)
		{
			registers.POST("/open", cajaH.Abrir)
			registers.POST("/close", cajaH.Cerrar)
			registers.POST("/movements", cajaH.RegistrarMovimiento)
			registers.GET("/active", cajaH.Activa)
			registers.GET("/:id/report", cajaH.ObtenerReporte)
		}

		sales := v1.Group("/sales", caja)
		{
			sales.GET("/:id", ventasH.Obtener)
			sales.GET("/:id/pdf", ventasH.DescargarPDF)
			sales.POST("/:id/resend", ventasH.Reenviar)
			sales.POST("/:id/void", admin, ventasH.Anular)
		}
	}

	// Swagger UI, outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
