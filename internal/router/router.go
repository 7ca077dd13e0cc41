package router

import (
	"minimarket/internal/clock"
	"minimarket/internal/config"
	"minimarket/internal/handler"
	"minimarket/internal/infra"
	"minimarket/internal/inventario"
	"minimarket/internal/metrics"
	"minimarket/internal/middleware"
	"minimarket/internal/repository"
	"minimarket/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	rolCajero        = "cajero"
	rolSupervisor    = "supervisor"
	rolAdministrador = "administrador"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// A nil rdb disables caching and falls back to in-process product locks,
// which is only safe with a single API instance.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, m *metrics.Metricas) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(m.Middleware())
	r.Use(middleware.RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	// ── Domain plumbing ──────────────────────────────────────────────────────
	reloj := clock.NewNegocio(cfg.ZonaHorariaOffsetHoras)
	clasificador := inventario.NewClasificador(cfg.DiasPorVencer)
	estimador := inventario.NewEstimadorMargen(cfg.Ratios(), cfg.RatioDefault())

	var locker inventario.Locker = inventario.NewLocalLocker()
	if rdb != nil {
		locker = infra.NewRedisLocker(rdb, cfg.LockTTL)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	loteRepo := repository.NewLoteRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	devolucionRepo := repository.NewDevolucionRepository(db)
	ajusteRepo := repository.NewAjusteRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	productoSvc := service.NewProductoService(productoRepo, loteRepo, reloj, rdb)
	loteSvc := service.NewLoteService(loteRepo, productoRepo, movimientoStockRepo, clasificador, reloj)
	inventarioSvc := service.NewInventarioService(productoRepo, loteRepo, movimientoStockRepo, reloj)
	cajaSvc := service.NewCajaService(cajaRepo, reloj)
	ventaSvc := service.NewVentaService(ventaRepo, loteRepo, productoRepo, cajaRepo, movimientoStockRepo, locker, reloj, reloj.Location(), m)
	devolucionSvc := service.NewDevolucionService(devolucionRepo, ventaRepo, loteRepo, cajaRepo, movimientoStockRepo, locker, reloj, m)
	ajusteSvc := service.NewAjusteService(ajusteRepo, loteRepo, productoRepo, movimientoStockRepo, locker, reloj)
	reporteSvc := service.NewReporteService(ventaRepo, loteRepo, productoRepo, estimador, clasificador, reloj, reloj.Location(), m, rdb, cfg.ReportesCacheTTL)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	lotesH := handler.NewLotesHandler(loteSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	ajustesH := handler.NewAjustesHandler(ajusteSvc)
	ventasH := handler.NewVentasHandler(ventaSvc)
	devolucionesH := handler.NewDevolucionesHandler(devolucionSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	reportesH := handler.NewReportesHandler(reporteSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.GET("/metrics", gin.WrapH(m.Handler()))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Price check, no auth required
	r.GET("/v1/precio/:barcode", productosH.GetPrecioPorBarcode)

	todos := middleware.RequireRole(rolCajero, rolSupervisor, rolAdministrador)
	supervision := middleware.RequireRole(rolSupervisor, rolAdministrador)
	admin := middleware.RequireRole(rolAdministrador)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.POST("/ventas", todos, ventasH.RegistrarVenta)
		v1.GET("/ventas", todos, ventasH.ListarVentas)
		v1.GET("/ventas/:id", todos, ventasH.ObtenerVenta)
		v1.POST("/devoluciones", todos, devolucionesH.Registrar)

		v1.GET("/productos", todos, productosH.Listar)
		v1.GET("/productos/:id", todos, productosH.ObtenerPorID)
		v1.GET("/productos/:id/lotes", todos, lotesH.ListarPorProducto)
		prods := v1.Group("/productos", admin)
		{
			prods.POST("", productosH.Crear)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Desactivar)
			prods.PATCH("/:id/reactivar", productosH.Reactivar)
		}

		lotes := v1.Group("/lotes")
		{
			lotes.GET("", todos, lotesH.Listar)
			lotes.GET("/alertas", todos, lotesH.Alertas)
			lotes.GET("/vencidos", todos, lotesH.Vencidos)
			lotes.GET("/resumen", supervision, lotesH.Resumen)
			lotes.GET("/:id", todos, lotesH.Obtener)
			lotes.POST("", admin, lotesH.Crear)
			lotes.PATCH("/:id/ajuste", admin, lotesH.AjustarRestante)
		}

		v1.POST("/ajustes-inventario", supervision, ajustesH.Registrar)
		v1.GET("/ajustes-inventario", supervision, ajustesH.Listar)

		inv := v1.Group("/inventario", supervision)
		{
			inv.GET("/alertas", inventarioH.ObtenerAlertas)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
		}

		caja := v1.Group("/caja", todos)
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.POST("/cerrar", cajaH.Arqueo)
			caja.GET("/activa", cajaH.Activa)
			caja.POST("/movimiento", cajaH.RegistrarMovimiento)
			caja.GET("/:id/reporte", cajaH.GetReporte)
		}

		reportes := v1.Group("/reportes", supervision)
		{
			reportes.GET("/dashboard", reportesH.Dashboard)
			reportes.GET("/margen", reportesH.Margen)
			reportes.GET("/vencimientos", reportesH.Vencimientos)
		}

		usuarios := v1.Group("/usuarios", admin)
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
