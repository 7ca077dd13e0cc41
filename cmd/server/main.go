package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minimarket/internal/clock"
	"minimarket/internal/config"
	"minimarket/internal/infra"
	"minimarket/internal/inventario"
	"minimarket/internal/logger"
	"minimarket/internal/metrics"
	"minimarket/internal/repository"
	"minimarket/internal/router"
	"minimarket/internal/worker"
	"minimarket/migrations"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// @title        Minimarket API
// @version      1.0
// @description  Inventario por lotes con vencimiento, ventas FIFO y caja.
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logger")
	}
	lg := logger.WithComponent("server")

	if cfg.AutoMigrate {
		mg, err := migrations.NewFromURL(cfg.DatabaseURL)
		if err != nil {
			lg.Fatal().Err(err).Msg("failed to init migrations")
		}
		if err := mg.Up(); err != nil {
			lg.Fatal().Err(err).Msg("failed to apply migrations")
		}
		_ = mg.Close()
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			lg.Fatal().Err(err).Msg("failed to connect to redis")
		}
	} else {
		lg.Warn().Msg("REDIS_URL vacio: sin cache, sin cola y con locks en memoria (una sola instancia)")
	}

	m := metrics.New()

	// Background work is wired here, at the composition root.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)
	smtpCB := infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig())
	dispatcher := worker.NewDispatcher(rdb)

	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, map[string]worker.Procesador{
		worker.JobAlertaEmail: worker.NewEmailWorker(mailer, smtpCB).Process,
	})

	cron := worker.VencimientosCronConfig{
		LoteRepo:     repository.NewLoteRepository(db),
		ProductoRepo: repository.NewProductoRepository(db),
		Clasificador: inventario.NewClasificador(cfg.DiasPorVencer),
		Reloj:        clock.NewNegocio(cfg.ZonaHorariaOffsetHoras),
		Metricas:     m,
		RDB:          rdb,
		Destino:      cfg.AlertasEmailDestino,
		Intervalo:    cfg.VencimientosIntervalo,
	}
	if rdb != nil && mailer.Configurado() {
		cron.Cola = dispatcher
	}
	worker.StartVencimientosCron(ctx, cron)

	r := router.New(cfg, db, rdb, m)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		lg.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("minimarket backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("forced shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	lg.Info().Msg("server exited")
}
