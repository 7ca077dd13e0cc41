package worker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"minimarket/internal/clock"
	"minimarket/internal/inventario"
	"minimarket/internal/logger"
	"minimarket/internal/metrics"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const componenteCron = "vencimientos_cron"

// Encolador is satisfied by *Dispatcher.
type Encolador interface {
	EnqueueAlertaEmail(ctx context.Context, payload AlertaEmailPayload) error
}

// VencimientosCronConfig holds all dependencies for the expiry goroutine.
type VencimientosCronConfig struct {
	LoteRepo     repository.LoteRepository
	ProductoRepo repository.ProductoRepository
	Clasificador inventario.Clasificador
	Reloj        clock.Clock
	Metricas     *metrics.Metricas
	Cola         Encolador
	// RDB dedupes the digest to one per business day. Optional.
	RDB       *redis.Client
	Destino   string
	Intervalo time.Duration
}

// StartVencimientosCron classifies every lot once at start and then on each
// tick, refreshing the expiry gauges and mailing a daily digest.
// It respects the context for graceful shutdown.
func StartVencimientosCron(ctx context.Context, cfg VencimientosCronConfig) {
	if cfg.Intervalo <= 0 {
		cfg.Intervalo = time.Hour
	}
	go func() {
		ticker := time.NewTicker(cfg.Intervalo)
		defer ticker.Stop()

		lg := logger.WithComponent(componenteCron)
		lg.Info().Dur("intervalo", cfg.Intervalo).Msg("started")
		revisar(ctx, cfg)

		for {
			select {
			case <-ctx.Done():
				lg.Info().Msg("shutting down")
				return
			case <-ticker.C:
				revisar(ctx, cfg)
			}
		}
	}()
}

func revisar(ctx context.Context, cfg VencimientosCronConfig) {
	if _, err := RevisarVencimientos(ctx, cfg); err != nil {
		lg := logger.WithComponent(componenteCron)
		lg.Error().Err(err).Msg("revision fallida")
	}
}

// RevisarVencimientos runs one classification pass. It reports whether a
// digest email was enqueued.
func RevisarVencimientos(ctx context.Context, cfg VencimientosCronConfig) (bool, error) {
	lotes, err := cfg.LoteRepo.ListConStock(ctx)
	if err != nil {
		return false, fmt.Errorf("listar lotes: %w", err)
	}
	hoy := cfg.Reloj.Hoy()
	resumen := cfg.Clasificador.Resumir(lotes, hoy)
	cfg.Metricas.Vencimientos(resumen.Vencidos, resumen.PorVencer)

	lg := logger.WithComponent(componenteCron)
	lg.Info().
		Int("vencidos", resumen.Vencidos).
		Int("por_vencer", resumen.PorVencer).
		Str("perdida_estimada", resumen.PerdidaEstimada.StringFixed(2)).
		Msg("lotes clasificados")

	if resumen.Vencidos+resumen.PorVencer == 0 || cfg.Destino == "" || cfg.Cola == nil {
		return false, nil
	}
	clave := claveDigest(hoy)
	if !reservarDigest(ctx, cfg.RDB, clave) {
		return false, nil
	}

	nombres := map[uuid.UUID]string{}
	if cfg.ProductoRepo != nil {
		ids := make([]uuid.UUID, 0, len(lotes))
		for _, l := range lotes {
			ids = append(ids, l.ProductoID)
		}
		if productos, err := cfg.ProductoRepo.FindByIDs(ctx, ids); err == nil {
			for _, p := range productos {
				nombres[p.ID] = p.Nombre
			}
		}
	}

	payload := AlertaEmailPayload{
		Para:   strings.Split(cfg.Destino, ","),
		Asunto: fmt.Sprintf("Vencimientos %s: %d vencidos, %d por vencer", clock.FormatFecha(hoy), resumen.Vencidos, resumen.PorVencer),
		Texto:  digest(lotes, nombres, cfg.Clasificador, hoy, resumen),
	}
	if err := cfg.Cola.EnqueueAlertaEmail(ctx, payload); err != nil {
		liberarDigest(ctx, cfg.RDB, clave)
		return false, fmt.Errorf("encolar alerta: %w", err)
	}
	return true, nil
}

func claveDigest(hoy time.Time) string {
	return "alertas:vencimientos:" + clock.FormatFecha(hoy)
}

// reservarDigest claims today's digest slot in Redis. Without Redis every
// pass sends.
func reservarDigest(ctx context.Context, rdb *redis.Client, clave string) bool {
	if rdb == nil {
		return true
	}
	ok, err := rdb.SetNX(ctx, clave, 1, 36*time.Hour).Result()
	if err != nil {
		lg := logger.WithComponent(componenteCron)
		lg.Warn().Err(err).Msg("dedupe no disponible")
		return true
	}
	return ok
}

// liberarDigest gives the slot back so the next pass retries the digest.
func liberarDigest(ctx context.Context, rdb *redis.Client, clave string) {
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, clave).Err(); err != nil {
		lg := logger.WithComponent(componenteCron)
		lg.Warn().Err(err).Str("clave", clave).Msg("no se pudo liberar el digest del dia")
	}
}

func digest(lotes []model.Lote, nombres map[uuid.UUID]string, c inventario.Clasificador, hoy time.Time, r inventario.Resumen) string {
	var vencidos, porVencer []string
	for _, l := range lotes {
		nombre := nombres[l.ProductoID]
		if nombre == "" {
			nombre = l.ProductoID.String()
		}
		linea := fmt.Sprintf("- %s (%s): %d u, vence %s", nombre, l.CodigoLote, l.CantidadRestante, clock.FormatFecha(l.FechaVencimiento))
		switch c.Clasificar(l, hoy) {
		case inventario.EstadoVencido:
			vencidos = append(vencidos, linea)
		case inventario.EstadoPorVencer:
			porVencer = append(porVencer, linea)
		}
	}
	sort.Strings(vencidos)
	sort.Strings(porVencer)

	var b strings.Builder
	fmt.Fprintf(&b, "Resumen de vencimientos al %s\n\n", clock.FormatFecha(hoy))
	if len(vencidos) > 0 {
		fmt.Fprintf(&b, "Vencidos (%d), perdida estimada %s:\n%s\n\n", len(vencidos), r.PerdidaEstimada.StringFixed(2), strings.Join(vencidos, "\n"))
	}
	if len(porVencer) > 0 {
		fmt.Fprintf(&b, "Por vencer en %d dias (%d):\n%s\n", c.DiasPorVencer, len(porVencer), strings.Join(porVencer, "\n"))
	}
	return b.String()
}
