package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 7, cfg.DiasPorVencer)
	assert.Equal(t, -5, cfg.ZonaHorariaOffsetHoras)
	assert.Equal(t, time.Hour, cfg.VencimientosIntervalo)
	assert.Equal(t, "dev-secret-change-me", cfg.JWTSecret)
	require.Len(t, cfg.Ratios(), 6)
	assert.Equal(t, "bebida", cfg.Ratios()[0].Clave)
	assert.True(t, decimal.RequireFromString("0.70").Equal(cfg.RatioDefault()))

	_, offset := time.Date(2025, 7, 1, 12, 0, 0, 0, cfg.Zona()).Zone()
	assert.Equal(t, -5*3600, offset)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DIAS_POR_VENCER", "3")
	t.Setenv("RATIOS_COSTO", "lacteo=0.80")
	t.Setenv("VENCIMIENTOS_INTERVALO", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.DiasPorVencer)
	assert.Equal(t, 15*time.Minute, cfg.VencimientosIntervalo)
	require.Len(t, cfg.Ratios(), 1)
	assert.Equal(t, "lacteo", cfg.Ratios()[0].Clave)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"horizonte":     {"DIAS_POR_VENCER", "0"},
		"ratio":         {"RATIOS_COSTO", "bebida=1.5"},
		"ratio default": {"RATIO_COSTO_DEFAULT", "0"},
		"zona":          {"ZONA_HORARIA_OFFSET_HORAS", "20"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}
