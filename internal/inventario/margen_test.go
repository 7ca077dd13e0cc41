package inventario

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalcular_FallbackForBeverages(t *testing.T) {
	e := NewEstimadorMargen(nil, dec("0.70"))
	m := e.Calcular(LineaVenta{
		ProductoID:     uuid.New(),
		Categoria:      "bebidas",
		Cantidad:       1,
		PrecioUnitario: dec("10.00"),
		CostoUnitario:  decimal.Zero,
	})
	assert.True(t, m.Estimado)
	assert.True(t, dec("6.00").Equal(m.Costo), m.Costo.String())
	assert.True(t, dec("4.00").Equal(m.Margen), m.Margen.String())
}

func TestCalcular_ExactCost(t *testing.T) {
	e := NewEstimadorMargen(nil, dec("0.70"))
	m := e.Calcular(LineaVenta{
		Categoria:      "bebidas",
		Cantidad:       3,
		PrecioUnitario: dec("2.50"),
		CostoUnitario:  dec("1.80"),
	})
	assert.False(t, m.Estimado)
	assert.True(t, dec("7.50").Equal(m.Ingreso))
	assert.True(t, dec("5.40").Equal(m.Costo))
	assert.True(t, dec("2.10").Equal(m.Margen))
}

func TestRatioPara(t *testing.T) {
	e := NewEstimadorMargen(nil, dec("0.70"))
	cases := map[string]string{
		"Bebidas":            "0.60",
		"snacks":             "0.65",
		"Golosinas":          "0.65",
		"ABARROTES":          "0.75",
		"limpieza del hogar": "0.70",
		"higiene personal":   "0.70",
		"panaderia":          "0.70",
	}
	for cat, want := range cases {
		assert.True(t, dec(want).Equal(e.RatioPara(cat)), "%s: %s", cat, e.RatioPara(cat))
	}
}

func TestAgregar_CountsExactAndEstimated(t *testing.T) {
	e := NewEstimadorMargen(nil, dec("0.70"))
	agg := e.Agregar([]LineaVenta{
		{Categoria: "bebidas", Cantidad: 1, PrecioUnitario: dec("10.00")},
		{Categoria: "abarrotes", Cantidad: 2, PrecioUnitario: dec("5.00"), CostoUnitario: dec("4.00")},
	})
	assert.Equal(t, 1, agg.LineasEstimadas)
	assert.Equal(t, 1, agg.LineasExactas)
	assert.True(t, dec("20.00").Equal(agg.Ingresos))
	assert.True(t, dec("14.00").Equal(agg.Costos))
	assert.True(t, dec("6.00").Equal(agg.Margen))
	assert.True(t, dec("30").Equal(agg.MargenPct), agg.MargenPct.String())
	require.Len(t, agg.PorCategoria, 2)
	assert.Equal(t, "bebidas", agg.PorCategoria[0].Categoria)
}

func TestAgregar_ZeroRevenue(t *testing.T) {
	e := NewEstimadorMargen(nil, dec("0.70"))
	agg := e.Agregar(nil)
	assert.True(t, agg.MargenPct.IsZero())
	assert.True(t, agg.Margen.IsZero())
	assert.NotNil(t, agg.PorCategoria)
}

func TestParseRatios(t *testing.T) {
	r, err := ParseRatios("bebida=0.60, Snack=0.65,")
	require.NoError(t, err)
	require.Len(t, r, 2)
	assert.Equal(t, "snack", r[1].Clave)

	_, err = ParseRatios("bebida")
	assert.ErrorContains(t, err, "clave=valor")
	_, err = ParseRatios("bebida=1.2")
	assert.ErrorContains(t, err, "entre 0 y 1")
	_, err = ParseRatios("bebida=abc")
	assert.Error(t, err)
}

func TestNewEstimadorMargen_InvalidDefaultFallsBack(t *testing.T) {
	e := NewEstimadorMargen(nil, dec("1.5"))
	assert.True(t, dec("0.70").Equal(e.RatioPara("desconocida")))
}
