package inventario

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RatioCategoria maps a category keyword to the share of the sale price that
// is assumed to be purchase cost when the real cost is unknown.
type RatioCategoria struct {
	Clave string
	Ratio decimal.Decimal
}

var ratioDefault = decimal.RequireFromString("0.70")

// RatiosPorDefecto is the built-in keyword table. First match wins.
func RatiosPorDefecto() []RatioCategoria {
	return []RatioCategoria{
		{Clave: "bebida", Ratio: decimal.RequireFromString("0.60")},
		{Clave: "snack", Ratio: decimal.RequireFromString("0.65")},
		{Clave: "golosina", Ratio: decimal.RequireFromString("0.65")},
		{Clave: "abarrote", Ratio: decimal.RequireFromString("0.75")},
		{Clave: "limpieza", Ratio: decimal.RequireFromString("0.70")},
		{Clave: "higiene", Ratio: decimal.RequireFromString("0.70")},
	}
}

// ParseRatios reads "clave=ratio,clave=ratio". Every ratio must be in (0, 1).
func ParseRatios(s string) ([]RatioCategoria, error) {
	var out []RatioCategoria
	for _, par := range strings.Split(s, ",") {
		par = strings.TrimSpace(par)
		if par == "" {
			continue
		}
		clave, valor, ok := strings.Cut(par, "=")
		if !ok {
			return nil, fmt.Errorf("ratio de costo mal formado %q: se espera clave=valor", par)
		}
		ratio, err := decimal.NewFromString(strings.TrimSpace(valor))
		if err != nil {
			return nil, fmt.Errorf("ratio de costo %q: %w", par, err)
		}
		if err := ValidarRatio(ratio); err != nil {
			return nil, fmt.Errorf("ratio de costo %q: %w", par, err)
		}
		out = append(out, RatioCategoria{Clave: strings.ToLower(strings.TrimSpace(clave)), Ratio: ratio})
	}
	return out, nil
}

func ValidarRatio(r decimal.Decimal) error {
	if !r.IsPositive() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("debe estar entre 0 y 1 (exclusivo), recibido %s", r)
	}
	return nil
}

// LineaVenta is the input of a margin computation.
type LineaVenta struct {
	ProductoID     uuid.UUID
	Categoria      string
	Cantidad       int
	PrecioUnitario decimal.Decimal
	// CostoUnitario is the cost snapshotted at sale time; zero means unknown.
	CostoUnitario decimal.Decimal
}

// Margen is the gross profit of one line.
type Margen struct {
	Ingreso       decimal.Decimal
	Costo         decimal.Decimal
	Margen        decimal.Decimal
	CostoUnitario decimal.Decimal
	// Estimado is true when the cost came from the category ratio table.
	Estimado bool
}

// EstimadorMargen computes per-line and aggregate gross margins.
type EstimadorMargen struct {
	ratios     []RatioCategoria
	porDefecto decimal.Decimal
}

func NewEstimadorMargen(ratios []RatioCategoria, porDefecto decimal.Decimal) *EstimadorMargen {
	if len(ratios) == 0 {
		ratios = RatiosPorDefecto()
	}
	if ValidarRatio(porDefecto) != nil {
		porDefecto = ratioDefault
	}
	return &EstimadorMargen{ratios: ratios, porDefecto: porDefecto}
}

// RatioPara returns the cost ratio for a category by keyword containment.
func (e *EstimadorMargen) RatioPara(categoria string) decimal.Decimal {
	c := strings.ToLower(categoria)
	for _, r := range e.ratios {
		if strings.Contains(c, r.Clave) {
			return r.Ratio
		}
	}
	return e.porDefecto
}

// Calcular prefers the snapshotted cost and falls back to price × ratio.
// Fallbacks are logged; they are never presented as exact.
func (e *EstimadorMargen) Calcular(l LineaVenta) Margen {
	cant := decimal.NewFromInt(int64(l.Cantidad))
	m := Margen{
		Ingreso:       l.PrecioUnitario.Mul(cant),
		CostoUnitario: l.CostoUnitario,
	}
	if !l.CostoUnitario.IsPositive() {
		ratio := e.RatioPara(l.Categoria)
		m.CostoUnitario = l.PrecioUnitario.Mul(ratio)
		m.Estimado = true
		log.Warn().
			Str("producto_id", l.ProductoID.String()).
			Str("categoria", l.Categoria).
			Str("ratio", ratio.String()).
			Msg("margen estimado por ratio de categoria")
	}
	m.Costo = m.CostoUnitario.Mul(cant)
	m.Margen = m.Ingreso.Sub(m.Costo)
	return m
}

// MargenCategoria is the aggregate of one category.
type MargenCategoria struct {
	Categoria string          `json:"categoria"`
	Ingresos  decimal.Decimal `json:"ingresos"`
	Costos    decimal.Decimal `json:"costos"`
	Margen    decimal.Decimal `json:"margen"`
}

// MargenAgregado sums margins over many lines and reports data quality.
type MargenAgregado struct {
	Ingresos        decimal.Decimal   `json:"total_ingresos"`
	Costos          decimal.Decimal   `json:"total_costo"`
	Margen          decimal.Decimal   `json:"margen_total"`
	MargenPct       decimal.Decimal   `json:"margen_pct"`
	LineasExactas   int               `json:"lineas_exactas"`
	LineasEstimadas int               `json:"lineas_estimadas"`
	PorCategoria    []MargenCategoria `json:"por_categoria"`
}

// Agregar computes total margin and margin percentage (0 when revenue is 0).
// PorCategoria keeps first-seen order.
func (e *EstimadorMargen) Agregar(lineas []LineaVenta) MargenAgregado {
	agg := MargenAgregado{
		Ingresos:     decimal.Zero,
		Costos:       decimal.Zero,
		Margen:       decimal.Zero,
		MargenPct:    decimal.Zero,
		PorCategoria: []MargenCategoria{},
	}
	idx := make(map[string]int)
	for _, l := range lineas {
		m := e.Calcular(l)
		agg.Ingresos = agg.Ingresos.Add(m.Ingreso)
		agg.Costos = agg.Costos.Add(m.Costo)
		agg.Margen = agg.Margen.Add(m.Margen)
		if m.Estimado {
			agg.LineasEstimadas++
		} else {
			agg.LineasExactas++
		}

		i, ok := idx[l.Categoria]
		if !ok {
			i = len(agg.PorCategoria)
			idx[l.Categoria] = i
			agg.PorCategoria = append(agg.PorCategoria, MargenCategoria{
				Categoria: l.Categoria, Ingresos: decimal.Zero, Costos: decimal.Zero, Margen: decimal.Zero,
			})
		}
		c := &agg.PorCategoria[i]
		c.Ingresos = c.Ingresos.Add(m.Ingreso)
		c.Costos = c.Costos.Add(m.Costo)
		c.Margen = c.Margen.Add(m.Margen)
	}
	if !agg.Ingresos.IsZero() {
		agg.MargenPct = agg.Margen.Div(agg.Ingresos).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return agg
}
