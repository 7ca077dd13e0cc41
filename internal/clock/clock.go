// Package clock provides the business-anchored time source.
//
// Every "today" boundary in the service is computed in a fixed UTC offset
// (no daylight saving), never in server-local or client-local time.
package clock

import (
	"fmt"
	"time"
)

const layoutFecha = "2006-01-02"

// Clock returns the current instant and the current business date.
type Clock interface {
	Now() time.Time
	// Hoy returns today's business date as a civil date (00:00 UTC).
	Hoy() time.Time
}

// Negocio is the production Clock anchored to a fixed offset zone.
type Negocio struct {
	zona *time.Location
}

// NewNegocio builds a Clock for a fixed offset expressed in whole hours.
func NewNegocio(offsetHoras int) *Negocio {
	return &Negocio{zona: Zona(offsetHoras)}
}

// Zona returns the fixed-offset location for offsetHoras (e.g. -5 → "UTC-5").
func Zona(offsetHoras int) *time.Location {
	nombre := fmt.Sprintf("UTC%+d", offsetHoras)
	if offsetHoras == 0 {
		nombre = "UTC"
	}
	return time.FixedZone(nombre, offsetHoras*3600)
}

func (n *Negocio) Now() time.Time { return time.Now().In(n.zona) }

func (n *Negocio) Hoy() time.Time { return Fecha(n.Now()) }

// Location exposes the business zone for range queries over timestamps.
func (n *Negocio) Location() *time.Location { return n.zona }

// Fijo is a Clock frozen at a given instant. Used by tests and by the CLI.
type Fijo struct {
	T time.Time
}

func (f Fijo) Now() time.Time { return f.T }

func (f Fijo) Hoy() time.Time { return Fecha(f.T) }

// Fecha truncates t to its civil date in t's own location and returns it as
// midnight UTC, so that two dates can be subtracted without zone drift.
func Fecha(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DiasEntre returns the whole number of calendar days from desde to hasta.
// Time of day never affects the result.
func DiasEntre(desde, hasta time.Time) int {
	return int(Fecha(hasta).Sub(Fecha(desde)).Hours() / 24)
}

// ParseFecha parses a YYYY-MM-DD calendar date.
func ParseFecha(s string) (time.Time, error) {
	t, err := time.Parse(layoutFecha, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha invalida %q: se espera YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatFecha renders a civil date as YYYY-MM-DD.
func FormatFecha(t time.Time) string { return Fecha(t).Format(layoutFecha) }

// InicioDelDia returns the instant the business date fecha begins in loc.
func InicioDelDia(fecha time.Time, loc *time.Location) time.Time {
	y, m, d := fecha.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
