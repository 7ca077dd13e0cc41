package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"minimarket/internal/inventario"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const isoLayout = "2006-01-02T15:04:05Z07:00"

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// noEncontrado maps gorm's missing-row error to the domain error and leaves
// anything else untouched.
func noEncontrado(err error, recurso string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", recurso, inventario.ErrNoEncontrado)
	}
	return err
}

func parseID(campo, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, inventario.Validacion(campo, "identificador invalido")
	}
	return id, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(isoLayout) }

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
