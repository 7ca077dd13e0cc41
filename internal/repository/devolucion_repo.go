package repository

import (
	"context"

	"minimarket/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DevolucionRepository interface {
	CreateTx(tx *gorm.DB, d *model.Devolucion) error
	FindByVentaID(ctx context.Context, ventaID uuid.UUID) (*model.Devolucion, error)
}

type devolucionRepo struct{ db *gorm.DB }

func NewDevolucionRepository(db *gorm.DB) DevolucionRepository { return &devolucionRepo{db: db} }

func (r *devolucionRepo) CreateTx(tx *gorm.DB, d *model.Devolucion) error {
	return tx.Create(d).Error
}

func (r *devolucionRepo) FindByVentaID(ctx context.Context, ventaID uuid.UUID) (*model.Devolucion, error) {
	var d model.Devolucion
	if err := r.db.WithContext(ctx).Where("venta_id = ?", ventaID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
