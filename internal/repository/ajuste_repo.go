package repository

import (
	"context"

	"minimarket/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AjusteFilter struct {
	ProductoID *uuid.UUID
	Page       int
	Limit      int
}

type AjusteRepository interface {
	CreateTx(tx *gorm.DB, a *model.AjusteInventario) error
	List(ctx context.Context, filter AjusteFilter) ([]model.AjusteInventario, int64, error)
}

type ajusteRepo struct{ db *gorm.DB }

func NewAjusteRepository(db *gorm.DB) AjusteRepository { return &ajusteRepo{db: db} }

func (r *ajusteRepo) CreateTx(tx *gorm.DB, a *model.AjusteInventario) error {
	return tx.Create(a).Error
}

func (r *ajusteRepo) List(ctx context.Context, filter AjusteFilter) ([]model.AjusteInventario, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AjusteInventario{})
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit, 50, 200)
	var ajustes []model.AjusteInventario
	err := q.Preload("Producto").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&ajustes).Error
	return ajustes, total, err
}
