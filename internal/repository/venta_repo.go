package repository

import (
	"context"
	"time"

	"minimarket/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VentaListFilter selects sales created in [Desde, Hasta).
type VentaListFilter struct {
	Desde time.Time
	Hasta time.Time
	Page  int
	Limit int
}

// ResumenVentas is the count and revenue of non-returned sales in a range.
type ResumenVentas struct {
	Cantidad int64
	Total    decimal.Decimal
}

type VentaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// FindByIDForUpdateTx locks the venta row and loads items with allocations.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	MarcarDevueltaTx(tx *gorm.DB, id uuid.UUID) error
	NextTicketNumber(ctx context.Context, tx *gorm.DB) (int, error)
	List(ctx context.Context, filter VentaListFilter) ([]model.Venta, int64, error)
	// ListItemsEntre returns lines of non-returned sales with their product.
	ListItemsEntre(ctx context.Context, desde, hasta time.Time) ([]model.VentaItem, error)
	ResumenEntre(ctx context.Context, desde, hasta time.Time) (ResumenVentas, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return tx.WithContext(ctx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Items.Producto").Preload("Items.Lotes").
		First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Preload("Lotes").Where("venta_id = ?", v.ID).Find(&v.Items).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) MarcarDevueltaTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&model.Venta{}).Where("id = ?", id).Updates(map[string]interface{}{
		"devuelta": true,
		"estado":   "devuelta",
	}).Error
}

func (r *ventaRepo) NextTicketNumber(ctx context.Context, tx *gorm.DB) (int, error) {
	// Uses a PostgreSQL sequence for atomic ticket number generation
	var num int
	err := tx.WithContext(ctx).Raw("SELECT nextval('ventas_numero_ticket_seq')").Scan(&num).Error
	return num, err
}

func (r *ventaRepo) List(ctx context.Context, filter VentaListFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("created_at >= ? AND created_at < ?", filter.Desde, filter.Hasta)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit, 50, 200)
	err := q.Preload("Items.Producto").Preload("Items.Lotes").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&ventas).Error

	return ventas, total, err
}

func (r *ventaRepo) ListItemsEntre(ctx context.Context, desde, hasta time.Time) ([]model.VentaItem, error) {
	var items []model.VentaItem
	err := r.db.WithContext(ctx).
		Joins("JOIN ventas ON ventas.id = venta_items.venta_id").
		Where("ventas.devuelta = false AND ventas.created_at >= ? AND ventas.created_at < ?", desde, hasta).
		Preload("Producto").
		Find(&items).Error
	return items, err
}

func (r *ventaRepo) ResumenEntre(ctx context.Context, desde, hasta time.Time) (ResumenVentas, error) {
	var res ResumenVentas
	err := r.db.WithContext(ctx).Model(&model.Venta{}).
		Select("COUNT(*) AS cantidad, COALESCE(SUM(total), 0) AS total").
		Where("devuelta = false AND created_at >= ? AND created_at < ?", desde, hasta).
		Scan(&res).Error
	return res, err
}
