package repository

import (
	"context"
	"time"

	"minimarket/internal/clock"
	"minimarket/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fifoOrder is the total order used by every lot listing.
const fifoOrder = "fecha_vencimiento ASC, fecha_ingreso ASC, id ASC"

// LoteFilter narrows lot listings. Dates are civil dates compared against
// fecha_vencimiento; VenceDespuesDe is exclusive, VenceHasta inclusive.
type LoteFilter struct {
	ProductoID     *uuid.UUID
	ConStock       bool
	VenceDespuesDe *time.Time
	VenceHasta     *time.Time
	Page           int
	Limit          int
}

type LoteRepository interface {
	Create(ctx context.Context, tx *gorm.DB, l *model.Lote) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lote, error)
	ListByProducto(ctx context.Context, productoID uuid.UUID) ([]model.Lote, error)
	ListByProductos(ctx context.Context, productoIDs []uuid.UUID) ([]model.Lote, error)
	List(ctx context.Context, filter LoteFilter) ([]model.Lote, int64, error)
	// ListConStock returns every lot with remaining quantity, all products.
	ListConStock(ctx context.Context) ([]model.Lote, error)
	// ListConStockEntre returns every lot with stock expiring in
	// (despuesDe, hasta]; a nil despuesDe leaves the range open below.
	ListConStockEntre(ctx context.Context, despuesDe *time.Time, hasta time.Time) ([]model.Lote, error)
	ListAll(ctx context.Context) ([]model.Lote, error)

	// Row-locking variants, used inside a transaction.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Lote, error)
	FindByIDsForUpdateTx(tx *gorm.DB, ids []uuid.UUID) ([]model.Lote, error)
	ListByProductoForUpdateTx(tx *gorm.DB, productoID uuid.UUID) ([]model.Lote, error)

	// DescontarTx subtracts cantidad only if the lot still holds it. It
	// reports false when no row matched, meaning a concurrent writer won.
	DescontarTx(tx *gorm.DB, id uuid.UUID, cantidad int) (bool, error)
	ActualizarRestanteTx(tx *gorm.DB, id uuid.UUID, restante int) error

	DB() *gorm.DB
}

type loteRepo struct{ db *gorm.DB }

func NewLoteRepository(db *gorm.DB) LoteRepository { return &loteRepo{db: db} }

func (r *loteRepo) DB() *gorm.DB { return r.db }

func (r *loteRepo) Create(ctx context.Context, tx *gorm.DB, l *model.Lote) error {
	return tx.WithContext(ctx).Create(l).Error
}

func (r *loteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	if err := r.db.WithContext(ctx).Preload("Producto").First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *loteRepo) ListByProducto(ctx context.Context, productoID uuid.UUID) ([]model.Lote, error) {
	var lotes []model.Lote
	err := r.db.WithContext(ctx).Where("producto_id = ?", productoID).Order(fifoOrder).Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) ListByProductos(ctx context.Context, productoIDs []uuid.UUID) ([]model.Lote, error) {
	var lotes []model.Lote
	if len(productoIDs) == 0 {
		return lotes, nil
	}
	err := r.db.WithContext(ctx).Where("producto_id IN ?", productoIDs).Order(fifoOrder).Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) List(ctx context.Context, filter LoteFilter) ([]model.Lote, int64, error) {
	q := aplicarFiltroLotes(r.db.WithContext(ctx).Model(&model.Lote{}), filter)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit, 50, 500)
	var lotes []model.Lote
	err := q.Preload("Producto").Order(fifoOrder).Offset((page - 1) * limit).Limit(limit).Find(&lotes).Error
	return lotes, total, err
}

func (r *loteRepo) ListConStockEntre(ctx context.Context, despuesDe *time.Time, hasta time.Time) ([]model.Lote, error) {
	q := aplicarFiltroLotes(r.db.WithContext(ctx).Model(&model.Lote{}), LoteFilter{
		ConStock:       true,
		VenceDespuesDe: despuesDe,
		VenceHasta:     &hasta,
	})
	var lotes []model.Lote
	err := q.Preload("Producto").Order(fifoOrder).Find(&lotes).Error
	return lotes, err
}

func aplicarFiltroLotes(q *gorm.DB, filter LoteFilter) *gorm.DB {
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.ConStock {
		q = q.Where("cantidad_restante > 0")
	}
	if filter.VenceDespuesDe != nil {
		q = q.Where("fecha_vencimiento > CAST(? AS DATE)", clock.FormatFecha(*filter.VenceDespuesDe))
	}
	if filter.VenceHasta != nil {
		q = q.Where("fecha_vencimiento <= CAST(? AS DATE)", clock.FormatFecha(*filter.VenceHasta))
	}
	return q
}

func (r *loteRepo) ListConStock(ctx context.Context) ([]model.Lote, error) {
	var lotes []model.Lote
	err := r.db.WithContext(ctx).Preload("Producto").
		Where("cantidad_restante > 0").Order(fifoOrder).Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) ListAll(ctx context.Context) ([]model.Lote, error) {
	var lotes []model.Lote
	err := r.db.WithContext(ctx).Order(fifoOrder).Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *loteRepo) FindByIDsForUpdateTx(tx *gorm.DB, ids []uuid.UUID) ([]model.Lote, error) {
	var lotes []model.Lote
	if len(ids) == 0 {
		return lotes, nil
	}
	// Lock in id order so two returns touching the same lots cannot deadlock.
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).Order("id ASC").Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) ListByProductoForUpdateTx(tx *gorm.DB, productoID uuid.UUID) ([]model.Lote, error) {
	var lotes []model.Lote
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("producto_id = ?", productoID).Order(fifoOrder).Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) DescontarTx(tx *gorm.DB, id uuid.UUID, cantidad int) (bool, error) {
	res := tx.Model(&model.Lote{}).
		Where("id = ? AND cantidad_restante >= ?", id, cantidad).
		Updates(map[string]interface{}{
			"cantidad_restante": gorm.Expr("cantidad_restante - ?", cantidad),
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *loteRepo) ActualizarRestanteTx(tx *gorm.DB, id uuid.UUID, restante int) error {
	return tx.Model(&model.Lote{}).Where("id = ?", id).Updates(map[string]interface{}{
		"cantidad_restante": restante,
		"updated_at":        time.Now().UTC(),
	}).Error
}
