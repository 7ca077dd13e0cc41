package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"minimarket/internal/dto"
	"minimarket/internal/inventario"
	"minimarket/internal/model"
	"minimarket/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// In-memory repositories. DB() returns nil so services run their transaction
// bodies directly. Every stub is safe for concurrent use.

type stubProductoRepo struct {
	mu        sync.Mutex
	productos map[uuid.UUID]model.Producto
}

func newStubProductoRepo(ps ...model.Producto) *stubProductoRepo {
	r := &stubProductoRepo{productos: make(map[uuid.UUID]model.Producto)}
	for _, p := range ps {
		r.productos[p.ID] = p
	}
	return r
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.productos {
		if existing.CodigoBarras == p.CodigoBarras {
			return gorm.ErrDuplicatedKey
		}
	}
	r.productos[p.ID] = *p
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *stubProductoRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Producto
	for _, id := range ids {
		if p, ok := r.productos[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProductoRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubProductoRepo) FindByBarcode(_ context.Context, barcode string) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.productos {
		if p.CodigoBarras == barcode && p.Activo {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductoRepo) List(_ context.Context, _ dto.ProductoFilter) ([]model.Producto, int64, error) {
	ps, _ := r.ListActivos(context.Background())
	return ps, int64(len(ps)), nil
}

func (r *stubProductoRepo) ListActivos(_ context.Context) ([]model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Producto
	for _, p := range r.productos {
		if p.Activo {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (r *stubProductoRepo) Update(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.productos[p.ID] = *p
	return nil
}

func (r *stubProductoRepo) SetActivo(_ context.Context, id uuid.UUID, activo bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Activo = activo
	r.productos[id] = p
	return nil
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

type stubLoteRepo struct {
	mu    sync.Mutex
	lotes map[uuid.UUID]model.Lote
	// descontarFalla makes DescontarTx report a lost race.
	descontarFalla bool
}

func newStubLoteRepo(ls ...model.Lote) *stubLoteRepo {
	r := &stubLoteRepo{lotes: make(map[uuid.UUID]model.Lote)}
	for _, l := range ls {
		r.lotes[l.ID] = l
	}
	return r
}

func (r *stubLoteRepo) DB() *gorm.DB { return nil }

func (r *stubLoteRepo) Create(_ context.Context, _ *gorm.DB, l *model.Lote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lotes[l.ID] = *l
	return nil
}

func (r *stubLoteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Lote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

func (r *stubLoteRepo) filtrar(keep func(model.Lote) bool) []model.Lote {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Lote
	for _, l := range r.lotes {
		if keep(l) {
			out = append(out, l)
		}
	}
	inventario.OrdenarFIFO(out)
	return out
}

func (r *stubLoteRepo) ListByProducto(_ context.Context, productoID uuid.UUID) ([]model.Lote, error) {
	return r.filtrar(func(l model.Lote) bool { return l.ProductoID == productoID }), nil
}

func (r *stubLoteRepo) ListByProductos(_ context.Context, ids []uuid.UUID) ([]model.Lote, error) {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return r.filtrar(func(l model.Lote) bool { return set[l.ProductoID] }), nil
}

func (r *stubLoteRepo) List(_ context.Context, f repository.LoteFilter) ([]model.Lote, int64, error) {
	out := r.filtrar(func(l model.Lote) bool {
		if f.ProductoID != nil && l.ProductoID != *f.ProductoID {
			return false
		}
		if f.ConStock && l.CantidadRestante <= 0 {
			return false
		}
		if f.VenceDespuesDe != nil && !l.FechaVencimiento.After(*f.VenceDespuesDe) {
			return false
		}
		if f.VenceHasta != nil && l.FechaVencimiento.After(*f.VenceHasta) {
			return false
		}
		return true
	})
	total := int64(len(out))
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	desde := (page - 1) * limit
	if desde >= len(out) {
		return nil, total, nil
	}
	return out[desde:min(desde+limit, len(out))], total, nil
}

func (r *stubLoteRepo) ListConStockEntre(_ context.Context, despuesDe *time.Time, hasta time.Time) ([]model.Lote, error) {
	return r.filtrar(func(l model.Lote) bool {
		if l.CantidadRestante <= 0 || l.FechaVencimiento.After(hasta) {
			return false
		}
		return despuesDe == nil || l.FechaVencimiento.After(*despuesDe)
	}), nil
}

func (r *stubLoteRepo) ListConStock(_ context.Context) ([]model.Lote, error) {
	return r.filtrar(func(l model.Lote) bool { return l.CantidadRestante > 0 }), nil
}

func (r *stubLoteRepo) ListAll(_ context.Context) ([]model.Lote, error) {
	return r.filtrar(func(model.Lote) bool { return true }), nil
}

func (r *stubLoteRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Lote, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubLoteRepo) FindByIDsForUpdateTx(_ *gorm.DB, ids []uuid.UUID) ([]model.Lote, error) {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return r.filtrar(func(l model.Lote) bool { return set[l.ID] }), nil
}

func (r *stubLoteRepo) ListByProductoForUpdateTx(_ *gorm.DB, productoID uuid.UUID) ([]model.Lote, error) {
	return r.ListByProducto(context.Background(), productoID)
}

func (r *stubLoteRepo) DescontarTx(_ *gorm.DB, id uuid.UUID, cantidad int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotes[id]
	if !ok || r.descontarFalla || l.CantidadRestante < cantidad {
		return false, nil
	}
	l.CantidadRestante -= cantidad
	r.lotes[id] = l
	return true, nil
}

func (r *stubLoteRepo) ActualizarRestanteTx(_ *gorm.DB, id uuid.UUID, restante int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.CantidadRestante = restante
	r.lotes[id] = l
	return nil
}

func (r *stubLoteRepo) restante(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lotes[id].CantidadRestante
}

var _ repository.LoteRepository = (*stubLoteRepo)(nil)

type stubVentaRepo struct {
	mu        sync.Mutex
	ventas    map[uuid.UUID]*model.Venta
	ticketSeq int
}

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

func (r *stubVentaRepo) Create(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.ventas[v.ID] = &cp
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *stubVentaRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubVentaRepo) MarcarDevueltaTx(_ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v.Devuelta = true
	v.Estado = "devuelta"
	return nil
}

func (r *stubVentaRepo) NextTicketNumber(_ context.Context, _ *gorm.DB) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticketSeq++
	return r.ticketSeq, nil
}

func (r *stubVentaRepo) List(_ context.Context, f repository.VentaListFilter) ([]model.Venta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if !v.CreatedAt.Before(f.Desde) && v.CreatedAt.Before(f.Hasta) {
			out = append(out, *v)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubVentaRepo) ListItemsEntre(_ context.Context, desde, hasta time.Time) ([]model.VentaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VentaItem
	for _, v := range r.ventas {
		if v.Devuelta || v.CreatedAt.Before(desde) || !v.CreatedAt.Before(hasta) {
			continue
		}
		out = append(out, v.Items...)
	}
	return out, nil
}

func (r *stubVentaRepo) ResumenEntre(_ context.Context, desde, hasta time.Time) (repository.ResumenVentas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := repository.ResumenVentas{Total: decimal.Zero}
	for _, v := range r.ventas {
		if v.Devuelta || v.CreatedAt.Before(desde) || !v.CreatedAt.Before(hasta) {
			continue
		}
		res.Cantidad++
		res.Total = res.Total.Add(v.Total)
	}
	return res, nil
}

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

type stubCajaRepo struct {
	mu          sync.Mutex
	sesiones    map[uuid.UUID]*model.SesionCaja
	movimientos []model.MovimientoCaja
}

func newStubCajaRepo() *stubCajaRepo {
	return &stubCajaRepo{sesiones: make(map[uuid.UUID]*model.SesionCaja)}
}

// abrir seeds an open session for usuarioID.
func (r *stubCajaRepo) abrir(usuarioID uuid.UUID, inicial decimal.Decimal) *model.SesionCaja {
	s := &model.SesionCaja{ID: uuid.New(), PuntoDeVenta: 1, UsuarioID: usuarioID, MontoInicial: inicial, Estado: "abierta"}
	r.mu.Lock()
	r.sesiones[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *stubCajaRepo) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sesiones[s.ID] = &cp
	return nil
}

func (r *stubCajaRepo) FindSesionAbiertaPorUsuario(_ context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && s.Estado == "abierta" {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubCajaRepo) UpdateSesion(_ context.Context, s *model.SesionCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sesiones[s.ID] = &cp
	return nil
}

func (r *stubCajaRepo) CreateMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	return r.CreateMovimientoTx(nil, m)
}

func (r *stubCajaRepo) CreateMovimientoTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubCajaRepo) ListMovimientos(_ context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.SesionCajaID == sesionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubCajaRepo) SumMovimientosByMetodo(ctx context.Context, sesionID uuid.UUID) (map[string]decimal.Decimal, error) {
	movs, _ := r.ListMovimientos(ctx, sesionID)
	sums := make(map[string]decimal.Decimal)
	for _, m := range movs {
		metodo := "efectivo"
		if m.MetodoPago != nil {
			metodo = *m.MetodoPago
		}
		sums[metodo] = sums[metodo].Add(m.Monto)
	}
	return sums, nil
}

var _ repository.CajaRepository = (*stubCajaRepo)(nil)

type stubMovRepo struct {
	mu          sync.Mutex
	movimientos []model.MovimientoStock
}

func (r *stubMovRepo) CreateTx(_ *gorm.DB, m *model.MovimientoStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubMovRepo) List(_ context.Context, f repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if f.ProductoID != nil && m.ProductoID != *f.ProductoID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMovRepo) porTipo(tipo string) []model.MovimientoStock {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if m.Tipo == tipo {
			out = append(out, m)
		}
	}
	return out
}

var _ repository.MovimientoStockRepository = (*stubMovRepo)(nil)

type stubDevolucionRepo struct {
	mu           sync.Mutex
	devoluciones []model.Devolucion
}

func (r *stubDevolucionRepo) CreateTx(_ *gorm.DB, d *model.Devolucion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devoluciones = append(r.devoluciones, *d)
	return nil
}

func (r *stubDevolucionRepo) FindByVentaID(_ context.Context, ventaID uuid.UUID) (*model.Devolucion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devoluciones {
		if d.VentaID == ventaID {
			cp := d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

var _ repository.DevolucionRepository = (*stubDevolucionRepo)(nil)

type stubAjusteRepo struct {
	mu      sync.Mutex
	ajustes []model.AjusteInventario
}

func (r *stubAjusteRepo) CreateTx(_ *gorm.DB, a *model.AjusteInventario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ajustes = append(r.ajustes, *a)
	return nil
}

func (r *stubAjusteRepo) List(_ context.Context, _ repository.AjusteFilter) ([]model.AjusteInventario, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]model.AjusteInventario(nil), r.ajustes...)
	return out, int64(len(out)), nil
}

var _ repository.AjusteRepository = (*stubAjusteRepo)(nil)

type stubUsuarioRepo struct {
	mu       sync.Mutex
	usuarios map[uuid.UUID]model.Usuario
}

func newStubUsuarioRepo() *stubUsuarioRepo {
	return &stubUsuarioRepo{usuarios: make(map[uuid.UUID]model.Usuario)}
}

func (r *stubUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.usuarios {
		if existing.Username == u.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	r.usuarios[u.ID] = *u
	return nil
}

func (r *stubUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usuarios {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *stubUsuarioRepo) List(ctx context.Context) ([]model.Usuario, error) {
	all, _ := r.ListAll(ctx)
	var out []model.Usuario
	for _, u := range all {
		if u.Activo {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stubUsuarioRepo) ListAll(_ context.Context) ([]model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Usuario
	for _, u := range r.usuarios {
		out = append(out, u)
	}
	return out, nil
}

func (r *stubUsuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usuarios[u.ID] = *u
	return nil
}

func (r *stubUsuarioRepo) SetActivo(_ context.Context, id uuid.UUID, activo bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usuarios[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Activo = activo
	r.usuarios[id] = u
	return nil
}

var _ repository.UsuarioRepository = (*stubUsuarioRepo)(nil)

// ── Fixtures ──────────────────────────────────────────────────────────────────

// hoyFijo is 2025-03-10 12:00 in UTC-5.
var hoyFijo = time.Date(2025, 3, 10, 12, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))

func fecha(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func nuevoProducto(nombre, categoria, precio string) model.Producto {
	return model.Producto{
		ID:           uuid.New(),
		CodigoBarras: "779" + uuid.NewString()[:8],
		Nombre:       nombre,
		Categoria:    categoria,
		PrecioVenta:  decimal.RequireFromString(precio),
		StockMinimo:  5,
		UnidadMedida: "unidad",
		Activo:       true,
	}
}

func nuevoLote(productoID uuid.UUID, cantidad, restante int, vence, costo string) model.Lote {
	return model.Lote{
		ID:               uuid.New(),
		CodigoLote:       "L-" + uuid.NewString()[:8],
		ProductoID:       productoID,
		CantidadInicial:  cantidad,
		CantidadRestante: restante,
		FechaVencimiento: fecha(vence),
		PrecioCompra:     decimal.RequireFromString(costo),
		FechaIngreso:     hoyFijo.AddDate(0, 0, -30),
	}
}
