package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"minimarket/internal/dto"
	"minimarket/internal/handler"
	"minimarket/internal/inventario"
	"minimarket/internal/middleware"
	"minimarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeVentaSvc struct {
	err       error
	usuarioID uuid.UUID
	req       dto.RegistrarVentaRequest
}

func (f *fakeVentaSvc) Registrar(_ context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	f.usuarioID, f.req = usuarioID, req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.VentaResponse{ID: uuid.NewString(), NumeroTicket: 1}, nil
}

func (f *fakeVentaSvc) Obtener(_ context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.VentaResponse{ID: id.String()}, nil
}

func (f *fakeVentaSvc) Listar(_ context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	return &dto.VentaListResponse{Page: filter.Page, Limit: filter.Limit}, f.err
}

type fakeDevolucionSvc struct{ err error }

func (f *fakeDevolucionSvc) Registrar(context.Context, uuid.UUID, dto.DevolucionRequest) (*dto.DevolucionResponse, error) {
	return nil, f.err
}

type fakeLoteSvc struct {
	service.LoteService
	dias int
}

func (f *fakeLoteSvc) Alertas(_ context.Context, dias int) (*dto.AlertasLotesResponse, error) {
	f.dias = dias
	return &dto.AlertasLotesResponse{Dias: dias}, nil
}

type fakeCajaSvc struct {
	service.CajaService
	err error
}

func (f *fakeCajaSvc) Activa(context.Context, uuid.UUID) (*dto.ReporteCajaResponse, error) {
	return nil, f.err
}

func (f *fakeCajaSvc) Abrir(context.Context, uuid.UUID, dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error) {
	return nil, f.err
}

type fakeAuthSvc struct {
	service.AuthService
	err error
}

func (f *fakeAuthSvc) Login(context.Context, dto.LoginRequest) (*dto.LoginResponse, error) {
	return nil, f.err
}

// ── Helpers ───────────────────────────────────────────────────────────────────

var cajeroID = uuid.New()

// withUser stands in for JWTAuth.
func withUser(c *gin.Context) {
	c.Set(middleware.ClaimsKey, &middleware.JWTClaims{UserID: cajeroID.String(), Rol: "cajero", Tipo: "access"})
	c.Next()
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func ventasEngine(svc service.VentaService) *gin.Engine {
	r := gin.New()
	h := handler.NewVentasHandler(svc)
	r.POST("/v1/ventas", withUser, h.RegistrarVenta)
	r.GET("/v1/ventas", withUser, h.ListarVentas)
	r.GET("/v1/ventas/:id", withUser, h.ObtenerVenta)
	return r
}

func ventaValida() map[string]any {
	return map[string]any{
		"items":       []map[string]any{{"producto_id": uuid.NewString(), "cantidad": 2}},
		"metodo_pago": "efectivo",
	}
}

// ── Ventas ────────────────────────────────────────────────────────────────────

func TestRegistrarVenta_Created(t *testing.T) {
	svc := &fakeVentaSvc{}
	w := doJSON(t, ventasEngine(svc), http.MethodPost, "/v1/ventas", ventaValida())

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, cajeroID, svc.usuarioID)
	require.Len(t, svc.req.Items, 1)
	assert.Equal(t, 2, svc.req.Items[0].Cantidad)
}

func TestRegistrarVenta_MalformedJSON(t *testing.T) {
	w := doJSON(t, ventasEngine(&fakeVentaSvc{}), http.MethodPost, "/v1/ventas", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validacion", decode(t, w)["code"])
}

func TestRegistrarVenta_FieldErrors(t *testing.T) {
	body := map[string]any{
		"items":       []map[string]any{{"producto_id": "no-uuid", "cantidad": 0}},
		"metodo_pago": "trueque",
	}
	w := doJSON(t, ventasEngine(&fakeVentaSvc{}), http.MethodPost, "/v1/ventas", body)

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields, ok := decode(t, w)["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "items[0].producto_id")
	assert.Contains(t, fields, "items[0].cantidad")
	assert.Contains(t, fields, "metodo_pago")
}

func TestRegistrarVenta_EmptyItems(t *testing.T) {
	body := map[string]any{"items": []any{}, "metodo_pago": "efectivo"}
	w := doJSON(t, ventasEngine(&fakeVentaSvc{}), http.MethodPost, "/v1/ventas", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrarVenta_DomainErrors(t *testing.T) {
	pid := uuid.New()
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stock insuficiente", &inventario.StockInsuficienteError{ProductoID: pid, Producto: "Leche", Disponible: 3, Solicitado: 5}, http.StatusConflict, "stock_insuficiente"},
		{"sin caja", inventario.ErrSinCajaAbierta, http.StatusForbidden, "sin_caja_abierta"},
		{"validacion", inventario.Validacion("descuento", "supera el subtotal"), http.StatusBadRequest, "validacion"},
		{"producto inexistente", fmt.Errorf("producto: %w", inventario.ErrNoEncontrado), http.StatusNotFound, "no_encontrado"},
		{"invariante", &inventario.InvarianteError{LoteID: uuid.New(), Restante: 1, Delta: -2, Inicial: 10}, http.StatusConflict, "invariante_lote"},
		{"interno", errors.New("pq: connection reset"), http.StatusInternalServerError, "interno"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, ventasEngine(&fakeVentaSvc{err: tt.err}), http.MethodPost, "/v1/ventas", ventaValida())
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.code, body["code"])
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestRegistrarVenta_StockMeta(t *testing.T) {
	pid := uuid.New()
	err := &inventario.StockInsuficienteError{ProductoID: pid, Producto: "Leche", Disponible: 3, Solicitado: 5}
	w := doJSON(t, ventasEngine(&fakeVentaSvc{err: err}), http.MethodPost, "/v1/ventas", ventaValida())

	meta, ok := decode(t, w)["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, pid.String(), meta["producto_id"])
	assert.Equal(t, "Leche", meta["producto"])
	assert.EqualValues(t, 3, meta["disponible"])
	assert.EqualValues(t, 5, meta["solicitado"])
}

func TestRegistrarVenta_InvarianteMeta(t *testing.T) {
	lid := uuid.New()
	err := &inventario.InvarianteError{LoteID: lid, Restante: 1, Delta: -2, Inicial: 10}
	w := doJSON(t, ventasEngine(&fakeVentaSvc{err: err}), http.MethodPost, "/v1/ventas", ventaValida())

	require.Equal(t, http.StatusConflict, w.Code)
	meta, ok := decode(t, w)["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, lid.String(), meta["lote_id"])
	assert.EqualValues(t, 1, meta["restante"])
	assert.EqualValues(t, -2, meta["delta"])
	assert.EqualValues(t, 10, meta["inicial"])
}

func TestListarVentas_QueryDefaultsAndLimits(t *testing.T) {
	r := ventasEngine(&fakeVentaSvc{})

	w := doJSON(t, r, http.MethodGet, "/v1/ventas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 50, body["limit"])

	w = doJSON(t, r, http.MethodGet, "/v1/ventas?limit=1000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestObtenerVenta_BadID(t *testing.T) {
	w := doJSON(t, ventasEngine(&fakeVentaSvc{}), http.MethodGet, "/v1/ventas/123", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── Devoluciones ──────────────────────────────────────────────────────────────

func TestDevolucion_ErrorMapping(t *testing.T) {
	body := map[string]any{"venta_id": uuid.NewString(), "motivo": "producto dañado"}
	tests := []struct {
		err    error
		status int
	}{
		{inventario.ErrVentaYaDevuelta, http.StatusConflict},
		{fmt.Errorf("venta: %w", inventario.ErrNoEncontrado), http.StatusNotFound},
	}
	for _, tt := range tests {
		r := gin.New()
		r.POST("/v1/devoluciones", withUser, handler.NewDevolucionesHandler(&fakeDevolucionSvc{err: tt.err}).Registrar)
		w := doJSON(t, r, http.MethodPost, "/v1/devoluciones", body)
		assert.Equal(t, tt.status, w.Code, tt.err.Error())
	}
}

// ── Lotes ─────────────────────────────────────────────────────────────────────

func TestLotesAlertas_DiasParam(t *testing.T) {
	svc := &fakeLoteSvc{}
	r := gin.New()
	r.GET("/v1/lotes/alertas", handler.NewLotesHandler(svc).Alertas)

	w := doJSON(t, r, http.MethodGet, "/v1/lotes/alertas", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.dias, "empty dias uses the configured horizon")

	w = doJSON(t, r, http.MethodGet, "/v1/lotes/alertas?dias=15", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 15, svc.dias)

	for _, bad := range []string{"0", "-3", "366", "abc"} {
		w = doJSON(t, r, http.MethodGet, "/v1/lotes/alertas?dias="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

// ── Caja ──────────────────────────────────────────────────────────────────────

func TestCajaActiva_NoSession(t *testing.T) {
	r := gin.New()
	r.GET("/v1/caja/activa", withUser, handler.NewCajaHandler(&fakeCajaSvc{err: inventario.ErrSinCajaAbierta}).Activa)

	w := doJSON(t, r, http.MethodGet, "/v1/caja/activa", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCajaAbrir_AlreadyOpen(t *testing.T) {
	r := gin.New()
	r.POST("/v1/caja/abrir", withUser, handler.NewCajaHandler(&fakeCajaSvc{err: service.ErrCajaYaAbierta}).Abrir)

	w := doJSON(t, r, http.MethodPost, "/v1/caja/abrir", map[string]any{"punto_de_venta": 1, "monto_inicial": "100"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// ── Auth ──────────────────────────────────────────────────────────────────────

func TestLogin_InvalidCredentials(t *testing.T) {
	r := gin.New()
	r.POST("/v1/auth/login", handler.NewAuthHandler(&fakeAuthSvc{err: service.ErrCredencialesInvalidas}).Login)

	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", map[string]any{"username": "cajero1", "password": "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ── Health ────────────────────────────────────────────────────────────────────

func TestHealth_NoDatabase(t *testing.T) {
	r := gin.New()
	r.GET("/health", handler.Health(nil, nil))

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["db"])
	assert.Equal(t, "disabled", body["redis"])
}
