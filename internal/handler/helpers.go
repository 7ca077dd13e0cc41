package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"minimarket/internal/apierror"
	"minimarket/internal/inventario"
	"minimarket/internal/middleware"
	"minimarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their wire name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// Returns false and writes a 400 response if either step fails; the caller
// should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, "JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, "Parametros invalidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fe.Tag()
	}
	c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
	return false
}

// fieldPath drops the root struct name: "RegistrarVentaRequest.items[0].cantidad" -> "items[0].cantidad".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// parseIDParam parses a UUID path parameter, answering 400 when malformed.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(map[string]string{name: "uuid"}))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps domain errors onto the HTTP error envelope. Anything it
// does not recognise is logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var (
		valErr   *inventario.ValidacionError
		stockErr *inventario.StockInsuficienteError
		invErr   *inventario.InvarianteError
	)

	switch {
	case errors.As(err, &valErr):
		resp := &apierror.ValidationError{Detail: valErr.Error(), Code: apierror.CodeValidacion}
		if valErr.Campo != "" {
			resp.Fields = map[string]string{valErr.Campo: valErr.Mensaje}
		}
		c.JSON(http.StatusBadRequest, resp)

	case errors.As(err, &stockErr):
		resp := apierror.WithCode(apierror.CodeStockInsuficiente, stockErr.Error())
		resp.Meta = map[string]any{
			"producto_id": stockErr.ProductoID.String(),
			"producto":    stockErr.Producto,
			"disponible":  stockErr.Disponible,
			"solicitado":  stockErr.Solicitado,
		}
		c.JSON(http.StatusConflict, resp)

	case errors.As(err, &invErr):
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("lote_id", invErr.LoteID.String()).
			Err(err).
			Msg("invariante de lote rechazada")
		resp := apierror.WithCode(apierror.CodeInvariante, "La operacion dejaria un lote fuera de rango")
		resp.Meta = map[string]any{
			"lote_id":  invErr.LoteID.String(),
			"restante": invErr.Restante,
			"delta":    invErr.Delta,
			"inicial":  invErr.Inicial,
		}
		c.JSON(http.StatusConflict, resp)

	case errors.Is(err, inventario.ErrSinCajaAbierta):
		c.JSON(http.StatusForbidden, apierror.WithCode(apierror.CodeSinCaja, "No hay una caja abierta para este usuario"))

	case errors.Is(err, inventario.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNoEncontrado, err.Error()))

	case errors.Is(err, inventario.ErrVentaYaDevuelta):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeYaDevuelta, "La venta ya fue devuelta"))

	case errors.Is(err, service.ErrCajaYaAbierta):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeValidacion, err.Error()))

	case errors.Is(err, service.ErrCredencialesInvalidas), errors.Is(err, service.ErrTokenInvalido):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))

	default:
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Str("method", c.Request.Method).
			Err(err).
			Msg("error interno")
		c.JSON(http.StatusInternalServerError, apierror.WithCode(apierror.CodeInterno, "Error interno del servidor"))
	}
}

func usuarioID(c *gin.Context) uuid.UUID { return middleware.UsuarioID(c) }
