// Package apierror defines the single error envelope returned by the API.
// Every 4xx/5xx body has this shape; internal details (SQL errors, stack
// traces) never reach clients.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string         `json:"detail"`
	Code   string         `json:"code,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode builds an error with a stable machine-readable code.
func WithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Codes used by the domain error mapping.
const (
	CodeValidacion        = "validacion"
	CodeStockInsuficiente = "stock_insuficiente"
	CodeYaDevuelta        = "venta_ya_devuelta"
	CodeSinCaja           = "sin_caja_abierta"
	CodeNoEncontrado      = "no_encontrado"
	CodeInvariante        = "invariante_lote"
	CodeInterno           = "interno"
)

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Code: CodeValidacion, Fields: fields}
}
