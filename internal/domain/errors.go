package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// Motor de stock.
	ErrProductNotFound   = errors.New("producto no encontrado")
	ErrWarehouseNotFound = errors.New("bodega no encontrada")
	ErrBinNotFound       = errors.New("ubicación no encontrada")
	ErrNoOpTransfer      = errors.New("origen y destino son la misma ubicación")
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrNegativeQuantity indica un defecto: ErrInsufficientStock debió detectarlo antes.
	ErrNegativeQuantity = errors.New("la cantidad resultante sería negativa")
	// ErrLockTimeout es transitorio; el llamador puede reintentar.
	ErrLockTimeout = errors.New("tiempo de espera de bloqueo agotado")
)

// IsRetryable indica si el error es transitorio y la operación puede reintentarse tal cual.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
