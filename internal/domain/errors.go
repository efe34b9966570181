package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrUserNotFound           = errors.New("usuario no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrAlreadyInitialized     = errors.New("el producto ya tiene movimiento inicial")
	ErrSequenceExhausted      = errors.New("secuencia de códigos agotada")
	ErrConcurrentModification = errors.New("modificación concurrente, intente de nuevo")
	ErrConsistencyViolation   = errors.New("inconsistencia en el kardex")
	ErrHasMovements           = errors.New("el producto tiene movimientos registrados")
	ErrTooManyAttempts        = errors.New("demasiados intentos fallidos")
)

// StockError detalla un rechazo por stock insuficiente. Unwrap devuelve ErrInsufficientStock.
type StockError struct {
	ProductID int64
	Available int64
	Requested int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Stock insuficiente. Stock actual: %d, Cantidad solicitada: %d", e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError indica el campo rechazado. Unwrap devuelve ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConsistencyError describe una ruptura de invariante del kardex. Unwrap devuelve ErrConsistencyViolation.
type ConsistencyError struct {
	ProductID  int64
	MovementID int64
	Detail     string
}

func (e *ConsistencyError) Error() string {
	if e.MovementID != 0 {
		return fmt.Sprintf("producto %d, movimiento %d: %s", e.ProductID, e.MovementID, e.Detail)
	}
	return fmt.Sprintf("producto %d: %s", e.ProductID, e.Detail)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistencyViolation }

// IsRetryable indica si la operación puede reintentarse (conflicto de concurrencia o timeout de bloqueo).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// Kind clasifica el error en una etiqueta estable para métricas y respuestas.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, ErrSequenceExhausted):
		return "sequence_exhausted"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrConsistencyViolation):
		return "consistency_violation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrHasMovements):
		return "has_movements"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	}
	return "internal"
}
