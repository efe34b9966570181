package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Muestras-api/internal/application/dto"
	"github.com/jhoicas/Muestras-api/internal/domain"
)

// LocalError guarda el error interno para que el logger de requests lo registre.
const LocalError = "error"

var errInvalidBody = errors.New("cuerpo inválido")

// errorMapping asocia cada error de dominio con su status y código estable.
var errorMapping = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{errInvalidBody, fiber.StatusBadRequest, "INVALID_BODY", "cuerpo inválido"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"},
	{domain.ErrAlreadyInitialized, fiber.StatusConflict, "ALREADY_INITIALIZED", "el producto ya tiene movimiento inicial"},
	{domain.ErrSequenceExhausted, fiber.StatusConflict, "SEQUENCE_EXHAUSTED", "se agotaron los códigos del mes para el país"},
	{domain.ErrConcurrentModification, fiber.StatusConflict, "CONCURRENT_MODIFICATION", "el producto fue modificado concurrentemente, intente de nuevo"},
	{domain.ErrHasMovements, fiber.StatusConflict, "HAS_MOVEMENTS", "el producto tiene movimientos registrados"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "recurso duplicado"},
	{domain.ErrConsistencyViolation, fiber.StatusInternalServerError, "CONSISTENCY_VIOLATION", "el kardex del producto es inconsistente"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED", "credenciales inválidas"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", "acceso denegado al recurso"},
	{domain.ErrTooManyAttempts, fiber.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "demasiados intentos fallidos, intente más tarde"},
}

// respondError traduce err a status + dto.ErrorResponse. Los errores de 500 quedan en
// LocalError para el logger de requests, sin exponer el detalle.
func respondError(c *fiber.Ctx, err error) error {
	status, body := describeError(err)
	if status >= fiber.StatusInternalServerError {
		c.Locals(LocalError, err)
	}
	return c.Status(status).JSON(body)
}

// describeError status y cuerpo de error para err. Los errores no mapeados son 500 INTERNAL.
func describeError(err error) (int, dto.ErrorResponse) {
	var fieldsErr *fieldsError
	if errors.As(err, &fieldsErr) {
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Fields: fieldsErr.fields}
	}
	var stockErr *domain.StockError
	if errors.As(err, &stockErr) {
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: stockErr.Error()}
	}
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return fiber.StatusBadRequest, dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: valErr.Error(),
			Fields:  []dto.FieldError{{Field: valErr.Field, Message: valErr.Reason}},
		}
	}
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, dto.ErrorResponse{Code: m.code, Message: m.message}
		}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}
