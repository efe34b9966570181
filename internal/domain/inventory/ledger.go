package inventory

import (
	"fmt"
	"sort"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

// Apply calcula magnitud y saldo resultante de un movimiento sobre el saldo before.
// Para AJUSTE, target es la cantidad final deseada; para el resto es la magnitud del cambio.
func Apply(t entity.MovementType, before, target int64) (quantity, after int64, err error) {
	if before < 0 {
		return 0, 0, fmt.Errorf("%w: saldo previo negativo (%d)", domain.ErrConsistencyViolation, before)
	}
	switch t {
	case entity.MovementInicial:
		if target < 0 {
			return 0, 0, domain.Invalid("cantidad", "debe ser mayor o igual a 0")
		}
		if before != 0 {
			return 0, 0, domain.ErrAlreadyInitialized
		}
		return target, target, nil
	case entity.MovementEntrada:
		if target <= 0 {
			return 0, 0, domain.Invalid("cantidad", "debe ser mayor a 0")
		}
		return target, before + target, nil
	case entity.MovementSalida:
		if target <= 0 {
			return 0, 0, domain.Invalid("cantidad", "debe ser mayor a 0")
		}
		if target > before {
			return 0, 0, &domain.StockError{Available: before, Requested: target}
		}
		return target, before - target, nil
	case entity.MovementAjuste:
		if target < 0 {
			return 0, 0, domain.Invalid("cantidad_nueva", "debe ser mayor o igual a 0")
		}
		return abs(target - before), target, nil
	}
	return 0, 0, domain.Invalid("tipo", fmt.Sprintf("tipo de movimiento desconocido %q", t))
}

// SignedDelta variación con signo que el movimiento aplica al saldo.
func SignedDelta(m *entity.Movement) int64 {
	switch m.Type {
	case entity.MovementEntrada, entity.MovementInicial:
		return m.Quantity
	case entity.MovementSalida:
		return -m.Quantity
	default:
		return m.QuantityAfter - m.QuantityBefore
	}
}

// CheckMovement valida las invariantes de un movimiento antes de persistirlo.
func CheckMovement(m *entity.Movement) error {
	fail := func(detail string) error {
		return &domain.ConsistencyError{ProductID: m.ProductID, MovementID: m.ID, Detail: detail}
	}
	if !m.Type.Valid() {
		return fail(fmt.Sprintf("tipo inválido %q", m.Type))
	}
	if m.ProductID <= 0 || m.UserID <= 0 {
		return fail("producto y usuario son obligatorios")
	}
	if m.QuantityBefore < 0 || m.QuantityAfter < 0 {
		return fail(fmt.Sprintf("saldo negativo (%d -> %d)", m.QuantityBefore, m.QuantityAfter))
	}
	if m.Quantity < 0 {
		return fail("cantidad negativa")
	}
	if m.Type == entity.MovementAjuste && m.Quantity != abs(m.QuantityAfter-m.QuantityBefore) {
		return fail(fmt.Sprintf("ajuste con cantidad %d no coincide con |%d - %d|", m.Quantity, m.QuantityAfter, m.QuantityBefore))
	}
	if m.Type == entity.MovementInicial && m.QuantityBefore != 0 {
		return fail("movimiento inicial con saldo previo distinto de 0")
	}
	if m.QuantityAfter != m.QuantityBefore+SignedDelta(m) {
		return fail(fmt.Sprintf("%d + (%d) != %d", m.QuantityBefore, SignedDelta(m), m.QuantityAfter))
	}
	return nil
}

// VerifyChain comprueba que la historia sea contigua, empiece con INICIAL y termine en el
// saldo actual del producto. La cadena se recorre por id (orden de confirmación: las escrituras
// de un producto se serializan con el bloqueo de su fila), no por fecha, así un reloj que
// retrocede no rompe un ledger íntegro.
func VerifyChain(productID, currentQuantity int64, movements []*entity.Movement) error {
	if len(movements) == 0 {
		return &domain.ConsistencyError{ProductID: productID, Detail: "producto sin movimientos"}
	}
	movements = append([]*entity.Movement(nil), movements...)
	sort.SliceStable(movements, func(i, j int) bool { return movements[i].ID < movements[j].ID })
	if movements[0].Type != entity.MovementInicial {
		return &domain.ConsistencyError{ProductID: productID, MovementID: movements[0].ID, Detail: "la historia no inicia con INICIAL"}
	}
	for i, m := range movements {
		if err := CheckMovement(m); err != nil {
			return err
		}
		if i > 0 && m.QuantityBefore != movements[i-1].QuantityAfter {
			return &domain.ConsistencyError{
				ProductID:  productID,
				MovementID: m.ID,
				Detail:     fmt.Sprintf("saldo previo %d no coincide con saldo anterior %d", m.QuantityBefore, movements[i-1].QuantityAfter),
			}
		}
	}
	last := movements[len(movements)-1]
	if last.QuantityAfter != currentQuantity {
		return &domain.ConsistencyError{
			ProductID:  productID,
			MovementID: last.ID,
			Detail:     fmt.Sprintf("saldo final %d distinto de la cantidad del producto %d", last.QuantityAfter, currentQuantity),
		}
	}
	return nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
