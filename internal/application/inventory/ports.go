package inventory

import (
	"context"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el ledger: si fn devuelve error no queda nada aplicado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		seqRepo repository.CodeSequenceRepository,
	) error) error
}

// SnapshotReader ejecuta lecturas sobre una instantánea consistente (solo lectura).
type SnapshotReader interface {
	View(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// EventPublisher publica los movimientos ya confirmados. Un fallo no revierte el movimiento.
type EventPublisher interface {
	PublishMovement(ctx context.Context, product *entity.Product, m *entity.Movement) error
}

// Metrics observa el ledger.
type Metrics interface {
	MovementRecorded(t entity.MovementType)
	MovementRejected(t entity.MovementType, reason string)
	MovementRetried(t entity.MovementType)
	CodeAllocated(countryCode string)
	ConsistencyViolation()
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

func (NopPublisher) PublishMovement(context.Context, *entity.Product, *entity.Movement) error {
	return nil
}

// NopMetrics no registra nada.
type NopMetrics struct{}

func (NopMetrics) MovementRecorded(entity.MovementType)         {}
func (NopMetrics) MovementRejected(entity.MovementType, string) {}
func (NopMetrics) MovementRetried(entity.MovementType)          {}
func (NopMetrics) CodeAllocated(string)                         {}
func (NopMetrics) ConsistencyViolation()                        {}
