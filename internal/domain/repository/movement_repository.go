package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

// MovementFilter criterios de listado del ledger.
type MovementFilter struct {
	ProductID   int64
	Type        entity.MovementType
	From        *time.Time
	To          *time.Time
	Responsible string
	Search      string // coincide con código/nombre de producto, motivo o responsable
	Scope       *entity.Scope
	Limit       int
	Offset      int
}

// MovementRepository puerto del ledger append-only: no existe Update ni Delete.
type MovementRepository interface {
	// Create inserta el movimiento y asigna ID y CreatedAt.
	Create(ctx context.Context, m *entity.Movement) error
	GetByID(ctx context.Context, id int64) (*entity.MovementView, error)
	// ListByProduct devuelve la historia en orden ascendente (moved_at, id).
	ListByProduct(ctx context.Context, productID int64) ([]*entity.Movement, error)
	CountByProduct(ctx context.Context, productID int64) (int64, error)
	// List devuelve la página pedida (más recientes primero) y el total sin paginar.
	List(ctx context.Context, f MovementFilter) ([]*entity.MovementView, int64, error)
	Stats(ctx context.Context, scope *entity.Scope, monthStart time.Time) (*entity.MovementStats, error)
}
