package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

// Límites de paginación del listado de movimientos.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MovementQuery consultas de solo lectura sobre el ledger.
type MovementQuery struct {
	movements repository.MovementRepository
	location  *time.Location
	now       func() time.Time
}

// NewMovementQuery construye el servicio de consultas.
func NewMovementQuery(movements repository.MovementRepository, cfg Config) *MovementQuery {
	cfg = cfg.normalized()
	return &MovementQuery{movements: movements, location: cfg.Location, now: time.Now}
}

// List devuelve movimientos filtrados (más recientes primero) y el total sin paginar.
func (q *MovementQuery) List(ctx context.Context, f repository.MovementFilter) ([]*entity.MovementView, int64, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, 0, domain.Invalid("tipo", "tipo de movimiento desconocido")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, domain.Invalid("fecha_hasta", "no puede ser anterior a fecha_desde")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Scope.Empty() {
		return []*entity.MovementView{}, 0, nil
	}
	return q.movements.List(ctx, f)
}

// Get obtiene un movimiento visible para scope.
func (q *MovementQuery) Get(ctx context.Context, id int64, scope *entity.Scope) (*entity.MovementView, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}
	m, err := q.movements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil || !scope.AllowsCountry(m.CountryID) || !scope.AllowsCategory(m.CategoryID) {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// Stats totales por tipo, del mes en curso y productos con movimientos.
func (q *MovementQuery) Stats(ctx context.Context, scope *entity.Scope) (*entity.MovementStats, error) {
	if scope.Empty() {
		return &entity.MovementStats{}, nil
	}
	now := q.now().In(q.location)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, q.location)
	return q.movements.Stats(ctx, scope, monthStart)
}
