package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

// ProductFilter criterios de listado de productos.
type ProductFilter struct {
	Search       string // coincide con código, nombre o lote
	CategoryID   int64
	ExpiryStatus string    // entity.ExpiryVigente, ExpiryPorVencer o ExpiryVencido; vacío = todos
	Today        time.Time // inicio del día de referencia para ExpiryStatus
	Scope        *entity.Scope
	Limit        int
	Offset       int
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID y GetForUpdate devuelven (nil, nil) si el producto no existe.
type ProductRepository interface {
	// Create inserta el producto y asigna ID, Version y timestamps. ErrDuplicate si el código ya existe.
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetForUpdate lee el producto bloqueando su fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id int64) (*entity.Product, error)
	// List devuelve la página pedida (más recientes primero) y el total sin paginar.
	List(ctx context.Context, f ProductFilter) ([]*entity.Product, int64, error)
	// UpdateDetails persiste los datos descriptivos. Nunca toca quantity ni version;
	// refresca en product el saldo, la versión y updated_at vigentes. ErrNotFound si no existe.
	UpdateDetails(ctx context.Context, product *entity.Product) error
	// UpdateQuantity fija el saldo si la versión coincide; ErrConcurrentModification si no.
	UpdateQuantity(ctx context.Context, id, quantity, expectedVersion int64) error
	// Delete elimina un producto sin movimientos; ErrHasMovements en caso contrario.
	Delete(ctx context.Context, id int64) error
}
