package repository

import (
	"context"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

// CategoryRepository define el puerto de lectura para Category. GetByID devuelve (nil, nil) si no existe.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
}

// CountryRepository define el puerto de lectura para Country. GetByID devuelve (nil, nil) si no existe.
type CountryRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Country, error)
}
