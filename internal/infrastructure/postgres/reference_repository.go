package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var (
	_ repository.CountryRepository  = (*CountryRepo)(nil)
	_ repository.CategoryRepository = (*CategoryRepo)(nil)
)

// CountryRepo lectura de países.
type CountryRepo struct {
	q Querier
}

// NewCountryRepository construye el adaptador.
func NewCountryRepository(q Querier) *CountryRepo {
	return &CountryRepo{q: q}
}

// GetByID obtiene un país por ID.
func (r *CountryRepo) GetByID(ctx context.Context, id int64) (*entity.Country, error) {
	var c entity.Country
	err := r.q.QueryRow(ctx,
		`SELECT id, name, code, active, created_at FROM countries WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Code, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get country", err)
	}
	return &c, nil
}

// CategoryRepo lectura de categorías.
type CategoryRepo struct {
	q Querier
}

// NewCategoryRepository construye el adaptador.
func NewCategoryRepository(q Querier) *CategoryRepo {
	return &CategoryRepo{q: q}
}

// GetByID obtiene una categoría por ID.
func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	var c entity.Category
	err := r.q.QueryRow(ctx,
		`SELECT id, name, description, active, created_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get category", err)
	}
	return &c, nil
}
