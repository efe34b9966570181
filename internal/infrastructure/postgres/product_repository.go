package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, code, name, lot, quantity, unit_weight, total_weight, registered_at, expires_at,
	supplier, responsible, notes, category_id, country_id, created_by, version, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto; la BD asigna id, version y timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (code, name, lot, quantity, unit_weight, total_weight, registered_at, expires_at,
			supplier, responsible, notes, category_id, country_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, version, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		p.Code, p.Name, p.Lot, p.Quantity, p.UnitWeight, p.TotalWeight, p.RegisteredAt, p.ExpiresAt,
		p.Supplier, p.Responsible, p.Notes, p.CategoryID, p.CountryID, p.CreatedBy,
	).Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return classify("insert product", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila hasta el fin de la transacción (solo tiene efecto dentro de una tx).
func (r *ProductRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepo) get(ctx context.Context, query string, id int64) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get product", err)
	}
	return p, nil
}

// List filtra y pagina (más recientes primero); devuelve también el total sin paginar.
func (r *ProductRepo) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, int64, error) {
	where, args := buildProductWhere(f)

	var total int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, classify("count products", err)
	}

	pos := len(args) + 1
	query := `SELECT ` + productColumns + ` FROM products p` + where +
		fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list products", err)
	}
	defer rows.Close()
	list := []*entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// UpdateDetails actualiza los campos descriptivos; quantity y version quedan a cargo del ledger.
func (r *ProductRepo) UpdateDetails(ctx context.Context, p *entity.Product) error {
	err := r.q.QueryRow(ctx, `
		UPDATE products
		SET name = $2, lot = $3, unit_weight = $4, total_weight = $5, expires_at = $6,
			supplier = $7, responsible = $8, notes = $9, category_id = $10, updated_at = now()
		WHERE id = $1
		RETURNING quantity, version, updated_at`,
		p.ID, p.Name, p.Lot, p.UnitWeight, p.TotalWeight, p.ExpiresAt,
		p.Supplier, p.Responsible, p.Notes, p.CategoryID,
	).Scan(&p.Quantity, &p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return classify("update product", err)
	}
	return nil
}

// UpdateQuantity fija el saldo solo si la versión no cambió desde la lectura.
func (r *ProductRepo) UpdateQuantity(ctx context.Context, id, quantity, expectedVersion int64) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET quantity = $2, version = version + 1, updated_at = now() WHERE id = $1 AND version = $3`,
		id, quantity, expectedVersion,
	)
	if err != nil {
		return classify("update product quantity", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// Delete elimina un producto sin movimientos. La FK de movements lo impide si tiene historia.
func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrHasMovements
		}
		return classify("delete product", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// buildProductWhere arma el WHERE con placeholders posicionales a partir de $1.
// Los estados de vencimiento usan los mismos cortes que entity.Product.ExpiryStatus.
func buildProductWhere(f repository.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Scope != nil && f.Scope.RestrictCountries {
		add("p.country_id = ANY($%d)", nonNil(f.Scope.CountryIDs))
	}
	if f.Scope != nil && f.Scope.RestrictCategories {
		add("p.category_id = ANY($%d)", nonNil(f.Scope.CategoryIDs))
	}
	if f.CategoryID > 0 {
		add("p.category_id = $%d", f.CategoryID)
	}
	warningEnd := f.Today.AddDate(0, 0, entity.ExpiryWarningDays+1)
	switch f.ExpiryStatus {
	case entity.ExpiryVencido:
		add("p.expires_at < $%d", f.Today)
	case entity.ExpiryPorVencer:
		add("p.expires_at >= $%d", f.Today)
		add("p.expires_at < $%d", warningEnd)
	case entity.ExpiryVigente:
		add("p.expires_at >= $%d", warningEnd)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(p.code ILIKE $%[1]d OR p.name ILIKE $%[1]d OR p.lot ILIKE $%[1]d)", n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Lot, &p.Quantity, &p.UnitWeight, &p.TotalWeight, &p.RegisteredAt, &p.ExpiresAt,
		&p.Supplier, &p.Responsible, &p.Notes, &p.CategoryID, &p.CountryID, &p.CreatedBy, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
