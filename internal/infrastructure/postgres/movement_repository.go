package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `m.id, m.type, m.quantity, m.quantity_before, m.quantity_after, m.responsible, m.reason, m.notes,
	m.moved_at, m.product_id, m.user_id, m.created_at`

// MovementRepo ledger append-only sobre PostgreSQL (usable con pool o tx). Un trigger impide UPDATE y DELETE.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste el movimiento; id y created_at los asigna la BD.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movements (type, quantity, quantity_before, quantity_after, responsible, reason, notes, moved_at, product_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		string(m.Type), m.Quantity, m.QuantityBefore, m.QuantityAfter, m.Responsible, m.Reason, m.Notes,
		m.MovedAt, m.ProductID, m.UserID,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return classify("insert movement", err)
	}
	return nil
}

// GetByID obtiene un movimiento con datos del producto.
func (r *MovementRepo) GetByID(ctx context.Context, id int64) (*entity.MovementView, error) {
	query := `SELECT ` + movementColumns + `, p.code, p.name, p.country_id, p.category_id
		FROM movements m JOIN products p ON p.id = m.product_id WHERE m.id = $1`
	v, err := scanMovementView(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get movement", err)
	}
	return v, nil
}

// ListByProduct historia ascendente por (moved_at, id).
func (r *MovementRepo) ListByProduct(ctx context.Context, productID int64) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements m WHERE m.product_id = $1 ORDER BY m.moved_at, m.id`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, classify("list movements by product", err)
	}
	defer rows.Close()
	list := []*entity.Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// CountByProduct cantidad de movimientos del producto.
func (r *MovementRepo) CountByProduct(ctx context.Context, productID int64) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM movements WHERE product_id = $1`, productID).Scan(&n); err != nil {
		return 0, classify("count movements", err)
	}
	return n, nil
}

// List filtra y pagina (más recientes primero); devuelve también el total sin paginar.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.MovementView, int64, error) {
	where, args := buildMovementWhere(f)

	var total int64
	countQuery := `SELECT COUNT(*) FROM movements m JOIN products p ON p.id = m.product_id` + where
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, classify("count movements", err)
	}

	pos := len(args) + 1
	query := `SELECT ` + movementColumns + `, p.code, p.name, p.country_id, p.category_id
		FROM movements m JOIN products p ON p.id = m.product_id` + where +
		fmt.Sprintf(" ORDER BY m.moved_at DESC, m.id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list movements", err)
	}
	defer rows.Close()
	list := []*entity.MovementView{}
	for rows.Next() {
		v, err := scanMovementView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, v)
	}
	return list, total, rows.Err()
}

// Stats totales por tipo, del mes y productos con movimientos dentro del alcance.
func (r *MovementRepo) Stats(ctx context.Context, scope *entity.Scope, monthStart time.Time) (*entity.MovementStats, error) {
	where, args := buildMovementWhere(repository.MovementFilter{Scope: scope})
	args = append(args, monthStart)
	query := fmt.Sprintf(`
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE m.type = 'ENTRADA'),
			COUNT(*) FILTER (WHERE m.type = 'SALIDA'),
			COUNT(*) FILTER (WHERE m.type = 'AJUSTE'),
			COUNT(*) FILTER (WHERE m.type = 'INICIAL'),
			COUNT(*) FILTER (WHERE m.moved_at >= $%d),
			COUNT(DISTINCT m.product_id)
		FROM movements m JOIN products p ON p.id = m.product_id%s`, len(args), where)
	var st entity.MovementStats
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&st.Total, &st.Entradas, &st.Salidas, &st.Ajustes, &st.Iniciales, &st.CurrentMonth, &st.ProductsWithMovements,
	)
	if err != nil {
		return nil, classify("movement stats", err)
	}
	return &st, nil
}

// buildMovementWhere arma el WHERE con placeholders posicionales a partir de $1.
func buildMovementWhere(f repository.MovementFilter) (string, []any) {
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
	if f.ProductID > 0 {
		add("m.product_id = $%d", f.ProductID)
	}
	if f.Type != "" {
		add("m.type = $%d", string(f.Type))
	}
	if f.From != nil {
		add("m.moved_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("m.moved_at <= $%d", *f.To)
	}
	if s := strings.TrimSpace(f.Responsible); s != "" {
		add("m.responsible ILIKE $%d", "%"+s+"%")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(p.code ILIKE $%[1]d OR p.name ILIKE $%[1]d OR m.reason ILIKE $%[1]d OR m.responsible ILIKE $%[1]d)", n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m   entity.Movement
		typ string
	)
	err := row.Scan(&m.ID, &typ, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter, &m.Responsible, &m.Reason, &m.Notes,
		&m.MovedAt, &m.ProductID, &m.UserID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	return &m, nil
}

func scanMovementView(row pgx.Row) (*entity.MovementView, error) {
	var (
		v   entity.MovementView
		typ string
	)
	err := row.Scan(&v.ID, &typ, &v.Quantity, &v.QuantityBefore, &v.QuantityAfter, &v.Responsible, &v.Reason, &v.Notes,
		&v.MovedAt, &v.ProductID, &v.UserID, &v.CreatedAt, &v.ProductCode, &v.ProductName, &v.CountryID, &v.CategoryID)
	if err != nil {
		return nil, err
	}
	v.Type = entity.MovementType(typ)
	return &v, nil
}
