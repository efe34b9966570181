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

var _ repository.UserRepository = (*UserRepo)(nil)

const userSelect = `
	SELECT u.id, u.email, u.password_hash, u.full_name, u.role, u.category_id, u.active, u.created_by,
		u.last_login, u.created_at, u.updated_at,
		COALESCE(array_agg(uc.country_id ORDER BY uc.country_id) FILTER (WHERE uc.country_id IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_countries uc ON uc.user_id = u.id`

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// GetByID obtiene un usuario por ID con sus países asignados.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.find(ctx, userSelect+` WHERE u.id = $1 GROUP BY u.id`, id)
}

// GetByEmail obtiene un usuario por email (sin distinguir mayúsculas).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.find(ctx, userSelect+` WHERE lower(u.email) = lower($1) GROUP BY u.id`, strings.TrimSpace(email))
}

// TouchLastLogin registra la fecha del último login exitoso.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id); err != nil {
		return classify("touch last login", err)
	}
	return nil
}

func (r *UserRepo) find(ctx context.Context, query string, arg any) (*entity.User, error) {
	var (
		u    entity.User
		role string
	)
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role, &u.CategoryID, &u.Active, &u.CreatedBy,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt, &u.CountryIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get user", err)
	}
	u.Role = entity.Role(role)
	return &u, nil
}

// Create inserta el usuario y sus países asignados. Usar dentro de una transacción
// para que ambos inserts queden atómicos. Email repetido responde ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name, role, category_id, active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		strings.TrimSpace(u.Email), u.PasswordHash, u.FullName, string(u.Role), u.CategoryID, u.Active, u.CreatedBy,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", domain.ErrDuplicate)
		}
		return classify("create user", err)
	}
	if len(u.CountryIDs) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx,
		`INSERT INTO user_countries (user_id, country_id) SELECT $1, unnest($2::bigint[])`,
		u.ID, u.CountryIDs,
	); err != nil {
		return classify("assign user countries", err)
	}
	return nil
}
