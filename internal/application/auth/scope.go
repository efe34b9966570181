package auth

import (
	"context"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

// Principal identidad autenticada tomada del token.
type Principal struct {
	UserID int64
	Role   entity.Role
}

// ScopeResolver calcula el alcance de visibilidad del usuario autenticado.
type ScopeResolver struct {
	users repository.UserRepository
}

// NewScopeResolver construye el resolver.
func NewScopeResolver(users repository.UserRepository) *ScopeResolver {
	return &ScopeResolver{users: users}
}

// Resolve lee el usuario y aplica la tabla de capacidades de su rol persistido.
// Un usuario inexistente o inactivo responde ErrUnauthorized; un rol del token distinto al persistido, ErrForbidden.
func (r *ScopeResolver) Resolve(ctx context.Context, p Principal) (*entity.Scope, error) {
	u, err := r.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Active {
		return nil, domain.ErrUnauthorized
	}
	if u.Role != p.Role {
		return nil, domain.ErrForbidden
	}
	return ScopeFor(u), nil
}

// ScopeFor alcance de un usuario según su rol: países asignados y, para comerciales, su categoría.
func ScopeFor(u *entity.User) *entity.Scope {
	caps := u.Role.Capabilities()
	scope := entity.Unrestricted()
	if caps.FilterByCountry {
		scope = entity.CountriesOnly(u.CountryIDs...)
	}
	if caps.FilterByCategory {
		if u.CategoryID == nil {
			return scope.WithCategories()
		}
		return scope.WithCategories(*u.CategoryID)
	}
	return scope
}
