package memory

import (
	"context"
	"strings"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var (
	_ repository.CountryRepository  = (*CountryRepo)(nil)
	_ repository.CategoryRepository = (*CategoryRepo)(nil)
	_ repository.UserRepository     = (*UserRepo)(nil)
)

// AddCountry registra un país (datos de referencia).
func (s *Store) AddCountry(c entity.Country) *entity.Country {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = int64(len(s.countries) + 1)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.countries[c.ID] = &c
	out := c
	return &out
}

// AddCategory registra una categoría.
func (s *Store) AddCategory(c entity.Category) *entity.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = int64(len(s.categories) + 1)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.categories[c.ID] = &c
	out := c
	return &out
}

// AddUser registra un usuario con su hash de contraseña ya calculado.
func (s *Store) AddUser(u entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = int64(len(s.users) + 1)
	}
	now := s.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.CountryIDs = append([]int64(nil), u.CountryIDs...)
	s.users[u.ID] = &u
	out := u
	return &out
}

// Countries repositorio de países.
func (s *Store) Countries() *CountryRepo { return &CountryRepo{s: s} }

// Categories repositorio de categorías.
func (s *Store) Categories() *CategoryRepo { return &CategoryRepo{s: s} }

// Users repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

type CountryRepo struct{ s *Store }

func (r *CountryRepo) GetByID(_ context.Context, id int64) (*entity.Country, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.countries[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

type CategoryRepo struct{ s *Store }

func (r *CategoryRepo) GetByID(_ context.Context, id int64) (*entity.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

type UserRepo struct{ s *Store }

func (r *UserRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

// GetByEmail compara el email sin distinguir mayúsculas.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *UserRepo) TouchLastLogin(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		now := r.s.now()
		u.LastLogin = &now
	}
	return nil
}

func copyUser(u *entity.User) *entity.User {
	out := *u
	out.CountryIDs = append([]int64(nil), u.CountryIDs...)
	return &out
}

// SeedReference carga los mismos países y categorías que la migración de datos de referencia.
func (s *Store) SeedReference() {
	for _, c := range []entity.Country{
		{Name: "Guatemala", Code: "GT"},
		{Name: "El Salvador", Code: "SV"},
		{Name: "Costa Rica", Code: "CR"},
		{Name: "Panamá", Code: "PA"},
	} {
		c.Active = true
		s.AddCountry(c)
	}
	for _, c := range []entity.Category{
		{Name: "HIC", Description: "Higiene y cuidado"},
		{Name: "BIC", Description: "Bienestar y cuidado"},
		{Name: "CASE", Description: "Cuidado del hogar"},
		{Name: "FOOD", Description: "Alimentos"},
		{Name: "PHARMA", Description: "Farmacéuticos"},
		{Name: "OTROS", Description: "Otras muestras"},
	} {
		c.Active = true
		s.AddCategory(c)
	}
}
