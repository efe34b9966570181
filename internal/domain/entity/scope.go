package entity

// Scope restricción de visibilidad derivada del usuario autenticado.
// Un *Scope nil equivale a sin restricción. Con RestrictCountries=true y CountryIDs vacío no se ve nada.
type Scope struct {
	RestrictCountries  bool
	CountryIDs         []int64
	RestrictCategories bool
	CategoryIDs        []int64
}

// Unrestricted alcance sin filtros (administrador).
func Unrestricted() *Scope { return &Scope{} }

// CountriesOnly alcance limitado a los países indicados.
func CountriesOnly(ids ...int64) *Scope {
	return &Scope{RestrictCountries: true, CountryIDs: ids}
}

// WithCategories añade restricción por categoría.
func (s *Scope) WithCategories(ids ...int64) *Scope {
	out := Scope{}
	if s != nil {
		out = *s
	}
	out.RestrictCategories = true
	out.CategoryIDs = ids
	return &out
}

// AllowsCountry indica si el país es visible.
func (s *Scope) AllowsCountry(id int64) bool {
	if s == nil || !s.RestrictCountries {
		return true
	}
	return containsID(s.CountryIDs, id)
}

// AllowsCategory indica si la categoría es visible.
func (s *Scope) AllowsCategory(id int64) bool {
	if s == nil || !s.RestrictCategories {
		return true
	}
	return containsID(s.CategoryIDs, id)
}

// AllowsProduct combina ambos filtros.
func (s *Scope) AllowsProduct(p *Product) bool {
	return p != nil && s.AllowsCountry(p.CountryID) && s.AllowsCategory(p.CategoryID)
}

// Empty indica que el alcance no deja ver ningún recurso.
func (s *Scope) Empty() bool {
	if s == nil {
		return false
	}
	return (s.RestrictCountries && len(s.CountryIDs) == 0) ||
		(s.RestrictCategories && len(s.CategoryIDs) == 0)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
