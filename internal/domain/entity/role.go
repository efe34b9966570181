package entity

// Role rol cerrado del sistema. Cualquier valor fuera de los tres conocidos se trata como inválido.
type Role string

const (
	RoleAdmin      Role = "administrador"
	RoleUser       Role = "user"
	RoleCommercial Role = "comercial"
)

// Module módulo funcional protegido por capacidades.
type Module string

const (
	ModuleUsers      Module = "users"
	ModuleProducts   Module = "products"
	ModuleMovements  Module = "movements"
	ModuleReports    Module = "reports"
	ModuleCountries  Module = "countries"
	ModuleCategories Module = "categories"
	ModuleStatistics Module = "statistics"
)

// Capabilities lo que un rol puede hacer y cómo se restringe su visibilidad.
type Capabilities struct {
	Modules          []Module
	FilterByCountry  bool
	FilterByCategory bool
}

var capabilityTable = map[Role]Capabilities{
	RoleAdmin: {
		Modules: []Module{
			ModuleUsers, ModuleProducts, ModuleMovements, ModuleReports,
			ModuleCountries, ModuleCategories, ModuleStatistics,
		},
	},
	RoleUser: {
		Modules: []Module{
			ModuleProducts, ModuleMovements, ModuleReports,
			ModuleCountries, ModuleCategories, ModuleStatistics,
		},
		FilterByCountry: true,
	},
	RoleCommercial: {
		Modules:          []Module{ModuleReports},
		FilterByCountry:  true,
		FilterByCategory: true,
	},
}

// ParseRole convierte el nombre persistido/del token en Role. ok=false si no es un rol conocido.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := capabilityTable[r]
	return r, ok
}

// Valid indica si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	_, ok := capabilityTable[r]
	return ok
}

// Capabilities devuelve la fila de la tabla; un rol desconocido no tiene módulos y queda filtrado.
func (r Role) Capabilities() Capabilities {
	if c, ok := capabilityTable[r]; ok {
		return c
	}
	return Capabilities{FilterByCountry: true, FilterByCategory: true}
}

// Can indica si el rol tiene acceso al módulo.
func (r Role) Can(m Module) bool {
	for _, allowed := range r.Capabilities().Modules {
		if allowed == m {
			return true
		}
	}
	return false
}
