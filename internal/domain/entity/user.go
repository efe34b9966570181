package entity

import "time"

// User representa un usuario del sistema con países asignados.
// CreatedBy es la referencia opcional al usuario que lo creó; se resuelve por consulta, no por puntero.
type User struct {
	ID           int64
	Email        string
	PasswordHash string // bcrypt hash
	FullName     string
	Role         Role
	CategoryID   *int64 // solo rol comercial
	CountryIDs   []int64
	Active       bool
	CreatedBy    *int64
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
