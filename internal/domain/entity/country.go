package entity

import "time"

// Country país operativo; Code se usa como prefijo de los códigos de producto.
type Country struct {
	ID        int64
	Name      string
	Code      string // GT, SV, CR, PA
	Active    bool
	CreatedAt time.Time
}
