package entity

import "time"

// Category categoría de muestras.
type Category struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
}
