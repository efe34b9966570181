package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de vencimiento de un producto.
const (
	ExpiryVigente   = "vigente"
	ExpiryPorVencer = "por_vencer"
	ExpiryVencido   = "vencido"
)

// ExpiryWarningDays días antes del vencimiento en que un producto pasa a "por_vencer".
const ExpiryWarningDays = 30

// Product representa una muestra inventariada (SKU) de un país.
// Quantity solo cambia a través de movimientos; Version se incrementa en cada cambio de saldo.
type Product struct {
	ID           int64
	Code         string // CC+DD+MM+YY+NNN, único
	Name         string
	Lot          string
	Quantity     int64
	UnitWeight   decimal.Decimal // kg
	TotalWeight  decimal.Decimal // kg
	RegisteredAt time.Time
	ExpiresAt    time.Time
	Supplier     string
	Responsible  string
	Notes        string
	CategoryID   int64
	CountryID    int64
	CreatedBy    int64
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DaysToExpiry días calendario entre today y la fecha de vencimiento (negativo si ya venció).
func (p *Product) DaysToExpiry(today time.Time) int {
	y, m, d := today.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = p.ExpiresAt.Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// ExpiryStatus clasifica el producto según los días restantes a su vencimiento.
func (p *Product) ExpiryStatus(today time.Time) string {
	days := p.DaysToExpiry(today)
	switch {
	case days < 0:
		return ExpiryVencido
	case days <= ExpiryWarningDays:
		return ExpiryPorVencer
	default:
		return ExpiryVigente
	}
}
