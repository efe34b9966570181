package entity

import "time"

// KardexEntry línea del kardex con saldos antes/después tal como se almacenaron.
type KardexEntry struct {
	MovementID     int64
	Date           time.Time
	Type           MovementType
	Reason         string
	Responsible    string
	Quantity       int64
	QuantityBefore int64
	QuantityAfter  int64
	Notes          string
}

// Balance saldo tras el movimiento.
func (e KardexEntry) Balance() int64 { return e.QuantityAfter }

// Kardex historia cronológica de un producto.
type Kardex struct {
	ProductID      int64
	ProductCode    string
	ProductName    string
	CurrentBalance int64
	Entries        []KardexEntry
}
