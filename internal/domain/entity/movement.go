package entity

import "time"

// MovementType tipo de movimiento del kardex.
type MovementType string

const (
	MovementEntrada MovementType = "ENTRADA"
	MovementSalida  MovementType = "SALIDA"
	MovementAjuste  MovementType = "AJUSTE"
	MovementInicial MovementType = "INICIAL"
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t MovementType) Valid() bool {
	switch t {
	case MovementEntrada, MovementSalida, MovementAjuste, MovementInicial:
		return true
	}
	return false
}

// Movement registro inmutable de un cambio de stock. Nunca se actualiza ni se borra.
type Movement struct {
	ID             int64
	Type           MovementType
	Quantity       int64 // magnitud; en AJUSTE es |after - before|
	QuantityBefore int64
	QuantityAfter  int64
	Responsible    string
	Reason         string
	Notes          string
	MovedAt        time.Time
	ProductID      int64
	UserID         int64
	CreatedAt      time.Time
}

// MovementView movimiento con datos del producto para listados.
type MovementView struct {
	Movement
	ProductCode string
	ProductName string
	CountryID   int64
	CategoryID  int64
}

// MovementStats totales del ledger para un alcance dado.
type MovementStats struct {
	Total                 int64
	Entradas              int64
	Salidas               int64
	Ajustes               int64
	Iniciales             int64
	CurrentMonth          int64
	ProductsWithMovements int64
}
