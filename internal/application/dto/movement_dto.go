package dto

import "time"

// MovementRequest body para POST /api/v1/movements/entrada y /salida.
type MovementRequest struct {
	ProductID     int64  `json:"product_id" validate:"required,gt=0"`
	Cantidad      int64  `json:"cantidad" validate:"required,gt=0"`
	Responsable   string `json:"responsable" validate:"required,min=1,max=255"`
	Motivo        string `json:"motivo" validate:"required,min=1,max=500"`
	Observaciones string `json:"observaciones" validate:"omitempty,max=1000"`
}

// AdjustmentRequest body para POST /api/v1/movements/ajuste. CantidadNueva es el saldo final.
type AdjustmentRequest struct {
	ProductID     int64  `json:"product_id" validate:"required,gt=0"`
	CantidadNueva *int64 `json:"cantidad_nueva" validate:"required,min=0"`
	Responsable   string `json:"responsable" validate:"required,min=1,max=255"`
	Motivo        string `json:"motivo" validate:"required,min=1,max=500"`
	Observaciones string `json:"observaciones" validate:"omitempty,max=1000"`
}

// MovementFilterRequest query de GET /api/v1/movements.
type MovementFilterRequest struct {
	PageRequest
	ProductID   int64  `query:"product_id" validate:"omitempty,gt=0"`
	Tipo        string `query:"tipo" validate:"omitempty,oneof=ENTRADA SALIDA AJUSTE INICIAL"`
	FechaDesde  string `query:"fecha_desde" validate:"omitempty,datetime=2006-01-02"`
	FechaHasta  string `query:"fecha_hasta" validate:"omitempty,datetime=2006-01-02"`
	Responsable string `query:"responsable" validate:"omitempty,max=255"`
	Search      string `query:"search" validate:"omitempty,max=255"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID               int64     `json:"id"`
	Tipo             string    `json:"tipo"`
	Cantidad         int64     `json:"cantidad"`
	CantidadAnterior int64     `json:"cantidad_anterior"`
	CantidadNueva    int64     `json:"cantidad_nueva"`
	Diferencia       int64     `json:"diferencia"`
	Responsable      string    `json:"responsable"`
	Motivo           string    `json:"motivo"`
	Observaciones    string    `json:"observaciones,omitempty"`
	FechaMovimiento  time.Time `json:"fecha_movimiento"`
	ProductID        int64     `json:"product_id"`
	UserID           int64     `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	ProductCodigo    string    `json:"product_codigo,omitempty"`
	ProductNombre    string    `json:"product_nombre,omitempty"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// MovementStatsResponse estadísticas de movimientos.
type MovementStatsResponse struct {
	TotalMovimientos        int64 `json:"total_movimientos"`
	EntradasTotal           int64 `json:"entradas_total"`
	SalidasTotal            int64 `json:"salidas_total"`
	AjustesTotal            int64 `json:"ajustes_total"`
	InicialesTotal          int64 `json:"iniciales_total"`
	MovimientosMesActual    int64 `json:"movimientos_mes_actual"`
	ProductosConMovimientos int64 `json:"productos_con_movimientos"`
}

// KardexEntryResponse línea del kardex.
type KardexEntryResponse struct {
	ID                 int64     `json:"id"`
	Fecha              time.Time `json:"fecha"`
	Tipo               string    `json:"tipo"`
	Motivo             string    `json:"motivo"`
	Responsable        string    `json:"responsable"`
	CantidadMovimiento int64     `json:"cantidad_movimiento"`
	CantidadAnterior   int64     `json:"cantidad_anterior"`
	CantidadNueva      int64     `json:"cantidad_nueva"`
	Saldo              int64     `json:"saldo"`
	Observaciones      string    `json:"observaciones,omitempty"`
}

// KardexResponse kardex completo de un producto.
type KardexResponse struct {
	ProductID     int64                 `json:"product_id"`
	ProductCodigo string                `json:"product_codigo"`
	ProductNombre string                `json:"product_nombre"`
	SaldoActual   int64                 `json:"saldo_actual"`
	Movimientos   []KardexEntryResponse `json:"movimientos"`
}

// AuditResponse resultado de la auditoría del kardex.
type AuditResponse struct {
	ProductID     int64  `json:"product_id"`
	ProductCodigo string `json:"product_codigo"`
	Cantidad      int64  `json:"cantidad"`
	Movimientos   int    `json:"movimientos"`
	Consistente   bool   `json:"consistente"`
	MovementID    int64  `json:"movement_id,omitempty"`
	Detalle       string `json:"detalle,omitempty"`
}
