package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto. El código se genera automáticamente.
type CreateProductRequest struct {
	Nombre           string          `json:"nombre" validate:"required,min=1,max=255"`
	Lote             string          `json:"lote" validate:"required,min=1,max=100"`
	Cantidad         int64           `json:"cantidad" validate:"min=0"`
	PesoUnitario     decimal.Decimal `json:"peso_unitario"`
	PesoTotal        decimal.Decimal `json:"peso_total"`
	FechaRegistro    string          `json:"fecha_registro" validate:"omitempty,datetime=2006-01-02"`
	FechaVencimiento string          `json:"fecha_vencimiento" validate:"required,datetime=2006-01-02"`
	Proveedor        string          `json:"proveedor" validate:"required,min=1,max=255"`
	Responsable      string          `json:"responsable" validate:"required,min=1,max=255"`
	Comentarios      string          `json:"comentarios" validate:"omitempty,max=1000"`
	CategoriaID      int64           `json:"categoria_id" validate:"required,gt=0"`
	CountryID        int64           `json:"country_id" validate:"required,gt=0"`
}

// ProductResponse salida de un producto con su estado de vencimiento.
type ProductResponse struct {
	ID                int64           `json:"id"`
	Codigo            string          `json:"codigo"`
	Nombre            string          `json:"nombre"`
	Lote              string          `json:"lote"`
	Cantidad          int64           `json:"cantidad"`
	PesoUnitario      decimal.Decimal `json:"peso_unitario"`
	PesoTotal         decimal.Decimal `json:"peso_total"`
	FechaRegistro     string          `json:"fecha_registro"`
	FechaVencimiento  string          `json:"fecha_vencimiento"`
	Proveedor         string          `json:"proveedor"`
	Responsable       string          `json:"responsable"`
	Comentarios       string          `json:"comentarios,omitempty"`
	CategoriaID       int64           `json:"categoria_id"`
	CountryID         int64           `json:"country_id"`
	CreatedBy         int64           `json:"created_by"`
	CodigoPais        string          `json:"codigo_pais"`
	NumeroSecuencial  string          `json:"numero_secuencial"`
	DiasParaVencer    int             `json:"dias_para_vencer"`
	EstadoVencimiento string          `json:"estado_vencimiento"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CreateProductResponse producto creado junto con su movimiento INICIAL.
type CreateProductResponse struct {
	Product           ProductResponse  `json:"product"`
	MovimientoInicial MovementResponse `json:"movimiento_inicial"`
}

// NextCodeResponse código reservado para un país.
type NextCodeResponse struct {
	Codigo string `json:"codigo"`
}

// ProductFilterRequest query de GET /api/v1/products.
type ProductFilterRequest struct {
	PageRequest
	Search            string `query:"search" validate:"omitempty,max=255"`
	CategoriaID       int64  `query:"categoria_id" validate:"omitempty,gt=0"`
	EstadoVencimiento string `query:"estado_vencimiento" validate:"omitempty,oneof=vigente por_vencer vencido"`
}

// ProductListResponse página de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// UpdateProductRequest cambios parciales de un producto; los campos ausentes no cambian.
// Cantidad se rechaza: el saldo se modifica solo con movimientos.
type UpdateProductRequest struct {
	Nombre           *string          `json:"nombre" validate:"omitempty,min=1,max=255"`
	Lote             *string          `json:"lote" validate:"omitempty,min=1,max=100"`
	Cantidad         *int64           `json:"cantidad"`
	PesoUnitario     *decimal.Decimal `json:"peso_unitario"`
	PesoTotal        *decimal.Decimal `json:"peso_total"`
	FechaVencimiento *string          `json:"fecha_vencimiento" validate:"omitempty,datetime=2006-01-02"`
	Proveedor        *string          `json:"proveedor" validate:"omitempty,min=1,max=255"`
	Responsable      *string          `json:"responsable" validate:"omitempty,min=1,max=255"`
	Comentarios      *string          `json:"comentarios" validate:"omitempty,max=1000"`
	CategoriaID      *int64           `json:"categoria_id" validate:"omitempty,gt=0"`
}

// BulkImportRequest alta masiva. CountryID, si viene, reemplaza el país de cada fila.
type BulkImportRequest struct {
	CountryID int64                  `json:"country_id" validate:"omitempty,gt=0"`
	Productos []CreateProductRequest `json:"productos" validate:"required,min=1,max=500"`
}

// BulkImportRowResponse resultado de una fila (1-based).
type BulkImportRowResponse struct {
	Fila      int            `json:"fila"`
	ProductID int64          `json:"product_id,omitempty"`
	Codigo    string         `json:"codigo,omitempty"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

// BulkImportResponse resumen de la importación.
type BulkImportResponse struct {
	Total    int                     `json:"total"`
	Creados  int                     `json:"creados"`
	Omitidos int                     `json:"omitidos"`
	Filas    []BulkImportRowResponse `json:"filas"`
}
