package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Muestras-api/internal/application/dto"
	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain"
)

// ProductHandler maneja las peticiones HTTP para Product (protegido).
type ProductHandler struct {
	uc       *inventory.ProductUseCase
	location *time.Location
	now      func() time.Time
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *inventory.ProductUseCase, location *time.Location) *ProductHandler {
	if location == nil {
		location = time.UTC
	}
	return &ProductHandler{uc: uc, location: location, now: time.Now}
}

// Create godoc
// @Summary      Crear producto con su movimiento INICIAL
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "Datos del producto"
// @Success      201   {object}  dto.CreateProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	cmd, err := h.toCreateCommand(in, GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	product, mov, err := h.uc.Create(c.UserContext(), cmd, GetScope(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CreateProductResponse{
		Product:           toProductResponse(product, h.today()),
		MovimientoInicial: toMovementResponse(mov),
	})
}

// List godoc
// @Summary      Listar productos visibles
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        search              query  string  false  "Código, nombre o lote"
// @Param        categoria_id        query  int     false  "Categoría"
// @Param        estado_vencimiento  query  string  false  "vigente, por_vencer o vencido"
// @Param        limit               query  int     false  "Tamaño de página (máx. 100)"
// @Param        offset              query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.ProductListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/v1/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	var in dto.ProductFilterRequest
	if err := bindQuery(c, &in); err != nil {
		return respondError(c, err)
	}
	in.DefaultPage()
	items, total, err := h.uc.List(c.UserContext(), inventory.ProductListQuery{
		Search:       in.Search,
		CategoryID:   in.CategoriaID,
		ExpiryStatus: in.EstadoVencimiento,
		Limit:        in.Limit,
		Offset:       in.Offset,
	}, GetScope(c))
	if err != nil {
		return respondError(c, err)
	}
	today := h.today()
	out := dto.ProductListResponse{
		Items: make([]dto.ProductResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}
	for _, p := range items {
		out.Items = append(out.Items, toProductResponse(p, today))
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar datos descriptivos de un producto (el saldo cambia solo con movimientos)
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                       true  "ID del producto"
// @Param        body  body  dto.UpdateProductRequest  true  "Campos a modificar"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/v1/products/{id} [put]
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.UpdateProductRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	cmd := inventory.UpdateProductCommand{
		Name:        in.Nombre,
		Lot:         in.Lote,
		Quantity:    in.Cantidad,
		UnitWeight:  in.PesoUnitario,
		TotalWeight: in.PesoTotal,
		Supplier:    in.Proveedor,
		Responsible: in.Responsable,
		Notes:       in.Comentarios,
		CategoryID:  in.CategoriaID,
	}
	if in.FechaVencimiento != nil {
		expires, err := time.ParseInLocation(dateLayout, *in.FechaVencimiento, h.location)
		if err != nil {
			return respondError(c, domain.Invalid("fecha_vencimiento", "fecha inválida"))
		}
		cmd.ExpiresAt = &expires
	}
	p, err := h.uc.Update(c.UserContext(), id, cmd, GetScope(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toProductResponse(p, h.today()))
}

// BulkImport godoc
// @Summary      Importar productos en lote (una transacción por fila)
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkImportRequest  true  "Filas a importar"
// @Success      200   {object}  dto.BulkImportResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/products/bulk-import [post]
func (h *ProductHandler) BulkImport(c *fiber.Ctx) error {
	var in dto.BulkImportRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	out := dto.BulkImportResponse{Total: len(in.Productos), Filas: make([]dto.BulkImportRowResponse, len(in.Productos))}
	userID := GetUserID(c)
	cmds := make([]inventory.CreateProductCommand, 0, len(in.Productos))
	origin := make([]int, 0, len(in.Productos))
	for i, row := range in.Productos {
		out.Filas[i].Fila = i + 1
		if in.CountryID > 0 {
			row.CountryID = in.CountryID
		}
		cmd, err := h.toValidCreateCommand(row, userID)
		if err != nil {
			out.Filas[i].Error = rowError(err)
			continue
		}
		cmds = append(cmds, cmd)
		origin = append(origin, i)
	}
	if len(cmds) > 0 {
		res, err := h.uc.BulkImport(c.UserContext(), cmds, GetScope(c))
		if err != nil {
			return respondError(c, err)
		}
		for j, r := range res.Rows {
			i := origin[j]
			if r.Err != nil {
				out.Filas[i].Error = rowError(r.Err)
				continue
			}
			out.Filas[i].ProductID = r.Product.ID
			out.Filas[i].Codigo = r.Product.Code
		}
	}
	for _, f := range out.Filas {
		if f.Error != nil {
			out.Omitidos++
		} else {
			out.Creados++
		}
	}
	return c.JSON(out)
}

// toValidCreateCommand valida una fila como si fuera el body de Create.
func (h *ProductHandler) toValidCreateCommand(in dto.CreateProductRequest, userID int64) (inventory.CreateProductCommand, error) {
	if err := validateStruct(&in); err != nil {
		return inventory.CreateProductCommand{}, err
	}
	return h.toCreateCommand(in, userID)
}

func (h *ProductHandler) toCreateCommand(in dto.CreateProductRequest, userID int64) (inventory.CreateProductCommand, error) {
	expires, err := time.ParseInLocation(dateLayout, in.FechaVencimiento, h.location)
	if err != nil {
		return inventory.CreateProductCommand{}, domain.Invalid("fecha_vencimiento", "fecha inválida")
	}
	cmd := inventory.CreateProductCommand{
		Name:        in.Nombre,
		Lot:         in.Lote,
		Quantity:    in.Cantidad,
		UnitWeight:  in.PesoUnitario,
		TotalWeight: in.PesoTotal,
		ExpiresAt:   expires,
		Supplier:    in.Proveedor,
		Responsible: in.Responsable,
		Notes:       in.Comentarios,
		CategoryID:  in.CategoriaID,
		CountryID:   in.CountryID,
		UserID:      userID,
	}
	if in.FechaRegistro != "" {
		cmd.RegisteredAt, err = time.ParseInLocation(dateLayout, in.FechaRegistro, h.location)
		if err != nil {
			return inventory.CreateProductCommand{}, domain.Invalid("fecha_registro", "fecha inválida")
		}
	}
	return cmd, nil
}

func rowError(err error) *dto.ErrorResponse {
	_, body := describeError(err)
	return &body
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	p, err := h.uc.Get(c.UserContext(), id, GetScope(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toProductResponse(p, h.today()))
}

// Delete godoc
// @Summary      Eliminar producto sin movimientos
// @Tags         products
// @Security     Bearer
// @Param        id   path  int  true  "ID del producto"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/v1/products/{id} [delete]
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.uc.Delete(c.UserContext(), id, GetScope(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// NextCode godoc
// @Summary      Reservar el siguiente código de producto de un país
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        country  query  string  true  "Código ISO del país (p.ej. SV)"
// @Success      200  {object}  dto.NextCodeResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/v1/products/next-code [get]
func (h *ProductHandler) NextCode(c *fiber.Ctx) error {
	country := strings.TrimSpace(c.Query("country"))
	if country == "" {
		return respondError(c, domain.Invalid("country", "es requerido"))
	}
	code, err := h.uc.ReserveCode(c.UserContext(), country)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NextCodeResponse{Codigo: code})
}

func (h *ProductHandler) today() time.Time {
	return h.now().In(h.location)
}
