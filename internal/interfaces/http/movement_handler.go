package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Muestras-api/internal/application/dto"
	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

// KardexPDFGenerator genera el PDF del kardex.
type KardexPDFGenerator interface {
	GenerateKardexPDF(ctx context.Context, k *entity.Kardex) ([]byte, error)
}

// productReader lectura de productos filtrada por alcance.
type productReader interface {
	Get(ctx context.Context, id int64, scope *entity.Scope) (*entity.Product, error)
}

// MovementHandler expone el ledger: registro, consultas, kardex y auditoría.
type MovementHandler struct {
	recorder *inventory.MovementRecorder
	query    *inventory.MovementQuery
	kardex   *inventory.KardexReconstructor
	products productReader
	pdf      KardexPDFGenerator
	location *time.Location
}

// NewMovementHandler construye el handler. pdf puede ser nil (sin exportación).
func NewMovementHandler(
	recorder *inventory.MovementRecorder,
	query *inventory.MovementQuery,
	kardex *inventory.KardexReconstructor,
	products productReader,
	pdf KardexPDFGenerator,
	location *time.Location,
) *MovementHandler {
	if location == nil {
		location = time.UTC
	}
	return &MovementHandler{
		recorder: recorder,
		query:    query,
		kardex:   kardex,
		products: products,
		pdf:      pdf,
		location: location,
	}
}

// Entrada godoc
// @Summary      Registrar entrada de stock
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "product_id, cantidad, responsable, motivo"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/movements/entrada [post]
func (h *MovementHandler) Entrada(c *fiber.Ctx) error {
	return h.recordMovement(c, h.recorder.RecordEntrada)
}

// Salida godoc
// @Summary      Registrar salida de stock
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "product_id, cantidad, responsable, motivo"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/movements/salida [post]
func (h *MovementHandler) Salida(c *fiber.Ctx) error {
	return h.recordMovement(c, h.recorder.RecordSalida)
}

func (h *MovementHandler) recordMovement(c *fiber.Ctx, record func(context.Context, inventory.MovementCommand) (*entity.Movement, error)) error {
	var in dto.MovementRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	if _, err := h.products.Get(c.UserContext(), in.ProductID, GetScope(c)); err != nil {
		return respondError(c, err)
	}
	mov, err := record(c.UserContext(), inventory.MovementCommand{
		ProductID:   in.ProductID,
		Quantity:    in.Cantidad,
		Responsible: in.Responsable,
		Reason:      in.Motivo,
		Notes:       in.Observaciones,
		UserID:      GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(mov))
}

// Ajuste godoc
// @Summary      Ajustar stock a un saldo absoluto
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "product_id, cantidad_nueva, responsable, motivo"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/movements/ajuste [post]
func (h *MovementHandler) Ajuste(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	if _, err := h.products.Get(c.UserContext(), in.ProductID, GetScope(c)); err != nil {
		return respondError(c, err)
	}
	mov, err := h.recorder.RecordAjuste(c.UserContext(), inventory.AdjustmentCommand{
		ProductID:   in.ProductID,
		NewQuantity: *in.CantidadNueva,
		Responsible: in.Responsable,
		Reason:      in.Motivo,
		Notes:       in.Observaciones,
		UserID:      GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(mov))
}

// List godoc
// @Summary      Listar movimientos
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  int     false  "ID del producto"
// @Param        tipo         query  string  false  "ENTRADA, SALIDA, AJUSTE o INICIAL"
// @Param        fecha_desde  query  string  false  "YYYY-MM-DD"
// @Param        fecha_hasta  query  string  false  "YYYY-MM-DD (inclusive)"
// @Param        responsable  query  string  false  "Responsable (parcial)"
// @Param        search       query  string  false  "Código, nombre, motivo o responsable"
// @Param        limit        query  int     false  "Máximo 100"
// @Param        offset       query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/v1/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var in dto.MovementFilterRequest
	if err := bindQuery(c, &in); err != nil {
		return respondError(c, err)
	}
	in.DefaultPage()
	f := repository.MovementFilter{
		ProductID:   in.ProductID,
		Type:        entity.MovementType(in.Tipo),
		Responsible: in.Responsable,
		Search:      in.Search,
		Scope:       GetScope(c),
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.FechaDesde != "" {
		from, err := time.ParseInLocation(dateLayout, in.FechaDesde, h.location)
		if err != nil {
			return respondError(c, domain.Invalid("fecha_desde", "fecha inválida"))
		}
		f.From = &from
	}
	if in.FechaHasta != "" {
		day, err := time.ParseInLocation(dateLayout, in.FechaHasta, h.location)
		if err != nil {
			return respondError(c, domain.Invalid("fecha_hasta", "fecha inválida"))
		}
		to := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &to
	}
	items, total, err := h.query.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.MovementListResponse{
		Items: make([]dto.MovementResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: f.Limit, Offset: f.Offset, Total: total},
	}
	for _, v := range items {
		out.Items = append(out.Items, toMovementViewResponse(v))
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener movimiento por ID
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/movements/{id} [get]
func (h *MovementHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	m, err := h.query.Get(c.UserContext(), id, GetScope(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toMovementViewResponse(m))
}

// Stats godoc
// @Summary      Estadísticas de movimientos
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.MovementStatsResponse
// @Router       /api/v1/movements/stats [get]
func (h *MovementHandler) Stats(c *fiber.Ctx) error {
	st, err := h.query.Stats(c.UserContext(), GetScope(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toStatsResponse(st))
}

// Kardex godoc
// @Summary      Kardex de un producto
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Produce      application/pdf
// @Param        product_id  path   int     true   "ID del producto"
// @Param        format      query  string  false  "json (default) o pdf"
// @Success      200  {object}  dto.KardexResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/v1/movements/kardex/{product_id} [get]
func (h *MovementHandler) Kardex(c *fiber.Ctx) error {
	id, err := paramID(c, "product_id")
	if err != nil {
		return respondError(c, err)
	}
	k, err := h.kardex.GetHistory(c.UserContext(), id, GetScope(c))
	if err != nil {
		return respondError(c, err)
	}
	if c.Query("format") != "pdf" {
		return c.JSON(toKardexResponse(k))
	}
	if h.pdf == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "PDF_UNAVAILABLE", Message: "exportación PDF no configurada"})
	}
	doc, err := h.pdf.GenerateKardexPDF(c.UserContext(), k)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="kardex-`+k.ProductCode+`.pdf"`)
	return c.Send(doc)
}

// Audit godoc
// @Summary      Auditar consistencia del kardex
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  int  true  "ID del producto"
// @Success      200  {object}  dto.AuditResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/movements/audit/{product_id} [get]
func (h *MovementHandler) Audit(c *fiber.Ctx) error {
	id, err := paramID(c, "product_id")
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.kardex.Audit(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toAuditResponse(res))
}

// paramID lee un id entero positivo de la ruta; inválido responde como no encontrado.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}
