package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var weightTolerance = decimal.RequireFromString("0.001")

// CreateProductCommand datos de alta de un producto. Quantity es el saldo inicial.
type CreateProductCommand struct {
	Name         string
	Lot          string
	Quantity     int64
	UnitWeight   decimal.Decimal
	TotalWeight  decimal.Decimal
	RegisteredAt time.Time // cero = hoy
	ExpiresAt    time.Time
	Supplier     string
	Responsible  string
	Notes        string
	CategoryID   int64
	CountryID    int64
	UserID       int64
}

// ProductUseCase alta, consulta y baja de productos. El alta asigna el código, inserta el
// producto y registra el movimiento INICIAL en una sola transacción: no existe un producto sin movimientos.
type ProductUseCase struct {
	txRunner   TxRunner
	products   repository.ProductRepository
	countries  repository.CountryRepository
	categories repository.CategoryRepository
	allocator  *CodeAllocator
	recorder   *MovementRecorder
	log        zerolog.Logger
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(
	txRunner TxRunner,
	products repository.ProductRepository,
	countries repository.CountryRepository,
	categories repository.CategoryRepository,
	allocator *CodeAllocator,
	recorder *MovementRecorder,
) *ProductUseCase {
	return &ProductUseCase{
		txRunner:   txRunner,
		products:   products,
		countries:  countries,
		categories: categories,
		allocator:  allocator,
		recorder:   recorder,
		log:        recorder.log.With().Str("component", "product_usecase").Logger(),
	}
}

// Create da de alta el producto con su movimiento INICIAL. scope limita los países en que el usuario puede crear.
func (uc *ProductUseCase) Create(ctx context.Context, cmd CreateProductCommand, scope *entity.Scope) (*entity.Product, *entity.Movement, error) {
	now := uc.today()
	if cmd.RegisteredAt.IsZero() {
		cmd.RegisteredAt = now
	}
	if err := validateProduct(cmd); err != nil {
		return nil, nil, err
	}
	if !scope.AllowsCountry(cmd.CountryID) {
		return nil, nil, domain.ErrForbidden
	}
	country, err := uc.countries.GetByID(ctx, cmd.CountryID)
	if err != nil {
		return nil, nil, err
	}
	if country == nil || !country.Active {
		return nil, nil, domain.Invalid("country_id", "país inexistente o inactivo")
	}
	category, err := uc.categories.GetByID(ctx, cmd.CategoryID)
	if err != nil {
		return nil, nil, err
	}
	if category == nil || !category.Active {
		return nil, nil, domain.Invalid("categoria_id", "categoría inexistente o inactiva")
	}

	var (
		product *entity.Product
		mov     *entity.Movement
	)
	onRetry := func(attempt int, err error) {
		uc.log.Warn().Err(err).Str("country_code", country.Code).Int("attempt", attempt).Msg("conflicto creando producto, reintentando")
	}
	// Un código duplicado (cargado fuera del contador) se trata como conflicto: el contador ya avanzó.
	err = retry(ctx, uc.recorder.cfg, onRetry, func() error {
		err := uc.txRunner.Run(ctx, func(
			movRepo repository.MovementRepository,
			productRepo repository.ProductRepository,
			seqRepo repository.CodeSequenceRepository,
		) error {
			code, err := uc.allocator.AllocateIn(ctx, seqRepo, country.Code, now)
			if err != nil {
				return err
			}
			p := newProduct(cmd, code)
			if err := productRepo.Create(ctx, p); err != nil {
				return err
			}
			m, err := appendMovement(ctx, movRepo, productRepo, p, entity.MovementInicial, cmd.Quantity, movementMeta{
				responsible: InicialResponsible,
				reason:      InicialReason,
				notes:       InicialNotes,
				userID:      cmd.UserID,
				movedAt:     now,
			})
			if err != nil {
				return err
			}
			product, mov = p, m
			return nil
		})
		if errors.Is(err, domain.ErrDuplicate) {
			return fmt.Errorf("%w: %v", domain.ErrConcurrentModification, err)
		}
		return err
	})
	if err != nil {
		uc.recorder.reject(entity.MovementInicial, 0, err)
		return nil, nil, err
	}
	uc.recorder.metrics.CodeAllocated(country.Code)
	uc.recorder.committed(ctx, product, mov)
	return product, mov, nil
}

// Get obtiene un producto visible para scope; fuera de alcance responde ErrNotFound.
func (uc *ProductUseCase) Get(ctx context.Context, id int64, scope *entity.Scope) (*entity.Product, error) {
	p, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !scope.AllowsProduct(p) {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Delete elimina un producto visible para scope y sin historia; con movimientos responde ErrHasMovements.
func (uc *ProductUseCase) Delete(ctx context.Context, id int64, scope *entity.Scope) error {
	if _, err := uc.Get(ctx, id, scope); err != nil {
		return err
	}
	if err := uc.products.Delete(ctx, id); err != nil {
		return err
	}
	uc.log.Info().Int64("product_id", id).Msg("producto eliminado")
	return nil
}

// ReserveCode asigna un código para el país indicado en la fecha de hoy (zona configurada).
func (uc *ProductUseCase) ReserveCode(ctx context.Context, countryCode string) (string, error) {
	return uc.allocator.Allocate(ctx, countryCode, uc.today())
}

// ProductListQuery criterios del listado de productos.
type ProductListQuery struct {
	Search       string
	CategoryID   int64
	ExpiryStatus string
	Limit        int
	Offset       int
}

// List devuelve los productos visibles para scope (más recientes primero) y el total sin paginar.
// ExpiryStatus se evalúa contra la fecha de hoy en la zona configurada.
func (uc *ProductUseCase) List(ctx context.Context, q ProductListQuery, scope *entity.Scope) ([]*entity.Product, int64, error) {
	switch q.ExpiryStatus {
	case "", entity.ExpiryVigente, entity.ExpiryPorVencer, entity.ExpiryVencido:
	default:
		return nil, 0, domain.Invalid("estado_vencimiento", "debe ser vigente, por_vencer o vencido")
	}
	if q.CategoryID < 0 {
		return nil, 0, domain.Invalid("categoria_id", "debe ser mayor a 0")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if scope.Empty() {
		return []*entity.Product{}, 0, nil
	}
	return uc.products.List(ctx, repository.ProductFilter{
		Search:       strings.TrimSpace(q.Search),
		CategoryID:   q.CategoryID,
		ExpiryStatus: q.ExpiryStatus,
		Today:        truncateDay(uc.today()),
		Scope:        scope,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
}

// UpdateProductCommand cambios parciales de un producto; nil = sin cambio.
// Quantity existe para rechazarlo: el saldo solo cambia mediante movimientos.
type UpdateProductCommand struct {
	Name        *string
	Lot         *string
	Quantity    *int64
	UnitWeight  *decimal.Decimal
	TotalWeight *decimal.Decimal
	ExpiresAt   *time.Time
	Supplier    *string
	Responsible *string
	Notes       *string
	CategoryID  *int64
}

// Update modifica los datos descriptivos de un producto visible para scope.
// Código, país, fecha de registro y saldo no se modifican.
func (uc *ProductUseCase) Update(ctx context.Context, id int64, cmd UpdateProductCommand, scope *entity.Scope) (*entity.Product, error) {
	if cmd.Quantity != nil {
		return nil, domain.Invalid("cantidad", "el saldo solo se modifica con movimientos (entrada, salida o ajuste)")
	}
	p, err := uc.Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	setString(&p.Name, cmd.Name)
	setString(&p.Lot, cmd.Lot)
	setString(&p.Supplier, cmd.Supplier)
	setString(&p.Responsible, cmd.Responsible)
	setString(&p.Notes, cmd.Notes)
	if cmd.UnitWeight != nil {
		p.UnitWeight = *cmd.UnitWeight
	}
	if cmd.TotalWeight != nil {
		p.TotalWeight = *cmd.TotalWeight
	}
	if cmd.ExpiresAt != nil {
		p.ExpiresAt = *cmd.ExpiresAt
	}
	if err := validateDetails(p); err != nil {
		return nil, err
	}
	if cmd.CategoryID != nil && *cmd.CategoryID != p.CategoryID {
		if !scope.AllowsCategory(*cmd.CategoryID) {
			return nil, domain.ErrForbidden
		}
		category, err := uc.categories.GetByID(ctx, *cmd.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil || !category.Active {
			return nil, domain.Invalid("categoria_id", "categoría inexistente o inactiva")
		}
		p.CategoryID = category.ID
	}
	if err := uc.products.UpdateDetails(ctx, p); err != nil {
		return nil, err
	}
	uc.log.Info().Int64("product_id", p.ID).Str("code", p.Code).Msg("producto actualizado")
	return p, nil
}

// MaxBulkImportRows filas aceptadas por importación.
const MaxBulkImportRows = 500

// BulkImportRow resultado de una fila: Product si se creó, Err si se omitió.
type BulkImportRow struct {
	Row     int // 1-based
	Product *entity.Product
	Err     error
}

// BulkImportResult resumen de una importación masiva.
type BulkImportResult struct {
	Total   int
	Created int
	Skipped int
	Rows    []BulkImportRow
}

// BulkImport crea cada fila con Create, una transacción por fila: una fila inválida no
// afecta a las demás. Solo un contexto cancelado interrumpe la importación.
func (uc *ProductUseCase) BulkImport(ctx context.Context, cmds []CreateProductCommand, scope *entity.Scope) (*BulkImportResult, error) {
	if len(cmds) == 0 {
		return nil, domain.Invalid("productos", "debe incluir al menos un producto")
	}
	if len(cmds) > MaxBulkImportRows {
		return nil, domain.Invalid("productos", fmt.Sprintf("máximo %d productos por importación", MaxBulkImportRows))
	}
	res := &BulkImportResult{Total: len(cmds), Rows: make([]BulkImportRow, 0, len(cmds))}
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := BulkImportRow{Row: i + 1}
		row.Product, _, row.Err = uc.Create(ctx, cmd, scope)
		if row.Err != nil {
			res.Skipped++
		} else {
			res.Created++
		}
		res.Rows = append(res.Rows, row)
	}
	uc.log.Info().Int("total", res.Total).Int("created", res.Created).Int("skipped", res.Skipped).Msg("importación masiva")
	return res, nil
}

func (uc *ProductUseCase) today() time.Time {
	return uc.recorder.now().In(uc.recorder.cfg.Location)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func newProduct(cmd CreateProductCommand, code string) *entity.Product {
	return &entity.Product{
		Code:         code,
		Name:         cmd.Name,
		Lot:          cmd.Lot,
		Quantity:     0,
		UnitWeight:   cmd.UnitWeight,
		TotalWeight:  cmd.TotalWeight,
		RegisteredAt: cmd.RegisteredAt,
		ExpiresAt:    cmd.ExpiresAt,
		Supplier:     cmd.Supplier,
		Responsible:  cmd.Responsible,
		Notes:        cmd.Notes,
		CategoryID:   cmd.CategoryID,
		CountryID:    cmd.CountryID,
		CreatedBy:    cmd.UserID,
	}
}

func validateProduct(cmd CreateProductCommand) error {
	if cmd.UserID <= 0 {
		return domain.Invalid("user_id", "usuario requerido")
	}
	if cmd.CountryID <= 0 {
		return domain.Invalid("country_id", "es requerido")
	}
	if cmd.CategoryID <= 0 {
		return domain.Invalid("categoria_id", "es requerido")
	}
	if cmd.Quantity < 0 {
		return domain.Invalid("cantidad", "debe ser mayor o igual a 0")
	}
	p := newProduct(cmd, "")
	if err := validateDetails(p); err != nil {
		return err
	}
	expected := cmd.UnitWeight.Mul(decimal.NewFromInt(cmd.Quantity))
	if cmd.Quantity > 0 && cmd.TotalWeight.Sub(expected).Abs().GreaterThan(weightTolerance) {
		return domain.Invalid("peso_total", fmt.Sprintf("no coincide con peso_unitario * cantidad (%s)", expected.String()))
	}
	return nil
}

// validateDetails reglas de los campos descriptivos, comunes al alta y a la edición.
func validateDetails(p *entity.Product) error {
	for _, f := range []struct {
		name, value string
		maxLen      int
	}{
		{"nombre", p.Name, 255},
		{"lote", p.Lot, 100},
		{"proveedor", p.Supplier, 255},
		{"responsable", p.Responsible, 255},
	} {
		if err := validateText(f.name, f.value, 1, f.maxLen); err != nil {
			return err
		}
	}
	if err := validateText("comentarios", p.Notes, 0, 1000); err != nil {
		return err
	}
	if !p.UnitWeight.GreaterThan(decimal.Zero) {
		return domain.Invalid("peso_unitario", "debe ser mayor a 0")
	}
	if !p.TotalWeight.GreaterThan(decimal.Zero) {
		return domain.Invalid("peso_total", "debe ser mayor a 0")
	}
	if p.ExpiresAt.IsZero() {
		return domain.Invalid("fecha_vencimiento", "es requerida")
	}
	if p.ExpiresAt.Before(truncateDay(p.RegisteredAt)) {
		return domain.Invalid("fecha_vencimiento", "no puede ser anterior a la fecha de registro")
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
