package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

// Valores del movimiento inicial automático.
const (
	InicialResponsible = "Sistema"
	InicialReason      = "Stock inicial del producto"
	InicialNotes       = "Registro automatico al crear el producto"
)

// Config parámetros del ledger.
type Config struct {
	MaxAttempts  int            // intentos ante conflictos de concurrencia (>= 1)
	RetryBackoff time.Duration  // espera base entre intentos, crece linealmente
	Location     *time.Location // zona horaria de las fechas de movimiento y de los códigos
}

// DefaultConfig 3 intentos, 20ms de espera base, America/El_Salvador si está disponible.
func DefaultConfig() Config {
	loc, err := time.LoadLocation("America/El_Salvador")
	if err != nil {
		loc = time.UTC
	}
	return Config{MaxAttempts: 3, RetryBackoff: 20 * time.Millisecond, Location: loc}
}

func (c Config) normalized() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// MovementCommand entrada para ENTRADA y SALIDA. Quantity es la magnitud (> 0).
type MovementCommand struct {
	ProductID   int64
	Quantity    int64
	Responsible string
	Reason      string
	Notes       string
	UserID      int64
}

// AdjustmentCommand entrada para AJUSTE. NewQuantity es el saldo final deseado (>= 0).
type AdjustmentCommand struct {
	ProductID   int64
	NewQuantity int64
	Responsible string
	Reason      string
	Notes       string
	UserID      int64
}

type movementMeta struct {
	responsible string
	reason      string
	notes       string
	userID      int64
	movedAt     time.Time
}

// MovementRecorder registra movimientos del kardex: bloquea la fila del producto (SELECT FOR UPDATE),
// calcula el nuevo saldo, actualiza el producto con control de versión y agrega el movimiento,
// todo en una transacción. Los conflictos de concurrencia se reintentan hasta MaxAttempts.
type MovementRecorder struct {
	txRunner  TxRunner
	publisher EventPublisher
	metrics   Metrics
	log       zerolog.Logger
	cfg       Config
	now       func() time.Time
}

// NewMovementRecorder construye el recorder. publisher y metrics pueden ser nil.
func NewMovementRecorder(txRunner TxRunner, publisher EventPublisher, metrics Metrics, log zerolog.Logger, cfg Config) *MovementRecorder {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &MovementRecorder{
		txRunner:  txRunner,
		publisher: publisher,
		metrics:   metrics,
		log:       log.With().Str("component", "movement_recorder").Logger(),
		cfg:       cfg.normalized(),
		now:       time.Now,
	}
}

// RecordInicial registra el saldo de apertura de un producto sin movimientos.
func (r *MovementRecorder) RecordInicial(ctx context.Context, productID, initialQuantity, userID int64) (*entity.Movement, error) {
	if err := validateRefs(productID, userID); err != nil {
		return nil, err
	}
	if initialQuantity < 0 {
		return nil, domain.Invalid("cantidad", "debe ser mayor o igual a 0")
	}
	meta := movementMeta{
		responsible: InicialResponsible,
		reason:      InicialReason,
		notes:       InicialNotes,
		userID:      userID,
	}
	return r.record(ctx, entity.MovementInicial, productID, initialQuantity, meta)
}

// RecordEntrada suma cmd.Quantity al saldo.
func (r *MovementRecorder) RecordEntrada(ctx context.Context, cmd MovementCommand) (*entity.Movement, error) {
	if err := validateCommand(cmd.ProductID, cmd.UserID, cmd.Responsible, cmd.Reason, cmd.Notes); err != nil {
		return nil, err
	}
	if cmd.Quantity <= 0 {
		return nil, domain.Invalid("cantidad", "debe ser mayor a 0")
	}
	return r.record(ctx, entity.MovementEntrada, cmd.ProductID, cmd.Quantity, metaOf(cmd.Responsible, cmd.Reason, cmd.Notes, cmd.UserID))
}

// RecordSalida descuenta cmd.Quantity. Si supera el saldo devuelve ErrInsufficientStock y el producto no cambia.
func (r *MovementRecorder) RecordSalida(ctx context.Context, cmd MovementCommand) (*entity.Movement, error) {
	if err := validateCommand(cmd.ProductID, cmd.UserID, cmd.Responsible, cmd.Reason, cmd.Notes); err != nil {
		return nil, err
	}
	if cmd.Quantity <= 0 {
		return nil, domain.Invalid("cantidad", "debe ser mayor a 0")
	}
	return r.record(ctx, entity.MovementSalida, cmd.ProductID, cmd.Quantity, metaOf(cmd.Responsible, cmd.Reason, cmd.Notes, cmd.UserID))
}

// RecordAjuste fija el saldo en cmd.NewQuantity; el movimiento guarda la diferencia absoluta.
func (r *MovementRecorder) RecordAjuste(ctx context.Context, cmd AdjustmentCommand) (*entity.Movement, error) {
	if err := validateCommand(cmd.ProductID, cmd.UserID, cmd.Responsible, cmd.Reason, cmd.Notes); err != nil {
		return nil, err
	}
	if cmd.NewQuantity < 0 {
		return nil, domain.Invalid("cantidad_nueva", "debe ser mayor o igual a 0")
	}
	return r.record(ctx, entity.MovementAjuste, cmd.ProductID, cmd.NewQuantity, metaOf(cmd.Responsible, cmd.Reason, cmd.Notes, cmd.UserID))
}

func (r *MovementRecorder) record(ctx context.Context, typ entity.MovementType, productID, target int64, meta movementMeta) (*entity.Movement, error) {
	var (
		mov     *entity.Movement
		product *entity.Product
	)
	onRetry := func(attempt int, err error) {
		r.metrics.MovementRetried(typ)
		r.log.Warn().Err(err).Str("movement_type", string(typ)).Int64("product_id", productID).Int("attempt", attempt).Msg("conflicto de concurrencia, reintentando")
	}
	err := retry(ctx, r.cfg, onRetry, func() error {
		var err error
		mov, product, err = r.recordOnce(ctx, typ, productID, target, meta)
		return err
	})
	if err != nil {
		r.reject(typ, productID, err)
		return nil, err
	}
	r.committed(ctx, product, mov)
	return mov, nil
}

func (r *MovementRecorder) recordOnce(ctx context.Context, typ entity.MovementType, productID, target int64, meta movementMeta) (*entity.Movement, *entity.Product, error) {
	var (
		mov     *entity.Movement
		product *entity.Product
	)
	err := r.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		_ repository.CodeSequenceRepository,
	) error {
		// Bloquea la fila del producto hasta el commit
		p, err := productRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if typ == entity.MovementInicial {
			n, err := movRepo.CountByProduct(ctx, productID)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrAlreadyInitialized
			}
		}
		// La fecha se toma con la fila bloqueada: el orden por fecha coincide con el orden de aplicación.
		meta.movedAt = r.now().In(r.cfg.Location)
		m, err := appendMovement(ctx, movRepo, productRepo, p, typ, target, meta)
		if err != nil {
			return err
		}
		mov, product = m, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return mov, product, nil
}

// appendMovement aplica el movimiento sobre p (ya bloqueado por el caller) dentro de la tx en curso.
func appendMovement(
	ctx context.Context,
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	p *entity.Product,
	typ entity.MovementType,
	target int64,
	meta movementMeta,
) (*entity.Movement, error) {
	qty, after, err := inventory.Apply(typ, p.Quantity, target)
	if err != nil {
		var stockErr *domain.StockError
		if errors.As(err, &stockErr) {
			stockErr.ProductID = p.ID
		}
		return nil, err
	}
	m := &entity.Movement{
		Type:           typ,
		Quantity:       qty,
		QuantityBefore: p.Quantity,
		QuantityAfter:  after,
		Responsible:    meta.responsible,
		Reason:         meta.reason,
		Notes:          meta.notes,
		MovedAt:        meta.movedAt,
		ProductID:      p.ID,
		UserID:         meta.userID,
	}
	if err := inventory.CheckMovement(m); err != nil {
		return nil, err
	}
	if err := productRepo.UpdateQuantity(ctx, p.ID, after, p.Version); err != nil {
		return nil, err
	}
	p.Quantity = after
	p.Version++
	if err := movRepo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// retry reintenta fn ante errores de concurrencia con espera lineal; respeta la cancelación de ctx.
func retry(ctx context.Context, cfg Config, onRetry func(attempt int, err error), fn func() error) error {
	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !domain.IsRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		onRetry(attempt, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%d intentos agotados: %w", cfg.MaxAttempts, err)
}

func (r *MovementRecorder) reject(typ entity.MovementType, productID int64, err error) {
	kind := domain.Kind(err)
	r.metrics.MovementRejected(typ, kind)
	if errors.Is(err, domain.ErrConsistencyViolation) {
		r.metrics.ConsistencyViolation()
		r.log.Error().Err(err).Int64("product_id", productID).Str("movement_type", string(typ)).Msg("invariante del ledger violada")
		return
	}
	r.log.Debug().Err(err).Int64("product_id", productID).Str("movement_type", string(typ)).Str("kind", kind).Msg("movimiento rechazado")
}

// committed registra métricas y publica el evento una vez confirmada la transacción.
func (r *MovementRecorder) committed(ctx context.Context, product *entity.Product, mov *entity.Movement) {
	r.metrics.MovementRecorded(mov.Type)
	r.log.Info().
		Int64("product_id", mov.ProductID).
		Int64("movement_id", mov.ID).
		Str("movement_type", string(mov.Type)).
		Int64("quantity_before", mov.QuantityBefore).
		Int64("quantity_after", mov.QuantityAfter).
		Msg("movimiento registrado")
	if err := r.publisher.PublishMovement(ctx, product, mov); err != nil {
		r.log.Warn().Err(err).Int64("movement_id", mov.ID).Msg("no se pudo publicar el evento del movimiento")
	}
}

func metaOf(responsible, reason, notes string, userID int64) movementMeta {
	return movementMeta{
		responsible: strings.TrimSpace(responsible),
		reason:      strings.TrimSpace(reason),
		notes:       strings.TrimSpace(notes),
		userID:      userID,
	}
}

func validateRefs(productID, userID int64) error {
	if productID <= 0 {
		return domain.Invalid("product_id", "debe ser mayor a 0")
	}
	if userID <= 0 {
		return domain.Invalid("user_id", "usuario requerido")
	}
	return nil
}

// Longitudes máximas de los textos de un movimiento; las columnas de movements las respetan.
const (
	MaxResponsibleLength = 255
	MaxReasonLength      = 500
	MaxNotesLength       = 1000
)

func validateCommand(productID, userID int64, responsible, reason, notes string) error {
	if err := validateRefs(productID, userID); err != nil {
		return err
	}
	if err := validateText("responsable", responsible, 1, MaxResponsibleLength); err != nil {
		return err
	}
	if err := validateText("motivo", reason, 1, MaxReasonLength); err != nil {
		return err
	}
	return validateText("observaciones", notes, 0, MaxNotesLength)
}

func validateText(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < minLen {
		return domain.Invalid(field, "es requerido")
	}
	if n > maxLen {
		return domain.Invalid(field, fmt.Sprintf("máximo %d caracteres", maxLen))
	}
	return nil
}
