package inventory

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

// KardexReconstructor arma la historia de un producto leyendo producto y movimientos en una
// misma instantánea. No guarda estado entre llamadas y nunca escribe.
type KardexReconstructor struct {
	reader  SnapshotReader
	metrics Metrics
	log     zerolog.Logger
}

// NewKardexReconstructor construye el reconstructor. metrics puede ser nil.
func NewKardexReconstructor(reader SnapshotReader, metrics Metrics, log zerolog.Logger) *KardexReconstructor {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &KardexReconstructor{
		reader:  reader,
		metrics: metrics,
		log:     log.With().Str("component", "kardex").Logger(),
	}
}

// GetHistory devuelve el kardex en orden ascendente (fecha de movimiento, id).
// Un producto fuera de scope responde ErrNotFound, igual que uno inexistente.
// Si la cadena de saldos no cierra con la cantidad del producto responde ErrConsistencyViolation.
func (k *KardexReconstructor) GetHistory(ctx context.Context, productID int64, scope *entity.Scope) (*entity.Kardex, error) {
	product, movements, err := k.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !scope.AllowsProduct(product) {
		return nil, domain.ErrNotFound
	}
	if err := inventory.VerifyChain(product.ID, product.Quantity, movements); err != nil {
		k.metrics.ConsistencyViolation()
		k.log.Error().Err(err).Int64("product_id", product.ID).Msg("kardex inconsistente")
		return nil, err
	}
	return buildKardex(product, movements), nil
}

// Audit verifica la consistencia del kardex sin filtro de alcance. Solo falla por errores de lectura.
func (k *KardexReconstructor) Audit(ctx context.Context, productID int64) (*AuditResult, error) {
	product, movements, err := k.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	res := &AuditResult{
		ProductID:   product.ID,
		ProductCode: product.Code,
		Quantity:    product.Quantity,
		Movements:   len(movements),
		Consistent:  true,
	}
	if err := inventory.VerifyChain(product.ID, product.Quantity, movements); err != nil {
		var ce *domain.ConsistencyError
		if !errors.As(err, &ce) {
			return nil, err
		}
		k.metrics.ConsistencyViolation()
		res.Consistent = false
		res.MovementID = ce.MovementID
		res.Detail = ce.Detail
	}
	return res, nil
}

// AuditResult resultado de la verificación del kardex de un producto.
type AuditResult struct {
	ProductID   int64
	ProductCode string
	Quantity    int64
	Movements   int
	Consistent  bool
	MovementID  int64
	Detail      string
}

func (k *KardexReconstructor) load(ctx context.Context, productID int64) (*entity.Product, []*entity.Movement, error) {
	if productID <= 0 {
		return nil, nil, domain.ErrNotFound
	}
	var (
		product   *entity.Product
		movements []*entity.Movement
	)
	err := k.reader.View(ctx, func(movRepo repository.MovementRepository, productRepo repository.ProductRepository) error {
		p, err := productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		ms, err := movRepo.ListByProduct(ctx, productID)
		if err != nil {
			return err
		}
		product, movements = p, ms
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return product, movements, nil
}

func buildKardex(p *entity.Product, movements []*entity.Movement) *entity.Kardex {
	k := &entity.Kardex{
		ProductID:      p.ID,
		ProductCode:    p.Code,
		ProductName:    p.Name,
		CurrentBalance: p.Quantity,
		Entries:        make([]entity.KardexEntry, 0, len(movements)),
	}
	for _, m := range movements {
		k.Entries = append(k.Entries, entity.KardexEntry{
			MovementID:     m.ID,
			Date:           m.MovedAt,
			Type:           m.Type,
			Reason:         m.Reason,
			Responsible:    m.Responsible,
			Quantity:       m.Quantity,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			Notes:          m.Notes,
		})
	}
	return k
}
