package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Muestras-api/internal/domain/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

// CodeAllocator emite códigos de producto únicos CC+DD+MM+YY+NNN.
// La secuencia se serializa por (país, mes, año) mediante un contador atómico en la BD.
type CodeAllocator struct {
	txRunner TxRunner
	metrics  Metrics
	log      zerolog.Logger
	cfg      Config
}

// NewCodeAllocator construye el allocator. metrics puede ser nil.
func NewCodeAllocator(txRunner TxRunner, metrics Metrics, log zerolog.Logger, cfg Config) *CodeAllocator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &CodeAllocator{
		txRunner: txRunner,
		metrics:  metrics,
		log:      log.With().Str("component", "code_allocator").Logger(),
		cfg:      cfg.normalized(),
	}
}

// Allocate reserva el siguiente código del alcance en su propia transacción.
// Los huecos por creaciones fallidas se toleran; los duplicados no.
func (a *CodeAllocator) Allocate(ctx context.Context, countryCode string, onDate time.Time) (string, error) {
	cc, err := inventory.NormalizeCountryCode(countryCode)
	if err != nil {
		return "", err
	}
	var code string
	onRetry := func(attempt int, err error) {
		a.log.Warn().Err(err).Str("country_code", cc).Int("attempt", attempt).Msg("conflicto asignando código, reintentando")
	}
	err = retry(ctx, a.cfg, onRetry, func() error {
		return a.txRunner.Run(ctx, func(
			_ repository.MovementRepository,
			_ repository.ProductRepository,
			seqRepo repository.CodeSequenceRepository,
		) error {
			c, err := a.AllocateIn(ctx, seqRepo, cc, onDate)
			if err != nil {
				return err
			}
			code = c
			return nil
		})
	})
	if err != nil {
		a.log.Warn().Err(err).Str("country_code", cc).Msg("no se pudo asignar código")
		return "", err
	}
	a.metrics.CodeAllocated(cc)
	return code, nil
}

// AllocateIn asigna un código usando el repositorio de secuencias de la transacción del caller.
func (a *CodeAllocator) AllocateIn(ctx context.Context, seqRepo repository.CodeSequenceRepository, countryCode string, onDate time.Time) (string, error) {
	cc, err := inventory.NormalizeCountryCode(countryCode)
	if err != nil {
		return "", err
	}
	seq, err := seqRepo.Next(ctx, cc, onDate.Year(), onDate.Month())
	if err != nil {
		return "", err
	}
	return inventory.FormatCode(cc, onDate, seq)
}
