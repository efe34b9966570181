package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/memory"
)

const testUserID int64 = 1

type fixture struct {
	store     *memory.Store
	cfg       inventory.Config
	metrics   *spyMetrics
	publisher *spyPublisher
	recorder  *inventory.MovementRecorder
	allocator *inventory.CodeAllocator
	products  *inventory.ProductUseCase
	kardex    *inventory.KardexReconstructor
	query     *inventory.MovementQuery
	country   *entity.Country
	category  *entity.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith permite envolver el TxRunner del almacén (fallos simulados).
func newFixtureWith(t *testing.T, wrap func(inventory.TxRunner) inventory.TxRunner) *fixture {
	t.Helper()
	s := memory.NewStore()
	cfg := inventory.DefaultConfig()
	cfg.RetryBackoff = time.Millisecond

	var runner inventory.TxRunner = s
	if wrap != nil {
		runner = wrap(s)
	}
	f := &fixture{
		store:     s,
		cfg:       cfg,
		metrics:   newSpyMetrics(),
		publisher: &spyPublisher{},
		country:   s.AddCountry(entity.Country{Name: "El Salvador", Code: "SV", Active: true}),
		category:  s.AddCategory(entity.Category{Name: "FOOD", Active: true}),
	}
	log := zerolog.Nop()
	f.recorder = inventory.NewMovementRecorder(runner, f.publisher, f.metrics, log, cfg)
	f.allocator = inventory.NewCodeAllocator(runner, f.metrics, log, cfg)
	f.products = inventory.NewProductUseCase(runner, s.Products(), s.Countries(), s.Categories(), f.allocator, f.recorder)
	f.kardex = inventory.NewKardexReconstructor(s, f.metrics, log)
	f.query = inventory.NewMovementQuery(s.Movements(), cfg)
	return f
}

func (f *fixture) productCommand(quantity int64) inventory.CreateProductCommand {
	unit := decimal.RequireFromString("0.5")
	return inventory.CreateProductCommand{
		Name:        "Galleta de avena",
		Lot:         "L-001",
		Quantity:    quantity,
		UnitWeight:  unit,
		TotalWeight: unit.Mul(decimal.NewFromInt(quantity)),
		ExpiresAt:   time.Now().AddDate(0, 6, 0),
		Supplier:    "Proveedor SA",
		Responsible: "Ana",
		CategoryID:  f.category.ID,
		CountryID:   f.country.ID,
		UserID:      testUserID,
	}
}

func (f *fixture) createProduct(t *testing.T, quantity int64) *entity.Product {
	t.Helper()
	p, _, err := f.products.Create(context.Background(), f.productCommand(quantity), nil)
	require.NoError(t, err)
	return p
}

func (f *fixture) quantityOf(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity
}

func entrada(productID, qty int64) inventory.MovementCommand {
	return inventory.MovementCommand{ProductID: productID, Quantity: qty, Responsible: "Ana", Reason: "Compra", UserID: testUserID}
}

func salida(productID, qty int64) inventory.MovementCommand {
	return inventory.MovementCommand{ProductID: productID, Quantity: qty, Responsible: "Luis", Reason: "Despacho", UserID: testUserID}
}

func ajuste(productID, newQty int64) inventory.AdjustmentCommand {
	return inventory.AdjustmentCommand{ProductID: productID, NewQuantity: newQty, Responsible: "Ana", Reason: "Conteo físico", UserID: testUserID}
}

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de prueba
// ──────────────────────────────────────────────────────────────────────────────

type spyMetrics struct {
	mu         sync.Mutex
	recorded   map[entity.MovementType]int
	rejected   map[string]int
	retried    int
	codes      int
	violations int
}

func newSpyMetrics() *spyMetrics {
	return &spyMetrics{recorded: map[entity.MovementType]int{}, rejected: map[string]int{}}
}

func (m *spyMetrics) MovementRecorded(t entity.MovementType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded[t]++
}

func (m *spyMetrics) MovementRejected(_ entity.MovementType, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *spyMetrics) MovementRetried(entity.MovementType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retried++
}

func (m *spyMetrics) CodeAllocated(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes++
}

func (m *spyMetrics) ConsistencyViolation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations++
}

type spyPublisher struct {
	mu        sync.Mutex
	movements []*entity.Movement
	err       error
}

func (p *spyPublisher) PublishMovement(_ context.Context, _ *entity.Product, m *entity.Movement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movements = append(p.movements, m)
	return p.err
}

func (p *spyPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.movements)
}

// flakyRunner simula conflictos de concurrencia en las primeras llamadas.
type flakyRunner struct {
	inner    inventory.TxRunner
	failures int
	mu       sync.Mutex
	calls    int
}

func (r *flakyRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.ProductRepository, repository.CodeSequenceRepository) error) error {
	r.mu.Lock()
	r.calls++
	fail := r.calls <= r.failures
	r.mu.Unlock()
	if fail {
		return fmt.Errorf("update product: %w", domain.ErrConcurrentModification)
	}
	return r.inner.Run(ctx, fn)
}

var errDiskFull = errors.New("disco lleno")

// brokenMovements falla al insertar, después de que el producto ya fue escrito en la tx.
type brokenMovements struct {
	repository.MovementRepository
}

func (brokenMovements) Create(context.Context, *entity.Movement) error { return errDiskFull }

type brokenRunner struct {
	inner inventory.TxRunner
}

func (r brokenRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.ProductRepository, repository.CodeSequenceRepository) error) error {
	return r.inner.Run(ctx, func(m repository.MovementRepository, p repository.ProductRepository, s repository.CodeSequenceRepository) error {
		return fn(brokenMovements{m}, p, s)
	})
}

func zerologNop() zerolog.Logger { return zerolog.Nop() }

func productWithCode(code string) *entity.Product {
	return &entity.Product{Code: code, Name: "Legado", CountryID: 1, CategoryID: 1}
}
