package inventory_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Flujo básico
// ──────────────────────────────────────────────────────────────────────────────

func TestRecorder_EntradaSalidaYStockInsuficiente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 100)

	in, err := f.recorder.RecordEntrada(ctx, entrada(p.ID, 50))
	require.NoError(t, err)
	assert.Equal(t, entity.MovementEntrada, in.Type)
	assert.Equal(t, int64(100), in.QuantityBefore)
	assert.Equal(t, int64(150), in.QuantityAfter)

	out, err := f.recorder.RecordSalida(ctx, salida(p.ID, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(150), out.QuantityBefore)
	assert.Equal(t, int64(120), out.QuantityAfter)
	assert.Equal(t, int64(30), out.Quantity)

	_, err = f.recorder.RecordSalida(ctx, salida(p.ID, 200))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, p.ID, stockErr.ProductID)
	assert.Equal(t, int64(120), stockErr.Available)
	assert.Equal(t, int64(200), stockErr.Requested)

	assert.Equal(t, int64(120), f.quantityOf(t, p.ID))
	n, _ := f.store.Movements().CountByProduct(ctx, p.ID)
	assert.Equal(t, int64(3), n, "la salida rechazada no deja movimiento")
}

func TestRecorder_AjusteGuardaDiferenciaAbsoluta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 120)

	m, err := f.recorder.RecordAjuste(ctx, ajuste(p.ID, 80))
	require.NoError(t, err)
	assert.Equal(t, entity.MovementAjuste, m.Type)
	assert.Equal(t, int64(40), m.Quantity)
	assert.Equal(t, int64(120), m.QuantityBefore)
	assert.Equal(t, int64(80), m.QuantityAfter)

	up, err := f.recorder.RecordAjuste(ctx, ajuste(p.ID, 95))
	require.NoError(t, err)
	assert.Equal(t, int64(15), up.Quantity)

	zero, err := f.recorder.RecordAjuste(ctx, ajuste(p.ID, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(95), zero.Quantity)
	assert.Equal(t, int64(0), f.quantityOf(t, p.ID))
}

func TestRecorder_InicialDosVeces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 10)

	_, err := f.recorder.RecordInicial(ctx, p.ID, 99, testUserID)
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)

	ms, err := f.store.Movements().ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, entity.MovementInicial, ms[0].Type)
	assert.Equal(t, int64(10), ms[0].QuantityAfter)
	assert.Equal(t, int64(10), f.quantityOf(t, p.ID))
}

func TestRecorder_InicialSobreProductoSinHistoria(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := &entity.Product{Code: "SV010825900", Name: "Importado", CountryID: f.country.ID, CategoryID: f.category.ID}
	require.NoError(t, f.store.Products().Create(ctx, p))

	m, err := f.recorder.RecordInicial(ctx, p.ID, 25, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.QuantityBefore)
	assert.Equal(t, int64(25), m.QuantityAfter)
	assert.Equal(t, inventory.InicialResponsible, m.Responsible)
	assert.Equal(t, inventory.InicialReason, m.Reason)
	assert.Equal(t, int64(25), f.quantityOf(t, p.ID))
}

func TestRecorder_ProductoInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.recorder.RecordEntrada(context.Background(), entrada(404, 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, f.metrics.rejected["not_found"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación previa (sin escrituras)
// ──────────────────────────────────────────────────────────────────────────────

func TestRecorder_ValidacionDeEntrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 10)

	cases := []struct {
		name  string
		cmd   inventory.MovementCommand
		field string
	}{
		{"cantidad cero", inventory.MovementCommand{ProductID: p.ID, Quantity: 0, Responsible: "Ana", Reason: "x", UserID: testUserID}, "cantidad"},
		{"cantidad negativa", inventory.MovementCommand{ProductID: p.ID, Quantity: -3, Responsible: "Ana", Reason: "x", UserID: testUserID}, "cantidad"},
		{"sin responsable", inventory.MovementCommand{ProductID: p.ID, Quantity: 1, Responsible: "  ", Reason: "x", UserID: testUserID}, "responsable"},
		{"sin motivo", inventory.MovementCommand{ProductID: p.ID, Quantity: 1, Responsible: "Ana", UserID: testUserID}, "motivo"},
		{"motivo largo", inventory.MovementCommand{ProductID: p.ID, Quantity: 1, Responsible: "Ana", Reason: strings.Repeat("m", 501), UserID: testUserID}, "motivo"},
		{"observaciones largas", inventory.MovementCommand{ProductID: p.ID, Quantity: 1, Responsible: "Ana", Reason: "x", Notes: strings.Repeat("o", 1001), UserID: testUserID}, "observaciones"},
		{"sin usuario", inventory.MovementCommand{ProductID: p.ID, Quantity: 1, Responsible: "Ana", Reason: "x"}, "user_id"},
		{"sin producto", inventory.MovementCommand{Quantity: 1, Responsible: "Ana", Reason: "x", UserID: testUserID}, "product_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.recorder.RecordEntrada(ctx, tc.cmd)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	_, err := f.recorder.RecordAjuste(ctx, ajuste(p.ID, -1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.recorder.RecordInicial(ctx, p.ID, -1, testUserID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	n, _ := f.store.Movements().CountByProduct(ctx, p.ID)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(10), f.quantityOf(t, p.ID))
}

func TestRecorder_MotivoConAcentosCuentaRunas(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, 10)
	cmd := entrada(p.ID, 1)
	cmd.Reason = strings.Repeat("ñ", 500)
	_, err := f.recorder.RecordEntrada(context.Background(), cmd)
	assert.NoError(t, err)
}

func TestRecorder_MotivoDe300Caracteres(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, 10)
	cmd := entrada(p.ID, 1)
	cmd.Reason = strings.Repeat("m", 300)

	m, err := f.recorder.RecordEntrada(context.Background(), cmd)
	require.NoError(t, err)
	assert.Len(t, m.Reason, 300)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintentos, atomicidad y efectos posteriores
// ──────────────────────────────────────────────────────────────────────────────

func TestRecorder_ReintentaConflictos(t *testing.T) {
	var flaky *flakyRunner
	f := newFixtureWith(t, func(inner inventory.TxRunner) inventory.TxRunner {
		flaky = &flakyRunner{inner: inner}
		return flaky
	})
	p := f.createProduct(t, 10)
	flaky.mu.Lock()
	flaky.failures, flaky.calls = 2, 0
	flaky.mu.Unlock()

	m, err := f.recorder.RecordEntrada(context.Background(), entrada(p.ID, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(15), m.QuantityAfter)
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, 2, f.metrics.retried)
}

func TestRecorder_ReintentosAgotados(t *testing.T) {
	var flaky *flakyRunner
	f := newFixtureWith(t, func(inner inventory.TxRunner) inventory.TxRunner {
		flaky = &flakyRunner{inner: inner}
		return flaky
	})
	p := f.createProduct(t, 10)
	flaky.mu.Lock()
	flaky.failures, flaky.calls = 100, 0
	flaky.mu.Unlock()

	_, err := f.recorder.RecordEntrada(context.Background(), entrada(p.ID, 5))
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, f.cfg.MaxAttempts, flaky.calls)
	assert.Equal(t, int64(10), f.quantityOf(t, p.ID))
}

func TestRecorder_FalloAlInsertarRevierteSaldo(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, 10)
	broken := inventory.NewMovementRecorder(brokenRunner{inner: f.store}, nil, nil, zerologNop(), f.cfg)

	_, err := broken.RecordEntrada(context.Background(), entrada(p.ID, 5))
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, int64(10), f.quantityOf(t, p.ID))
}

func TestRecorder_PublicaSoloMovimientosConfirmados(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 10) // INICIAL publicado

	_, err := f.recorder.RecordSalida(ctx, salida(p.ID, 50))
	require.Error(t, err)
	assert.Equal(t, 1, f.publisher.count())

	f.publisher.err = errors.New("broker caído")
	_, err = f.recorder.RecordEntrada(ctx, entrada(p.ID, 1))
	require.NoError(t, err, "un fallo al publicar no revierte el movimiento")
	assert.Equal(t, 2, f.publisher.count())
	assert.Equal(t, 1, f.metrics.recorded[entity.MovementEntrada])
	assert.Equal(t, 1, f.metrics.rejected["insufficient_stock"])
}

func TestRecorder_ContextoCancelado(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.recorder.RecordEntrada(ctx, entrada(p.ID, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(10), f.quantityOf(t, p.ID))
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestRecorder_SalidasConcurrentesNuncaDejanSaldoNegativo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.recorder.RecordSalida(ctx, salida(p.ID, 60))
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(40), f.quantityOf(t, p.ID))
}

func TestRecorder_MovimientosConcurrentesMantienenLaCadena(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var applied int64 = 50
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var (
				m   *entity.Movement
				err error
			)
			if i%2 == 0 {
				m, err = f.recorder.RecordEntrada(ctx, entrada(p.ID, 3))
			} else {
				m, err = f.recorder.RecordSalida(ctx, salida(p.ID, 4))
			}
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if m.Type == entity.MovementEntrada {
				applied += m.Quantity
			} else {
				applied -= m.Quantity
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, applied, f.quantityOf(t, p.ID))
	k, err := f.kardex.GetHistory(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, applied, k.Entries[len(k.Entries)-1].Balance())
	for i := 1; i < len(k.Entries); i++ {
		assert.Equal(t, k.Entries[i-1].QuantityAfter, k.Entries[i].QuantityBefore)
		assert.False(t, k.Entries[i].Date.Before(k.Entries[i-1].Date))
	}
}
