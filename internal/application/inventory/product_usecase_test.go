package inventory_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	domaininv "github.com/jhoicas/Muestras-api/internal/domain/inventory"
)

var svCode = regexp.MustCompile(`^SV\d{6}\d{3}$`)

func TestProductCreate_RegistraMovimientoInicial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, m, err := f.products.Create(ctx, f.productCommand(100), nil)
	require.NoError(t, err)

	assert.Regexp(t, svCode, p.Code)
	assert.Equal(t, int64(100), p.Quantity)
	assert.Equal(t, testUserID, p.CreatedBy)

	assert.Equal(t, entity.MovementInicial, m.Type)
	assert.Equal(t, int64(0), m.QuantityBefore)
	assert.Equal(t, int64(100), m.QuantityAfter)
	assert.Equal(t, int64(100), m.Quantity)
	assert.Equal(t, inventory.InicialResponsible, m.Responsible)
	assert.Equal(t, inventory.InicialReason, m.Reason)
	assert.Equal(t, inventory.InicialNotes, m.Notes)
	assert.Equal(t, p.ID, m.ProductID)

	stored, err := f.store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.Quantity)
	assert.Equal(t, 1, f.metrics.codes)
	assert.Equal(t, 1, f.publisher.count())
}

func TestProductCreate_CantidadCeroTambienTieneInicial(t *testing.T) {
	f := newFixture(t)
	cmd := f.productCommand(0)
	cmd.TotalWeight = decimal.RequireFromString("1")
	p, m, err := f.products.Create(context.Background(), cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Quantity)
	assert.Equal(t, entity.MovementInicial, m.Type)
}

func TestProductCreate_SecuenciaPorPaisYMes(t *testing.T) {
	f := newFixture(t)
	first := f.createProduct(t, 1)
	second := f.createProduct(t, 1)

	a, err := domaininv.ParseCode(first.Code)
	require.NoError(t, err)
	b, err := domaininv.ParseCode(second.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Sequence)
	assert.Equal(t, 2, b.Sequence)
	assert.Equal(t, first.Code[:9], second.Code[:9])
}

func TestProductCreate_RespetaCodigosExistentes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := time.Now().In(f.cfg.Location)
	legacy, err := domaininv.FormatCode("SV", today, 41)
	require.NoError(t, err)
	require.NoError(t, f.store.Products().Create(ctx, &entity.Product{Code: legacy, CountryID: f.country.ID, CategoryID: f.category.ID}))

	p := f.createProduct(t, 5)
	parts, err := domaininv.ParseCode(p.Code)
	require.NoError(t, err)
	assert.Equal(t, 42, parts.Sequence)
}

func TestProductCreate_FalloEnInicialNoDejaProducto(t *testing.T) {
	f := newFixture(t)
	broken := inventory.NewProductUseCase(
		brokenRunner{inner: f.store}, f.store.Products(), f.store.Countries(), f.store.Categories(), f.allocator, f.recorder,
	)

	_, _, err := broken.Create(context.Background(), f.productCommand(10), nil)
	require.ErrorIs(t, err, errDiskFull)

	list, total, err := f.store.Movements().List(context.Background(), repositoryFilterAll())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	// el contador no avanzó: el siguiente producto recibe la secuencia 1
	p := f.createProduct(t, 1)
	parts, _ := domaininv.ParseCode(p.Code)
	assert.Equal(t, 1, parts.Sequence)
	assert.Equal(t, int64(1), p.ID, "el producto fallido no quedó persistido")
}

func TestProductCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive := f.store.AddCountry(entity.Country{Name: "Honduras", Code: "HN", Active: false})

	cases := map[string]func(c *inventory.CreateProductCommand){
		"sin nombre":               func(c *inventory.CreateProductCommand) { c.Name = "" },
		"peso unitario cero":       func(c *inventory.CreateProductCommand) { c.UnitWeight = decimal.Zero },
		"peso total no coincide":   func(c *inventory.CreateProductCommand) { c.TotalWeight = decimal.RequireFromString("999") },
		"vencimiento anterior":     func(c *inventory.CreateProductCommand) { c.ExpiresAt = time.Now().AddDate(0, 0, -2) },
		"sin vencimiento":          func(c *inventory.CreateProductCommand) { c.ExpiresAt = time.Time{} },
		"cantidad negativa":        func(c *inventory.CreateProductCommand) { c.Quantity = -1 },
		"país inactivo":            func(c *inventory.CreateProductCommand) { c.CountryID = inactive.ID },
		"categoría inexistente":    func(c *inventory.CreateProductCommand) { c.CategoryID = 99 },
		"comentarios muy extensos": func(c *inventory.CreateProductCommand) { c.Notes = string(make([]byte, 1001)) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cmd := f.productCommand(4)
			mutate(&cmd)
			_, _, err := f.products.Create(ctx, cmd, nil)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Zero(t, f.metrics.codes)
}

func TestProductCreate_FueraDeAlcanceEsProhibido(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.products.Create(context.Background(), f.productCommand(1), entity.CountriesOnly(2))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestProductCreate_ConcurrenteCodigosUnicos(t *testing.T) {
	f := newFixture(t)
	const n = 25
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := f.products.Create(context.Background(), f.productCommand(1), nil)
			if assert.NoError(t, err) {
				codes[i] = p.Code
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "código duplicado %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, n)
}

func TestProductGetYDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 3)

	got, err := f.products.Get(ctx, p.ID, entity.CountriesOnly(f.country.ID))
	require.NoError(t, err)
	assert.Equal(t, p.Code, got.Code)

	_, err = f.products.Get(ctx, p.ID, entity.CountriesOnly(2))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = f.products.Delete(ctx, p.ID, nil)
	assert.ErrorIs(t, err, domain.ErrHasMovements)

	err = f.products.Delete(ctx, 999, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Listado, edición e importación
// ──────────────────────────────────────────────────────────────────────────────

func TestProductList_FiltrosYAlcance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pharma := f.store.AddCategory(entity.Category{Name: "PHARMA", Active: true})
	gt := f.store.AddCountry(entity.Country{Name: "Guatemala", Code: "GT", Active: true})

	vigente := f.productCommand(2)
	vigente.Name = "Galleta de avena"
	porVencer := f.productCommand(2)
	porVencer.Name = "Jarabe"
	porVencer.Lot = "LOTE-JRB"
	porVencer.CategoryID = pharma.ID
	porVencer.ExpiresAt = time.Now().AddDate(0, 0, 10)
	vencido := f.productCommand(2)
	vencido.Name = "Cereal"
	vencido.RegisteredAt = time.Now().AddDate(0, 0, -60)
	vencido.ExpiresAt = time.Now().AddDate(0, 0, -10)
	otroPais := f.productCommand(2)
	otroPais.CountryID = gt.ID
	for _, cmd := range []inventory.CreateProductCommand{vigente, porVencer, vencido, otroPais} {
		_, _, err := f.products.Create(ctx, cmd, nil)
		require.NoError(t, err)
	}
	sv := entity.CountriesOnly(f.country.ID)

	all, total, err := f.products.List(ctx, inventory.ProductListQuery{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	_, total, err = f.products.List(ctx, inventory.ProductListQuery{}, sv)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	byStatus := map[string]string{
		entity.ExpiryVigente:   "Galleta de avena",
		entity.ExpiryPorVencer: "Jarabe",
		entity.ExpiryVencido:   "Cereal",
	}
	for status, name := range byStatus {
		list, total, err := f.products.List(ctx, inventory.ProductListQuery{ExpiryStatus: status}, sv)
		require.NoError(t, err)
		require.Equal(t, int64(1), total, status)
		assert.Equal(t, name, list[0].Name)
	}

	list, _, err := f.products.List(ctx, inventory.ProductListQuery{Search: " jrb "}, sv)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Jarabe", list[0].Name)

	_, total, err = f.products.List(ctx, inventory.ProductListQuery{CategoryID: pharma.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	page, total, err := f.products.List(ctx, inventory.ProductListQuery{Limit: 2, Offset: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 2)

	empty, total, err := f.products.List(ctx, inventory.ProductListQuery{}, entity.CountriesOnly())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, empty)

	_, _, err = f.products.List(ctx, inventory.ProductListQuery{ExpiryStatus: "caducado"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProductUpdate_CamposDescriptivos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 8)
	pharma := f.store.AddCategory(entity.Category{Name: "PHARMA", Active: true})
	before, err := f.store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)

	name := "Galleta integral"
	notes := "Reetiquetado"
	expires := time.Now().AddDate(1, 0, 0)
	updated, err := f.products.Update(ctx, p.ID, inventory.UpdateProductCommand{
		Name:       &name,
		Notes:      &notes,
		ExpiresAt:  &expires,
		CategoryID: &pharma.ID,
	}, entity.CountriesOnly(f.country.ID))
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, pharma.ID, updated.CategoryID)
	assert.Equal(t, p.Code, updated.Code)
	assert.Equal(t, int64(8), updated.Quantity)

	stored, err := f.store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, name, stored.Name)
	assert.Equal(t, notes, stored.Notes)
	assert.Equal(t, before.Version, stored.Version)
	assert.Equal(t, int64(8), stored.Quantity)
}

func TestProductUpdate_RechazaCantidad(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, 8)
	qty := int64(50)

	_, err := f.products.Update(context.Background(), p.ID, inventory.UpdateProductCommand{Quantity: &qty}, nil)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cantidad", ve.Field)
	assert.Equal(t, int64(8), f.quantityOf(t, p.ID))
}

func TestProductUpdate_Errores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, 8)

	empty := ""
	_, err := f.products.Update(ctx, p.ID, inventory.UpdateProductCommand{Name: &empty}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	zero := decimal.Zero
	_, err = f.products.Update(ctx, p.ID, inventory.UpdateProductCommand{UnitWeight: &zero}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	past := p.RegisteredAt.AddDate(0, 0, -3)
	_, err = f.products.Update(ctx, p.ID, inventory.UpdateProductCommand{ExpiresAt: &past}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	missing := int64(99)
	_, err = f.products.Update(ctx, p.ID, inventory.UpdateProductCommand{CategoryID: &missing}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	name := "Otro"
	_, err = f.products.Update(ctx, p.ID, inventory.UpdateProductCommand{Name: &name}, entity.CountriesOnly(2))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := f.store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Galleta de avena", stored.Name)
}

func TestProductBulkImport_UnaTransaccionPorFila(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := f.productCommand(3)
	bad.Lot = ""
	res, err := f.products.BulkImport(ctx, []inventory.CreateProductCommand{
		f.productCommand(5), bad, f.productCommand(7),
	}, entity.CountriesOnly(f.country.ID))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Rows, 3)
	assert.NotNil(t, res.Rows[0].Product)
	assert.Equal(t, 2, res.Rows[1].Row)
	assert.ErrorIs(t, res.Rows[1].Err, domain.ErrInvalidInput)
	assert.Nil(t, res.Rows[1].Product)
	assert.Equal(t, int64(7), res.Rows[2].Product.Quantity)

	for _, row := range []int{0, 2} {
		k, err := f.kardex.GetHistory(ctx, res.Rows[row].Product.ID, nil)
		require.NoError(t, err)
		require.Len(t, k.Entries, 1)
		assert.Equal(t, entity.MovementInicial, k.Entries[0].Type)
	}
}

func TestProductBulkImport_Limites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.products.BulkImport(ctx, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.products.BulkImport(ctx, make([]inventory.CreateProductCommand, inventory.MaxBulkImportRows+1), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	res, err := f.products.BulkImport(ctx, []inventory.CreateProductCommand{f.productCommand(1)}, entity.CountriesOnly(2))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.ErrorIs(t, res.Rows[0].Err, domain.ErrForbidden)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.products.BulkImport(cancelled, []inventory.CreateProductCommand{f.productCommand(1)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
