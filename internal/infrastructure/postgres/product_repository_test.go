package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/postgres"
)

// ────────────────────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────────────────────

func TestProductRepo_Create_AsignaIDYVersion(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)
	p := sampleProduct()
	p.ID, p.Version = 0, 0

	mock.ExpectQuery("INSERT INTO products").
		WithArgs(p.Code, p.Name, p.Lot, p.Quantity, p.UnitWeight, p.TotalWeight, p.RegisteredAt, p.ExpiresAt,
			p.Supplier, p.Responsible, p.Notes, p.CategoryID, p.CountryID, p.CreatedBy).
		WillReturnRows(pgxmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).
			AddRow(int64(12), int64(1), fixedTime, fixedTime))

	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, int64(12), p.ID)
	assert.Equal(t, int64(1), p.Version)
	assert.Equal(t, fixedTime, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Create_CodigoDuplicado(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("INSERT INTO products").
		WithArgs(p.Code, p.Name, p.Lot, p.Quantity, p.UnitWeight, p.TotalWeight, p.RegisteredAt, p.ExpiresAt,
			p.Supplier, p.Responsible, p.Notes, p.CategoryID, p.CountryID, p.CreatedBy).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := repo.Create(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Create_ErrorConTextoNoEsDuplicado(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("INSERT INTO products").
		WithArgs(p.Code, p.Name, p.Lot, p.Quantity, p.UnitWeight, p.TotalWeight, p.RegisteredAt, p.ExpiresAt,
			p.Supplier, p.Responsible, p.Notes, p.CategoryID, p.CountryID, p.CreatedBy).
		WillReturnError(errors.New("read tcp 10.0.0.5:23505: i/o timeout"))

	err := repo.Create(context.Background(), p)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ────────────────────────────────────────────────────────────────
// Lecturas
// ────────────────────────────────────────────────────────────────

func TestProductRepo_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)
	want := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(want.ID).
		WillReturnRows(productRows(want))

	got, err := repo.GetByID(context.Background(), want.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Code, got.Code)
	assert.Equal(t, want.Quantity, got.Quantity)
	assert.True(t, want.UnitWeight.Equal(got.UnitWeight))
	assert.Equal(t, want.Version, got.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_GetByID_NoExiste(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_GetForUpdate_BloqueaFila(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)
	want := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products WHERE id = .+ FOR UPDATE").
		WithArgs(want.ID).
		WillReturnRows(productRows(want))

	got, err := repo.GetForUpdate(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ────────────────────────────────────────────────────────────────
// UpdateQuantity / Delete
// ────────────────────────────────────────────────────────────────

func TestProductRepo_UpdateQuantity(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)

	mock.ExpectExec("UPDATE products SET quantity").
		WithArgs(int64(7), int64(40), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateQuantity(context.Background(), 7, 40, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_UpdateQuantity_VersionDesfasada(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)

	mock.ExpectExec("UPDATE products SET quantity").
		WithArgs(int64(7), int64(40), int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateQuantity(context.Background(), 7, 40, 2)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.True(t, domain.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_UpdateQuantity_LockTimeoutEsReintentable(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)

	mock.ExpectExec("UPDATE products SET quantity").
		WithArgs(int64(7), int64(40), int64(3)).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})

	err := repo.UpdateQuantity(context.Background(), 7, 40, 3)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Delete(t *testing.T) {
	tests := []struct {
		name    string
		result  pgconn.CommandTag
		err     error
		wantErr error
	}{
		{name: "eliminado", result: pgxmock.NewResult("DELETE", 1)},
		{name: "no existe", result: pgxmock.NewResult("DELETE", 0), wantErr: domain.ErrNotFound},
		{name: "con movimientos", err: &pgconn.PgError{Code: "23503"}, wantErr: domain.ErrHasMovements},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := postgres.NewProductRepository(mock)

			exp := mock.ExpectExec("DELETE FROM products").WithArgs(int64(7))
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.Delete(context.Background(), 7)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ────────────────────────────────────────────────────────────────
// Listado y edición
// ────────────────────────────────────────────────────────────────

func TestProductRepo_List_FiltrosYVencimiento(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)
	today := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	warningEnd := today.AddDate(0, 0, entity.ExpiryWarningDays+1)

	mock.ExpectQuery("SELECT COUNT.+FROM products p WHERE p.country_id = ANY.+ AND p.category_id = .+ AND p.expires_at >= .+ AND p.expires_at < .+ILIKE").
		WithArgs([]int64{2}, int64(4), today, warningEnd, "%avena%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM products p WHERE .+ ORDER BY p.created_at DESC, p.id DESC LIMIT .+ OFFSET").
		WithArgs([]int64{2}, int64(4), today, warningEnd, "%avena%", 20, 0).
		WillReturnRows(productRows(sampleProduct()))

	list, total, err := repo.List(context.Background(), repository.ProductFilter{
		Search:       " avena ",
		CategoryID:   4,
		ExpiryStatus: entity.ExpiryPorVencer,
		Today:        today,
		Scope:        entity.CountriesOnly(2),
		Limit:        20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "SV150825001", list[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_List_Vencidos(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)
	today := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT.+FROM products p WHERE p.expires_at < ").
		WithArgs(today).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT .+ FROM products p WHERE p.expires_at < .+ LIMIT").
		WithArgs(today, 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "code"}))

	list, total, err := repo.List(context.Background(), repository.ProductFilter{
		ExpiryStatus: entity.ExpiryVencido,
		Today:        today,
		Limit:        10,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_UpdateDetails_NoTocaSaldo(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)
	p := sampleProduct()
	p.Name = "Galletas integrales"

	mock.ExpectQuery(`UPDATE products\s+SET name = .+ category_id = .+ RETURNING quantity, version, updated_at`).
		WithArgs(p.ID, p.Name, p.Lot, p.UnitWeight, p.TotalWeight, p.ExpiresAt,
			p.Supplier, p.Responsible, p.Notes, p.CategoryID).
		WillReturnRows(pgxmock.NewRows([]string{"quantity", "version", "updated_at"}).
			AddRow(int64(64), int64(9), fixedTime.Add(time.Hour)))

	require.NoError(t, repo.UpdateDetails(context.Background(), p))
	assert.Equal(t, int64(64), p.Quantity)
	assert.Equal(t, int64(9), p.Version)
	assert.Equal(t, fixedTime.Add(time.Hour), p.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_UpdateDetails_NoExiste(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewProductRepository(mock)
	p := sampleProduct()

	mock.ExpectQuery("UPDATE products").
		WithArgs(p.ID, p.Name, p.Lot, p.UnitWeight, p.TotalWeight, p.ExpiresAt,
			p.Supplier, p.Responsible, p.Notes, p.CategoryID).
		WillReturnError(pgx.ErrNoRows)

	err := repo.UpdateDetails(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
