package postgres_test

import (
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

var fixedTime = time.Date(2025, 8, 15, 10, 30, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleProduct() *entity.Product {
	return &entity.Product{
		ID:           7,
		Code:         "SV150825001",
		Name:         "Galletas de avena",
		Lot:          "L-01",
		Quantity:     100,
		UnitWeight:   decimal.RequireFromString("0.500"),
		TotalWeight:  decimal.RequireFromString("50.000"),
		RegisteredAt: fixedTime,
		ExpiresAt:    fixedTime.AddDate(0, 6, 0),
		Supplier:     "Proveedor SA",
		Responsible:  "Ana",
		Notes:        "",
		CategoryID:   4,
		CountryID:    2,
		CreatedBy:    1,
		Version:      3,
		CreatedAt:    fixedTime,
		UpdatedAt:    fixedTime,
	}
}

func productRows(p *entity.Product) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "code", "name", "lot", "quantity", "unit_weight", "total_weight", "registered_at", "expires_at",
		"supplier", "responsible", "notes", "category_id", "country_id", "created_by", "version", "created_at", "updated_at",
	}).AddRow(
		p.ID, p.Code, p.Name, p.Lot, p.Quantity, p.UnitWeight, p.TotalWeight, p.RegisteredAt, p.ExpiresAt,
		p.Supplier, p.Responsible, p.Notes, p.CategoryID, p.CountryID, p.CreatedBy, p.Version, p.CreatedAt, p.UpdatedAt,
	)
}

var movementViewColumns = []string{
	"id", "type", "quantity", "quantity_before", "quantity_after", "responsible", "reason", "notes",
	"moved_at", "product_id", "user_id", "created_at", "code", "name", "country_id", "category_id",
}
