package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/Muestras-api/internal/domain/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var _ repository.CodeSequenceRepository = (*CodeSequenceRepo)(nil)

// nextSequenceSQL upsert del contador. La fila de code_sequences queda bloqueada hasta el fin
// de la tx, lo que serializa asignaciones concurrentes del mismo alcance. GREATEST con la mayor
// secuencia existente evita reusar códigos cargados fuera del contador.
const nextSequenceSQL = `
	WITH used AS (
		SELECT COALESCE(MAX(RIGHT(code, 3)::int), 0) AS max_seq FROM products WHERE code ~ $4
	)
	INSERT INTO code_sequences (country_code, year, month, last_value)
	SELECT $1, $2, $3, used.max_seq + 1 FROM used
	ON CONFLICT (country_code, year, month) DO UPDATE
		SET last_value = GREATEST(code_sequences.last_value, (SELECT max_seq FROM used)) + 1,
			updated_at = now()
	RETURNING last_value`

// CodeSequenceRepo contador de códigos por (país, año, mes) sobre PostgreSQL.
type CodeSequenceRepo struct {
	q Querier
}

// NewCodeSequenceRepository construye el adaptador. Debe usarse dentro de una tx.
func NewCodeSequenceRepository(q Querier) *CodeSequenceRepo {
	return &CodeSequenceRepo{q: q}
}

// Next incrementa y devuelve la secuencia del alcance.
func (r *CodeSequenceRepo) Next(ctx context.Context, countryCode string, year int, month time.Month) (int, error) {
	var next int
	err := r.q.QueryRow(ctx, nextSequenceSQL,
		countryCode, year, int(month), inventory.ScopePattern(countryCode, year, month),
	).Scan(&next)
	if err != nil {
		return 0, classify("next code sequence", err)
	}
	return next, nil
}
