package memory

import (
	"context"
	"time"

	"github.com/jhoicas/Muestras-api/internal/domain/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var _ repository.CodeSequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contador por (país, año, mes). Solo existe dentro de Run.
type SequenceRepo struct {
	s *Store
}

// Next devuelve max(contador, mayor secuencia usada por productos del alcance) + 1.
func (r *SequenceRepo) Next(_ context.Context, countryCode string, year int, month time.Month) (int, error) {
	var next int
	err := r.s.write(true, func(d *state) error {
		key := seqKey{country: countryCode, year: year, month: month}
		last := d.sequences[key]
		for _, p := range d.products {
			if seq, ok := inventory.SequenceOf(p.Code, countryCode, year, month); ok && seq > last {
				last = seq
			}
		}
		next = last + 1
		d.sequences[key] = next
		return nil
	})
	return next, err
}
