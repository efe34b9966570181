package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación en memoria del ledger append-only.
type MovementRepo struct {
	s      *Store
	locked bool
}

// Create agrega el movimiento; el producto debe existir.
func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	return r.s.write(r.locked, func(d *state) error {
		if _, ok := d.products[m.ProductID]; !ok {
			return domain.ErrNotFound
		}
		d.nextMovementID++
		m.ID = d.nextMovementID
		m.CreatedAt = r.s.now()
		cp := *m
		d.movements = append(d.movements, &cp)
		return nil
	})
}

// GetByID obtiene el movimiento con datos del producto o (nil, nil).
func (r *MovementRepo) GetByID(_ context.Context, id int64) (*entity.MovementView, error) {
	var out *entity.MovementView
	r.s.read(r.locked, func(d *state) {
		for _, m := range d.movements {
			if m.ID == id {
				out = view(d, m)
				return
			}
		}
	})
	return out, nil
}

// ListByProduct historia ascendente por (fecha, id).
func (r *MovementRepo) ListByProduct(_ context.Context, productID int64) ([]*entity.Movement, error) {
	out := []*entity.Movement{}
	r.s.read(r.locked, func(d *state) {
		for _, m := range d.movements {
			if m.ProductID == productID {
				cp := *m
				out = append(out, &cp)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].MovedAt.Equal(out[j].MovedAt) {
			return out[i].MovedAt.Before(out[j].MovedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountByProduct cantidad de movimientos del producto.
func (r *MovementRepo) CountByProduct(_ context.Context, productID int64) (int64, error) {
	var n int64
	r.s.read(r.locked, func(d *state) {
		for _, m := range d.movements {
			if m.ProductID == productID {
				n++
			}
		}
	})
	return n, nil
}

// List filtra, ordena por fecha descendente y pagina.
func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.MovementView, int64, error) {
	var matched []*entity.MovementView
	r.s.read(r.locked, func(d *state) {
		for _, m := range d.movements {
			v := view(d, m)
			if matches(v, f) {
				matched = append(matched, v)
			}
		}
	})
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].MovedAt.Equal(matched[j].MovedAt) {
			return matched[i].MovedAt.After(matched[j].MovedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []*entity.MovementView{}, total, nil
	}
	end := f.Offset + f.Limit
	if f.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

// Stats totales del alcance.
func (r *MovementRepo) Stats(_ context.Context, scope *entity.Scope, monthStart time.Time) (*entity.MovementStats, error) {
	st := &entity.MovementStats{}
	products := map[int64]struct{}{}
	r.s.read(r.locked, func(d *state) {
		for _, m := range d.movements {
			v := view(d, m)
			if !scope.AllowsCountry(v.CountryID) || !scope.AllowsCategory(v.CategoryID) {
				continue
			}
			st.Total++
			switch m.Type {
			case entity.MovementEntrada:
				st.Entradas++
			case entity.MovementSalida:
				st.Salidas++
			case entity.MovementAjuste:
				st.Ajustes++
			case entity.MovementInicial:
				st.Iniciales++
			}
			if !m.MovedAt.Before(monthStart) {
				st.CurrentMonth++
			}
			products[m.ProductID] = struct{}{}
		}
	})
	st.ProductsWithMovements = int64(len(products))
	return st, nil
}

func view(d *state, m *entity.Movement) *entity.MovementView {
	v := &entity.MovementView{Movement: *m}
	if p, ok := d.products[m.ProductID]; ok {
		v.ProductCode = p.Code
		v.ProductName = p.Name
		v.CountryID = p.CountryID
		v.CategoryID = p.CategoryID
	}
	return v
}

func matches(v *entity.MovementView, f repository.MovementFilter) bool {
	if !f.Scope.AllowsCountry(v.CountryID) || !f.Scope.AllowsCategory(v.CategoryID) {
		return false
	}
	if f.ProductID != 0 && v.ProductID != f.ProductID {
		return false
	}
	if f.Type != "" && v.Type != f.Type {
		return false
	}
	if f.From != nil && v.MovedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && v.MovedAt.After(*f.To) {
		return false
	}
	if f.Responsible != "" && !containsFold(v.Responsible, f.Responsible) {
		return false
	}
	if f.Search != "" &&
		!containsFold(v.ProductCode, f.Search) &&
		!containsFold(v.ProductName, f.Search) &&
		!containsFold(v.Reason, f.Search) &&
		!containsFold(v.Responsible, f.Search) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
