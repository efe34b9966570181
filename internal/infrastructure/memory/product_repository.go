package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación en memoria de ProductRepository.
type ProductRepo struct {
	s      *Store
	locked bool
}

// Create inserta el producto; ErrDuplicate si el código ya existe.
func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	return r.s.write(r.locked, func(d *state) error {
		for _, existing := range d.products {
			if existing.Code == p.Code {
				return domain.ErrDuplicate
			}
		}
		d.nextProductID++
		now := r.s.now()
		p.ID = d.nextProductID
		p.Version = 1
		p.CreatedAt = now
		p.UpdatedAt = now
		cp := *p
		d.products[p.ID] = &cp
		return nil
	})
}

// GetByID obtiene una copia del producto o (nil, nil).
func (r *ProductRepo) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	var out *entity.Product
	r.s.read(r.locked, func(d *state) {
		if p, ok := d.products[id]; ok {
			cp := *p
			out = &cp
		}
	})
	return out, nil
}

// GetForUpdate igual que GetByID: la exclusión la da el bloqueo de la transacción.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

// List filtra, ordena por alta descendente y pagina.
func (r *ProductRepo) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, int64, error) {
	var matched []*entity.Product
	r.s.read(r.locked, func(d *state) {
		for _, p := range d.products {
			if matchesProduct(p, f) {
				cp := *p
				matched = append(matched, &cp)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []*entity.Product{}, total, nil
	}
	end := f.Offset + f.Limit
	if f.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

// UpdateDetails copia los campos descriptivos; saldo y versión se conservan.
func (r *ProductRepo) UpdateDetails(_ context.Context, p *entity.Product) error {
	return r.s.write(r.locked, func(d *state) error {
		stored, ok := d.products[p.ID]
		if !ok {
			return domain.ErrNotFound
		}
		stored.Name = p.Name
		stored.Lot = p.Lot
		stored.UnitWeight = p.UnitWeight
		stored.TotalWeight = p.TotalWeight
		stored.ExpiresAt = p.ExpiresAt
		stored.Supplier = p.Supplier
		stored.Responsible = p.Responsible
		stored.Notes = p.Notes
		stored.CategoryID = p.CategoryID
		stored.UpdatedAt = r.s.now()
		p.Quantity = stored.Quantity
		p.Version = stored.Version
		p.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

// UpdateQuantity fija el saldo si la versión coincide.
func (r *ProductRepo) UpdateQuantity(_ context.Context, id, quantity, expectedVersion int64) error {
	return r.s.write(r.locked, func(d *state) error {
		p, ok := d.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		if p.Version != expectedVersion {
			return domain.ErrConcurrentModification
		}
		p.Quantity = quantity
		p.Version++
		p.UpdatedAt = r.s.now()
		return nil
	})
}

// Delete elimina el producto si no tiene movimientos.
func (r *ProductRepo) Delete(_ context.Context, id int64) error {
	return r.s.write(r.locked, func(d *state) error {
		if _, ok := d.products[id]; !ok {
			return domain.ErrNotFound
		}
		for _, m := range d.movements {
			if m.ProductID == id {
				return domain.ErrHasMovements
			}
		}
		delete(d.products, id)
		return nil
	})
}

func matchesProduct(p *entity.Product, f repository.ProductFilter) bool {
	if !f.Scope.AllowsProduct(p) {
		return false
	}
	if f.CategoryID > 0 && p.CategoryID != f.CategoryID {
		return false
	}
	if f.ExpiryStatus != "" && p.ExpiryStatus(f.Today) != f.ExpiryStatus {
		return false
	}
	if f.Search != "" &&
		!containsFold(p.Code, f.Search) &&
		!containsFold(p.Name, f.Search) &&
		!containsFold(p.Lot, f.Search) {
		return false
	}
	return true
}
