// Package memory implementa los puertos de persistencia en memoria (tests y STORAGE=memory).
// Las transacciones se serializan con un mutex y se revierten restaurando una instantánea.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner       = (*Store)(nil)
	_ inventory.SnapshotReader = (*Store)(nil)
)

type seqKey struct {
	country string
	year    int
	month   time.Month
}

type state struct {
	products       map[int64]*entity.Product
	movements      []*entity.Movement
	sequences      map[seqKey]int
	nextProductID  int64
	nextMovementID int64
}

func (s *state) clone() *state {
	out := &state{
		products:       make(map[int64]*entity.Product, len(s.products)),
		movements:      s.movements[:len(s.movements):len(s.movements)],
		sequences:      make(map[seqKey]int, len(s.sequences)),
		nextProductID:  s.nextProductID,
		nextMovementID: s.nextMovementID,
	}
	for id, p := range s.products {
		cp := *p
		out.products[id] = &cp
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	return out
}

// Store almacén en memoria del ledger y de los datos de referencia.
type Store struct {
	mu         sync.RWMutex
	data       *state
	countries  map[int64]*entity.Country
	categories map[int64]*entity.Category
	users      map[int64]*entity.User
	now        func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		data: &state{
			products:  make(map[int64]*entity.Product),
			sequences: make(map[seqKey]int),
		},
		countries:  make(map[int64]*entity.Country),
		categories: make(map[int64]*entity.Category),
		users:      make(map[int64]*entity.User),
		now:        time.Now,
	}
}

// Run ejecuta fn con acceso exclusivo; si fn falla se restaura el estado previo completo.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	seqRepo repository.CodeSequenceRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&MovementRepo{s: s, locked: true}, &ProductRepo{s: s, locked: true}, &SequenceRepo{s: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// View ejecuta lecturas con el almacén bloqueado para escritura.
func (s *Store) View(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&MovementRepo{s: s, locked: true}, &ProductRepo{s: s, locked: true})
}

// Products repositorio de productos fuera de transacción.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Movements repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// read ejecuta fn con bloqueo de lectura salvo que el caller ya tenga el almacén bloqueado.
func (s *Store) read(locked bool, fn func(d *state)) {
	if !locked {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	fn(s.data)
}

func (s *Store) write(locked bool, fn func(d *state) error) error {
	if !locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}
