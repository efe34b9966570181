package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/Muestras-api/internal/application/auth"
)

var _ auth.AttemptStore = (*AttemptStore)(nil)

type attempt struct {
	count   int64
	expires time.Time
}

// AttemptStore contador de intentos con vencimiento, para un solo proceso.
type AttemptStore struct {
	mu    sync.Mutex
	items map[string]attempt
	now   func() time.Time
}

// NewAttemptStore crea el almacén vacío.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{items: make(map[string]attempt), now: time.Now}
}

func (s *AttemptStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	a, ok := s.items[key]
	if !ok || !now.Before(a.expires) {
		a = attempt{expires: now.Add(window)}
	}
	a.count++
	s.items[key] = a
	return a.count, nil
}

func (s *AttemptStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[key]
	if !ok {
		return 0, nil
	}
	if !s.now().Before(a.expires) {
		delete(s.items, key)
		return 0, nil
	}
	return a.count, nil
}

func (s *AttemptStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
