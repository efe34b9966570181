package memory

import "time"

// SetClock fija el reloj del almacén en tests.
func (s *AttemptStore) SetClock(now func() time.Time) { s.now = now }
