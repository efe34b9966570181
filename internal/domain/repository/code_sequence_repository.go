package repository

import (
	"context"
	"time"
)

// CodeSequenceRepository contador atómico por alcance (país, mes, año) para los códigos de producto.
type CodeSequenceRepository interface {
	// Next incrementa y devuelve la secuencia del alcance. Nunca devuelve un valor menor o igual
	// a la mayor secuencia ya usada por un producto existente del mismo alcance.
	Next(ctx context.Context, countryCode string, year int, month time.Month) (int, error)
}
