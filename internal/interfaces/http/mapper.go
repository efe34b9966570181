package http

import (
	"fmt"
	"time"

	"github.com/jhoicas/Muestras-api/internal/application/dto"
	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	codes "github.com/jhoicas/Muestras-api/internal/domain/inventory"
)

const dateLayout = "2006-01-02"

func toMovementResponse(m *entity.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:               m.ID,
		Tipo:             string(m.Type),
		Cantidad:         m.Quantity,
		CantidadAnterior: m.QuantityBefore,
		CantidadNueva:    m.QuantityAfter,
		Diferencia:       m.QuantityAfter - m.QuantityBefore,
		Responsable:      m.Responsible,
		Motivo:           m.Reason,
		Observaciones:    m.Notes,
		FechaMovimiento:  m.MovedAt,
		ProductID:        m.ProductID,
		UserID:           m.UserID,
		CreatedAt:        m.CreatedAt,
	}
}

func toMovementViewResponse(v *entity.MovementView) dto.MovementResponse {
	out := toMovementResponse(&v.Movement)
	out.ProductCodigo = v.ProductCode
	out.ProductNombre = v.ProductName
	return out
}

func toProductResponse(p *entity.Product, today time.Time) dto.ProductResponse {
	out := dto.ProductResponse{
		ID:                p.ID,
		Codigo:            p.Code,
		Nombre:            p.Name,
		Lote:              p.Lot,
		Cantidad:          p.Quantity,
		PesoUnitario:      p.UnitWeight,
		PesoTotal:         p.TotalWeight,
		FechaRegistro:     p.RegisteredAt.Format(dateLayout),
		FechaVencimiento:  p.ExpiresAt.Format(dateLayout),
		Proveedor:         p.Supplier,
		Responsable:       p.Responsible,
		Comentarios:       p.Notes,
		CategoriaID:       p.CategoryID,
		CountryID:         p.CountryID,
		CreatedBy:         p.CreatedBy,
		DiasParaVencer:    p.DaysToExpiry(today),
		EstadoVencimiento: p.ExpiryStatus(today),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	// Códigos cargados fuera del formato actual quedan sin desglose.
	if parts, err := codes.ParseCode(p.Code); err == nil {
		out.CodigoPais = parts.Country
		out.NumeroSecuencial = fmt.Sprintf("%03d", parts.Sequence)
	}
	return out
}

func toKardexResponse(k *entity.Kardex) dto.KardexResponse {
	out := dto.KardexResponse{
		ProductID:     k.ProductID,
		ProductCodigo: k.ProductCode,
		ProductNombre: k.ProductName,
		SaldoActual:   k.CurrentBalance,
		Movimientos:   make([]dto.KardexEntryResponse, 0, len(k.Entries)),
	}
	for _, e := range k.Entries {
		out.Movimientos = append(out.Movimientos, dto.KardexEntryResponse{
			ID:                 e.MovementID,
			Fecha:              e.Date,
			Tipo:               string(e.Type),
			Motivo:             e.Reason,
			Responsable:        e.Responsible,
			CantidadMovimiento: e.Quantity,
			CantidadAnterior:   e.QuantityBefore,
			CantidadNueva:      e.QuantityAfter,
			Saldo:              e.Balance(),
			Observaciones:      e.Notes,
		})
	}
	return out
}

func toAuditResponse(r *inventory.AuditResult) dto.AuditResponse {
	return dto.AuditResponse{
		ProductID:     r.ProductID,
		ProductCodigo: r.ProductCode,
		Cantidad:      r.Quantity,
		Movimientos:   r.Movements,
		Consistente:   r.Consistent,
		MovementID:    r.MovementID,
		Detalle:       r.Detail,
	}
}

func toStatsResponse(s *entity.MovementStats) dto.MovementStatsResponse {
	return dto.MovementStatsResponse{
		TotalMovimientos:        s.Total,
		EntradasTotal:           s.Entradas,
		SalidasTotal:            s.Salidas,
		AjustesTotal:            s.Ajustes,
		InicialesTotal:          s.Iniciales,
		MovimientosMesActual:    s.CurrentMonth,
		ProductosConMovimientos: s.ProductsWithMovements,
	}
}
