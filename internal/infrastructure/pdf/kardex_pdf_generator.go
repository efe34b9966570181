// Package pdf genera el reporte Kardex de un producto en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre + Código     │  KARDEX + Fecha de emisión   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Saldo actual / Entradas / Salidas / Movimientos   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Motivo | Responsable | Cant | Saldo  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR con el código del producto                      │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// KardexPDFGenerator arma el reporte con Maroto v2. Las fechas se muestran en location.
type KardexPDFGenerator struct {
	location *time.Location
	now      func() time.Time
}

// NewKardexPDFGenerator construye el generador; location nil equivale a UTC.
func NewKardexPDFGenerator(location *time.Location) *KardexPDFGenerator {
	if location == nil {
		location = time.UTC
	}
	return &KardexPDFGenerator{location: location, now: time.Now}
}

// GenerateKardexPDF genera el PDF y devuelve sus bytes.
func (g *KardexPDFGenerator) GenerateKardexPDF(_ context.Context, k *entity.Kardex) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("pdf: kardex nil")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Kardex "+k.ProductCode, true).
		WithAuthor("muestras-api", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(k))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(k))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	if len(k.Entries) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin movimientos registrados", props.Text{Size: 8, Align: align.Center, Top: 2, Color: colorGray}),
		)))
	}
	m.AddRows(g.entryRows(k.Entries)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(k))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *KardexPDFGenerator) headerRow(k *entity.Kardex) core.Row {
	return row.New(18).Add(
		col.New(8).Add(
			text.New(k.ProductName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Código: "+k.ProductCode, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("KARDEX DE MOVIMIENTOS", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Emitido: "+g.now().In(g.location).Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

// summaryRow: saldo actual y totales por sentido.
func summaryRow(k *entity.Kardex) core.Row {
	var in, out int64
	for _, e := range k.Entries {
		switch d := e.QuantityAfter - e.QuantityBefore; {
		case d > 0:
			in += d
		case d < 0:
			out -= d
		}
	}
	cell := func(label, value string) core.Col {
		return col.New(3).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(value, props.Text{Size: 11, Top: 6}),
		)
	}
	return row.New(14).Add(
		cell("SALDO ACTUAL", formatThousands(k.CurrentBalance)),
		cell("UNIDADES INGRESADAS", formatThousands(in)),
		cell("UNIDADES EGRESADAS", formatThousands(out)),
		cell("MOVIMIENTOS", strconv.Itoa(len(k.Entries))),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Tipo", 1, align.Left),
		h("Motivo", 3, align.Left),
		h("Responsable", 2, align.Left),
		h("Cant.", 1, align.Right),
		h("Anterior", 1, align.Right),
		h("Nuevo", 1, align.Right),
		h("Saldo", 1, align.Right),
	)
}

// entryRows: una fila por movimiento; las salidas se muestran en rojo.
func (g *KardexPDFGenerator) entryRows(entries []entity.KardexEntry) []core.Row {
	result := make([]core.Row, 0, len(entries))
	for _, e := range entries {
		qtyProps := props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1}
		qty := formatThousands(e.Quantity)
		if e.QuantityAfter < e.QuantityBefore {
			qtyProps.Color = colorRed
			qty = "-" + qty
		}
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(e.Date.In(g.location).Format("02/01/2006 15:04"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(string(e.Type), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(3).Add(text.New(e.Reason, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(e.Responsible, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(qty, qtyProps)),
			col.New(1).Add(text.New(formatThousands(e.QuantityBefore), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(formatThousands(e.QuantityAfter), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(formatThousands(e.Balance()), props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// footerRow: QR con el código para identificar la muestra física.
func footerRow(k *entity.Kardex) core.Row {
	return row.New(30).Add(
		col.New(3).Add(code.NewQr(k.ProductCode, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Saldos tal como se registraron en cada movimiento.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Documento generado automáticamente; no requiere firma.", props.Text{
				Size: 7, Top: 12, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// formatThousands inserta puntos de miles. Ej: 25000 → "25.000".
func formatThousands(v int64) string {
	s := strconv.FormatInt(v, 10)
	sign := ""
	if v < 0 {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
