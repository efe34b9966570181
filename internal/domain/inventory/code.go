package inventory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jhoicas/Muestras-api/internal/domain"
)

// MaxSequence mayor secuencia representable con 3 dígitos.
const MaxSequence = 999

var (
	countryRe     = regexp.MustCompile(`^[A-Z]{2,3}$`)
	productCodeRe = regexp.MustCompile(`^([A-Z]{2,3})(\d{2})(\d{2})(\d{2})(\d{3})$`)
)

// CodeParts componentes de un código de producto.
type CodeParts struct {
	Country  string
	Date     time.Time
	Sequence int
}

// NormalizeCountryCode recorta y pasa a mayúsculas; exige 2 o 3 letras.
func NormalizeCountryCode(code string) (string, error) {
	c := cases.Upper(language.Und).String(strings.TrimSpace(code))
	if !countryRe.MatchString(c) {
		return "", domain.Invalid("country_code", fmt.Sprintf("código de país inválido %q", code))
	}
	return c, nil
}

// FormatCode arma CC+DD+MM+YY+NNN. Secuencias mayores a 999 devuelven ErrSequenceExhausted.
func FormatCode(country string, onDate time.Time, seq int) (string, error) {
	cc, err := NormalizeCountryCode(country)
	if err != nil {
		return "", err
	}
	if seq < 1 {
		return "", domain.Invalid("sequence", "debe ser mayor a 0")
	}
	if seq > MaxSequence {
		return "", fmt.Errorf("%w: %s %02d/%d", domain.ErrSequenceExhausted, cc, int(onDate.Month()), onDate.Year())
	}
	return fmt.Sprintf("%s%02d%02d%02d%03d", cc, onDate.Day(), int(onDate.Month()), onDate.Year()%100, seq), nil
}

// ScopePattern expresión regular (POSIX) que reconoce todos los códigos del alcance país/mes/año.
func ScopePattern(country string, year int, month time.Month) string {
	return fmt.Sprintf("^%s[0-9]{2}%02d%02d[0-9]{3}$", country, int(month), year%100)
}

// ParseCode descompone un código válido. El año se interpreta en el siglo 2000.
func ParseCode(code string) (CodeParts, error) {
	m := productCodeRe.FindStringSubmatch(code)
	if m == nil {
		return CodeParts{}, domain.Invalid("codigo", fmt.Sprintf("formato de código inválido %q", code))
	}
	day, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	year, _ := strconv.Atoi(m[4])
	seq, _ := strconv.Atoi(m[5])
	date := time.Date(2000+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month {
		return CodeParts{}, domain.Invalid("codigo", fmt.Sprintf("fecha inválida en código %q", code))
	}
	return CodeParts{Country: m[1], Date: date, Sequence: seq}, nil
}

// SequenceOf extrae la secuencia de un código que pertenece al alcance dado; ok=false si no pertenece.
func SequenceOf(code, country string, year int, month time.Month) (int, bool) {
	p, err := ParseCode(code)
	if err != nil || p.Country != country || p.Date.Year() != year || p.Date.Month() != month {
		return 0, false
	}
	return p.Sequence, true
}
