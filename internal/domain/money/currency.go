package money

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/shopspring/decimal"
)

const defaultMinorUnits int32 = 2

var (
	minorUnitsMu sync.RWMutex
	// Monedas ISO 4217 cuyo exponente difiere del habitual (2).
	minorUnits = map[string]int32{
		"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0,
		"KRW": 0, "PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0,
		"XOF": 0, "XPF": 0,
		"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
	}
)

// NormalizeCurrency pasa el código a mayúsculas y recorta espacios.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCurrency exige un código de tres letras (formato ISO 4217).
func ValidateCurrency(code string) error {
	code = NormalizeCurrency(code)
	if len(code) != 3 {
		return fmt.Errorf("%w: moneda %q", domain.ErrInvalidInput, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: moneda %q", domain.ErrInvalidInput, code)
		}
	}
	return nil
}

// MinorUnits devuelve el número de decimales de la moneda (2 si no está registrada).
func MinorUnits(currency string) int32 {
	minorUnitsMu.RLock()
	defer minorUnitsMu.RUnlock()
	if exp, ok := minorUnits[NormalizeCurrency(currency)]; ok {
		return exp
	}
	return defaultMinorUnits
}

// RegisterMinorUnits sobrescribe el exponente de una moneda (configuración).
func RegisterMinorUnits(currency string, exp int32) {
	minorUnitsMu.Lock()
	defer minorUnitsMu.Unlock()
	minorUnits[NormalizeCurrency(currency)] = exp
}

// FromMajor convierte un decimal en unidades mayores (ej. 10.005 USD) a unidades menores
// con redondeo explícito. Es la única entrada admitida para montos no enteros.
func FromMajor(amount decimal.Decimal, currency string, mode RoundingMode) (Money, error) {
	currency = NormalizeCurrency(currency)
	minor, err := roundToMinor(amount.Shift(MinorUnits(currency)), mode)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: minor, Currency: currency}, nil
}

// ToMajor devuelve el monto en unidades mayores como decimal exacto.
func ToMajor(m Money) decimal.Decimal {
	return decimal.New(m.Amount, -MinorUnits(m.Currency))
}
