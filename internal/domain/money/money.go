package money

import (
	"fmt"
	"math"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/shopspring/decimal"
)

// QuantityScale es la precisión fija (decimales) admitida para cantidades.
const QuantityScale int32 = 3

// RoundingMode define cómo se lleva un valor fraccionario a unidades menores.
type RoundingMode int

const (
	// RoundHalfUp redondea .5 alejándose de cero (modo por defecto).
	RoundHalfUp RoundingMode = iota
	// RoundHalfEven redondeo bancario.
	RoundHalfEven
	// RoundDown trunca hacia cero.
	RoundDown
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Money es un monto en unidades menores (ej. centavos) más su código de moneda.
// Nunca se representa con punto flotante.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New construye un Money con la moneda normalizada a mayúsculas.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

// Zero devuelve cero en la moneda indicada.
func Zero(currency string) Money {
	return New(0, currency)
}

func (m Money) checkCurrency(o Money) error {
	if m.Currency != o.Currency {
		return fmt.Errorf("%w: %s y %s", domain.ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return nil
}

// Add suma dos montos de la misma moneda. Un resultado fuera de int64 es ErrAmountOutOfRange.
func (m Money) Add(o Money) (Money, error) {
	if err := m.checkCurrency(o); err != nil {
		return Money{}, err
	}
	sum := m.Amount + o.Amount
	if (o.Amount > 0 && sum < m.Amount) || (o.Amount < 0 && sum > m.Amount) {
		return Money{}, fmt.Errorf("%w: %d + %d", domain.ErrAmountOutOfRange, m.Amount, o.Amount)
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub resta o de m; ambas en la misma moneda.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.checkCurrency(o); err != nil {
		return Money{}, err
	}
	diff := m.Amount - o.Amount
	if (o.Amount > 0 && diff > m.Amount) || (o.Amount < 0 && diff < m.Amount) {
		return Money{}, fmt.Errorf("%w: %d - %d", domain.ErrAmountOutOfRange, m.Amount, o.Amount)
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

// MultiplyByQuantity multiplica por una cantidad sin unidad y redondea a unidades menores.
func (m Money) MultiplyByQuantity(quantity decimal.Decimal, mode RoundingMode) (Money, error) {
	amount, err := roundToMinor(decimal.NewFromInt(m.Amount).Mul(quantity), mode)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: m.Currency}, nil
}

// PercentageOf aplica una tasa expresada como fracción (0.20 = 20%).
func (m Money) PercentageOf(rate decimal.Decimal, mode RoundingMode) (Money, error) {
	return m.MultiplyByQuantity(rate, mode)
}

// Cmp compara dos montos: -1, 0 o 1.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.checkCurrency(o); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < o.Amount:
		return -1, nil
	case m.Amount > o.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// LessThan indica si m < o.
func (m Money) LessThan(o Money) (bool, error) {
	c, err := m.Cmp(o)
	return c < 0, err
}

// GreaterThan indica si m > o.
func (m Money) GreaterThan(o Money) (bool, error) {
	c, err := m.Cmp(o)
	return c > 0, err
}

// Equal indica si m == o (misma moneda y monto).
func (m Money) Equal(o Money) (bool, error) {
	c, err := m.Cmp(o)
	return c == 0, err
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }

// Min devuelve el menor de dos montos de la misma moneda.
func Min(a, b Money) (Money, error) {
	less, err := a.LessThan(b)
	if err != nil {
		return Money{}, err
	}
	if less {
		return a, nil
	}
	return b, nil
}

// Sum suma una lista de montos; la lista vacía suma cero en currency.
func Sum(currency string, amounts ...Money) (Money, error) {
	total := Zero(currency)
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// String formatea en unidades mayores, ej. "12.34 USD". No es formato de presentación.
func (m Money) String() string {
	return ToMajor(m).StringFixed(MinorUnits(m.Currency)) + " " + m.Currency
}

// roundToMinor redondea a entero y exige que el resultado quepa en int64.
func roundToMinor(d decimal.Decimal, mode RoundingMode) (int64, error) {
	switch mode {
	case RoundHalfEven:
		d = d.RoundBank(0)
	case RoundDown:
		d = d.Truncate(0)
	default:
		d = d.Round(0)
	}
	if d.GreaterThan(maxMinor) || d.LessThan(minMinor) {
		return 0, fmt.Errorf("%w: %s unidades menores", domain.ErrAmountOutOfRange, d)
	}
	return d.IntPart(), nil
}

// ValidQuantity verifica que la cantidad sea positiva y no exceda QuantityScale decimales.
func ValidQuantity(q decimal.Decimal) bool {
	if !q.IsPositive() {
		return false
	}
	return q.Equal(q.Truncate(QuantityScale))
}
