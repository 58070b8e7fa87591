package entity

import (
	"fmt"
	"strings"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/shopspring/decimal"
)

// TaxBehavior indica si el precio unitario ya incluye el impuesto.
type TaxBehavior string

const (
	TaxExclusive TaxBehavior = "exclusive" // el impuesto se suma encima
	TaxInclusive TaxBehavior = "inclusive" // el impuesto ya viene dentro del precio
)

// Valid indica si es uno de los dos comportamientos conocidos.
func (b TaxBehavior) Valid() bool {
	return b == TaxExclusive || b == TaxInclusive
}

// TaxRate es una instantánea de la tasa al momento de aplicarla a la línea.
// Rate es una fracción: 0.19 = 19%.
type TaxRate struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// Validate exige nombre y 0 <= Rate <= 1.
func (t TaxRate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: impuesto sin nombre", domain.ErrInvalidLineItem)
	}
	if t.Rate.IsNegative() || t.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: tasa de impuesto %s fuera de rango", domain.ErrInvalidLineItem, t.Rate)
	}
	return nil
}

// DiscountKind tipo de descuento.
type DiscountKind string

const (
	DiscountFixed      DiscountKind = "fixed"
	DiscountPercentage DiscountKind = "percentage"
)

// Discount es una instantánea del descuento aplicado a una línea.
// Para DiscountFixed se usa Amount; para DiscountPercentage, Percent (fracción).
type Discount struct {
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name"`
	Kind    DiscountKind    `json:"kind"`
	Amount  money.Money     `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// Validate valida el descuento contra la moneda de la factura.
func (d Discount) Validate(currency string) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: descuento sin nombre", domain.ErrInvalidLineItem)
	}
	switch d.Kind {
	case DiscountFixed:
		if d.Amount.Currency != currency {
			return fmt.Errorf("%w: descuento en %s, factura en %s", domain.ErrCurrencyMismatch, d.Amount.Currency, currency)
		}
		if d.Amount.IsNegative() {
			return fmt.Errorf("%w: descuento negativo", domain.ErrInvalidLineItem)
		}
	case DiscountPercentage:
		if d.Percent.IsNegative() || d.Percent.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: porcentaje de descuento %s fuera de rango", domain.ErrInvalidLineItem, d.Percent)
		}
	default:
		return fmt.Errorf("%w: tipo de descuento %q", domain.ErrInvalidLineItem, d.Kind)
	}
	return nil
}

// amountOn calcula el descuento sobre el subtotal de la línea; el fijo se topa en el subtotal.
func (d Discount) amountOn(lineSubtotal money.Money) (money.Money, error) {
	if d.Kind == DiscountFixed {
		return money.Min(d.Amount, lineSubtotal)
	}
	return lineSubtotal.PercentageOf(d.Percent, money.RoundHalfUp)
}
