package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/shopspring/decimal"
)

// LineItemInput datos de entrada para crear o editar una línea.
// TaxRate y Discount llegan ya resueltos por el llamador (se guardan como instantánea).
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitAmount  money.Money
	TaxRate     *TaxRate
	Discount    *Discount
}

// Validate aplica las reglas de una línea válida para una factura en currency.
func (in LineItemInput) Validate(currency string) error {
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: descripción vacía", domain.ErrInvalidLineItem)
	}
	if !money.ValidQuantity(in.Quantity) {
		return fmt.Errorf("%w: cantidad %s debe ser positiva con máximo %d decimales",
			domain.ErrInvalidLineItem, in.Quantity, money.QuantityScale)
	}
	if in.UnitAmount.IsNegative() {
		return fmt.Errorf("%w: precio unitario negativo", domain.ErrInvalidLineItem)
	}
	if in.UnitAmount.Currency != currency {
		return fmt.Errorf("%w: línea en %s, factura en %s", domain.ErrCurrencyMismatch, in.UnitAmount.Currency, currency)
	}
	if in.TaxRate != nil {
		if err := in.TaxRate.Validate(); err != nil {
			return err
		}
	}
	if in.Discount != nil {
		if err := in.Discount.Validate(currency); err != nil {
			return err
		}
	}
	return nil
}

// LineAmounts montos calculados de una línea.
type LineAmounts struct {
	Subtotal       money.Money // round(cantidad * precio unitario)
	DiscountAmount money.Money
	TaxAmount      money.Money
	Total          money.Money
}

// ComputeLine calcula subtotal, descuento, impuesto y total de la línea.
//
// Exclusivo: impuesto = tasa * (subtotal - descuento); total = subtotal - descuento + impuesto.
// Inclusivo: impuesto = subtotal - subtotal / (1 + tasa); total = subtotal - descuento.
func ComputeLine(in LineItemInput, behavior TaxBehavior) (LineAmounts, error) {
	currency := in.UnitAmount.Currency
	subtotal, err := in.UnitAmount.MultiplyByQuantity(in.Quantity, money.RoundHalfUp)
	if err != nil {
		return LineAmounts{}, fmt.Errorf("%w: subtotal: %w", domain.ErrInvalidLineItem, err)
	}
	out := LineAmounts{
		Subtotal:       subtotal,
		DiscountAmount: money.Zero(currency),
		TaxAmount:      money.Zero(currency),
	}

	if in.Discount != nil {
		d, err := in.Discount.amountOn(subtotal)
		if err != nil {
			return LineAmounts{}, err
		}
		out.DiscountAmount = d
	}

	gross, err := subtotal.Sub(out.DiscountAmount)
	if err != nil {
		return LineAmounts{}, err
	}

	if in.TaxRate != nil && !in.TaxRate.Rate.IsZero() {
		switch behavior {
		case TaxInclusive:
			net := decimal.NewFromInt(subtotal.Amount).Div(decimal.NewFromInt(1).Add(in.TaxRate.Rate))
			out.TaxAmount = money.New(subtotal.Amount-net.Round(0).IntPart(), currency)
		default:
			if out.TaxAmount, err = gross.PercentageOf(in.TaxRate.Rate, money.RoundHalfUp); err != nil {
				return LineAmounts{}, fmt.Errorf("%w: impuesto: %w", domain.ErrInvalidLineItem, err)
			}
		}
	}

	if behavior == TaxInclusive {
		out.Total = gross
	} else if out.Total, err = gross.Add(out.TaxAmount); err != nil {
		return LineAmounts{}, fmt.Errorf("%w: total: %w", domain.ErrInvalidLineItem, err)
	}
	return out, nil
}

// LineItem línea de una factura. Inmutable una vez la factura sale de borrador.
type LineItem struct {
	ID             string
	InvoiceID      string
	Position       int
	Description    string
	Quantity       decimal.Decimal
	UnitAmount     money.Money
	TaxRate        *TaxRate  // instantánea, no se relee de configuración
	Discount       *Discount // instantánea
	Subtotal       money.Money
	DiscountAmount money.Money
	TaxAmount      money.Money
	Total          money.Money
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func newLineItem(id, invoiceID string, position int, in LineItemInput, amounts LineAmounts, now time.Time) *LineItem {
	li := &LineItem{
		ID:        id,
		InvoiceID: invoiceID,
		Position:  position,
		CreatedAt: now,
	}
	li.apply(in, amounts, now)
	return li
}

func (li *LineItem) apply(in LineItemInput, amounts LineAmounts, now time.Time) {
	li.Description = strings.TrimSpace(in.Description)
	li.Quantity = in.Quantity
	li.UnitAmount = in.UnitAmount
	li.TaxRate = copyTaxRate(in.TaxRate)
	li.Discount = copyDiscount(in.Discount)
	li.Subtotal = amounts.Subtotal
	li.DiscountAmount = amounts.DiscountAmount
	li.TaxAmount = amounts.TaxAmount
	li.Total = amounts.Total
	li.UpdatedAt = now
}

// Input reconstruye la entrada que produjo la línea.
func (li *LineItem) Input() LineItemInput {
	return LineItemInput{
		Description: li.Description,
		Quantity:    li.Quantity,
		UnitAmount:  li.UnitAmount,
		TaxRate:     copyTaxRate(li.TaxRate),
		Discount:    copyDiscount(li.Discount),
	}
}

func (li *LineItem) clone() *LineItem {
	c := *li
	c.TaxRate = copyTaxRate(li.TaxRate)
	c.Discount = copyDiscount(li.Discount)
	return &c
}

func copyTaxRate(t *TaxRate) *TaxRate {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyDiscount(d *Discount) *Discount {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
