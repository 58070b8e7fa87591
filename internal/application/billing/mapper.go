package billing

import (
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
)

// toLineInput convierte la línea recibida (unidades mayores) a unidades menores de la factura.
func toLineInput(currency string, in dto.LineItemRequest) (entity.LineItemInput, error) {
	if in.UnitPrice.IsNegative() {
		return entity.LineItemInput{}, fmt.Errorf("%w: precio unitario negativo", domain.ErrInvalidLineItem)
	}
	unit, err := money.FromMajor(in.UnitPrice, currency, money.RoundHalfUp)
	if err != nil {
		return entity.LineItemInput{}, fmt.Errorf("%w: precio unitario: %w", domain.ErrInvalidLineItem, err)
	}
	out := entity.LineItemInput{
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitAmount:  unit,
	}
	if in.TaxRate != nil {
		out.TaxRate = &entity.TaxRate{ID: in.TaxRate.ID, Name: in.TaxRate.Name, Rate: in.TaxRate.Rate}
	}
	if in.Discount != nil {
		out.Discount = &entity.Discount{
			ID:      in.Discount.ID,
			Name:    in.Discount.Name,
			Kind:    entity.DiscountKind(in.Discount.Kind),
			Percent: in.Discount.Percent,
		}
		if out.Discount.Kind == entity.DiscountFixed {
			if in.Discount.Amount.IsNegative() {
				return entity.LineItemInput{}, fmt.Errorf("%w: descuento negativo", domain.ErrInvalidLineItem)
			}
			if out.Discount.Amount, err = money.FromMajor(in.Discount.Amount, currency, money.RoundHalfUp); err != nil {
				return entity.LineItemInput{}, fmt.Errorf("%w: descuento: %w", domain.ErrInvalidLineItem, err)
			}
		}
	}
	return out, nil
}

func toInvoiceResponse(inv *entity.Invoice, now time.Time) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:              inv.ID,
		TenantID:        inv.TenantID,
		CustomerRef:     inv.CustomerRef,
		Number:          inv.Number,
		Currency:        inv.Currency,
		TaxBehavior:     string(inv.TaxBehavior),
		Status:          string(inv.Status),
		EffectiveStatus: string(inv.EffectiveStatus(now)),
		Memo:            inv.Memo,
		NetTermsDays:    inv.NetTermsDays,
		Subtotal:        inv.Subtotal,
		DiscountTotal:   inv.DiscountTotal,
		TaxTotal:        inv.TaxTotal,
		Total:           inv.Total,
		AmountPaid:      inv.AmountPaid,
		AmountDue:       inv.AmountDue,
		IssuedAt:        inv.IssuedAt,
		DueAt:           inv.DueAt,
		PaidAt:          inv.PaidAt,
		VoidedAt:        inv.VoidedAt,
		VoidReason:      inv.VoidReason,
		Version:         inv.Version,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		LineItems:       make([]dto.LineItemResponse, 0, len(inv.LineItems)),
		Payments:        make([]dto.PaymentResponse, 0, len(inv.Payments)),
	}
	for _, li := range inv.LineItems {
		item := dto.LineItemResponse{
			ID:             li.ID,
			Position:       li.Position,
			Description:    li.Description,
			Quantity:       li.Quantity,
			UnitAmount:     li.UnitAmount,
			Subtotal:       li.Subtotal,
			DiscountAmount: li.DiscountAmount,
			TaxAmount:      li.TaxAmount,
			Total:          li.Total,
		}
		if li.TaxRate != nil {
			item.TaxRate = &dto.TaxRateRequest{ID: li.TaxRate.ID, Name: li.TaxRate.Name, Rate: li.TaxRate.Rate}
		}
		if li.Discount != nil {
			item.Discount = &dto.DiscountRequest{
				ID:      li.Discount.ID,
				Name:    li.Discount.Name,
				Kind:    string(li.Discount.Kind),
				Percent: li.Discount.Percent,
			}
			if li.Discount.Kind == entity.DiscountFixed {
				item.Discount.Amount = money.ToMajor(li.Discount.Amount)
			}
		}
		resp.LineItems = append(resp.LineItems, item)
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, dto.PaymentResponse{
			ID:             p.ID,
			Amount:         p.Amount,
			Status:         string(p.Status),
			Method:         p.Method,
			Reference:      p.Reference,
			FailureCode:    p.FailureCode,
			FailureMessage: p.FailureMessage,
			AttemptedAt:    p.AttemptedAt,
			SucceededAt:    p.SucceededAt,
			FailedAt:       p.FailedAt,
		})
	}
	return resp
}
